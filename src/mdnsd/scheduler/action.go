// Package scheduler implements the delay-ordered transmit queue and the
// single-consumer action queue that together make all engine mutation
// single-threaded (spec §4.4, §5).
package scheduler

import "context"

// Action is a unit of work executed on the scheduler's single service
// task. Every caller outside the service task - RX, timers, control-API
// calls, system events - produces an Action rather than mutating engine
// state directly (spec §3 invariant: "The action queue is the sole entry
// point for mutation").
type Action interface {
	Execute(ctx context.Context) error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context) error

// Execute calls f.
func (f ActionFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// SyncAction is an Action that signals a completion channel once Execute
// returns, so a synchronous caller (spec §5: "hostname set, delegated
// host add") can block until the mutation is visible.
type SyncAction struct {
	Action
	done chan error
}

// NewSyncAction wraps action so that its completion can be awaited via
// Wait.
func NewSyncAction(action Action) *SyncAction {
	return &SyncAction{Action: action, done: make(chan error, 1)}
}

// Execute runs the wrapped action and signals completion.
func (a *SyncAction) Execute(ctx context.Context) error {
	err := a.Action.Execute(ctx)
	a.done <- err
	return err
}

// Wait blocks until the action has been executed (or ctx is canceled),
// returning the error it produced.
func (a *SyncAction) Wait(ctx context.Context) error {
	select {
	case err := <-a.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
