package engine

import (
	"context"

	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
)

// SetHostname sets the engine's hostname, blocking until the mutation is
// visible (spec §5: "hostname set ... wait on a per-action completion
// semaphore").
func (e *Engine) SetHostname(ctx context.Context, hostname string) error {
	return e.syncAction(ctx, func() error {
		e.resp.SetHostname(hostname)
		return nil
	})
}

// Hostname returns the current hostname. Safe to call from any
// goroutine: the responder's store guards it with the process-wide
// lock described in spec §5 ("readers of the hostname ... for
// introspection calls").
func (e *Engine) Hostname() string {
	return e.resp.Hostname()
}

// SetInstance sets the default instance name used by services that do
// not specify their own.
func (e *Engine) SetInstance(ctx context.Context, instance string) error {
	return e.syncAction(ctx, func() error {
		e.resp.SetInstance(instance)
		return nil
	})
}

// AddDelegatedHost registers a host the engine answers for on behalf of
// another device, blocking until visible.
func (e *Engine) AddDelegatedHost(ctx context.Context, host *model.DelegatedHost) error {
	return e.syncAction(ctx, func() error {
		e.resp.AddDelegatedHost(host)
		return nil
	})
}

// RemoveDelegatedHost removes a delegated host by name.
func (e *Engine) RemoveDelegatedHost(ctx context.Context, hostname string) (bool, error) {
	var removed bool
	err := e.syncAction(ctx, func() error {
		removed = e.resp.RemoveDelegatedHost(hostname)
		return nil
	})
	return removed, err
}

// AddService registers svc and begins probing for it on every enabled
// PCB.
func (e *Engine) AddService(ctx context.Context, svc *model.Service) error {
	return e.syncAction(ctx, func() error {
		e.resp.AddService(svc)
		return nil
	})
}

// RemoveService removes the service matching key, sending goodbye
// records for it first.
func (e *Engine) RemoveService(ctx context.Context, key model.InstanceKey) (bool, error) {
	var removed bool
	err := e.syncAction(ctx, func() error {
		removed = e.resp.RemoveService(key)
		return nil
	})
	return removed, err
}

// RemoveServicesForHost removes every service hosted on hostname.
func (e *Engine) RemoveServicesForHost(ctx context.Context, hostname string) (int, error) {
	var n int
	err := e.syncAction(ctx, func() error {
		n = e.resp.RemoveServicesForHost(hostname)
		return nil
	})
	return n, err
}

// SetServicePort updates the port of the service matching key.
func (e *Engine) SetServicePort(ctx context.Context, key model.InstanceKey, port uint16) (bool, error) {
	var ok bool
	err := e.syncAction(ctx, func() error {
		ok = e.resp.SetServicePort(key, port)
		return nil
	})
	return ok, err
}

// SetServiceTXT replaces the TXT pairs of the service matching key.
func (e *Engine) SetServiceTXT(ctx context.Context, key model.InstanceKey, pairs model.TXTPairs) (bool, error) {
	var ok bool
	err := e.syncAction(ctx, func() error {
		ok = e.resp.SetServiceTXT(key, pairs)
		return nil
	})
	return ok, err
}

// AddSubtype adds subtype to the service matching key.
func (e *Engine) AddSubtype(ctx context.Context, key model.InstanceKey, subtype string) (bool, error) {
	var ok bool
	err := e.syncAction(ctx, func() error {
		ok = e.resp.AddSubtype(key, subtype)
		return nil
	})
	return ok, err
}

// RemoveSubtype removes subtype from the service matching key.
func (e *Engine) RemoveSubtype(ctx context.Context, key model.InstanceKey, subtype string) (bool, error) {
	var ok bool
	err := e.syncAction(ctx, func() error {
		ok = e.resp.RemoveSubtype(key, subtype)
		return nil
	})
	return ok, err
}

// SetInstanceName renames the instance matching key and restarts
// probing under the new name.
func (e *Engine) SetInstanceName(ctx context.Context, key model.InstanceKey, name string) (bool, error) {
	var ok bool
	err := e.syncAction(ctx, func() error {
		ok = e.resp.SetInstanceName(key, name)
		return nil
	})
	return ok, err
}

// Services returns a snapshot of the current service list (spec §6
// "lookup_self/delegated_service").
func (e *Engine) Services() []*model.Service {
	return e.resp.Services()
}

// syncAction wraps fn in a scheduler.SyncAction, enqueues it, and waits
// for it to complete, implementing spec §5's synchronous control calls.
func (e *Engine) syncAction(ctx context.Context, fn func() error) error {
	action := scheduler.NewSyncAction(scheduler.ActionFunc(func(context.Context) error {
		return fn()
	}))
	if err := e.sched.EnqueueWait(ctx, action); err != nil {
		return err
	}
	return action.Wait(ctx)
}
