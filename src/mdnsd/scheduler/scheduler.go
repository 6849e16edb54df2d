package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/quietwire/mdnsd/src/mdnsd/engineerr"
)

// tickInterval is how often the scheduler sweeps the TX queue for due
// packets and polls registered search/browse tickers (spec §4.4: "A timer
// fires every ~100 ms").
const tickInterval = 100 * time.Millisecond

// defaultQueueSize is the capacity of the action queue.
const defaultQueueSize = 256

// Sender transmits a serialized TX packet. It is implemented by the
// transport layer.
type Sender interface {
	Send(ctx context.Context, pkt *TXPacket) error
}

// Ticker is polled on every scheduler tick to produce actions driven by
// wall-clock time rather than by an explicit TX deadline - e.g. the
// search engine's retransmit/timeout checks (spec §4.4 "Search tick").
type Ticker interface {
	Tick(now time.Time) []Action
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// UseLogger sets the logger used by the scheduler.
func UseLogger(l logging.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// UseQueueSize overrides the action queue's capacity.
func UseQueueSize(n int) Option {
	return func(s *Scheduler) { s.queueSize = n }
}

// Scheduler is the engine's single-consumer action queue plus its
// delay-ordered TX queue (spec §4.4).
type Scheduler struct {
	Sender Sender

	logger    logging.Logger
	queueSize int
	actions   chan Action
	tickers   []Ticker

	tx   txQueue
	done chan struct{}
}

// New returns a new, un-started Scheduler.
func New(sender Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		Sender: sender,
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.queueSize == 0 {
		s.queueSize = defaultQueueSize
	}
	s.actions = make(chan Action, s.queueSize)

	return s
}

// AddTicker registers a Ticker to be polled on every scheduler tick.
// Must be called before Run.
func (s *Scheduler) AddTicker(t Ticker) {
	s.tickers = append(s.tickers, t)
}

// Enqueue adds action to the action queue without blocking. It returns a
// Transient error if the queue is full (spec §7).
func (s *Scheduler) Enqueue(action Action) error {
	select {
	case s.actions <- action:
		return nil
	default:
		return engineerr.New(engineerr.Transient, "action queue is full")
	}
}

// EnqueueWait adds action to the action queue, blocking until there is
// room, ctx is canceled, or the scheduler has stopped.
func (s *Scheduler) EnqueueWait(ctx context.Context, action Action) error {
	select {
	case s.actions <- action:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return engineerr.New(engineerr.InvalidState, "scheduler is no longer running")
	}
}

// ScheduleTX inserts pkt into the TX queue at its SendAt deadline.
//
// ScheduleTX may be called both from the service task (the common case,
// e.g. the post-send rule scheduling the next probe) and from outside it
// while the scheduler has not yet started its run loop (initial engine
// setup); once Run is executing, all calls must originate from actions
// running on the service task to preserve the no-lock invariant of
// spec §5.
func (s *Scheduler) ScheduleTX(pkt *TXPacket) {
	s.tx.insert(pkt)
}

// CancelTX removes pkt from the TX queue if it is still pending. It
// reports whether pkt was found.
func (s *Scheduler) CancelTX(pkt *TXPacket) bool {
	return s.tx.cancel(pkt)
}

// Run drains the action queue and sweeps the TX queue until ctx is
// canceled. It is the engine's sole mutator goroutine (spec §5).
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return drainActions(s.actions)

		case a := <-s.actions:
			if err := a.Execute(ctx); err != nil {
				logging.Log(s.logger, "action failed: %s", err)
			}

		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// tick runs one pass of the timer: it enqueues TX_HANDLE actions for any
// due TX packets, then polls registered tickers for their own due
// actions.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, pkt := range s.tx.due(now) {
		pkt := pkt
		_ = s.Enqueue(ActionFunc(func(ctx context.Context) error {
			return s.handleTX(ctx, pkt)
		}))
	}

	for _, t := range s.tickers {
		for _, action := range t.Tick(now) {
			_ = s.Enqueue(action)
		}
	}
}

// handleTX implements the TX_HANDLE action: verify the packet is still
// due for handling, unlink it, send it, and run its post-send rule (spec
// §4.4 "TX dispatch").
func (s *Scheduler) handleTX(ctx context.Context, pkt *TXPacket) error {
	if !pkt.queued {
		// Already handled between being marked due and this action running.
		return nil
	}

	if !s.tx.removeHead(pkt) {
		// Canceled, or no longer at the head: not sent now. A packet still
		// in the queue is marked due again by a later tick.
		pkt.queued = false
		return nil
	}
	pkt.queued = false

	if s.Sender == nil {
		return errors.New("scheduler: no sender configured")
	}

	if err := s.Sender.Send(ctx, pkt); err != nil {
		return err
	}

	if pkt.OnSent != nil {
		pkt.OnSent(pkt)
	}

	return nil
}

func drainActions(actions chan Action) error {
	for {
		select {
		case <-actions:
		default:
			return context.Canceled
		}
	}
}
