package query

import (
	"context"
	"net"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// PCBRef names one live (interface, IP protocol) pair a question can be
// sent on.
type PCBRef struct {
	Interface net.Interface
	Protocol  wire.Protocol
}

// PCBSource enumerates the PCBs currently able to carry traffic. It is
// implemented by the responder; the query package only depends on this
// narrow interface to avoid an import cycle (spec §2's "Flow" treats the
// query engine as a peer of the responder, not a dependent of it).
type PCBSource interface {
	ActivePCBs() []PCBRef
}

// Option configures a Manager.
type Option func(*Manager)

// UseLogger sets the logger used by the Manager.
func UseLogger(l logging.Logger) Option { return func(m *Manager) { m.logger = l } }

// Manager owns every active Search and Browse and drives their
// question-sending and merge logic. It implements scheduler.Ticker so
// registering it with a Scheduler is enough to satisfy spec §4.4's
// "Search tick".
type Manager struct {
	sched  *scheduler.Scheduler
	pcbs   PCBSource
	domain string
	logger logging.Logger

	searches map[*Search]struct{}
	browses  map[browseKey]*Browse
}

// New returns a Manager that sends questions through sched and discovers
// active PCBs via pcbs.
func New(sched *scheduler.Scheduler, pcbs PCBSource, domain string, opts ...Option) *Manager {
	m := &Manager{
		sched:    sched,
		pcbs:     pcbs,
		domain:   domain,
		searches: make(map[*Search]struct{}),
		browses:  make(map[browseKey]*Browse),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Search registers params as a new one-shot search and returns its
// handle immediately; the search itself begins transmitting on the next
// scheduler tick (spec §4.4 "Search tick": "if in INIT ... enqueue
// SEARCH_SEND"). Callers that want synchronous results should wait on
// the returned Search's Done channel.
//
// This must be called from the service task (i.e. from within an Action)
// to preserve the single-writer invariant over m.searches; callers on
// other goroutines should route through an engine-level action that
// wraps this call.
func (m *Manager) Search(params SearchParams) *Search {
	s := newSearch(m.domain, params)
	s.startedAt = time.Now()
	m.searches[s] = struct{}{}
	return s
}

// AwaitSearch blocks until s finishes or ctx is canceled, then returns
// its results.
func AwaitSearch(ctx context.Context, s *Search) ([]*Result, error) {
	select {
	case <-s.Done():
		return s.Results(), nil
	case <-ctx.Done():
		return s.Results(), ctx.Err()
	}
}

// BrowseNew registers a continuous browse for {service, protocol}. Like
// Search, this must run on the service task.
func (m *Manager) BrowseNew(service, protocol string, notifier BrowseNotifier) *Browse {
	key := browseKey{service: service, protocol: protocol}
	if b, ok := m.browses[key]; ok {
		return b
	}
	b := newBrowse(m.domain, service, protocol, notifier)
	m.browses[key] = b
	m.sendBrowseQuestion(b, time.Now())
	return b
}

// BrowseDelete removes the browse for {service, protocol}, if any.
func (m *Manager) BrowseDelete(service, protocol string) bool {
	key := browseKey{service: service, protocol: protocol}
	if _, ok := m.browses[key]; !ok {
		return false
	}
	delete(m.browses, key)
	return true
}

// InterfaceUp re-emits every active browse's PTR question on the given
// PCB, per spec §4.3 ("re-emits its PTR question on every interface-up
// event").
func (m *Manager) InterfaceUp(ref PCBRef) {
	now := time.Now()
	for _, b := range m.browses {
		m.sendOn(ref, b.question())
		b.lastSent = now
	}
}

// Tick implements scheduler.Ticker: it finalizes timed-out searches,
// retransmits due ones, and refreshes stale browses (spec §4.4 "Search
// tick").
func (m *Manager) Tick(now time.Time) []scheduler.Action {
	var actions []scheduler.Action

	for s := range m.searches {
		s := s
		switch {
		case s.timedOut(now):
			actions = append(actions, scheduler.ActionFunc(func(ctx context.Context) error {
				return m.endSearch(s)
			}))
		case s.dueToSend(now):
			actions = append(actions, scheduler.ActionFunc(func(ctx context.Context) error {
				return m.sendSearch(s, now)
			}))
		}
	}

	for _, b := range m.browses {
		b := b
		if now.Sub(b.lastSent) >= browseRefreshInterval {
			actions = append(actions, scheduler.ActionFunc(func(ctx context.Context) error {
				m.sendBrowseQuestion(b, now)
				return nil
			}))
		}
	}

	return actions
}

// endSearch implements SEARCH_END: finalize the search and drop it from
// the active set.
func (m *Manager) endSearch(s *Search) error {
	s.finalize()
	delete(m.searches, s)
	return nil
}

// sendSearch implements SEARCH_SEND: transmit the search's question on
// every active PCB and record sent_at. Per spec §4.4, a failed enqueue
// must roll back sent_at so the next tick retries; ScheduleTX cannot
// fail here (it is a direct insert, not a bounded queue), so no rollback
// path is needed.
func (m *Manager) sendSearch(s *Search, now time.Time) error {
	q := s.question()
	for _, ref := range m.activePCBs() {
		m.sendOn(ref, q)
	}
	s.sentAt = now
	s.state = Running
	return nil
}

func (m *Manager) sendBrowseQuestion(b *Browse, now time.Time) {
	q := b.question()
	for _, ref := range m.activePCBs() {
		m.sendOn(ref, q)
	}
	b.state = Running
	b.lastSent = now
}

func (m *Manager) activePCBs() []PCBRef {
	if m.pcbs == nil {
		return nil
	}
	return m.pcbs.ActivePCBs()
}

func (m *Manager) sendOn(ref PCBRef, q dns.Question) {
	msg := wire.NewQuery(false)
	msg.AddQuestion(q)

	m.sched.ScheduleTX(&scheduler.TXPacket{
		Interface: ref.Interface,
		Protocol:  ref.Protocol,
		Msg:       msg.Msg(),
		SendAt:    time.Now(),
	})
}

// HandleResponse merges every record in pkt into every search and browse
// it matches. It must run on the service task, the same as RX_HANDLE for
// the responder (spec §2 "Flow").
func (m *Manager) HandleResponse(iface string, proto wire.Protocol, pkt *wire.ParsedPacket) {
	for s := range m.searches {
		s.results.merge(iface, proto, pkt, s.domain, s.params.Service, s.params.Protocol, s.params.Instance)
		if s.params.MaxResults > 0 && len(s.results.order) >= s.params.MaxResults {
			m.endSearch(s)
		}
	}

	for _, b := range m.browses {
		out := b.results.merge(iface, proto, pkt, b.domain, b.key.service, b.key.protocol, "")
		b.deliver(out)
	}
}
