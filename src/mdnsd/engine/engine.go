// Package engine wires the scheduler, responder, query engine and
// transport layer into a single mDNS engine exposing the control,
// event and result interfaces of spec §6. Grounded on the shape of
// the teacher's mdns.Responder.New/Run (single struct owning a command
// channel plus one receive goroutine per transport), generalized to own
// a set of PCBs across many interfaces and to run the query engine
// alongside the responder rather than not at all.
package engine

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/quietwire/mdnsd/src/mdnsd/query"
	"github.com/quietwire/mdnsd/src/mdnsd/responder"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/transport"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// Engine is a complete mDNS responder and query engine for one host,
// across every enabled network interface (spec §2 "System overview").
type Engine struct {
	logger logging.Logger
	domain string

	disableIPv4 bool
	disableIPv6 bool

	sched *scheduler.Scheduler
	resp  *responder.Responder
	query *query.Manager
	txm   *transport.Manager

	v4 transport.Transport
	v6 transport.Transport
}

// New constructs an Engine. It does not start listening; call Run to
// begin processing.
func New(opts ...Option) *Engine {
	e := &Engine{
		domain: wire.DefaultDomain,
		txm:    &transport.Manager{},
	}

	for _, opt := range opts {
		opt(e)
	}

	var schedOpts []scheduler.Option
	if e.logger != nil {
		schedOpts = append(schedOpts, scheduler.UseLogger(e.logger))
	}
	e.sched = scheduler.New(e.txm, schedOpts...)

	var respOpts []responder.Option
	respOpts = append(respOpts, responder.UseDomain(e.domain))
	if e.logger != nil {
		respOpts = append(respOpts, responder.UseLogger(e.logger))
	}
	e.resp = responder.New(e.sched, respOpts...)

	var queryOpts []query.Option
	if e.logger != nil {
		queryOpts = append(queryOpts, query.UseLogger(e.logger))
	}
	e.query = query.New(e.sched, pcbAdapter{e.resp}, e.domain, queryOpts...)
	e.sched.AddTicker(e.query)

	if !e.disableIPv4 {
		e.v4 = &transport.IPv4Transport{Logger: e.logger}
		e.txm.V4 = e.v4
	}
	if !e.disableIPv6 {
		e.v6 = &transport.IPv6Transport{Logger: e.logger}
		e.txm.V6 = e.v6
	}

	return e
}

// pcbAdapter adapts *responder.Responder to query.PCBSource without
// giving the query package a direct dependency on responder (see
// DESIGN.md).
type pcbAdapter struct {
	r *responder.Responder
}

func (a pcbAdapter) ActivePCBs() []query.PCBRef {
	active := a.r.ActivePCBs()
	out := make([]query.PCBRef, len(active))
	for i, p := range active {
		out[i] = query.PCBRef{Interface: p.Interface, Protocol: p.Protocol}
	}
	return out
}

// isClosedError reports whether err is the "use of closed network
// connection" error net.Conn methods return after Close, which the
// receive loop uses to distinguish a clean shutdown from a real I/O
// failure (ground-truthed on the teacher's own isClosedError in
// dissolve/src/dissolve/mdns/responder/responder.go).
func isClosedError(err error) bool {
	e, ok := err.(*net.OpError)
	if !ok {
		return false
	}
	return e.Err.Error() == "use of closed network connection"
}
