package query

import (
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// State is a search or browse's lifecycle state (spec §3 "Search",
// "Browse": state ∈ {INIT, RUNNING, OFF}).
type State int

const (
	Init State = iota
	Running
	Off
)

func (s State) String() string {
	switch s {
	case Init:
		return "INIT"
	case Running:
		return "RUNNING"
	case Off:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// SearchParams configures a one-shot Search (spec §4.3 "One-shot
// search"; control API `query(name?, service?, proto?, type, unicast,
// timeout, max_results)`).
type SearchParams struct {
	Instance   string
	Service    string
	Protocol   string
	Type       uint16
	Unicast    bool
	Timeout    time.Duration
	MaxResults int
}

// Search is a one-shot query that merges PTR/SRV/TXT/A/AAAA answers
// arriving over its lifetime into a set of Results (spec §3 "Search").
type Search struct {
	params SearchParams
	domain string

	state     State
	startedAt time.Time
	sentAt    time.Time
	results   *resultSet
	done      chan struct{}
}

func newSearch(domain string, params SearchParams) *Search {
	if params.Timeout <= 0 {
		params.Timeout = time.Second
	}
	if params.Type == 0 {
		params.Type = dns.TypePTR
	}
	return &Search{
		params:  params,
		domain:  domain,
		state:   Init,
		results: newResultSet(params.MaxResults),
		done:    make(chan struct{}),
	}
}

// Done is closed once the search has finalized, either by timeout or by
// reaching max_results (spec §4.3: "If max_results is reached the search
// finalizes early.").
func (s *Search) Done() <-chan struct{} {
	return s.done
}

// Results returns the results merged so far. Safe to call once Done has
// fired; prior to that it reflects a snapshot as of the last merge.
func (s *Search) Results() []*Result {
	return s.results.results()
}

// State reports the search's current lifecycle state.
func (s *Search) State() State {
	return s.state
}

// question builds the DNS question this search transmits: the instance
// name when Instance and Service are set, else the service type name,
// else the service-enumeration name, always asked with params.Type (PTR
// unless the caller set another type).
func (s *Search) question() dns.Question {
	var name string
	switch {
	case s.params.Instance != "" && s.params.Service != "":
		name = wire.InstanceName(s.params.Instance, s.params.Service, s.params.Protocol, s.domain)
	case s.params.Service != "":
		name = wire.ServiceTypeName(s.params.Service, s.params.Protocol, s.domain)
	default:
		name = wire.ServiceEnumerationName(s.domain)
	}

	q := dns.Question{Name: name, Qtype: s.params.Type, Qclass: dns.ClassINET}
	if s.params.Unicast {
		q = wire.SetUnicastBit(q)
	}
	return q
}

// finalize transitions the search to OFF and signals Done, if it has
// not already finalized.
func (s *Search) finalize() {
	if s.state == Off {
		return
	}
	s.state = Off
	close(s.done)
}

func (s *Search) timedOut(now time.Time) bool {
	return s.state != Off && !now.Before(s.startedAt.Add(s.params.Timeout))
}

func (s *Search) dueToSend(now time.Time) bool {
	return s.state == Init || now.Sub(s.sentAt) >= time.Second
}
