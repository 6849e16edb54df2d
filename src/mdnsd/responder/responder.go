package responder

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// pcbKey identifies a PCB by interface name and IP protocol.
type pcbKey struct {
	iface string
	proto wire.Protocol
}

// Responder owns the local services/hosts and drives each interface's
// probe/announce/defend state machine (spec §4.2). All of its methods
// are expected to run on the engine's single service task; callers
// outside that task must enqueue an action (spec §5).
type Responder struct {
	domain string
	logger logging.Logger

	sched *scheduler.Scheduler
	store *store
	pcbs  map[pcbKey]*pcb
}

// New returns a Responder that schedules its TX traffic via sched.
func New(sched *scheduler.Scheduler, opts ...Option) *Responder {
	r := &Responder{
		domain: wire.DefaultDomain,
		sched:  sched,
		store:  newStore(),
		pcbs:   map[pcbKey]*pcb{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// SetHostname sets the responder's hostname, cascading into the
// addresses of the self host.
func (r *Responder) SetHostname(hostname string) {
	r.store.setHostname(hostname)
}

// Hostname returns the current hostname.
func (r *Responder) Hostname() string {
	return r.store.Hostname()
}

// SetInstance sets the server-wide default instance name.
func (r *Responder) SetInstance(instance string) {
	r.store.setInstance(instance)
}

// Services returns a snapshot of the current service list, for
// introspection (spec §6 "lookup_self/delegated_service").
func (r *Responder) Services() []*model.Service {
	return r.store.Services()
}

// AddDelegatedHost registers host, answered for on behalf of another
// device.
func (r *Responder) AddDelegatedHost(host *model.DelegatedHost) {
	r.store.addDelegatedHost(host)
}

// RemoveDelegatedHost removes a delegated host by name.
func (r *Responder) RemoveDelegatedHost(hostname string) bool {
	_, ok := r.store.removeDelegatedHost(hostname)
	return ok
}

// AddSelfAddress records an address for the responder's own hostname,
// triggering an address-change re-announce if the PCB owning that
// interface is already running (spec's supplemented "delegated-host
// address-change re-announce" behavior).
func (r *Responder) AddSelfAddress(iface net.Interface, proto wire.Protocol, ip net.IP) {
	if r.store.addSelfAddress(ip) {
		r.reannounceHost(r.store.Hostname(), iface, proto)
	}
}

// AddDelegatedHostAddress adds ip to the delegated host named hostname,
// re-announcing its address set on iface/proto if the PCB there is
// already running. It reports whether the address was new.
func (r *Responder) AddDelegatedHostAddress(hostname string, iface net.Interface, proto wire.Protocol, ip net.IP) bool {
	if !r.store.addHostAddress(hostname, ip) {
		return false
	}
	r.reannounceHost(hostname, iface, proto)
	return true
}

// RemoveDelegatedHostAddress removes ip from the delegated host named
// hostname, sending a single goodbye record for it on iface/proto if the
// PCB there is running. It reports whether the address was present.
func (r *Responder) RemoveDelegatedHostAddress(hostname string, iface net.Interface, proto wire.Protocol, ip net.IP) bool {
	if !r.store.removeHostAddress(hostname, ip) {
		return false
	}
	r.sendHostAddressGoodbye(hostname, iface, proto, ip)
	return true
}

// AddService registers svc and begins probing for it on every enabled
// PCB.
func (r *Responder) AddService(svc *model.Service) {
	r.store.addService(svc)

	for _, p := range r.pcbs {
		if p.state == Off || p.state == Dup {
			continue
		}
		r.beginProbe(p, []*model.Service{svc}, false)
	}
}

// RemoveService removes the service matching key, sending goodbye
// records for it on every PCB that was running it (spec §3
// "Lifecycle").
func (r *Responder) RemoveService(key model.InstanceKey) bool {
	svc, ok := r.store.findService(key)
	if !ok {
		return false
	}
	r.store.removeService(key)
	r.sendGoodbye(svc)
	return true
}

// RemoveServicesForHost removes every service hosted on hostname,
// sending goodbye records for each.
func (r *Responder) RemoveServicesForHost(hostname string) int {
	removed := r.store.removeServicesForHost(hostname)
	for _, svc := range removed {
		r.sendGoodbye(svc)
	}
	return len(removed)
}

// SetServicePort updates the port of the service matching key and
// restarts probing for it (an SRV rdata change is itself a new claim).
func (r *Responder) SetServicePort(key model.InstanceKey, port uint16) bool {
	svc, ok := r.store.findService(key)
	if !ok {
		return false
	}
	svc.Port = port
	r.reprobeService(svc)
	return true
}

// SetServiceTXT replaces the TXT pairs of the service matching key.
func (r *Responder) SetServiceTXT(key model.InstanceKey, pairs model.TXTPairs) bool {
	svc, ok := r.store.findService(key)
	if !ok {
		return false
	}
	svc.Text = pairs
	r.reannounceService(svc)
	return true
}

// AddSubtype adds subtype to the service matching key, if not already
// present.
func (r *Responder) AddSubtype(key model.InstanceKey, subtype string) bool {
	svc, ok := r.store.findService(key)
	if !ok || svc.HasSubtype(subtype) {
		return false
	}
	svc.Subtypes = append(svc.Subtypes, subtype)
	return true
}

// RemoveSubtype removes subtype from the service matching key.
func (r *Responder) RemoveSubtype(key model.InstanceKey, subtype string) bool {
	svc, ok := r.store.findService(key)
	if !ok {
		return false
	}
	for i, st := range svc.Subtypes {
		if st == subtype {
			svc.Subtypes = append(svc.Subtypes[:i], svc.Subtypes[i+1:]...)
			return true
		}
	}
	return false
}

// SetInstanceName renames the instance matching key and restarts
// probing under the new name.
func (r *Responder) SetInstanceName(key model.InstanceKey, name string) bool {
	svc, ok := r.store.findService(key)
	if !ok {
		return false
	}
	svc.InstanceName = name
	r.reprobeService(svc)
	return true
}

// EnablePCB brings up the PCB for (iface, proto), scheduling its first
// probe for every registered service plus the self-host addresses.
func (r *Responder) EnablePCB(iface net.Interface, proto wire.Protocol) {
	key := pcbKey{iface.Name, proto}
	p, ok := r.pcbs[key]
	if !ok {
		p = newPCB(iface, proto)
		r.pcbs[key] = p
	}

	if dup := r.findDuplicate(p); dup {
		p.state = Dup
		return
	}

	p.state = Init
	r.beginProbe(p, r.store.Services(), true)
}

// DisablePCB tears down the PCB for (iface, proto), canceling any
// pending TX packet.
func (r *Responder) DisablePCB(iface net.Interface, proto wire.Protocol) {
	key := pcbKey{iface.Name, proto}
	p, ok := r.pcbs[key]
	if !ok {
		return
	}

	if p.pending != nil {
		r.sched.CancelTX(p.pending)
		p.pending = nil
	}
	p.state = Off
	p.probingServices = nil
	p.probingHost = false
}

// findDuplicate reports whether a PCB already running on a different
// interface shares candidate's link, using the deterministic
// lexicographic address tiebreak described in spec §9's Open Questions.
// The interface with the lexicographically smaller address wins; the
// other goes to Dup.
func (r *Responder) findDuplicate(candidate *pcb) bool {
	candAddr := primaryAddress(candidate.Interface, candidate.Protocol)
	if candAddr == nil {
		return false
	}

	for _, p := range r.pcbs {
		if p == candidate || p.proto() != candidate.proto() || p.state == Off || p.state == Dup {
			continue
		}
		addr := primaryAddress(p.Interface, p.Protocol)
		if addr == nil {
			continue
		}
		if compareAddress(addr, candAddr) == theyWin {
			// the existing PCB's address sorts lower; it stays, the
			// candidate defers.
			return true
		}
	}

	return false
}

func (p *pcb) proto() wire.Protocol { return p.Protocol }

// ActivePCB names one PCB that has completed probing/announcing and can
// carry query traffic.
type ActivePCB struct {
	Interface net.Interface
	Protocol  wire.Protocol
}

// ActivePCBs returns every PCB currently in the Running state, for the
// query engine to send search/browse questions on (spec §4.3: "emitted
// on every live PCB"). It satisfies query.PCBSource via a small adapter
// in the engine package, keeping this package free of a query import.
func (r *Responder) ActivePCBs() []ActivePCB {
	var out []ActivePCB
	for _, p := range r.pcbs {
		if p.state == Running {
			out = append(out, ActivePCB{Interface: p.Interface, Protocol: p.Protocol})
		}
	}
	return out
}

// primaryAddress returns the first address on iface matching proto, or
// nil.
func primaryAddress(iface net.Interface, proto wire.Protocol) net.IP {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}

	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		isV4 := ipn.IP.To4() != nil
		if (proto == wire.IPv4) == isV4 {
			return ipn.IP
		}
	}

	return nil
}

// newQuery returns a new, empty mDNS query message, matching the wire
// conventions in spec §4.1/§6 (query id zero, standard opcode, no
// recursion flags).
func newQuery() *dns.Msg {
	return wire.NewQuery(false).Msg()
}
