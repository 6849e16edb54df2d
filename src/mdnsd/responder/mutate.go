package responder

import (
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// reprobeService restarts the full probe/announce sequence for svc on
// every PCB that currently owns it, because its claimed rdata (port,
// instance name) has changed (spec §4.2: a changed SRV claim is treated
// like a fresh claim).
func (r *Responder) reprobeService(svc *model.Service) {
	for _, p := range r.pcbs {
		if p.state == Off || p.state == Dup {
			continue
		}
		if !containsService(p.probingServices, svc) && p.state != Running {
			continue
		}
		r.beginProbe(p, []*model.Service{svc}, false)
	}
}

// reannounceService sends a single unsolicited authoritative response
// for svc's current records, without probing again; it is used when
// only svc's TXT content has changed.
func (r *Responder) reannounceService(svc *model.Service) {
	for _, p := range r.pcbs {
		if p.state != Running || !containsService(p.probingServices, svc) {
			continue
		}

		m := newQuery()
		m.Response = true
		m.Authoritative = true
		m.Answer = []dns.RR{
			svc.PTR(r.domain),
			wire.SetCacheFlush(svc.SRV(r.domain)),
			wire.SetCacheFlush(svc.TXT(r.domain)),
		}

		r.sched.ScheduleTX(&scheduler.TXPacket{
			Interface:   p.Interface,
			Protocol:    p.Protocol,
			Destination: p.Protocol.Group(),
			Msg:         m,
			SendAt:      time.Now(),
			Distributed: true,
		})
	}
}

// reannounceHost re-sends the address records for hostname (the self
// host or a delegated one) on iface/proto without restarting probing,
// used when the host gains a new address after the PCB is already
// running (the supplemented "delegated-host address-change re-announce"
// behavior).
func (r *Responder) reannounceHost(hostname string, iface net.Interface, proto wire.Protocol) {
	p, ok := r.pcbs[pcbKey{iface.Name, proto}]
	if !ok || p.state != Running {
		return
	}

	host, ok := r.store.findHost(hostname)
	if !ok {
		return
	}

	m := newQuery()
	m.Response = true
	m.Authoritative = true
	for _, rr := range host.AddressRecords(r.domain, defaultTTL) {
		m.Answer = append(m.Answer, wire.SetCacheFlush(rr))
	}

	r.sched.ScheduleTX(&scheduler.TXPacket{
		Interface:   p.Interface,
		Protocol:    p.Protocol,
		Destination: p.Protocol.Group(),
		Msg:         m,
		SendAt:      time.Now(),
		Distributed: true,
	})
}

// sendHostAddressGoodbye sends a single TTL-0 A/AAAA record for ip on
// hostname, the mirror of reannounceHost for an address that was
// removed rather than added.
func (r *Responder) sendHostAddressGoodbye(hostname string, iface net.Interface, proto wire.Protocol, ip net.IP) {
	p, ok := r.pcbs[pcbKey{iface.Name, proto}]
	if !ok || p.state != Running {
		return
	}

	var rr dns.RR
	if ip4 := ip.To4(); ip4 != nil {
		rr = model.A(hostname, r.domain, ip4, 0)
	} else {
		rr = model.AAAA(hostname, r.domain, ip, 0)
	}

	m := newQuery()
	m.Response = true
	m.Authoritative = true
	m.Answer = []dns.RR{rr}

	r.sched.ScheduleTX(&scheduler.TXPacket{
		Interface:   p.Interface,
		Protocol:    p.Protocol,
		Destination: p.Protocol.Group(),
		Msg:         m,
		SendAt:      time.Now(),
		Distributed: true,
	})
}

// sendGoodbye sends a single unsolicited response with TTL 0 for every
// record svc owns, on every PCB currently running it (spec §4.2
// "Goodbye").
func (r *Responder) sendGoodbye(svc *model.Service) {
	for _, p := range r.pcbs {
		if p.state != Running || !containsService(p.probingServices, svc) {
			continue
		}

		ptr := svc.PTR(r.domain)
		srv := svc.SRV(r.domain)
		txt := svc.TXT(r.domain)
		ptr.Hdr.Ttl = 0
		srv.Hdr.Ttl = 0
		txt.Hdr.Ttl = 0

		m := newQuery()
		m.Response = true
		m.Authoritative = true
		m.Answer = []dns.RR{ptr, srv, txt}

		r.sched.ScheduleTX(&scheduler.TXPacket{
			Interface:   p.Interface,
			Protocol:    p.Protocol,
			Destination: p.Protocol.Group(),
			Msg:         m,
			SendAt:      time.Now(),
			Distributed: true,
		})

		p.probingServices = removeService(p.probingServices, svc)
	}
}

func removeService(list []*model.Service, svc *model.Service) []*model.Service {
	out := list[:0]
	for _, s := range list {
		if s != svc {
			out = append(out, s)
		}
	}
	return out
}
