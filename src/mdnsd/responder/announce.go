package responder

import (
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// beginAnnounce builds the authoritative announcement for every service
// and address p just finished probing for, and schedules the first of
// three sends (spec §4.2 "Announce").
func (r *Responder) beginAnnounce(p *pcb) {
	m := newQuery()
	m.Response = true
	m.Authoritative = true
	m.Answer = r.announceAnswer(p)

	pkt := &scheduler.TXPacket{
		Interface:   p.Interface,
		Protocol:    p.Protocol,
		Destination: p.Protocol.Group(),
		Msg:         m,
		SendAt:      time.Now().Add(probeInterval),
		Distributed: true,
		OnSent: func(pkt *scheduler.TXPacket) {
			r.onAnnounceSent(p, pkt)
		},
	}

	p.state = Announce1
	p.pending = pkt
	r.sched.ScheduleTX(pkt)
}

// announceAnswer builds the PTR/SRV/TXT/A/AAAA answer set for every
// service and address p is claiming. The cache-flush bit is set on
// SRV/TXT/A/AAAA but not PTR (PTR is a shared RRset, spec §4.2
// "Announce").
func (r *Responder) announceAnswer(p *pcb) []dns.RR {
	var rrs []dns.RR

	for _, svc := range p.probingServices {
		rrs = append(rrs,
			svc.PTR(r.domain),
			wire.SetCacheFlush(svc.SRV(r.domain)),
			wire.SetCacheFlush(svc.TXT(r.domain)),
		)
		for _, st := range svc.Subtypes {
			rrs = append(rrs, svc.SubtypePTR(st, r.domain))
		}
	}

	if p.probingHost {
		if host, ok := r.store.findHost(r.store.Hostname()); ok {
			for _, rr := range host.AddressRecords(r.domain, defaultTTL) {
				rrs = append(rrs, wire.SetCacheFlush(rr))
			}
		}
	}

	return rrs
}

// onAnnounceSent implements the announce leg of the TX-dispatch
// post-send rule (spec §4.4 "TX dispatch").
func (r *Responder) onAnnounceSent(p *pcb, pkt *scheduler.TXPacket) {
	switch p.state {
	case Announce1:
		p.state = Announce2
		pkt.SendAt = time.Now().Add(announce2Interval)
		r.sched.ScheduleTX(pkt)

	case Announce2:
		p.state = Announce3
		pkt.SendAt = time.Now().Add(announce2Interval)
		r.sched.ScheduleTX(pkt)

	case Announce3:
		p.pending = nil
		p.failedProbes = 0
		p.state = Running
	}
}
