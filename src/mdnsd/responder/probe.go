package responder

import (
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// beginProbe merges services (and, if probingHost, the responder's own
// hostname) into p's claim set and (re)starts the three-round probe
// sequence from PROBE_1 (spec §4.2 state diagram).
func (r *Responder) beginProbe(p *pcb, services []*model.Service, probingHost bool) {
	if p.pending != nil {
		r.sched.CancelTX(p.pending)
		p.pending = nil
	}

	for _, svc := range services {
		if !containsService(p.probingServices, svc) {
			p.probingServices = append(p.probingServices, svc)
		}
	}
	if probingHost {
		p.probingHost = true
	}

	p.state = Probe1
	r.sendProbe(p, firstProbeDelay(p.failedProbes))
}

func containsService(list []*model.Service, svc *model.Service) bool {
	for _, s := range list {
		if s == svc {
			return true
		}
	}
	return false
}

// sendProbe builds and schedules the probe packet for p's current round.
func (r *Responder) sendProbe(p *pcb, delay time.Duration) {
	m := newQuery()
	m.Question = p.probeQuestions(r.domain)

	// The first probe's questions carry the unicast-reply bit; later
	// rounds clear it (spec §4.2 "Probe packet").
	if p.state == Probe1 {
		for i, q := range m.Question {
			m.Question[i] = wire.SetUnicastBit(q)
		}
	}

	m.Ns = r.probeAuthority(p)

	pkt := &scheduler.TXPacket{
		Interface:   p.Interface,
		Protocol:    p.Protocol,
		Destination: p.Protocol.Group(),
		Msg:         m,
		SendAt:      time.Now().Add(delay),
		Distributed: true,
		OnSent: func(pkt *scheduler.TXPacket) {
			r.onProbeSent(p, pkt)
		},
	}

	p.pending = pkt
	r.sched.ScheduleTX(pkt)
}

// probeAuthority builds the authority-section records the PCB intends
// to claim: SRV/TXT for each probing service, A/AAAA for the probing
// host.
func (r *Responder) probeAuthority(p *pcb) []dns.RR {
	var rrs []dns.RR

	for _, svc := range p.probingServices {
		rrs = append(rrs, svc.SRV(r.domain), svc.TXT(r.domain))
	}

	if p.probingHost {
		hostname := r.store.Hostname()
		if host, ok := r.store.findHost(hostname); ok {
			rrs = append(rrs, host.AddressRecords(r.domain, defaultTTL)...)
		}
	}

	return rrs
}

// onProbeSent implements the probe leg of the TX-dispatch post-send rule
// (spec §4.2/§4.4).
func (r *Responder) onProbeSent(p *pcb, pkt *scheduler.TXPacket) {
	switch p.state {
	case Probe1:
		for i, q := range pkt.Msg.Question {
			q.Qclass &^= 1 << 15
			pkt.Msg.Question[i] = q
		}
		p.state = Probe2
		pkt.SendAt = time.Now().Add(probeInterval)
		r.sched.ScheduleTX(pkt)

	case Probe2:
		p.state = Probe3
		pkt.SendAt = time.Now().Add(probeInterval)
		r.sched.ScheduleTX(pkt)

	case Probe3:
		p.pending = nil
		r.beginAnnounce(p)
	}
}
