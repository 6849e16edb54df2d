package responder

import (
	"net"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// pcb is the per (interface, IP protocol) control block described in
// spec §3 "Interface PCB".
type pcb struct {
	Interface net.Interface
	Protocol  wire.Protocol

	state State

	// probingServices are the services claimed by the probe currently in
	// flight (or about to be sent).
	probingServices []*model.Service

	// probingHost is true while this PCB is also probing for ownership
	// of the responder's hostname addresses.
	probingHost bool

	failedProbes int

	// pending is the TX packet currently scheduled for this PCB's
	// probe/announce sequence, or nil between rounds.
	pending *scheduler.TXPacket
}

func newPCB(iface net.Interface, proto wire.Protocol) *pcb {
	return &pcb{
		Interface: iface,
		Protocol:  proto,
		state:     Off,
	}
}

// claims reports whether this PCB is currently probing for, or already
// running with, ownership of svc.
func (p *pcb) claims(svc *model.Service) bool {
	for _, s := range p.probingServices {
		if s == svc {
			return true
		}
	}
	return p.state == Running
}

// probeQuestions builds the ANY-type questions for a probe packet: one
// per probing service instance name, plus the hostname if probingHost is
// set (spec §4.2 "Probe packet").
func (p *pcb) probeQuestions(domain string) []dns.Question {
	qs := make([]dns.Question, 0, len(p.probingServices)+1)

	for _, svc := range p.probingServices {
		qs = append(qs, dns.Question{
			Name:   wire.InstanceName(svc.InstanceName, svc.ServiceType, svc.Protocol, domain),
			Qtype:  dns.TypeANY,
			Qclass: dns.ClassINET,
		})
	}

	if p.probingHost {
		hostname := ""
		if len(p.probingServices) > 0 {
			hostname = p.probingServices[0].Hostname
		}
		qs = append(qs, dns.Question{
			Name:   wire.HostName(hostname, domain),
			Qtype:  dns.TypeANY,
			Qclass: dns.ClassINET,
		})
	}

	return qs
}
