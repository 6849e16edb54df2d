package responder

import (
	"net"
	"strings"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// HandleResponse processes an inbound mDNS response, checking it
// against any PCB currently probing for a conflict (spec §4.2 "Conflict
// detection during probe") and, once RUNNING, defending owned records
// (spec §4.2 "Defend").
func (r *Responder) HandleResponse(iface string, proto wire.Protocol, pkt *wire.ParsedPacket) {
	p, ok := r.pcbs[pcbKey{iface, proto}]
	if !ok || p.state == Off || p.state == Dup {
		return
	}

	for _, rec := range pkt.AllRecords() {
		switch rr := rec.RR.(type) {
		case *dns.SRV:
			r.checkSRV(p, rr)
		case *dns.TXT:
			r.checkTXT(p, rr)
		case *dns.A:
			r.checkAddress(p, rr.Hdr.Name, rr.A)
		case *dns.AAAA:
			r.checkAddress(p, rr.Hdr.Name, rr.AAAA)
		}
	}
}

// checkSRV compares an incoming SRV claim against the matching probing
// (or running) service, mangling ours if we lose.
func (r *Responder) checkSRV(p *pcb, rr *dns.SRV) {
	svc := r.serviceForInstanceFQDN(p, rr.Hdr.Name)
	if svc == nil {
		return
	}

	host := strings.TrimSuffix(rr.Target, ".")
	result := compareSRV(svc, r.domain, rr.Priority, rr.Weight, rr.Port, host, r.domain)

	r.resolve(p, svc, result)
}

// checkTXT compares an incoming TXT claim against the matching probing
// (or running) service.
func (r *Responder) checkTXT(p *pcb, rr *dns.TXT) {
	svc := r.serviceForInstanceFQDN(p, rr.Hdr.Name)
	if svc == nil {
		return
	}

	var data []byte
	for _, s := range rr.Txt {
		data = append(data, byte(len(s)))
		data = append(data, s...)
	}

	r.resolve(p, svc, compareTXT(svc, data))
}

// checkAddress compares an incoming A/AAAA claim against the PCB's own
// hostname addresses, when it is also probing/running for the host.
func (r *Responder) checkAddress(p *pcb, name string, _ net.IP) {
	if !p.probingHost {
		return
	}

	hostname := r.store.Hostname()
	if !strings.EqualFold(strings.TrimSuffix(name, "."), hostname+"."+r.domain) {
		return
	}

	// An address conflict on our own hostname mangles the hostname,
	// cascading onto every service hosted there (spec §4.2 "Mangling
	// precedence").
	r.mangleHostname(p)
}

// serviceForInstanceFQDN finds the probing/running service matching the
// instance FQDN rr names, on the given PCB.
func (r *Responder) serviceForInstanceFQDN(p *pcb, fqdn string) *model.Service {
	fqdn = strings.TrimSuffix(fqdn, ".")
	for _, svc := range p.probingServices {
		if strings.EqualFold(strings.TrimSuffix(svc.InstanceDomain(r.domain), "."), fqdn) {
			return svc
		}
	}
	return nil
}

// resolve applies the outcome of a single record comparison: on loss,
// mangle and restart at the tier the conflicting InstanceName came from
// (spec §4.2 "Mangling precedence: per-service instance_name first; else
// server-wide instance; else hostname"); on win or tie, do nothing.
func (r *Responder) resolve(p *pcb, svc *model.Service, result compareResult) {
	if result != theyWin {
		return
	}

	switch svc.InstanceNameOrigin {
	case model.InstanceNameFromHostname:
		r.mangleHostname(p)
	case model.InstanceNameFromServerInstance:
		r.mangleServerInstance(p)
	default:
		p.failedProbes++
		svc.InstanceName = mangle(svc.InstanceName)
		r.beginProbe(p, []*model.Service{svc}, false)
	}
}

// mangleHostname mangles the responder's hostname, cascading the rename
// onto every service hosted there, and restarts probing on every PCB
// that was probing or running for the host (spec §4.2 "Mangling
// precedence... hostname (which cascades...)").
func (r *Responder) mangleHostname(p *pcb) {
	old := r.store.Hostname()
	next := mangle(old)
	r.store.renameHost(old, next)

	for _, pcb := range r.pcbs {
		if pcb.state == Off || pcb.state == Dup {
			continue
		}
		pcb.failedProbes++
		r.beginProbe(pcb, pcb.probingServices, pcb.probingHost)
	}
}

// mangleServerInstance mangles the server-wide instance name, cascading
// the rename onto every service that inherited it, and restarts probing
// on every PCB (spec §4.2's middle mangling tier, "else server-wide
// instance").
func (r *Responder) mangleServerInstance(p *pcb) {
	old := r.store.Instance()
	next := mangle(old)
	r.store.renameInstance(old, next)

	for _, pcb := range r.pcbs {
		if pcb.state == Off || pcb.state == Dup {
			continue
		}
		pcb.failedProbes++
		r.beginProbe(pcb, pcb.probingServices, pcb.probingHost)
	}
}
