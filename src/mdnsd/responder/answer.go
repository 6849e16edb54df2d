package responder

import (
	"strings"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// defaultTTL is the TTL, in seconds, of the A/AAAA address records the
// responder emits; service records carry their own Service.TTLSeconds().
const defaultTTL = 120

// sections holds the answer/authority/additional records produced for a
// single question, split by whether the underlying RRset is "unique"
// (cache-flush bit set) or "shared" (PTR; no flush bit), mirroring the
// teacher's ResponseSections/Answer split.
type sections struct {
	UniqueAnswer     []dns.RR
	UniqueAdditional []dns.RR
	SharedAnswer     []dns.RR
	SharedAdditional []dns.RR
}

func (s *sections) IsEmpty() bool {
	return len(s.UniqueAnswer) == 0 &&
		len(s.UniqueAdditional) == 0 &&
		len(s.SharedAnswer) == 0 &&
		len(s.SharedAdditional) == 0
}

// answerer generates answers to parsed questions from the responder's
// service/host store (spec §4.2 "Answer generation").
type answerer struct {
	store  *store
	domain string
}

// answer populates sections for q, consulting knownAnswers for PTR
// suppression (spec §4.2 "Known-answer suppression").
func (a *answerer) answer(q wire.ParsedQuestion, pcbs []*pcb, knownAnswers []wire.ParsedRecord) sections {
	var out sections

	switch q.Qtype {
	case dns.TypePTR:
		if q.Name.Host == "_services" && strings.EqualFold(q.Name.Service, "_dns-sd") {
			a.answerServiceEnumeration(&out)
			return out
		}
		a.answerServicePTR(q, pcbs, knownAnswers, &out)

	case dns.TypeSRV:
		a.answerInstance(q, pcbs, dns.TypeSRV, &out)

	case dns.TypeTXT:
		a.answerInstance(q, pcbs, dns.TypeTXT, &out)

	case dns.TypeA, dns.TypeAAAA:
		a.answerHost(q, &out)

	case dns.TypeANY:
		a.answerServicePTR(q, pcbs, knownAnswers, &out)
		a.answerInstance(q, pcbs, dns.TypeANY, &out)
		a.answerHost(q, &out)
	}

	return out
}

// answerServiceEnumeration answers _services._dns-sd._udp.<domain>,
// listing every distinct service type the responder advertises.
func (a *answerer) answerServiceEnumeration(out *sections) {
	seen := map[string]bool{}
	for _, svc := range a.store.Services() {
		key := strings.ToLower(svc.ServiceType + "." + svc.Protocol)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.SharedAnswer = append(out.SharedAnswer, model.ServiceEnumerationPTR(svc, a.domain))
	}
}

// answerServicePTR answers a PTR query for service._proto.<domain>,
// including subtype PTR queries.
func (a *answerer) answerServicePTR(q wire.ParsedQuestion, pcbs []*pcb, knownAnswers []wire.ParsedRecord, out *sections) {
	for _, svc := range a.store.Services() {
		if !strings.EqualFold(svc.ServiceType, q.Name.Service) ||
			!strings.EqualFold(svc.Protocol, q.Name.Protocol) {
			continue
		}
		if q.Name.Sub && !svc.HasSubtype(q.Name.Host) {
			continue
		}
		if isProbing(pcbs, svc) {
			continue
		}

		var ptr dns.RR
		if q.Name.Sub {
			ptr = svc.SubtypePTR(q.Name.Host, a.domain)
		} else {
			ptr = svc.PTR(a.domain)
		}

		if knownAnswerSuppressesPTR(knownAnswers, ptr) {
			continue
		}

		out.SharedAnswer = append(out.SharedAnswer, ptr)
		out.UniqueAdditional = append(out.UniqueAdditional, svc.SRV(a.domain), svc.TXT(a.domain))
		out.UniqueAdditional = append(out.UniqueAdditional, a.addressRecords(svc.Hostname)...)
	}
}

// answerInstance answers an SRV/TXT/ANY query against a service
// instance's FQDN.
func (a *answerer) answerInstance(q wire.ParsedQuestion, pcbs []*pcb, qtype uint16, out *sections) {
	for _, svc := range a.store.Services() {
		if !strings.EqualFold(svc.InstanceName, q.Name.Host) ||
			!strings.EqualFold(svc.ServiceType, q.Name.Service) ||
			!strings.EqualFold(svc.Protocol, q.Name.Protocol) {
			continue
		}
		if isProbing(pcbs, svc) {
			continue
		}

		hasSRV := false
		switch qtype {
		case dns.TypeANY:
			hasSRV = true
			out.UniqueAnswer = append(out.UniqueAnswer, svc.SRV(a.domain), svc.TXT(a.domain))
		case dns.TypeSRV:
			hasSRV = true
			out.UniqueAnswer = append(out.UniqueAnswer, svc.SRV(a.domain))
		case dns.TypeTXT:
			out.UniqueAnswer = append(out.UniqueAnswer, svc.TXT(a.domain))
		}

		if hasSRV {
			out.UniqueAdditional = append(out.UniqueAdditional, a.addressRecords(svc.Hostname)...)
		}
	}
}

// answerHost answers an A/AAAA/ANY query against a hostname, whether it
// is the self host or a delegated one.
func (a *answerer) answerHost(q wire.ParsedQuestion, out *sections) {
	host, ok := a.store.findHost(q.Name.Host)
	if !ok {
		return
	}

	recs := host.AddressRecords(a.domain, defaultTTL)
	out.UniqueAnswer = append(out.UniqueAnswer, recs...)
}

// addressRecords returns the A/AAAA records for hostname, used as
// additional-section records accompanying an SRV answer.
func (a *answerer) addressRecords(hostname string) []dns.RR {
	host, ok := a.store.findHost(hostname)
	if !ok {
		return nil
	}
	return host.AddressRecords(a.domain, defaultTTL)
}

// isProbing reports whether svc is currently claimed by a probe in
// flight on any PCB (spec invariant: "While a PCB is in any PROBE state,
// no non-probe traffic for that PCB's services is emitted").
func isProbing(pcbs []*pcb, svc *model.Service) bool {
	for _, p := range pcbs {
		if !p.state.Probing() {
			continue
		}
		for _, s := range p.probingServices {
			if s == svc {
				return true
			}
		}
	}
	return false
}

// knownAnswerSuppressesPTR implements spec §4.2's known-answer
// suppression, applied only to PTR per the Open Questions note in §9:
// a reply is suppressed if the querier's packet already lists this exact
// PTR with a TTL greater than half of the record's full TTL.
func knownAnswerSuppressesPTR(known []wire.ParsedRecord, ptr dns.RR) bool {
	p, ok := ptr.(*dns.PTR)
	if !ok {
		return false
	}

	half := p.Hdr.Ttl / 2

	for _, k := range known {
		kp, ok := k.RR.(*dns.PTR)
		if !ok {
			continue
		}
		if !strings.EqualFold(kp.Hdr.Name, p.Hdr.Name) {
			continue
		}
		if !strings.EqualFold(kp.Ptr, p.Ptr) {
			continue
		}
		if kp.Hdr.Ttl > half {
			return true
		}
	}

	return false
}
