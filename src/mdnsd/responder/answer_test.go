package responder

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

func newTestAnswerer() (*answerer, *model.Service) {
	st := newStore()
	st.setHostname("host1")
	svc := &model.Service{
		ServiceType:  "_http",
		Protocol:     "_tcp",
		InstanceName: "alpha",
		Hostname:     "host1",
		Port:         80,
	}
	st.addService(svc)
	st.addSelfAddress(net.ParseIP("192.0.2.1"))

	return &answerer{store: st, domain: "local"}, svc
}

func TestAnswerServicePTRIncludesAdditional(t *testing.T) {
	a, _ := newTestAnswerer()

	q := wire.ParsedQuestion{
		Question: dns.Question{Name: "_http._tcp.local.", Qtype: dns.TypePTR, Qclass: dns.ClassINET},
		Name:     wire.Decompose("_http._tcp.local."),
	}

	secs := a.answer(q, nil, nil)

	if len(secs.SharedAnswer) != 1 {
		t.Fatalf("expected 1 shared PTR answer, got %d", len(secs.SharedAnswer))
	}
	if len(secs.UniqueAdditional) < 2 {
		t.Fatalf("expected SRV+TXT (+address) additional records, got %d", len(secs.UniqueAdditional))
	}
}

func TestKnownAnswerSuppressesRepeatedPTR(t *testing.T) {
	a, svc := newTestAnswerer()

	ptr := svc.PTR(a.domain)
	known := []wire.ParsedRecord{{RR: &dns.PTR{
		Hdr: ptr.Hdr,
		Ptr: ptr.Ptr,
	}}}
	known[0].RR.(*dns.PTR).Hdr.Ttl = ptr.Hdr.Ttl // full TTL, well above half

	q := wire.ParsedQuestion{
		Question: dns.Question{Name: "_http._tcp.local.", Qtype: dns.TypePTR, Qclass: dns.ClassINET},
		Name:     wire.Decompose("_http._tcp.local."),
	}

	secs := a.answer(q, nil, known)

	if len(secs.SharedAnswer) != 0 {
		t.Errorf("expected known-answer suppression to drop the PTR reply, got %d", len(secs.SharedAnswer))
	}
}

func TestAnswerInstanceSRV(t *testing.T) {
	a, _ := newTestAnswerer()

	q := wire.ParsedQuestion{
		Question: dns.Question{Name: "alpha._http._tcp.local.", Qtype: dns.TypeSRV, Qclass: dns.ClassINET},
		Name:     wire.Decompose("alpha._http._tcp.local."),
	}

	secs := a.answer(q, nil, nil)

	if len(secs.UniqueAnswer) != 1 {
		t.Fatalf("expected 1 SRV answer, got %d", len(secs.UniqueAnswer))
	}
	if _, ok := secs.UniqueAnswer[0].(*dns.SRV); !ok {
		t.Errorf("expected an SRV record")
	}
}
