package responder

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

type capturingSender struct {
	mu  sync.Mutex
	pkt []*scheduler.TXPacket
}

func (s *capturingSender) Send(_ context.Context, pkt *scheduler.TXPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkt = append(s.pkt, pkt)
	return nil
}

func (s *capturingSender) snapshot() []*scheduler.TXPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*scheduler.TXPacket, len(s.pkt))
	copy(out, s.pkt)
	return out
}

func TestEnablePCBProbesThenRuns(t *testing.T) {
	sender := &capturingSender{}
	sched := scheduler.New(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	r := New(sched)
	r.SetHostname("alpha")
	r.AddService(&model.Service{
		ServiceType:  "_http",
		Protocol:     "_tcp",
		InstanceName: "alpha",
		Port:         80,
	})

	iface := net.Interface{Name: "eth-test", Index: 1}
	r.EnablePCB(iface, wire.IPv4)

	p := r.pcbs[pcbKey{iface.Name, wire.IPv4}]
	if p == nil {
		t.Fatal("expected a PCB to be created")
	}

	deadline := time.Now().Add(6 * time.Second)
	for p.state != Running && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if p.state != Running {
		t.Fatalf("expected PCB to reach RUNNING, got %s", p.state)
	}

	sent := sender.snapshot()
	if len(sent) < 6 {
		// 3 probes + 3 announces
		t.Errorf("expected at least 6 packets sent through the full sequence, got %d", len(sent))
	}

	for _, pkt := range sent[:3] {
		for _, q := range pkt.Msg.Question {
			if q.Qtype != dns.TypeANY {
				t.Errorf("expected probe questions to be ANY-type, got %v", q.Qtype)
			}
		}
	}
}

func TestProbingServiceIsNeverAnsweredDuringProbe(t *testing.T) {
	sender := &capturingSender{}
	sched := scheduler.New(sender, scheduler.UseQueueSize(64))

	r := New(sched)
	r.SetHostname("alpha")
	svc := &model.Service{ServiceType: "_http", Protocol: "_tcp", InstanceName: "alpha", Port: 80}
	r.AddService(svc)

	iface := net.Interface{Name: "eth-test2", Index: 2}
	r.EnablePCB(iface, wire.IPv4)

	p := r.pcbs[pcbKey{iface.Name, wire.IPv4}]
	if !p.state.Probing() {
		t.Fatalf("expected PCB to be in a probing state immediately after EnablePCB, got %s", p.state)
	}

	if !isProbing(r.allPCBs(), svc) {
		t.Errorf("expected isProbing to report true for a service claimed by a probing PCB")
	}

	a := &answerer{store: r.store, domain: r.domain}
	q := wire.ParsedQuestion{
		Question: dns.Question{Name: "_http._tcp.local.", Qtype: dns.TypePTR, Qclass: dns.ClassINET},
		Name:     wire.Decompose("_http._tcp.local."),
	}
	if secs := a.answer(q, r.allPCBs(), nil); !secs.IsEmpty() {
		t.Errorf("expected no answers for a service that is still probing, got %+v", secs)
	}
}
