package responder

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

func waitRunning(t *testing.T, p *pcb) {
	t.Helper()
	deadline := time.Now().Add(6 * time.Second)
	for p.state != Running && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.state != Running {
		t.Fatalf("expected PCB to reach RUNNING, got %s", p.state)
	}
}

// waitSent waits until sender has seen at least n packets; the scheduler
// hands scheduled packets to the sender on its next tick, not at once.
func waitSent(sender *capturingSender, n int) []*scheduler.TXPacket {
	deadline := time.Now().Add(2 * time.Second)
	for len(sender.snapshot()) < n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return sender.snapshot()
}

func TestAddDelegatedHostAddressReannouncesWhenRunning(t *testing.T) {
	sender := &capturingSender{}
	sched := scheduler.New(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	r := New(sched)
	r.SetHostname("alpha")
	r.AddDelegatedHost(&model.DelegatedHost{Hostname: "printer"})

	iface := net.Interface{Name: "eth-delegated", Index: 10}
	r.EnablePCB(iface, wire.IPv4)
	p := r.pcbs[pcbKey{iface.Name, wire.IPv4}]
	waitRunning(t, p)

	before := len(sender.snapshot())

	ip := net.ParseIP("192.0.2.50").To4()
	if !r.AddDelegatedHostAddress("printer", iface, wire.IPv4, ip) {
		t.Fatal("expected the address to be reported as new")
	}

	sent := waitSent(sender, before+1)
	if len(sent) != before+1 {
		t.Fatalf("expected exactly one re-announce packet, got %d new packets", len(sent)-before)
	}

	found := false
	for _, rr := range sent[len(sent)-1].Msg.Answer {
		if a, ok := rr.(*dns.A); ok && a.A.Equal(ip) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the re-announce to carry the new address")
	}

	if r.AddDelegatedHostAddress("printer", iface, wire.IPv4, ip) {
		t.Error("expected re-adding the same address to report false")
	}
}

func TestRemoveDelegatedHostAddressSendsGoodbye(t *testing.T) {
	sender := &capturingSender{}
	sched := scheduler.New(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	r := New(sched)
	r.SetHostname("alpha")
	ip := net.ParseIP("192.0.2.60").To4()
	r.AddDelegatedHost(&model.DelegatedHost{Hostname: "printer", Addresses: []net.IP{ip}})

	iface := net.Interface{Name: "eth-delegated-rm", Index: 11}
	r.EnablePCB(iface, wire.IPv4)
	p := r.pcbs[pcbKey{iface.Name, wire.IPv4}]
	waitRunning(t, p)

	before := len(sender.snapshot())

	if !r.RemoveDelegatedHostAddress("printer", iface, wire.IPv4, ip) {
		t.Fatal("expected the address to be reported as removed")
	}

	sent := waitSent(sender, before+1)
	if len(sent) != before+1 {
		t.Fatalf("expected exactly one goodbye packet, got %d new packets", len(sent)-before)
	}

	last := sent[len(sent)-1]
	if len(last.Msg.Answer) != 1 {
		t.Fatalf("expected a single goodbye record, got %d", len(last.Msg.Answer))
	}
	if rr, ok := last.Msg.Answer[0].(*dns.A); !ok || rr.Hdr.Ttl != 0 || !rr.A.Equal(ip) {
		t.Errorf("expected a TTL-0 A record for the removed address, got %+v", last.Msg.Answer[0])
	}
}
