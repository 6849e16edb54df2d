package query

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

type fakeSender struct {
	mu  sync.Mutex
	pkt []*scheduler.TXPacket
}

func (s *fakeSender) Send(_ context.Context, pkt *scheduler.TXPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkt = append(s.pkt, pkt)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pkt)
}

type fakePCBs struct {
	refs []PCBRef
}

func (p *fakePCBs) ActivePCBs() []PCBRef { return p.refs }

func TestSearchSendsQuestionAndFinalizesOnTimeout(t *testing.T) {
	sender := &fakeSender{}
	sched := scheduler.New(sender)
	pcbs := &fakePCBs{refs: []PCBRef{{Interface: net.Interface{Name: "eth0", Index: 1}, Protocol: wire.IPv4}}}
	mgr := New(sched, pcbs, "local")
	sched.AddTicker(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	var s *Search
	register := scheduler.NewSyncAction(scheduler.ActionFunc(func(ctx context.Context) error {
		s = mgr.Search(SearchParams{Service: "_http", Protocol: "_tcp", Timeout: 200 * time.Millisecond})
		return nil
	}))
	if err := sched.EnqueueWait(ctx, register); err != nil {
		t.Fatalf("failed to register search: %v", err)
	}
	if err := register.Wait(ctx); err != nil {
		t.Fatalf("search registration action failed: %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("search did not finalize within 2s")
	}

	if s.State() != Off {
		t.Errorf("expected search to be OFF after finalize, got %s", s.State())
	}
	if sender.count() == 0 {
		t.Errorf("expected at least one question to have been sent")
	}
}

func TestHandleResponseMergesIntoSearch(t *testing.T) {
	sender := &fakeSender{}
	sched := scheduler.New(sender)
	pcbs := &fakePCBs{}
	mgr := New(sched, pcbs, "local")

	s := mgr.Search(SearchParams{Service: "_http", Protocol: "_tcp", Timeout: time.Second})

	mgr.HandleResponse("eth0", wire.IPv4, packetOf(
		ptrAnswer("alpha", "_http", "_tcp", "local", 120),
		srvAnswer("alpha", "_http", "_tcp", "local", "host1.local", 80, 120),
	))

	results := s.Results()
	if len(results) != 1 {
		t.Fatalf("expected 1 merged result, got %d", len(results))
	}
	if results[0].Hostname != "host1.local" || results[0].Port != 80 {
		t.Errorf("expected hostname/port to be merged, got %q:%d", results[0].Hostname, results[0].Port)
	}
}

func TestBrowseNotifierFiresOnNewAndGoodbye(t *testing.T) {
	sender := &fakeSender{}
	sched := scheduler.New(sender)
	pcbs := &fakePCBs{refs: []PCBRef{{Interface: net.Interface{Name: "eth0", Index: 1}, Protocol: wire.IPv4}}}
	mgr := New(sched, pcbs, "local")

	var mu sync.Mutex
	var added, removed int
	notifier := func(a, c, r []*Result) {
		mu.Lock()
		defer mu.Unlock()
		added += len(a)
		removed += len(r)
	}

	mgr.BrowseNew("_http", "_tcp", notifier)

	mgr.HandleResponse("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)))
	mgr.HandleResponse("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 0)))

	mu.Lock()
	defer mu.Unlock()
	if added != 1 {
		t.Errorf("expected 1 added notification, got %d", added)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed notification after goodbye, got %d", removed)
	}

	if _, ok := mgr.browses[browseKey{"_http", "_tcp"}]; !ok {
		t.Fatal("expected browse to remain registered")
	}
	if len(mgr.browses[browseKey{"_http", "_tcp"}].results.order) != 0 {
		t.Errorf("expected the dead result to be unlinked from the browse")
	}
}
