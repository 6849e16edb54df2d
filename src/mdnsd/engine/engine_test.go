package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/query"
)

// runEngine starts only the scheduler's service task, leaving the
// transports untouched, so control/query tests exercise the real
// single-writer action queue without opening sockets.
func runEngine(t *testing.T, e *Engine) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = e.sched.Run(ctx) }()
	return ctx
}

func TestSetHostnameAndAddService(t *testing.T) {
	e := New(DisableIPv4(), DisableIPv6())
	ctx := runEngine(t, e)

	if err := e.SetHostname(ctx, "alpha"); err != nil {
		t.Fatalf("SetHostname: %v", err)
	}
	if got := e.Hostname(); got != "alpha" {
		t.Fatalf("Hostname() = %q, want %q", got, "alpha")
	}

	svc := &model.Service{
		ServiceType:  "_http",
		Protocol:     "_tcp",
		InstanceName: "alpha",
		Port:         8080,
	}
	if err := e.AddService(ctx, svc); err != nil {
		t.Fatalf("AddService: %v", err)
	}

	svcs := e.Services()
	if len(svcs) != 1 || svcs[0].InstanceName != "alpha" {
		t.Fatalf("Services() = %+v, want one service named alpha", svcs)
	}

	removed, err := e.RemoveService(ctx, svc.Key())
	if err != nil {
		t.Fatalf("RemoveService: %v", err)
	}
	if !removed {
		t.Fatal("expected RemoveService to report removal")
	}
	if len(e.Services()) != 0 {
		t.Fatalf("expected no services after removal, got %+v", e.Services())
	}
}

func TestQueryWithNoActivePCBsTimesOutWithoutError(t *testing.T) {
	e := New(DisableIPv4(), DisableIPv6())
	ctx := runEngine(t, e)

	results, err := e.Query(ctx, query.SearchParams{
		Service:  "_http",
		Protocol: "_tcp",
		Timeout:  50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results with no active PCBs, got %d", len(results))
	}
}

func TestBrowseNewAndDelete(t *testing.T) {
	e := New(DisableIPv4(), DisableIPv6())
	ctx := runEngine(t, e)

	notified := make(chan struct{}, 1)
	b, err := e.BrowseNew(ctx, "_http", "_tcp", func(added, changed, removed []*query.Result) {
		select {
		case notified <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("BrowseNew: %v", err)
	}
	if b == nil {
		t.Fatal("expected a non-nil browse handle")
	}

	ok, err := e.BrowseDelete(ctx, "_http", "_tcp")
	if err != nil {
		t.Fatalf("BrowseDelete: %v", err)
	}
	if !ok {
		t.Fatal("expected BrowseDelete to report it stopped a browse")
	}

	ok, err = e.BrowseDelete(ctx, "_http", "_tcp")
	if err != nil {
		t.Fatalf("BrowseDelete (second): %v", err)
	}
	if ok {
		t.Fatal("expected second BrowseDelete to report nothing was running")
	}
}

func TestEnableIPv4RejectsWhenTransportDisabled(t *testing.T) {
	e := New(DisableIPv4())
	ctx := runEngine(t, e)

	err := e.EnableIPv4(ctx, []net.Interface{{Name: "eth-test", Index: 1}})
	if err == nil {
		t.Fatal("expected an error enabling a disabled transport")
	}
}
