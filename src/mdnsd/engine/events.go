package engine

import (
	"context"
	"net"

	"github.com/quietwire/mdnsd/src/mdnsd/engineerr"
	"github.com/quietwire/mdnsd/src/mdnsd/query"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// EnableIPv4 implements the `ENABLE_IP4` system event: join the IPv4
// multicast group on ifaces and begin probing on each one.
func (e *Engine) EnableIPv4(ctx context.Context, ifaces []net.Interface) error {
	return e.enable(ctx, wire.IPv4, e.v4, ifaces)
}

// EnableIPv6 implements the `ENABLE_IP6` system event.
func (e *Engine) EnableIPv6(ctx context.Context, ifaces []net.Interface) error {
	return e.enable(ctx, wire.IPv6, e.v6, ifaces)
}

func (e *Engine) enable(ctx context.Context, proto wire.Protocol, t interface {
	Listen(ifaces []net.Interface) error
}, ifaces []net.Interface) error {
	if t == nil {
		return engineerr.New(engineerr.InvalidState, "%s transport is disabled", proto)
	}
	if err := t.Listen(ifaces); err != nil {
		return err
	}

	return e.syncAction(ctx, func() error {
		for _, iface := range ifaces {
			e.resp.EnablePCB(iface, proto)
			e.query.InterfaceUp(query.PCBRef{Interface: iface, Protocol: proto})
		}
		return nil
	})
}

// DisableIPv4 implements the `DISABLE_IP4` system event: tear down the
// PCB for each of ifaces on the IPv4 transport.
func (e *Engine) DisableIPv4(ctx context.Context, ifaces []net.Interface) error {
	return e.disable(ctx, wire.IPv4, ifaces)
}

// DisableIPv6 implements the `DISABLE_IP6` system event.
func (e *Engine) DisableIPv6(ctx context.Context, ifaces []net.Interface) error {
	return e.disable(ctx, wire.IPv6, ifaces)
}

func (e *Engine) disable(ctx context.Context, proto wire.Protocol, ifaces []net.Interface) error {
	return e.syncAction(ctx, func() error {
		for _, iface := range ifaces {
			e.resp.DisablePCB(iface, proto)
		}
		return nil
	})
}

// AnnounceIPv4 implements the `ANNOUNCE_IP4` system event: add ip to the
// engine's own host and, when ip was not already known, re-announce the
// host's address set on iface.
func (e *Engine) AnnounceIPv4(ctx context.Context, iface net.Interface, ip net.IP) error {
	return e.syncAction(ctx, func() error {
		e.resp.AddSelfAddress(iface, wire.IPv4, ip)
		return nil
	})
}

// AnnounceIPv6 implements the `ANNOUNCE_IP6` system event.
func (e *Engine) AnnounceIPv6(ctx context.Context, iface net.Interface, ip net.IP) error {
	return e.syncAction(ctx, func() error {
		e.resp.AddSelfAddress(iface, wire.IPv6, ip)
		return nil
	})
}

// GotAddress records a newly-assigned address for the engine's own
// hostname on iface, re-announcing if the PCB is already running (spec
// §3 "Lifecycle": "PCBs are created when an interface gains an address").
func (e *Engine) GotAddress(ctx context.Context, iface net.Interface, proto wire.Protocol, ip net.IP) error {
	return e.syncAction(ctx, func() error {
		e.resp.AddSelfAddress(iface, proto, ip)
		return nil
	})
}

// AddDelegatedHostAddress adds ip to the delegated host named hostname,
// re-announcing its address set on iface/proto if the PCB there is
// already running (spec's supplemented "delegated-host address-change
// re-announce" behavior). It reports whether the address was new.
func (e *Engine) AddDelegatedHostAddress(ctx context.Context, hostname string, iface net.Interface, proto wire.Protocol, ip net.IP) (bool, error) {
	var added bool
	err := e.syncAction(ctx, func() error {
		added = e.resp.AddDelegatedHostAddress(hostname, iface, proto, ip)
		return nil
	})
	return added, err
}

// RemoveDelegatedHostAddress removes ip from the delegated host named
// hostname, sending a single goodbye record for it on iface/proto if the
// PCB there is running. It reports whether the address was present.
func (e *Engine) RemoveDelegatedHostAddress(ctx context.Context, hostname string, iface net.Interface, proto wire.Protocol, ip net.IP) (bool, error) {
	var removed bool
	err := e.syncAction(ctx, func() error {
		removed = e.resp.RemoveDelegatedHostAddress(hostname, iface, proto, ip)
		return nil
	})
	return removed, err
}

// InterfaceUp brings the PCB for (iface, proto) up if its transport is
// enabled, equivalent to combining the relevant ENABLE_IP4/ENABLE_IP6
// event with a single interface.
func (e *Engine) InterfaceUp(ctx context.Context, iface net.Interface, proto wire.Protocol) error {
	if proto == wire.IPv4 {
		return e.EnableIPv4(ctx, []net.Interface{iface})
	}
	return e.EnableIPv6(ctx, []net.Interface{iface})
}

// InterfaceDown tears down the PCB for (iface, proto).
func (e *Engine) InterfaceDown(ctx context.Context, iface net.Interface, proto wire.Protocol) error {
	return e.disable(ctx, proto, []net.Interface{iface})
}
