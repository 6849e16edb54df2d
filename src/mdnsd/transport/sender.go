package transport

import (
	"context"
	"fmt"

	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// Manager owns the IPv4 and IPv6 transports and dispatches TX packets
// produced by the scheduler to whichever one matches the packet's
// protocol. It implements scheduler.Sender (spec §4.4 "TX dispatch").
type Manager struct {
	V4 Transport
	V6 Transport
}

// transportFor returns the transport for the given protocol, or nil if
// that protocol isn't enabled.
func (m *Manager) transportFor(p wire.Protocol) Transport {
	if p == wire.IPv6 {
		return m.V6
	}
	return m.V4
}

// Send implements scheduler.Sender by packing pkt.Msg and writing it via
// the transport matching pkt.Protocol.
func (m *Manager) Send(_ context.Context, pkt *scheduler.TXPacket) error {
	t := m.transportFor(pkt.Protocol)
	if t == nil {
		return fmt.Errorf("transport: no %s transport configured", pkt.Protocol)
	}

	dest := pkt.Destination
	if dest == nil {
		dest = t.Group()
	}

	out, err := NewOutboundPacket(
		Endpoint{
			InterfaceIndex: pkt.Interface.Index,
			Address:        dest,
		},
		pkt.Msg,
	)
	if err != nil {
		return err
	}
	defer out.Close()

	return t.Write(out)
}
