package transport

import (
	"fmt"
	"net"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"

	ipvx "golang.org/x/net/ipv6"
)

func errEmptyControlMessage(src net.Addr) error {
	return fmt.Errorf("empty control message from %s", src)
}

// ipv6ListenAddress is the address the transport binds to. Note that the
// multicast group address is NOT used here, in order to control more
// precisely which network interfaces join the multicast group.
var ipv6ListenAddress = &net.UDPAddr{IP: net.ParseIP("ff02::"), Port: wire.Port}

// IPv6Transport is an IPv6-based UDP transport.
type IPv6Transport struct {
	Logger logging.Logger

	pc *ipvx.PacketConn
}

// Listen starts listening for UDP packets on the given interfaces.
func (t *IPv6Transport) Listen(ifaces []net.Interface) error {
	addr := ipv6ListenAddress
	conn, err := net.ListenUDP("udp6", addr)
	if err != nil {
		logListenError(t.Logger, addr, err)
		return err
	}

	t.pc = ipvx.NewPacketConn(conn)

	if err := t.pc.SetControlMessage(ipvx.FlagInterface, true); err != nil {
		t.pc.Close()
		logListenError(t.Logger, addr, err)
		return err
	}

	joined, err := joinGroup(t.pc, wire.IPv6Group, ifaces, t.Logger)
	if err != nil {
		t.pc.Close()
		return err
	}

	logListening(t.Logger, addr, joined)

	return nil
}

// Read reads the next packet from the transport.
func (t *IPv6Transport) Read() (*InboundPacket, error) {
	buf := getBuffer()

	n, cm, src, err := t.pc.ReadFrom(buf)
	if err != nil {
		putBuffer(buf)
		logReadError(t.Logger, t.Group(), err)
		return nil, err
	}

	if cm == nil {
		putBuffer(buf)
		logReadError(t.Logger, t.Group(), errEmptyControlMessage(src))
		return nil, errEmptyControlMessage(src)
	}

	buf = buf[:n]

	return &InboundPacket{
		t,
		Endpoint{
			cm.IfIndex,
			src.(*net.UDPAddr),
		},
		buf,
	}, nil
}

// Write sends a packet via the transport.
func (t *IPv6Transport) Write(p *OutboundPacket) error {
	if _, err := t.pc.WriteTo(
		p.Data,
		&ipvx.ControlMessage{
			IfIndex: p.Destination.InterfaceIndex,
		},
		p.Destination.Address,
	); err != nil {
		logWriteError(t.Logger, p.Destination.Address, t.Group(), err)
		return err
	}

	return nil
}

// Group returns the multicast group address for this transport.
func (t *IPv6Transport) Group() *net.UDPAddr {
	return wire.IPv6Address
}

// Close closes the transport, preventing further reads and writes.
func (t *IPv6Transport) Close() error {
	return t.pc.Close()
}
