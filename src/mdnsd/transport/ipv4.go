package transport

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"

	ipvx "golang.org/x/net/ipv4"
)

// ipv4ListenAddress is the address the transport binds to. Note that the
// multicast group address is NOT used here, in order to control more
// precisely which network interfaces join the multicast group.
var ipv4ListenAddress = &net.UDPAddr{IP: net.ParseIP("224.0.0.0"), Port: wire.Port}

// IPv4Transport is an IPv4-based UDP transport.
type IPv4Transport struct {
	Logger logging.Logger

	pc *ipvx.PacketConn
}

// Listen starts listening for UDP packets on the given interfaces.
func (t *IPv4Transport) Listen(ifaces []net.Interface) error {
	addr := ipv4ListenAddress
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		logListenError(t.Logger, addr, err)
		return err
	}

	t.pc = ipvx.NewPacketConn(conn)
	t.pc.SetControlMessage(ipvx.FlagInterface, true)

	joined, err := joinGroup(t.pc, wire.IPv4Group, ifaces, t.Logger)
	if err != nil {
		t.pc.Close()
		return err
	}

	logListening(t.Logger, addr, joined)

	return nil
}

// Read reads the next packet from the transport.
func (t *IPv4Transport) Read() (*InboundPacket, error) {
	buf := getBuffer()

	n, cm, src, err := t.pc.ReadFrom(buf)
	if err != nil {
		putBuffer(buf)
		logReadError(t.Logger, t.Group(), err)
		return nil, err
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
func (t *IPv4Transport) Write(p *OutboundPacket) error {
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
func (t *IPv4Transport) Group() *net.UDPAddr {
	return wire.IPv4Address
}

// Close closes the transport, preventing further reads and writes.
func (t *IPv4Transport) Close() error {
	return t.pc.Close()
}
