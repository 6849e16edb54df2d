package transport

import (
	"github.com/miekg/dns"

	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// InboundPacket is a UDP packet received from a transport.
type InboundPacket struct {
	Transport Transport
	Source    Endpoint
	Data      []byte
}

// Message returns the DNS message contained in a packet.
func (p *InboundPacket) Message() (*dns.Msg, error) {
	m := &dns.Msg{}
	return m, m.Unpack(p.Data)
}

// Close returns the packet's data buffer to the pool.
func (p *InboundPacket) Close() {
	putBuffer(p.Data)
	p.Data = nil
}

// OutboundPacket is a UDP packet to be sent by a transport.
type OutboundPacket struct {
	Destination Endpoint
	Data        []byte
}

// Close returns the packet's data buffer to the pool.
func (p *OutboundPacket) Close() {
	putBuffer(p.Data)
	p.Data = nil
}

// NewOutboundPacket marshals the message m into p.Data, refusing to send
// anything over wire.MaxMessageSize rather than emit a packet a peer
// would have to reassemble or drop (spec §4.1 "Encoding contract"). This
// is the one send path every message-construction call site funnels
// through, so the bound applies regardless of whether the caller built m
// with a wire.Builder.
func NewOutboundPacket(dest Endpoint, m *dns.Msg) (*OutboundPacket, error) {
	buf := getBuffer()

	d, err := m.PackBuffer(buf)
	if err != nil {
		putBuffer(buf)
		return nil, err
	}

	if len(d) > wire.MaxMessageSize {
		putBuffer(buf)
		return nil, wire.ErrMessageTooLarge
	}

	return &OutboundPacket{dest, d}, nil
}
