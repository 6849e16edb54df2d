// Package wire is the mDNS wire codec: parsing inbound packets into a
// typed record stream and serializing outbound packets with name
// compression, built on top of github.com/miekg/dns. See spec §4.1.
package wire

import "net"

// Port is the mDNS port number, per spec §6.
const Port = 5353

// MaxMessageSize is the maximum size, in bytes, of an mDNS message. The
// codec refuses to produce a message larger than this (spec §4.1 "Encoding
// contract").
const MaxMessageSize = 1460

var (
	// IPv4Group is the multicast group address used for mDNS over IPv4.
	IPv4Group = net.ParseIP("224.0.0.251")

	// IPv4Address is the destination address for mDNS traffic over IPv4.
	IPv4Address = &net.UDPAddr{IP: IPv4Group, Port: Port}

	// IPv6Group is the multicast group address used for mDNS over IPv6.
	IPv6Group = net.ParseIP("ff02::fb")

	// IPv6Address is the destination address for mDNS traffic over IPv6.
	IPv6Address = &net.UDPAddr{IP: IPv6Group, Port: Port}
)

// DefaultDomain is the domain under which mDNS names are resolved.
const DefaultDomain = "local"

// Protocol identifies an IP protocol version. PCBs, transports and TX
// packets are all scoped to a single (interface, Protocol) pair, per spec
// §3 "Interface PCB".
type Protocol int

const (
	IPv4 Protocol = iota
	IPv6
)

func (p Protocol) String() string {
	if p == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// Group returns the multicast destination address for this protocol.
func (p Protocol) Group() *net.UDPAddr {
	if p == IPv6 {
		return IPv6Address
	}
	return IPv4Address
}
