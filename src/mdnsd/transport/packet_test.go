package transport

import (
	"net"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

func TestNewOutboundPacketPacksMessage(t *testing.T) {
	m := &dns.Msg{}
	m.Answer = []dns.RR{&dns.PTR{
		Hdr: dns.RR_Header{Name: "_http._tcp.local.", Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 120},
		Ptr: "alpha._http._tcp.local.",
	}}

	dest := Endpoint{InterfaceIndex: 1, Address: &net.UDPAddr{IP: net.ParseIP("224.0.0.251"), Port: wire.Port}}
	out, err := NewOutboundPacket(dest, m)
	if err != nil {
		t.Fatalf("NewOutboundPacket failed: %s", err)
	}
	defer out.Close()

	if len(out.Data) == 0 {
		t.Fatal("expected packed data")
	}
}

// TestNewOutboundPacketRefusesOversizedMessage guards the real send path
// (transport.Manager.Send -> NewOutboundPacket) against ever emitting a
// packet over wire.MaxMessageSize, the check wire.Builder.Pack performs
// in isolation but that every call site bypasses by stashing a raw
// *dns.Msg straight into a scheduler.TXPacket.
func TestNewOutboundPacketRefusesOversizedMessage(t *testing.T) {
	m := &dns.Msg{}
	for i := 0; i < 40; i++ {
		m.Answer = append(m.Answer, &dns.TXT{
			Hdr: dns.RR_Header{Name: "alpha._http._tcp.local.", Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 120},
			Txt: []string{strings.Repeat("x", 63)},
		})
	}

	dest := Endpoint{InterfaceIndex: 1, Address: &net.UDPAddr{IP: net.ParseIP("224.0.0.251"), Port: wire.Port}}
	_, err := NewOutboundPacket(dest, m)
	if err != wire.ErrMessageTooLarge {
		t.Fatalf("expected wire.ErrMessageTooLarge, got %v", err)
	}
}
