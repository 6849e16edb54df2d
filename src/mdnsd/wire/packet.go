package wire

import (
	"net"

	"github.com/miekg/dns"
)

// unicastResponseBit is the top bit of the qclass field in a question,
// used to request a unicast reply (RFC 6762 §18.12), and the same bit
// re-purposed as the "cache flush" bit on answer records (RFC 6762
// §10.2).
const unicastResponseBit = 1 << 15

// ParsedQuestion is a single question from a parsed inbound packet.
type ParsedQuestion struct {
	dns.Question

	// Unicast is true if the querier requested a unicast reply.
	Unicast bool

	Name Name
}

// ParsedRecord is a single resource record from a parsed inbound packet.
type ParsedRecord struct {
	RR dns.RR

	// Flush is true if the cache-flush bit was set on this record.
	Flush bool

	Name Name
}

// Section identifies which section of a DNS message a record came from.
type Section int

const (
	SectionAnswer Section = iota
	SectionAuthority
	SectionAdditional
)

// ParsedPacket is the intermediate form of an inbound mDNS message, after
// decoding (spec §3 "Parsed packet").
type ParsedPacket struct {
	Src           *net.UDPAddr
	Multicast     bool
	Authoritative bool
	Truncated     bool

	// Distributed is true if the message is a response (QR bit set)
	// rather than a query.
	Distributed bool

	ID        uint16
	Questions []ParsedQuestion
	Answer    []ParsedRecord
	Authority []ParsedRecord
	Additional []ParsedRecord
}

// AllRecords returns the answer, authority and additional records
// together, in that order; the records do not carry their section.
func (p *ParsedPacket) AllRecords() []ParsedRecord {
	all := make([]ParsedRecord, 0, len(p.Answer)+len(p.Authority)+len(p.Additional))
	all = append(all, p.Answer...)
	all = append(all, p.Authority...)
	all = append(all, p.Additional...)
	return all
}

// ParsePacket decodes the raw bytes of an mDNS message received from src.
//
// Malformed messages return an error; per spec §7 the caller is expected
// to drop them silently rather than treat this as a protocol violation.
func ParsePacket(src *net.UDPAddr, multicast bool, data []byte) (*ParsedPacket, error) {
	m := new(dns.Msg)
	if err := m.Unpack(data); err != nil && err != dns.ErrTruncated {
		return nil, err
	}

	p := &ParsedPacket{
		Src:           src,
		Multicast:     multicast,
		Authoritative: m.Authoritative,
		Truncated:     m.Truncated,
		Distributed:   m.Response,
		ID:            m.Id,
	}

	for _, q := range m.Question {
		unicast, qc := splitUnicastBit(q)
		p.Questions = append(p.Questions, ParsedQuestion{
			Question: qc,
			Unicast:  unicast,
			Name:     Decompose(q.Name),
		})
	}

	p.Answer = parseRecords(m.Answer)
	p.Authority = parseRecords(m.Ns)
	p.Additional = parseRecords(m.Extra)

	return p, nil
}

func parseRecords(rrs []dns.RR) []ParsedRecord {
	out := make([]ParsedRecord, 0, len(rrs))
	for _, rr := range rrs {
		hdr := rr.Header()
		flush := hdr.Class&unicastResponseBit != 0
		out = append(out, ParsedRecord{
			RR:    rr,
			Flush: flush,
			Name:  Decompose(hdr.Name),
		})
	}
	return out
}

// splitUnicastBit returns whether the question requested a unicast
// response, and a copy of the question with the unicast bit cleared from
// its class (spec §4.1 "cache-flush bit ... questions that want unicast
// replies set the same top bit on class").
func splitUnicastBit(q dns.Question) (bool, dns.Question) {
	unicast := q.Qclass&unicastResponseBit != 0
	q.Qclass &^= unicastResponseBit
	return unicast, q
}

// SetUnicastBit sets the "unicast response requested" bit on a question's
// class.
func SetUnicastBit(q dns.Question) dns.Question {
	q.Qclass |= unicastResponseBit
	return q
}

// SetCacheFlush sets the cache-flush bit on rr's class. It is used for
// "unique" (non-shared) RRsets such as SRV/TXT/A/AAAA, never for PTR (spec
// §4.2 "Announce").
func SetCacheFlush(rr dns.RR) dns.RR {
	rr.Header().Class |= unicastResponseBit
	return rr
}

// IsCacheFlush reports whether rr's class has the cache-flush bit set.
func IsCacheFlush(rr dns.RR) bool {
	return rr.Header().Class&unicastResponseBit != 0
}

// SetGoodbye sets rr's TTL to zero, marking it as a "goodbye" record that
// withdraws ownership (spec §4.2 "Goodbye").
func SetGoodbye(rr dns.RR) dns.RR {
	rr.Header().Ttl = 0
	return rr
}

// IsGoodbye reports whether rr's TTL is zero.
func IsGoodbye(rr dns.RR) bool {
	return rr.Header().Ttl == 0
}
