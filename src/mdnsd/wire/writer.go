package wire

import (
	"errors"

	"github.com/miekg/dns"
)

// ErrMessageTooLarge is returned by Pack when the message would exceed
// MaxMessageSize. The caller must start a fresh packet (spec §4.1
// "Encoding contract").
var ErrMessageTooLarge = errors.New("wire: message exceeds maximum mDNS packet size")

// Builder assembles an outbound mDNS message one record at a time. The
// Add methods accept every record; Pack refuses to serialize a message
// over MaxMessageSize.
//
// Name compression itself is left to (*dns.Msg).Pack, which scans the
// message built so far for a matching label sequence exactly as spec
// §4.1 describes; Builder's only job is the size bound and the
// query/response framing rules of RFC 6762 §18.
type Builder struct {
	msg *dns.Msg
}

// NewQuery returns a builder for a new mDNS query message.
//
// Per RFC 6762 §18.1, the ID is zero on multicast queries; legacy
// (unicast, non-mDNS-aware) queriers need a non-zero ID to match their
// request to our response, so legacy is true for those.
func NewQuery(legacy bool) *Builder {
	m := new(dns.Msg)
	if legacy {
		m.Id = dns.Id()
	}
	m.Opcode = dns.OpcodeQuery
	m.Compress = true
	return &Builder{msg: m}
}

// NewResponse returns a builder for a new mDNS response message, replying
// to the query with the given ID (used verbatim only for legacy/unicast
// responses; multicast responses always use ID zero per RFC 6762 §18.1).
func NewResponse(id uint16, legacy bool) *Builder {
	m := new(dns.Msg)
	m.Response = true
	m.Authoritative = true
	m.Opcode = dns.OpcodeQuery
	m.Compress = true
	if legacy {
		m.Id = id
	}
	return &Builder{msg: m}
}

// AddQuestion appends a question to the message.
func (b *Builder) AddQuestion(q dns.Question) {
	b.msg.Question = append(b.msg.Question, q)
}

// AddAnswer appends a record to the answer section.
func (b *Builder) AddAnswer(rr dns.RR) {
	b.msg.Answer = append(b.msg.Answer, rr)
}

// AddAuthority appends a record to the authority section.
func (b *Builder) AddAuthority(rr dns.RR) {
	b.msg.Ns = append(b.msg.Ns, rr)
}

// AddAdditional appends a record to the additional section.
func (b *Builder) AddAdditional(rr dns.RR) {
	b.msg.Extra = append(b.msg.Extra, rr)
}

// IsEmpty reports whether the message has no questions and no records.
func (b *Builder) IsEmpty() bool {
	return len(b.msg.Question) == 0 &&
		len(b.msg.Answer) == 0 &&
		len(b.msg.Ns) == 0 &&
		len(b.msg.Extra) == 0
}

// Msg returns the underlying *dns.Msg, for callers that need direct
// access (e.g. the scheduler, to stash a built message in a TX packet).
func (b *Builder) Msg() *dns.Msg {
	return b.msg
}

// Pack serializes the message, applying name compression, and returns
// ErrMessageTooLarge instead of a truncated packet if it would exceed
// MaxMessageSize.
func (b *Builder) Pack() ([]byte, error) {
	buf, err := b.msg.Pack()
	if err != nil {
		return nil, err
	}

	if len(buf) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	return buf, nil
}
