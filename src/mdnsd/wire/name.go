package wire

import "github.com/miekg/dns"

// Name is the decomposition of a DNS name into the four fields mDNS
// queries and records are built from, per spec §4.1: "Name parsing fills
// a structured four-field name {host, service, protocol, domain}".
//
// The decomposition rule, ground-truthed against the original mDNS
// responder's name parser: labels are consumed left to right into up to
// four fields. While exactly one field has been assigned so far, each
// subsequent label that does not start with an underscore and is not one
// of the domain words ("local", "arpa", "ip6", "in-addr") is appended
// (dot-joined) onto the first field instead of starting a new one - this
// is what lets a multi-label hostname precede the service/proto/domain
// labels. A label equal to "_sub" sets Sub and does not consume a field.
// Four fields become Host, Service, Protocol and Domain; three become
// Service, Protocol and Domain with Host empty; two become Host and
// Domain; one becomes Host.
type Name struct {
	Host     string
	Service  string
	Protocol string
	Domain   string
	Sub      bool

	// Valid is false if the name has more than four components (other
	// than an optional "_sub" label), or if it does not resolve to a
	// recognized domain ("local" or "arpa").
	//
	// An invalid name does not abort decoding: the rest of the record
	// stream is still parsed so the packet stays aligned (spec §4.1).
	Valid bool
}

// domainWord reports whether label is one of the words that terminate the
// "host" portion of a name rather than extending it.
func domainWord(label string) bool {
	return equalFold(label, DefaultDomain) ||
		equalFold(label, "arpa") ||
		equalFold(label, "ip6") ||
		equalFold(label, "in-addr")
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Decompose parses fqdn (a standard DNS presentation-format name, with or
// without a trailing dot) into its four-field Name.
func Decompose(fqdn string) Name {
	labels, ok := dns.SplitDomainName(fqdn)
	if !ok || labels == nil {
		return Name{Valid: true}
	}

	var (
		slots [4]string
		parts int
		n     Name
	)
	n.Valid = true

	for _, label := range labels {
		if parts == 4 {
			n.Valid = false
		}

		if parts == 1 && len(label) > 0 && label[0] != '_' && !domainWord(label) {
			slots[0] = slots[0] + "." + label
			continue
		}

		if equalFold(label, "_sub") {
			n.Sub = true
			continue
		}

		if parts < 4 {
			slots[parts] = label
		}
		parts++
	}

	switch {
	case parts >= 4:
		n.Host, n.Service, n.Protocol, n.Domain = slots[0], slots[1], slots[2], slots[3]
	case parts == 3:
		n.Host, n.Service, n.Protocol, n.Domain = "", slots[0], slots[1], slots[2]
	case parts == 2:
		n.Host, n.Domain = slots[0], slots[1]
	case parts == 1:
		n.Host = slots[0]
	}

	if parts > 0 && n.Valid {
		if !equalFold(n.Domain, DefaultDomain) && !equalFold(n.Domain, "arpa") {
			n.Valid = false
		}
	}

	return n
}

// ServiceTypeName returns the DNS name used to enumerate instances of
// service/protocol within domain: "<service>.<protocol>.<domain>.".
func ServiceTypeName(service, protocol, domain string) string {
	return dns.Fqdn(service + "." + protocol + "." + domain)
}

// InstanceName returns the fully-qualified name of a service instance.
func InstanceName(instance, service, protocol, domain string) string {
	return dns.Fqdn(EscapeLabel(instance) + "." + service + "." + protocol + "." + domain)
}

// EscapeLabel escapes the dots and backslashes in a single DNS label, as
// required when a label such as a service instance name is embedded in a
// presentation-format name (RFC 6763 §4.3).
func EscapeLabel(label string) string {
	out := make([]byte, 0, len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c == '.' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

// HostName returns the fully-qualified name of a host within domain.
func HostName(host, domain string) string {
	return dns.Fqdn(host + "." + domain)
}

// ServiceEnumerationName is the DNS name queried to enumerate all service
// types advertised within domain (RFC 6763 §9).
func ServiceEnumerationName(domain string) string {
	return dns.Fqdn("_services._dns-sd._udp." + domain)
}
