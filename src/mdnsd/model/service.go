// Package model holds the mDNS responder's data model: service instances,
// delegated hosts, TXT records and the DNS resource records derived from
// them. See spec §3 ("DATA MODEL").
package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is the TTL applied to a service's records when none is set
// explicitly.
const DefaultTTL = 120 * time.Second

// HostTTL is the TTL applied to A/AAAA records for a host's own addresses.
// RFC 6762 recommends a short TTL for address records that may change as
// interfaces come up and down.
const HostTTL = 120 * time.Second

// InstanceKey is the tuple that must be unique across all local service
// instances (spec §3 invariant 1: "At most one service instance with the
// same {instance_name, service_type, protocol, hostname} tuple exists at
// any time").
type InstanceKey struct {
	InstanceName string
	ServiceType  string
	Protocol     string
	Hostname     string
}

// InstanceNameOrigin records which tier of spec §4.2's mangling
// precedence ("per-service instance_name first; else server-wide
// instance; else hostname") produced a service's current InstanceName,
// so a name conflict can be resolved - and mangled - at the right tier.
type InstanceNameOrigin int

const (
	// InstanceNameExplicit means the caller set InstanceName directly;
	// a conflict mangles only this service.
	InstanceNameExplicit InstanceNameOrigin = iota

	// InstanceNameFromServerInstance means InstanceName was inherited
	// from the server-wide instance name; a conflict mangles that
	// server-wide instance, cascading to every service that inherited it.
	InstanceNameFromServerInstance

	// InstanceNameFromHostname means InstanceName was inherited from
	// the hostname (no server-wide instance was set); a conflict
	// mangles the hostname itself, per spec's cascade.
	InstanceNameFromHostname
)

// Service is a local service instance advertisement.
//
// ServiceType and Protocol are always present and conventionally begin
// with an underscore (e.g. "_http", "_tcp"). InstanceName defaults to the
// server's instance name (which itself defaults to the hostname); Hostname
// defaults to the server's own hostname.
type Service struct {
	ServiceType        string
	Protocol           string
	InstanceName       string
	InstanceNameOrigin InstanceNameOrigin
	Hostname           string
	Port               uint16
	Priority           uint16
	Weight             uint16
	Text               TXTPairs
	Subtypes           []string
	TTL                time.Duration
}

// Key returns the tuple that identifies this instance for uniqueness
// purposes.
func (s *Service) Key() InstanceKey {
	return InstanceKey{
		InstanceName: strings.ToLower(s.InstanceName),
		ServiceType:  strings.ToLower(s.ServiceType),
		Protocol:     strings.ToLower(s.Protocol),
		Hostname:     strings.ToLower(s.Hostname),
	}
}

// TTLOrDefault returns s.TTL, or DefaultTTL if it is zero.
func (s *Service) TTLOrDefault() time.Duration {
	if s.TTL == 0 {
		return DefaultTTL
	}
	return s.TTL
}

// TTLSeconds returns the service's TTL, in seconds, as used in DNS record
// headers.
func (s *Service) TTLSeconds() uint32 {
	return uint32(s.TTLOrDefault().Seconds())
}

// ServiceTypeDomain returns the DNS name "_service._proto.local." under
// which this service's instances are enumerated.
func (s *Service) ServiceTypeDomain(domain string) string {
	return fmt.Sprintf("%s.%s.%s.", s.ServiceType, s.Protocol, domain)
}

// SubtypeDomain returns the DNS name used to enumerate instances of this
// service that advertise the given subtype:
// "<subtype>._sub.<service>.<proto>.<domain>.".
func (s *Service) SubtypeDomain(subtype, domain string) string {
	return fmt.Sprintf("%s._sub.%s", subtype, s.ServiceTypeDomain(domain))
}

// InstanceDomain returns the fully-qualified name of this instance:
// "<instance>.<service>.<proto>.<domain>.".
func (s *Service) InstanceDomain(domain string) string {
	return fmt.Sprintf("%s.%s", escapeLabel(s.InstanceName), s.ServiceTypeDomain(domain))
}

// HasSubtype returns true if s advertises the given subtype.
func (s *Service) HasSubtype(subtype string) bool {
	for _, st := range s.Subtypes {
		if strings.EqualFold(st, subtype) {
			return true
		}
	}
	return false
}

// escapeLabel escapes characters in a DNS-SD instance name that are
// special to the DNS presentation format (RFC 6763 §4.3).
func escapeLabel(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '.', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
