package model

import (
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// Records builds the DNS resource records that advertise a service
// instance, adapted from the teacher's dnssd.Instance PTR/SRV/TXT/A/AAAA
// builders (spec §3 "Service instance", §4.2 "Announce").

// PTR returns the instance's PTR record, answering "<service>.<proto>.
// <domain>." with a pointer to the fully-qualified instance name.
func (s *Service) PTR(domain string) *dns.PTR {
	return &dns.PTR{
		Hdr: dns.RR_Header{
			Name:   s.ServiceTypeDomain(domain),
			Rrtype: dns.TypePTR,
			Class:  dns.ClassINET,
			Ttl:    s.TTLSeconds(),
		},
		Ptr: s.InstanceDomain(domain),
	}
}

// SubtypePTR returns the PTR record used to answer selective-instance
// enumeration queries for one of the service's subtypes (spec §9
// supplemented feature: subtype PTR answers).
func (s *Service) SubtypePTR(subtype, domain string) *dns.PTR {
	return &dns.PTR{
		Hdr: dns.RR_Header{
			Name:   s.SubtypeDomain(subtype, domain),
			Rrtype: dns.TypePTR,
			Class:  dns.ClassINET,
			Ttl:    s.TTLSeconds(),
		},
		Ptr: s.InstanceDomain(domain),
	}
}

// SRV returns the instance's SRV record.
func (s *Service) SRV(domain string) *dns.SRV {
	return &dns.SRV{
		Hdr: dns.RR_Header{
			Name:   s.InstanceDomain(domain),
			Rrtype: dns.TypeSRV,
			Class:  dns.ClassINET,
			Ttl:    s.TTLSeconds(),
		},
		Priority: s.Priority,
		Weight:   s.Weight,
		Port:     s.Port,
		Target:   fmt.Sprintf("%s.%s.", s.Hostname, domain),
	}
}

// TXT returns the instance's TXT record.
//
// An empty TXT set is still encoded as a single zero-length string,
// because some mDNS stacks reject a TXT rdata section that is truly
// zero bytes long (spec §4.1 "Edge policies").
func (s *Service) TXT(domain string) *dns.TXT {
	r := &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   s.InstanceDomain(domain),
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    s.TTLSeconds(),
		},
	}

	for _, p := range s.Text {
		if p.HasValue {
			r.Txt = append(r.Txt, fmt.Sprintf("%s=%s", p.Key, p.Value))
		} else {
			r.Txt = append(r.Txt, p.Key)
		}
	}

	if len(r.Txt) == 0 {
		r.Txt = []string{""}
	}

	return r
}

// A returns a host's A record for the given address.
func A(hostname, domain string, ip net.IP, ttl uint32) *dns.A {
	return &dns.A{
		Hdr: dns.RR_Header{
			Name:   fmt.Sprintf("%s.%s.", hostname, domain),
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		A: ip.To4(),
	}
}

// AAAA returns a host's AAAA record for the given address.
func AAAA(hostname, domain string, ip net.IP, ttl uint32) *dns.AAAA {
	return &dns.AAAA{
		Hdr: dns.RR_Header{
			Name:   fmt.Sprintf("%s.%s.", hostname, domain),
			Rrtype: dns.TypeAAAA,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		AAAA: ip.To16(),
	}
}

// AddressRecords returns the A and AAAA records for all of h's addresses.
func (h *DelegatedHost) AddressRecords(domain string, ttl uint32) []dns.RR {
	var rrs []dns.RR
	for _, ip := range h.IPv4Addresses() {
		rrs = append(rrs, A(h.Hostname, domain, ip, ttl))
	}
	for _, ip := range h.IPv6Addresses() {
		rrs = append(rrs, AAAA(h.Hostname, domain, ip, ttl))
	}
	return rrs
}

// ServiceEnumerationPTR returns the PTR record used to answer "service
// type enumeration" queries on "_services._dns-sd._udp.<domain>.", per
// RFC 6763 §9.
func ServiceEnumerationPTR(s *Service, domain string) *dns.PTR {
	return &dns.PTR{
		Hdr: dns.RR_Header{
			Name:   fmt.Sprintf("_services._dns-sd._udp.%s.", domain),
			Rrtype: dns.TypePTR,
			Class:  dns.ClassINET,
			Ttl:    s.TTLSeconds(),
		},
		Ptr: s.ServiceTypeDomain(domain),
	}
}
