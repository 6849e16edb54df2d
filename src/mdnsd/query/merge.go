package query

import (
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// resultSet is the merge state shared by Search and Browse: a map of
// in-progress Results keyed by the full {interface, protocol, instance}
// tuple (armon-mdns's "inprogress map[string]*ServiceEntry" generalized
// to the {interface, protocol} scoping this package needs, per spec
// §4.3's "one Result per {interface, ip_protocol, instance_name}"), plus
// the ordering needed to cap at max_results and to report which results
// changed on this merge pass.
type resultSet struct {
	byKey      map[ResultKey]*Result
	order      []ResultKey
	maxResults int
}

func newResultSet(maxResults int) *resultSet {
	return &resultSet{
		byKey:      make(map[ResultKey]*Result),
		maxResults: maxResults,
	}
}

// full reports whether the set has reached its result cap.
func (rs *resultSet) full() bool {
	return rs.maxResults > 0 && len(rs.order) >= rs.maxResults
}

// remove unlinks a result by its full key.
func (rs *resultSet) remove(key ResultKey) {
	delete(rs.byKey, key)
	for i, k := range rs.order {
		if k == key {
			rs.order = append(rs.order[:i], rs.order[i+1:]...)
			break
		}
	}
}

func (rs *resultSet) results() []*Result {
	out := make([]*Result, 0, len(rs.order))
	for _, key := range rs.order {
		out = append(out, rs.byKey[key])
	}
	return out
}

// mergeOutcome reports what a merge pass changed, so a caller (the
// browse notifier) can decide whether to fire a callback.
type mergeOutcome struct {
	New     []*Result
	Changed []*Result
	Dead    []*Result
}

func (o mergeOutcome) empty() bool {
	return len(o.New) == 0 && len(o.Changed) == 0 && len(o.Dead) == 0
}

// merge folds every record in pkt into rs, implementing spec §4.3's PTR
// -> SRV -> TXT -> A/AAAA merge rules. iface/proto scope the Result keys
// to the PCB the packet arrived on.
func (rs *resultSet) merge(iface string, proto wire.Protocol, pkt *wire.ParsedPacket, domain string, filterService, filterProtocol, filterInstance string) mergeOutcome {
	var out mergeOutcome

	records := pkt.AllRecords()

	// First pass: PTR, SRV, TXT - every record that can create or locate
	// a Result by instance name. A/AAAA is deferred to a second pass
	// because it is keyed by hostname, not instance name, and the SRV
	// that supplies that hostname may arrive in the same packet after
	// the address record (kdanielm-zeroconf's client.go does the same
	// two-pass split for this reason).
	hostnames := make(map[string]ResultKey) // hostname -> owning result's key, for the address pass

	for _, rec := range records {
		switch rr := rec.RR.(type) {
		case *dns.PTR:
			if !matchesServiceType(rr.Hdr.Name, filterService, filterProtocol, domain) {
				continue
			}
			name := wire.Decompose(rr.Ptr)
			if filterInstance != "" && !strings.EqualFold(name.Host, filterInstance) {
				continue
			}
			if name.Host == "" {
				continue
			}

			key := ResultKey{Interface: iface, Protocol: proto, InstanceName: name.Host}
			r, existed := rs.byKey[key]
			if !existed {
				if rs.full() {
					continue
				}
				r = &Result{
					Key:         key,
					ServiceType: name.Service,
					Protocol:    name.Protocol,
				}
				rs.byKey[key] = r
				rs.order = append(rs.order, key)
				out.New = append(out.New, r)
			}

			if rr.Hdr.Ttl == 0 {
				markDead(&out, r)
				continue
			}
			r.observeTTL(time.Duration(rr.Hdr.Ttl) * time.Second)

		case *dns.SRV:
			name := wire.Decompose(rr.Hdr.Name)
			key := ResultKey{Interface: iface, Protocol: proto, InstanceName: name.Host}
			r, ok := rs.byKey[key]
			if !ok {
				continue
			}
			if rr.Hdr.Ttl == 0 {
				markDead(&out, r)
				continue
			}
			if !r.HasSRV {
				r.Hostname = strings.TrimSuffix(rr.Target, ".")
				r.Port = rr.Port
				r.HasSRV = true
				markChanged(&out, r)
			}
			r.observeTTL(time.Duration(rr.Hdr.Ttl) * time.Second)
			hostnames[strings.TrimSuffix(rr.Target, ".")] = key

		case *dns.TXT:
			name := wire.Decompose(rr.Hdr.Name)
			key := ResultKey{Interface: iface, Protocol: proto, InstanceName: name.Host}
			r, ok := rs.byKey[key]
			if !ok {
				continue
			}
			if rr.Hdr.Ttl == 0 {
				markDead(&out, r)
				continue
			}
			pairs := decodeTXT(rr.Txt)
			if !r.HasTXT {
				r.Text = pairs
				r.HasTXT = true
				markChanged(&out, r)
			} else if !r.Text.Equal(pairs) {
				r.Text = pairs
				markChanged(&out, r)
			}
			r.observeTTL(time.Duration(rr.Hdr.Ttl) * time.Second)
		}
	}

	for _, rec := range records {
		var name string
		var ip net.IP
		var ttl uint32

		switch rr := rec.RR.(type) {
		case *dns.A:
			name, ip, ttl = rr.Hdr.Name, rr.A, rr.Hdr.Ttl
		case *dns.AAAA:
			name, ip, ttl = rr.Hdr.Name, rr.AAAA, rr.Hdr.Ttl
		default:
			continue
		}

		target := strings.TrimSuffix(name, ".")
		key, ok := hostnames[target]
		if !ok {
			// The SRV for this address may already be merged from an
			// earlier packet; fall back to scanning current results on
			// this same {interface, protocol}.
			for k, r := range rs.byKey {
				if k.Interface == iface && k.Protocol == proto && r.HasSRV && r.Hostname == target {
					key = k
					ok = true
					break
				}
			}
		}
		if !ok {
			continue
		}
		r := rs.byKey[key]

		if ttl == 0 {
			markDead(&out, r)
			continue
		}
		if r.addAddress(ip) {
			markChanged(&out, r)
		}
		r.observeTTL(time.Duration(ttl) * time.Second)
	}

	return out
}

func markChanged(out *mergeOutcome, r *Result) {
	for _, n := range out.New {
		if n == r {
			return
		}
	}
	out.Changed = append(out.Changed, r)
}

func markDead(out *mergeOutcome, r *Result) {
	r.Dead = true
	out.Dead = append(out.Dead, r)
}

// matchesServiceType reports whether the PTR question/answer name
// belongs to the filtered {service, protocol}. An empty filterService
// matches any service type (used by service-type enumeration searches).
func matchesServiceType(name, filterService, filterProtocol, domain string) bool {
	if filterService == "" {
		return true
	}
	n := wire.Decompose(name)
	if !strings.EqualFold(n.Service, filterService) {
		return false
	}
	if filterProtocol != "" && !strings.EqualFold(n.Protocol, filterProtocol) {
		return false
	}
	return true
}

// decodeTXT rebuilds TXTPairs from a wire TXT record's raw strings,
// the inverse of model.Service.TXT's encoding ("key" or "key=value").
func decodeTXT(txt []string) model.TXTPairs {
	pairs := make(model.TXTPairs, 0, len(txt))
	for _, s := range txt {
		if s == "" {
			continue
		}
		if i := strings.IndexByte(s, '='); i >= 0 {
			pairs = append(pairs, model.TXTPair{Key: s[:i], Value: []byte(s[i+1:]), HasValue: true})
		} else {
			pairs = append(pairs, model.TXTPair{Key: s})
		}
	}
	return pairs
}
