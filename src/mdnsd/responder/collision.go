package responder

import (
	"bytes"
	"net"

	"github.com/quietwire/mdnsd/src/mdnsd/model"
)

// compareResult is the outcome of comparing our pending record against one
// offered by a peer during probing (spec §4.2 "Conflict detection during
// probe").
type compareResult int

const (
	// weWin means our record has been retained; the peer's is ignored.
	weWin compareResult = -1
	// same means the two records are identical; no action is taken.
	same compareResult = 0
	// theyWin means our record lost the conflict and must be mangled.
	theyWin compareResult = 1
)

// compareDescriptors performs the byte-string comparison described in
// spec §4.2: when the two descriptors differ in length the longer one
// wins outright (per original_source's _mdns_check_*_collision, which
// this deviates from spec.md's prose to match); otherwise the comparison
// falls back to a lexicographic byte compare.
func compareDescriptors(ours, theirs []byte) compareResult {
	if len(theirs) > len(ours) {
		return theyWin
	}
	if len(theirs) < len(ours) {
		return weWin
	}

	switch bytes.Compare(ours, theirs) {
	case 1:
		return weWin
	case -1:
		return theyWin
	default:
		return same
	}
}

// srvDescriptor builds the byte string used to compare an SRV record's
// rdata during probing: priority, weight, port, then length-prefixed
// host and domain labels.
func srvDescriptor(priority, weight, port uint16, host, domain string) []byte {
	buf := make([]byte, 0, 8+len(host)+len(domain))
	buf = append(buf, byte(priority>>8), byte(priority))
	buf = append(buf, byte(weight>>8), byte(weight))
	buf = append(buf, byte(port>>8), byte(port))
	buf = append(buf, byte(len(host)))
	buf = append(buf, host...)
	buf = append(buf, byte(len(domain)))
	buf = append(buf, domain...)
	return buf
}

// compareSRV compares our service's SRV rdata against a peer's claimed
// priority/weight/port/host/domain.
func compareSRV(s *model.Service, domain string, priority, weight, port uint16, host, theirDomain string) compareResult {
	ours := srvDescriptor(s.Priority, s.Weight, s.Port, s.Hostname, domain)
	theirs := srvDescriptor(priority, weight, port, host, theirDomain)
	return compareDescriptors(ours, theirs)
}

// txtDescriptor builds the byte string used to compare a TXT record's
// rdata: each pair is encoded as "key" or "key=value", length-prefixed.
func txtDescriptor(pairs model.TXTPairs) []byte {
	var buf []byte
	for _, p := range pairs {
		entry := p.Key
		if p.HasValue {
			entry += "=" + string(p.Value)
		}
		buf = append(buf, byte(len(entry)))
		buf = append(buf, entry...)
	}
	return buf
}

// compareTXT compares our service's TXT rdata against a peer's claimed
// TXT bytes.
func compareTXT(s *model.Service, theirs []byte) compareResult {
	ours := txtDescriptor(s.Text)
	return compareDescriptors(ours, theirs)
}

// compareAddress compares our address against a peer's claimed address
// for the same hostname, grounded on the original implementation's IPv4
// and IPv6 collision checks: a byte-wise compare of the raw address,
// shorter (denial/zero) addresses losing outright.
func compareAddress(ours, theirs net.IP) compareResult {
	if len(theirs) == 0 {
		return weWin
	}
	if len(ours) == 0 {
		return theyWin
	}
	return compareDescriptors(ours, theirs)
}
