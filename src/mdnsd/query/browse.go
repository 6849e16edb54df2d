package query

import (
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// browseRefreshInterval is how often a Browse re-emits its PTR question
// even absent an interface-up event, so a slow-to-respond peer is
// eventually rediscovered (spec §4.3: "re-emits its PTR question on
// every interface-up event and on an internal refresh tick"). The
// teacher's client code has no browse concept at all; kdanielm-zeroconf
// leaves periodic re-querying commented out in favor of letting services
// announce on change, but the spec calls for it explicitly, so this
// value is new, chosen to match that package's retained (if unused)
// initialQueryInterval order of magnitude.
const browseRefreshInterval = 60 * time.Second

// BrowseNotifier receives the results of one merge pass of a Browse: new
// results, updated results, and results removed by a TTL-0 record (spec
// §4.3: "any change ... produces a sync entry that the engine batches
// and then delivers to the registered notifier in a single callback").
type BrowseNotifier func(added, changed, removed []*Result)

// browseKey identifies a Browse by the {service, protocol} pair it
// watches.
type browseKey struct {
	service  string
	protocol string
}

// Browse is a continuous PTR query for a {service, protocol} pair (spec
// §3 "Browse").
type Browse struct {
	key      browseKey
	domain   string
	state    State
	results  *resultSet
	notifier BrowseNotifier
	lastSent time.Time
}

func newBrowse(domain, service, protocol string, notifier BrowseNotifier) *Browse {
	return &Browse{
		key:      browseKey{service: service, protocol: protocol},
		domain:   domain,
		state:    Init,
		results:  newResultSet(0),
		notifier: notifier,
	}
}

func (b *Browse) question() dns.Question {
	name := wire.ServiceTypeName(b.key.service, b.key.protocol, b.domain)
	return dns.Question{Name: name, Qtype: dns.TypePTR, Qclass: dns.ClassINET}
}

// deliver invokes the notifier with a merge outcome, then unlinks any
// result that went dead (spec §4.3: "A record with TTL 0 is delivered
// and then the result is unlinked.").
func (b *Browse) deliver(out mergeOutcome) {
	if out.empty() {
		return
	}
	if b.notifier != nil {
		b.notifier(out.New, out.Changed, out.Dead)
	}
	for _, dead := range out.Dead {
		b.results.remove(dead.Key)
	}
}
