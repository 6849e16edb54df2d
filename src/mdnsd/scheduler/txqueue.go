package scheduler

import (
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// TXPacket is an outbound packet waiting to be sent, ordered within the
// scheduler's TX queue by SendAt (spec §3 "TX packet").
type TXPacket struct {
	Interface   net.Interface
	Protocol    wire.Protocol
	Destination *net.UDPAddr
	Msg         *dns.Msg
	SendAt      time.Time

	// Distributed is true for packets sent unprompted (probes,
	// announcements, goodbyes); false for replies to a specific query.
	Distributed bool

	// OnSent runs after the packet has been serialized and handed to the
	// transport, implementing the per-PCB post-send rule of spec §4.4
	// ("TX dispatch"): rescheduling probes/announcements, advancing PCB
	// state. It is supplied by whoever scheduled the packet (normally the
	// responder).
	OnSent func(pkt *TXPacket)

	queued bool
	next   *TXPacket
}

// txQueue is a singly linked list of TX packets ordered by SendAt.
// Insertion is O(n); at the scale of a few dozen pending mDNS packets
// this is adequate and matches the teacher's own linked-list-heavy data
// model (spec §9 "Design notes").
type txQueue struct {
	head *TXPacket
}

// insert adds pkt to the queue in SendAt order.
func (q *txQueue) insert(pkt *TXPacket) {
	if q.head == nil || pkt.SendAt.Before(q.head.SendAt) {
		pkt.next = q.head
		q.head = pkt
		return
	}

	cur := q.head
	for cur.next != nil && !pkt.SendAt.Before(cur.next.SendAt) {
		cur = cur.next
	}
	pkt.next = cur.next
	cur.next = pkt
}

// due returns, in order, every packet at the head of the queue whose
// SendAt is <= now and which is not already marked as queued for
// handling, marking each one queued; it leaves them linked (spec §4.4
// "TX queue": "for each due packet that is not already queued for
// handling, it enqueues a TX_HANDLE action ... and sets queued=true").
func (q *txQueue) due(now time.Time) []*TXPacket {
	var due []*TXPacket

	for cur := q.head; cur != nil && !cur.SendAt.After(now); cur = cur.next {
		if !cur.queued {
			cur.queued = true
			due = append(due, cur)
		}
	}

	return due
}

// removeHead unlinks pkt from the queue. It is a no-op if pkt is not
// actually at the head (spec §4.4: "verifies the packet is still at the
// head and still flagged queued").
func (q *txQueue) removeHead(pkt *TXPacket) bool {
	if q.head != pkt {
		return false
	}
	q.head = pkt.next
	pkt.next = nil
	return true
}

// cancel removes pkt from the queue wherever it is, e.g. when a PCB is
// torn down mid-probe. It reports whether pkt was found.
func (q *txQueue) cancel(pkt *TXPacket) bool {
	if q.head == pkt {
		q.head = pkt.next
		pkt.next = nil
		return true
	}

	for cur := q.head; cur != nil && cur.next != nil; cur = cur.next {
		if cur.next == pkt {
			cur.next = pkt.next
			pkt.next = nil
			return true
		}
	}

	return false
}
