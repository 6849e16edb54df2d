package responder

import (
	"time"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// sharedReplyDelayBase, sharedReplyDelayStep and sharedReplyDelayCap
// implement spec §4.2's
// load-spreading rule for shared (PTR) replies: "delayed by 25 + 25*k ms
// with k cycling 0..3".
const (
	sharedReplyDelayBase = 25 * time.Millisecond
	sharedReplyDelayStep = 25 * time.Millisecond
	sharedReplyDelayCap  = 4
)

// HandleQuery answers every question in pkt on the PCB for
// (iface, proto), sending unicast replies immediately and scheduling
// shared (PTR) multicast replies with the load-spreading delay (spec
// §4.2 "Answer generation").
func (r *Responder) HandleQuery(iface string, proto wire.Protocol, pkt *wire.ParsedPacket) {
	p, ok := r.pcbs[pcbKey{iface, proto}]
	if !ok || p.state != Running {
		return
	}

	a := &answerer{store: r.store, domain: r.domain}
	pcbs := r.allPCBs()

	unicast := newResponseMsg(pkt.ID)
	multicastUnique := newResponseMsg(pkt.ID)
	var sharedCycle int

	for _, q := range pkt.Questions {
		secs := a.answer(q, pcbs, pkt.Answer)
		if secs.IsEmpty() {
			continue
		}

		wantsUnicast := q.Unicast || pkt.Src.Port != wire.Port

		if wantsUnicast {
			unicast.Answer = append(unicast.Answer, secs.UniqueAnswer...)
			unicast.Answer = append(unicast.Answer, secs.SharedAnswer...)
			unicast.Extra = append(unicast.Extra, secs.UniqueAdditional...)
			unicast.Extra = append(unicast.Extra, secs.SharedAdditional...)
			continue
		}

		for i := range secs.UniqueAnswer {
			multicastUnique.Answer = append(multicastUnique.Answer, wire.SetCacheFlush(secs.UniqueAnswer[i]))
		}
		for i := range secs.UniqueAdditional {
			multicastUnique.Extra = append(multicastUnique.Extra, wire.SetCacheFlush(secs.UniqueAdditional[i]))
		}

		if len(secs.SharedAnswer) > 0 || len(secs.SharedAdditional) > 0 {
			delay := sharedReplyDelayBase + time.Duration(sharedCycle)*sharedReplyDelayStep
			sharedCycle = (sharedCycle + 1) % sharedReplyDelayCap
			r.scheduleSharedReply(p, pkt, secs, delay)
		}
	}

	if len(unicast.Answer) > 0 || len(unicast.Extra) > 0 {
		r.sched.ScheduleTX(&scheduler.TXPacket{
			Interface:   p.Interface,
			Protocol:    p.Protocol,
			Destination: pkt.Src,
			Msg:         unicast,
			SendAt:      time.Now(),
		})
	}

	if len(multicastUnique.Answer) > 0 || len(multicastUnique.Extra) > 0 {
		r.sched.ScheduleTX(&scheduler.TXPacket{
			Interface:   p.Interface,
			Protocol:    p.Protocol,
			Destination: p.Protocol.Group(),
			Msg:         multicastUnique,
			SendAt:      time.Now(),
		})
	}
}

// scheduleSharedReply schedules a delayed multicast reply carrying the
// shared (PTR) records from secs.
func (r *Responder) scheduleSharedReply(p *pcb, pkt *wire.ParsedPacket, secs sections, delay time.Duration) {
	m := newResponseMsg(pkt.ID)
	m.Answer = append(m.Answer, secs.SharedAnswer...)
	m.Extra = append(m.Extra, secs.SharedAdditional...)

	r.sched.ScheduleTX(&scheduler.TXPacket{
		Interface:   p.Interface,
		Protocol:    p.Protocol,
		Destination: p.Protocol.Group(),
		Msg:         m,
		SendAt:      time.Now().Add(delay),
	})
}

func (r *Responder) allPCBs() []*pcb {
	out := make([]*pcb, 0, len(r.pcbs))
	for _, p := range r.pcbs {
		out = append(out, p)
	}
	return out
}

// newResponseMsg returns a new, empty mDNS response message for id.
func newResponseMsg(id uint16) *dns.Msg {
	return wire.NewResponse(id, false).Msg()
}
