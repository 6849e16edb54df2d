package engine

import (
	"context"
	"net"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/quietwire/mdnsd/src/mdnsd/engineerr"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/transport"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
	"golang.org/x/sync/errgroup"
)

// Run starts the scheduler's service task and one receive goroutine per
// enabled transport, and blocks until ctx is canceled or a transport
// fails (spec §2 "Flow": "inbound UDP -> Wire Codec -> ... RX_HANDLE
// action"). Grounded on the teacher's Responder.Run, generalized from
// two fixed transports to whichever of IPv4/IPv6 remain enabled.
func (e *Engine) Run(ctx context.Context) error {
	if e.disableIPv4 && e.disableIPv6 {
		return engineerr.New(engineerr.InvalidState, "both IPv4 and IPv6 are disabled")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.sched.Run(ctx)
	})

	if e.v4 != nil {
		g.Go(func() error { return e.receive(ctx, wire.IPv4, e.v4) })
	}
	if e.v6 != nil {
		g.Go(func() error { return e.receive(ctx, wire.IPv6, e.v6) })
	}

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// receive pipes packets received from t through the wire codec and onto
// the scheduler's action queue, where the responder and query engine
// handle them on the service task (spec §5).
func (e *Engine) receive(ctx context.Context, proto wire.Protocol, t transport.Transport) error {
	defer t.Close()

	go func() {
		<-ctx.Done()
		_ = t.Close() // unblocks t.Read() on shutdown
	}()

	for {
		in, err := t.Read()
		if err != nil {
			if isClosedError(err) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}
			return err
		}

		pkt, perr := wire.ParsePacket(in.Source.Address, true, in.Data)
		in.Close()
		if perr != nil {
			logging.Log(e.logger, "dropping malformed mDNS message: %s", perr)
			continue
		}

		ifaceName := ""
		if ifc, ierr := net.InterfaceByIndex(in.Source.InterfaceIndex); ierr == nil {
			ifaceName = ifc.Name
		}

		action := scheduler.ActionFunc(func(ctx context.Context) error {
			e.dispatch(ifaceName, proto, pkt)
			return nil
		})

		if err := e.sched.EnqueueWait(ctx, action); err != nil {
			return err
		}
	}
}

// dispatch hands a parsed packet to the responder and the query engine,
// per spec §2's "Action Serializer dispatches to Responder ... and
// Query Engine".
func (e *Engine) dispatch(iface string, proto wire.Protocol, pkt *wire.ParsedPacket) {
	if pkt.Distributed {
		e.resp.HandleResponse(iface, proto, pkt)
	} else {
		e.resp.HandleQuery(iface, proto, pkt)
	}
	e.query.HandleResponse(iface, proto, pkt)
}
