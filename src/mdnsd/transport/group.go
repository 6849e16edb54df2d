package transport

import (
	"fmt"
	"net"

	"github.com/dogmatiq/dodeca/logging"
)

// packetConn contains the methods common to *ipv4.PacketConn and *ipv6.PacketConn.
type packetConn interface {
	JoinGroup(*net.Interface, net.Addr) error
}

// joinGroup joins the mDNS multicast group on each of the given interfaces.
// It succeeds as long as at least one interface joins, per spec §6
// ("an interface that cannot join is skipped, not fatal").
func joinGroup(
	pc packetConn,
	group net.IP,
	ifaces []net.Interface,
	logger logging.Logger,
) ([]net.Interface, error) {
	addr := &net.UDPAddr{
		IP: group,
	}

	joined := make([]net.Interface, 0, len(ifaces))

	for _, i := range ifaces {
		i := i
		if err := pc.JoinGroup(&i, addr); err != nil {
			logging.Debug(
				logger,
				"unable to join the '%s' multicast group on the '%s' interface: %s",
				addr.IP,
				i.Name,
				err,
			)
		} else {
			joined = append(joined, i)
		}
	}

	if len(joined) > 0 {
		return joined, nil
	}

	return nil, fmt.Errorf(
		"unable to join the '%s' multicast group on any interfaces",
		addr.IP,
	)
}
