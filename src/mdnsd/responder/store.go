package responder

import (
	"net"
	"sync"

	"github.com/quietwire/mdnsd/src/mdnsd/model"
)

// store holds the responder's local services and hosts. All mutation
// happens on the service task; the mutex exists only to guard the
// synchronous introspection calls described in spec §5 ("a process-wide
// lock guards the single operation that must be synchronous without
// round-tripping through the queue: readers of the hostname and service
// list").
type store struct {
	mu sync.RWMutex

	hostname string
	instance string

	services       []*model.Service
	delegatedHosts map[string]*model.DelegatedHost
	selfHost       *model.DelegatedHost
}

func newStore() *store {
	return &store{
		delegatedHosts: map[string]*model.DelegatedHost{},
		selfHost:       &model.DelegatedHost{},
	}
}

// Hostname returns the responder's current hostname.
func (s *store) Hostname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostname
}

// Instance returns the responder's current server-wide instance name.
func (s *store) Instance() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.instance != "" {
		return s.instance
	}
	return s.hostname
}

// Services returns a snapshot copy of the current service list.
func (s *store) Services() []*model.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Service, len(s.services))
	copy(out, s.services)
	return out
}

// setHostname sets the hostname. Must only be called from the service
// task.
func (s *store) setHostname(hostname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hostname = hostname
	s.selfHost.Hostname = hostname
}

// setInstance sets the server-wide instance name. Must only be called
// from the service task.
func (s *store) setInstance(instance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instance = instance
}

// addService registers svc, defaulting its hostname/instance name to the
// store's if unset. The tier InstanceName was defaulted from is recorded
// in InstanceNameOrigin, so a later name conflict on this service can be
// resolved (and mangled) at the right tier (spec §4.2 "Mangling
// precedence: per-service instance_name first; else server-wide
// instance; else hostname"). Must only be called from the service task.
func (s *store) addService(svc *model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc.Hostname == "" {
		svc.Hostname = s.hostname
	}

	switch {
	case svc.InstanceName != "":
		svc.InstanceNameOrigin = model.InstanceNameExplicit
	case s.instance != "":
		svc.InstanceName = s.instance
		svc.InstanceNameOrigin = model.InstanceNameFromServerInstance
	default:
		svc.InstanceName = s.hostname
		svc.InstanceNameOrigin = model.InstanceNameFromHostname
	}

	s.services = append(s.services, svc)
}

// removeService removes the first service matching key. It reports
// whether a service was removed.
func (s *store) removeService(key model.InstanceKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, svc := range s.services {
		if svc.Key() == key {
			s.services = append(s.services[:i], s.services[i+1:]...)
			return true
		}
	}
	return false
}

// removeServicesForHost removes every service whose hostname equals
// hostname, returning the removed services (so goodbye records can be
// sent for each).
func (s *store) removeServicesForHost(hostname string) []*model.Service {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*model.Service
	kept := s.services[:0]
	for _, svc := range s.services {
		if svc.Hostname == hostname {
			removed = append(removed, svc)
		} else {
			kept = append(kept, svc)
		}
	}
	s.services = kept
	return removed
}

// findService returns the service matching key, if any.
func (s *store) findService(key model.InstanceKey) (*model.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, svc := range s.services {
		if svc.Key() == key {
			return svc, true
		}
	}
	return nil, false
}

// renameHost updates the hostname field of every service that currently
// references oldHost to newHost, implementing the hostname-mangle
// cascade described in spec §4.2 ("else hostname (which cascades: remap
// all services whose hostname field equals the old hostname)"). Services
// whose InstanceName was itself inherited from the hostname (the bottom
// tier of the mangling precedence) have their InstanceName cascaded too,
// since it is the same value going stale.
func (s *store) renameHost(oldHost, newHost string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hostname == oldHost {
		s.hostname = newHost
		s.selfHost.Hostname = newHost
	}

	for _, svc := range s.services {
		if svc.Hostname == oldHost {
			svc.Hostname = newHost
		}
		if svc.InstanceNameOrigin == model.InstanceNameFromHostname && svc.InstanceName == oldHost {
			svc.InstanceName = newHost
		}
	}

	if host, ok := s.delegatedHosts[oldHost]; ok {
		delete(s.delegatedHosts, oldHost)
		host.Hostname = newHost
		s.delegatedHosts[newHost] = host
	}
}

// renameInstance updates the server-wide instance name from oldInstance
// to newInstance, cascading onto every service whose InstanceName was
// inherited from it (spec §4.2's middle mangling tier, "else server-wide
// instance").
func (s *store) renameInstance(oldInstance, newInstance string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.instance == oldInstance {
		s.instance = newInstance
	}

	for _, svc := range s.services {
		if svc.InstanceNameOrigin == model.InstanceNameFromServerInstance && svc.InstanceName == oldInstance {
			svc.InstanceName = newInstance
		}
	}
}

// addDelegatedHost registers a host answered for on behalf of another
// device.
func (s *store) addDelegatedHost(host *model.DelegatedHost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegatedHosts[host.Hostname] = host
}

// removeDelegatedHost removes a delegated host by name.
func (s *store) removeDelegatedHost(hostname string) (*model.DelegatedHost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	host, ok := s.delegatedHosts[hostname]
	if ok {
		delete(s.delegatedHosts, hostname)
	}
	return host, ok
}

// findHost returns the delegated or self host matching hostname.
func (s *store) findHost(hostname string) (*model.DelegatedHost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selfHost.Hostname == hostname {
		return s.selfHost, true
	}
	host, ok := s.delegatedHosts[hostname]
	return host, ok
}

// addSelfAddress adds ip to the self host's address list, reporting
// whether it was new.
func (s *store) addSelfAddress(ip net.IP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfHost.AddAddress(ip)
}

// removeSelfAddress removes ip from the self host's address list,
// reporting whether it was present.
func (s *store) removeSelfAddress(ip net.IP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfHost.RemoveAddress(ip)
}

// addHostAddress adds ip to the address list of the self or delegated
// host named hostname, reporting whether it was new. Unlike
// addSelfAddress, which always targets the distinguished self host, this
// resolves hostname against either host so a delegated host's addresses
// can be mutated the same way the self host's can.
func (s *store) addHostAddress(hostname string, ip net.IP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selfHost.Hostname == hostname {
		return s.selfHost.AddAddress(ip)
	}
	if host, ok := s.delegatedHosts[hostname]; ok {
		return host.AddAddress(ip)
	}
	return false
}

// removeHostAddress removes ip from the address list of the self or
// delegated host named hostname, reporting whether it was present.
func (s *store) removeHostAddress(hostname string, ip net.IP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selfHost.Hostname == hostname {
		return s.selfHost.RemoveAddress(ip)
	}
	if host, ok := s.delegatedHosts[hostname]; ok {
		return host.RemoveAddress(ip)
	}
	return false
}
