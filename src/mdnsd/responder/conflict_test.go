package responder

import (
	"net"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

// losingSRV builds an inbound SRV record that always beats svc's own SRV
// descriptor, by claiming a target long enough that compareDescriptors'
// longer-wins length rule picks it over ours.
func losingSRV(svc *model.Service, domain string) *dns.SRV {
	return &dns.SRV{
		Hdr:    dns.RR_Header{Name: svc.InstanceDomain(domain)},
		Target: dns.Fqdn(strings.Repeat("x", len(svc.Hostname)+32)),
	}
}

func TestResolveMangleScopedToExplicitInstance(t *testing.T) {
	sender := &capturingSender{}
	sched := scheduler.New(sender)

	r := New(sched)
	r.SetHostname("alpha")
	svc := &model.Service{
		ServiceType:  "_http",
		Protocol:     "_tcp",
		InstanceName: "custom",
		Port:         80,
	}
	r.AddService(svc)
	if svc.InstanceNameOrigin != model.InstanceNameExplicit {
		t.Fatalf("expected InstanceNameExplicit, got %v", svc.InstanceNameOrigin)
	}

	iface := net.Interface{Name: "eth-explicit", Index: 1}
	r.EnablePCB(iface, wire.IPv4)
	p := r.pcbs[pcbKey{iface.Name, wire.IPv4}]

	r.checkSRV(p, losingSRV(svc, r.domain))

	if svc.InstanceName == "custom" {
		t.Error("expected the service's own instance name to be mangled")
	}
	if r.store.Hostname() != "alpha" {
		t.Errorf("expected hostname to be untouched, got %q", r.store.Hostname())
	}
}

func TestResolveEscalatesToServerInstanceWhenInherited(t *testing.T) {
	sender := &capturingSender{}
	sched := scheduler.New(sender)

	r := New(sched)
	r.SetHostname("alpha")
	r.SetInstance("shared-instance")
	svcA := &model.Service{ServiceType: "_http", Protocol: "_tcp", Port: 80}
	svcB := &model.Service{ServiceType: "_ftp", Protocol: "_tcp", Port: 21}
	r.AddService(svcA)
	r.AddService(svcB)

	if svcA.InstanceNameOrigin != model.InstanceNameFromServerInstance {
		t.Fatalf("expected InstanceNameFromServerInstance, got %v", svcA.InstanceNameOrigin)
	}
	if svcA.InstanceName != "shared-instance" || svcB.InstanceName != "shared-instance" {
		t.Fatalf("expected both services to inherit the server instance name")
	}

	iface := net.Interface{Name: "eth-server-instance", Index: 2}
	r.EnablePCB(iface, wire.IPv4)
	p := r.pcbs[pcbKey{iface.Name, wire.IPv4}]

	r.checkSRV(p, losingSRV(svcA, r.domain))

	if r.store.Instance() == "shared-instance" {
		t.Error("expected the server-wide instance name to be mangled")
	}
	if svcA.InstanceName != r.store.Instance() || svcB.InstanceName != r.store.Instance() {
		t.Errorf("expected every inheriting service to cascade to the new instance name, got %q / %q (want %q)",
			svcA.InstanceName, svcB.InstanceName, r.store.Instance())
	}
	if r.store.Hostname() != "alpha" {
		t.Errorf("expected hostname to be untouched, got %q", r.store.Hostname())
	}
}

func TestResolveEscalatesToHostnameWhenNoOverrideOrServerInstance(t *testing.T) {
	sender := &capturingSender{}
	sched := scheduler.New(sender)

	r := New(sched)
	r.SetHostname("alpha")
	svcA := &model.Service{ServiceType: "_http", Protocol: "_tcp", Port: 80}
	svcB := &model.Service{ServiceType: "_ftp", Protocol: "_tcp", Port: 21}
	r.AddService(svcA)
	r.AddService(svcB)

	if svcA.InstanceNameOrigin != model.InstanceNameFromHostname {
		t.Fatalf("expected InstanceNameFromHostname, got %v", svcA.InstanceNameOrigin)
	}
	if svcA.InstanceName != "alpha" || svcB.InstanceName != "alpha" {
		t.Fatalf("expected both services to inherit the hostname as their instance name")
	}

	iface := net.Interface{Name: "eth-hostname", Index: 3}
	r.EnablePCB(iface, wire.IPv4)
	p := r.pcbs[pcbKey{iface.Name, wire.IPv4}]

	r.checkSRV(p, losingSRV(svcA, r.domain))

	if r.store.Hostname() == "alpha" {
		t.Error("expected the hostname to be mangled")
	}
	if svcA.InstanceName != r.store.Hostname() || svcB.InstanceName != r.store.Hostname() {
		t.Errorf("expected every hostname-inheriting service to cascade to the new hostname, got %q / %q (want %q)",
			svcA.InstanceName, svcB.InstanceName, r.store.Hostname())
	}
}
