package query

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/quietwire/mdnsd/src/mdnsd/wire"
)

func ptrAnswer(instance, service, protocol, domain string, ttl uint32) wire.ParsedRecord {
	name := service + "." + protocol + "." + domain + "."
	return wire.ParsedRecord{
		RR: &dns.PTR{
			Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: ttl},
			Ptr: instance + "." + name,
		},
		Name: wire.Decompose(name),
	}
}

func srvAnswer(instance, service, protocol, domain, target string, port uint16, ttl uint32) wire.ParsedRecord {
	name := instance + "." + service + "." + protocol + "." + domain + "."
	return wire.ParsedRecord{
		RR: &dns.SRV{
			Hdr:    dns.RR_Header{Name: name, Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: ttl},
			Target: target + ".",
			Port:   port,
		},
		Name: wire.Decompose(name),
	}
}

func txtAnswer(instance, service, protocol, domain string, txt []string, ttl uint32) wire.ParsedRecord {
	name := instance + "." + service + "." + protocol + "." + domain + "."
	return wire.ParsedRecord{
		RR:   &dns.TXT{Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: ttl}, Txt: txt},
		Name: wire.Decompose(name),
	}
}

func aAnswer(host, domain string, ip net.IP, ttl uint32) wire.ParsedRecord {
	name := host + "." + domain + "."
	return wire.ParsedRecord{
		RR:   &dns.A{Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl}, A: ip},
		Name: wire.Decompose(name),
	}
}

func packetOf(records ...wire.ParsedRecord) *wire.ParsedPacket {
	return &wire.ParsedPacket{Answer: records}
}

func TestMergePTRCreatesResult(t *testing.T) {
	rs := newResultSet(0)
	out := rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")

	if len(out.New) != 1 {
		t.Fatalf("expected 1 new result, got %d", len(out.New))
	}
	if out.New[0].Key.InstanceName != "alpha" {
		t.Errorf("instance = %q", out.New[0].Key.InstanceName)
	}
}

func TestMergeSRVSetsHostnameOnceOnly(t *testing.T) {
	rs := newResultSet(0)
	rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")
	rs.merge("eth0", wire.IPv4, packetOf(srvAnswer("alpha", "_http", "_tcp", "local", "host1.local", 80, 120)), "local", "_http", "_tcp", "")

	r := rs.byKey[ResultKey{Interface: "eth0", Protocol: wire.IPv4, InstanceName: "alpha"}]
	if r.Hostname != "host1.local" || r.Port != 80 {
		t.Fatalf("expected hostname/port to be bound, got %q:%d", r.Hostname, r.Port)
	}

	// A later SRV for the same instance must not overwrite.
	rs.merge("eth0", wire.IPv4, packetOf(srvAnswer("alpha", "_http", "_tcp", "local", "host2.local", 81, 120)), "local", "_http", "_tcp", "")
	if r.Hostname != "host1.local" || r.Port != 80 {
		t.Errorf("second SRV overwrote the bound hostname/port: %q:%d", r.Hostname, r.Port)
	}
}

func TestMergeTXTSetOnceThenReplacesOnChange(t *testing.T) {
	rs := newResultSet(0)
	rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")
	rs.merge("eth0", wire.IPv4, packetOf(txtAnswer("alpha", "_http", "_tcp", "local", []string{"path=/"}, 120)), "local", "_http", "_tcp", "")

	r := rs.byKey[ResultKey{Interface: "eth0", Protocol: wire.IPv4, InstanceName: "alpha"}]
	if !r.HasTXT || len(r.Text) != 1 || r.Text[0].Key != "path" {
		t.Fatalf("expected TXT to be set, got %+v", r.Text)
	}

	out := rs.merge("eth0", wire.IPv4, packetOf(txtAnswer("alpha", "_http", "_tcp", "local", []string{"path=/v2"}, 120)), "local", "_http", "_tcp", "")
	if len(out.Changed) != 1 {
		t.Fatalf("expected the changed TXT to report a change, got %d", len(out.Changed))
	}
	if string(r.Text[0].Value) != "/v2" {
		t.Errorf("TXT value not replaced: %q", r.Text[0].Value)
	}

	out = rs.merge("eth0", wire.IPv4, packetOf(txtAnswer("alpha", "_http", "_tcp", "local", []string{"path=/v2"}, 120)), "local", "_http", "_tcp", "")
	if len(out.Changed) != 0 {
		t.Errorf("expected an identical TXT to produce no change, got %d", len(out.Changed))
	}
}

func TestMergeAddressAppendsByValue(t *testing.T) {
	rs := newResultSet(0)
	rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")
	rs.merge("eth0", wire.IPv4, packetOf(srvAnswer("alpha", "_http", "_tcp", "local", "host1.local", 80, 120)), "local", "_http", "_tcp", "")

	ip := net.ParseIP("192.0.2.5").To4()
	rs.merge("eth0", wire.IPv4, packetOf(aAnswer("host1", "local", ip, 120)), "local", "_http", "_tcp", "")
	rs.merge("eth0", wire.IPv4, packetOf(aAnswer("host1", "local", ip, 120)), "local", "_http", "_tcp", "")

	r := rs.byKey[ResultKey{Interface: "eth0", Protocol: wire.IPv4, InstanceName: "alpha"}]
	if len(r.Addresses) != 1 {
		t.Fatalf("expected the duplicate address to be ignored, got %d entries", len(r.Addresses))
	}
}

func TestMergeTracksMinimumTTL(t *testing.T) {
	rs := newResultSet(0)
	rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")
	rs.merge("eth0", wire.IPv4, packetOf(srvAnswer("alpha", "_http", "_tcp", "local", "host1.local", 80, 60)), "local", "_http", "_tcp", "")

	r := rs.byKey[ResultKey{Interface: "eth0", Protocol: wire.IPv4, InstanceName: "alpha"}]
	if r.TTL.Seconds() != 60 {
		t.Errorf("expected TTL to track the minimum observed (60s), got %v", r.TTL)
	}
}

func TestMergeRespectsMaxResults(t *testing.T) {
	rs := newResultSet(1)
	rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")
	out := rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("beta", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")

	if len(out.New) != 0 {
		t.Errorf("expected max_results to suppress a second instance, got %d new", len(out.New))
	}
	if len(rs.order) != 1 {
		t.Errorf("expected exactly 1 result to be retained, got %d", len(rs.order))
	}
}

func TestMergeKeepsSameInstanceOnDifferentInterfacesSeparate(t *testing.T) {
	rs := newResultSet(0)
	rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")
	out := rs.merge("eth1", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")

	if len(out.New) != 1 {
		t.Fatalf("expected the same instance answered on a second interface to create a new result, got %d", len(out.New))
	}
	if len(rs.order) != 2 {
		t.Fatalf("expected two distinct results (one per interface), got %d", len(rs.order))
	}

	rs.merge("eth0", wire.IPv4, packetOf(srvAnswer("alpha", "_http", "_tcp", "local", "host1.local", 80, 120)), "local", "_http", "_tcp", "")
	rs.merge("eth1", wire.IPv4, packetOf(srvAnswer("alpha", "_http", "_tcp", "local", "host2.local", 81, 120)), "local", "_http", "_tcp", "")

	eth0 := rs.byKey[ResultKey{Interface: "eth0", Protocol: wire.IPv4, InstanceName: "alpha"}]
	eth1 := rs.byKey[ResultKey{Interface: "eth1", Protocol: wire.IPv4, InstanceName: "alpha"}]
	if eth0.Hostname != "host1.local" || eth1.Hostname != "host2.local" {
		t.Errorf("expected per-interface SRV merges to stay independent, got eth0=%q eth1=%q", eth0.Hostname, eth1.Hostname)
	}
}

func TestMergePTRZeroTTLMarksDead(t *testing.T) {
	rs := newResultSet(0)
	rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 120)), "local", "_http", "_tcp", "")
	out := rs.merge("eth0", wire.IPv4, packetOf(ptrAnswer("alpha", "_http", "_tcp", "local", 0)), "local", "_http", "_tcp", "")

	if len(out.Dead) != 1 {
		t.Fatalf("expected the TTL-0 PTR to mark the result dead, got %d", len(out.Dead))
	}
	if !rs.byKey[ResultKey{Interface: "eth0", Protocol: wire.IPv4, InstanceName: "alpha"}].Dead {
		t.Errorf("expected result.Dead to be set")
	}
}
