package cliparse

import (
	"strings"
	"testing"

	"github.com/visaev-dn/fleetctl/pkg/types"
)

const sampleLLDP = `DNAAS-LEAF-B14(06-Jul-2025-16:06:42)# show lldp neighbors

| Interface    | Neighbor System Name    | Neighbor interface   | Neighbor TTL   |
|--------------+-------------------------+----------------------+----------------|
| ge100-0/0/0  | ARIEL-Metropolis        | ge100-0/0/2          | 120            |
| ge100-0/0/1  | ARIEL-Metropolis        | ge100-0/0/36         | 120            |
| ge100-0/0/5  |                         |                      |                |
| ge100-0/0/36 | DNAAS-SPINE-B09         | ge100-0/0/8          | 120            |`

func TestParseLLDPNeighbors(t *testing.T) {
	neighbors := ParseLLDPNeighbors("DNAAS-LEAF-B14", sampleLLDP)
	if len(neighbors) != 3 {
		t.Fatalf("expected 3 neighbors (blank row dropped), got %d: %+v", len(neighbors), neighbors)
	}
	if neighbors[0].LocalInterface != "ge100-0/0/0" || neighbors[0].NeighborSystemName != "ARIEL-Metropolis" {
		t.Errorf("unexpected first neighbor: %+v", neighbors[0])
	}
	last := neighbors[len(neighbors)-1]
	if last.LocalInterface != "ge100-0/0/36" || last.NeighborInterface != "ge100-0/0/8" {
		t.Errorf("unexpected last neighbor: %+v", last)
	}
}

const sampleLACP = `System Default LACP Settings:
        System-priority: 1, System-id: 84:40:76:c7:6c:2f

Aggregate Interface: bundle-60000
        Local:
                Mode: active, Period: short, Key: 60000
                System-priority: 1, System-id: 84:40:76:c7:6c:2f
                Force-up: disabled

        Peer:
                Mode: active, Key: 60003
                System-priority: 1, System-id: 84:40:76:1e:e5:35

Legend: a - aggregatable

| Interface    | Role    | Port State   | Protocol State   | Port Priority   | Port Id   | Period   |
|--------------+---------+--------------+------------------+-----------------+-----------+----------|
| ge100-0/0/36 | actor   | active       | ascd             | 32768           | 37        | short    |
| ge100-0/0/36 | partner | active       | ascd             | 32768           | 9         | short    |
| ge100-0/0/37 | actor   | active       | ascd             | 32768           | 38        | short    |

Aggregate Interface: bundle-445
        Local:
                Mode: active, Period: short, Key: 445
                Force-up: disabled

        Peer:
                Mode: N/A, Key: N/A
                System-priority: N/A, System-id: N/A

| Interface    | Role    | Port State   | Protocol State   | Port Priority   | Port Id   | Period   |
|--------------+---------+--------------+------------------+-----------------+-----------+----------|
| ge100-0/0/9  | actor   | standby      | N/A              | 32768           | 10        | short    |
| ge100-0/0/9  | partner |              |                  |                 |           |          |`

func TestParseLACPInterfaces(t *testing.T) {
	bundles := ParseLACPInterfaces("DNAAS-LEAF-B14", sampleLACP)
	if len(bundles) != 2 {
		t.Fatalf("expected 2 bundles, got %d", len(bundles))
	}

	b1 := bundles["bundle-60000"]
	if b1 == nil {
		t.Fatal("expected bundle-60000")
	}
	if b1.LocalKey != "60000" || b1.PeerKey != "60003" {
		t.Errorf("bundle-60000 keys = local:%q peer:%q", b1.LocalKey, b1.PeerKey)
	}
	if len(b1.MemberInterfaces) != 2 {
		t.Errorf("bundle-60000 expected 2 actor members, got %d: %v", len(b1.MemberInterfaces), b1.MemberInterfaces)
	}
	if b1.Status != types.LACPActive {
		t.Errorf("bundle-60000 status = %q, want active", b1.Status)
	}

	b2 := bundles["bundle-445"]
	if b2 == nil {
		t.Fatal("expected bundle-445")
	}
	if b2.PeerKey != "" {
		t.Errorf("bundle-445 peer key should be empty for N/A, got %q", b2.PeerKey)
	}
	if b2.Status != types.LACPStandby {
		t.Errorf("bundle-445 status = %q, want standby", b2.Status)
	}
}

const sampleLACPCounters = `| Interface          | Admin    | Oper            |
|--------------------+----------+-----------------|
| bundle-60000       | enabled  | up              |
| ge100-0/0/36       | enabled  | up              |
       | actor | active |        |        |        |        | 60000  |
| ge100-0/0/37       | enabled  | up              |
       | actor | active |        |        |        |        | 60000  |`

func TestParseLACPCounters(t *testing.T) {
	bundles := ParseLACPCounters("DNAAS-LEAF-B14", sampleLACPCounters)
	b := bundles["bundle-60000"]
	if b == nil {
		t.Fatal("expected bundle-60000 from counters")
	}
	if len(b.MemberInterfaces) != 2 {
		t.Errorf("expected 2 members via lookahead bundle-id, got %d: %v", len(b.MemberInterfaces), b.MemberInterfaces)
	}
}

func TestDeriveVLANPrecedence(t *testing.T) {
	if v, ok := DeriveVLAN(251, "ge100-0/0/31.999", "g_alice_v500"); !ok || v != 251 {
		t.Errorf("running-config value should win: got %d,%v", v, ok)
	}
	if v, ok := DeriveVLAN(0, "ge100-0/0/31.251", "g_alice_v500"); !ok || v != 251 {
		t.Errorf("dotted suffix should win over BD name: got %d,%v", v, ok)
	}
	if v, ok := DeriveVLAN(0, "ge100-0/0/31", "g_alice_v500"); !ok || v != 500 {
		t.Errorf("BD name should supply VLAN when others absent: got %d,%v", v, ok)
	}
	if _, ok := DeriveVLAN(0, "ge100-0/0/31", "no-vlan-here"); ok {
		t.Error("expected no VLAN derivable")
	}
	if _, ok := DeriveVLAN(9999, "", ""); ok {
		t.Error("out-of-range running-config VLAN should not be accepted")
	}
}

const sampleBridgeDomainInstances = `network-services bridge-domain instance DLITVI_V1555_IX_IX interface ge100-0/0/21.1555 ^
network-services bridge-domain instance DLITVI_V1555_IX_IX interface ge100-0/0/22.1555 ^
network-services bridge-domain instance DLITVI_V1555_IX_IX admin-state enabled
network-services bridge-domain instance g_bob_v2000 interface bundle-445.2000 ^
network-services bridge-domain instance g_bob_v2000 admin-state enabled`

func TestParseBridgeDomainInstances(t *testing.T) {
	instances := ParseBridgeDomainInstances("DNAAS-LEAF-B14", sampleBridgeDomainInstances)
	if len(instances) != 2 {
		t.Fatalf("expected 2 bridge domain instances, got %d", len(instances))
	}

	first := instances[0]
	if first.Name != "DLITVI_V1555_IX_IX" {
		t.Errorf("first instance name = %q", first.Name)
	}
	if len(first.Interfaces) != 2 {
		t.Errorf("expected 2 interfaces on first instance, got %d", len(first.Interfaces))
	}
	if first.Scope != types.ScopeLocal {
		t.Errorf("expected local scope, got %q", first.Scope)
	}
	if first.TopologyType != types.TopologyP2P {
		t.Errorf("expected p2p topology for 2-interface BD, got %q", first.TopologyType)
	}

	second := instances[1]
	if second.Scope != types.ScopeGlobal || second.Username != "bob" {
		t.Errorf("expected global scope owned by bob, got scope=%q username=%q", second.Scope, second.Username)
	}
	if second.PrimaryVLAN != 2000 {
		t.Errorf("expected VLAN 2000 derived from BD name, got %d", second.PrimaryVLAN)
	}
}

const sampleLACPXML = `DNAAS-LEAF-B14# show config protocols lacp | display-xml
<config xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <protocols xmlns="http://drivenets.com/ns/yang/dn-protocol">
    <lacp xmlns="http://drivenets.com/ns/yang/dn-lacp">
      <interface>
        <name>bundle-60000</name>
        <members>
          <member>
            <interface>ge100-0/0/36</interface>
          </member>
          <member>
            <interface>ge100-0/0/37</interface>
          </member>
        </members>
      </interface>
    </lacp>
  </protocols>
</config>
DNAAS-LEAF-B14#`

func TestParseLACPXML(t *testing.T) {
	bundles, err := ParseLACPXML("DNAAS-LEAF-B14", sampleLACPXML)
	if err != nil {
		t.Fatalf("ParseLACPXML() error = %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(bundles))
	}
	if bundles[0].BundleName != "bundle-60000" {
		t.Errorf("bundle name = %q", bundles[0].BundleName)
	}
	if len(bundles[0].MemberInterfaces) != 2 {
		t.Errorf("expected 2 members, got %d", len(bundles[0].MemberInterfaces))
	}
}

func TestParseLACPXMLMissingSentinel(t *testing.T) {
	if _, err := ParseLACPXML("DEV", "no xml here"); err == nil {
		t.Error("expected error when <config> sentinel absent")
	}
}

const sampleLLDPXML = `DNAAS-LEAF-B14# show lldp neighbors | display-xml
<config xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <interfaces xmlns="http://drivenets.com/ns/yang/dn-top">
    <interface>
      <name>ge100-0/0/1</name>
      <lldp xmlns="http://drivenets.com/ns/yang/dn-lldp">
        <neighbor>
          <system-name>DNAAS-SPINE-A1</system-name>
          <interface>
            <name>ge100-0/0/5</name>
          </interface>
        </neighbor>
      </lldp>
    </interface>
  </interfaces>
</config>
DNAAS-LEAF-B14#`

func TestParseLLDPXML(t *testing.T) {
	neighbors, err := ParseLLDPXML("DNAAS-LEAF-B14", sampleLLDPXML)
	if err != nil {
		t.Fatalf("ParseLLDPXML() error = %v", err)
	}
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(neighbors))
	}
	n := neighbors[0]
	if n.LocalInterface != "ge100-0/0/1" {
		t.Errorf("local interface = %q", n.LocalInterface)
	}
	if n.NeighborSystemName != "DNAAS-SPINE-A1" || n.NeighborInterface != "ge100-0/0/5" {
		t.Errorf("unexpected neighbor: %+v", n)
	}
}

func TestParseLLDPXMLMissingSentinel(t *testing.T) {
	if _, err := ParseLLDPXML("DEV", "no xml here"); err == nil {
		t.Error("expected error when <config> sentinel absent")
	}
}

func TestParseLLDPXMLNoInterfacesElement(t *testing.T) {
	neighbors, err := ParseLLDPXML("DEV", "<config></config>")
	if err != nil {
		t.Fatalf("ParseLLDPXML() error = %v", err)
	}
	if neighbors != nil {
		t.Errorf("expected nil neighbors when <interfaces> is absent, got %v", neighbors)
	}
}

func TestStripANSIColor(t *testing.T) {
	in := "\x1b[91mge100-0/0/0\x1b[0m"
	if got := StripANSIColor(in); got != "ge100-0/0/0" {
		t.Errorf("StripANSIColor(%q) = %q", in, got)
	}
}

func TestSplitPipeRow(t *testing.T) {
	got := splitPipeRow("| a | b |c  |")
	want := []string{"", "a", "b", "c", ""}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("splitPipeRow() = %v, want %v", got, want)
	}
}
