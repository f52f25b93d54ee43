package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/visaev-dn/fleetctl/pkg/inventory"
	"github.com/visaev-dn/fleetctl/pkg/types"
)

func TestContainsFold(t *testing.T) {
	cases := []struct {
		haystack, needle string
		want             bool
	}{
		{"<config xmlns=...>", "<config", true},
		{"", "<config", false},
		{"show lldp neighbors\nInterface  Neighbor", "Interface", true},
		{"no match here", "bridge-domain instance", false},
	}
	for _, c := range cases {
		if got := containsFold(c.haystack, c.needle); got != c.want {
			t.Errorf("containsFold(%q, %q) = %v, want %v", c.haystack, c.needle, got, c.want)
		}
	}
}

func TestStoreArtifact(t *testing.T) {
	a := &RawArtifacts{DeviceName: "LEAF-A"}
	storeArtifact(a, types.ArtifactLACPXML, "xml-output")
	storeArtifact(a, types.ArtifactLLDPTable, "lldp-output")
	storeArtifact(a, types.ArtifactBridgeDomains, "bd-output")
	storeArtifact(a, types.ArtifactVLANConfig, "vlan-output")

	if a.LACPXML != "xml-output" || a.LLDPTable != "lldp-output" ||
		a.BridgeDomainText != "bd-output" || a.VLANConfigText != "vlan-output" {
		t.Errorf("storeArtifact did not populate all fields: %+v", a)
	}
}

func TestRunParsePhaseEmptyArtifactsYieldNoCounts(t *testing.T) {
	summary := types.NewProbeSummary()
	raw := map[string]*RawArtifacts{
		"LEAF-A": {DeviceName: "LEAF-A"},
	}

	parsed := RunParsePhase(summary, raw)

	p, ok := parsed["LEAF-A"]
	if !ok {
		t.Fatal("expected LEAF-A in parsed output")
	}
	if len(p.LACPBundles) != 0 || len(p.LLDPNeighbors) != 0 || len(p.BridgeDomains) != 0 || len(p.VLANConfigs) != 0 {
		t.Errorf("expected no parsed records from empty artifacts, got %+v", p)
	}

	outcome := summary.PerDeviceOutcomes["LEAF-A"]
	if outcome == nil {
		t.Fatal("expected a DeviceOutcome to be created for LEAF-A")
	}
	if len(outcome.Parsed) != 0 {
		t.Errorf("expected no Parsed flags set, got %+v", outcome.Parsed)
	}
}

func TestRunParsePhaseParsesLLDP(t *testing.T) {
	summary := types.NewProbeSummary()
	raw := map[string]*RawArtifacts{
		"LEAF-A": {
			DeviceName: "LEAF-A",
			LLDPTable: "| Interface    | Neighbor System Name    | Neighbor interface   | Neighbor TTL   |\n" +
				"|--------------+-------------------------+----------------------+----------------|\n" +
				"| ge100-0/0/0  | ARIEL-Metropolis        | ge100-0/0/2          | 120            |",
		},
	}

	parsed := RunParsePhase(summary, raw)
	p := parsed["LEAF-A"]
	if len(p.LLDPNeighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(p.LLDPNeighbors))
	}

	outcome := summary.PerDeviceOutcomes["LEAF-A"]
	if !outcome.Parsed[types.ArtifactLLDPTable] {
		t.Error("expected LLDPTable marked parsed")
	}
	if outcome.Counts[types.ArtifactLLDPTable] != 1 {
		t.Errorf("expected count 1, got %d", outcome.Counts[types.ArtifactLLDPTable])
	}
}

func TestRunProbePhaseNoUsableDevicesErrors(t *testing.T) {
	// An inventory whose only device has a placeholder mgmt_ip has no
	// usable device, so RunProbePhase fails before dialing anything.
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte("LEAF-A:\n  mgmt_ip: TBD\n"), 0o644); err != nil {
		t.Fatalf("writing inventory: %v", err)
	}
	inv, err := inventory.Load(path)
	if err != nil {
		t.Fatalf("inventory.Load() error = %v", err)
	}

	summary, _, err := RunProbePhase(context.Background(), inv, 0)
	if err == nil {
		t.Fatal("expected an error when no device is usable")
	}
	if summary.Invalid != 1 || summary.Successful != 0 || summary.Failed != 0 {
		t.Errorf("expected 1 invalid 0 successful 0 failed, got %+v", summary)
	}
}
