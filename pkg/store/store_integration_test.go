//go:build integration || e2e

package store

import (
	"strings"
	"testing"

	"github.com/visaev-dn/fleetctl/internal/testutil"
	"github.com/visaev-dn/fleetctl/pkg/types"
)

// discoveredInterfaceTestDB is a scratch Redis database for this package's
// own integration tests, distinct from the teacher's CONFIG_DB (4) and
// STATE_DB (6) reservations.
const discoveredInterfaceTestDB = 9

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	testutil.SkipIfNoRedis(t)

	addr := testutil.RedisAddr()
	testutil.FlushDB(t, addr, discoveredInterfaceTestDB)

	s := New(addr, discoveredInterfaceTestDB)
	t.Cleanup(func() { s.Close() })
	if err := s.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s, addr
}

func TestUpdateDiscoveredConfigsAddsNewRecord(t *testing.T) {
	s, addr := newTestStore(t)

	result, err := s.UpdateDiscoveredConfigs([]types.InterfaceRecord{
		{DeviceName: "LEAF-A", InterfaceName: "ge100-0/0/1", VLANID: 100, AdminStatus: "up", OperStatus: "up"},
	})
	if err != nil {
		t.Fatalf("UpdateDiscoveredConfigs() error = %v", err)
	}
	if result.Added != 1 || result.Updated != 0 || !result.Success {
		t.Fatalf("unexpected result: %+v", result)
	}

	vals := testutil.ReadEntry(t, addr, discoveredInterfaceTestDB, discoveredInterfaceTable, "LEAF-A/ge100-0/0/1")
	if vals["description"] != "VLAN 100 - Added by drift sync" {
		t.Errorf("description = %q", vals["description"])
	}

	if !testutil.EntryExists(t, addr, discoveredInterfaceTestDB, discoveredInterfaceTable, "LEAF-A/ge100-0/0/1") {
		t.Error("expected entry to exist after add")
	}
}

func TestUpdateDiscoveredConfigsUpdatesExistingRecord(t *testing.T) {
	s, addr := newTestStore(t)

	testutil.WriteSingleEntry(t, addr, discoveredInterfaceTestDB, discoveredInterfaceTable, "LEAF-A/ge100-0/0/1", map[string]string{
		"device_name":    "LEAF-A",
		"interface_name": "ge100-0/0/1",
		"vlan_id":        "100",
		"admin_status":   "up",
		"oper_status":    "up",
	})

	result, err := s.UpdateDiscoveredConfigs([]types.InterfaceRecord{
		{DeviceName: "LEAF-A", InterfaceName: "ge100-0/0/1", VLANID: 200, AdminStatus: "up", OperStatus: "down"},
	})
	if err != nil {
		t.Fatalf("UpdateDiscoveredConfigs() error = %v", err)
	}
	if result.Updated != 1 || result.Added != 0 || !result.Success {
		t.Fatalf("unexpected result: %+v", result)
	}

	vals := testutil.ReadEntry(t, addr, discoveredInterfaceTestDB, discoveredInterfaceTable, "LEAF-A/ge100-0/0/1")
	if vals["description"] != "VLAN 200 - Updated by drift sync" {
		t.Errorf("description = %q", vals["description"])
	}
	if vals["oper_status"] != "down" {
		t.Errorf("oper_status = %q, want down", vals["oper_status"])
	}

	exists, err := s.Exists("LEAF-A", "ge100-0/0/1")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v, want true, nil", exists, err)
	}

	if err := s.Delete("LEAF-A", "ge100-0/0/1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if testutil.EntryExists(t, addr, discoveredInterfaceTestDB, discoveredInterfaceTable, "LEAF-A/ge100-0/0/1") {
		t.Error("expected entry to be gone after Delete")
	}
}

func TestPopulateBridgeDomainInsertsRowAndAssociations(t *testing.T) {
	s, _ := newTestStore(t)

	discovery := types.BridgeDomainDiscovery{
		BridgeDomainName: "g_visaev_v251",
		Username:         "visaev",
		VLANID:           251,
		Devices:          []string{"LEAF-A", "LEAF-B"},
		Interfaces: []types.InterfaceRecord{
			{DeviceName: "LEAF-A", InterfaceName: "ge100-0/0/31.251", VLANID: 251, AdminStatus: "up", OperStatus: "up"},
			{DeviceName: "LEAF-B", InterfaceName: "ge100-0/0/32.251", VLANID: 251, AdminStatus: "up", OperStatus: "up"},
		},
	}

	result, err := s.PopulateBridgeDomain(discovery)
	if err != nil {
		t.Fatalf("PopulateBridgeDomain() error = %v", err)
	}
	if !result.Success || result.Added != 1 || result.Updated != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	bd, err := s.GetBridgeDomain("g_visaev_v251")
	if err != nil {
		t.Fatalf("GetBridgeDomain() error = %v", err)
	}
	if bd["username"] != "visaev" || bd["vlan_id"] != "251" {
		t.Errorf("unexpected bridge domain row: %+v", bd)
	}
	if bd["discovery_data"] == "" {
		t.Error("expected discovery_data blob to be populated")
	}

	assoc, err := s.GetBridgeDomainInterface("g_visaev_v251", "LEAF-A", "ge100-0/0/31.251")
	if err != nil {
		t.Fatalf("GetBridgeDomainInterface() error = %v", err)
	}
	if assoc["vlan_id"] != "251" {
		t.Errorf("unexpected association row: %+v", assoc)
	}
}

// TestPopulateBridgeDomainIsIdempotent covers the round-trip law:
// populate-bridge-domain(x) applied twice equals applied once.
func TestPopulateBridgeDomainIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	discovery := types.BridgeDomainDiscovery{
		BridgeDomainName: "g_visaev_v251",
		Username:         "visaev",
		VLANID:           251,
		Interfaces: []types.InterfaceRecord{
			{DeviceName: "LEAF-A", InterfaceName: "ge100-0/0/31.251", VLANID: 251, AdminStatus: "up", OperStatus: "up"},
		},
	}

	if _, err := s.PopulateBridgeDomain(discovery); err != nil {
		t.Fatalf("first PopulateBridgeDomain() error = %v", err)
	}
	first, err := s.GetBridgeDomain("g_visaev_v251")
	if err != nil {
		t.Fatalf("GetBridgeDomain() error = %v", err)
	}

	if _, err := s.PopulateBridgeDomain(discovery); err != nil {
		t.Fatalf("second PopulateBridgeDomain() error = %v", err)
	}
	second, err := s.GetBridgeDomain("g_visaev_v251")
	if err != nil {
		t.Fatalf("GetBridgeDomain() error = %v", err)
	}

	if first["discovery_data"] != second["discovery_data"] {
		t.Errorf("discovery_data changed across idempotent applications:\nfirst:  %s\nsecond: %s",
			first["discovery_data"], second["discovery_data"])
	}
	if first["configuration_data"] != second["configuration_data"] {
		t.Error("configuration_data changed across idempotent applications")
	}
}

// TestUpdateBridgeDomainDiscoveryBlobNoDuplicateEntries covers testable
// property 6: no duplicate entries inside the bridge-domain discovery blob
// when the same interface is synced twice.
func TestUpdateBridgeDomainDiscoveryBlobNoDuplicateEntries(t *testing.T) {
	s, _ := newTestStore(t)

	discovery := types.BridgeDomainDiscovery{BridgeDomainName: "g_visaev_v251", VLANID: 251}
	if _, err := s.PopulateBridgeDomain(discovery); err != nil {
		t.Fatalf("PopulateBridgeDomain() error = %v", err)
	}

	rec := types.InterfaceRecord{DeviceName: "LEAF-A", InterfaceName: "ge100-0/0/31.251", VLANID: 251, AdminStatus: "up", OperStatus: "up"}

	ok, err := s.UpdateBridgeDomainDiscoveryBlob("g_visaev_v251", rec)
	if err != nil || !ok {
		t.Fatalf("first UpdateBridgeDomainDiscoveryBlob() = %v, %v, want true, nil", ok, err)
	}

	rec.OperStatus = "down"
	ok, err = s.UpdateBridgeDomainDiscoveryBlob("g_visaev_v251", rec)
	if err != nil || !ok {
		t.Fatalf("second UpdateBridgeDomainDiscoveryBlob() = %v, %v, want true, nil", ok, err)
	}

	bd, err := s.GetBridgeDomain("g_visaev_v251")
	if err != nil {
		t.Fatalf("GetBridgeDomain() error = %v", err)
	}

	count := strings.Count(bd["discovery_data"], `"name":"ge100-0/0/31.251"`)
	if count != 1 {
		t.Errorf("expected exactly one blob entry for the interface, found %d in %s", count, bd["discovery_data"])
	}
	if !strings.Contains(bd["discovery_data"], `"oper_status":"down"`) {
		t.Errorf("expected updated oper_status to be reflected in blob: %s", bd["discovery_data"])
	}
}

func TestUpdateBridgeDomainDiscoveryBlobMissingBridgeDomain(t *testing.T) {
	s, _ := newTestStore(t)

	ok, err := s.UpdateBridgeDomainDiscoveryBlob("no-such-bd", types.InterfaceRecord{DeviceName: "LEAF-A", InterfaceName: "ge100-0/0/1"})
	if err != nil {
		t.Fatalf("UpdateBridgeDomainDiscoveryBlob() error = %v", err)
	}
	if ok {
		t.Error("expected false for a bridge domain with no BRIDGE_DOMAIN row")
	}
}
