// Package store implements the Database Updater: the write-back half of
// drift resolution. It persists freshly discovered interface and
// bridge-domain configurations to Redis using the same "TABLE|key" hash
// convention the teacher's pkg/device.ConfigDBClient uses for SONiC's
// config_db, across three tables that replace the original Python's SQLite
// schema: DISCOVERED_INTERFACE (interface_discovery), BRIDGE_DOMAIN
// (bridge_domains, carrying a JSON discovery_data blob), and
// BRIDGE_DOMAIN_INTERFACE (bridge_domain_interfaces). Grounded on
// original_source/services/configuration_drift/database_updater.py's
// DatabaseConfigurationUpdater and db_population_adapter.py's
// BridgeDomainDatabasePopulationAdapter.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

// discoveredInterfaceTable is the Redis table prefix this store owns,
// matching the "TABLE|key" convention used throughout the fleet's other
// Redis-backed tables.
const discoveredInterfaceTable = "DISCOVERED_INTERFACE"

// bridgeDomainTable carries one row per bridge domain, keyed by name, with
// a JSON discovery_data blob a downstream BD editor consumes.
const bridgeDomainTable = "BRIDGE_DOMAIN"

// bridgeDomainInterfaceTable is the per-bridge-domain-interface
// association table, keyed by (bridge-domain name, device, interface).
const bridgeDomainInterfaceTable = "BRIDGE_DOMAIN_INTERFACE"

// Store is a Redis-backed Database Updater. It satisfies pkg/drift.Updater.
type Store struct {
	client *redis.Client
	ctx    context.Context
}

// New opens a Store against the Redis instance at addr, on db (the teacher
// reserves 4 for CONFIG_DB and 6 for STATE_DB; callers of this store should
// pick a distinct db number for discovered-interface bookkeeping).
func New(addr string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ctx:    context.Background(),
	}
}

// Connect verifies the Redis connection is live.
func (s *Store) Connect() error {
	return s.client.Ping(s.ctx).Err()
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// recordKey builds the "device/interface" part of one record's Redis key;
// redisKey adds the "TABLE|" prefix.
// Device and interface are joined with a slash so the key space stays one
// hash-entry-per-interface even across devices sharing interface names.
func recordKey(deviceName, interfaceName string) string {
	return fmt.Sprintf("%s/%s", deviceName, interfaceName)
}

// UpdateDiscoveredConfigs writes a batch of freshly discovered interface
// records, updating any that already exist and adding any that don't. It
// mirrors update_database_with_discovered_configs: per-record failures are
// collected into SyncResult.PerRecordErrors rather than aborting the batch,
// and Success is true only if the batch produced zero errors.
func (s *Store) UpdateDiscoveredConfigs(records []types.InterfaceRecord) (*types.SyncResult, error) {
	start := time.Now()
	result := &types.SyncResult{}

	for _, rec := range records {
		key := recordKey(rec.DeviceName, rec.InterfaceName)

		existing, err := s.client.HGetAll(s.ctx, s.redisKey(key)).Result()
		if err != nil {
			result.PerRecordErrors = append(result.PerRecordErrors,
				fmt.Sprintf("%s/%s: %v", rec.DeviceName, rec.InterfaceName, err))
			continue
		}

		if len(existing) > 0 {
			if err := s.updateExisting(key, rec); err != nil {
				result.PerRecordErrors = append(result.PerRecordErrors,
					fmt.Sprintf("%s/%s: %v", rec.DeviceName, rec.InterfaceName, err))
				continue
			}
			result.Updated++
		} else {
			if err := s.addNew(key, rec); err != nil {
				result.PerRecordErrors = append(result.PerRecordErrors,
					fmt.Sprintf("%s/%s: %v", rec.DeviceName, rec.InterfaceName, err))
				continue
			}
			result.Added++
		}
	}

	result.Duration = time.Since(start)
	result.Success = len(result.PerRecordErrors) == 0
	return result, nil
}

// describeVLANUpdate mirrors the original's f"VLAN {N} - Updated by drift
// sync" annotation, falling back to the record's own description when it
// carries no VLAN.
func describeVLANUpdate(rec types.InterfaceRecord) string {
	if rec.VLANID != 0 {
		return fmt.Sprintf("VLAN %d - Updated by drift sync", rec.VLANID)
	}
	return rec.Description
}

// describeVLANAdd mirrors the original's f"VLAN {N} - Added by drift sync"
// annotation.
func describeVLANAdd(rec types.InterfaceRecord) string {
	if rec.VLANID != 0 {
		return fmt.Sprintf("VLAN %d - Added by drift sync", rec.VLANID)
	}
	return rec.Description
}

func (s *Store) updateExisting(key string, rec types.InterfaceRecord) error {
	fields := map[string]string{
		"admin_status":    rec.AdminStatus,
		"oper_status":     rec.OperStatus,
		"interface_type":  string(rec.InterfaceType),
		"discovered_at":   time.Now().UTC().Format(time.RFC3339),
		"description":     describeVLANUpdate(rec),
	}
	if rec.VLANID != 0 {
		fields["vlan_id"] = fmt.Sprintf("%d", rec.VLANID)
	}
	return s.hsetAll(key, fields)
}

func (s *Store) addNew(key string, rec types.InterfaceRecord) error {
	fields := map[string]string{
		"device_name":      rec.DeviceName,
		"interface_name":   rec.InterfaceName,
		"admin_status":     rec.AdminStatus,
		"oper_status":      rec.OperStatus,
		"interface_type":   string(rec.InterfaceType),
		"discovered_at":    time.Now().UTC().Format(time.RFC3339),
		"description":      describeVLANAdd(rec),
		"device_reachable": "true",
		"discovery_errors": "[]",
	}
	if rec.VLANID != 0 {
		fields["vlan_id"] = fmt.Sprintf("%d", rec.VLANID)
	}
	return s.hsetAll(key, fields)
}

// hsetAll writes every field of a hash entry in one pipelined call, the same
// shape ConfigDBClient.Set uses for multi-field table entries.
func (s *Store) hsetAll(key string, fields map[string]string) error {
	args := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	pairs := make([]interface{}, len(args))
	for i, a := range args {
		pairs[i] = a
	}
	return s.client.HSet(s.ctx, s.redisKey(key), pairs...).Err()
}

func (s *Store) redisKey(key string) string {
	return fmt.Sprintf("%s|%s", discoveredInterfaceTable, key)
}

// Get reads back one discovered-interface entry, for inspection and tests.
func (s *Store) Get(deviceName, interfaceName string) (map[string]string, error) {
	vals, err := s.client.HGetAll(s.ctx, s.redisKey(recordKey(deviceName, interfaceName))).Result()
	if err != nil {
		return nil, util.NewStoreError("get-discovered-interface", err)
	}
	return vals, nil
}

// Exists reports whether a discovered-interface entry is already present,
// for tests and CLI inspection. UpdateDiscoveredConfigs does not call it;
// it branches on the result of its own HGetAll.
func (s *Store) Exists(deviceName, interfaceName string) (bool, error) {
	n, err := s.client.Exists(s.ctx, s.redisKey(recordKey(deviceName, interfaceName))).Result()
	if err != nil {
		return false, util.NewStoreError("exists-discovered-interface", err)
	}
	return n > 0, nil
}

// Keys returns every discovered-interface Redis key, for bulk export/debug.
func (s *Store) Keys() ([]string, error) {
	keys, err := s.client.Keys(s.ctx, discoveredInterfaceTable+"|*").Result()
	if err != nil {
		return nil, util.NewStoreError("keys-discovered-interface", err)
	}
	return keys, nil
}

// Delete removes one discovered-interface entry.
func (s *Store) Delete(deviceName, interfaceName string) error {
	if err := s.client.Del(s.ctx, s.redisKey(recordKey(deviceName, interfaceName))).Err(); err != nil {
		return util.NewStoreError("delete-discovered-interface", err)
	}
	return nil
}

func (s *Store) bridgeDomainKey(bdName string) string {
	return fmt.Sprintf("%s|%s", bridgeDomainTable, bdName)
}

func (s *Store) bridgeDomainInterfaceKey(bdName, deviceName, interfaceName string) string {
	return fmt.Sprintf("%s|%s/%s/%s", bridgeDomainInterfaceTable, bdName, deviceName, interfaceName)
}

// bridgeDomainInterfaceEntry is one interface's record inside a bridge
// domain's discovery_data JSON blob, the shape a downstream BD editor
// consumes. Mirrors db_population_adapter.py's
// update_bridge_domain_discovery_data per-interface dict.
type bridgeDomainInterfaceEntry struct {
	Name               string   `json:"name"`
	VLANID             int      `json:"vlan_id,omitempty"`
	Role               string   `json:"role"`
	Type               string   `json:"type,omitempty"`
	AdminStatus        string   `json:"admin_status,omitempty"`
	OperStatus         string   `json:"oper_status,omitempty"`
	L2ServiceEnabled   bool     `json:"l2_service_enabled"`
	RawCLIConfig       []string `json:"raw_cli_config,omitempty"`
	AddedByDriftSync   bool     `json:"added_by_drift_sync,omitempty"`
	UpdatedByDriftSync bool     `json:"updated_by_drift_sync,omitempty"`
}

// bridgeDomainDeviceSection is one device's bucket of interfaces inside a
// bridge domain's discovery_data blob.
type bridgeDomainDeviceSection struct {
	Interfaces []bridgeDomainInterfaceEntry `json:"interfaces"`
}

// bridgeDomainDiscoveryData is the full discovery_data JSON blob stored on
// a BRIDGE_DOMAIN row, keyed by device name — the Go shape of the
// original's `discovery_data['devices'][device]['interfaces']` nesting.
type bridgeDomainDiscoveryData struct {
	Devices map[string]*bridgeDomainDeviceSection `json:"devices"`
}

func loadDiscoveryData(raw string) bridgeDomainDiscoveryData {
	data := bridgeDomainDiscoveryData{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &data)
	}
	if data.Devices == nil {
		data.Devices = map[string]*bridgeDomainDeviceSection{}
	}
	return data
}

// interfaceEntryFromRecord converts a discovered InterfaceRecord into a
// blob entry, tagging it added-by-drift-sync or updated-by-drift-sync the
// way the original annotates freshly-written interfaces.
func interfaceEntryFromRecord(rec types.InterfaceRecord, added bool) bridgeDomainInterfaceEntry {
	e := bridgeDomainInterfaceEntry{
		Name:             rec.InterfaceName,
		VLANID:           rec.VLANID,
		Role:             "access",
		Type:             string(rec.InterfaceType),
		AdminStatus:      rec.AdminStatus,
		OperStatus:       rec.OperStatus,
		L2ServiceEnabled: rec.L2ServiceEnable,
		RawCLIConfig:     rec.RawCLILines,
	}
	if added {
		e.AddedByDriftSync = true
	} else {
		e.UpdatedByDriftSync = true
	}
	return e
}

// UpdateBridgeDomainDiscoveryBlob folds a newly discovered interface into
// bdName's discovery_data JSON blob: the device section is created if
// absent, and the interface is added if no entry with that name exists yet
// or updated in place (preserving sibling fields) if one does. The parent
// row's updated_at is refreshed either way. Mirrors
// db_population_adapter.py's update_bridge_domain_discovery_data. Reports
// false, nil if bdName has no BRIDGE_DOMAIN row to update.
func (s *Store) UpdateBridgeDomainDiscoveryBlob(bdName string, newInterface types.InterfaceRecord) (bool, error) {
	raw, err := s.client.HGet(s.ctx, s.bridgeDomainKey(bdName), "discovery_data").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, util.NewStoreError("update-bridge-domain-discovery-blob", err)
	}

	data := loadDiscoveryData(raw)
	device := data.Devices[newInterface.DeviceName]
	if device == nil {
		device = &bridgeDomainDeviceSection{}
		data.Devices[newInterface.DeviceName] = device
	}

	found := false
	for i, existing := range device.Interfaces {
		if existing.Name == newInterface.InterfaceName {
			updated := existing
			updated.VLANID = newInterface.VLANID
			updated.Type = string(newInterface.InterfaceType)
			updated.AdminStatus = newInterface.AdminStatus
			updated.OperStatus = newInterface.OperStatus
			updated.L2ServiceEnabled = newInterface.L2ServiceEnable
			updated.RawCLIConfig = newInterface.RawCLILines
			updated.UpdatedByDriftSync = true
			device.Interfaces[i] = updated
			found = true
			break
		}
	}
	if !found {
		device.Interfaces = append(device.Interfaces, interfaceEntryFromRecord(newInterface, true))
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return false, util.NewStoreError("update-bridge-domain-discovery-blob", err)
	}

	err = s.client.HSet(s.ctx, s.bridgeDomainKey(bdName), map[string]interface{}{
		"discovery_data": string(encoded),
		"updated_at":     time.Now().UTC().Format(time.RFC3339),
	}).Err()
	if err != nil {
		return false, util.NewStoreError("update-bridge-domain-discovery-blob", err)
	}
	return true, nil
}

// PopulateBridgeDomain validates a discovery result and upserts its
// BRIDGE_DOMAIN row — carrying a freshly-built discovery_data blob — plus
// its per-bridge-domain-interface association rows, then synchronizes the
// interface-records table for coherence. Mirrors
// db_population_adapter.py's populate_from_targeted_discovery: validate,
// insert/update bridge_domains, insert/update bridge_domain_interfaces,
// update interface_discovery.
func (s *Store) PopulateBridgeDomain(discovery types.BridgeDomainDiscovery) (*types.SyncResult, error) {
	start := time.Now()

	if discovery.BridgeDomainName == "" {
		return &types.SyncResult{
			Success:         false,
			PerRecordErrors: []string{"bridge domain name is required"},
			Duration:        time.Since(start),
		}, nil
	}
	if len(discovery.Interfaces) == 0 && discovery.VLANID == 0 {
		return &types.SyncResult{
			Success:         false,
			PerRecordErrors: []string{"discovery carries no configuration data: no interfaces and no VLAN"},
			Duration:        time.Since(start),
		}, nil
	}

	blob := bridgeDomainDiscoveryData{Devices: map[string]*bridgeDomainDeviceSection{}}
	for _, rec := range discovery.Interfaces {
		device := blob.Devices[rec.DeviceName]
		if device == nil {
			device = &bridgeDomainDeviceSection{}
			blob.Devices[rec.DeviceName] = device
		}
		duplicate := false
		for _, existing := range device.Interfaces {
			if existing.Name == rec.InterfaceName {
				duplicate = true
				break
			}
		}
		if !duplicate {
			device.Interfaces = append(device.Interfaces, interfaceEntryFromRecord(rec, true))
		}
	}

	configData, err := json.Marshal(discovery)
	if err != nil {
		return nil, util.NewStoreError("populate-bridge-domain", err)
	}
	discoveryData, err := json.Marshal(blob)
	if err != nil {
		return nil, util.NewStoreError("populate-bridge-domain", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	fields := map[string]interface{}{
		"name":               discovery.BridgeDomainName,
		"username":           discovery.Username,
		"vlan_id":            fmt.Sprintf("%d", discovery.VLANID),
		"dnaas_type":         discovery.DNAASType,
		"topology_type":      string(discovery.TopologyType),
		"configuration_data": string(configData),
		"discovery_data":     string(discoveryData),
		"updated_at":         now,
	}
	if err := s.client.HSet(s.ctx, s.bridgeDomainKey(discovery.BridgeDomainName), fields).Err(); err != nil {
		return nil, util.NewStoreError("populate-bridge-domain", err)
	}

	interfaceCount, err := s.upsertBridgeDomainInterfaces(discovery.BridgeDomainName, discovery.Interfaces)
	if err != nil {
		return nil, err
	}

	result := &types.SyncResult{Success: true, Added: 1, Updated: interfaceCount}

	if len(discovery.Interfaces) > 0 {
		recordSync, err := s.UpdateDiscoveredConfigs(discovery.Interfaces)
		if err != nil {
			return nil, err
		}
		result.PerRecordErrors = append(result.PerRecordErrors, recordSync.PerRecordErrors...)
		result.Success = result.Success && recordSync.Success
	}

	result.Duration = time.Since(start)
	return result, nil
}

// upsertBridgeDomainInterfaces writes one association row per discovered
// interface, keyed by (bridge-domain name, device, interface) — the Redis
// analog of _insert_or_update_bridge_domain_interfaces's
// bridge_domain_interfaces table.
func (s *Store) upsertBridgeDomainInterfaces(bdName string, interfaces []types.InterfaceRecord) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range interfaces {
		fields := map[string]interface{}{
			"bridge_domain_name": bdName,
			"device_name":        rec.DeviceName,
			"interface_name":     rec.InterfaceName,
			"interface_type":     string(rec.InterfaceType),
			"vlan_id":            fmt.Sprintf("%d", rec.VLANID),
			"admin_status":       rec.AdminStatus,
			"oper_status":        rec.OperStatus,
			"l2_service_enabled": fmt.Sprintf("%t", rec.L2ServiceEnable),
			"discovered_at":      now,
		}
		key := s.bridgeDomainInterfaceKey(bdName, rec.DeviceName, rec.InterfaceName)
		if err := s.client.HSet(s.ctx, key, fields).Err(); err != nil {
			return 0, util.NewStoreError("populate-bridge-domain-interfaces", err)
		}
	}
	return len(interfaces), nil
}

// GetBridgeDomain reads back one BRIDGE_DOMAIN row, for inspection and
// tests.
func (s *Store) GetBridgeDomain(bdName string) (map[string]string, error) {
	vals, err := s.client.HGetAll(s.ctx, s.bridgeDomainKey(bdName)).Result()
	if err != nil {
		return nil, util.NewStoreError("get-bridge-domain", err)
	}
	return vals, nil
}

// GetBridgeDomainInterface reads back one bridge-domain-interface
// association row, for inspection and tests.
func (s *Store) GetBridgeDomainInterface(bdName, deviceName, interfaceName string) (map[string]string, error) {
	vals, err := s.client.HGetAll(s.ctx, s.bridgeDomainInterfaceKey(bdName, deviceName, interfaceName)).Result()
	if err != nil {
		return nil, util.NewStoreError("get-bridge-domain-interface", err)
	}
	return vals, nil
}
