// Package discovery implements Targeted Discovery: bridge-domain-first,
// on-demand config discovery for a single device, used by the drift
// detector and sync resolver to answer "what does this device actually
// have configured" without doing a full-fleet probe. Grounded on
// original_source/services/configuration_drift/targeted_discovery.py's
// TargetedConfigurationDiscovery.
package discovery

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/visaev-dn/fleetctl/pkg/cliparse"
	"github.com/visaev-dn/fleetctl/pkg/session"
	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

// BridgeDomainDiscoveryResult is the outcome of discovering one bridge
// domain's configuration on one device.
type BridgeDomainDiscoveryResult struct {
	BridgeDomainName string
	DeviceName       string
	Interfaces       []string
	InterfaceConfigs []types.InterfaceRecord
	Success          bool
	ErrorMessage     string
}

const queryTimeout = 30 * time.Second

// DiscoverBridgeDomainConfiguration discovers one bridge domain's member
// interfaces and their VLAN/L2-service configuration on dev's session,
// using the filtered "bridge-domain instance <name>" config command
// rather than a full running-config dump.
func DiscoverBridgeDomainConfiguration(sess *session.Session, bdName string) BridgeDomainDiscoveryResult {
	device := sess.Device().Name
	bdCommand := fmt.Sprintf("show config | fl | i \"bridge-domain instance %s\"", bdName)

	out, err := sess.SendUntilPrompt(bdCommand, queryTimeout)
	if err != nil || strings.TrimSpace(out) == "" {
		return BridgeDomainDiscoveryResult{
			BridgeDomainName: bdName,
			DeviceName:       device,
			Success:          false,
			ErrorMessage:     "bridge domain not found on device",
		}
	}

	interfaces := cliparse.ParseBridgeDomainInterfaceAssociations(out)
	if len(interfaces) == 0 {
		return BridgeDomainDiscoveryResult{
			BridgeDomainName: bdName,
			DeviceName:       device,
			Success:          false,
			ErrorMessage:     "bridge domain not found on device",
		}
	}

	var configs []types.InterfaceRecord
	for _, iface := range interfaces {
		basePattern := iface
		if i := strings.Index(iface, "."); i >= 0 {
			basePattern = iface[:i]
		}
		configs = append(configs, discoverInterfaceConfigurationsFor(sess, basePattern, iface)...)
	}

	return BridgeDomainDiscoveryResult{
		BridgeDomainName: bdName,
		DeviceName:       device,
		Interfaces:       interfaces,
		InterfaceConfigs: configs,
		Success:          true,
	}
}

// DiscoverInterfaceConfigurations queries one interface pattern (e.g. a
// bare physical name used as a prefix match across its subinterfaces) and
// returns the merged interface-table/running-config records for it. This
// is the entry point the Sync Resolver uses for a targeted re-discovery
// when a single interface's drift needs resolving, as opposed to
// DiscoverBridgeDomainConfiguration's whole-bridge-domain sweep.
func DiscoverInterfaceConfigurations(sess *session.Session, pattern string) []types.InterfaceRecord {
	return discoverInterfaceConfigurationsFor(sess, pattern, pattern)
}

// discoverInterfaceConfigurationsFor queries both the interface table and
// the filtered running config for one interface pattern and merges the
// two views, preferring the running-config VLAN and L2-service values when
// both sources report on the same interface.
func discoverInterfaceConfigurationsFor(sess *session.Session, pattern, target string) []types.InterfaceRecord {
	interfaceOut, ifErr := sess.SendUntilPrompt(fmt.Sprintf("show interfaces | no-more | i %s", pattern), queryTimeout)
	if ifErr != nil {
		util.WithDevice(sess.Device().Name).Warnf("interface table discovery failed for %s: %v", pattern, ifErr)
		return nil
	}

	configOut, cfgErr := sess.SendUntilPrompt(fmt.Sprintf("show config | fl | i %s", pattern), queryTimeout)
	if cfgErr != nil {
		configOut = ""
	}

	tableConfigs := parseInterfaceTable(sess.Device().Name, interfaceOut)
	var configConfigs []types.InterfaceRecord
	if configOut != "" && !strings.Contains(configOut, "ERROR:") {
		configConfigs = cliparse.ParseRunningConfigVLANsAsRecords(sess.Device().Name, configOut)
	}

	var out []types.InterfaceRecord
	for _, tc := range tableConfigs {
		baseTarget := target
		if i := strings.Index(target, "."); i >= 0 {
			baseTarget = target[:i]
		}
		if tc.InterfaceName != target && !strings.HasPrefix(tc.InterfaceName, baseTarget) {
			continue
		}

		merged := tc
		cleanTableName := strings.ReplaceAll(tc.InterfaceName, " (L2)", "")
		for _, cc := range configConfigs {
			if cc.InterfaceName == cleanTableName {
				merged = types.InterfaceRecord{
					DeviceName:      sess.Device().Name,
					InterfaceName:   tc.InterfaceName,
					InterfaceType:   interfaceTypeOf(tc.InterfaceName),
					VLANID:          coalesceVLAN(cc.VLANID, tc.VLANID),
					AdminStatus:     tc.AdminStatus,
					OperStatus:      tc.OperStatus,
					L2ServiceEnable: cc.L2ServiceEnable,
					Source:          "targeted-bd-discovery-merged",
				}
				break
			}
		}
		out = append(out, merged)
	}
	return out
}

// DiscoverInterfaceVLANs is the broader variant of
// DiscoverInterfaceConfigurations: instead of scoping to one interface
// pattern, it returns every `interfaces ... vlan-id ...` record the device
// reports. pattern, if non-empty, narrows the underlying command the same
// way a caller-supplied interface_pattern does in
// discover_interface_vlan_configurations; left empty it sweeps every VLAN
// on the device.
func DiscoverInterfaceVLANs(sess *session.Session, pattern string) ([]types.InterfaceRecord, error) {
	if pattern != "" {
		return discoverInterfaceConfigurationsFor(sess, pattern, pattern), nil
	}

	out, err := sess.SendUntilPrompt("show config | fl | i vlan", queryTimeout)
	if err != nil {
		return nil, util.NewSessionError(sess.Device().Name, "discover-interface-vlans", err)
	}
	return cliparse.ParseRunningConfigVLANsAsRecords(sess.Device().Name, out), nil
}

// DiscoverSpecificInterface finds one interface's discovered configuration,
// preferring an exact name match and falling back to the closest VLAN match
// when interfaceName carries a dotted VLAN suffix. A thin wrapper over the
// same discovery machinery DiscoverInterfaceConfigurations uses, grounded
// on discover_specific_interface_config's exact-then-closest-match
// sequence.
func DiscoverSpecificInterface(sess *session.Session, interfaceName string) (*types.InterfaceRecord, bool) {
	basePattern := interfaceName
	expectedVLAN := 0
	if i := strings.Index(interfaceName, "."); i >= 0 {
		basePattern = interfaceName[:i]
		if v, err := strconv.Atoi(interfaceName[i+1:]); err == nil {
			expectedVLAN = v
		}
	}

	configs := discoverInterfaceConfigurationsFor(sess, basePattern, interfaceName)

	for _, c := range configs {
		if c.InterfaceName == interfaceName {
			return &c, true
		}
	}

	if expectedVLAN != 0 {
		for _, c := range configs {
			if c.VLANID == expectedVLAN && strings.Contains(c.InterfaceName, basePattern) {
				return &c, true
			}
		}
	}

	return nil, false
}

func coalesceVLAN(preferred, fallback int) int {
	if preferred != 0 {
		return preferred
	}
	return fallback
}

func interfaceTypeOf(name string) types.InterfaceType {
	if strings.Contains(name, ".") {
		return types.InterfaceSubinterface
	}
	if strings.HasPrefix(name, "bundle-") {
		return types.InterfaceBundle
	}
	return types.InterfacePhysical
}

// parseInterfaceTable parses `show interfaces | no-more | i <pattern>`
// pipe-table rows: interface name, admin status, oper status, and a
// best-effort VLAN extracted from the dotted name suffix or a digit-only
// trailing column (skipping known MTU values).
func parseInterfaceTable(device, output string) []types.InterfaceRecord {
	var out []types.InterfaceRecord
	for _, raw := range strings.Split(output, "\n") {
		clean := cliparse.StripANSIColor(raw)
		if !strings.Contains(clean, "|") {
			continue
		}
		var cols []string
		for _, c := range strings.Split(clean, "|") {
			c = strings.TrimSpace(c)
			if c != "" {
				cols = append(cols, c)
			}
		}
		if len(cols) < 3 {
			continue
		}
		ifaceName := cols[0]
		if !strings.Contains(ifaceName, "ge") && !strings.Contains(ifaceName, "bundle-") {
			continue
		}

		vlan := 0
		if i := strings.LastIndex(ifaceName, "."); i >= 0 {
			suffix := strings.TrimSpace(strings.ReplaceAll(ifaceName[i+1:], "(L2)", ""))
			if v, err := strconv.Atoi(suffix); err == nil {
				vlan = v
			}
		}
		if vlan == 0 && len(cols) > 5 {
			if v, err := strconv.Atoi(cols[5]); err == nil {
				vlan = v
			}
		}
		if vlan == 0 {
			start := 3
			if start > len(cols) {
				start = len(cols)
			}
			for _, c := range cols[start:] {
				if v, err := strconv.Atoi(c); err == nil && v >= 1 && v <= 4094 && v != 1514 && v != 1518 {
					vlan = v
					break
				}
			}
		}

		out = append(out, types.InterfaceRecord{
			DeviceName:    device,
			InterfaceName: ifaceName,
			InterfaceType: interfaceTypeOf(ifaceName),
			VLANID:        vlan,
			AdminStatus:   cols[1],
			OperStatus:    cols[2],
			Source:        "interface-table-discovery",
		})
	}
	return out
}

// DiscoverDeviceFullConfig enumerates every bridge domain on dev and
// discovers each one's full interface configuration, assembling a
// DeviceConfigSnapshot.
func DiscoverDeviceFullConfig(sess *session.Session) (*types.DeviceConfigSnapshot, error) {
	device := sess.Device().Name
	snapshot := &types.DeviceConfigSnapshot{DeviceName: device, SnapshotTime: sess.ConnectedAt()}

	out, err := sess.SendUntilPrompt("show network-services bridge-domain | no-more", queryTimeout)
	if err != nil {
		return nil, util.NewSessionError(device, "discover-device-full-config", err)
	}

	bdNames := cliparse.ParseBridgeDomainSummaryNames(out)

	var allConfigs []types.InterfaceRecord
	for _, bd := range bdNames {
		result := DiscoverBridgeDomainConfiguration(sess, bd)
		if result.Success {
			allConfigs = append(allConfigs, result.InterfaceConfigs...)
		}
	}

	snapshot.InterfaceConfigs = allConfigs
	snapshot.TotalInterfaces = len(allConfigs)
	configured := 0
	for _, c := range allConfigs {
		if c.VLANID != 0 {
			configured++
		}
	}
	snapshot.ConfiguredInterfaces = configured
	return snapshot, nil
}

// DiscoveryValidation summarizes a sanity check over a batch of discovered
// interface records.
type DiscoveryValidation struct {
	TotalDiscovered int
	ValidConfigs    int
	InvalidConfigs  int
	Warnings        []string
	AccuracyScore   float64
}

// ValidateDiscoveryAccuracy flags implausible discovered records: VLAN IDs
// outside [1, 4094] and interface names that don't match the known
// physical/bundle naming convention. It never errors — everything it
// finds becomes a warning, and an accuracy score summarizes the batch.
func ValidateDiscoveryAccuracy(configs []types.InterfaceRecord) DiscoveryValidation {
	v := DiscoveryValidation{TotalDiscovered: len(configs)}

	for _, c := range configs {
		if util.ValidVLAN(c.VLANID) {
			v.ValidConfigs++
		} else {
			v.InvalidConfigs++
			v.Warnings = append(v.Warnings, fmt.Sprintf("invalid VLAN ID: %d on %s", c.VLANID, c.InterfaceName))
		}
		if !strings.HasPrefix(c.InterfaceName, "ge100-0/0/") && !strings.HasPrefix(c.InterfaceName, "bundle-") {
			v.Warnings = append(v.Warnings, fmt.Sprintf("unusual interface name: %s", c.InterfaceName))
		}
	}

	if v.TotalDiscovered > 0 {
		v.AccuracyScore = float64(v.ValidConfigs) / float64(v.TotalDiscovered)
	}
	return v
}
