package cliparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

var (
	runningConfigVLANRe = regexp.MustCompile(`interfaces\s+(\S+)\s+vlan-id\s+(\d+)`)
	l2ServiceRe          = regexp.MustCompile(`interfaces\s+(\S+)\s+l2-service\s+(enabled|disabled)`)
	adminStateRe         = regexp.MustCompile(`interfaces\s+(\S+)\s+admin-state\s+(enabled|disabled)`)

	// bdNameVLANPatterns match a trailing numeric VLAN embedded in a
	// bridge-domain name, tried in order as a last-resort derivation
	// source when neither running-config nor the interface name carry it.
	bdNameVLANPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^g_[a-z0-9]+_v(\d+)$`),
		regexp.MustCompile(`(?i)_v(\d+)$`),
		regexp.MustCompile(`(\d+)$`),
	}
)

// ParseRunningConfigVLANs scans `show running-config` (or an equivalent
// filtered dump) for per-interface vlan-id, l2-service, and admin-state
// lines and returns one VLANConfig per interface that carries a vlan-id.
// ANSI color codes are stripped before matching, since some devices wrap
// interface names in them.
func ParseRunningConfigVLANs(device, output string) []types.VLANConfig {
	type accum struct {
		vlan    int
		hasVLAN bool
		raw     string
	}
	byIface := make(map[string]*accum)
	var order []string

	for _, raw := range strings.Split(output, "\n") {
		line := StripANSIColor(raw)

		if m := runningConfigVLANRe.FindStringSubmatch(line); m != nil {
			iface := m[1]
			vlan, _ := strconv.Atoi(m[2])
			a, ok := byIface[iface]
			if !ok {
				a = &accum{}
				byIface[iface] = a
				order = append(order, iface)
			}
			a.vlan = vlan
			a.hasVLAN = true
			a.raw = strings.TrimSpace(line)
			continue
		}
		if m := l2ServiceRe.FindStringSubmatch(line); m != nil {
			iface := m[1]
			if _, ok := byIface[iface]; !ok {
				byIface[iface] = &accum{}
				order = append(order, iface)
			}
			continue
		}
		if m := adminStateRe.FindStringSubmatch(line); m != nil {
			iface := m[1]
			if _, ok := byIface[iface]; !ok {
				byIface[iface] = &accum{}
				order = append(order, iface)
			}
		}
	}

	var out []types.VLANConfig
	for _, iface := range order {
		a := byIface[iface]
		if !a.hasVLAN {
			continue
		}
		out = append(out, types.VLANConfig{
			DeviceName:    device,
			InterfaceName: iface,
			VLANID:        a.vlan,
			Kind:          types.VLANSubinterface,
			RawLine:       a.raw,
		})
	}
	return out
}

// ParseRunningConfigVLANsAsRecords is ParseRunningConfigVLANs's sibling
// for callers that want the fuller InterfaceRecord shape (including
// l2-service and admin-state) instead of the narrower VLANConfig — used
// by targeted discovery when merging running-config data into an
// interface-table-derived record.
func ParseRunningConfigVLANsAsRecords(device, output string) []types.InterfaceRecord {
	type accum struct {
		vlan        int
		l2Enable    bool
		adminStatus string
	}
	byIface := make(map[string]*accum)
	var order []string

	ensure := func(iface string) *accum {
		a, ok := byIface[iface]
		if !ok {
			a = &accum{}
			byIface[iface] = a
			order = append(order, iface)
		}
		return a
	}

	for _, raw := range strings.Split(output, "\n") {
		line := StripANSIColor(raw)

		if m := runningConfigVLANRe.FindStringSubmatch(line); m != nil {
			vlan, _ := strconv.Atoi(m[2])
			ensure(m[1]).vlan = vlan
			continue
		}
		if m := l2ServiceRe.FindStringSubmatch(line); m != nil {
			ensure(m[1]).l2Enable = m[2] == "enabled"
			continue
		}
		if m := adminStateRe.FindStringSubmatch(line); m != nil {
			ensure(m[1]).adminStatus = m[2]
		}
	}

	out := make([]types.InterfaceRecord, 0, len(order))
	for _, iface := range order {
		a := byIface[iface]
		kind := types.InterfacePhysical
		if strings.Contains(iface, ".") {
			kind = types.InterfaceSubinterface
		} else if strings.HasPrefix(iface, "bundle-") {
			kind = types.InterfaceBundle
		}
		out = append(out, types.InterfaceRecord{
			DeviceName:      device,
			InterfaceName:   iface,
			InterfaceType:   kind,
			VLANID:          a.vlan,
			AdminStatus:     a.adminStatus,
			L2ServiceEnable: a.l2Enable,
			Source:          "running-config-discovery",
		})
	}
	return out
}

// DeriveVLAN resolves an interface's VLAN ID using the precedence the
// spec requires: a running-config-discovered value wins outright; failing
// that, a dotted numeric suffix on the interface name (ge100-0/0/0.251 ->
// 251); failing that, a numeric tail embedded in the bridge-domain name.
// Returns (0, false) if no source yields a value in [1, 4094].
func DeriveVLAN(runningConfigVLAN int, interfaceName, bridgeDomainName string) (int, bool) {
	if util.ValidVLAN(runningConfigVLAN) {
		return runningConfigVLAN, true
	}

	if i := strings.LastIndex(interfaceName, "."); i >= 0 {
		suffix := interfaceName[i+1:]
		suffix = strings.TrimSuffix(suffix, "(L2)")
		suffix = strings.TrimSpace(suffix)
		if v, err := strconv.Atoi(suffix); err == nil && util.ValidVLAN(v) {
			return v, true
		}
	}

	for _, pattern := range bdNameVLANPatterns {
		if m := pattern.FindStringSubmatch(bridgeDomainName); m != nil {
			if v, err := strconv.Atoi(m[len(m)-1]); err == nil && util.ValidVLAN(v) {
				return v, true
			}
		}
	}

	return 0, false
}
