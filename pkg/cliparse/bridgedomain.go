package cliparse

import (
	"regexp"
	"strings"

	"github.com/visaev-dn/fleetctl/pkg/types"
)

var (
	bdInstanceLineRe = regexp.MustCompile(`network-services bridge-domain instance (\S+)`)
	bdIfaceRe        = regexp.MustCompile(`interface ([^\s^]+)`)
)

// ParseBridgeDomainInterfaceAssociations extracts every "interface <name>"
// association from a single bridge-domain's filtered config output (e.g.
// `show config | fl | i "bridge-domain instance <name>"`), in appearance
// order with duplicates removed.
func ParseBridgeDomainInterfaceAssociations(output string) []string {
	seen := map[string]bool{}
	var ifaces []string
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(StripANSIColor(raw))
		if m := bdIfaceRe.FindStringSubmatch(line); m != nil {
			if !seen[m[1]] {
				seen[m[1]] = true
				ifaces = append(ifaces, m[1])
			}
		}
	}
	return ifaces
}

// ParseBridgeDomainSummaryNames extracts bridge-domain names from a `show
// network-services bridge-domain` table listing.
func ParseBridgeDomainSummaryNames(output string) []string {
	var names []string
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "|") || strings.Contains(line, "Name") || strings.Contains(line, "---") || line == "|" {
			continue
		}
		parts := splitPipeRow(line)
		if len(parts) >= 2 && parts[1] != "" && parts[1] != "Name" {
			names = append(names, parts[1])
		}
	}
	return names
}

// bdCursor tracks the bridge domain instance currently being accumulated
// across a run of continuation lines, matching the state the teacher's
// parse_bridge_domain_instance keeps in `current_bridge_domain`.
type bdCursor struct {
	name       string
	adminUp    bool
	interfaces []string
	seen       map[string]bool
}

// ParseBridgeDomainInstances parses `show config | fl | i "bridge-domain
// instance"` output into one BridgeDomainInstance per distinct name. Each
// physical config line repeats the full "network-services bridge-domain
// instance <NAME>" prefix, but interface and admin-state clauses may
// appear on that same line or on later continuation lines that omit the
// prefix and share the most recently seen name — hence the cursor.
func ParseBridgeDomainInstances(device, output string) []types.BridgeDomainInstance {
	order := []string{}
	byName := map[string]*bdCursor{}
	var cur *bdCursor

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(StripANSIColor(raw))
		if line == "" {
			continue
		}

		if m := bdInstanceLineRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			c, ok := byName[name]
			if !ok {
				c = &bdCursor{name: name, seen: map[string]bool{}}
				byName[name] = c
				order = append(order, name)
			}
			cur = c
		}

		if cur == nil {
			continue
		}

		if m := bdIfaceRe.FindStringSubmatch(line); m != nil {
			iface := m[1]
			if !cur.seen[iface] {
				cur.seen[iface] = true
				cur.interfaces = append(cur.interfaces, iface)
			}
		}
		if strings.Contains(line, "admin-state enabled") {
			cur.adminUp = true
		} else if strings.Contains(line, "admin-state disabled") {
			cur.adminUp = false
		}
	}

	instances := make([]types.BridgeDomainInstance, 0, len(order))
	for _, name := range order {
		c := byName[name]
		instances = append(instances, BuildBridgeDomainInstance(device, c.name, c.interfaces))
	}
	return instances
}

// BuildBridgeDomainInstance assembles a BridgeDomainInstance from a parsed
// name and its member interfaces, deriving VLAN and topology the way the
// drift detector's naming convention implies: a "g_<user>_..." name is
// global scope, anything else defaults to local scope. Topology is
// inferred from member count pending LLDP cross-reference.
func BuildBridgeDomainInstance(device, name string, interfaces []string) types.BridgeDomainInstance {
	scope := types.ScopeLocal
	username := ""
	if strings.HasPrefix(name, "g_") {
		scope = types.ScopeGlobal
		parts := strings.SplitN(name, "_", 3)
		if len(parts) >= 2 {
			username = parts[1]
		}
	}

	vlan, _ := DeriveVLAN(0, "", name)

	ifaceRecords := make([]types.BridgeDomainInterface, 0, len(interfaces))
	for _, iface := range interfaces {
		ifaceRecords = append(ifaceRecords, types.BridgeDomainInterface{
			DeviceName:    device,
			InterfaceName: iface,
		})
	}

	topology := types.TopologyUnknown
	switch {
	case len(interfaces) == 2:
		topology = types.TopologyP2P
	case len(interfaces) > 2:
		topology = types.TopologyP2MP
	}

	return types.BridgeDomainInstance{
		Name:         name,
		Username:     username,
		PrimaryVLAN:  vlan,
		TopologyType: topology,
		Scope:        scope,
		Devices:      []string{device},
		Interfaces:   ifaceRecords,
	}
}
