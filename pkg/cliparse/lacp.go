package cliparse

import (
	"regexp"
	"strings"

	"github.com/visaev-dn/fleetctl/pkg/types"
)

var (
	localKeyRe  = regexp.MustCompile(`Key:\s*(\d+)`)
	peerKeyRe   = regexp.MustCompile(`Key:\s*(\d+|N/A)`)
	peerSysIDRe = regexp.MustCompile(`System-id:\s*([a-fA-F0-9:]+)`)
)

// ParseLACPInterfaces parses `show lacp interfaces` section output: one
// "Aggregate Interface:" block per bundle, each with Local:/Peer: key
// lines and a per-bundle actor/partner table. Only actor rows are kept as
// bundle members, matching the teacher parser (partner rows duplicate the
// same physical interface from the remote end's perspective).
func ParseLACPInterfaces(device, output string) map[string]*types.LACPBundle {
	bundles := make(map[string]*types.LACPBundle)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	var current *types.LACPBundle
	inTable := false
	keySection := ""

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if current != nil && strings.HasPrefix(line, "Local:") {
			keySection = "local"
		} else if current != nil && strings.HasPrefix(line, "Peer:") {
			keySection = "peer"
		}

		switch {
		case strings.HasPrefix(line, "Aggregate Interface:"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "Aggregate Interface:"))
			current = &types.LACPBundle{BundleName: name, DeviceName: device, Status: types.LACPActive}
			bundles[name] = current
			inTable = false
			keySection = ""

		case current != nil && keySection == "local" && strings.Contains(line, "Key:"):
			if m := localKeyRe.FindStringSubmatch(line); m != nil {
				current.LocalKey = m[1]
			}

		case current != nil && keySection == "peer" && strings.Contains(line, "Key:"):
			if m := peerKeyRe.FindStringSubmatch(line); m != nil && m[1] != "N/A" {
				current.PeerKey = m[1]
			}

		case current != nil && keySection == "peer" && strings.Contains(line, "System-id:"):
			if m := peerSysIDRe.FindStringSubmatch(line); m != nil && m[1] != "N/A" {
				current.PeerSystemID = m[1]
			}

		case strings.Contains(line, "| Interface") && strings.Contains(line, "| Role"):
			inTable = true

		case inTable && strings.Contains(line, "|") && !strings.HasPrefix(line, "|--"):
			parts := splitPipeRow(line)
			if len(parts) < 7 || current == nil {
				continue
			}
			ifaceName := parts[1]
			role := parts[2]
			portState := parts[3]
			if role != "actor" {
				continue
			}
			current.MemberInterfaces = append(current.MemberInterfaces, ifaceName)
			if portState == "standby" {
				current.Status = types.LACPStandby
			}

		case inTable && (line == "" || strings.HasPrefix(line, "Aggregate Interface:")):
			inTable = false
		}
	}

	return bundles
}

// ParseLACPCounters parses `show lacp counters` output, which correlates
// bundle logical interfaces to their physical members via a lookahead
// Bundle-Id column on the following indented line. Grounded 1:1 on
// DNOSCLIParser.parse_lacp_counters.
func ParseLACPCounters(device, output string) map[string]*types.LACPBundle {
	bundles := make(map[string]*types.LACPBundle)
	if strings.TrimSpace(output) == "" {
		return bundles
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	for idx, raw := range lines {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "|") && strings.Contains(line, "bundle-"):
			parts := splitPipeRow(line)
			if len(parts) < 4 {
				continue
			}
			ifaceName := parts[1]
			operStatus := parts[3]
			bundleName := ifaceName
			if i := strings.Index(bundleName, " "); i >= 0 {
				bundleName = bundleName[:i]
			}
			if i := strings.Index(bundleName, "."); i >= 0 {
				bundleName = bundleName[:i]
			}
			if !strings.HasPrefix(bundleName, "bundle-") {
				continue
			}
			b, ok := bundles[bundleName]
			if !ok {
				b = &types.LACPBundle{BundleName: bundleName, DeviceName: device, Status: types.LACPStatus(operStatus)}
				bundles[bundleName] = b
			} else if !strings.Contains(ifaceName, ".") {
				b.Status = types.LACPStatus(operStatus)
			}

		case strings.HasPrefix(line, "|") && strings.Contains(line, "ge") && !strings.Contains(line, "bundle-"):
			parts := splitPipeRow(line)
			if len(parts) < 2 {
				continue
			}
			ifaceName := parts[1]
			if !strings.HasPrefix(ifaceName, "ge") || ifaceName == "Interface" {
				continue
			}
			var bundleID string
			if idx+1 < len(lines) {
				next := lines[idx+1]
				if strings.Contains(next, "|") && strings.HasPrefix(next, " ") {
					nextParts := splitPipeRow(next)
					if len(nextParts) >= 8 {
						idStr := nextParts[7]
						if idStr != "" && isAllDigits(idStr) {
							bundleID = "bundle-" + idStr
						}
					}
				}
			}
			if bundleID != "" {
				if b, ok := bundles[bundleID]; ok {
					b.MemberInterfaces = append(b.MemberInterfaces, ifaceName)
				}
			}
		}
	}

	return bundles
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
