// Package cliparse holds pure parsing functions for the pipe-delimited and
// section-delimited CLI tables this fleet's devices emit, plus their XML
// equivalents. Every function here is grounded in
// original_source/utils/cli_parser.py's DNOSCLIParser and
// original_source/services/configuration_drift/targeted_discovery.py;
// none of it touches a network connection.
package cliparse

import (
	"strings"

	"github.com/visaev-dn/fleetctl/pkg/types"
)

// ParseLLDPNeighbors parses `show lldp neighbors` pipe-table output. Rows
// whose neighbor system name is blank (no neighbor on that port) are
// dropped, matching the teacher parser's behavior.
func ParseLLDPNeighbors(device, output string) []types.LLDPNeighbor {
	lines := strings.Split(strings.TrimSpace(output), "\n")

	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "|") && strings.Contains(line, "Interface") && strings.Contains(line, "Neighbor") {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil
	}

	var neighbors []types.LLDPNeighbor
	for _, line := range lines[headerIdx+1:] {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "|") || strings.HasPrefix(line, "|--") {
			continue
		}
		parts := splitPipeRow(line)
		if len(parts) < 4 || parts[1] == "" {
			continue
		}
		localIface := parts[1]
		neighborName := parts[2]
		neighborIface := parts[3]
		ttl := "120"
		if len(parts) > 4 && parts[4] != "" {
			ttl = parts[4]
		}
		if neighborName == "" {
			continue
		}
		neighbors = append(neighbors, types.LLDPNeighbor{
			LocalDevice:        device,
			LocalInterface:     localIface,
			NeighborSystemName: neighborName,
			NeighborInterface:  neighborIface,
			TTL:                ttl,
		})
	}
	return neighbors
}

// splitPipeRow splits a `| a | b | c |` row into trimmed fields. Every
// pipe-separated field is kept, including the empty leading and trailing
// fields produced by the opening and closing pipes.
func splitPipeRow(line string) []string {
	raw := strings.Split(line, "|")
	out := make([]string, len(raw))
	for i, p := range raw {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
