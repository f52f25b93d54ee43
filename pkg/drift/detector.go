// Package drift detects and analyzes disagreements between the inventory
// store's recorded state and what a device's commit-check, deployment, or
// post-deploy validation output actually reports. It never touches a
// device itself — every entry point takes text the caller already
// collected and returns zero or more DriftEvents.
package drift

import (
	"strings"
	"time"

	"github.com/visaev-dn/fleetctl/pkg/types"
)

// DetectFromCommitCheck inspects a CommitCheck's output for the two
// "already configured" phrasings the teacher's device dialect uses,
// attaching whichever interface name the first expected command names.
func DetectFromCommitCheck(deviceName, commitCheckOutput string, expectedCommands []string) *types.DriftEvent {
	lower := strings.ToLower(commitCheckOutput)

	if strings.Contains(lower, "no configuration changes were made") {
		return &types.DriftEvent{
			DriftType:         types.DriftInterfaceAlreadyConfigured,
			DeviceName:        deviceName,
			InterfaceName:     interfaceFromCommands(expectedCommands),
			DetectionSource:   types.SourceCommitCheck,
			Severity:          types.SeverityMedium,
			Timestamp:         time.Now(),
			ResolutionOptions: []string{"discover_and_sync", "skip", "override", "abort"},
		}
	}

	if strings.Contains(lower, "configuration already exists") {
		return &types.DriftEvent{
			DriftType:       types.DriftBridgeDomainAlreadyExists,
			DeviceName:      deviceName,
			InterfaceName:   interfaceFromCommands(expectedCommands),
			DetectionSource: types.SourceCommitCheck,
			Severity:        types.SeverityMedium,
			Timestamp:       time.Now(),
		}
	}

	return nil
}

// interfaceFromCommands extracts the interface name from the first
// "interfaces <name> ..." command in a plan's command list, matching the
// teacher's heuristic of reading expected_configs[0].
func interfaceFromCommands(commands []string) string {
	if len(commands) == 0 {
		return ""
	}
	first := commands[0]
	if !strings.Contains(first, "interfaces ") {
		return ""
	}
	parts := strings.Fields(first)
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}

// DetectFromDeploymentResult walks every device's ExecutionResult in a
// completed deployment and emits one DriftEvent per device whose failure
// or commit-check response indicates the device was already in the
// desired state rather than genuinely failing.
func DetectFromDeploymentResult(result *types.DeploymentResult) []types.DriftEvent {
	var events []types.DriftEvent
	if result == nil {
		return events
	}

	for device, exec := range result.ExecutionResults {
		if exec == nil {
			continue
		}
		lowerErr := strings.ToLower(exec.ErrorMessage)

		if !exec.Success && strings.Contains(lowerErr, "no configuration changes") {
			events = append(events, types.DriftEvent{
				DriftType:       types.DriftInterfaceAlreadyConfigured,
				DeviceName:      device,
				DetectionSource: types.SourceDeploymentResult,
				Severity:        types.SeverityHigh,
				Timestamp:       time.Now(),
				ActualConfig:    map[string]string{"error": exec.ErrorMessage},
			})
			continue
		}

		if exec.CommitCheckPassed && exec.ErrorMessage != "" && strings.Contains(lowerErr, "already configured") {
			events = append(events, types.DriftEvent{
				DriftType:       types.DriftInterfaceAlreadyConfigured,
				DeviceName:      device,
				DetectionSource: types.SourceCommitCheck,
				Severity:        types.SeverityMedium,
				Timestamp:       time.Now(),
			})
		}
	}

	return events
}

// DetectFromValidationFailure inspects post-deploy validation output for
// either a missing interface (a hard mismatch) or an unexpected vlan-id
// line (a VLAN conflict), matching the two checks the validator runs
// after every deployment.
func DetectFromValidationFailure(deviceName, interfaceName, validationOutput string) *types.DriftEvent {
	lower := strings.ToLower(validationOutput)

	if strings.Contains(lower, "not found") {
		return &types.DriftEvent{
			DriftType:       types.DriftConfigurationMismatch,
			DeviceName:      deviceName,
			InterfaceName:   interfaceName,
			DetectionSource: types.SourceValidationFailure,
			Severity:        types.SeverityHigh,
			Timestamp:       time.Now(),
			ActualConfig:    map[string]string{"validation_output": validationOutput},
		}
	}

	if strings.Contains(lower, "vlan-id") {
		return &types.DriftEvent{
			DriftType:       types.DriftVLANConflict,
			DeviceName:      deviceName,
			InterfaceName:   interfaceName,
			DetectionSource: types.SourceValidationFailure,
			Severity:        types.SeverityHigh,
			Timestamp:       time.Now(),
		}
	}

	return nil
}

// AnalyzePatterns rolls a batch of DriftEvents up into per-type,
// per-device, and per-source counts plus a couple of heuristic
// recommendations, matching the thresholds the teacher's
// analyze_drift_patterns uses (5 already-configured events, 10 distinct
// devices).
func AnalyzePatterns(events []types.DriftEvent) types.DriftAnalysis {
	analysis := types.DriftAnalysis{
		TotalEvents:          len(events),
		ByType:                make(map[types.DriftType]int),
		ByDevice:              make(map[string]int),
		BySource:              make(map[types.DriftDetectionSource]int),
		SeverityDistribution:  make(map[types.DriftSeverity]int),
	}

	for _, e := range events {
		analysis.ByType[e.DriftType]++
		analysis.ByDevice[e.DeviceName]++
		analysis.BySource[e.DetectionSource]++
		analysis.SeverityDistribution[e.Severity]++
	}

	if analysis.ByType[types.DriftInterfaceAlreadyConfigured] > 5 {
		analysis.Recommendations = append(analysis.Recommendations,
			"high number of already-configured interfaces - consider full device discovery")
	}
	if len(analysis.ByDevice) > 10 {
		analysis.Recommendations = append(analysis.Recommendations,
			"drift detected across many devices - consider systematic sync")
	}

	return analysis
}
