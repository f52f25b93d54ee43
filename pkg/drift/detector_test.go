package drift

import (
	"testing"

	"github.com/visaev-dn/fleetctl/pkg/types"
)

func TestDetectFromCommitCheckAlreadyConfigured(t *testing.T) {
	event := DetectFromCommitCheck("LEAF-A", "No configuration changes were made", []string{"interfaces ge100-0/0/1 vlan-id 100"})
	if event == nil {
		t.Fatal("expected a drift event")
	}
	if event.DriftType != types.DriftInterfaceAlreadyConfigured {
		t.Errorf("drift type = %q", event.DriftType)
	}
	if event.InterfaceName != "ge100-0/0/1" {
		t.Errorf("interface name = %q", event.InterfaceName)
	}
	if event.Severity != types.SeverityMedium {
		t.Errorf("severity = %q, want medium", event.Severity)
	}
}

func TestDetectFromCommitCheckAlreadyExists(t *testing.T) {
	event := DetectFromCommitCheck("LEAF-A", "Configuration already exists", nil)
	if event == nil || event.DriftType != types.DriftBridgeDomainAlreadyExists {
		t.Fatalf("expected bridge-domain-already-exists event, got %+v", event)
	}
}

func TestDetectFromCommitCheckNoMatch(t *testing.T) {
	if event := DetectFromCommitCheck("LEAF-A", "commit complete", nil); event != nil {
		t.Errorf("expected no drift event, got %+v", event)
	}
}

func TestDetectFromDeploymentResult(t *testing.T) {
	result := &types.DeploymentResult{
		ExecutionResults: map[string]*types.ExecutionResult{
			"LEAF-A": {Success: false, ErrorMessage: "No configuration changes were made"},
			"LEAF-B": {Success: true},
		},
	}
	events := DetectFromDeploymentResult(result)
	if len(events) != 1 {
		t.Fatalf("expected 1 drift event, got %d", len(events))
	}
	if events[0].DeviceName != "LEAF-A" || events[0].Severity != types.SeverityHigh {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestDetectFromValidationFailure(t *testing.T) {
	if e := DetectFromValidationFailure("LEAF-A", "ge100-0/0/1", "interface not found"); e == nil || e.DriftType != types.DriftConfigurationMismatch {
		t.Errorf("expected configuration mismatch, got %+v", e)
	}
	if e := DetectFromValidationFailure("LEAF-A", "ge100-0/0/1", "vlan-id 200 unexpected"); e == nil || e.DriftType != types.DriftVLANConflict {
		t.Errorf("expected vlan conflict, got %+v", e)
	}
	if e := DetectFromValidationFailure("LEAF-A", "ge100-0/0/1", "validation passed"); e != nil {
		t.Errorf("expected no drift, got %+v", e)
	}
}

func TestAnalyzePatternsRecommendations(t *testing.T) {
	var events []types.DriftEvent
	for i := 0; i < 6; i++ {
		events = append(events, types.DriftEvent{DriftType: types.DriftInterfaceAlreadyConfigured, DeviceName: "LEAF-A"})
	}
	analysis := AnalyzePatterns(events)
	if analysis.TotalEvents != 6 {
		t.Errorf("total events = %d", analysis.TotalEvents)
	}
	if len(analysis.Recommendations) != 1 {
		t.Errorf("expected 1 recommendation for >5 already-configured events, got %v", analysis.Recommendations)
	}
}

func TestInferBridgeDomainFromInterface(t *testing.T) {
	bd, ok := InferBridgeDomainFromInterface("ge100-0/0/31.500", "alice")
	if !ok || bd != "g_alice_v500" {
		t.Errorf("InferBridgeDomainFromInterface() = %q, %v", bd, ok)
	}
	if _, ok := InferBridgeDomainFromInterface("ge100-0/0/31", "alice"); ok {
		t.Error("expected no inference for non-dotted interface name")
	}
}
