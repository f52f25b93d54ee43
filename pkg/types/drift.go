package types

import "time"

// DriftType classifies the kind of disagreement a DriftEvent reports.
type DriftType string

const (
	DriftInterfaceAlreadyConfigured DriftType = "interface-already-configured"
	DriftBridgeDomainAlreadyExists  DriftType = "bridge-domain-already-exists"
	DriftVLANConflict               DriftType = "vlan-conflict"
	DriftConfigurationMismatch      DriftType = "configuration-mismatch"
	DriftUnknown                    DriftType = "unknown"
)

// DriftDetectionSource identifies which stage of the pipeline produced a
// DriftEvent.
type DriftDetectionSource string

const (
	SourceCommitCheck      DriftDetectionSource = "commit-check"
	SourceDeploymentResult DriftDetectionSource = "deployment-result"
	SourceValidationFailure DriftDetectionSource = "validation-failure"
)

// DriftSeverity is assigned by detection source: commit-check drift is
// medium, deployment-time and validation-time drift are high.
type DriftSeverity string

const (
	SeverityLow      DriftSeverity = "low"
	SeverityMedium   DriftSeverity = "medium"
	SeverityHigh     DriftSeverity = "high"
	SeverityCritical DriftSeverity = "critical"
)

// DriftEvent represents one detected disagreement between intended and
// actual device state.
type DriftEvent struct {
	DriftType        DriftType
	DeviceName       string
	InterfaceName    string // optional, empty if not applicable
	ExpectedConfig   map[string]string
	ActualConfig     map[string]string
	DetectionSource  DriftDetectionSource
	Severity         DriftSeverity
	Timestamp        time.Time
	ResolutionOptions []string
}

// SyncAction is the outcome of a Sync Resolver decision.
type SyncAction string

const (
	ActionSkip     SyncAction = "skip"
	ActionOverride SyncAction = "override"
	ActionSynced   SyncAction = "synced"
	ActionAbort    SyncAction = "abort"
	ActionFailed   SyncAction = "failed"
)

// SyncResolution is the result of resolving one DriftEvent, interactively
// or via a non-interactive policy.
type SyncResolution struct {
	Action            SyncAction
	Message           string
	DiscoveredRecords []InterfaceRecord
	SyncResult        *SyncResult
	OperatorChoice    string
	Timestamp         time.Time
}

// SyncResult is the Database Updater's report of one batch write.
type SyncResult struct {
	Success       bool
	Added         int
	Updated       int
	Skipped       int
	PerRecordErrors []string
	Duration      time.Duration
}

// DriftAnalysis rolls up counts and heuristic recommendations across a
// batch of DriftEvents.
type DriftAnalysis struct {
	TotalEvents        int
	ByType             map[DriftType]int
	ByDevice           map[string]int
	BySource           map[DriftDetectionSource]int
	SeverityDistribution map[DriftSeverity]int
	Recommendations    []string
}
