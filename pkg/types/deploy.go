package types

import "time"

// ExecutionMode selects the higher-level verb a Session call runs under.
type ExecutionMode string

const (
	ModeQuery       ExecutionMode = "query"
	ModeCommitCheck ExecutionMode = "commit-check"
	ModeCommit      ExecutionMode = "commit"
	ModeImmediate   ExecutionMode = "immediate"
	ModeDryRun      ExecutionMode = "dry-run"
)

// DeploymentPlan is immutable once handed to the orchestrator, except that
// the orchestrator may replace a device's command list with the empty
// sequence as a result of drift resolution (the `skip` action).
type DeploymentPlan struct {
	DeploymentID     string
	DeviceCommands   map[string][]string
	ExecutionMode    ExecutionMode
	Parallel         bool
	Metadata         map[string]string
}

// CommandResult is the outcome of a single command within a batch.
type CommandResult struct {
	Command  string
	Output   string
	IsError  bool
	Duration time.Duration
}

// ExecutionResult is one device's outcome for one execution-mode batch.
type ExecutionResult struct {
	DeviceName          string
	ExecutionMode       ExecutionMode
	Success             bool
	PerCommandResults   []CommandResult
	TotalDuration       time.Duration
	AggregatedOutput    string
	ErrorMessage        string
	ConnectionOK        bool
	CommitCheckPassed   bool
	ConfigurationApplied bool
}

// DeploymentResult is the value the orchestrator builds and returns; no
// component mutates a shared stats dict, every count here is summed once
// by the orchestrator from the per-device ExecutionResults it collected.
type DeploymentResult struct {
	DeploymentID      string
	Success           bool
	ExecutionResults  map[string]*ExecutionResult
	CommitCheckMap    map[string]bool
	ValidationMap     map[string]bool
	Errors            []string
	Warnings          []string
	TotalDuration      time.Duration
}

// NewDeploymentResult builds an empty result ready for an orchestrator to
// populate incrementally.
func NewDeploymentResult(deploymentID string) *DeploymentResult {
	return &DeploymentResult{
		DeploymentID:     deploymentID,
		ExecutionResults: make(map[string]*ExecutionResult),
		CommitCheckMap:   make(map[string]bool),
		ValidationMap:    make(map[string]bool),
	}
}
