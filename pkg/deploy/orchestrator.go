// Package deploy implements the Deployment Orchestrator: the
// "stop-and-sync at commit-check" pipeline that validates every device's
// planned commands before committing anything, resolves any drift found
// along the way, then commits in parallel and validates the result.
// Grounded on
// original_source/services/universal_ssh/deployment_orchestrator.py's
// UniversalDeploymentOrchestrator, combined with
// original_source/services/configuration_drift/deployment_integration.py's
// DriftAwareDeploymentHandler (the commit-check-first drift detection and
// immediate resolution this package folds into Stage 1/1.5 rather than
// keeping as a separate wrapper, since both exist only to compose the same
// three things: a Session, the drift detector, and the sync resolver).
package deploy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/visaev-dn/fleetctl/pkg/drift"
	"github.com/visaev-dn/fleetctl/pkg/inventory"
	"github.com/visaev-dn/fleetctl/pkg/session"
	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

// DefaultConcurrency bounds Stage 2's parallel commit, matching spec's
// "~10 concurrent Sessions".
const DefaultConcurrency = 10

// Orchestrator drives a DeploymentPlan through commit-check, drift
// resolution, parallel commit, and post-deployment validation.
type Orchestrator struct {
	inv         *inventory.Inventory
	updater     drift.Updater
	interactive bool
	policy      drift.Policy
	concurrency int
}

// New builds an Orchestrator bound to an inventory (for resolving device
// names to connection details) and an Updater the sync resolver writes
// discovered configs through. Pass interactive=true to prompt an operator
// for drift resolution (see golang.org/x/term via drift.IsInteractive);
// otherwise resolution follows policy.
func New(inv *inventory.Inventory, updater drift.Updater, interactive bool, policy drift.Policy) *Orchestrator {
	return &Orchestrator{
		inv:         inv,
		updater:     updater,
		interactive: interactive,
		policy:      policy,
		concurrency: DefaultConcurrency,
	}
}

// WithConcurrency overrides Stage 2's worker pool size.
func (o *Orchestrator) WithConcurrency(n int) *Orchestrator {
	if n > 0 {
		o.concurrency = n
	}
	return o
}

// Deploy runs the full stop-and-sync pipeline: Stage 1 commit-check with
// drift detection, Stage 1.5 drift resolution, Stage 2 parallel commit,
// Stage 3 post-deployment validation.
func (o *Orchestrator) Deploy(ctx context.Context, plan *types.DeploymentPlan) (*types.DeploymentResult, error) {
	start := time.Now()
	result := types.NewDeploymentResult(plan.DeploymentID)

	driftEvents, hardFailure := o.commitCheckStage(ctx, plan, result)
	if hardFailure != "" {
		result.Success = false
		result.Errors = append(result.Errors, hardFailure)
		result.TotalDuration = time.Since(start)
		return result, nil
	}

	if len(driftEvents) > 0 {
		aborted, failed := o.resolveDrift(ctx, plan, driftEvents, result)
		if aborted {
			result.Success = false
			result.Errors = append(result.Errors, "deployment aborted during drift resolution")
			result.TotalDuration = time.Since(start)
			return result, nil
		}
		if failed {
			result.Success = false
			result.Errors = append(result.Errors, "drift resolution failed")
			result.TotalDuration = time.Since(start)
			return result, nil
		}
	}

	o.commitStage(ctx, plan, result)
	o.validateStage(ctx, plan, result)

	result.Success = deploymentSucceeded(plan, result)
	result.TotalDuration = time.Since(start)
	return result, nil
}

// DeployImmediate skips Stages 1 and 1.5 and commits directly — the
// "alternate fast path" for operations the caller asserts carry no drift
// risk.
func (o *Orchestrator) DeployImmediate(ctx context.Context, deviceCommands map[string][]string) (*types.DeploymentResult, error) {
	start := time.Now()
	plan := &types.DeploymentPlan{
		DeploymentID:   fmt.Sprintf("immediate-%d", start.Unix()),
		DeviceCommands: deviceCommands,
		ExecutionMode:  types.ModeCommit,
		Parallel:       true,
	}
	result := types.NewDeploymentResult(plan.DeploymentID)

	o.commitStage(ctx, plan, result)
	o.validateStage(ctx, plan, result)

	result.Success = deploymentSucceeded(plan, result)
	result.TotalDuration = time.Since(start)
	return result, nil
}

// commitCheckStage runs Stage 1: for each device, stage commands in config
// mode without committing, then issue `commit check`. A hard error marker
// on any staged command aborts before any device is committed. A
// commit-check that merely reports drift (e.g. "no configuration changes
// were made") is still recorded as a pass; its DriftEvent is returned for
// Stage 1.5 to resolve.
func (o *Orchestrator) commitCheckStage(ctx context.Context, plan *types.DeploymentPlan, result *types.DeploymentResult) ([]types.DriftEvent, string) {
	var events []types.DriftEvent

	for deviceName, commands := range plan.DeviceCommands {
		if len(commands) == 0 {
			continue
		}
		log := util.WithDevice(deviceName)
		log.Info("stage 1: commit-check")

		sess, err := o.dial(ctx, deviceName)
		if err != nil {
			result.CommitCheckMap[deviceName] = false
			return events, fmt.Sprintf("%s: unable to open session for commit-check: %v", deviceName, err)
		}

		checkOutput, hardErr := stageAndCheck(sess, commands)
		sess.Close()

		if hardErr != nil {
			result.CommitCheckMap[deviceName] = false
			return events, fmt.Sprintf("%s: commit-check failed: %v", deviceName, hardErr)
		}

		result.CommitCheckMap[deviceName] = true
		if event := drift.DetectFromCommitCheck(deviceName, checkOutput, commands); event != nil {
			events = append(events, *event)
		}
	}

	return events, ""
}

// stageAndCheck enters config mode, applies commands (aborting on a hard
// error marker), then runs `commit check` and exits without committing.
func stageAndCheck(sess *session.Session, commands []string) (string, error) {
	if _, err := sess.Configure(commands, false); err != nil {
		return "", err
	}
	out, _, err := sess.CommitCheck()
	return out, err
}

// resolveDrift runs Stage 1.5: resolves each drift event in turn and
// applies its effect on the plan. Returns aborted=true if any event's
// resolution is ActionAbort, failed=true if any is ActionFailed.
func (o *Orchestrator) resolveDrift(ctx context.Context, plan *types.DeploymentPlan, events []types.DriftEvent, result *types.DeploymentResult) (aborted, failed bool) {
	for i := range events {
		event := &events[i]
		log := util.WithDevice(event.DeviceName)
		log.Warnf("resolving drift: %s", event.DriftType)

		sess, err := o.dial(ctx, event.DeviceName)
		if err != nil {
			log.Warnf("drift resolution: unable to open session: %v", err)
			failed = true
			continue
		}

		resolver := drift.NewResolver(sess, o.updater)
		var resolution types.SyncResolution
		if o.interactive {
			resolution = resolver.ResolveInteractive(event)
		} else {
			resolution = resolver.ResolveAutomatic(event, o.policy)
		}
		sess.Close()

		switch resolution.Action {
		case types.ActionAbort:
			aborted = true
		case types.ActionSkip:
			plan.DeviceCommands[event.DeviceName] = nil
		case types.ActionOverride, types.ActionSynced:
			// plan unchanged; a synced database makes the upcoming commit
			// likely a no-op, which is acceptable.
		case types.ActionFailed:
			failed = true
		}
		if aborted {
			return true, failed
		}
	}
	return aborted, failed
}

// commitStage runs Stage 2: concurrent commit (no second commit-check) on
// every device still carrying a non-empty command list.
func (o *Orchestrator) commitStage(ctx context.Context, plan *types.DeploymentPlan, result *types.DeploymentResult) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, o.concurrency)

	for deviceName, commands := range plan.DeviceCommands {
		if len(commands) == 0 {
			continue
		}
		deviceName, commands := deviceName, commands
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			execResult := o.commitOneDevice(ctx, deviceName, commands)

			mu.Lock()
			result.ExecutionResults[deviceName] = execResult
			mu.Unlock()
		}()
	}
	wg.Wait()
}

func (o *Orchestrator) commitOneDevice(ctx context.Context, deviceName string, commands []string) *types.ExecutionResult {
	start := time.Now()
	exec := &types.ExecutionResult{DeviceName: deviceName, ExecutionMode: types.ModeCommit}

	sess, err := o.dial(ctx, deviceName)
	if err != nil {
		exec.ErrorMessage = err.Error()
		exec.TotalDuration = time.Since(start)
		return exec
	}
	defer sess.Close()
	exec.ConnectionOK = true

	results, cfgErr := sess.Configure(commands, true)
	exec.PerCommandResults = results
	var out strings.Builder
	for _, r := range results {
		out.WriteString(r.Output)
		out.WriteString("\n")
	}
	exec.AggregatedOutput = out.String()
	exec.TotalDuration = time.Since(start)

	if cfgErr != nil {
		exec.ErrorMessage = cfgErr.Error()
		return exec
	}
	exec.Success = true
	exec.ConfigurationApplied = true
	return exec
}

// validateStage runs Stage 3: for every device whose commit succeeded,
// builds a narrow query set from its deployed `interfaces <name> vlan-id
// <V>` commands and checks the device reports each interface at its
// expected VLAN.
func (o *Orchestrator) validateStage(ctx context.Context, plan *types.DeploymentPlan, result *types.DeploymentResult) {
	for deviceName, commands := range plan.DeviceCommands {
		exec, ok := result.ExecutionResults[deviceName]
		if !ok || !exec.Success {
			continue
		}

		pairs := interfaceVLANPairs(commands)
		if len(pairs) == 0 {
			result.ValidationMap[deviceName] = true
			continue
		}

		sess, err := o.dial(ctx, deviceName)
		if err != nil {
			result.ValidationMap[deviceName] = false
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: validation session failed: %v", deviceName, err))
			continue
		}

		ok = true
		for _, p := range pairs {
			out, err := sess.SendUntilPrompt(fmt.Sprintf("show interfaces | no-more | i %s", p.iface), 30*time.Second)
			if err != nil || !interfaceHasVLAN(out, p.iface, p.vlan) {
				ok = false
				break
			}
		}
		sess.Close()

		result.ValidationMap[deviceName] = ok
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: post-deployment validation failed", deviceName))
		}
	}
}

type interfaceVLANPair struct {
	iface string
	vlan  string
}

// interfaceVLANPairs extracts (interface, vlan) pairs from `interfaces
// <name> vlan-id <V>` commands, matching the original's command.split()
// positional parse.
func interfaceVLANPairs(commands []string) []interfaceVLANPair {
	var pairs []interfaceVLANPair
	for _, cmd := range commands {
		if !strings.HasPrefix(cmd, "interfaces ") || !strings.Contains(cmd, "vlan-id") {
			continue
		}
		parts := strings.Fields(cmd)
		if len(parts) < 4 {
			continue
		}
		pairs = append(pairs, interfaceVLANPair{iface: parts[1], vlan: parts[3]})
	}
	return pairs
}

// interfaceHasVLAN reports whether output contains a line mentioning iface
// and a recognizable VLAN marker for vlan: `Vlan-Id: <V>`, `vlan-id <V>`,
// or a dotted `.<V>` interface-name suffix.
func interfaceHasVLAN(output, iface, vlan string) bool {
	if !strings.Contains(output, iface) {
		return false
	}
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, iface) {
			continue
		}
		if strings.Contains(line, "Vlan-Id: "+vlan) ||
			strings.Contains(line, "vlan-id "+vlan) ||
			strings.Contains(line, "."+vlan) {
			return true
		}
	}
	return false
}

// deploymentSucceeded implements the spec's redesigned success semantics:
// true iff every device still carrying commands both committed and passed
// validation. The original Python only looked at commit outcomes; this
// tightens it to also require validation, per spec.md §4.I.
func deploymentSucceeded(plan *types.DeploymentPlan, result *types.DeploymentResult) bool {
	for deviceName, commands := range plan.DeviceCommands {
		if len(commands) == 0 {
			continue
		}
		exec, ok := result.ExecutionResults[deviceName]
		if !ok || !exec.Success {
			return false
		}
		if validated, ok := result.ValidationMap[deviceName]; !ok || !validated {
			return false
		}
	}
	return true
}

func (o *Orchestrator) dial(ctx context.Context, deviceName string) (*session.Session, error) {
	dev := o.inv.Get(deviceName)
	if dev == nil {
		return nil, util.NewInventoryError(deviceName, "unknown device")
	}
	return session.Dial(ctx, *dev)
}
