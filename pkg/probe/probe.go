// Package probe runs the two-phase fleet collection pipeline: phase one
// connects to every usable device and gathers four fixed artifacts (LACP
// XML, LLDP neighbor table, bridge-domain instance config, VLAN config),
// phase two parses whatever was collected into structured records. The two
// phases are kept separate so a probe run's raw transcripts can be
// re-parsed without re-touching the fleet, mirroring the teacher's own
// probe-then-parse split in collect_lacp_xml.py.
package probe

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/visaev-dn/fleetctl/pkg/cliparse"
	"github.com/visaev-dn/fleetctl/pkg/inventory"
	"github.com/visaev-dn/fleetctl/pkg/session"
	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

// DefaultConcurrency bounds the number of devices probed in parallel,
// matching the teacher's ThreadPoolExecutor(max_workers=min(n, 15)) cap.
const DefaultConcurrency = 15

// interCommandDelay staggers successive commands on one device's session,
// matching the teacher's time.sleep(0.5) between collect commands.
const interCommandDelay = 500 * time.Millisecond

// RawArtifacts holds the unparsed transcript for each artifact collected
// from one device, keyed the same way as DeviceOutcome.Collected.
type RawArtifacts struct {
	DeviceName       string
	LACPXML          string
	LLDPTable        string
	BridgeDomainText string
	VLANConfigText   string
}

// ParsedArtifacts holds everything pkg/cliparse derived from one device's
// RawArtifacts during phase two.
type ParsedArtifacts struct {
	DeviceName       string
	LACPBundles      []types.LACPBundle
	LLDPNeighbors    []types.LLDPNeighbor
	BridgeDomains    []types.BridgeDomainInstance
	VLANConfigs      []types.VLANConfig
}

// commands run against every device during phase one, in order. Each one
// carries the artifact it produces and a substring used to sanity-check
// that the device actually returned something usable, matching the
// teacher's ad hoc "if output and 'marker' in output" success checks.
var probeCommands = []struct {
	kind     types.ArtifactKind
	command  string
	mustHave string
}{
	{types.ArtifactLACPXML, "show config protocols lacp | display-xml | no-more", "<config"},
	{types.ArtifactLLDPTable, "show lldp neighbors | no-more", "Interface"},
	{types.ArtifactBridgeDomains, `show config | fl | i "bridge-domain instance" | no-more`, "bridge-domain instance"},
	{types.ArtifactVLANConfig, `show config | fl | i vlan | no-more`, "vlan"},
}

// RunProbePhase dials every usable device in inv, concurrently, and
// collects the four fixed artifacts from each. It never returns an error
// for an individual device's failure — that is recorded in the returned
// ProbeSummary's DeviceOutcome instead — and only fails outright if the
// inventory has no usable device at all.
func RunProbePhase(ctx context.Context, inv *inventory.Inventory, concurrency int) (*types.ProbeSummary, map[string]*RawArtifacts, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	summary := types.NewProbeSummary()
	summary.Start = time.Now()

	devices := inv.All()
	summary.TotalDevices = len(devices)

	usable := make([]*types.Device, 0, len(devices))
	for _, dev := range devices {
		if dev.Usable() {
			usable = append(usable, dev)
			continue
		}
		outcome := types.NewDeviceOutcome(dev.Name)
		outcome.Status = types.OutcomeInvalid
		outcome.Errors = append(outcome.Errors, "invalid mgmt_ip: "+dev.MgmtIP)
		summary.PerDeviceOutcomes[dev.Name] = outcome
		summary.Invalid++
	}
	summary.UsableDevices = len(usable)

	if len(usable) == 0 {
		summary.End = time.Now()
		return summary, nil, util.NewInventoryError("fleet", "no usable devices to probe")
	}

	util.WithField("count", len(usable)).Info("probing fleet in parallel")

	raw := make(map[string]*RawArtifacts, len(usable))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, dev := range usable {
		wg.Add(1)
		sem <- struct{}{}
		go func(dev *types.Device) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, artifacts := probeOneDevice(ctx, *dev)

			mu.Lock()
			summary.PerDeviceOutcomes[dev.Name] = outcome
			switch outcome.Status {
			case types.OutcomeSuccessful:
				summary.Successful++
			case types.OutcomeFailed:
				summary.Failed++
			case types.OutcomeInvalid:
				summary.Invalid++
			}
			if artifacts != nil {
				raw[dev.Name] = artifacts
			}
			mu.Unlock()
		}(dev)
	}

	wg.Wait()
	summary.End = time.Now()
	return summary, raw, nil
}

// probeOneDevice dials one device and runs every probeCommands entry
// against it, tolerating individual artifact failures — a device is marked
// Failed if the connection could not be established or if none of the
// artifacts was collected.
func probeOneDevice(ctx context.Context, dev types.Device) (*types.DeviceOutcome, *RawArtifacts) {
	outcome := types.NewDeviceOutcome(dev.Name)
	log := util.WithDevice(dev.Name)

	sess, err := session.Dial(ctx, dev)
	if err != nil {
		outcome.Status = types.OutcomeFailed
		outcome.Errors = append(outcome.Errors, err.Error())
		log.WithError(err).Warn("probe connection failed")
		return outcome, nil
	}
	defer sess.Close()

	artifacts := &RawArtifacts{DeviceName: dev.Name}

	for i, pc := range probeCommands {
		output, err := sess.SendUntilPrompt(pc.command, 30*time.Second)
		if err != nil {
			outcome.Errors = append(outcome.Errors, err.Error())
			log.WithError(err).WithField("artifact", pc.kind).Warn("failed to collect artifact")
		} else if containsFold(output, pc.mustHave) {
			outcome.Collected[pc.kind] = true
			storeArtifact(artifacts, pc.kind, output)
		} else {
			log.WithField("artifact", pc.kind).Warn("artifact output missing expected marker")
		}

		if i < len(probeCommands)-1 {
			time.Sleep(interCommandDelay)
		}
	}

	if len(outcome.Collected) == 0 {
		outcome.Status = types.OutcomeFailed
	} else {
		outcome.Status = types.OutcomeSuccessful
	}
	return outcome, artifacts
}

func storeArtifact(a *RawArtifacts, kind types.ArtifactKind, output string) {
	switch kind {
	case types.ArtifactLACPXML:
		a.LACPXML = output
	case types.ArtifactLLDPTable:
		a.LLDPTable = output
	case types.ArtifactBridgeDomains:
		a.BridgeDomainText = output
	case types.ArtifactVLANConfig:
		a.VLANConfigText = output
	}
}

func containsFold(haystack, needle string) bool {
	return len(haystack) > 0 && strings.Contains(haystack, needle)
}

// RunParsePhase turns every device's RawArtifacts into ParsedArtifacts,
// updating summary's per-device Parsed/Counts maps as it goes. It never
// fails outright; a device whose artifacts don't parse into anything just
// gets empty ParsedArtifacts. A warning is added to its DeviceOutcome only
// when its LACP XML fails to parse.
func RunParsePhase(summary *types.ProbeSummary, raw map[string]*RawArtifacts) map[string]*ParsedArtifacts {
	parsed := make(map[string]*ParsedArtifacts, len(raw))

	for device, artifacts := range raw {
		outcome := summary.PerDeviceOutcomes[device]
		if outcome == nil {
			outcome = types.NewDeviceOutcome(device)
			summary.PerDeviceOutcomes[device] = outcome
		}

		p := &ParsedArtifacts{DeviceName: device}

		if artifacts.LACPXML != "" {
			bundles, err := cliparse.ParseLACPXML(device, artifacts.LACPXML)
			if err != nil {
				outcome.Warnings = append(outcome.Warnings, "lacp xml parse: "+err.Error())
			} else {
				p.LACPBundles = bundles
				outcome.Parsed[types.ArtifactLACPXML] = true
				outcome.Counts[types.ArtifactLACPXML] = len(bundles)
			}
		}

		if artifacts.LLDPTable != "" {
			neighbors := cliparse.ParseLLDPNeighbors(device, artifacts.LLDPTable)
			p.LLDPNeighbors = neighbors
			outcome.Parsed[types.ArtifactLLDPTable] = len(neighbors) > 0
			outcome.Counts[types.ArtifactLLDPTable] = len(neighbors)
		}

		if artifacts.BridgeDomainText != "" {
			instances := cliparse.ParseBridgeDomainInstances(device, artifacts.BridgeDomainText)
			p.BridgeDomains = instances
			outcome.Parsed[types.ArtifactBridgeDomains] = len(instances) > 0
			outcome.Counts[types.ArtifactBridgeDomains] = len(instances)
		}

		if artifacts.VLANConfigText != "" {
			vlans := cliparse.ParseRunningConfigVLANs(device, artifacts.VLANConfigText)
			p.VLANConfigs = vlans
			outcome.Parsed[types.ArtifactVLANConfig] = len(vlans) > 0
			outcome.Counts[types.ArtifactVLANConfig] = len(vlans)
		}

		parsed[device] = p
	}

	return parsed
}
