package drift

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/visaev-dn/fleetctl/pkg/discovery"
	"github.com/visaev-dn/fleetctl/pkg/session"
	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
	"golang.org/x/term"
)

// Updater is the subset of the Database Updater (pkg/store) the resolver
// needs: writing a batch of freshly discovered records, and folding a
// synced interface into a bridge domain's discovery blob. Declared here
// rather than imported directly so pkg/drift doesn't depend on pkg/store's
// Redis wiring — any store implementation satisfying this can be used.
type Updater interface {
	UpdateDiscoveredConfigs(records []types.InterfaceRecord) (*types.SyncResult, error)
	UpdateBridgeDomainDiscoveryBlob(bdName string, newInterface types.InterfaceRecord) (bool, error)
}

// Policy is an automatic (non-interactive) drift resolution policy.
type Policy string

const (
	PolicyConservative Policy = "conservative" // always discover and sync
	PolicyPermissive   Policy = "permissive"   // skip conflicting interfaces
	PolicyAggressive   Policy = "aggressive"   // force reconfiguration
)

// Resolver resolves DriftEvents either interactively (prompting an
// operator on in/out) or via a fixed Policy, re-discovering a device's
// actual configuration through pkg/discovery and writing it back through
// an Updater.
type Resolver struct {
	sess    *session.Session
	updater Updater
	in      io.Reader
	out     io.Writer
}

// NewResolver builds a Resolver bound to one device's session. updater may
// be nil — discovery still runs, but discoverAndSync reports ActionFailed
// instead of ActionSynced, matching the teacher's "database updater not
// available" branch.
func NewResolver(sess *session.Session, updater Updater) *Resolver {
	return &Resolver{sess: sess, updater: updater, in: os.Stdin, out: os.Stdout}
}

// ResolveInteractive prompts an operator (via r.in/r.out) to choose one of
// the four resolution options the teacher's CLI menu offers. It prompts
// whether or not r.out is a terminal; choosing between this and
// ResolveAutomatic is left to the caller.
func (r *Resolver) ResolveInteractive(event *types.DriftEvent) types.SyncResolution {
	fmt.Fprintln(r.out, "\nCONFIGURATION DRIFT DETECTED")
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintf(r.out, "Device: %s\n", event.DeviceName)
	fmt.Fprintf(r.out, "Issue: %s\n", event.DriftType)
	fmt.Fprintf(r.out, "Detection: %s\n", event.DetectionSource)
	if event.InterfaceName != "" {
		fmt.Fprintf(r.out, "Interface: %s\n", event.InterfaceName)
	}
	fmt.Fprintln(r.out, "\nRESOLUTION OPTIONS:")
	fmt.Fprintln(r.out, "1. Discover and sync (recommended)")
	fmt.Fprintln(r.out, "2. Skip conflicting interfaces")
	fmt.Fprintln(r.out, "3. Override (force reconfiguration)")
	fmt.Fprintln(r.out, "4. Abort deployment")
	fmt.Fprint(r.out, "\nSelect resolution option [1-4]: ")

	scanner := bufio.NewScanner(r.in)
	if !scanner.Scan() {
		return types.SyncResolution{Action: types.ActionAbort, Message: "no resolution input available"}
	}
	choice := strings.TrimSpace(scanner.Text())

	switch choice {
	case "1":
		return r.discoverAndSync(event)
	case "2":
		return types.SyncResolution{Action: types.ActionSkip, Message: "operator chose to skip conflicting interfaces", OperatorChoice: "skip"}
	case "3":
		return types.SyncResolution{Action: types.ActionOverride, Message: "operator chose to override existing configuration", OperatorChoice: "override"}
	case "4":
		return types.SyncResolution{Action: types.ActionAbort, Message: "operator chose to abort deployment", OperatorChoice: "abort"}
	default:
		fmt.Fprintln(r.out, "invalid selection, aborting")
		return types.SyncResolution{Action: types.ActionAbort, Message: "invalid operator selection"}
	}
}

// ResolveAutomatic applies a fixed Policy with no operator interaction,
// the three policies the teacher's CLI exposes via --auto-resolve.
func (r *Resolver) ResolveAutomatic(event *types.DriftEvent, policy Policy) types.SyncResolution {
	switch policy {
	case PolicyConservative:
		return r.discoverAndSync(event)
	case PolicyPermissive:
		return types.SyncResolution{Action: types.ActionSkip, Message: "automatic resolution: skipped conflicting interface"}
	case PolicyAggressive:
		return types.SyncResolution{Action: types.ActionOverride, Message: "automatic resolution: overriding existing configuration"}
	default:
		return types.SyncResolution{Action: types.ActionFailed, Message: "unknown automatic resolution policy: " + string(policy)}
	}
}

// discoverAndSync re-discovers a device's actual configuration scoped to
// event's interface (or, if none, the whole device) and writes the
// discovered records through r.updater.
func (r *Resolver) discoverAndSync(event *types.DriftEvent) types.SyncResolution {
	var records []types.InterfaceRecord

	if event.InterfaceName != "" {
		basePattern := event.InterfaceName
		if i := strings.Index(basePattern, "."); i >= 0 {
			basePattern = basePattern[:i]
		}
		records = discovery.DiscoverInterfaceConfigurations(r.sess, basePattern)
	} else {
		snapshot, err := discovery.DiscoverDeviceFullConfig(r.sess)
		if err != nil {
			return types.SyncResolution{Action: types.ActionFailed, Message: "discovery failed: " + err.Error()}
		}
		records = snapshot.InterfaceConfigs
	}

	if len(records) == 0 {
		return types.SyncResolution{Action: types.ActionFailed, Message: "no configurations discovered on device"}
	}

	if r.updater == nil {
		util.WithDevice(event.DeviceName).Warn("discovery succeeded but no updater is wired")
		return types.SyncResolution{Action: types.ActionFailed, Message: "discovery succeeded but database updater not available", DiscoveredRecords: records}
	}

	syncResult, err := r.updater.UpdateDiscoveredConfigs(records)
	if err != nil {
		return types.SyncResolution{Action: types.ActionFailed, Message: "database update failed: " + err.Error(), DiscoveredRecords: records}
	}
	if !syncResult.Success {
		return types.SyncResolution{Action: types.ActionFailed, Message: "discovery succeeded but database update failed", DiscoveredRecords: records, SyncResult: syncResult}
	}

	r.syncBridgeDomainDiscoveryBlob(event, records)

	return types.SyncResolution{
		Action:            types.ActionSynced,
		Message:           fmt.Sprintf("discovered and synced %d configurations", len(records)),
		DiscoveredRecords: records,
		SyncResult:        syncResult,
	}
}

// syncBridgeDomainDiscoveryBlob is sync_resolver.py's best-effort,
// ImportError-tolerant attempt to also update a bridge domain's discovery
// blob after a successful interface sync, folded in as a non-fatal second
// step: it infers the bridge domain the synced interface belongs to (a
// simple VLAN-suffix heuristic, explicitly a best-effort guess) and folds
// the discovered record into that bridge domain's blob. Failure here is
// only logged — it never changes the resolution's synced action.
func (r *Resolver) syncBridgeDomainDiscoveryBlob(event *types.DriftEvent, records []types.InterfaceRecord) {
	if event.InterfaceName == "" || len(records) == 0 {
		return
	}
	bdName, ok := InferBridgeDomainFromInterface(event.InterfaceName, "")
	if !ok {
		return
	}

	rec := records[0]
	for _, candidate := range records {
		if candidate.InterfaceName == event.InterfaceName {
			rec = candidate
			break
		}
	}

	if _, err := r.updater.UpdateBridgeDomainDiscoveryBlob(bdName, rec); err != nil {
		util.WithDevice(event.DeviceName).Warnf("bridge-domain discovery blob update failed for %s: %v", bdName, err)
	}
}

// IsInteractive reports whether fd refers to a real terminal. A caller can
// use it to choose the interactive flag passed to deploy.New; the
// orchestrator itself decides between ResolveInteractive and
// ResolveAutomatic from that flag alone.
func IsInteractive(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// InferBridgeDomainFromInterface guesses a likely bridge-domain name for a
// dotted interface name carrying a VLAN suffix, matching the teacher's
// "g_<user>_v<vlan>" naming convention. username defaults to the fleet's
// conventional owner when the caller has no better guess.
func InferBridgeDomainFromInterface(interfaceName, username string) (string, bool) {
	i := strings.LastIndex(interfaceName, ".")
	if i < 0 {
		return "", false
	}
	suffix := interfaceName[i+1:]
	vlan, err := strconv.Atoi(suffix)
	if err != nil {
		return "", false
	}
	if username == "" {
		username = "user"
	}
	return fmt.Sprintf("g_%s_v%d", username, vlan), true
}
