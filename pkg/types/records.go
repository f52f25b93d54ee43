package types

// InterfaceType tags the kind of interface an InterfaceRecord describes.
// A named type instead of a bare string, per the no-string-keyed-type-field
// redesign.
type InterfaceType string

const (
	InterfacePhysical     InterfaceType = "physical"
	InterfaceBundle       InterfaceType = "bundle"
	InterfaceSubinterface InterfaceType = "subinterface"
	InterfaceUnknown      InterfaceType = "unknown"
)

// InterfaceRecord describes one interface's discovered or parsed state.
// Uniqueness is (DeviceName, InterfaceName).
type InterfaceRecord struct {
	DeviceName      string
	InterfaceName   string
	InterfaceType   InterfaceType
	VLANID          int // 0 means absent; otherwise in [1,4094]
	AdminStatus     string
	OperStatus      string
	BundleID        string
	SubinterfaceID  string
	L2ServiceEnable bool
	Description     string
	RawCLILines     []string

	// Source identifies which discovery/parse path produced this record,
	// so downstream consumers can break ties between competing sources.
	Source string
}

// LACPStatus is the aggregate state of an LACPBundle.
type LACPStatus string

const (
	LACPActive   LACPStatus = "active"
	LACPStandby  LACPStatus = "standby"
	LACPUp       LACPStatus = "up"
	LACPDown     LACPStatus = "down"
)

// LACPBundle is a link-aggregation group parsed from the interactive LACP
// table or the LACP XML subtree.
type LACPBundle struct {
	BundleName      string
	DeviceName      string
	LocalKey        string
	PeerKey         string
	PeerSystemID    string
	MemberInterfaces []string // ordered, actor rows only
	Status          LACPStatus
}

// LLDPNeighbor is one row of a device's LLDP neighbor table.
type LLDPNeighbor struct {
	LocalDevice        string
	LocalInterface     string
	NeighborSystemName string
	NeighborInterface  string
	TTL                string
}

// LinkKey returns an order-independent identity for the physical link this
// neighbor record describes, so that A's record of A->B and B's record of
// B->A dedup to the same link.
func (n LLDPNeighbor) LinkKey() [2]string {
	a := n.LocalDevice + "/" + n.LocalInterface
	b := n.NeighborSystemName + "/" + n.NeighborInterface
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// BridgeDomainScope is the visibility scope encoded in a BD's scope letter.
type BridgeDomainScope string

const (
	ScopeGlobal  BridgeDomainScope = "global"
	ScopeLocal   BridgeDomainScope = "local"
	ScopeUnknown BridgeDomainScope = "unknown"
)

// TopologyType is the bridge-domain's logical topology.
type TopologyType string

const (
	TopologyP2P     TopologyType = "p2p"
	TopologyP2MP    TopologyType = "p2mp"
	TopologyUnknown TopologyType = "unknown"
)

// BridgeDomainInterface pairs a device with one of its member interfaces.
type BridgeDomainInterface struct {
	DeviceName    string
	InterfaceName string
}

// BridgeDomainInstance is a Layer-2 service instance discovered on one or
// more devices.
type BridgeDomainInstance struct {
	Name         string
	Username     string // best-effort, derived from Name; never overrides an explicit value
	PrimaryVLAN  int    // 0 means absent
	DNAASType    string // delegated to an external classifier; left empty by this core
	TopologyType TopologyType
	Scope        BridgeDomainScope
	Devices      []string
	Interfaces   []BridgeDomainInterface
}

// VLANKind distinguishes a subinterface VLAN assignment from a raw
// manipulation line.
type VLANKind string

const (
	VLANSubinterface  VLANKind = "subinterface"
	VLANManipulation  VLANKind = "manipulation"
)

// BridgeDomainDiscovery is the input populate-bridge-domain validates and
// writes: a bridge domain's identity and metadata plus the full interface
// records backing its per-interface association rows and its
// discovery_data blob.
type BridgeDomainDiscovery struct {
	BridgeDomainName string
	Username         string
	VLANID           int
	DNAASType        string
	TopologyType     TopologyType
	Devices          []string
	Interfaces       []InterfaceRecord
}

// VLANConfig is one `interfaces <name> vlan-id <N>` or
// `interfaces <name> vlan-manipulation …` line.
type VLANConfig struct {
	DeviceName    string
	InterfaceName string
	VLANID        int // 0 means absent; only meaningful for VLANSubinterface
	Kind          VLANKind
	RawLine       string
}
