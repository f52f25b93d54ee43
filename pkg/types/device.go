// Package types holds the value types shared across fleetctl's packages:
// the device inventory record, the structured records produced by parsing
// and discovery, and the plan/result types the deployment orchestrator
// passes around. Keeping these as plain structs (rather than deriving them
// from caught errors or stats maps) is deliberate — every operation in this
// module returns one of these, it never raises for an expected condition.
package types

// Placeholder management-address sentinels. A Device carrying one of these
// is not usable even if every other field is populated.
const (
	PlaceholderTBD     = "TBD"
	PlaceholderUnknown = "unknown"
)

// Device is one entry in the fleet inventory, after merging with defaults.
type Device struct {
	Name       string `yaml:"-"`
	MgmtIP     string `yaml:"mgmt_ip"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SSHPort    int    `yaml:"ssh_port"`
	DeviceType string `yaml:"device_type"`
	Status     string `yaml:"status"`
	Location   string `yaml:"location"`
	Role       string `yaml:"role"`
}

// Usable reports whether the device has a real management address — not
// empty and not one of the placeholder sentinels.
func (d *Device) Usable() bool {
	if d == nil {
		return false
	}
	switch d.MgmtIP {
	case "", PlaceholderTBD, PlaceholderUnknown:
		return false
	default:
		return true
	}
}
