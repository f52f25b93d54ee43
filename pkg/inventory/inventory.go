// Package inventory loads the fleet's device records from a YAML document
// and exposes lookups and filtered listings. Loading glue (file I/O, YAML
// parsing) is an external collaborator in the sense that callers own the
// document; this package's contract is the merge-defaults-then-validate
// semantics and the reachability probe.
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

const defaultsKey = "defaults"

// rawRecord is the YAML shape of one inventory entry, `defaults` included.
type rawRecord struct {
	MgmtIP     string `yaml:"mgmt_ip"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SSHPort    int    `yaml:"ssh_port"`
	DeviceType string `yaml:"device_type"`
	Status     string `yaml:"status"`
	Location   string `yaml:"location"`
	Role       string `yaml:"role"`
}

func (r rawRecord) merge(defaults rawRecord) rawRecord {
	return rawRecord{
		MgmtIP:     util.CoalesceString(r.MgmtIP, defaults.MgmtIP),
		Username:   util.CoalesceString(r.Username, defaults.Username),
		Password:   util.CoalesceString(r.Password, defaults.Password),
		SSHPort:    firstNonZero(r.SSHPort, defaults.SSHPort, 22),
		DeviceType: util.CoalesceString(r.DeviceType, defaults.DeviceType),
		Status:     util.CoalesceString(r.Status, defaults.Status),
		Location:   util.CoalesceString(r.Location, defaults.Location),
		Role:       util.CoalesceString(r.Role, defaults.Role),
	}
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// Inventory is the loaded, merged set of devices for one run. Devices are
// read-only after load (per the concurrency model's shared-resource
// policy).
type Inventory struct {
	devices map[string]*types.Device
}

// Load reads and parses an inventory document from path, merges every
// record over `defaults`, and validates the result. A missing file is
// fatal; a malformed individual record is skipped with a warning rather
// than failing the whole load.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, util.NewInventoryError(path, fmt.Sprintf("cannot read inventory file: %v", err))
	}
	return parse(path, data)
}

func parse(source string, data []byte) (*Inventory, error) {
	var raw map[string]rawRecord
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, util.NewInventoryError(source, fmt.Sprintf("malformed YAML: %v", err))
	}
	if raw == nil {
		return nil, util.NewInventoryError(source, "inventory document is empty")
	}

	defaults := raw[defaultsKey]

	inv := &Inventory{devices: make(map[string]*types.Device, len(raw))}
	for name, rec := range raw {
		if name == defaultsKey {
			continue
		}
		merged := rec.merge(defaults)

		var vb util.ValidationBuilder
		vb.Add(merged.MgmtIP != "", "mgmt_ip is required")
		vb.Add(merged.SSHPort >= 0 && merged.SSHPort <= 65535, "ssh_port out of range")
		if vb.HasErrors() {
			util.WithField("device", name).Warnf("skipping malformed inventory record: %v", vb.Build())
			continue
		}

		inv.devices[name] = &types.Device{
			Name:       name,
			MgmtIP:     merged.MgmtIP,
			Username:   merged.Username,
			Password:   merged.Password,
			SSHPort:    merged.SSHPort,
			DeviceType: merged.DeviceType,
			Status:     merged.Status,
			Location:   merged.Location,
			Role:       merged.Role,
		}
	}

	return inv, nil
}

// Get returns the merged record for name, or nil if not present.
func (inv *Inventory) Get(name string) *types.Device {
	return inv.devices[name]
}

// ListUsable returns every device with a usable management address,
// ordered by name for deterministic output.
func (inv *Inventory) ListUsable() []*types.Device {
	var out []*types.Device
	for _, d := range inv.devices {
		if d.Usable() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// All returns every loaded device (usable or not), ordered by name.
func (inv *Inventory) All() []*types.Device {
	out := make([]*types.Device, 0, len(inv.devices))
	for _, d := range inv.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
