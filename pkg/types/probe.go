package types

import "time"

// DeviceOutcomeStatus is the terminal state of one device's probe run.
type DeviceOutcomeStatus string

const (
	OutcomeSuccessful DeviceOutcomeStatus = "successful"
	OutcomeFailed     DeviceOutcomeStatus = "failed"
	OutcomeInvalid    DeviceOutcomeStatus = "invalid" // not usable (placeholder mgmt address)
)

// ArtifactKind identifies one of the fixed probe artifacts.
type ArtifactKind string

const (
	ArtifactLACPXML       ArtifactKind = "lacp_xml"
	ArtifactLLDPTable     ArtifactKind = "lldp_table"
	ArtifactBridgeDomains ArtifactKind = "bridge_domain"
	ArtifactVLANConfig    ArtifactKind = "vlan_config"
)

// DeviceOutcome records one device's per-artifact collection and parse
// results for a single probe run.
type DeviceOutcome struct {
	DeviceName string
	Status     DeviceOutcomeStatus
	Collected  map[ArtifactKind]bool
	Parsed     map[ArtifactKind]bool
	Counts     map[ArtifactKind]int
	Errors     []string
	Warnings   []string
}

// NewDeviceOutcome builds an outcome with initialized maps.
func NewDeviceOutcome(device string) *DeviceOutcome {
	return &DeviceOutcome{
		DeviceName: device,
		Collected:  make(map[ArtifactKind]bool),
		Parsed:     make(map[ArtifactKind]bool),
		Counts:     make(map[ArtifactKind]int),
	}
}

// ProbeSummary is the value the probe pipeline's orchestrator builds; per
// testable property 5, Successful+Failed+Invalid == TotalDevices.
type ProbeSummary struct {
	Start          time.Time
	End            time.Time
	TotalDevices   int
	UsableDevices  int
	Successful     int
	Failed         int
	Invalid        int
	PerDeviceOutcomes map[string]*DeviceOutcome
}

// NewProbeSummary builds an empty summary ready for the pipeline to
// populate as each device's outcome lands.
func NewProbeSummary() *ProbeSummary {
	return &ProbeSummary{PerDeviceOutcomes: make(map[string]*DeviceOutcome)}
}

// DeviceConfigSnapshot is a full per-device configuration snapshot produced
// by discover-device-full, aggregating one BridgeDomainInstance's worth of
// interface configs per bridge-domain found on the device.
type DeviceConfigSnapshot struct {
	DeviceName           string
	InterfaceConfigs     []InterfaceRecord
	BridgeDomainConfigs  []BridgeDomainInstance
	SnapshotTime         time.Time
	TotalInterfaces      int
	ConfiguredInterfaces int
}
