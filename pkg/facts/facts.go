package facts

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Facts is the snapshot of one device for one run. A nil pointer or empty
// slice means "observed absent" unless the kind is recorded in Anomalies.
type Facts struct {
	Address string `yaml:"address"`

	General     *GeneralInfo `yaml:"general,omitempty"`
	Environment *Environment `yaml:"environment,omitempty"`
	DNSName     string       `yaml:"dns_name,omitempty"`
	CellRadio   *CellRadio   `yaml:"cell_radio,omitempty"`

	Interfaces    []InterfaceRecord    `yaml:"interfaces,omitempty"`
	VRRPGroups    []VRRPGroupRecord    `yaml:"vrrp_groups,omitempty"`
	BGPNeighbors  []BGPNeighborRecord  `yaml:"bgp_neighbors,omitempty"`
	BFDNeighbors  []BFDNeighborRecord  `yaml:"bfd_neighbors,omitempty"`
	ACEs          []ACE                `yaml:"aces,omitempty"`
	FlowExporters []FlowExporterRecord `yaml:"flow_exporters,omitempty"`
	CDPNeighbors  []CDPNeighborRecord  `yaml:"cdp_neighbors,omitempty"`

	SNMPConfig          string   `yaml:"snmp_config,omitempty"`
	TACACSConfig        string   `yaml:"tacacs_config,omitempty"`
	DefaultRoute        string   `yaml:"default_route,omitempty"`
	PolicyMap           string   `yaml:"policy_map,omitempty"`
	PolicyMapInterfaces []string `yaml:"policy_map_interfaces,omitempty"`

	// InterfaceConfig maps interface name to its raw running configuration.
	InterfaceConfig map[string]string `yaml:"interface_config,omitempty"`

	// Collected lists the kinds that were requested from the device.
	Collected map[Kind]bool `yaml:"collected,omitempty"`
	// Anomalies holds the reason a requested kind could not be parsed.
	Anomalies map[Kind]string `yaml:"anomalies,omitempty"`
}

// New creates an empty fact set for address.
func New(address string) *Facts {
	return &Facts{
		Address:         address,
		InterfaceConfig: make(map[string]string),
		Collected:       make(map[Kind]bool),
		Anomalies:       make(map[Kind]string),
	}
}

// MarkCollected records that kind was requested and parsed.
func (f *Facts) MarkCollected(kind Kind) {
	if f.Collected == nil {
		f.Collected = make(map[Kind]bool)
	}
	f.Collected[kind] = true
}

// RecordAnomaly records that kind was requested but is missing or malformed.
func (f *Facts) RecordAnomaly(kind Kind, err error) {
	if f.Anomalies == nil {
		f.Anomalies = make(map[Kind]string)
	}
	f.MarkCollected(kind)
	f.Anomalies[kind] = err.Error()
}

// Anomaly returns the recorded reason kind is unusable, or "" when it is usable.
// A kind that was never collected is reported as an anomaly too, so checks
// never evaluate facts nobody gathered.
func (f *Facts) Anomaly(kind Kind) string {
	if reason, ok := f.Anomalies[kind]; ok {
		return reason
	}
	if f.Collected != nil && !f.Collected[kind] {
		return fmt.Sprintf("%s was not collected", kind)
	}
	return ""
}

// Interface returns the interface record named name.
func (f *Facts) Interface(name string) (InterfaceRecord, bool) {
	for _, r := range f.Interfaces {
		if r.Name == name {
			return r, true
		}
	}
	return InterfaceRecord{}, false
}

// Hostname returns the device hostname when known.
func (f *Facts) Hostname() string {
	if f.General != nil && f.General.Hostname != "" {
		return f.General.Hostname
	}
	return ""
}

// CollectedKinds returns the collected kinds in sorted order.
func (f *Facts) CollectedKinds() []Kind {
	kinds := make([]Kind, 0, len(f.Collected))
	for k := range f.Collected {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// LoadSnapshot reads a YAML fact snapshot. A snapshot without a collected
// list is treated as complete: every kind is considered collected.
func LoadSnapshot(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	var f Facts
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if f.InterfaceConfig == nil {
		f.InterfaceConfig = make(map[string]string)
	}
	if f.Anomalies == nil {
		f.Anomalies = make(map[Kind]string)
	}
	return &f, nil
}

// SaveSnapshot writes f as YAML to path.
func (f *Facts) SaveSnapshot(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
