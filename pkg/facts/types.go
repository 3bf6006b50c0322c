// Package facts defines the structured observations collected from an edge
// router for one run. Facts carry no behavior beyond bookkeeping of which kinds
// were collected and which failed to parse.
package facts

import (
	"strings"
)

// Kind names one category of fact, normally backed by one device command.
type Kind string

const (
	KindGeneral         Kind = "general"
	KindEnvironment     Kind = "environment"
	KindInterfaces      Kind = "interfaces"
	KindVRRP            Kind = "vrrp"
	KindSNMPConfig      Kind = "snmp_config"
	KindACLs            Kind = "acls"
	KindFlowExporters   Kind = "flow_exporters"
	KindBGP             Kind = "bgp"
	KindBFD             Kind = "bfd"
	KindPolicyMap       Kind = "policy_map"
	KindPolicyMapApply  Kind = "policy_map_interfaces"
	KindDefaultRoute    Kind = "default_route"
	KindTACACSConfig    Kind = "tacacs_config"
	KindCDPNeighbors    Kind = "cdp_neighbors"
	KindCellRadio       Kind = "cell_radio"
	KindInterfaceConfig Kind = "interface_config"
	KindDNS             Kind = "dns"
)

// BGPDownStates are the session states that mean a neighbor is not established.
var BGPDownStates = []string{"Idle", "Connect", "Active"}

// InterfaceRecord is one interface as reported by the device.
type InterfaceRecord struct {
	Name         string `yaml:"name"`
	IPAddress    string `yaml:"ip_address,omitempty"`
	LinkStatus   string `yaml:"link_status,omitempty"`
	InputRate    int64  `yaml:"input_rate,omitempty"`  // bits/sec
	OutputRate   int64  `yaml:"output_rate,omitempty"` // bits/sec
	InputErrors  int64  `yaml:"input_errors,omitempty"`
	OutputErrors int64  `yaml:"output_errors,omitempty"`
	SpeedDuplex  string `yaml:"speed_duplex,omitempty"`
}

// HasAddress reports whether the interface carries an IP address.
func (r InterfaceRecord) HasAddress() bool {
	return r.IPAddress != "" && !strings.EqualFold(r.IPAddress, "unassigned")
}

// BGPNeighborRecord is one row of the BGP summary.
type BGPNeighborRecord struct {
	Neighbor string `yaml:"neighbor"`
	// StatePfxRcd holds either the session state name or, once established,
	// the received prefix count.
	StatePfxRcd string `yaml:"state_pfxrcd"`
	UpDown      string `yaml:"up_down"`
}

// Up reports whether the session is established.
func (r BGPNeighborRecord) Up() bool {
	for _, s := range BGPDownStates {
		if r.StatePfxRcd == s {
			return false
		}
	}
	return true
}

// BFDNeighborRecord is one BFD session.
type BFDNeighborRecord struct {
	Neighbor  string `yaml:"neighbor"`
	State     string `yaml:"state"`
	Interface string `yaml:"interface,omitempty"`
}

// VRRPGroupRecord is one VRRP group on one interface.
type VRRPGroupRecord struct {
	Interface string `yaml:"interface,omitempty"`
	Group     string `yaml:"group"`
	State     string `yaml:"state"`
	Priority  string `yaml:"priority"`
}

// ACE is one source-host entry of a named access list. Identity is the
// (ACLName, SourceHost) pair, so ACE is usable as a map key.
type ACE struct {
	ACLName    string `yaml:"acl_name"`
	SourceHost string `yaml:"src_host"`
}

// FlowExporterRecord is one configured NetFlow exporter.
type FlowExporterRecord struct {
	Name               string `yaml:"name"`
	SourceInterface    string `yaml:"source_interface,omitempty"`
	DestinationAddress string `yaml:"destination_address,omitempty"`
	DestinationPort    string `yaml:"destination_port,omitempty"`
	TransportProtocol  string `yaml:"transport_protocol,omitempty"`
}

// CDPNeighborRecord is one adjacent device learned through CDP.
type CDPNeighborRecord struct {
	DeviceID     string   `yaml:"device_id"`
	ManagementIP string   `yaml:"management_ip,omitempty"`
	EntryIP      string   `yaml:"entry_ip,omitempty"`
	Platform     string   `yaml:"platform,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// Address returns the address used to reach the neighbor: the management
// address when advertised, otherwise the entry address.
func (r CDPNeighborRecord) Address() string {
	if r.ManagementIP != "" {
		return r.ManagementIP
	}
	return r.EntryIP
}

// HasCapability reports whether the neighbor advertises capability c
// (case-insensitive).
func (r CDPNeighborRecord) HasCapability(c string) bool {
	for _, have := range r.Capabilities {
		if strings.EqualFold(have, c) {
			return true
		}
	}
	return false
}

// GeneralInfo is the identity of the device.
type GeneralInfo struct {
	Hostname string `yaml:"hostname"`
	Hardware string `yaml:"hardware,omitempty"`
	Version  string `yaml:"version,omitempty"`
	Uptime   string `yaml:"uptime,omitempty"`
}

// Environment summarizes the sensor state.
type Environment struct {
	PowerOK          bool `yaml:"power_ok"`
	TemperatureAlert bool `yaml:"temperature_alert"`
	FansOK           bool `yaml:"fans_ok"`
}

// CellRadio holds the cellular radio levels of a cell router.
type CellRadio struct {
	RSSI    string `yaml:"rssi,omitempty"`
	RSRP    string `yaml:"rsrp,omitempty"`
	RSRQ    string `yaml:"rsrq,omitempty"`
	SNR     string `yaml:"snr,omitempty"`
	Channel string `yaml:"channel,omitempty"`
	RAT     string `yaml:"rat,omitempty"`
}
