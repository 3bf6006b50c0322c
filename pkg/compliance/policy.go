package compliance

// ACLRequirement names an access list and the source hosts it must permit.
type ACLRequirement struct {
	Name  string   `yaml:"name"`
	Hosts []string `yaml:"hosts"`
}

// FlowExporterPolicy is the required NetFlow export configuration.
type FlowExporterPolicy struct {
	MinCount         int      `yaml:"min_count"`
	SourceInterfaces []string `yaml:"source_interfaces"`
	Destinations     []string `yaml:"destinations"`
	Port             string   `yaml:"port"`
	Monitor          string   `yaml:"monitor"`
}

// Policy holds the required sets and constants the checks compare against.
type Policy struct {
	VRRPPriority     string             `yaml:"vrrp_priority"`
	DefaultRouteCost int                `yaml:"default_route_cost"`
	SNMPCommunities  []string           `yaml:"snmp_communities"`
	SNMPACLs         []ACLRequirement   `yaml:"snmp_acls"`
	ISEServers       []string           `yaml:"ise_servers"`
	FlowExporters    FlowExporterPolicy `yaml:"flow_exporters"`
	FixedSpeeds      []string           `yaml:"fixed_speeds"`
	// RequireHardcodedSpeedDuplex turns auto speed/duplex into a warning.
	RequireHardcodedSpeedDuplex bool `yaml:"require_hardcoded_speed_duplex"`
}

// DefaultPolicy returns the policy of the reference deployment.
func DefaultPolicy() Policy {
	return Policy{
		VRRPPriority:     "100",
		DefaultRouteCost: 220,
		SNMPCommunities: []string{
			"snmp-server community community1 RO SNMP_RO",
			"snmp-server community community2 RW SNMP_RW",
		},
		SNMPACLs: []ACLRequirement{
			{Name: "SNMP_RO", Hosts: []string{
				"10.83.34.107", "10.15.78.56", "10.15.79.51", "10.102.78.54", "10.8.96.53",
				"10.85.51.52", "10.96.42.51", "10.17.78.60", "10.102.35.67", "10.89.72.48", "10.92.202.4",
			}},
			{Name: "SNMP_RW", Hosts: []string{
				"10.85.51.52", "10.96.42.51", "10.17.78.60", "10.102.35.67", "10.89.72.48",
				"10.97.71.50", "10.84.20.31", "10.41.23.58", "10.75.89.63",
			}},
		},
		ISEServers: []string{"10.81.89.123", "10.72.31.189", "10.78.1.115", "10.78.12.16"},
		FlowExporters: FlowExporterPolicy{
			MinCount:         2,
			SourceInterfaces: []string{"Loopback0", "Vlan1"},
			Destinations:     []string{"10.79.126.84", "10.51.18.13", "10.45.35.184", "10.9.111.15"},
			Port:             "2055",
			Monitor:          "FIELD_SITES",
		},
		FixedSpeeds: []string{"speed 10000", "speed 1000", "speed 100", "speed 10"},
	}
}
