package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edgecheck-network/edgecheck/pkg/profile"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edgecheck.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Policy.VRRPPriority != "100" || c.Policy.DefaultRouteCost != 220 {
		t.Errorf("policy constants = %q/%d", c.Policy.VRRPPriority, c.Policy.DefaultRouteCost)
	}
	if c.Policy.FlowExporters.MinCount != 2 || c.Policy.FlowExporters.Port != "2055" {
		t.Errorf("flow exporter policy = %+v", c.Policy.FlowExporters)
	}
	if c.SSH.Port != 22 || c.Workers != defaultWorkers || !c.VerifyEnabled() {
		t.Errorf("defaults = port %d, workers %d, verify %v", c.SSH.Port, c.Workers, c.VerifyEnabled())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Policy.SNMPACLs) != 2 {
		t.Errorf("got %d ACL requirements, want 2", len(c.Policy.SNMPACLs))
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
policy:
  default_route_cost: 200
  snmp_acls:
    - name: SNMP_RO
      hosts: [10.1.1.1, 10.1.1.2]
sites:
  10.0.0.1: ISP1
ssh:
  port: 2222
  command_timeout: 90s
verify: false
workers: 8
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Policy.DefaultRouteCost != 200 {
		t.Errorf("DefaultRouteCost = %d, want 200", c.Policy.DefaultRouteCost)
	}
	if c.Policy.VRRPPriority != "100" {
		t.Errorf("VRRPPriority = %q, want default 100", c.Policy.VRRPPriority)
	}
	if len(c.Policy.SNMPACLs) != 1 || len(c.Policy.SNMPACLs[0].Hosts) != 2 {
		t.Errorf("SNMPACLs = %+v", c.Policy.SNMPACLs)
	}
	if len(c.Policy.ISEServers) == 0 {
		t.Error("ISE servers should keep their defaults")
	}
	if c.Sites["10.0.0.1"] != "ISP1" {
		t.Errorf("Sites = %v", c.Sites)
	}

	opts := c.SessionOptions()
	if opts.Port != 2222 || opts.CommandTimeout != 90*time.Second || opts.ConnectTimeout != 15*time.Second {
		t.Errorf("SessionOptions() = %+v", opts)
	}
	if c.VerifyEnabled() {
		t.Error("verify: false should disable verification")
	}
	if c.Workers != 8 {
		t.Errorf("Workers = %d", c.Workers)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "policy: [", "parsing config"},
		{"bad host", "policy:\n  snmp_acls:\n    - name: SNMP_RO\n      hosts: [10.1.1.300]\n", "invalid host"},
		{"unnamed acl", "policy:\n  snmp_acls:\n    - hosts: [10.1.1.1]\n", "ACL name is required"},
		{"bad variant", "variants:\n  core:\n    lan_designator: Vlan10\n", "unknown router variant"},
		{"bad port", "ssh:\n  port: 70000\n", "out of range"},
		{"negative workers", "workers: -1\n", "workers must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestCapabilities_Overrides(t *testing.T) {
	path := writeConfig(t, `
variants:
  field:
    wan_designators: [GigabitEthernet0/0/2]
  cell-router:
    lan_designator: Vlan10
    excluded_interfaces: [Tunnel9]
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table := c.Capabilities()

	field := table[profile.VariantField]
	if len(field.WANDesignators) != 1 || field.WANDesignators[0] != "GigabitEthernet0/0/2" {
		t.Errorf("field WAN designators = %v", field.WANDesignators)
	}
	if field.LANDesignator != "Vlan1" {
		t.Errorf("field LAN designator = %q, want default Vlan1", field.LANDesignator)
	}

	cell := table[profile.VariantCell]
	if cell.LANDesignator != "Vlan10" || len(cell.Excluded) != 1 {
		t.Errorf("cell = %+v", cell)
	}
	if generic := table[profile.VariantGeneric]; generic.LANDesignator != "Vlan1" {
		t.Errorf("generic should be untouched, got %+v", generic)
	}
}
