package compliance

import (
	"reflect"
	"strings"
	"testing"

	"github.com/edgecheck-network/edgecheck/pkg/facts"
)

func TestSNMPCommunityCheck(t *testing.T) {
	check := NewSNMPCommunityCheck(DefaultPolicy().SNMPCommunities)

	f := newFacts(facts.KindSNMPConfig)
	f.SNMPConfig = "snmp-server community community1 RO SNMP_RO\nsnmp-server location lab"
	r := check.Evaluate(Target{Facts: f})
	if r.Status != StatusWarn {
		t.Fatalf("Status = %q, want warn", r.Status)
	}
	if !strings.Contains(r.Message, "community2 RW SNMP_RW") || strings.Contains(r.Message, "community1") {
		t.Errorf("Message = %q, want only the missing community", r.Message)
	}

	f.SNMPConfig += "\nsnmp-server community community2 RW SNMP_RW"
	if r := check.Evaluate(Target{Facts: f}); r.Status != StatusOK {
		t.Errorf("Status = %q, want ok", r.Status)
	}
}

func TestISEServerCheck(t *testing.T) {
	check := NewISEServerCheck([]string{"10.81.89.123", "10.72.31.189"})
	f := newFacts(facts.KindTACACSConfig)
	f.TACACSConfig = "tacacs server ISE1\n address ipv4 10.81.89.123"
	r := check.Evaluate(Target{Facts: f})
	if r.Status != StatusWarn || !strings.Contains(r.Message, "10.72.31.189") {
		t.Errorf("got %q %q, want warn naming 10.72.31.189", r.Status, r.Message)
	}
}

func TestACLCheck(t *testing.T) {
	reqs := []ACLRequirement{
		{Name: "SNMP_RO", Hosts: []string{"10.1.1.1", "10.1.1.2"}},
		{Name: "SNMP_RW", Hosts: []string{"10.1.1.1"}},
	}
	check := NewACLCheck(reqs)

	f := newFacts(facts.KindACLs)
	f.ACEs = []facts.ACE{
		{ACLName: "SNMP_RO", SourceHost: "10.1.1.1"},
		{ACLName: "SNMP_RW", SourceHost: "10.1.1.1"},
		// Same host in a different ACL does not cover SNMP_RO.
		{ACLName: "SNMP_RW", SourceHost: "10.1.1.2"},
	}
	r := check.Evaluate(Target{Facts: f})
	if r.Status != StatusWarn {
		t.Fatalf("Status = %q, want warn", r.Status)
	}
	if !strings.Contains(r.Message, "SNMP_RO ACL has not been added") || !strings.Contains(r.Message, "10.1.1.2") {
		t.Errorf("Message = %q", r.Message)
	}
	if !strings.Contains(r.Message, "SNMP_RW ACL has been added") {
		t.Errorf("Message = %q, want SNMP_RW reported complete", r.Message)
	}
}

func TestCoverageCheck_Anomaly(t *testing.T) {
	check := NewACLCheck(DefaultPolicy().SNMPACLs)
	r := check.Evaluate(Target{Facts: newFacts()})
	if r.Status != StatusUnknown {
		t.Errorf("Status = %q, want unknown for uncollected facts", r.Status)
	}
}

func TestMissingHosts(t *testing.T) {
	reqs := []ACLRequirement{
		{Name: "SNMP_RO", Hosts: []string{"10.1.1.1", "10.1.1.2"}},
		{Name: "SNMP_RW", Hosts: []string{"10.1.1.3"}},
	}
	current := []facts.ACE{
		{ACLName: "SNMP_RO", SourceHost: "10.1.1.1"},
		{ACLName: "SNMP_RW", SourceHost: "10.1.1.3"},
	}
	got := MissingHosts(reqs, current)
	want := map[string][]string{"SNMP_RO": {"10.1.1.2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingHosts() = %v, want %v", got, want)
	}
}
