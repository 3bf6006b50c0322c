package facts

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFacts_Anomaly(t *testing.T) {
	f := New("10.0.0.1")
	if got := f.Anomaly(KindVRRP); got == "" {
		t.Error("uncollected kind should report an anomaly")
	}

	f.MarkCollected(KindVRRP)
	if got := f.Anomaly(KindVRRP); got != "" {
		t.Errorf("collected kind Anomaly() = %q, want empty", got)
	}

	f.RecordAnomaly(KindBGP, errors.New("no neighbor table"))
	if got := f.Anomaly(KindBGP); got != "no neighbor table" {
		t.Errorf("Anomaly(bgp) = %q", got)
	}
	if !f.Collected[KindBGP] {
		t.Error("RecordAnomaly should mark the kind collected")
	}
}

func TestFacts_AnomalyWithoutCollectedList(t *testing.T) {
	f := &Facts{Address: "10.0.0.1"}
	if got := f.Anomaly(KindSNMPConfig); got != "" {
		t.Errorf("Anomaly() = %q, want empty when nothing tracks collection", got)
	}
}

func TestCDPNeighborRecord(t *testing.T) {
	r := CDPNeighborRecord{EntryIP: "10.0.0.2", Capabilities: []string{"router", "IGMP"}}
	if r.Address() != "10.0.0.2" {
		t.Errorf("Address() = %q, want entry address", r.Address())
	}
	r.ManagementIP = "10.9.9.9"
	if r.Address() != "10.9.9.9" {
		t.Errorf("Address() = %q, want management address", r.Address())
	}
	if !r.HasCapability("Router") {
		t.Error("HasCapability should be case-insensitive")
	}
	if r.HasCapability("Switch") {
		t.Error("HasCapability(Switch) = true")
	}
}

func TestBGPNeighborRecord_Up(t *testing.T) {
	tests := map[string]bool{
		"Idle":        false,
		"Connect":     false,
		"Active":      false,
		"Established": true,
		"OpenConfirm": true,
		"7":           true,
	}
	for state, want := range tests {
		r := BGPNeighborRecord{StatePfxRcd: state}
		if got := r.Up(); got != want {
			t.Errorf("Up(%q) = %v, want %v", state, got, want)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := New("10.0.0.1")
	f.MarkCollected(KindACLs)
	f.ACEs = []ACE{{ACLName: "SNMP_RO", SourceHost: "10.1.1.1"}}
	f.InterfaceConfig["Vlan1"] = " speed 1000"
	f.RecordAnomaly(KindVRRP, errors.New("no table header"))

	path := filepath.Join(t.TempDir(), "snap.yaml")
	if err := f.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got.ACEs) != 1 || got.ACEs[0] != (ACE{ACLName: "SNMP_RO", SourceHost: "10.1.1.1"}) {
		t.Errorf("ACEs = %v", got.ACEs)
	}
	if kinds := got.CollectedKinds(); len(kinds) != 2 || kinds[0] != KindACLs || kinds[1] != KindVRRP {
		t.Errorf("CollectedKinds() = %v, want [acls vrrp]", kinds)
	}
	if got.Anomaly(KindVRRP) != "no table header" {
		t.Errorf("Anomaly(vrrp) = %q", got.Anomaly(KindVRRP))
	}
	if got.Anomaly(KindBGP) == "" {
		t.Error("bgp was not collected and should stay an anomaly")
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadSnapshot() expected error for missing file")
	}
}
