package ios

import (
	"errors"
	"testing"

	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

func parse(t *testing.T, kind facts.Kind, output string) (*facts.Facts, error) {
	t.Helper()
	f := facts.New("10.0.0.1")
	err := NewParser().Parse(kind, output, f)
	return f, err
}

func TestParseVersion(t *testing.T) {
	out := `Cisco IOS XE Software, Version 17.03.04a
rtr-site12 uptime is 5 weeks, 2 days, 3 hours, 1 minute
cisco ISR4331/K9 (1RU) processor with 1795999K/6147K bytes of memory.`
	f, err := parse(t, facts.KindGeneral, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g := f.General
	if g.Hostname != "rtr-site12" || g.Uptime != "5 weeks, 2 days, 3 hours, 1 minute" {
		t.Errorf("General = %+v", g)
	}
	if g.Hardware != "ISR4331/K9" || g.Version != "17.03.04a" {
		t.Errorf("Hardware/Version = %q/%q", g.Hardware, g.Version)
	}

	if _, err := parse(t, facts.KindGeneral, "garbage"); !errors.Is(err, util.ErrParseAnomaly) {
		t.Errorf("err = %v, want parse anomaly", err)
	}
}

func TestParseEnvironment(t *testing.T) {
	out := `Number of Critical alarms:  0
 P0         Temp: Inlet     Normal      25 Celsius
 P1         PEM Iout        Normal      2 A
 Fan Tray   Fan Speed       Failed      0 RPM`
	f, err := parse(t, facts.KindEnvironment, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.Environment.PowerOK || f.Environment.TemperatureAlert {
		t.Errorf("Environment = %+v, want power ok and no temperature alert", f.Environment)
	}
	if f.Environment.FansOK {
		t.Error("FansOK = true, want false")
	}
}

func TestParseInterfaces(t *testing.T) {
	out := `GigabitEthernet0/0/1 is up, line protocol is up
  Internet address is 203.0.113.2/30
  Full Duplex, 1000Mbps, link type is auto, media type is RJ45
  5 minute input rate 1500000 bits/sec, 200 packets/sec
  5 minute output rate 500000 bits/sec, 100 packets/sec
     3 input errors, 0 CRC, 0 frame, 0 overrun, 0 ignored
     1 output errors, 0 collisions, 0 interface resets
Vlan1 is up, line protocol is down
  Internet address is 10.20.30.1/24
GigabitEthernet0/0/2 is administratively down, line protocol is down
  Internet address is unassigned`
	f, err := parse(t, facts.KindInterfaces, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Interfaces) != 3 {
		t.Fatalf("got %d interfaces, want 3", len(f.Interfaces))
	}
	wan := f.Interfaces[0]
	if wan.Name != "GigabitEthernet0/0/1" || wan.LinkStatus != "up" || wan.IPAddress != "203.0.113.2/30" {
		t.Errorf("wan = %+v", wan)
	}
	if wan.InputRate != 1500000 || wan.OutputRate != 500000 || wan.InputErrors != 3 || wan.OutputErrors != 1 {
		t.Errorf("wan counters = %+v", wan)
	}
	if wan.SpeedDuplex != "Full Duplex, 1000Mbps" {
		t.Errorf("SpeedDuplex = %q", wan.SpeedDuplex)
	}
	if f.Interfaces[1].LinkStatus != "down" {
		t.Errorf("Vlan1 with protocol down should be down, got %q", f.Interfaces[1].LinkStatus)
	}
	if f.Interfaces[2].HasAddress() {
		t.Error("unassigned interface should have no address")
	}
}

func TestParseVRRP(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []facts.VRRPGroupRecord
	}{
		{
			name: "classic layout",
			output: `Interface          Grp Pri Time  Own Pre State   Master addr     Group addr
Vl1                10  100 3609       Y  Master  10.20.30.2      10.20.30.1
Vl1                20  90  3648       Y  Backup  10.20.30.3      10.20.30.4`,
			want: []facts.VRRPGroupRecord{
				{Interface: "Vl1", Group: "10", Priority: "100", State: "Master"},
				{Interface: "Vl1", Group: "20", Priority: "90", State: "Backup"},
			},
		},
		{
			name: "xe layout",
			output: `Interface          Grp  A-F Pri  Time Own Pre State   Master addr/Group addr
Vl1                 10 IPv4 100     0  N   Y  MASTER  10.20.30.2(local) 10.20.30.1`,
			want: []facts.VRRPGroupRecord{
				{Interface: "Vl1", Group: "10", Priority: "100", State: "Master"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parse(t, facts.KindVRRP, tt.output)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(f.VRRPGroups) != len(tt.want) {
				t.Fatalf("got %d groups, want %d", len(f.VRRPGroups), len(tt.want))
			}
			for i, want := range tt.want {
				if f.VRRPGroups[i] != want {
					t.Errorf("group[%d] = %+v, want %+v", i, f.VRRPGroups[i], want)
				}
			}
		})
	}

	t.Run("empty means not configured", func(t *testing.T) {
		f, err := parse(t, facts.KindVRRP, "\n")
		if err != nil || len(f.VRRPGroups) != 0 {
			t.Errorf("got %v, %v", f.VRRPGroups, err)
		}
	})

	t.Run("no header is an anomaly", func(t *testing.T) {
		if _, err := parse(t, facts.KindVRRP, "% VRRP not running"); !errors.Is(err, util.ErrParseAnomaly) {
			t.Errorf("err = %v, want parse anomaly", err)
		}
	})
}

func TestParseACLs(t *testing.T) {
	out := `Standard IP access list SNMP_RO
    10 permit 10.83.34.107
    20 permit 10.15.78.56, wildcard bits 0.0.0.0
    30 permit 10.1.1.0, wildcard bits 0.0.0.255
Standard IP access list SNMP_RW
    10 permit 10.85.51.52 (12 matches)
    20 deny   any
Extended IP access list WEB
    10 permit tcp host 192.0.2.10 any eq www`
	f, err := parse(t, facts.KindACLs, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []facts.ACE{
		{ACLName: "SNMP_RO", SourceHost: "10.83.34.107"},
		{ACLName: "SNMP_RO", SourceHost: "10.15.78.56"},
		{ACLName: "SNMP_RW", SourceHost: "10.85.51.52"},
		{ACLName: "WEB", SourceHost: "192.0.2.10"},
	}
	if len(f.ACEs) != len(want) {
		t.Fatalf("ACEs = %v, want %v", f.ACEs, want)
	}
	for i := range want {
		if f.ACEs[i] != want[i] {
			t.Errorf("ACEs[%d] = %+v, want %+v", i, f.ACEs[i], want[i])
		}
	}
}

func TestParseFlowExporters(t *testing.T) {
	out := `Flow Exporter EXP1:
  Description:              User defined
  Export protocol:          NetFlow Version 9
  Transport Configuration:
    Destination IP address: 10.79.126.84
    Source IP address:      10.20.30.1
    Source Interface:       Loopback0
    Transport Protocol:     UDP
    Destination Port:       2055
Flow Exporter EXP2:
    Destination IP address: 10.51.18.13
    Source Interface:       Vlan1
    Destination Port:       2055`
	f, err := parse(t, facts.KindFlowExporters, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.FlowExporters) != 2 {
		t.Fatalf("got %d exporters, want 2", len(f.FlowExporters))
	}
	e := f.FlowExporters[0]
	if e.Name != "EXP1" || e.SourceInterface != "Loopback0" || e.DestinationAddress != "10.79.126.84" ||
		e.DestinationPort != "2055" || e.TransportProtocol != "UDP" {
		t.Errorf("exporter = %+v", e)
	}
}

func TestParseBGPSummary(t *testing.T) {
	out := `BGP router identifier 10.20.30.1, local AS number 65001
Neighbor        V           AS MsgRcvd MsgSent   TblVer  InQ OutQ Up/Down  State/PfxRcd
192.0.2.1       4        65000    1234    1200       45    0    0 3d04h          12
192.0.2.5       4        65000       0       0        1    0    0 never    Idle`
	f, err := parse(t, facts.KindBGP, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []facts.BGPNeighborRecord{
		{Neighbor: "192.0.2.1", UpDown: "3d04h", StatePfxRcd: "12"},
		{Neighbor: "192.0.2.5", UpDown: "never", StatePfxRcd: "Idle"},
	}
	if len(f.BGPNeighbors) != 2 || f.BGPNeighbors[0] != want[0] || f.BGPNeighbors[1] != want[1] {
		t.Errorf("BGPNeighbors = %+v, want %+v", f.BGPNeighbors, want)
	}

	if _, err := parse(t, facts.KindBGP, "% BGP not active"); !errors.Is(err, util.ErrParseAnomaly) {
		t.Errorf("err = %v, want parse anomaly", err)
	}
}

func TestParseBFD(t *testing.T) {
	out := `IPv4 Sessions
NeighAddr                              LD/RD         RH/RS     State     Int
192.0.2.1                            4097/4097       Up        Up        Gi0/0/1`
	f, err := parse(t, facts.KindBFD, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.BFDNeighbors) != 1 || f.BFDNeighbors[0].State != "Up" || f.BFDNeighbors[0].Interface != "Gi0/0/1" {
		t.Errorf("BFDNeighbors = %+v", f.BFDNeighbors)
	}
}

func TestParsePolicyMapInterfaces(t *testing.T) {
	out := `Service-policy output: WAN_QOS
 GigabitEthernet0/0/1
 GigabitEthernet0/0/1
 Tunnel1`
	f, err := parse(t, facts.KindPolicyMapApply, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"GigabitEthernet0/0/1", "Tunnel1"}
	if len(f.PolicyMapInterfaces) != 2 || f.PolicyMapInterfaces[0] != want[0] || f.PolicyMapInterfaces[1] != want[1] {
		t.Errorf("PolicyMapInterfaces = %v, want %v", f.PolicyMapInterfaces, want)
	}
}

func TestParseCDPNeighbors(t *testing.T) {
	out := `-------------------------
Device ID: sw-site12
Entry address(es):
  IP address: 10.20.30.5
Platform: cisco WS-C2960X-48FPD-L,  Capabilities: Switch IGMP
Interface: GigabitEthernet0/1/0,  Port ID (outgoing port): GigabitEthernet1/0/48
Management address(es):
  IP address: 10.99.0.5

-------------------------
Device ID: phone-1
Entry address(es):
  IP address: 10.20.30.77
Platform: Cisco IP Phone 8841,  Capabilities: Host Phone`
	f, err := parse(t, facts.KindCDPNeighbors, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.CDPNeighbors) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(f.CDPNeighbors))
	}
	sw := f.CDPNeighbors[0]
	if sw.DeviceID != "sw-site12" || sw.EntryIP != "10.20.30.5" || sw.ManagementIP != "10.99.0.5" {
		t.Errorf("switch = %+v", sw)
	}
	if !sw.HasCapability("switch") || sw.Platform != "cisco WS-C2960X-48FPD-L" {
		t.Errorf("switch platform/capabilities = %q %v", sw.Platform, sw.Capabilities)
	}
	if f.CDPNeighbors[1].HasCapability("Router") || f.CDPNeighbors[1].HasCapability("Switch") {
		t.Errorf("phone capabilities = %v", f.CDPNeighbors[1].Capabilities)
	}
}

func TestParseCellRadio(t *testing.T) {
	out := `Radio power mode = online
Current RSSI = -65 dBm
Current RSRP = -95 dBm
Current RSRQ = -11 dB
Current SNR = 9.4 dB
Radio Access Technology(RAT) Selected = LTE`
	f, err := parse(t, facts.KindCellRadio, out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.CellRadio.RSSI != "-65 dBm" || f.CellRadio.RAT != "LTE" {
		t.Errorf("CellRadio = %+v", f.CellRadio)
	}
	if _, err := parse(t, facts.KindCellRadio, "Radio power mode = online"); !errors.Is(err, util.ErrParseAnomaly) {
		t.Errorf("err = %v, want parse anomaly", err)
	}
}

func TestParser_Command(t *testing.T) {
	p := NewParser()
	if cmd, ok := p.Command(facts.KindVRRP); !ok || cmd != "show vrrp brief" {
		t.Errorf("Command(vrrp) = %q, %v", cmd, ok)
	}
	if _, ok := p.Command(facts.KindDNS); ok {
		t.Error("dns has no device command")
	}
	if got := p.InterfaceConfigCommand("Vlan1"); got != "show running-config interface Vlan1" {
		t.Errorf("InterfaceConfigCommand = %q", got)
	}
}
