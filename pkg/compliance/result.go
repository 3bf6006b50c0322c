// Package compliance provides the catalogue of pure compliance checks that turn
// device facts into compliance statements.
package compliance

import (
	"github.com/edgecheck-network/edgecheck/pkg/facts"
)

// Status represents the verdict of a compliance check
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarn    Status = "warn"
	StatusUnknown Status = "unknown"
)

// CheckID identifies one check in the catalogue.
type CheckID string

const (
	CheckDeviceInfo     CheckID = "device_info"
	CheckDNS            CheckID = "dns"
	CheckEnvironment    CheckID = "environment"
	CheckVRRP           CheckID = "vrrp"
	CheckFlowExporter   CheckID = "flow_exporter"
	CheckSNMPCommunity  CheckID = "snmp_community"
	CheckSNMPACL        CheckID = "snmp_acl"
	CheckBGP            CheckID = "bgp"
	CheckBFD            CheckID = "bfd"
	CheckPolicyMap      CheckID = "policy_map"
	CheckDefaultRoute   CheckID = "default_route"
	CheckISEServers     CheckID = "ise_servers"
	CheckLANSpeedDuplex CheckID = "lan_speed_duplex"
	CheckWANSpeedDuplex CheckID = "wan_speed_duplex"
	CheckInterfaces     CheckID = "interfaces"
	CheckCellRadio      CheckID = "cell_radio"
)

// Result is the immutable outcome of one check.
type Result struct {
	Check   CheckID `json:"check"`
	Status  Status  `json:"status"`
	Message string  `json:"message"`
}

// Target is what a check evaluates: the device facts plus the interface roles
// resolved by classification. An empty LAN or WAN means classification failed.
type Target struct {
	Facts *facts.Facts
	LAN   string
	WAN   string
}

// Check defines the interface for compliance checks
type Check interface {
	ID() CheckID
	Evaluate(t Target) Result
}

// Overall folds statuses into one: any WARN wins, then any UNKNOWN, else OK.
func Overall(results []Result) Status {
	overall := StatusOK
	for _, r := range results {
		switch r.Status {
		case StatusWarn:
			return StatusWarn
		case StatusUnknown:
			overall = StatusUnknown
		}
	}
	return overall
}

func ok(id CheckID, msg string) Result      { return Result{Check: id, Status: StatusOK, Message: msg} }
func warn(id CheckID, msg string) Result    { return Result{Check: id, Status: StatusWarn, Message: msg} }
func unknown(id CheckID, msg string) Result { return Result{Check: id, Status: StatusUnknown, Message: msg} }
