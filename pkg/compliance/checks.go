package compliance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// ============================================================================
// Device identity and hardware
// ============================================================================

// DeviceInfoCheck reports the device identity. It is informational.
type DeviceInfoCheck struct{}

func (c *DeviceInfoCheck) ID() CheckID { return CheckDeviceInfo }

func (c *DeviceInfoCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindGeneral); reason != "" {
		return unknown(c.ID(), "Device information is unavailable: "+reason+".")
	}
	g := t.Facts.General
	if g == nil {
		return unknown(c.ID(), "Device information is unavailable.")
	}
	msg := fmt.Sprintf("Router %s has been up for %s.", g.Hostname, g.Uptime)
	if g.Hardware != "" {
		msg = fmt.Sprintf("Router %s (%s, version %s) has been up for %s.", g.Hostname, g.Hardware, g.Version, g.Uptime)
	}
	return ok(c.ID(), msg)
}

// EnvironmentCheck warns on any power, temperature or fan alarm.
type EnvironmentCheck struct{}

func (c *EnvironmentCheck) ID() CheckID { return CheckEnvironment }

func (c *EnvironmentCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindEnvironment); reason != "" {
		return unknown(c.ID(), "Environment status is unavailable: "+reason+".")
	}
	env := t.Facts.Environment
	if env == nil {
		return unknown(c.ID(), "Environment status is unavailable.")
	}
	var alarms []string
	if !env.PowerOK {
		alarms = append(alarms, "a power supply alarm")
	}
	if env.TemperatureAlert {
		alarms = append(alarms, "a temperature alarm")
	}
	if !env.FansOK {
		alarms = append(alarms, "a fan alarm")
	}
	if len(alarms) > 0 {
		return warn(c.ID(), "The router reports "+strings.Join(alarms, " and ")+".")
	}
	return ok(c.ID(), "Power, temperature and fans are normal.")
}

// CellRadioCheck reports the cellular radio levels. It is informational.
type CellRadioCheck struct{}

func (c *CellRadioCheck) ID() CheckID { return CheckCellRadio }

func (c *CellRadioCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindCellRadio); reason != "" {
		return unknown(c.ID(), "Cellular radio levels are unavailable: "+reason+".")
	}
	r := t.Facts.CellRadio
	if r == nil {
		return unknown(c.ID(), "Cellular radio levels are unavailable.")
	}
	return ok(c.ID(), fmt.Sprintf("Cellular radio: RAT %s, channel %s, RSSI %s, RSRP %s, RSRQ %s, SNR %s.",
		orNA(r.RAT), orNA(r.Channel), orNA(r.RSSI), orNA(r.RSRP), orNA(r.RSRQ), orNA(r.SNR)))
}

// DNSCheck warns when the device address has no PTR record.
type DNSCheck struct{}

func (c *DNSCheck) ID() CheckID { return CheckDNS }

func (c *DNSCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindDNS); reason != "" {
		return unknown(c.ID(), "DNS registration could not be verified: "+reason+".")
	}
	if t.Facts.DNSName == "" {
		return warn(c.ID(), "This device is not registered on the DNS server.")
	}
	return ok(c.ID(), "This device is registered on the DNS server as: "+t.Facts.DNSName+".")
}

// ============================================================================
// Redundancy and routing
// ============================================================================

// VRRPCheck requires every group to be Master at the required priority.
type VRRPCheck struct {
	Priority string
}

func (c *VRRPCheck) ID() CheckID { return CheckVRRP }

func (c *VRRPCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindVRRP); reason != "" {
		return unknown(c.ID(), "VRRP status is unavailable: "+reason+".")
	}
	groups := t.Facts.VRRPGroups
	if len(groups) == 0 {
		return unknown(c.ID(), "VRRP is not configured on this router.")
	}

	var notMaster, badPriority []string
	for _, g := range groups {
		if g.State != "Master" {
			notMaster = append(notMaster, g.Group)
		}
		if g.Priority != c.Priority {
			badPriority = append(badPriority, g.Group)
		}
	}

	var parts []string
	if len(notMaster) == 0 {
		parts = append(parts, "All VRRP groups are Master")
	} else {
		parts = append(parts, fmt.Sprintf("%s not Master", groupPhrase(notMaster)))
	}
	if len(badPriority) == 0 {
		parts = append(parts, "all priorities are "+c.Priority)
	} else {
		parts = append(parts, fmt.Sprintf("%s not set to priority %s", groupPhrase(badPriority), c.Priority))
	}
	msg := strings.Join(parts, " and ") + "."
	if len(notMaster) > 0 || len(badPriority) > 0 {
		return warn(c.ID(), msg)
	}
	return ok(c.ID(), msg)
}

// groupPhrase renders "VRRP group 2 is" or "VRRP groups 1, 2 are".
func groupPhrase(groups []string) string {
	if len(groups) == 1 {
		return "VRRP group " + groups[0] + " is"
	}
	return "VRRP groups " + strings.Join(groups, ", ") + " are"
}

// BGPCheck warns when any neighbor is in a down state.
type BGPCheck struct{}

func (c *BGPCheck) ID() CheckID { return CheckBGP }

func (c *BGPCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindBGP); reason != "" {
		return unknown(c.ID(), "BGP status is unavailable: "+reason+".")
	}
	neighbors := t.Facts.BGPNeighbors
	if len(neighbors) == 0 {
		return unknown(c.ID(), "BGP is not configured on this router.")
	}
	var lines []string
	down := false
	for _, n := range neighbors {
		state := "up"
		if !n.Up() {
			state = "down"
			down = true
		}
		lines = append(lines, fmt.Sprintf("BGP neighbor %s has been %s for %s.", n.Neighbor, state, n.UpDown))
	}
	msg := strings.Join(lines, "\n")
	if down {
		return warn(c.ID(), msg)
	}
	return ok(c.ID(), msg)
}

// BFDCheck requires every BFD session to be Up.
type BFDCheck struct{}

func (c *BFDCheck) ID() CheckID { return CheckBFD }

func (c *BFDCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindBFD); reason != "" {
		return unknown(c.ID(), "BFD status is unavailable: "+reason+".")
	}
	neighbors := t.Facts.BFDNeighbors
	if len(neighbors) == 0 {
		return unknown(c.ID(), "BFD is not configured on this router.")
	}
	var lines []string
	down := false
	for _, n := range neighbors {
		if strings.EqualFold(n.State, "Up") {
			lines = append(lines, fmt.Sprintf("BFD neighborship with %s is up.", n.Neighbor))
			continue
		}
		down = true
		lines = append(lines, fmt.Sprintf("BFD neighborship with %s is %s.", n.Neighbor, strings.ToLower(n.State)))
	}
	msg := strings.Join(lines, "\n")
	if down {
		return warn(c.ID(), msg)
	}
	return ok(c.ID(), msg)
}

// PolicyMapCheck requires the QoS policy map to be defined and applied to the
// WAN interface.
type PolicyMapCheck struct{}

func (c *PolicyMapCheck) ID() CheckID { return CheckPolicyMap }

func (c *PolicyMapCheck) Evaluate(t Target) Result {
	for _, kind := range []facts.Kind{facts.KindPolicyMap, facts.KindPolicyMapApply} {
		if reason := t.Facts.Anomaly(kind); reason != "" {
			return unknown(c.ID(), "Policy map status is unavailable: "+reason+".")
		}
	}
	if strings.TrimSpace(t.Facts.PolicyMap) == "" {
		return warn(c.ID(), "The policy map is not configured.")
	}
	applied := t.Facts.PolicyMapInterfaces
	if len(applied) == 0 {
		return warn(c.ID(), "The policy map is configured but has not been applied to an interface.")
	}
	if t.WAN == "" {
		return unknown(c.ID(), fmt.Sprintf("The policy map is applied to %s, but the WAN interface could not be identified.",
			strings.Join(applied, ", ")))
	}
	for _, name := range applied {
		if name == t.WAN {
			return ok(c.ID(), "The policy map is configured and applied to "+t.WAN+".")
		}
	}
	return warn(c.ID(), fmt.Sprintf("The policy map is configured but is applied to the wrong interface (%s). It should be configured on %s.",
		strings.Join(applied, ", "), t.WAN))
}

// DefaultRouteCheck requires the weighted default route with the configured cost.
type DefaultRouteCheck struct {
	Cost int
	re   *regexp.Regexp
}

// NewDefaultRouteCheck builds the check for the given administrative distance.
func NewDefaultRouteCheck(cost int) *DefaultRouteCheck {
	return &DefaultRouteCheck{
		Cost: cost,
		re:   regexp.MustCompile(fmt.Sprintf(`^ip route 0\.0\.0\.0 0\.0\.0\.0 %d$`, cost)),
	}
}

func (c *DefaultRouteCheck) ID() CheckID { return CheckDefaultRoute }

func (c *DefaultRouteCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindDefaultRoute); reason != "" {
		return unknown(c.ID(), "Default route status is unavailable: "+reason+".")
	}
	lines := util.TrimmedLines(t.Facts.DefaultRoute)
	for _, line := range lines {
		if c.re.MatchString(line) {
			return ok(c.ID(), "The default weighted route is properly configured.")
		}
	}
	if len(lines) == 0 {
		return warn(c.ID(), "The default weighted route is not configured.")
	}
	return warn(c.ID(), fmt.Sprintf("The default weighted route is not configured with cost %d (found: %s).",
		c.Cost, strings.Join(lines, "; ")))
}

// ============================================================================
// NetFlow export
// ============================================================================

// FlowExporterCheck validates the NetFlow exporters against the flow policy.
type FlowExporterCheck struct {
	Policy FlowExporterPolicy
}

func (c *FlowExporterCheck) ID() CheckID { return CheckFlowExporter }

func (c *FlowExporterCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindFlowExporters); reason != "" {
		return unknown(c.ID(), "Flow exporter status is unavailable: "+reason+".")
	}
	exporters := t.Facts.FlowExporters
	if len(exporters) < c.Policy.MinCount {
		return warn(c.ID(), fmt.Sprintf("A flow exporter is missing: %d configured, %d required.", len(exporters), c.Policy.MinCount))
	}

	status := StatusOK
	degrade := func(s Status) {
		if s == StatusWarn || (s == StatusUnknown && status == StatusOK) {
			status = s
		}
	}

	monitorLine, monitorStatus := c.monitorApplied(t)
	degrade(monitorStatus)

	var lines []string
	for _, e := range exporters {
		var problems []string
		if !contains(c.Policy.SourceInterfaces, e.SourceInterface) {
			problems = append(problems, fmt.Sprintf("source interface %s is not one of %s",
				orNA(e.SourceInterface), strings.Join(c.Policy.SourceInterfaces, ", ")))
		}
		if !contains(c.Policy.Destinations, e.DestinationAddress) {
			problems = append(problems, fmt.Sprintf("destination %s is not an approved collector", orNA(e.DestinationAddress)))
		}
		if e.DestinationPort != c.Policy.Port {
			problems = append(problems, fmt.Sprintf("destination port %s is not %s", orNA(e.DestinationPort), c.Policy.Port))
		}
		if len(problems) == 0 {
			lines = append(lines, fmt.Sprintf("Flow exporter %s is properly configured (%s -> %s:%s). %s",
				e.Name, e.SourceInterface, e.DestinationAddress, e.DestinationPort, monitorLine))
			continue
		}
		degrade(StatusWarn)
		lines = append(lines, fmt.Sprintf("Flow exporter %s: %s. %s", e.Name, strings.Join(problems, "; "), monitorLine))
	}
	return Result{Check: c.ID(), Status: status, Message: strings.Join(lines, "\n")}
}

// monitorApplied checks that the flow monitor is referenced on the WAN interface.
func (c *FlowExporterCheck) monitorApplied(t Target) (string, Status) {
	if t.WAN == "" {
		return "The WAN interface could not be identified, so the flow monitor was not verified.", StatusUnknown
	}
	cfg, found := t.Facts.InterfaceConfig[t.WAN]
	if reason := t.Facts.Anomaly(facts.KindInterfaceConfig); reason != "" || !found {
		return "The configuration of " + t.WAN + " is unavailable, so the flow monitor was not verified.", StatusUnknown
	}
	if strings.Contains(cfg, "ip flow monitor "+c.Policy.Monitor) {
		return "NetFlow is applied to " + t.WAN + ".", StatusOK
	}
	return "NetFlow is not applied to " + t.WAN + ".", StatusWarn
}

// ============================================================================
// Interfaces
// ============================================================================

// Role selects which classified interface a per-interface check looks at.
type Role string

const (
	RoleLAN Role = "LAN"
	RoleWAN Role = "WAN"
)

func (t Target) interfaceFor(role Role) string {
	if role == RoleWAN {
		return t.WAN
	}
	return t.LAN
}

// SpeedDuplexCheck reports whether the interface has hardcoded speed and duplex.
type SpeedDuplexCheck struct {
	Role        Role
	FixedSpeeds []string
	// Require turns an auto-negotiated interface into a warning.
	Require bool
}

func (c *SpeedDuplexCheck) ID() CheckID {
	if c.Role == RoleWAN {
		return CheckWANSpeedDuplex
	}
	return CheckLANSpeedDuplex
}

func (c *SpeedDuplexCheck) Evaluate(t Target) Result {
	name := t.interfaceFor(c.Role)
	if name == "" {
		return unknown(c.ID(), fmt.Sprintf("The %s interface could not be identified.", c.Role))
	}
	if reason := t.Facts.Anomaly(facts.KindInterfaceConfig); reason != "" {
		return unknown(c.ID(), fmt.Sprintf("The configuration of the %s interface (%s) is unavailable: %s.", c.Role, name, reason))
	}
	cfg, found := t.Facts.InterfaceConfig[name]
	if !found {
		return unknown(c.ID(), fmt.Sprintf("The configuration of the %s interface (%s) is unavailable.", c.Role, name))
	}

	lines := util.LineSet(cfg)
	duplex := "auto"
	if lines["duplex full"] || lines["no negotiation auto"] {
		duplex = "full"
	}
	speed := "auto"
	for _, s := range c.FixedSpeeds {
		if lines[s] {
			speed = strings.TrimPrefix(s, "speed ")
			break
		}
	}

	msg := fmt.Sprintf("The %s interface (%s) speed is %s and the duplex is %s.", c.Role, name,
		describeSetting(speed), describeSetting(duplex))
	if c.Require && (speed == "auto" || duplex == "auto") {
		return warn(c.ID(), msg)
	}
	return ok(c.ID(), msg)
}

func describeSetting(v string) string {
	if v == "auto" {
		return "auto-negotiated"
	}
	return "hardcoded to " + v
}

// InterfacesCheck reports link state, errors and utilization of the LAN and
// WAN interfaces.
type InterfacesCheck struct{}

func (c *InterfacesCheck) ID() CheckID { return CheckInterfaces }

func (c *InterfacesCheck) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(facts.KindInterfaces); reason != "" {
		return unknown(c.ID(), "Interface status is unavailable: "+reason+".")
	}
	status := StatusOK
	var lines []string
	for _, role := range []Role{RoleLAN, RoleWAN} {
		name := t.interfaceFor(role)
		if name == "" {
			lines = append(lines, fmt.Sprintf("The %s interface could not be identified.", role))
			if status == StatusOK {
				status = StatusUnknown
			}
			continue
		}
		rec, found := t.Facts.Interface(name)
		if !found {
			lines = append(lines, fmt.Sprintf("%s (%s) was not reported by the device.", name, role))
			if status == StatusOK {
				status = StatusUnknown
			}
			continue
		}
		if rec.LinkStatus != "up" {
			status = StatusWarn
		}
		lines = append(lines, fmt.Sprintf("%s (%s) - %s and %d errors. Inbound utilization = %.2f Mbps, Outbound utilization = %.2f Mbps.",
			name, role, orNA(rec.LinkStatus), rec.InputErrors+rec.OutputErrors, mbps(rec.InputRate), mbps(rec.OutputRate)))
	}
	return Result{Check: c.ID(), Status: status, Message: strings.Join(lines, "\n")}
}

func mbps(bitsPerSec int64) float64 {
	return float64(bitsPerSec) / 1e6
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
