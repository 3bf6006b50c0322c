// Package ios turns Cisco IOS / IOS-XE command output into structured facts.
//
// Parsers are tolerant: unknown lines are skipped, and a parser
// only reports a parse anomaly when the output is non-empty but lacks the
// landmark it needs (a table header, a hostname line). Empty output is a valid
// observation ("nothing configured").
package ios

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Commands maps each fact kind to the IOS command that produces it.
var Commands = map[facts.Kind]string{
	facts.KindGeneral:        "show version",
	facts.KindEnvironment:    "show environment all",
	facts.KindInterfaces:     "show interfaces",
	facts.KindVRRP:           "show vrrp brief",
	facts.KindSNMPConfig:     "show running-config | include snmp-server",
	facts.KindACLs:           "show ip access-lists",
	facts.KindFlowExporters:  "show flow exporter",
	facts.KindBGP:            "show ip bgp summary",
	facts.KindBFD:            "show bfd neighbors",
	facts.KindPolicyMap:      "show policy-map",
	facts.KindPolicyMapApply: "show policy-map interface brief",
	facts.KindDefaultRoute:   "show running-config | include ip route 0.0.0.0",
	facts.KindTACACSConfig:   "show running-config | include tacacs server|address ipv4",
	facts.KindCDPNeighbors:   "show cdp neighbors detail",
	facts.KindCellRadio:      "show cellular 0/1/0 radio",
}

// Parser implements the IOS fact parser.
type Parser struct{}

// NewParser returns an IOS parser.
func NewParser() *Parser {
	return &Parser{}
}

// Command returns the command that produces kind.
func (p *Parser) Command(kind facts.Kind) (string, bool) {
	cmd, ok := Commands[kind]
	return cmd, ok
}

// InterfaceConfigCommand returns the command that shows one interface's configuration.
func (p *Parser) InterfaceConfigCommand(name string) string {
	return "show running-config interface " + name
}

// Parse parses output for kind into f.
func (p *Parser) Parse(kind facts.Kind, output string, f *facts.Facts) error {
	output = strings.ReplaceAll(output, "\r", "")
	switch kind {
	case facts.KindGeneral:
		return parseVersion(output, f)
	case facts.KindEnvironment:
		f.Environment = parseEnvironment(output)
	case facts.KindInterfaces:
		f.Interfaces = parseInterfaces(output)
	case facts.KindVRRP:
		return parseVRRP(output, f)
	case facts.KindSNMPConfig:
		f.SNMPConfig = strings.TrimSpace(output)
	case facts.KindACLs:
		f.ACEs = parseACLs(output)
	case facts.KindFlowExporters:
		f.FlowExporters = parseFlowExporters(output)
	case facts.KindBGP:
		return parseBGPSummary(output, f)
	case facts.KindBFD:
		return parseBFD(output, f)
	case facts.KindPolicyMap:
		f.PolicyMap = strings.TrimSpace(output)
	case facts.KindPolicyMapApply:
		f.PolicyMapInterfaces = parsePolicyMapInterfaces(output)
	case facts.KindDefaultRoute:
		f.DefaultRoute = strings.TrimSpace(output)
	case facts.KindTACACSConfig:
		f.TACACSConfig = strings.TrimSpace(output)
	case facts.KindCDPNeighbors:
		f.CDPNeighbors = parseCDPNeighbors(output)
	case facts.KindCellRadio:
		return parseCellRadio(output, f)
	default:
		return fmt.Errorf("no IOS parser for fact %s", kind)
	}
	return nil
}

var (
	reUptime   = regexp.MustCompile(`(?m)^(\S+) uptime is (.+)$`)
	reHardware = regexp.MustCompile(`(?mi)^cisco (\S+) .*processor`)
	reVersion  = regexp.MustCompile(`Version ([^ ,]+)`)
)

func parseVersion(output string, f *facts.Facts) error {
	m := reUptime.FindStringSubmatch(output)
	if m == nil {
		return util.NewParseAnomaly(string(facts.KindGeneral), "no uptime line")
	}
	info := &facts.GeneralInfo{Hostname: m[1], Uptime: strings.TrimSpace(m[2])}
	if hw := reHardware.FindStringSubmatch(output); hw != nil {
		info.Hardware = hw[1]
	}
	if v := reVersion.FindStringSubmatch(output); v != nil {
		info.Version = v[1]
	}
	f.General = info
	return nil
}

var (
	rePowerBad = regexp.MustCompile(`(?i)(power|pwr|ps\d).*\b(fail\w*|bad|critical|faulty)\b`)
	reTempBad  = regexp.MustCompile(`(?i)temp.*\b(critical|shutdown|warning|major|minor)\b`)
	reFanBad   = regexp.MustCompile(`(?i)fan.*\b(fail\w*|bad|faulty|not present)\b`)
)

// parseEnvironment flags any sensor line carrying an alarm word. Platforms
// differ widely in layout; the alarm vocabulary is common to all of them.
func parseEnvironment(output string) *facts.Environment {
	env := &facts.Environment{PowerOK: true, FansOK: true}
	for _, line := range util.TrimmedLines(output) {
		if strings.Contains(strings.ToLower(line), "normal") {
			continue
		}
		if rePowerBad.MatchString(line) {
			env.PowerOK = false
		}
		if reTempBad.MatchString(line) {
			env.TemperatureAlert = true
		}
		if reFanBad.MatchString(line) {
			env.FansOK = false
		}
	}
	return env
}

var (
	reIntfHeader  = regexp.MustCompile(`^(\S+) is (up|down|administratively down|deleted), line protocol is (\S+)`)
	reIntfAddr    = regexp.MustCompile(`Internet address is (\S+)`)
	reIntfDuplex  = regexp.MustCompile(`^((?:Full|Half|Auto)[- ][Dd]uplex, [^,]+)`)
	reIntfInRate  = regexp.MustCompile(`input rate (\d+) bits/sec`)
	reIntfOutRate = regexp.MustCompile(`output rate (\d+) bits/sec`)
	reIntfInErr   = regexp.MustCompile(`(\d+) input errors`)
	reIntfOutErr  = regexp.MustCompile(`(\d+) output errors`)
)

func parseInterfaces(output string) []facts.InterfaceRecord {
	var records []facts.InterfaceRecord
	var cur *facts.InterfaceRecord
	flush := func() {
		if cur != nil {
			records = append(records, *cur)
		}
	}
	for _, raw := range strings.Split(output, "\n") {
		if m := reIntfHeader.FindStringSubmatch(raw); m != nil {
			flush()
			status := m[2]
			if status == "up" && m[3] != "up" {
				status = "down"
			}
			cur = &facts.InterfaceRecord{Name: m[1], LinkStatus: status}
			continue
		}
		if cur == nil {
			continue
		}
		line := strings.TrimSpace(raw)
		if m := reIntfAddr.FindStringSubmatch(line); m != nil {
			cur.IPAddress = m[1]
		}
		if m := reIntfDuplex.FindStringSubmatch(line); m != nil {
			cur.SpeedDuplex = m[1]
		}
		if m := reIntfInRate.FindStringSubmatch(line); m != nil {
			cur.InputRate = atoi64(m[1])
		}
		if m := reIntfOutRate.FindStringSubmatch(line); m != nil {
			cur.OutputRate = atoi64(m[1])
		}
		if m := reIntfInErr.FindStringSubmatch(line); m != nil {
			cur.InputErrors = atoi64(m[1])
		}
		if m := reIntfOutErr.FindStringSubmatch(line); m != nil {
			cur.OutputErrors = atoi64(m[1])
		}
	}
	flush()
	return records
}

var vrrpStates = map[string]string{"init": "Init", "backup": "Backup", "master": "Master"}

// parseVRRP handles both the classic (Grp Pri ...) and the IOS-XE
// (Grp A-F Pri ...) brief layouts.
func parseVRRP(output string, f *facts.Facts) error {
	lines := util.TrimmedLines(output)
	if len(lines) == 0 {
		f.VRRPGroups = nil
		return nil
	}
	var groups []facts.VRRPGroupRecord
	headerSeen := false
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == "Interface" {
			headerSeen = true
			continue
		}
		if !headerSeen || len(fields) < 4 {
			continue
		}
		g := facts.VRRPGroupRecord{Interface: fields[0], Group: fields[1]}
		pri := 2
		if fields[2] == "IPv4" || fields[2] == "IPv6" {
			pri = 3
		}
		g.Priority = fields[pri]
		for _, fl := range fields[pri+1:] {
			if state, ok := vrrpStates[strings.ToLower(fl)]; ok {
				g.State = state
				break
			}
		}
		groups = append(groups, g)
	}
	if !headerSeen {
		return util.NewParseAnomaly(string(facts.KindVRRP), "no table header")
	}
	f.VRRPGroups = groups
	return nil
}

var reACLHeader = regexp.MustCompile(`^(Standard|Extended|Reflexive) IP access list (\S+)`)

func parseACLs(output string) []facts.ACE {
	var aces []facts.ACE
	current := ""
	standard := false
	for _, line := range util.TrimmedLines(output) {
		if m := reACLHeader.FindStringSubmatch(line); m != nil {
			current = m[2]
			standard = m[1] == "Standard"
			continue
		}
		if current == "" {
			continue
		}
		fields := strings.Fields(line)
		// Leading sequence number is optional.
		if len(fields) > 0 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				fields = fields[1:]
			}
		}
		// Only permit entries grant access; deny entries never cover a host.
		if len(fields) < 2 || fields[0] != "permit" {
			continue
		}
		host := ""
		for i := 1; i < len(fields)-1; i++ {
			if fields[i] == "host" {
				host = fields[i+1]
				break
			}
		}
		if host == "" && standard {
			host = strings.TrimSuffix(fields[1], ",")
			// A network entry covers a range, not the host at its base address.
			if wildcard := wildcardBits(fields); wildcard != "" && wildcard != "0.0.0.0" {
				host = ""
			}
		}
		if host == "" || host == "any" {
			continue
		}
		aces = append(aces, facts.ACE{ACLName: current, SourceHost: host})
	}
	return aces
}

// wildcardBits returns Y from a standard entry of the form "X, wildcard bits Y".
func wildcardBits(fields []string) string {
	for i := 0; i+2 < len(fields); i++ {
		if fields[i] == "wildcard" && fields[i+1] == "bits" {
			return fields[i+2]
		}
	}
	return ""
}

var (
	reExporterName = regexp.MustCompile(`^Flow Exporter (\S+?):?$`)
	reKeyValue     = regexp.MustCompile(`^([A-Za-z][A-Za-z ()]*?):\s+(.*)$`)
)

func parseFlowExporters(output string) []facts.FlowExporterRecord {
	var records []facts.FlowExporterRecord
	var cur *facts.FlowExporterRecord
	for _, line := range util.TrimmedLines(output) {
		if m := reExporterName.FindStringSubmatch(line); m != nil {
			if cur != nil {
				records = append(records, *cur)
			}
			cur = &facts.FlowExporterRecord{Name: m[1]}
			continue
		}
		if cur == nil {
			continue
		}
		m := reKeyValue.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch m[1] {
		case "Destination IP address":
			cur.DestinationAddress = value
		case "Source Interface":
			cur.SourceInterface = value
		case "Transport Protocol":
			cur.TransportProtocol = value
		case "Destination Port":
			cur.DestinationPort = value
		}
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records
}

func parseBGPSummary(output string, f *facts.Facts) error {
	lines := util.TrimmedLines(output)
	if len(lines) == 0 {
		f.BGPNeighbors = nil
		return nil
	}
	var neighbors []facts.BGPNeighborRecord
	headerSeen := false
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == "Neighbor" {
			headerSeen = true
			continue
		}
		if !headerSeen || len(fields) < 10 {
			continue
		}
		neighbors = append(neighbors, facts.BGPNeighborRecord{
			Neighbor:    fields[0],
			UpDown:      fields[8],
			StatePfxRcd: strings.Join(fields[9:], " "),
		})
	}
	if !headerSeen {
		return util.NewParseAnomaly(string(facts.KindBGP), "no neighbor table")
	}
	f.BGPNeighbors = neighbors
	return nil
}

func parseBFD(output string, f *facts.Facts) error {
	var neighbors []facts.BFDNeighborRecord
	for _, line := range util.TrimmedLines(output) {
		fields := strings.Fields(line)
		if len(fields) < 5 || net4(fields[0]) == "" {
			continue
		}
		neighbors = append(neighbors, facts.BFDNeighborRecord{
			Neighbor:  fields[0],
			State:     fields[3],
			Interface: fields[4],
		})
	}
	f.BFDNeighbors = neighbors
	return nil
}

var reIntfName = regexp.MustCompile(`^[A-Za-z][A-Za-z-]*\d+(/\d+)*(\.\d+)?$`)

func parsePolicyMapInterfaces(output string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(output) {
		if reIntfName.MatchString(tok) && !seen[tok] {
			seen[tok] = true
			names = append(names, tok)
		}
	}
	return names
}

func parseCDPNeighbors(output string) []facts.CDPNeighborRecord {
	var records []facts.CDPNeighborRecord
	var cur *facts.CDPNeighborRecord
	section := ""
	for _, line := range util.TrimmedLines(output) {
		switch {
		case strings.HasPrefix(line, "Device ID:"):
			if cur != nil {
				records = append(records, *cur)
			}
			cur = &facts.CDPNeighborRecord{DeviceID: strings.TrimSpace(strings.TrimPrefix(line, "Device ID:"))}
			section = ""
		case cur == nil:
		case strings.HasPrefix(line, "Entry address"):
			section = "entry"
		case strings.HasPrefix(line, "Management address"):
			section = "mgmt"
		case strings.HasPrefix(line, "IP address:"), strings.HasPrefix(line, "IPv4 address:"):
			addr := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			if section == "mgmt" && cur.ManagementIP == "" {
				cur.ManagementIP = addr
			} else if section == "entry" && cur.EntryIP == "" {
				cur.EntryIP = addr
			}
		case strings.HasPrefix(line, "Platform:"):
			section = ""
			parts := strings.SplitN(line, ",", 2)
			cur.Platform = strings.TrimSpace(strings.TrimPrefix(parts[0], "Platform:"))
			if len(parts) == 2 {
				if i := strings.Index(parts[1], "Capabilities:"); i >= 0 {
					cur.Capabilities = strings.Fields(parts[1][i+len("Capabilities:"):])
				}
			}
		default:
			section = sectionAfter(section, line)
		}
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records
}

// sectionAfter keeps the address section open only across address lines.
func sectionAfter(section, line string) string {
	if strings.Contains(line, ":") {
		return ""
	}
	return section
}

var reRadio = regexp.MustCompile(`^(Current RSSI|Current RSRP|Current RSRQ|Current SNR|LTE Rx Channel Number\(PCC\)|Radio Access Technology\(RAT\) Selected)\s*=\s*(.+)$`)

func parseCellRadio(output string, f *facts.Facts) error {
	radio := &facts.CellRadio{}
	found := false
	for _, line := range util.TrimmedLines(output) {
		m := reRadio.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		found = true
		value := strings.TrimSpace(m[2])
		switch m[1] {
		case "Current RSSI":
			radio.RSSI = value
		case "Current RSRP":
			radio.RSRP = value
		case "Current RSRQ":
			radio.RSRQ = value
		case "Current SNR":
			radio.SNR = value
		case "LTE Rx Channel Number(PCC)":
			radio.Channel = value
		case "Radio Access Technology(RAT) Selected":
			radio.RAT = value
		}
	}
	if !found {
		return util.NewParseAnomaly(string(facts.KindCellRadio), "no radio levels")
	}
	f.CellRadio = radio
	return nil
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// net4 returns s when it is an IPv4 address.
func net4(s string) string {
	if util.IsValidIPv4(s) {
		return s
	}
	return ""
}
