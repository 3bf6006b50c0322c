// Package profile defines the router variants, their capability table and the
// per-device RouterProfile that accumulates compliance results.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/facts"
)

// Variant tags one kind of edge router.
type Variant string

const (
	VariantGeneric Variant = "generic"
	VariantField   Variant = "field"
	VariantCell    Variant = "cell"
)

// Variants lists the known variants in display order.
var Variants = []Variant{VariantGeneric, VariantField, VariantCell}

// ParseVariant resolves a variant name, accepting the short forms used on the
// command line ("router", "field", "cell").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic", "router", "":
		return VariantGeneric, nil
	case "field", "field-router", "fieldrouter":
		return VariantField, nil
	case "cell", "cell-router", "cellrouter", "cellular":
		return VariantCell, nil
	}
	return "", fmt.Errorf("unknown router variant %q (want generic, field or cell)", s)
}

// Capabilities is the per-variant row of the capability table.
type Capabilities struct {
	// Checks lists the applicable checks in report order.
	Checks []compliance.CheckID
	// Facts lists the fact kinds the collector must gather.
	Facts []facts.Kind
	// LANDesignator names an interface that qualifies as LAN whatever its address.
	LANDesignator string
	// WANDesignators are the interface names that identify the WAN interface.
	WANDesignators []string
	// Excluded interfaces never take the LAN or WAN role.
	Excluded []string
}

var baseChecks = []compliance.CheckID{
	compliance.CheckDeviceInfo,
	compliance.CheckDNS,
	compliance.CheckEnvironment,
	compliance.CheckVRRP,
	compliance.CheckFlowExporter,
	compliance.CheckSNMPCommunity,
	compliance.CheckSNMPACL,
}

var baseFacts = []facts.Kind{
	facts.KindGeneral,
	facts.KindEnvironment,
	facts.KindInterfaces,
	facts.KindVRRP,
	facts.KindSNMPConfig,
	facts.KindACLs,
	facts.KindFlowExporters,
	facts.KindInterfaceConfig,
	facts.KindDNS,
}

var baseExcluded = []string{"Tunnel1", "Vlan501", "Gi0/0/0.501", "Gi0/0.501", "Loopback0"}

// DefaultCapabilities is the capability table of the reference deployment.
func DefaultCapabilities() map[Variant]Capabilities {
	return map[Variant]Capabilities{
		VariantGeneric: {
			Checks:         append([]compliance.CheckID{}, baseChecks...),
			Facts:          append([]facts.Kind{}, baseFacts...),
			LANDesignator:  "Vlan1",
			WANDesignators: []string{"Cellular0/1/0", "GigabitEthernet0/0/1"},
			Excluded:       append([]string{}, baseExcluded...),
		},
		VariantField: {
			Checks: append(append([]compliance.CheckID{}, baseChecks...),
				compliance.CheckBGP,
				compliance.CheckBFD,
				compliance.CheckPolicyMap,
				compliance.CheckDefaultRoute,
				compliance.CheckISEServers,
				compliance.CheckLANSpeedDuplex,
				compliance.CheckWANSpeedDuplex,
				compliance.CheckInterfaces,
			),
			Facts: append(append([]facts.Kind{}, baseFacts...),
				facts.KindBGP,
				facts.KindBFD,
				facts.KindPolicyMap,
				facts.KindPolicyMapApply,
				facts.KindDefaultRoute,
				facts.KindTACACSConfig,
			),
			LANDesignator:  "Vlan1",
			WANDesignators: []string{"GigabitEthernet0/0/1"},
			Excluded:       append(append([]string{}, baseExcluded...), "Cellular0/1/0"),
		},
		VariantCell: {
			Checks:         append(append([]compliance.CheckID{}, baseChecks...), compliance.CheckCellRadio),
			Facts:          append(append([]facts.Kind{}, baseFacts...), facts.KindCellRadio),
			LANDesignator:  "Vlan1",
			WANDesignators: []string{"Cellular0/1/0"},
			Excluded:       append([]string{}, baseExcluded...),
		},
	}
}

// Profile is the per-device compliance state. It is owned by the worker
// auditing the device and is not safe for concurrent use.
type Profile struct {
	Address string
	Variant Variant
	LAN     string
	WAN     string
	Results map[compliance.CheckID]compliance.Result
}

// New creates an empty profile.
func New(address string, variant Variant) *Profile {
	return &Profile{
		Address: address,
		Variant: variant,
		Results: make(map[compliance.CheckID]compliance.Result),
	}
}

// Record stores r, replacing any earlier result of the same check.
func (p *Profile) Record(r compliance.Result) {
	p.Results[r.Check] = r
}

// Result returns the recorded result for id.
func (p *Profile) Result(id compliance.CheckID) (compliance.Result, bool) {
	r, ok := p.Results[id]
	return r, ok
}

// Target returns the evaluation target for f with this profile's roles.
func (p *Profile) Target(f *facts.Facts) compliance.Target {
	return compliance.Target{Facts: f, LAN: p.LAN, WAN: p.WAN}
}

// Ordered returns the recorded results in the given check order; checks
// without a result are skipped, and results not named in order follow sorted
// by check id.
func (p *Profile) Ordered(order []compliance.CheckID) []compliance.Result {
	out := make([]compliance.Result, 0, len(p.Results))
	seen := make(map[compliance.CheckID]bool, len(order))
	for _, id := range order {
		if r, ok := p.Results[id]; ok && !seen[id] {
			out = append(out, r)
			seen[id] = true
		}
	}
	var rest []compliance.CheckID
	for id := range p.Results {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, id := range rest {
		out = append(out, p.Results[id])
	}
	return out
}
