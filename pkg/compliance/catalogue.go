package compliance

import (
	"fmt"

	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Catalogue holds one instance of every check, keyed by id.
type Catalogue struct {
	checks map[CheckID]Check
}

// NewCatalogue builds every check from p.
func NewCatalogue(p Policy) *Catalogue {
	c := &Catalogue{checks: make(map[CheckID]Check)}
	c.Register(&DeviceInfoCheck{})
	c.Register(&DNSCheck{})
	c.Register(&EnvironmentCheck{})
	c.Register(&CellRadioCheck{})
	c.Register(&VRRPCheck{Priority: p.VRRPPriority})
	c.Register(&BGPCheck{})
	c.Register(&BFDCheck{})
	c.Register(&PolicyMapCheck{})
	c.Register(NewDefaultRouteCheck(p.DefaultRouteCost))
	c.Register(&FlowExporterCheck{Policy: p.FlowExporters})
	c.Register(NewSNMPCommunityCheck(p.SNMPCommunities))
	c.Register(NewACLCheck(p.SNMPACLs))
	c.Register(NewISEServerCheck(p.ISEServers))
	c.Register(&SpeedDuplexCheck{Role: RoleLAN, FixedSpeeds: p.FixedSpeeds, Require: p.RequireHardcodedSpeedDuplex})
	c.Register(&SpeedDuplexCheck{Role: RoleWAN, FixedSpeeds: p.FixedSpeeds, Require: p.RequireHardcodedSpeedDuplex})
	c.Register(&InterfacesCheck{})
	return c
}

// Register adds or replaces a check.
func (c *Catalogue) Register(check Check) {
	c.checks[check.ID()] = check
}

// Get returns the check with the given id.
func (c *Catalogue) Get(id CheckID) (Check, bool) {
	check, ok := c.checks[id]
	return check, ok
}

// Evaluate runs the checks named in order against t and returns their results
// in the same order. A check that panics or is not registered yields UNKNOWN;
// one failing check never prevents the others from running.
func (c *Catalogue) Evaluate(order []CheckID, t Target) []Result {
	results := make([]Result, 0, len(order))
	for _, id := range order {
		check, found := c.checks[id]
		if !found {
			results = append(results, unknown(id, fmt.Sprintf("Check %s is not available.", id)))
			continue
		}
		results = append(results, evaluateOne(check, t))
	}
	return results
}

func evaluateOne(check Check, t Target) (r Result) {
	defer func() {
		if v := recover(); v != nil {
			err := util.RecoveredPanic(v)
			util.WithDevice(t.Facts.Address).WithField("check", check.ID()).Errorf("check failed: %v", err)
			r = unknown(check.ID(), fmt.Sprintf("Check %s could not be evaluated: %v.", check.ID(), err))
		}
	}()
	return check.Evaluate(t)
}
