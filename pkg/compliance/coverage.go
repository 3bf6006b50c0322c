package compliance

import (
	"fmt"
	"strings"

	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// CoverageCheck is the required-set coverage pattern: OK iff every required
// element is covered by the device facts, otherwise the message enumerates
// the missing elements.
type CoverageCheck[T comparable] struct {
	Check    CheckID
	Kind     facts.Kind
	Required []T
	// Covered reports whether want is present in f.
	Covered func(f *facts.Facts, want T) bool
	// Describe renders the message for the missing elements (empty when compliant).
	Describe func(required, missing []T) string
}

// ID returns the check id
func (c *CoverageCheck[T]) ID() CheckID {
	return c.Check
}

// Evaluate runs the coverage comparison.
func (c *CoverageCheck[T]) Evaluate(t Target) Result {
	if reason := t.Facts.Anomaly(c.Kind); reason != "" {
		return unknown(c.Check, fmt.Sprintf("Could not verify %s: %s.", c.Check, reason))
	}
	missing := util.Missing(c.Required, func(want T) bool { return c.Covered(t.Facts, want) })
	msg := c.Describe(c.Required, missing)
	if len(missing) == 0 {
		return ok(c.Check, msg)
	}
	return warn(c.Check, msg)
}

// NewSNMPCommunityCheck requires each community line to appear in the SNMP configuration.
func NewSNMPCommunityCheck(communities []string) *CoverageCheck[string] {
	return &CoverageCheck[string]{
		Check:    CheckSNMPCommunity,
		Kind:     facts.KindSNMPConfig,
		Required: communities,
		Covered: func(f *facts.Facts, want string) bool {
			return strings.Contains(f.SNMPConfig, want)
		},
		Describe: func(_, missing []string) string {
			if len(missing) == 0 {
				return "All the SNMP community strings have been configured."
			}
			return "The following SNMP community strings are not configured: " + strings.Join(missing, ", ") + "."
		},
	}
}

// NewISEServerCheck requires each ISE server address to appear in the TACACS configuration.
func NewISEServerCheck(servers []string) *CoverageCheck[string] {
	return &CoverageCheck[string]{
		Check:    CheckISEServers,
		Kind:     facts.KindTACACSConfig,
		Required: servers,
		Covered: func(f *facts.Facts, want string) bool {
			return strings.Contains(f.TACACSConfig, want)
		},
		Describe: func(required, missing []string) string {
			if len(missing) == 0 {
				return "All the ISE servers " + strings.Join(required, ", ") + " have been configured."
			}
			return "The following ISE servers are not configured: " + strings.Join(missing, ", ") + "."
		},
	}
}

// NewACLCheck requires every (ACL, host) pair of reqs to be configured.
func NewACLCheck(reqs []ACLRequirement) *CoverageCheck[facts.ACE] {
	var required []facts.ACE
	for _, r := range reqs {
		for _, h := range r.Hosts {
			required = append(required, facts.ACE{ACLName: r.Name, SourceHost: h})
		}
	}
	return &CoverageCheck[facts.ACE]{
		Check:    CheckSNMPACL,
		Kind:     facts.KindACLs,
		Required: required,
		Covered: func(f *facts.Facts, want facts.ACE) bool {
			for _, have := range f.ACEs {
				if have == want {
					return true
				}
			}
			return false
		},
		Describe: func(_, missing []facts.ACE) string {
			byACL := make(map[string][]string)
			for _, m := range missing {
				byACL[m.ACLName] = append(byACL[m.ACLName], m.SourceHost)
			}
			var parts []string
			for _, r := range reqs {
				if hosts := byACL[r.Name]; len(hosts) > 0 {
					parts = append(parts, fmt.Sprintf("The %s ACL has not been added to this device. The following IPs are missing: %s.",
						r.Name, strings.Join(hosts, ", ")))
				} else {
					parts = append(parts, fmt.Sprintf("The %s ACL has been added to this device.", r.Name))
				}
			}
			return strings.Join(parts, "\n")
		},
	}
}

// MissingHosts returns, per ACL requirement, the hosts not present in current.
// ACLs with nothing missing are omitted.
func MissingHosts(reqs []ACLRequirement, current []facts.ACE) map[string][]string {
	missing := make(map[string][]string)
	for _, r := range reqs {
		var have []string
		for _, e := range current {
			if e.ACLName == r.Name {
				have = append(have, e.SourceHost)
			}
		}
		if m := util.Difference(r.Hosts, have); len(m) > 0 {
			missing[r.Name] = m
		}
	}
	return missing
}
