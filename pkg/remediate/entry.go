package remediate

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Outcome is the remediation result of one device.
type Outcome string

const (
	OutcomeConfigured       Outcome = "Configured"
	OutcomeAlreadyCompliant Outcome = "AlreadyCompliant"
	OutcomeAuthFailed       Outcome = "AuthFailed"
	OutcomeUnreachable      Outcome = "Unreachable"
	OutcomePartialFailure   Outcome = "PartialFailure"
)

// Outcomes lists every outcome in ledger display order.
var Outcomes = []Outcome{
	OutcomeConfigured, OutcomeAlreadyCompliant, OutcomeAuthFailed, OutcomeUnreachable, OutcomePartialFailure,
}

// AuditEntry is the record of one device visited in a remediation run.
type AuditEntry struct {
	Time     time.Time           `json:"timestamp"`
	Device   string              `json:"device"`
	Outcome  Outcome             `json:"outcome"`
	Reason   string              `json:"reason,omitempty"`
	Added    map[string][]string `json:"added,omitempty"`
	Duration time.Duration       `json:"duration_ns,omitempty"`
}

// Status renders the outcome for the ledger; partial failures carry their reason.
func (e AuditEntry) Status() string {
	if e.Outcome == OutcomePartialFailure && e.Reason != "" {
		return fmt.Sprintf("%s(%s)", e.Outcome, e.Reason)
	}
	return string(e.Outcome)
}

// AddedCount returns how many hosts were pushed.
func (e AuditEntry) AddedCount() int {
	n := 0
	for _, hosts := range e.Added {
		n += len(hosts)
	}
	return n
}

// describeMissing renders "SNMP_RO: 10.1.1.2, 10.1.1.3; SNMP_RW: 10.1.1.9"
// with ACL names sorted.
func describeMissing(missing map[string][]string) string {
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(missing[name], ", "))
	}
	return strings.Join(parts, "; ")
}
