// Package remediate fills SNMP ACL gaps on edge routers: it computes the
// hosts each required ACL is missing, pushes only those entries and records
// one AuditEntry per device.
package remediate

import (
	"context"
	"fmt"
	"time"

	"github.com/edgecheck-network/edgecheck/pkg/collect"
	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Engine computes and applies the minimal ACL delta.
type Engine struct {
	Required []compliance.ACLRequirement
	// Verify re-reads the ACLs after a push and reports hosts that are still
	// missing as a partial failure.
	Verify    bool
	Collector *collect.Collector
}

// NewEngine creates an engine with verification enabled.
func NewEngine(required []compliance.ACLRequirement, collector *collect.Collector) *Engine {
	return &Engine{Required: required, Verify: true, Collector: collector}
}

// Remediate brings address's ACLs up to the required set, given the entries
// currently configured. Nothing is pushed when no host is missing.
func (e *Engine) Remediate(ctx context.Context, sess session.Session, address string, current []facts.ACE) AuditEntry {
	entry := AuditEntry{Time: time.Now(), Device: address}
	log := util.WithDevice(address)

	missing := compliance.MissingHosts(e.Required, current)
	if len(missing) == 0 {
		log.Info("ACLs already compliant")
		entry.Outcome = OutcomeAlreadyCompliant
		return entry
	}

	lines := Fragment(e.Required, missing)
	log.Infof("pushing %d ACL lines (%s)", len(lines), describeMissing(missing))
	if err := sess.Configure(ctx, lines); err != nil {
		log.Errorf("push failed: %v", err)
		return failed(entry, err)
	}
	entry.Added = missing

	if e.Verify {
		after, err := e.ReadACEs(ctx, sess, address)
		if err != nil {
			log.Errorf("verification read-back failed: %v", err)
			entry.Outcome = OutcomePartialFailure
			entry.Reason = "verification failed: " + err.Error()
			return entry
		}
		if still := compliance.MissingHosts(e.Required, after); len(still) > 0 {
			log.Warnf("hosts still missing after push: %s", describeMissing(still))
			entry.Outcome = OutcomePartialFailure
			entry.Reason = "still missing " + describeMissing(still)
			return entry
		}
	}

	entry.Outcome = OutcomeConfigured
	return entry
}

// ReadACEs reads the configured ACL entries from the device.
func (e *Engine) ReadACEs(ctx context.Context, sess session.Session, address string) ([]facts.ACE, error) {
	f := facts.New(address)
	if err := e.Collector.CollectKinds(ctx, sess, f, []facts.Kind{facts.KindACLs}); err != nil {
		return nil, err
	}
	if reason := f.Anomaly(facts.KindACLs); reason != "" {
		return nil, fmt.Errorf("%w: %s", util.ErrParseAnomaly, reason)
	}
	return f.ACEs, nil
}

// Fragment renders the configuration that adds the missing hosts, one
// standard ACL block per requirement with something missing, in requirement
// order.
func Fragment(required []compliance.ACLRequirement, missing map[string][]string) []string {
	var lines []string
	for _, r := range required {
		hosts := missing[r.Name]
		if len(hosts) == 0 {
			continue
		}
		lines = append(lines, "ip access-list standard "+r.Name)
		for _, h := range hosts {
			lines = append(lines, " permit host "+h)
		}
	}
	return lines
}

// failed converts a session error into the matching terminal outcome.
func failed(entry AuditEntry, err error) AuditEntry {
	switch util.Classify(err) {
	case util.FailureAuthentication:
		entry.Outcome = OutcomeAuthFailed
	case util.FailureUnreachable:
		entry.Outcome = OutcomeUnreachable
	default:
		entry.Outcome = OutcomePartialFailure
	}
	entry.Reason = err.Error()
	return entry
}
