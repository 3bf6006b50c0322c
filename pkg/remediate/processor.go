package remediate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Recorder commits audit entries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Append(entry AuditEntry) error
}

// Observer is told about every committed entry (metrics).
type Observer interface {
	ObserveOutcome(entry AuditEntry)
}

// ErrInterrupted is returned by Process when the run was cancelled before
// anything was changed on the device. No entry is committed for it.
var ErrInterrupted = errors.New("run interrupted before the device was processed")

// NeighborCapabilities are the CDP capabilities of neighbors worth following.
var NeighborCapabilities = []string{"Router", "Switch"}

// Processor is the per-device boundary of a remediation walk: it opens the
// session, reads ACLs and neighbors, remediates, closes the session and
// commits exactly one AuditEntry for every device it gets to work on.
type Processor struct {
	Dialer      session.Dialer
	Credentials session.Credentials
	Engine      *Engine
	Recorder    Recorder
	Observer    Observer
}

// Visit processes address and returns the neighbor addresses to follow. It
// has the walk.VisitFunc signature.
func (p *Processor) Visit(ctx context.Context, address string) []string {
	entry, neighbors, err := p.Process(ctx, address)
	if err != nil {
		util.WithDevice(address).Debugf("not recorded: %v", err)
		return nil
	}
	if p.Recorder != nil {
		if err := p.Recorder.Append(entry); err != nil {
			util.WithDevice(address).Errorf("recording outcome %s: %v", entry.Status(), err)
		}
	}
	if p.Observer != nil {
		p.Observer.ObserveOutcome(entry)
	}
	return neighbors
}

// Process remediates one device. Devices whose session cannot be opened
// contribute no neighbors. A cancelled run yields ErrInterrupted instead of
// an entry until a push has been attempted.
func (p *Processor) Process(ctx context.Context, address string) (entry AuditEntry, neighbors []string, err error) {
	start := time.Now()
	log := util.WithDevice(address)
	defer func() {
		if v := recover(); v != nil {
			perr := util.RecoveredPanic(v)
			log.Errorf("remediation aborted: %v", perr)
			entry = AuditEntry{Time: start, Device: address, Outcome: OutcomePartialFailure, Reason: perr.Error()}
			neighbors, err = nil, nil
		}
		entry.Duration = time.Since(start)
	}()

	if cerr := ctx.Err(); cerr != nil {
		return AuditEntry{}, nil, fmt.Errorf("%w: %v", ErrInterrupted, cerr)
	}

	sess, err := p.Dialer.Dial(ctx, address, p.Credentials)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return AuditEntry{}, nil, fmt.Errorf("%w: %v", ErrInterrupted, cerr)
		}
		log.Warnf("cannot open session: %v", err)
		entry = failed(AuditEntry{Time: start, Device: address}, err)
		if entry.Outcome == OutcomePartialFailure {
			// Any session failure that is not a credential rejection leaves the
			// device unreachable for this run.
			entry.Outcome = OutcomeUnreachable
		}
		return entry, nil, nil
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debugf("closing session: %v", err)
		}
	}()

	f := facts.New(address)
	if err := p.Engine.Collector.CollectKinds(ctx, sess, f, []facts.Kind{facts.KindACLs, facts.KindCDPNeighbors}); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return AuditEntry{}, nil, fmt.Errorf("%w: %v", ErrInterrupted, cerr)
		}
		log.Warnf("reading device state: %v", err)
		return failed(AuditEntry{Time: start, Device: address}, err), nil, nil
	}
	neighbors = Neighbors(f.CDPNeighbors)
	log.Debugf("%d neighbors to follow", len(neighbors))

	if reason := f.Anomaly(facts.KindACLs); reason != "" {
		return AuditEntry{Time: start, Device: address, Outcome: OutcomePartialFailure, Reason: "ACLs unavailable: " + reason}, neighbors, nil
	}
	return p.Engine.Remediate(ctx, sess, address, f.ACEs), neighbors, nil
}

// Neighbors returns the reachable addresses of the CDP neighbors that
// advertise a router or switch capability.
func Neighbors(records []facts.CDPNeighborRecord) []string {
	var out []string
	for _, r := range records {
		addr := r.Address()
		if addr == "" {
			continue
		}
		for _, c := range NeighborCapabilities {
			if r.HasCapability(c) {
				out = append(out, addr)
				break
			}
		}
	}
	return out
}
