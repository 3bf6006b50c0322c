package report

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/edgecheck-network/edgecheck/pkg/collect"
	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/profile"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// ResultObserver is told about every evaluated check (metrics).
type ResultObserver interface {
	ObserveResult(variant string, r compliance.Result)
}

// Auditor is the per-device boundary of the report path. Whatever goes wrong
// with a device ends up as UNKNOWN results in its section; nothing is
// returned as an error.
type Auditor struct {
	Dialer       session.Dialer
	Credentials  session.Credentials
	Collector    *collect.Collector
	Catalogue    *compliance.Catalogue
	Capabilities map[profile.Variant]profile.Capabilities
	// Sites maps device address to its site or ISP label.
	Sites    map[string]string
	Observer ResultObserver
	// Collected, when set, receives the facts of every device that was
	// reached, before evaluation.
	Collected func(f *facts.Facts)
	Now       func() time.Time
}

// Audit collects the facts of address and evaluates them.
func (a *Auditor) Audit(ctx context.Context, address string, variant profile.Variant) (s Section) {
	log := util.WithDevice(address)
	defer func() {
		if v := recover(); v != nil {
			err := util.RecoveredPanic(v)
			log.Errorf("audit aborted: %v", err)
			s = a.failed(address, variant, err)
		}
	}()

	caps, err := a.capabilities(variant)
	if err != nil {
		return a.failed(address, variant, err)
	}

	sess, err := a.Dialer.Dial(ctx, address, a.Credentials)
	if err != nil {
		log.Warnf("cannot open session: %v", err)
		return a.failed(address, variant, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debugf("closing session: %v", err)
		}
	}()

	f, err := a.Collector.Collect(ctx, sess, address, caps)
	if err != nil {
		// Whatever was collected before the session failed is still evaluated;
		// the rest shows up as uncollected facts.
		log.Warnf("collection stopped early: %v", err)
	}
	if a.Collected != nil {
		a.Collected(f)
	}
	return a.Evaluate(f, variant)
}

// AuditAll audits addresses with at most workers concurrent sessions and
// returns the sections in address order.
func (a *Auditor) AuditAll(ctx context.Context, addresses []string, variant profile.Variant, workers int) []Section {
	if workers < 1 {
		workers = 1
	}
	sections := make([]Section, len(addresses))
	p := pool.New().WithMaxGoroutines(workers)
	for i, addr := range addresses {
		i, addr := i, addr
		p.Go(func() {
			sections[i] = a.Audit(ctx, addr, variant)
		})
	}
	p.Wait()
	return sections
}

// Evaluate classifies f's interfaces, runs the variant's checks and returns
// the device section. It needs no session, so fact snapshots go through it
// unchanged.
func (a *Auditor) Evaluate(f *facts.Facts, variant profile.Variant) Section {
	caps, err := a.capabilities(variant)
	if err != nil {
		return a.failed(f.Address, variant, err)
	}
	p := profile.New(f.Address, variant)
	p.Resolve(f, caps)
	if p.LAN == "" || p.WAN == "" {
		util.WithDevice(f.Address).Debugf("interface roles incomplete: lan=%q wan=%q", p.LAN, p.WAN)
	}
	for _, r := range a.Catalogue.Evaluate(caps.Checks, p.Target(f)) {
		p.Record(r)
		if a.Observer != nil {
			a.Observer.ObserveResult(string(variant), r)
		}
	}

	s := Aggregate(p, caps.Checks)
	s.Hostname = f.Hostname()
	s.Site = a.Sites[f.Address]
	s.Time = a.now()
	return s
}

// failed builds a section where every applicable check is UNKNOWN.
func (a *Auditor) failed(address string, variant profile.Variant, cause error) Section {
	p := profile.New(address, variant)
	var order []compliance.CheckID
	if caps, ok := a.Capabilities[variant]; ok {
		order = caps.Checks
	}
	msg := fmt.Sprintf("The device could not be audited (%s): %v.", util.Classify(cause), cause)
	for _, id := range order {
		r := compliance.Result{Check: id, Status: compliance.StatusUnknown, Message: msg}
		p.Record(r)
		if a.Observer != nil {
			a.Observer.ObserveResult(string(variant), r)
		}
	}
	s := Aggregate(p, order)
	s.Overall = compliance.StatusUnknown
	s.Site = a.Sites[address]
	s.Time = a.now()
	return s
}

func (a *Auditor) capabilities(variant profile.Variant) (profile.Capabilities, error) {
	caps, ok := a.Capabilities[variant]
	if !ok {
		return profile.Capabilities{}, fmt.Errorf("no capabilities for variant %q", variant)
	}
	return caps, nil
}

func (a *Auditor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
