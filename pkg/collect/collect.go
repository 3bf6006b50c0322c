// Package collect gathers the facts of one device over a CLI session.
package collect

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/profile"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// FactParser knows the device commands and how to parse their output.
type FactParser interface {
	Command(kind facts.Kind) (string, bool)
	InterfaceConfigCommand(name string) string
	Parse(kind facts.Kind, output string, f *facts.Facts) error
}

// Resolver looks up the registered DNS name of an address.
type Resolver interface {
	LookupPTR(ctx context.Context, address string) (string, error)
}

// Collector turns command output into facts.
type Collector struct {
	Parser FactParser
	// Resolver backs the dns fact; without one the fact is an anomaly.
	Resolver Resolver
}

// NewCollector creates a collector.
func NewCollector(parser FactParser, resolver Resolver) *Collector {
	return &Collector{Parser: parser, Resolver: resolver}
}

// Collect gathers every fact kind caps asks for. A command whose output
// cannot be parsed leaves a per-kind anomaly and collection continues; an
// error that means the session itself is gone (unreachable, rejected
// credentials, cancelled context) aborts and is returned.
func (c *Collector) Collect(ctx context.Context, sess session.Session, address string, caps profile.Capabilities) (*facts.Facts, error) {
	f := facts.New(address)
	var wantConfig, wantDNS bool
	var kinds []facts.Kind
	for _, k := range caps.Facts {
		switch k {
		case facts.KindInterfaceConfig:
			wantConfig = true
		case facts.KindDNS:
			wantDNS = true
		default:
			kinds = append(kinds, k)
		}
	}

	if err := c.CollectKinds(ctx, sess, f, kinds); err != nil {
		return f, err
	}
	if wantConfig {
		lan, wan := profile.Classify(f.Interfaces, caps)
		if err := c.collectInterfaceConfig(ctx, sess, f, lan, wan); err != nil {
			return f, err
		}
	}
	if wantDNS {
		c.collectDNS(ctx, f)
	}
	return f, nil
}

// CollectKinds runs the command for each kind and parses it into f.
func (c *Collector) CollectKinds(ctx context.Context, sess session.Session, f *facts.Facts, kinds []facts.Kind) error {
	log := util.WithDevice(f.Address)
	for _, kind := range kinds {
		cmd, ok := c.Parser.Command(kind)
		if !ok {
			f.RecordAnomaly(kind, fmt.Errorf("no command produces %s", kind))
			continue
		}
		out, err := sess.Run(ctx, cmd)
		if err != nil {
			if fatal(err) {
				return err
			}
			log.WithField("fact", kind).Warnf("command %q failed: %v", cmd, err)
			f.RecordAnomaly(kind, err)
			continue
		}
		if err := c.Parser.Parse(kind, out, f); err != nil {
			log.WithField("fact", kind).Warnf("parse anomaly: %v", err)
			f.RecordAnomaly(kind, err)
			continue
		}
		f.MarkCollected(kind)
	}
	return nil
}

func (c *Collector) collectInterfaceConfig(ctx context.Context, sess session.Session, f *facts.Facts, names ...string) error {
	f.MarkCollected(facts.KindInterfaceConfig)
	for _, name := range names {
		if name == "" {
			continue
		}
		out, err := sess.Run(ctx, c.Parser.InterfaceConfigCommand(name))
		if err != nil {
			if fatal(err) {
				return err
			}
			f.RecordAnomaly(facts.KindInterfaceConfig, err)
			continue
		}
		f.InterfaceConfig[name] = out
	}
	return nil
}

func (c *Collector) collectDNS(ctx context.Context, f *facts.Facts) {
	if c.Resolver == nil {
		f.RecordAnomaly(facts.KindDNS, fmt.Errorf("no DNS resolver configured"))
		return
	}
	name, err := c.Resolver.LookupPTR(ctx, f.Address)
	if err != nil {
		util.WithDevice(f.Address).Warnf("PTR lookup failed: %v", err)
		f.RecordAnomaly(facts.KindDNS, err)
		return
	}
	f.DNSName = name
	f.MarkCollected(facts.KindDNS)
}

// fatal reports whether err means the session can no longer be used.
func fatal(err error) bool {
	switch util.Classify(err) {
	case util.FailureUnreachable, util.FailureAuthentication:
		return true
	}
	return errors.Is(err, context.Canceled)
}
