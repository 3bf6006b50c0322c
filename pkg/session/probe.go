package session

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Prober checks ICMP reachability before an SSH dial.
type Prober struct {
	Count      int
	Interval   time.Duration
	Timeout    time.Duration
	Privileged bool
}

// NewProber returns a prober that sends three echo requests within five seconds.
func NewProber() *Prober {
	return &Prober{
		Count:    3,
		Interval: 200 * time.Millisecond,
		Timeout:  5 * time.Second,
	}
}

// Probe returns nil when host answered at least one echo request, otherwise
// an error wrapping util.ErrUnreachable.
func (p *Prober) Probe(ctx context.Context, host string) error {
	pr := probing.New(host)
	if err := pr.Resolve(); err != nil {
		return fmt.Errorf("%w: resolving %s: %v", util.ErrUnreachable, host, err)
	}

	pr.RecordRtts = false
	pr.Count = p.Count
	pr.Interval = p.Interval
	pr.Timeout = p.Timeout
	pr.SetPrivileged(p.Privileged)
	pr.SetLogger(nil)

	if err := pr.RunWithContext(ctx); err != nil {
		return fmt.Errorf("%w: pinging %s (ip %s): %v", util.ErrUnreachable, pr.Addr(), pr.IPAddr(), err)
	}

	stats := pr.Statistics()
	util.WithDevice(host).Debugf("ping stats: sent %d, received %d, avg rtt %s",
		stats.PacketsSent, stats.PacketsRecv, stats.AvgRtt)
	if stats.PacketsRecv == 0 {
		return fmt.Errorf("%w: no echo reply from %s", util.ErrUnreachable, host)
	}
	return nil
}
