package collect

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// DNSResolver answers PTR lookups against explicit name servers.
type DNSResolver struct {
	Servers []string // host or host:port
	client  *dns.Client
}

// NewDNSResolver creates a resolver. With no servers the system resolver
// configuration in /etc/resolv.conf is used.
func NewDNSResolver(servers []string, timeout time.Duration) (*DNSResolver, error) {
	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("reading resolver configuration: %w", err)
		}
		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
	}
	r := &DNSResolver{client: &dns.Client{Net: "udp", Timeout: timeout}}
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		r.Servers = append(r.Servers, s)
	}
	return r, nil
}

// LookupPTR returns the first PTR name of address, or "" when the servers
// answer that none exists. An error means no server gave an answer.
func (r *DNSResolver) LookupPTR(ctx context.Context, address string) (string, error) {
	name := util.ReverseName(address)
	if name == "" {
		return "", fmt.Errorf("%q is not an IP address", address)
	}
	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypePTR)

	var lastErr error
	for _, srv := range r.Servers {
		resp, rtt, err := r.client.ExchangeContext(ctx, msg, srv)
		if err != nil {
			lastErr = err
			util.WithDevice(address).Debugf("PTR query to %s failed: %v", srv, err)
			continue
		}
		util.WithDevice(address).Debugf("PTR query to %s answered rcode %d in %s", srv, resp.Rcode, rtt)
		switch resp.Rcode {
		case dns.RcodeSuccess, dns.RcodeNameError:
		default:
			lastErr = fmt.Errorf("server %s answered %s", srv, dns.RcodeToString[resp.Rcode])
			continue
		}
		for _, rr := range resp.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
		return "", nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no name servers configured")
	}
	return "", lastErr
}
