package outbound

import (
	"context"
	"errors"
	"fmt"
	"httptun/internal/flog"
	"httptun/internal/pkg/iterator"
	"net"
	"time"

	"github.com/miekg/dns"
)

var ErrNoAddress = errors.New("no address found")

// Resolver looks up target hosts against a fixed list of nameservers instead
// of the system resolver. Servers are used round-robin; a failing server is
// skipped for the current lookup.
type Resolver struct {
	client  *dns.Client
	servers *iterator.Iterator[string]
}

func NewResolver(servers []string, timeout time.Duration) *Resolver {
	return &Resolver{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		servers: &iterator.Iterator[string]{Items: servers},
	}
}

// Lookup returns the IPv4 addresses of host followed by its IPv6 addresses.
func (r *Resolver) Lookup(ctx context.Context, host string) ([]net.IP, error) {
	var lastErr error
	for range r.servers.Len() {
		server := r.servers.Next()
		ips, err := r.lookup(ctx, server, host)
		if err == nil && len(ips) > 0 {
			return ips, nil
		}
		if err == nil {
			err = fmt.Errorf("%w for %s", ErrNoAddress, host)
		}
		flog.Debugf("resolve %s via %s failed: %v", host, server, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w for %s", ErrNoAddress, host)
	}
	return nil, lastErr
}

func (r *Resolver) lookup(ctx context.Context, server, host string) ([]net.IP, error) {
	var ips []net.IP
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)
		m.RecursionDesired = true

		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			return nil, err
		}
		if resp.Rcode != dns.RcodeSuccess {
			if resp.Rcode == dns.RcodeNameError {
				return nil, fmt.Errorf("%w for %s: %s", ErrNoAddress, host, dns.RcodeToString[resp.Rcode])
			}
			continue
		}
		for _, ans := range resp.Answer {
			switch rr := ans.(type) {
			case *dns.A:
				ips = append(ips, rr.A)
			case *dns.AAAA:
				ips = append(ips, rr.AAAA)
			}
		}
	}
	return ips, nil
}
