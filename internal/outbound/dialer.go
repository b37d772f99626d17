package outbound

import (
	"context"
	"fmt"
	"httptun/internal/conf"
	"net"
	"time"

	"github.com/txthinking/socks5"
)

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// New builds the dialer used for tunnel targets from the outbound and limit
// configuration.
func New(cfg *conf.Outbound, lim *conf.Limit) (Dialer, error) {
	var dialer Dialer
	if cfg.Type == "socks5" {
		d, err := newSOCKS5Dialer(cfg.Addr, cfg.Username, cfg.Password, cfg.DialTimeoutD())
		if err != nil {
			return nil, fmt.Errorf("outbound socks5: %w", err)
		}
		dialer = d
	} else {
		d := newDirectDialer(cfg.DialTimeoutD())
		if len(cfg.Nameservers) > 0 {
			d.resolver = NewResolver(cfg.Nameservers, cfg.DialTimeoutD())
		}
		dialer = d
	}
	if lim != nil && (lim.UploadBps > 0 || lim.DownloadBps > 0) {
		dialer = &limitedDialer{
			Dialer:   dialer,
			upload:   lim.UploadBps,
			download: lim.DownloadBps,
		}
	}
	return dialer, nil
}

type directDialer struct {
	d        *net.Dialer
	resolver *Resolver
}

func newDirectDialer(timeout time.Duration) *directDialer {
	return &directDialer{
		d: &net.Dialer{Timeout: timeout},
	}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.resolver == nil {
		return d.d.DialContext(ctx, network, address)
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(host) != nil {
		return d.d.DialContext(ctx, network, address)
	}
	ips, err := d.resolver.Lookup(ctx, host)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, ip := range ips {
		conn, err := d.d.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

type socks5Dialer struct {
	client *socks5.Client
}

func (d *socks5Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := d.client.Dial(network, address)
		done <- result{conn, err}
	}()
	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		select {
		case <-ctx.Done():
			res.conn.Close()
			return nil, ctx.Err()
		default:
			return res.conn, nil
		}
	case <-ctx.Done():
		go func() {
			if res := <-done; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func newSOCKS5Dialer(addr, username, password string, timeout time.Duration) (Dialer, error) {
	sec := max(1, int(timeout/time.Second))
	client, err := socks5.NewClient(addr, username, password, sec, sec)
	if err != nil {
		return nil, err
	}
	return &socks5Dialer{client: client}, nil
}
