package outbound

import (
	"context"
	"net"

	"golang.org/x/time/rate"
)

type limitedDialer struct {
	Dialer
	upload   int
	download int
}

func (d *limitedDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return newLimitedConn(conn, d.upload, d.download), nil
}

// limitedConn shapes a target connection. upload limits bytes written to the
// target, download limits bytes read from it.
type limitedConn struct {
	net.Conn
	uploadLimiter   *rate.Limiter
	downloadLimiter *rate.Limiter
	ctx             context.Context
	cancel          context.CancelFunc
}

func newLimitedConn(conn net.Conn, upload, download int) *limitedConn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &limitedConn{Conn: conn, ctx: ctx, cancel: cancel}
	if upload > 0 {
		c.uploadLimiter = rate.NewLimiter(rate.Limit(float64(upload)), upload)
	}
	if download > 0 {
		c.downloadLimiter = rate.NewLimiter(rate.Limit(float64(download)), download)
	}
	return c
}

func (c *limitedConn) Read(p []byte) (n int, err error) {
	if c.downloadLimiter == nil {
		return c.Conn.Read(p)
	}
	b := c.downloadLimiter.Burst()
	if b < len(p) {
		p = p[:b]
	}
	n, err = c.Conn.Read(p)
	if err != nil {
		return
	}
	err = c.wait(c.downloadLimiter, n)
	return
}

func (c *limitedConn) Write(p []byte) (n int, err error) {
	if c.uploadLimiter == nil {
		return c.Conn.Write(p)
	}
	var nn int
	b := c.uploadLimiter.Burst()
	for len(p) > 0 {
		end := len(p)
		if b < end {
			end = b
		}
		if err = c.wait(c.uploadLimiter, end); err != nil {
			return
		}
		nn, err = c.Conn.Write(p[:end])
		n += nn
		if err != nil {
			return
		}
		p = p[end:]
	}
	return
}

// wait blocks until lim allows n bytes. A wait cut short by Close reports
// net.ErrClosed, like any other operation on a closed conn.
func (c *limitedConn) wait(lim *rate.Limiter, n int) error {
	if err := lim.WaitN(c.ctx, n); err != nil {
		if c.ctx.Err() != nil {
			return net.ErrClosed
		}
		return err
	}
	return nil
}

func (c *limitedConn) Close() error {
	c.cancel()
	return c.Conn.Close()
}
