package tunnel

import (
	"context"
	"errors"
	"httptun/internal/blv"
	"httptun/internal/conf"
	"httptun/internal/flog"
	"httptun/internal/outbound"
	"net"
	"strconv"
	"strings"
)

// Commands understood by the dispatcher.
const (
	CmdConnect    = "CONNECT"
	CmdDisconnect = "DISCONNECT"
	CmdRead       = "READ"
	CmdForward    = "FORWARD"
)

const (
	StatusOK   = "OK"
	StatusFail = "FAIL"
)

// Reply is the outcome of one dispatched request.
type Reply struct {
	// Record is nil when Hello is set.
	Record blv.Record
	// Hello asks the transport to answer with the greeting instead of a record.
	Hello bool
	// KeepAlive hints that the HTTP connection should stay open for reuse.
	KeepAlive bool
}

// Tunnel executes tunnel commands against its own session table.
type Tunnel struct {
	cfg    *conf.Tunnel
	dialer outbound.Dialer
	table  *Table
}

func New(cfg *conf.Tunnel, dialer outbound.Dialer) *Tunnel {
	return &Tunnel{
		cfg:    cfg,
		dialer: dialer,
		table:  NewTable(cfg.MaxSessions),
	}
}

func (t *Tunnel) Table() *Table {
	return t.table
}

func (t *Tunnel) Greeting() string {
	return t.cfg.Hello
}

// Start runs background maintenance until ctx is done, then closes every
// session, which releases all parked CONNECT requests.
func (t *Tunnel) Start(ctx context.Context) {
	if t.cfg.IdleTimeout > 0 {
		go t.table.reaper(ctx, t.cfg.IdleTimeoutD())
	}
	go func() {
		<-ctx.Done()
		if n := t.table.Len(); n > 0 {
			flog.Infof("closing %d tunnel sessions", n)
		}
		t.table.CloseAll(ErrShutdown)
	}()
}

// Dispatch executes the command in req. CONNECT blocks until the session it
// opens ends; if ctx is cancelled first, Dispatch returns ctx.Err() and the
// session keeps running.
func (t *Tunnel) Dispatch(ctx context.Context, req blv.Record) (*Reply, error) {
	cmd, hasCmd := req.Get(blv.TagCommand)
	mark, hasMark := req.Get(blv.TagMark)
	if !hasCmd || !hasMark || cmd == "" || mark == "" {
		return &Reply{Hello: true}, nil
	}

	switch cmd {
	case CmdConnect:
		return t.connect(ctx, mark, req)
	case CmdDisconnect:
		return t.disconnect(mark), nil
	case CmdRead:
		return t.read(mark), nil
	case CmdForward:
		return t.forward(mark, req[blv.TagData]), nil
	default:
		return &Reply{Hello: true}, nil
	}
}

func okRecord() blv.Record {
	rec := blv.Record{}
	rec.Set(blv.TagStatus, StatusOK)
	return rec
}

func fail(msg string) *Reply {
	rec := blv.Record{}
	rec.Set(blv.TagStatus, StatusFail)
	rec.Set(blv.TagError, msg)
	return &Reply{Record: rec}
}

func parseTarget(req blv.Record) (string, bool) {
	host, _ := req.Get(blv.TagHost)
	portStr, _ := req.Get(blv.TagPort)
	host = strings.TrimSpace(host)
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if host == "" || err != nil || port < 1 || port > 65535 {
		return "", false
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), true
}

func (t *Tunnel) connect(ctx context.Context, mark string, req blv.Record) (*Reply, error) {
	addr, valid := parseTarget(req)
	if !valid {
		return fail(msgMissingTarget), nil
	}
	if err := t.table.checkAdmit(mark); err != nil {
		return t.rejectAdmit(mark, err), nil
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		flog.Errorf("session %s failed to connect to %s: %v", mark, addr, err)
		return fail(msgConnectFailed), nil
	}

	s := newSession(mark, conn, t.cfg.MaxReadSize)
	if err := t.table.add(s); err != nil {
		conn.Close()
		return t.rejectAdmit(mark, err), nil
	}
	flog.Infof("session %s connected to %s", mark, addr)
	s.pump()

	select {
	case <-s.Done():
	case <-ctx.Done():
		flog.Debugf("session %s: CONNECT request abandoned, session continues", mark)
		return nil, ctx.Err()
	}

	reason := s.Err()
	flog.Infof("session %s to %s ended (%v): %d bytes up, %d bytes down, %d bytes dropped",
		mark, addr, reason, s.bytesUp.Load(), s.bytesDown.Load(), s.dropped.Load())
	return &Reply{Record: okRecord()}, nil
}

func (t *Tunnel) rejectAdmit(mark string, err error) *Reply {
	flog.Warnf("session %s rejected: %v", mark, err)
	switch {
	case errors.Is(err, ErrMarkInUse):
		return fail(msgMarkInUse)
	case errors.Is(err, ErrShutdown):
		return fail(msgShutdown)
	default:
		return fail(msgTooMany)
	}
}

func (t *Tunnel) disconnect(mark string) *Reply {
	if s, ok := t.table.Get(mark); ok {
		flog.Debugf("session %s disconnect requested", mark)
		s.Close(ErrDisconnected)
	}
	return &Reply{Record: okRecord()}
}

func (t *Tunnel) read(mark string) *Reply {
	s, ok := t.table.Get(mark)
	if !ok {
		return fail(msgSessionClosed)
	}
	data, err := s.TakeRead()
	if err != nil {
		return fail(msgSessionClosed)
	}
	rec := okRecord()
	rec[blv.TagData] = data
	return &Reply{Record: rec, KeepAlive: true}
}

func (t *Tunnel) forward(mark string, data []byte) *Reply {
	s, ok := t.table.Get(mark)
	if !ok || !s.Running() {
		return fail(msgSessionClosed)
	}
	if len(data) == 0 {
		return fail(msgEmptyForward)
	}
	if err := s.Forward(data); err != nil {
		return fail(msgSessionClosed)
	}
	return &Reply{Record: okRecord(), KeepAlive: true}
}
