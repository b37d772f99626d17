package http

import (
	"bytes"
	"context"
	"httptun/internal/blv"
	"httptun/internal/conf"
	"httptun/internal/obfs"
	"httptun/internal/outbound"
	"httptun/internal/tunnel"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	url   string
	codec *tunnel.Codec
	tun   *tunnel.Tunnel
}

func newFixture(t *testing.T, lim *conf.Limit) *fixture {
	t.Helper()
	cfg := conf.Default()
	cfg.Tunnel.Hello = "all good"

	d, err := outbound.New(&conf.Outbound{Type: "direct", DialTimeout: 2}, nil)
	require.NoError(t, err)
	tun := tunnel.New(&cfg.Tunnel, d)

	o, err := obfs.New("substitution")
	require.NoError(t, err)
	codec := tunnel.NewCodec(o, blv.DefaultLengthOffset)

	h := New(&cfg.Listen, lim, tun, codec)
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(func() {
		tun.Table().CloseAll(tunnel.ErrShutdown)
		srv.Close()
	})
	return &fixture{url: srv.URL + cfg.Listen.Path, codec: codec, tun: tun}
}

func (f *fixture) post(t *testing.T, rec blv.Record) (*http.Response, blv.Record) {
	t.Helper()
	body, err := f.codec.Encode(rec)
	require.NoError(t, err)
	resp, err := http.Post(f.url, "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	out, err := f.codec.Decode(raw)
	require.NoError(t, err)
	return resp, out
}

func command(cmd, mark string) blv.Record {
	rec := blv.Record{}
	rec.Set(blv.TagCommand, cmd)
	rec.Set(blv.TagMark, mark)
	return rec
}

func status(rec blv.Record) string {
	s, _ := rec.Get(blv.TagStatus)
	return s
}

func TestHelloOnEmptyBody(t *testing.T) {
	f := newFixture(t, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req, err := http.NewRequest(method, f.url, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "all good", string(body))
	}
}

func TestHelloOnUnknownCommand(t *testing.T) {
	f := newFixture(t, nil)
	body, err := f.codec.Encode(command("PING", "m1"))
	require.NoError(t, err)

	resp, err := http.Post(f.url, "text/plain", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "all good", string(got))
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "not base64", body: "%%%%"},
		{name: "truncated record", body: "AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(f.url, "text/plain", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			require.Empty(t, got)
		})
	}
}

func TestUnknownPath(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(strings.TrimSuffix(f.url, "/proxy_path") + "/other")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTunnelOverHTTP(t *testing.T) {
	f := newFixture(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		io.Copy(c, c)
	}()
	addr := ln.Addr().(*net.TCPAddr)

	connect := command(tunnel.CmdConnect, "m1")
	connect.Set(blv.TagHost, addr.IP.String())
	connect.Set(blv.TagPort, strconv.Itoa(addr.Port))
	body, err := f.codec.Encode(connect)
	require.NoError(t, err)
	connected := make(chan []byte, 1)
	go func() {
		resp, err := http.Post(f.url, "text/plain", bytes.NewReader(body))
		if err != nil {
			connected <- nil
			return
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		connected <- raw
	}()
	require.Eventually(t, func() bool {
		_, ok := f.tun.Table().Get("m1")
		return ok
	}, 5*time.Second, 5*time.Millisecond)

	fwd := command(tunnel.CmdForward, "m1")
	fwd.Set(blv.TagData, "ping")
	resp, rec := f.post(t, fwd)
	require.Equal(t, tunnel.StatusOK, status(rec))
	require.Equal(t, "Keep-Alive", resp.Header.Get("Connection"))

	var got []byte
	require.Eventually(t, func() bool {
		body, err := f.codec.Encode(command(tunnel.CmdRead, "m1"))
		if err != nil {
			return false
		}
		resp, err := http.Post(f.url, "text/plain", bytes.NewReader(body))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		rec, err := f.codec.Decode(raw)
		if err != nil {
			return false
		}
		got = append(got, rec[blv.TagData]...)
		return string(got) == "ping"
	}, 5*time.Second, 20*time.Millisecond)

	_, rec = f.post(t, command(tunnel.CmdDisconnect, "m1"))
	require.Equal(t, tunnel.StatusOK, status(rec))

	select {
	case raw := <-connected:
		rec, err := f.codec.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, tunnel.StatusOK, status(rec))
	case <-time.After(5 * time.Second):
		t.Fatal("CONNECT did not complete after DISCONNECT")
	}

	_, rec = f.post(t, command(tunnel.CmdRead, "m1"))
	require.Equal(t, tunnel.StatusFail, status(rec))
	msg, _ := rec.Get(blv.TagError)
	require.Equal(t, "TCP session is closed", msg)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, &conf.Limit{RequestsPerSecond: 0.001, Burst: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		resp, err := http.Get(f.url)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			require.Empty(t, body)
		}
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestIPLimiterPerClient(t *testing.T) {
	l := newIPLimiter(0.001, 1)
	require.True(t, l.allow("10.0.0.1"))
	require.False(t, l.allow("10.0.0.1"))
	require.True(t, l.allow("10.0.0.2"))
}

func TestIPLimiterKeepsBusyClientBucket(t *testing.T) {
	l := newIPLimiterTTL(0.001, 1, 200*time.Millisecond)
	require.True(t, l.allow("10.0.0.1"))

	// requests keep arriving for longer than the ttl; the drained bucket
	// must not be replaced by a fresh one
	deadline := time.Now().Add(600 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.False(t, l.allow("10.0.0.1"))
		time.Sleep(50 * time.Millisecond)
	}
}

func TestIPLimiterForgetsQuietClient(t *testing.T) {
	l := newIPLimiterTTL(0.001, 1, 100*time.Millisecond)
	require.True(t, l.allow("10.0.0.1"))
	require.False(t, l.allow("10.0.0.1"))

	time.Sleep(250 * time.Millisecond)
	require.True(t, l.allow("10.0.0.1"))
}

func TestServeShutdown(t *testing.T) {
	cfg := conf.Default()
	h := New(&cfg.Listen, nil, tunnel.New(&cfg.Tunnel, nil), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/nowhere")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
