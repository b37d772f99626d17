package http

import (
	"context"
	"errors"
	"fmt"
	"httptun/internal/blv"
	"httptun/internal/conf"
	"httptun/internal/flog"
	"httptun/internal/tunnel"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Dispatcher executes decoded tunnel requests.
type Dispatcher interface {
	Dispatch(ctx context.Context, req blv.Record) (*tunnel.Reply, error)
	Greeting() string
}

// HTTP serves the tunnel endpoint.
type HTTP struct {
	cfg     *conf.Listen
	tun     Dispatcher
	codec   *tunnel.Codec
	limiter *ipLimiter
}

func New(cfg *conf.Listen, lim *conf.Limit, tun Dispatcher, codec *tunnel.Codec) *HTTP {
	h := &HTTP{
		cfg:   cfg,
		tun:   tun,
		codec: codec,
	}
	if lim != nil && lim.RequestsPerSecond > 0 {
		h.limiter = newIPLimiter(lim.RequestsPerSecond, lim.Burst)
	}
	return h
}

// Handler returns the routed handler, including h2c support when enabled.
func (h *HTTP) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if h.limiter != nil {
		r.Use(h.limiter.middleware)
	}
	r.Handle(h.cfg.Path, h)

	if h.cfg.H2C {
		return h2c.NewHandler(r, &http2.Server{IdleTimeout: h.cfg.IdleTimeoutD()})
	}
	return r
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (h *HTTP) ListenAndServe(ctx context.Context) error {
	// cfg.Addr is already validated
	listener, err := net.ListenTCP("tcp", h.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.cfg.Addr, err)
	}
	flog.Infof("tunnel endpoint listening on %s%s", listener.Addr(), h.cfg.Path)
	return h.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done, then shuts the
// server down gracefully.
func (h *HTTP) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: h.cfg.ReadHeaderTimeoutD(),
		IdleTimeout:       h.cfg.IdleTimeoutD(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.cfg.ShutdownTimeoutD())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		flog.Debugf("tunnel endpoint shutdown with: %v", err)
		server.Close()
	}
	return nil
}
