package server

import (
	"context"
	"fmt"
	"httptun/internal/conf"
	"httptun/internal/flog"
	"httptun/internal/http"
	"httptun/internal/obfs"
	"httptun/internal/outbound"
	"httptun/internal/tunnel"
	"os"
	"os/signal"
	"syscall"
)

type Server struct {
	cfg  *conf.Conf
	tun  *tunnel.Tunnel
	http *http.HTTP
}

func New(cfg *conf.Conf) (*Server, error) {
	dialer, err := outbound.New(&cfg.Outbound, &cfg.Limit)
	if err != nil {
		return nil, err
	}
	o, err := obfs.New(cfg.Tunnel.Obfs)
	if err != nil {
		return nil, fmt.Errorf("tunnel obfs: %w", err)
	}

	tun := tunnel.New(&cfg.Tunnel, dialer)
	codec := tunnel.NewCodec(o, cfg.Tunnel.LengthOffset)
	s := &Server{
		cfg:  cfg,
		tun:  tun,
		http: http.New(&cfg.Listen, &cfg.Limit, tun, codec),
	}
	return s, nil
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-sig:
			flog.Infof("Shutdown signal received, initiating graceful shutdown...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.Run(ctx)
}

// Run serves the tunnel endpoint until ctx is done. Open sessions are closed
// on the way out.
func (s *Server) Run(ctx context.Context) error {
	flog.Infof("outbound: %s, obfs: %s, max sessions: %d", s.cfg.Outbound.Type, s.cfg.Tunnel.Obfs, s.cfg.Tunnel.MaxSessions)
	s.tun.Start(ctx)

	if err := s.http.ListenAndServe(ctx); err != nil {
		return err
	}
	flog.Infof("Server shutdown completed")
	return nil
}
