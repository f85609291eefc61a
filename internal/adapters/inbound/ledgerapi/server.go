package ledgerapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sufield/didchain/internal/logging"
)

type stoppingKey struct{}

// stopping returns a channel closed when the Server handling the request
// shuts down. It is nil outside a Server.
func stopping(ctx context.Context) <-chan struct{} {
	ch, _ := ctx.Value(stoppingKey{}).(<-chan struct{})
	return ch
}

// Server serves the ledger API over plain HTTP.
type Server struct {
	server *http.Server
	logger *slog.Logger
	addr   string
	errc   chan error
}

// ServerConfig tunes the HTTP server.
type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	Logger            *slog.Logger
}

// NewServer creates a server for handler. Call Start to listen.
func NewServer(handler http.Handler, cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		return nil, errors.New("address is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}

	// Shutdown does not track hijacked connections, so watch streams learn
	// about it through a channel carried by every request context.
	done := make(chan struct{})
	var once sync.Once
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithValue(context.Background(), stoppingKey{}, (<-chan struct{})(done))
		},
	}
	server.RegisterOnShutdown(func() { once.Do(func() { close(done) }) })

	return &Server{
		server: server,
		logger: logging.OrNop(cfg.Logger),
		addr:   cfg.Addr,
		errc:   make(chan error, 1),
	}, nil
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly; later serve errors are reported by Err.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ledger api server error", "error", err)
			s.errc <- err
		}
		close(s.errc)
	}()

	s.logger.Info("ledger api listening", "addr", s.addr)
	return nil
}

// Addr returns the bound address, useful with ":0".
func (s *Server) Addr() string {
	return s.addr
}

// Err is closed when the server stops, after delivering a serve error if
// there was one.
func (s *Server) Err() <-chan error {
	return s.errc
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
