// Package server exposes the dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sweetpotato0/kjm-gateway/config"
	"github.com/sweetpotato0/kjm-gateway/dispatcher"
	"github.com/sweetpotato0/kjm-gateway/middleware"
	"github.com/sweetpotato0/kjm-gateway/middleware/enricher"
	"github.com/sweetpotato0/kjm-gateway/middleware/errorhandler"
	"github.com/sweetpotato0/kjm-gateway/middleware/instrument"
	"github.com/sweetpotato0/kjm-gateway/middleware/logger"
	"github.com/sweetpotato0/kjm-gateway/middleware/validator"
	"github.com/sweetpotato0/kjm-gateway/pkg/logging"
	"github.com/sweetpotato0/kjm-gateway/pkg/metrics"
)

// Server is the gateway HTTP API
type Server struct {
	dispatcher *dispatcher.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	policy     string

	handler http.Handler
	server  *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the server from the server section of the configuration.
func New(cfg config.ServerConfig, d *dispatcher.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		logger:     logging.WithComponent("server"),
		policy:     cfg.StatusPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}

	chain := middleware.NewChain(
		enricher.NewRequestID(),
		logger.NewRequestLogger(s.logger),
		instrument.NewInstrumenter(s.metrics),
		errorhandler.NewErrorHandler(s.recovered, s.logger),
		validator.NewBodyLimiter(validator.DefaultMaxBodyBytes),
	)
	s.handler = chain.Then(s.routes())

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("gateway listening", "addr", ln.Addr().String(), "status_policy", s.policy)
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	start := time.Now()
	err := s.server.Shutdown(ctx)
	s.logger.Info("gateway stopped", "elapsed", time.Since(start), "error", err)
	return err
}
