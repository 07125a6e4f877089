// Package httpserver wires the faultline HTTP endpoints behind the request
// fault trap.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/faultline/internal/config"
	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/logfields"
	handlers "git.home.luguber.info/inful/faultline/internal/server/handlers"
	smw "git.home.luguber.info/inful/faultline/internal/server/middleware"
)

// Server manages the demo, health, journal and metrics endpoints.
type Server struct {
	srv          *http.Server
	ln           net.Listener
	cfg          *config.Config
	opts         Options
	errorAdapter *ferrors.HTTPErrorAdapter
	handler      http.Handler

	monitoringHandlers *handlers.MonitoringHandlers
	faultHandlers      *handlers.FaultHandlers
	demoHandlers       *handlers.DemoHandlers
}

// New constructs the server and its routes.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if opts.Shared == nil {
		return nil, ferrors.ConfigError("fault scope configuration required for HTTP server").Build()
	}
	s := &Server{
		cfg:                cfg,
		opts:               opts,
		errorAdapter:       ferrors.NewHTTPErrorAdapter(slog.Default()),
		monitoringHandlers: handlers.NewMonitoringHandlers(string(cfg.Render.Environment), opts.Store != nil),
		demoHandlers:       handlers.NewDemoHandlers(),
	}
	if opts.Store != nil {
		s.faultHandlers = handlers.NewFaultHandlers(opts.Store)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.monitoringHandlers.HandleHealthCheck)
	mux.HandleFunc("/demo", s.demoHandlers.HandleDemo)
	if s.faultHandlers != nil {
		mux.HandleFunc("/api/faults", s.faultHandlers.HandleList)
		mux.HandleFunc("/api/faults/prune", s.faultHandlers.HandlePrune)
	}
	if opts.Metrics != nil && cfg.Server.MetricsPath != "" {
		mux.Handle(cfg.Server.MetricsPath, opts.Metrics)
	}
	s.handler = smw.Chain(slog.Default(), opts.Shared, s.errorAdapter)(mux)
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the configured address and serves in the background. Binding
// happens before Start returns so address conflicts surface immediately.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", logfields.Error(err))
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}
