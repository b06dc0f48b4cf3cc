// Package httpapi implements the peripheral HTTP surface: REST endpoints
// over the Run Manager, an SSE stream and a WebSocket stream over the
// Event Bus, and the Prometheus metrics endpoint. None of it is
// load-bearing for the orchestration core (spec.md §6, "the core has no
// required external surface"); it exists so a caller can drive and
// observe runs over the network instead of embedding the packages
// directly.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coderun-dev/fleet/internal/config"
	"github.com/coderun-dev/fleet/internal/eventbus"
	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/metrics"
	"github.com/coderun-dev/fleet/internal/runmgr"
)

// Server is an HTTP server exposing the Run Manager over REST plus
// SSE/WebSocket event streams.
type Server struct {
	cfg     *config.Config
	mgr     *runmgr.Manager
	bus     *eventbus.Bus
	metrics *metrics.Metrics

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// New creates a Server. It does not start listening until Start is
// called. Each Server gets its own Prometheus registry so multiple
// servers (as in tests) never collide over the process-global default.
func New(cfg *config.Config, mgr *runmgr.Manager, bus *eventbus.Bus) *Server {
	return &Server{
		cfg:     cfg,
		mgr:     mgr,
		bus:     bus,
		metrics: metrics.NewWithRegisterer(mgr, prometheus.NewRegistry()),
	}
}

// Start begins listening on cfg.Server.Port and blocks until ctx is
// canceled, mirroring the graceful-shutdown pattern of the teacher's own
// SSE server.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("httpapi: server already running")
	}
	s.running = true
	s.mu.Unlock()

	addr := fmt.Sprintf("0.0.0.0:%d", s.cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("httpapi: failed to listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	mux := http.NewServeMux()
	log := logger.GetLogger()
	mw := logger.HTTPMiddleware(log)

	mux.Handle("/health", mw(http.HandlerFunc(s.healthHandler)))
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/runs", mw(http.HandlerFunc(s.runsHandler)))
	mux.Handle("/runs/{id}", mw(http.HandlerFunc(s.runDetailHandler)))
	mux.Handle("/runs/{id}/start", mw(http.HandlerFunc(s.runStartHandler)))
	mux.Handle("/runs/{id}/pause", mw(http.HandlerFunc(s.runPauseHandler)))
	mux.Handle("/runs/{id}/resume", mw(http.HandlerFunc(s.runResumeHandler)))
	mux.Handle("/runs/{id}/stop", mw(http.HandlerFunc(s.runStopHandler)))
	mux.Handle("/events", logger.SSEMiddleware(log)(http.HandlerFunc(s.sseHandler)))
	mux.Handle("/events/ws", http.HandlerFunc(s.wsHandler))

	s.mu.Lock()
	s.httpServer = &http.Server{Handler: mux}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithField("error", err.Error()).Error("httpapi shutdown error")
		}
	}()

	log.WithField("address", listener.Addr().String()).Info("httpapi listening")
	err = s.httpServer.Serve(listener)

	s.mu.Lock()
	s.running = false
	s.listener = nil
	s.mu.Unlock()

	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Address returns the server's actual listening address, or "" if not
// running.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
