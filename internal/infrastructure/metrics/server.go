package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/solarpower/internal/infrastructure/config"
	"github.com/nerrad567/solarpower/internal/infrastructure/logging"
)

// healthCheckTimeout bounds one /healthz evaluation.
const healthCheckTimeout = 5 * time.Second

// HealthChecker is implemented by every component with a HealthCheck method.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server serves /metrics and /healthz.
type Server struct {
	cfg     config.MetricsConfig
	metrics *Metrics
	logger  *logging.Logger

	checksMu sync.RWMutex
	checks   map[string]HealthChecker

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates the metrics listener. It is not started until Start.
func NewServer(cfg config.MetricsConfig, m *Metrics, logger *logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		checks:  make(map[string]HealthChecker),
	}
}

// AddCheck includes c in /healthz under name.
func (s *Server) AddCheck(name string, c HealthChecker) {
	s.checksMu.Lock()
	s.checks[name] = c
	s.checksMu.Unlock()
}

// Handler returns the router served by Start.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/healthz", s.handleHealth)
	return r
}

type healthReport struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	s.checksMu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	s.checksMu.RUnlock()
	sort.Strings(names)

	report := healthReport{Status: "ok", Components: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		s.checksMu.RLock()
		c := s.checks[name]
		s.checksMu.RUnlock()

		if err := c.HealthCheck(ctx); err != nil {
			report.Components[name] = err.Error()
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		report.Components[name] = "ok"
	}

	writeJSON(w, status, report)
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("metrics server listening", "address", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}
	return nil
}
