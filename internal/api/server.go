package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/solarpower/internal/device"
	"github.com/nerrad567/solarpower/internal/infrastructure/config"
	"github.com/nerrad567/solarpower/internal/infrastructure/logging"
	"github.com/nerrad567/solarpower/internal/thing"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Recorder receives request and device-error counts. It is satisfied by
// the metrics package; nil disables recording.
type Recorder interface {
	ObserveRequest(method string, status int)
	DeviceError(property, op string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRequest(string, int) {}
func (noopRecorder) DeviceError(string, string) {}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Description string // served on "/"
	Logger      *logging.Logger
	Device      *device.Device
	Generator   *thing.Generator
	Assets      fs.FS // must contain assets.DescriptionName
	Recorder    Recorder
	Version     string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	description string
	logger      *logging.Logger
	device      *device.Device
	generator   *thing.Generator
	assets      fs.FS
	recorder    Recorder
	version     string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Device == nil {
		return nil, fmt.Errorf("device is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("thing description generator is required")
	}
	if deps.Assets == nil {
		return nil, fmt.Errorf("assets are required")
	}

	s := &Server{
		cfg:         deps.Config,
		description: deps.Description,
		logger:      deps.Logger,
		device:      deps.Device,
		generator:   deps.Generator,
		assets:      deps.Assets,
		recorder:    deps.Recorder,
		version:     deps.Version,
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	if s.cfg.MaxBodyBytes <= 0 {
		s.cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if s.cfg.ObserveTimeout <= 0 {
		s.cfg.ObserveTimeout = defaultObserveTimeoutSeconds
	}

	return s, nil
}

// Handler returns the fully wired router. Start serves the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
// Binding errors (port in use, etc.) are returned directly.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
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

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
