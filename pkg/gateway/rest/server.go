package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/snamp-platform/snamp-go/pkg/discovery"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
	"github.com/snamp-platform/snamp-go/pkg/version"
)

// Announcer publishes the gateway on the local network.
// *discovery.Advertiser implements it.
type Announcer interface {
	AdvertiseGateway(info *discovery.GatewayInfo) error
	UpdateGateway(info *discovery.GatewayInfo) error
	Stop(service, instance string) error
}

// Server is the REST and WebSocket gateway.
type Server struct {
	config      *Config
	registry    *registry.Registry
	dispatcher  *subscription.Dispatcher
	announcer   Announcer
	httpServer  *http.Server
	handler     http.Handler
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	mu    sync.RWMutex
	ready bool
	addr  net.Addr
}

// Option configures a Server.
type Option func(*Server)

// WithAnnouncer announces the gateway through a when it starts and keeps
// the announced resource list current.
func WithAnnouncer(a Announcer) Option {
	return func(s *Server) {
		s.announcer = a
	}
}

// New creates a gateway serving reg. Notifications are subscribed through d.
func New(config *Config, reg *registry.Registry, d *subscription.Dispatcher, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		config:      config,
		registry:    reg,
		dispatcher:  d,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Address, config.Port),
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetReady marks the server as ready to serve traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("starting REST gateway", "address", ln.Addr().String())
	s.announce(ln.Addr())

	s.mu.Lock()
	s.addr = ln.Addr()
	s.ready = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.SetReady(false)
		return err
	}
}

// Shutdown stops accepting requests and waits for active ones, bounded by
// the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)
	if s.announcer != nil {
		if err := s.announcer.Stop(discovery.ServiceTypeGateway, s.config.Name); err != nil {
			s.logger.Debug("gateway announcement stop", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down REST gateway")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) gatewayInfo(port int) *discovery.GatewayInfo {
	return &discovery.GatewayInfo{
		Name:      s.config.Name,
		Kind:      "http",
		Version:   version.Current,
		Path:      "/",
		Port:      uint16(port),
		Resources: s.registry.Namespaces(),
	}
}

// announce advertises the gateway and re-announces the resource list on
// every attach or detach.
func (s *Server) announce(addr net.Addr) {
	if s.announcer == nil {
		return
	}
	port := s.config.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	if err := s.announcer.AdvertiseGateway(s.gatewayInfo(port)); err != nil {
		s.logger.Warn("gateway announcement failed", "error", err)
		return
	}
	s.registry.OnChange(func(string, bool) {
		if err := s.announcer.UpdateGateway(s.gatewayInfo(port)); err != nil {
			s.logger.Warn("gateway announcement update failed", "error", err)
		}
	})
}

// accessTimeout returns the timeout of an attribute request.
func (s *Server) accessTimeout(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return s.config.AccessTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	return d, nil
}
