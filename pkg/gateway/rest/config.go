package rest

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/snamp-platform/snamp-go/pkg/metrics"
)

// Config holds gateway configuration.
type Config struct {
	// Server configuration
	Address string
	Port    int

	// Name is the instance name used for mDNS announcement.
	Name string

	// Rate limiting configuration
	RateLimit      rate.Limit // requests per second
	RateLimitBurst int        // burst size

	// JWTSecret enables HS256 bearer authentication on the API routes.
	JWTSecret []byte
	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer string

	// AccessTimeout bounds attribute reads and writes unless the request
	// carries a timeout parameter. Negative uses the descriptor's timeout.
	AccessTimeout time.Duration

	// MaxBodyBytes limits PUT bodies.
	MaxBodyBytes int64

	// WebSocket configuration
	WriteWait    time.Duration
	PingInterval time.Duration

	// QueueSize bounds the notifications queued per WebSocket stream.
	// Zero keeps the queue unbounded.
	QueueSize int

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Logger receives operational logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// Metrics records request counts and exposes /metrics. Optional.
	Metrics *metrics.Metrics
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         "",
		Port:            8080,
		Name:            "snamp-http",
		RateLimit:       100, // 100 req/s
		RateLimitBurst:  200, // burst of 200
		AccessTimeout:   5 * time.Second,
		MaxBodyBytes:    1 << 20,
		WriteWait:       10 * time.Second,
		PingInterval:    30 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
