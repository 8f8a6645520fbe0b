package connector

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Circuit breaker defaults for connectors that talk to remote resources.
const (
	// BreakerFailures is the number of consecutive failures that opens the
	// breaker.
	BreakerFailures = 5

	// BreakerOpenTimeout is how long the breaker stays open before a probe.
	BreakerOpenTimeout = 10 * time.Second
)

// BreakerConfig customizes NewBreaker. Zero fields take the defaults.
type BreakerConfig struct {
	Name        string
	Failures    uint32
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// NewBreaker creates a circuit breaker that opens after cfg.Failures
// consecutive failures. State changes are logged.
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.Failures == 0 {
		cfg.Failures = BreakerFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = BreakerOpenTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	failures := cfg.Failures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Guard runs fn through cb. A rejected call fails with model.ErrConnection.
func Guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s: %w", model.ErrConnection, cb.Name(), err)
		}
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}
