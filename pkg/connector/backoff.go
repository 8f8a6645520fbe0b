package connector

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Reconnect backoff defaults.
const (
	// InitialBackoff is the delay after the first failed connection.
	InitialBackoff = 500 * time.Millisecond

	// MaxBackoff caps the reconnection delay.
	MaxBackoff = 30 * time.Second

	// BackoffMultiplier is the factor by which the delay grows.
	BackoffMultiplier = 2.0

	// JitterFactor is the maximum jitter as a fraction of the delay.
	JitterFactor = 0.25
)

// BackoffConfig customizes a Backoff. Zero fields take the defaults.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Backoff calculates exponential reconnection delays with jitter.
type Backoff struct {
	mu sync.Mutex

	current time.Duration
	cfg     BackoffConfig

	attempts int
}

// NewBackoff creates a backoff calculator.
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &Backoff{current: cfg.Initial, cfg: cfg}
}

// Next returns the next delay (with jitter) and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current
	if b.cfg.Jitter > 0 {
		delay += time.Duration(float64(delay) * b.cfg.Jitter * rand.Float64())
	}

	b.attempts++
	b.current = min(time.Duration(float64(b.current)*b.cfg.Multiplier), b.cfg.Max)
	return delay
}

// Reset returns to the initial delay. Call after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.cfg.Initial
	b.attempts = 0
}

// Attempts returns the number of failures since the last Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Gate admits reconnection attempts no sooner than a Backoff allows, so a
// dead resource fails fast instead of being redialed on every read.
type Gate struct {
	mu      sync.Mutex
	backoff *Backoff
	retryAt time.Time
	now     func() time.Time
}

// NewGate creates a gate with the given backoff settings.
func NewGate(cfg BackoffConfig) *Gate {
	return &Gate{backoff: NewBackoff(cfg), now: time.Now}
}

// Allow reports whether an attempt may proceed now. When it may not, the
// remaining wait is returned.
func (g *Gate) Allow() (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wait := g.retryAt.Sub(g.now())
	if wait > 0 {
		return false, wait
	}
	return true, 0
}

// Failure records a failed attempt and schedules the next allowed one.
func (g *Gate) Failure() time.Duration {
	delay := g.backoff.Next()

	g.mu.Lock()
	g.retryAt = g.now().Add(delay)
	g.mu.Unlock()
	return delay
}

// Success clears the backoff.
func (g *Gate) Success() {
	g.backoff.Reset()

	g.mu.Lock()
	g.retryAt = time.Time{}
	g.mu.Unlock()
}
