package sequence

import (
	"context"
	"log/slog"
	"sync"
)

// Resilient wraps a Counter so that Next never fails and never goes
// backwards for a key. When the backend errors or returns a number not above
// the last one handed out, the next local number is used instead.
type Resilient struct {
	backend Counter
	logger  *slog.Logger

	mu   sync.Mutex
	high map[string]uint64

	// onFallback is called when a number did not come from the backend.
	onFallback func(key string, err error)
}

// NewResilient wraps backend. A nil logger discards log output.
func NewResilient(backend Counter, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resilient{
		backend: backend,
		logger:  logger,
		high:    make(map[string]uint64),
	}
}

// OnFallback sets a callback invoked whenever a local number is used.
func (r *Resilient) OnFallback(fn func(key string, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFallback = fn
}

// Next returns the backend's number, or the next local one if the backend
// failed or went backwards.
func (r *Resilient) Next(ctx context.Context, key string) (uint64, error) {
	n, err := r.backend.Next(ctx, key)

	r.mu.Lock()
	last := r.high[key]
	fallback := err != nil || n <= last
	if fallback {
		n = last + 1
	}
	r.high[key] = n
	callback := r.onFallback
	r.mu.Unlock()

	if fallback {
		r.logger.Warn("sequence backend failed or went backwards, using local number",
			"key", key, "sequence", n, "error", err)
		if callback != nil {
			callback(key, err)
		}
	}
	return n, nil
}
