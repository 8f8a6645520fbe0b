// Package sequence generates notification sequence numbers.
//
// A Counter hands out numbers per key (typically "resource/category").
// Local keeps them in process memory; NATSCounter and RedisCounter share
// them across platform instances. Resilient wraps any Counter and keeps the
// numbers it returns strictly increasing per key even when the backend
// fails or is reset.
package sequence

import (
	"context"
	"sync"
	"sync/atomic"
)

// Counter generates sequence numbers.
type Counter interface {
	// Next returns the next number for key. Numbers start at 1.
	Next(ctx context.Context, key string) (uint64, error)
}

// Key builds the counter key for a notification category.
func Key(resource, category string) string {
	return resource + "/" + category
}

// Local is a process-local Counter.
type Local struct {
	counters sync.Map // string -> *atomic.Uint64
}

// NewLocal creates a process-local counter.
func NewLocal() *Local {
	return &Local{}
}

// Next returns the next number for key. It never fails.
func (l *Local) Next(_ context.Context, key string) (uint64, error) {
	return l.counter(key).Add(1), nil
}

// Current returns the last number handed out for key.
func (l *Local) Current(key string) uint64 {
	return l.counter(key).Load()
}

func (l *Local) counter(key string) *atomic.Uint64 {
	if c, ok := l.counters.Load(key); ok {
		return c.(*atomic.Uint64)
	}
	c, _ := l.counters.LoadOrStore(key, new(atomic.Uint64))
	return c.(*atomic.Uint64)
}
