package accesstimer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Access timer errors.
var (
	ErrTimerNotFound     = errors.New("timer not found")
	ErrInvalidExpiration = errors.New("invalid expiration")
)

// base anchors all timers to the process monotonic clock.
var base = time.Now()

func now() int64 { return int64(time.Since(base)) }

// Timer is a monotonic last-access timestamp.
type Timer struct {
	last atomic.Int64
}

// New creates a timer stamped with the current time.
func New() *Timer {
	t := &Timer{}
	t.Reset()
	return t
}

// Reset stamps the timer with the current time.
func (t *Timer) Reset() {
	t.last.Store(now())
}

// LastAccess returns the time of the last Reset.
func (t *Timer) LastAccess() time.Time {
	return base.Add(time.Duration(t.last.Load()))
}

// Elapsed returns the time since the last Reset.
func (t *Timer) Elapsed() time.Duration {
	return time.Duration(now() - t.last.Load())
}

// Stale returns true if the timer was last reset at least expiration ago.
func (t *Timer) Stale(expiration time.Duration) bool {
	if expiration <= 0 {
		return false
	}
	return t.Elapsed() >= expiration
}

type entry struct {
	timer *Timer
	alarm *time.Timer
}

// Manager tracks last access per key.
type Manager struct {
	mu sync.RWMutex

	entries    map[string]*entry
	expiration time.Duration

	// Callback when a key expires
	onExpiry func(key string, lastAccess time.Time)
}

// NewManager creates a manager. A positive expiration arms an expiry alarm
// for every touched key.
func NewManager(expiration time.Duration) (*Manager, error) {
	if expiration < 0 {
		return nil, ErrInvalidExpiration
	}
	return &Manager{
		entries:    make(map[string]*entry),
		expiration: expiration,
	}, nil
}

// Expiration returns the configured expiration.
func (m *Manager) Expiration() time.Duration {
	return m.expiration
}

// Touch resets the timer for key, creating it if needed.
func (m *Manager) Touch(key string) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if exists {
		e.timer.Reset()
		if e.alarm != nil {
			e.alarm.Reset(m.expiration)
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, exists = m.entries[key]; exists {
		e.timer.Reset()
		if e.alarm != nil {
			e.alarm.Reset(m.expiration)
		}
		return
	}

	e = &entry{timer: New()}
	if m.expiration > 0 {
		e.alarm = time.AfterFunc(m.expiration, func() {
			m.expire(key, e)
		})
	}
	m.entries[key] = e
}

// Stale returns true if key was never touched or its timer is older than
// the manager's expiration.
func (m *Manager) Stale(key string) bool {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return true
	}
	return e.timer.Stale(m.expiration)
}

// LastAccess returns the last access time for key.
func (m *Manager) LastAccess(key string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.entries[key]
	if !exists {
		return time.Time{}, ErrTimerNotFound
	}
	return e.timer.LastAccess(), nil
}

// Remove stops tracking key without triggering the expiry callback.
func (m *Manager) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.entries[key]
	if !exists {
		return ErrTimerNotFound
	}
	if e.alarm != nil {
		e.alarm.Stop()
	}
	delete(m.entries, key)
	return nil
}

// Keys returns all tracked keys.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Count returns the number of tracked keys.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// OnExpiry sets the callback for key expiry.
func (m *Manager) OnExpiry(fn func(key string, lastAccess time.Time)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpiry = fn
}

// Stop disarms all alarms and forgets all keys.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if e.alarm != nil {
			e.alarm.Stop()
		}
		delete(m.entries, key)
	}
}

func (m *Manager) expire(key string, e *entry) {
	m.mu.RLock()
	current, exists := m.entries[key]
	callback := m.onExpiry
	m.mu.RUnlock()

	// A touch may have raced with the alarm.
	if !exists || current != e || !e.timer.Stale(m.expiration) {
		return
	}

	// Call callback outside lock
	if callback != nil {
		callback(key, e.timer.LastAccess())
	}
}
