package accesstimer

import (
	"sync"
	"testing"
	"time"
)

func TestTimerBasic(t *testing.T) {
	timer := New()

	if timer.Stale(time.Minute) {
		t.Error("Timer should not be stale immediately")
	}

	if timer.Stale(0) {
		t.Error("Zero expiration should never be stale")
	}

	if elapsed := timer.Elapsed(); elapsed < 0 || elapsed > time.Second {
		t.Errorf("Elapsed() = %v, expected ~0", elapsed)
	}

	if d := time.Since(timer.LastAccess()); d < 0 || d > time.Second {
		t.Errorf("LastAccess() is %v ago, expected ~0", d)
	}
}

func TestTimerStaleAndReset(t *testing.T) {
	timer := New()
	time.Sleep(20 * time.Millisecond)

	if !timer.Stale(10 * time.Millisecond) {
		t.Error("Timer should be stale after expiration")
	}

	timer.Reset()
	if timer.Stale(10 * time.Millisecond) {
		t.Error("Timer should not be stale after Reset")
	}
}

func TestManagerTouchAndStale(t *testing.T) {
	m, err := NewManager(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Stop()

	if !m.Stale("temp") {
		t.Error("Untouched key should be stale")
	}

	m.Touch("temp")
	if m.Stale("temp") {
		t.Error("Touched key should not be stale")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	if _, err := m.LastAccess("temp"); err != nil {
		t.Errorf("LastAccess() error = %v", err)
	}
	if _, err := m.LastAccess("missing"); err != ErrTimerNotFound {
		t.Errorf("LastAccess(missing) error = %v, want ErrTimerNotFound", err)
	}
}

func TestManagerInvalidExpiration(t *testing.T) {
	if _, err := NewManager(-time.Second); err != ErrInvalidExpiration {
		t.Errorf("NewManager(-1s) error = %v, want ErrInvalidExpiration", err)
	}
}

func TestManagerExpiryCallback(t *testing.T) {
	m, _ := NewManager(20 * time.Millisecond)
	defer m.Stop()

	expired := make(chan string, 1)
	m.OnExpiry(func(key string, _ time.Time) {
		expired <- key
	})

	m.Touch("pressure")

	select {
	case key := <-expired:
		if key != "pressure" {
			t.Errorf("expired key = %q, want pressure", key)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for expiry callback")
	}

	if !m.Stale("pressure") {
		t.Error("Expired key should be stale")
	}
}

func TestManagerTouchRearms(t *testing.T) {
	m, _ := NewManager(200 * time.Millisecond)
	defer m.Stop()

	var mu sync.Mutex
	var calls int
	m.OnExpiry(func(string, time.Time) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	m.Touch("k")
	for range 4 {
		time.Sleep(20 * time.Millisecond)
		m.Touch("k")
	}

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 0 {
		t.Errorf("expiry fired %d times while key was being touched", got)
	}
}

func TestManagerRemove(t *testing.T) {
	m, _ := NewManager(10 * time.Millisecond)

	called := make(chan struct{}, 1)
	m.OnExpiry(func(string, time.Time) { called <- struct{}{} })

	m.Touch("a")
	if err := m.Remove("a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := m.Remove("a"); err != ErrTimerNotFound {
		t.Errorf("second Remove() error = %v, want ErrTimerNotFound", err)
	}

	select {
	case <-called:
		t.Error("removed key should not expire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManagerConcurrentTouch(t *testing.T) {
	m, _ := NewManager(0)
	defer m.Stop()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for range 100 {
				m.Touch(string(rune('a' + id)))
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != 8 {
		t.Errorf("Count() = %d, want 8", m.Count())
	}
	if len(m.Keys()) != 8 {
		t.Errorf("len(Keys()) = %d, want 8", len(m.Keys()))
	}
}
