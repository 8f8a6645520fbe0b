package subscription

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// recorder collects delivered sequence numbers.
type recorder struct {
	mu    sync.Mutex
	seqs  []uint64
	delay time.Duration
	fail  func(n model.Notification) error
}

func (r *recorder) HandleNotification(_ context.Context, n model.Notification) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.seqs = append(r.seqs, n.Sequence)
	r.mu.Unlock()
	if r.fail != nil {
		return r.fail(n)
	}
	return nil
}

func (r *recorder) got() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seqs...)
}

func (r *recorder) waitFor(t *testing.T, n int) []uint64 {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.got()) >= n }, 5*time.Second, 5*time.Millisecond)
	return r.got()
}

func seqRange(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i + 1)
	}
	return out
}

func fire(d *Dispatcher, resource, category string, n int) {
	for i := 1; i <= n; i++ {
		d.Dispatch(model.Notification{Resource: resource, Category: category, Sequence: uint64(i)})
	}
}

func TestDispatchOrderWithSlowListener(t *testing.T) {
	d := NewDispatcher(Config{})
	defer d.Close()

	slow := &recorder{delay: time.Millisecond}
	fast := &recorder{}
	slowSub, err := d.Subscribe("db", []string{"alarms"}, slow)
	require.NoError(t, err)
	fastSub, err := d.Subscribe("db", []string{"alarms"}, fast)
	require.NoError(t, err)

	// A burst far larger than any listener keeps up with.
	const n = 1000
	fire(d, "db", "alarms", n)

	assert.Equal(t, seqRange(n), fast.waitFor(t, n))
	assert.Equal(t, seqRange(n), slow.waitFor(t, n))
	assert.Zero(t, slowSub.Dropped())
	assert.Zero(t, fastSub.Dropped())
	assert.Zero(t, slowSub.Pending())
}

func TestDispatcherQueueBoundFromConfig(t *testing.T) {
	d := NewDispatcher(Config{QueueSize: 2})
	defer d.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	sub, err := d.Subscribe("db", nil, ListenerFunc(func(context.Context, model.Notification) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}))
	require.NoError(t, err)

	d.Dispatch(model.Notification{Resource: "db", Category: "c", Sequence: 1})
	<-started
	fire(d, "db", "c", 5)

	assert.Equal(t, 2, sub.Pending())
	assert.Equal(t, uint64(3), sub.Dropped())
	close(release)
}

func TestDispatchSyncOrder(t *testing.T) {
	d := NewDispatcher(Config{Mode: DeliverySync})
	defer d.Close()

	a, b := &recorder{}, &recorder{}
	_, err := d.Subscribe("db", nil, a)
	require.NoError(t, err)
	_, err = d.Subscribe("db", nil, b, WithMode(DeliverySync))
	require.NoError(t, err)

	fire(d, "db", "alarms", 10)

	// Sync delivery completes before Dispatch returns.
	assert.Equal(t, seqRange(10), a.got())
	assert.Equal(t, seqRange(10), b.got())
}

func TestListenerFailureIsolation(t *testing.T) {
	for _, mode := range []Mode{DeliverySync, DeliveryAsync} {
		t.Run(mode.String(), func(t *testing.T) {
			d := NewDispatcher(Config{Mode: mode})
			defer d.Close()

			failing := &recorder{fail: func(n model.Notification) error {
				if n.Sequence == 3 {
					return errors.New("boom")
				}
				return nil
			}}
			panicking := ListenerFunc(func(_ context.Context, n model.Notification) error {
				if n.Sequence == 3 {
					panic("listener bug")
				}
				return nil
			})
			healthy := &recorder{}

			subFailing, err := d.Subscribe("db", nil, failing)
			require.NoError(t, err)
			subPanicking, err := d.Subscribe("db", nil, panicking, WithName("panicker"))
			require.NoError(t, err)
			_, err = d.Subscribe("db", nil, healthy)
			require.NoError(t, err)

			fire(d, "db", "alarms", 5)

			assert.Equal(t, seqRange(5), healthy.waitFor(t, 5))
			assert.Equal(t, seqRange(5), failing.waitFor(t, 5))
			require.Eventually(t, func() bool {
				return subPanicking.Failures() == 1 && subPanicking.Delivered() == 4
			}, 5*time.Second, 5*time.Millisecond)
			assert.Equal(t, uint64(1), subFailing.Failures())
			assert.Equal(t, "panicker", subPanicking.Name())
		})
	}
}

func TestInvokeWrapsListenerFailure(t *testing.T) {
	d := NewDispatcher(Config{})
	defer d.Close()

	sub := &Subscription{d: d, listener: ListenerFunc(func(context.Context, model.Notification) error {
		panic("x")
	})}
	err := sub.invoke(context.Background(), model.Notification{})
	if !errors.Is(err, model.ErrListenerFailure) {
		t.Errorf("invoke() error = %v, want ErrListenerFailure", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	d := NewDispatcher(Config{Mode: DeliverySync})
	defer d.Close()

	alarms := &recorder{}
	all := &recorder{}
	_, err := d.Subscribe("db", []string{"alarms", "alarms"}, alarms)
	require.NoError(t, err)
	_, err = d.Subscribe("db", nil, all)
	require.NoError(t, err)
	other := &recorder{}
	_, err = d.Subscribe("web", nil, other)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Dispatch(model.Notification{Resource: "db", Category: "alarms", Sequence: 1}))
	assert.Equal(t, 1, d.Dispatch(model.Notification{Resource: "db", Category: "heartbeat", Sequence: 2}))

	assert.Equal(t, []uint64{1}, alarms.got())
	assert.Equal(t, []uint64{1, 2}, all.got())
	assert.Empty(t, other.got())
}

func TestUnsubscribeIdempotent(t *testing.T) {
	d := NewDispatcher(Config{})
	defer d.Close()

	r := &recorder{}
	sub, err := d.Subscribe("db", nil, r)
	require.NoError(t, err)
	other, err := d.Subscribe("db", nil, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Count())

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, StateUnsubscribed, sub.State())
	assert.True(t, other.Active())
	assert.Equal(t, 1, d.Count())

	fire(d, "db", "alarms", 3)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.got())
}

func TestUnsubscribeWaitsForInFlight(t *testing.T) {
	d := NewDispatcher(Config{})
	defer d.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var calls atomic.Int32
	sub, err := d.Subscribe("db", nil, ListenerFunc(func(context.Context, model.Notification) error {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			finished.Store(true)
		}
		return nil
	}))
	require.NoError(t, err)

	fire(d, "db", "alarms", 3)
	<-started

	done := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Unsubscribe returned while delivery was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-done
	assert.True(t, finished.Load())

	after := calls.Load()
	fire(d, "db", "alarms", 3)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no delivery may start after Unsubscribe returns")
	assert.Equal(t, int32(1), after)
}

func TestCancelFromListener(t *testing.T) {
	for _, mode := range []Mode{DeliverySync, DeliveryAsync} {
		t.Run(mode.String(), func(t *testing.T) {
			d := NewDispatcher(Config{Mode: mode})
			defer d.Close()

			var sub *Subscription
			var calls atomic.Int32
			var ready sync.WaitGroup
			ready.Add(1)
			l := ListenerFunc(func(context.Context, model.Notification) error {
				ready.Wait()
				calls.Add(1)
				sub.Cancel()
				return nil
			})
			var err error
			sub, err = d.Subscribe("db", nil, l)
			require.NoError(t, err)
			ready.Done()

			fire(d, "db", "alarms", 1)
			require.Eventually(t, func() bool { return !sub.Active() }, 5*time.Second, 5*time.Millisecond)

			fire(d, "db", "alarms", 3)
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, 0, d.Count())
		})
	}
}

func TestQueueOverflowDropsForOneListener(t *testing.T) {
	obs := &countingObserver{}
	d := NewDispatcher(Config{Observer: obs})
	defer d.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	blocked, err := d.Subscribe("db", nil, ListenerFunc(func(context.Context, model.Notification) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}), WithQueueSize(1))
	require.NoError(t, err)

	healthy := &recorder{}
	_, err = d.Subscribe("db", nil, healthy)
	require.NoError(t, err)

	d.Dispatch(model.Notification{Resource: "db", Category: "c", Sequence: 1})
	<-started
	// Seq 2 fills the queue of the blocked listener, seq 3 overflows it.
	assert.Equal(t, 2, d.Dispatch(model.Notification{Resource: "db", Category: "c", Sequence: 2}))
	assert.Equal(t, 1, d.Dispatch(model.Notification{Resource: "db", Category: "c", Sequence: 3}))

	assert.Equal(t, uint64(1), blocked.Dropped())
	assert.Equal(t, int64(1), obs.dropped.Load())
	assert.Equal(t, seqRange(3), healthy.waitFor(t, 3))

	close(release)
	require.Eventually(t, func() bool { return blocked.Delivered() == 2 }, 5*time.Second, 5*time.Millisecond)
}

func TestInvokerStampsResourceAndCategory(t *testing.T) {
	d := NewDispatcher(Config{Mode: DeliverySync})
	defer d.Close()

	var got model.Notification
	_, err := d.Subscribe("db", []string{"alarms"}, ListenerFunc(func(_ context.Context, n model.Notification) error {
		got = n
		return nil
	}))
	require.NoError(t, err)

	inv := d.Invoker("db", "alarms")
	assert.Equal(t, 1, inv.Invoke(model.Notification{Message: "disk full", Sequence: 9}))
	assert.Equal(t, "db", got.Resource)
	assert.Equal(t, "alarms", got.Category)
	assert.Equal(t, "disk full", got.Message)
}

func TestSessionClose(t *testing.T) {
	d := NewDispatcher(Config{})
	defer d.Close()

	s, err := d.OpenSession("ws-client")
	require.NoError(t, err)
	assert.Equal(t, "ws-client", s.Owner())
	assert.Equal(t, 1, d.Sessions())

	a, err := s.Subscribe("db", nil, &recorder{})
	require.NoError(t, err)
	b, err := s.Subscribe("web", nil, &recorder{})
	require.NoError(t, err)
	outside, err := d.Subscribe("db", nil, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	// Unsubscribing first must not confuse session close.
	a.Unsubscribe()
	assert.Equal(t, 1, s.Len())

	s.Close()
	s.Close()

	assert.False(t, b.Active())
	assert.True(t, outside.Active())
	assert.Equal(t, 1, d.Count())
	assert.Equal(t, 0, d.Sessions())

	_, err = s.Subscribe("db", nil, &recorder{})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestDispatcherClose(t *testing.T) {
	d := NewDispatcher(Config{})

	sub, err := d.Subscribe("db", nil, &recorder{})
	require.NoError(t, err)
	_, err = d.OpenSession("x")
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	assert.False(t, sub.Active())
	assert.Equal(t, 0, d.Count())
	assert.Equal(t, 0, d.Dispatch(model.Notification{Resource: "db"}))

	_, err = d.Subscribe("db", nil, &recorder{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.OpenSession("y")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscribeValidation(t *testing.T) {
	d := NewDispatcher(Config{})
	defer d.Close()

	_, err := d.Subscribe("", nil, &recorder{})
	assert.ErrorIs(t, err, ErrInvalidResource)
	_, err = d.Subscribe("db", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidListener)
}

func TestModeAndStateStrings(t *testing.T) {
	if DeliveryAsync.String() != "ASYNC" || DeliverySync.String() != "SYNC" || Mode(9).String() != "UNKNOWN" {
		t.Error("Mode.String mismatch")
	}
	if StateActive.String() != "active" || StateUnsubscribed.String() != "unsubscribed" {
		t.Error("State.String mismatch")
	}
}

type countingObserver struct {
	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
	active    atomic.Int64
}

func (o *countingObserver) NotificationDelivered(string, string) { o.delivered.Add(1) }
func (o *countingObserver) NotificationDropped(string, string)   { o.dropped.Add(1) }
func (o *countingObserver) ListenerFailed(string, string)        { o.failed.Add(1) }
func (o *countingObserver) SubscriptionsActive(n int)            { o.active.Store(int64(n)) }

func TestObserverCounts(t *testing.T) {
	obs := &countingObserver{}
	d := NewDispatcher(Config{Mode: DeliverySync, Observer: obs})
	defer d.Close()

	_, err := d.Subscribe("db", nil, &recorder{fail: func(n model.Notification) error {
		if n.Sequence == 2 {
			return errors.New("x")
		}
		return nil
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), obs.active.Load())

	fire(d, "db", "c", 3)
	assert.Equal(t, int64(2), obs.delivered.Load())
	assert.Equal(t, int64(1), obs.failed.Load())
}
