package subscription

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Subscription errors.
var (
	ErrClosed          = errors.New("dispatcher closed")
	ErrSessionClosed   = errors.New("session closed")
	ErrInvalidListener = errors.New("invalid listener")
	ErrInvalidResource = errors.New("invalid resource name")
)

// Mode selects how notifications reach a listener.
type Mode uint8

const (
	// DeliveryAsync queues notifications and invokes the listener on a
	// dedicated worker.
	DeliveryAsync Mode = iota

	// DeliverySync invokes the listener on the dispatching goroutine.
	DeliverySync
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case DeliveryAsync:
		return "ASYNC"
	case DeliverySync:
		return "SYNC"
	default:
		return "UNKNOWN"
	}
}

// State is the lifecycle state of a subscription.
type State uint8

const (
	// StateActive subscriptions receive notifications.
	StateActive State = iota

	// StateUnsubscribed is terminal.
	StateUnsubscribed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateUnsubscribed:
		return "unsubscribed"
	default:
		return "unknown"
	}
}

// Option configures a subscription.
type Option func(*options)

type options struct {
	mode      Mode
	queueSize int
	name      string
}

// WithMode selects the delivery mode.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithQueueSize bounds the async queue to n pending notifications. Once the
// bound is reached further notifications are dropped for this subscription.
// Zero or less keeps the queue unbounded.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithName sets the listener identity used in logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Subscription is one listener's interest in a resource's notifications.
type Subscription struct {
	id         string
	resource   string
	categories []string
	listener   Listener
	name       string
	mode       Mode

	d       *Dispatcher
	session *Session

	state atomic.Uint32

	// mu serializes listener invocations.
	mu sync.Mutex

	// qmu guards pending; wake signals the worker.
	qmu     sync.Mutex
	pending []model.Notification
	limit   int
	wake    chan struct{}

	stop       chan struct{}
	stopOnce   sync.Once
	workerDone chan struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
	failures  atomic.Uint64
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Resource returns the subscribed resource name.
func (s *Subscription) Resource() string { return s.resource }

// Categories returns the category filter. Empty means all categories.
func (s *Subscription) Categories() []string { return slices.Clone(s.categories) }

// Name returns the listener identity.
func (s *Subscription) Name() string { return s.name }

// Mode returns the delivery mode.
func (s *Subscription) Mode() Mode { return s.mode }

// State returns the current lifecycle state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// Active reports whether the subscription still receives notifications.
func (s *Subscription) Active() bool { return s.State() == StateActive }

// Delivered returns the number of notifications handed to the listener.
func (s *Subscription) Delivered() uint64 { return s.delivered.Load() }

// Dropped returns the number of notifications dropped because a bounded
// queue was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Failures returns the number of listener errors and panics.
func (s *Subscription) Failures() uint64 { return s.failures.Load() }

// Unsubscribe ends the subscription and waits for an in-flight delivery to
// finish. It is idempotent. Calling it from inside the subscription's own
// listener deadlocks; use Cancel there.
func (s *Subscription) Unsubscribe() {
	s.Cancel()
	if s.workerDone != nil {
		<-s.workerDone
	}
	// Any invocation that checked the state before Cancel holds mu.
	s.mu.Lock()
	s.mu.Unlock() //nolint:staticcheck // barrier for in-flight delivery
}

// Cancel ends the subscription without waiting for an in-flight delivery.
// It is idempotent and safe to call from the listener.
func (s *Subscription) Cancel() {
	if !s.state.CompareAndSwap(uint32(StateActive), uint32(StateUnsubscribed)) {
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
	s.d.remove(s)
	if s.session != nil {
		s.session.forget(s)
	}
	log.StateChange(s.d.trace, log.ComponentDispatcher, log.StateEntitySubscription,
		s.resource, s.name, StateActive.String(), StateUnsubscribed.String(), "")
}

// matches reports whether the subscription wants the category.
func (s *Subscription) matches(category string) bool {
	return len(s.categories) == 0 || slices.Contains(s.categories, category)
}

// offer hands n to the subscription according to its mode.
// Returns false if the notification was dropped.
func (s *Subscription) offer(ctx context.Context, n model.Notification) bool {
	if !s.Active() {
		return false
	}
	if s.mode == DeliverySync {
		s.deliver(ctx, n)
		return true
	}
	s.qmu.Lock()
	if s.limit > 0 && len(s.pending) >= s.limit {
		s.qmu.Unlock()
		s.dropped.Add(1)
		return false
	}
	s.pending = append(s.pending, n)
	s.qmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// next pops the oldest pending notification.
func (s *Subscription) next() (model.Notification, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.pending) == 0 {
		s.pending = nil
		return model.Notification{}, false
	}
	n := s.pending[0]
	s.pending[0] = model.Notification{}
	s.pending = s.pending[1:]
	return n, true
}

// run is the async worker loop. It drains the queue in FIFO order after
// every wake-up.
func (s *Subscription) run(ctx context.Context) {
	defer close(s.workerDone)
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}
		for {
			n, ok := s.next()
			if !ok {
				break
			}
			select {
			case <-s.stop:
				return
			default:
			}
			s.deliver(ctx, n)
		}
	}
}

// Pending returns the number of queued notifications not yet delivered.
func (s *Subscription) Pending() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return len(s.pending)
}

// deliver invokes the listener under the serialization lock.
func (s *Subscription) deliver(ctx context.Context, n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Active() {
		return
	}
	if err := s.invoke(ctx, n); err != nil {
		s.failures.Add(1)
		s.d.listenerFailed(s, n, err)
		return
	}
	s.delivered.Add(1)
	s.d.observer.NotificationDelivered(n.Resource, n.Category)
}

// invoke calls the listener, converting a panic into an error.
func (s *Subscription) invoke(ctx context.Context, n model.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", model.ErrListenerFailure, r)
		}
	}()
	if err := s.listener.HandleNotification(ctx, n); err != nil {
		return fmt.Errorf("%w: %w", model.ErrListenerFailure, err)
	}
	return nil
}
