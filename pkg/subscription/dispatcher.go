package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Config configures a Dispatcher.
type Config struct {
	// Logger receives operational logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// Trace receives delivery events. Optional.
	Trace log.Logger

	// Observer receives delivery statistics. Optional.
	Observer Observer

	// Mode is the default delivery mode for new subscriptions.
	Mode Mode

	// QueueSize bounds the async queue of new subscriptions. Zero keeps
	// queues unbounded so no notification is dropped.
	QueueSize int
}

// Dispatcher fans notifications out to subscriptions.
type Dispatcher struct {
	mu sync.RWMutex

	// Active subscriptions indexed by resource, then ID.
	byResource map[string]map[string]*Subscription

	sessions map[string]*Session
	closed   bool
	count    atomic.Int64

	mode      Mode
	queueSize int

	ctx    context.Context
	cancel context.CancelFunc

	logger   *slog.Logger
	trace    log.Logger
	observer Observer
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		byResource: make(map[string]map[string]*Subscription),
		sessions:   make(map[string]*Session),
		mode:       cfg.Mode,
		queueSize:  cfg.QueueSize,
		ctx:        ctx,
		cancel:     cancel,
		logger:     cfg.Logger,
		trace:      cfg.Trace,
		observer:   cfg.Observer,
	}
}

// Subscribe registers listener for notifications of resource. An empty
// categories list subscribes to all categories of the resource.
func (d *Dispatcher) Subscribe(resource string, categories []string, listener Listener, opts ...Option) (*Subscription, error) {
	return d.subscribe(nil, resource, categories, listener, opts)
}

func (d *Dispatcher) subscribe(session *Session, resource string, categories []string, listener Listener, opts []Option) (*Subscription, error) {
	if resource == "" {
		return nil, ErrInvalidResource
	}
	if listener == nil {
		return nil, ErrInvalidListener
	}

	o := options{mode: d.mode, queueSize: d.queueSize}
	for _, opt := range opts {
		opt(&o)
	}

	sub := &Subscription{
		id:         uuid.NewString(),
		resource:   resource,
		categories: dedupe(categories),
		listener:   listener,
		name:       o.name,
		mode:       o.mode,
		d:          d,
		session:    session,
		stop:       make(chan struct{}),
	}
	if sub.name == "" {
		sub.name = fmt.Sprintf("%T", listener)
	}
	if sub.mode == DeliveryAsync {
		sub.limit = max(o.queueSize, 0)
		sub.wake = make(chan struct{}, 1)
		sub.workerDone = make(chan struct{})
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	if session != nil && !session.track(sub) {
		d.mu.Unlock()
		return nil, ErrSessionClosed
	}
	subs := d.byResource[resource]
	if subs == nil {
		subs = make(map[string]*Subscription)
		d.byResource[resource] = subs
	}
	subs[sub.id] = sub
	n := d.count.Add(1)
	d.mu.Unlock()

	if sub.mode == DeliveryAsync {
		go sub.run(d.ctx)
	}

	d.observer.SubscriptionsActive(int(n))
	d.logger.Debug("subscription created",
		"subscription", sub.id,
		"listener", sub.name,
		"resource", resource,
		"categories", sub.categories,
		"mode", sub.mode.String())
	log.Record(d.trace, log.Event{
		Category:       log.CategoryState,
		Component:      log.ComponentDispatcher,
		Resource:       resource,
		Feature:        sub.name,
		SubscriptionID: sub.id,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			NewState: StateActive.String(),
		},
	})
	return sub, nil
}

// remove drops sub from the index.
func (d *Dispatcher) remove(sub *Subscription) {
	d.mu.Lock()
	subs := d.byResource[sub.resource]
	if _, ok := subs[sub.id]; !ok {
		d.mu.Unlock()
		return
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(d.byResource, sub.resource)
	}
	n := d.count.Add(-1)
	d.mu.Unlock()

	d.observer.SubscriptionsActive(int(n))
	d.logger.Debug("subscription removed", "subscription", sub.id, "resource", sub.resource)
}

// Invoker returns a ListenerInvoker for one (resource, category) pair.
func (d *Dispatcher) Invoker(resource, category string) ListenerInvoker {
	return &categoryInvoker{d: d, resource: resource, category: category}
}

// Dispatch hands n to every active subscription for n.Resource whose filter
// matches n.Category. It returns the number of subscriptions that accepted
// the notification.
func (d *Dispatcher) Dispatch(n model.Notification) int {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return 0
	}
	var targets []*Subscription
	for _, sub := range d.byResource[n.Resource] {
		if sub.matches(n.Category) {
			targets = append(targets, sub)
		}
	}
	d.mu.RUnlock()

	accepted := 0
	for _, sub := range targets {
		if sub.offer(d.ctx, n) {
			accepted++
			continue
		}
		if sub.Active() {
			d.dropped(sub, n)
		}
	}

	log.Record(d.trace, log.Event{
		Category:  log.CategoryNotification,
		Component: log.ComponentDispatcher,
		Resource:  n.Resource,
		Feature:   n.Category,
		Notification: &log.NotificationEvent{
			Sequence:  n.Sequence,
			Message:   n.Message,
			Listeners: accepted,
		},
	})
	return accepted
}

func (d *Dispatcher) dropped(sub *Subscription, n model.Notification) {
	d.observer.NotificationDropped(n.Resource, n.Category)
	d.logger.Warn("notification queue full, dropping",
		"subscription", sub.id,
		"listener", sub.name,
		"resource", n.Resource,
		"category", n.Category,
		"seq", n.Sequence)
	log.Record(d.trace, log.Event{
		Category:       log.CategoryNotification,
		Component:      log.ComponentDispatcher,
		Resource:       n.Resource,
		Feature:        n.Category,
		SubscriptionID: sub.id,
		Notification: &log.NotificationEvent{
			Sequence: n.Sequence,
			Message:  n.Message,
			Dropped:  true,
		},
	})
}

func (d *Dispatcher) listenerFailed(sub *Subscription, n model.Notification, err error) {
	d.observer.ListenerFailed(n.Resource, n.Category)
	d.logger.Warn("listener failed",
		"subscription", sub.id,
		"listener", sub.name,
		"resource", n.Resource,
		"category", n.Category,
		"seq", n.Sequence,
		"error", err)
	log.Failure(d.trace, log.ComponentDispatcher, n.Resource, n.Category, err, "deliver to "+sub.name)
}

// OpenSession creates a session that groups subscriptions of one owner.
func (d *Dispatcher) OpenSession(owner string) (*Session, error) {
	s := &Session{
		id:    uuid.NewString(),
		owner: owner,
		d:     d,
		subs:  make(map[string]*Subscription),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	d.sessions[s.id] = s
	return s, nil
}

func (d *Dispatcher) forgetSession(s *Session) {
	d.mu.Lock()
	delete(d.sessions, s.id)
	d.mu.Unlock()
}

// Count returns the number of active subscriptions.
func (d *Dispatcher) Count() int {
	return int(d.count.Load())
}

// Sessions returns the number of open sessions.
func (d *Dispatcher) Sessions() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// Close unsubscribes every subscription and rejects new ones.
// It is safe to call Close multiple times.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	var all []*Subscription
	for _, subs := range d.byResource {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	sessions := make([]*Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		sessions = append(sessions, s)
	}
	d.mu.Unlock()

	// Outside the lock: Unsubscribe re-enters remove.
	for _, sub := range all {
		sub.Unsubscribe()
	}
	for _, s := range sessions {
		s.Close()
	}
	d.cancel()
	return nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
