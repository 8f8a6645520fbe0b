package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/sequence"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Invokers hands out the listener invoker of a (resource, category) pair.
// *subscription.Dispatcher implements it.
type Invokers interface {
	Invoker(resource, category string) subscription.ListenerInvoker
}

// ConnectedNotification is the live binding of one notification category.
type ConnectedNotification struct {
	desc    model.NotificationDescriptor
	source  connector.Source
	invoker subscription.ListenerInvoker
	closed  atomic.Bool
}

// Category returns the notification category.
func (n *ConnectedNotification) Category() string { return n.desc.Category }

// Descriptor returns a copy of the binding's descriptor.
func (n *ConnectedNotification) Descriptor() model.NotificationDescriptor { return n.desc.Clone() }

func (n *ConnectedNotification) close(logger *slog.Logger) {
	if !n.closed.CompareAndSwap(false, true) {
		return
	}
	if err := n.source.Close(); err != nil {
		logger.Warn("notification source close failed", "category", n.desc.Category, "error", err)
	}
}

type notificationMap map[string]*ConnectedNotification

// NotificationRepository holds the enabled notification categories of one
// resource and forwards their events to the dispatcher.
type NotificationRepository struct {
	resource string
	conn     connector.Connector
	invokers Invokers
	counter  sequence.Counter

	mu       sync.Mutex
	bindings atomic.Pointer[notificationMap]
	closed   bool

	logger   *slog.Logger
	trace    log.Logger
	observer Observer
}

// NewNotificationRepository creates an empty repository. Sequence numbers
// come from counter; a nil counter uses a process-local one.
func NewNotificationRepository(cfg Config, invokers Invokers, counter sequence.Counter) *NotificationRepository {
	cfg.defaults()
	if counter == nil {
		counter = sequence.NewLocal()
	}
	r := &NotificationRepository{
		resource: cfg.Resource,
		conn:     cfg.Connector,
		invokers: invokers,
		counter:  counter,
		logger:   cfg.Logger.With("resource", cfg.Resource),
		trace:    cfg.Trace,
		observer: cfg.Observer,
	}
	r.bindings.Store(&notificationMap{})
	return r
}

// Resource returns the resource name.
func (r *NotificationRepository) Resource() string { return r.resource }

func (r *NotificationRepository) snapshot() notificationMap {
	return *r.bindings.Load()
}

func (r *NotificationRepository) cloneLocked() notificationMap {
	cur := r.snapshot()
	next := make(notificationMap, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	return next
}

// Enable binds category. An identical descriptor returns the existing
// binding; a different one disables the old binding first.
func (r *NotificationRepository) Enable(ctx context.Context, category string, desc model.NotificationDescriptor) (*ConnectedNotification, error) {
	desc = desc.Clone()
	desc.Category = category
	if desc.Resource == "" {
		desc.Resource = r.resource
	}
	if err := desc.Validate(); err != nil {
		r.enableFailed(category, err)
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w: notification repository %s", model.ErrClosed, r.resource)
	}

	next := r.cloneLocked()
	if old, ok := next[category]; ok {
		if old.desc.Equal(desc) {
			return old, nil
		}
		delete(next, category)
		r.bindings.Store(&next)
		old.close(r.logger)
		r.traceBinding(category, "enabled", "disabled", "descriptor changed")
	}

	emit := func(e connector.Event) {
		if err := r.Fire(context.Background(), category, e.Message, e.Sequence, e.Timestamp, e.UserData); err != nil {
			r.logger.Warn("dropping notification", "category", category, "error", err)
		}
	}
	src, err := r.conn.ConnectNotification(ctx, category, desc, emit)
	if err != nil {
		r.enableFailed(category, err)
		return nil, fmt.Errorf("%w: notification %s/%s: %w", model.ErrConnection, r.resource, category, err)
	}

	n := &ConnectedNotification{
		desc:    desc,
		source:  src,
		invoker: r.invokers.Invoker(r.resource, category),
	}
	next[category] = n
	r.bindings.Store(&next)

	r.logger.Debug("notification enabled", "category", category, "type", desc.Type())
	r.traceBinding(category, "", "enabled", "")
	return n, nil
}

func (r *NotificationRepository) enableFailed(category string, err error) {
	r.logger.Warn("notification enable failed", "category", category, "error", err)
	log.Failure(r.trace, log.ComponentRepository, r.resource, category, err, "enable notification")
}

func (r *NotificationRepository) traceBinding(category, oldState, newState, reason string) {
	log.StateChange(r.trace, log.ComponentRepository, log.StateEntityBinding, r.resource, category, oldState, newState, reason)
}

// Fire builds a notification for category and hands it to the listeners.
// A zero seq takes the next number from the counter; a zero timestamp
// means now.
func (r *NotificationRepository) Fire(ctx context.Context, category, message string, seq uint64, timestamp time.Time, userData any) error {
	n, ok := r.snapshot()[category]
	if !ok || n.closed.Load() {
		return fmt.Errorf("%w: notification %s/%s", model.ErrNotFound, r.resource, category)
	}

	if seq == 0 {
		next, err := r.counter.Next(ctx, sequence.Key(r.resource, category))
		if err != nil {
			return fmt.Errorf("sequence for %s/%s: %w", r.resource, category, err)
		}
		seq = next
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	if userData != nil && n.desc.AttachmentType != nil {
		converted, err := types.Convert(userData, types.Native, n.desc.AttachmentType)
		if err != nil {
			r.logger.Warn("dropping notification attachment", "category", category, "error", err)
			userData = nil
		} else {
			userData = converted
		}
	}

	r.observer.NotificationFired(r.resource, category)
	n.invoker.Invoke(model.Notification{
		Resource:  r.resource,
		Category:  category,
		Type:      n.desc.Type(),
		Message:   message,
		Sequence:  seq,
		Timestamp: timestamp,
		Severity:  n.desc.Severity,
		UserData:  userData,
	})
	return nil
}

// Binding returns the binding for category.
func (r *NotificationRepository) Binding(category string) (*ConnectedNotification, bool) {
	n, ok := r.snapshot()[category]
	return n, ok
}

// Categories returns the enabled categories, sorted.
func (r *NotificationRepository) Categories() []string {
	snap := r.snapshot()
	out := make([]string, 0, len(snap))
	for c := range snap {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Disable removes category. It reports whether a binding existed.
func (r *NotificationRepository) Disable(category string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.cloneLocked()
	n, ok := next[category]
	if !ok {
		return false
	}
	delete(next, category)
	r.bindings.Store(&next)
	n.close(r.logger)
	r.traceBinding(category, "enabled", "disabled", "")
	return true
}

// DisableAllExcept removes every category not in keep and returns the
// removed categories, sorted.
func (r *NotificationRepository) DisableAllExcept(keep []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disableLocked(keep)
}

func (r *NotificationRepository) disableLocked(keep []string) []string {
	cur := r.snapshot()
	next := make(notificationMap, len(cur))
	var removed []*ConnectedNotification
	for c, n := range cur {
		if slices.Contains(keep, c) {
			next[c] = n
			continue
		}
		removed = append(removed, n)
	}
	out := make([]string, 0, len(removed))
	if len(removed) == 0 {
		return out
	}
	r.bindings.Store(&next)
	for _, n := range removed {
		n.close(r.logger)
		out = append(out, n.desc.Category)
		r.traceBinding(n.desc.Category, "enabled", "disabled", "")
	}
	slices.Sort(out)
	return out
}

// Close disables every category and rejects further Enable calls.
func (r *NotificationRepository) Close() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return []string{}
	}
	r.closed = true
	return r.disableLocked(nil)
}
