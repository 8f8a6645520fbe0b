package subscription

import (
	"context"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Listener receives notifications for a subscription.
type Listener interface {
	// HandleNotification processes one notification. A returned error is
	// logged and counted; it does not affect other listeners.
	HandleNotification(ctx context.Context, n model.Notification) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, n model.Notification) error

// HandleNotification calls f(ctx, n).
func (f ListenerFunc) HandleNotification(ctx context.Context, n model.Notification) error {
	return f(ctx, n)
}

// ListenerInvoker hands notifications of one (resource, category) pair to
// every matching listener. Invoke returns the number of subscriptions the
// notification was handed to.
type ListenerInvoker interface {
	Invoke(n model.Notification) int
}

// InvokerFunc adapts a function to the ListenerInvoker interface.
type InvokerFunc func(n model.Notification) int

// Invoke calls f(n).
func (f InvokerFunc) Invoke(n model.Notification) int {
	return f(n)
}

// categoryInvoker binds a dispatcher to a fixed resource and category.
type categoryInvoker struct {
	d        *Dispatcher
	resource string
	category string
}

func (i *categoryInvoker) Invoke(n model.Notification) int {
	n.Resource = i.resource
	n.Category = i.category
	return i.d.Dispatch(n)
}

// Observer receives delivery statistics. pkg/metrics provides a Prometheus
// implementation.
type Observer interface {
	NotificationDelivered(resource, category string)
	NotificationDropped(resource, category string)
	ListenerFailed(resource, category string)
	SubscriptionsActive(n int)
}

type noopObserver struct{}

func (noopObserver) NotificationDelivered(string, string) {}
func (noopObserver) NotificationDropped(string, string)   {}
func (noopObserver) ListenerFailed(string, string)        {}
func (noopObserver) SubscriptionsActive(int)              {}
