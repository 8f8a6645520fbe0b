// Package subscription delivers notifications from connected resources to
// registered listeners.
//
// A Dispatcher indexes subscriptions by resource and category. Connectors
// hand notifications to the dispatcher through a ListenerInvoker obtained per
// (resource, category); the dispatcher fans them out to every active
// subscription whose filter matches.
//
// # Delivery
//
// Each subscription has a delivery mode:
//   - DeliveryAsync (default): notifications are queued in a FIFO and a
//     dedicated worker invokes the listener. A slow listener only delays
//     itself. The queue is unbounded unless WithQueueSize sets a bound; a
//     full bounded queue drops the notification for that listener alone.
//   - DeliverySync: the listener runs on the goroutine calling Dispatch.
//
// In both modes invocations of one listener are serialized, so a listener
// never sees notification N+1 before notification N from the same source.
// Errors and panics from a listener are recovered, logged with the listener
// identity and counted; delivery to other listeners continues.
//
// # Lifecycle
//
// A Subscription moves from Active to Unsubscribed exactly once. Unsubscribe
// is idempotent and waits for an in-flight delivery, so no delivery starts
// after it returns. Cancel performs the same transition without waiting and
// is the variant to use from inside a listener callback.
//
// Sessions group the subscriptions of one owner (for example a WebSocket
// connection). Closing the session unsubscribes all of them.
package subscription
