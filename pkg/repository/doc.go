// Package repository holds the live bindings of one managed resource.
//
// An AttributeRepository maps attribute IDs to ConnectedAttributes, the
// bindings produced by a connector's ConnectAttribute. A
// NotificationRepository maps categories to ConnectedNotifications and
// forwards every event a connector emits to the dispatcher.
//
// # Concurrency
//
// Binding maps are copy-on-write snapshots. Connect, Disconnect and Retain
// serialize on a per-repository writer lock; Get and Set only load the
// current snapshot and never take that lock, so a slow read never blocks
// teardown.
//
// Each attribute binding is reference counted. The repository holds one
// reference and every in-flight Get or Set holds another. The connector
// handle is released by whichever reference goes last, so teardown never
// closes a handle while a call is still using it.
//
// # Timeouts
//
// Get and Set run the connector call on its own goroutine bounded by a
// timeout. A zero timeout is an immediate deadline; a negative timeout uses
// the descriptor's ReadTimeout, or DefaultTimeout when that is unset.
package repository
