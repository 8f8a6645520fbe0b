// Package log provides a machine-readable event trace of attribute access,
// notification dispatch and binding lifecycle.
//
// It is separate from operational logging (slog). Operational logs say what
// went wrong; the trace records every read, write, delivery and state change
// so that a session can be replayed and analyzed afterwards.
//
// # Basic Usage
//
// Components accept a Logger; nil or NoopLogger disables tracing:
//
//	// For development: trace to console via slog
//	trace := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to a binary file
//	trace, _ := log.NewFileLogger("/var/log/snamp/trace.slog")
//
//	// Both
//	trace := log.NewMultiLogger(console, file)
//
// # Event Types
//
// Every Event carries a Category and exactly one payload:
//   - Attribute: reads and writes (AttributeEvent)
//   - Notification: deliveries (NotificationEvent)
//   - State: bindings, subscriptions and resources changing state (StateChangeEvent)
//   - Error: failures at any component (ErrorEventData)
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with integer keys. Use
// Reader with a Filter to iterate over them.
package log
