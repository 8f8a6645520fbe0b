package log

import "time"

// Logger is the interface applications implement to receive trace events.
// Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records an event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking affects performance.
	Log(event Event)
}

// NoopLogger discards all events. Use when tracing is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}

// Record sends event to l, stamping it with the current time if unset.
// A nil l is ignored.
func Record(l Logger, event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.Log(event)
}

// StateChange records a state transition.
func StateChange(l Logger, component Component, entity StateEntity, resource, feature, oldState, newState, reason string) {
	Record(l, Event{
		Category:  CategoryState,
		Component: component,
		Resource:  resource,
		Feature:   feature,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// Failure records an error.
func Failure(l Logger, component Component, resource, feature string, err error, context string) {
	if err == nil {
		return
	}
	Record(l, Event{
		Category:  CategoryError,
		Component: component,
		Resource:  resource,
		Feature:   feature,
		Error: &ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	})
}
