package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
		slog.String("component", event.Component.String()),
	}

	if event.Resource != "" {
		attrs = append(attrs, slog.String("resource", event.Resource))
	}
	if event.Feature != "" {
		attrs = append(attrs, slog.String("feature", event.Feature))
	}
	if event.SubscriptionID != "" {
		attrs = append(attrs, slog.String("subscription", event.SubscriptionID))
	}

	switch {
	case event.Attribute != nil:
		attrs = append(attrs,
			slog.String("op", event.Attribute.Op.String()),
			slog.String("value", event.Attribute.Value),
			slog.Duration("duration", event.Attribute.Duration),
		)
		if event.Attribute.TimedOut {
			attrs = append(attrs, slog.Bool("timed_out", true))
		}
	case event.Notification != nil:
		attrs = append(attrs,
			slog.Uint64("seq", event.Notification.Sequence),
			slog.String("message", event.Notification.Message),
			slog.Int("listeners", event.Notification.Listeners),
		)
		if event.Notification.Dropped {
			attrs = append(attrs, slog.Bool("dropped", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
