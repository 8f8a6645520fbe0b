package log

import (
	"path/filepath"
	"testing"
	"time"
)

func writeTrace(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filter.trace")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func TestReaderFilter(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeTrace(t,
		Event{Timestamp: base, Category: CategoryAttribute, Component: ComponentRepository, Resource: "a", Feature: "x",
			Attribute: &AttributeEvent{Op: OpRead}},
		Event{Timestamp: base.Add(time.Second), Category: CategoryNotification, Component: ComponentDispatcher, Resource: "a", Feature: "alarms",
			Notification: &NotificationEvent{Sequence: 1}},
		Event{Timestamp: base.Add(2 * time.Second), Category: CategoryAttribute, Component: ComponentGateway, Resource: "b", Feature: "x",
			Attribute: &AttributeEvent{Op: OpWrite}},
		Event{Timestamp: base.Add(3 * time.Second), Category: CategoryError, Component: ComponentConnector, Resource: "b",
			Error: &ErrorEventData{Message: "boom"}},
	)

	attr := CategoryAttribute
	gw := ComponentGateway
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"resource", Filter{Resource: "a"}, 2},
		{"feature", Filter{Feature: "x"}, 2},
		{"category", Filter{Category: &attr}, 2},
		{"component", Filter{Component: &gw}, 1},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{Resource: "b", Category: &attr}, 1},
		{"no match", Filter{Resource: "zzz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countEvents(t, path, tt.filter); got != tt.want {
				t.Errorf("events = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.trace")); err == nil {
		t.Error("NewReader on missing file should fail")
	}
}
