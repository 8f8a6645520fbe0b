package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Severity is the syslog-aligned severity of a notification.
type Severity uint8

// Severities in syslog order. SeverityUnknown sorts last.
const (
	SeverityPanic Severity = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInformational
	SeverityDebug
	SeverityUnknown
)

var severityNames = [...]string{
	"panic", "alert", "critical", "error", "warning", "notice", "informational", "debug", "unknown",
}

// String returns the severity name.
func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// Code returns the syslog severity code (0-7), or -1 for SeverityUnknown.
func (s Severity) Code() int {
	if s >= SeverityUnknown {
		return -1
	}
	return int(s)
}

// ParseSeverity parses a severity name. Unrecognized names are
// SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "panic", "emergency", "emerg", "fatal":
		return SeverityPanic
	case "alert":
		return SeverityAlert
	case "critical", "crit":
		return SeverityCritical
	case "error", "err":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	case "notice":
		return SeverityNotice
	case "informational", "info":
		return SeverityInformational
	case "debug":
		return SeverityDebug
	}
	return SeverityUnknown
}

// NotificationDescriptor identifies one notification category of a resource.
type NotificationDescriptor struct {
	Resource       string
	Category       string
	NotifType      string
	Severity       Severity
	AttachmentType types.Type
	Options        Options
}

// Validate checks that the descriptor can be enabled.
func (d NotificationDescriptor) Validate() error {
	if d.Category == "" {
		return fmt.Errorf("%w: notification has no category", ErrInvalidDescriptor)
	}
	return nil
}

// Type returns the notification type, falling back to the category.
func (d NotificationDescriptor) Type() string {
	if d.NotifType != "" {
		return d.NotifType
	}
	return d.Category
}

// Equal reports whether two descriptors describe the same binding.
func (d NotificationDescriptor) Equal(o NotificationDescriptor) bool {
	return d.Resource == o.Resource &&
		d.Category == o.Category &&
		d.NotifType == o.NotifType &&
		d.Severity == o.Severity &&
		types.Equal(d.AttachmentType, o.AttachmentType) &&
		d.Options.Equal(o.Options)
}

// Clone returns a copy that shares no mutable state with d.
func (d NotificationDescriptor) Clone() NotificationDescriptor {
	d.Options = d.Options.Clone()
	return d
}

// Notification is one event emitted by a resource.
type Notification struct {
	Resource  string
	Category  string
	Type      string
	Message   string
	Sequence  uint64
	Timestamp time.Time
	Severity  Severity
	UserData  any
}
