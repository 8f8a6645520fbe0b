// Package connector defines the capability every resource connector
// provides to the core.
//
// A Connector speaks the native protocol of one managed resource. The core
// binds attributes through ConnectAttribute and then reads and writes them
// with GetValue and SetValue; notifications are bound with
// ConnectNotification, which hands the connector an Emitter to call whenever
// the resource produces an event.
//
// Connectors are looked up by type name in a Registry of Factory functions.
// Implementations live in subpackages (memory, modbus, mda, rshell).
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Connector errors.
var (
	ErrUnknownType     = errors.New("unknown connector type")
	ErrDuplicateType   = errors.New("connector type already registered")
	ErrUnknownFeature  = errors.New("resource has no such feature")
	ErrInvalidHandle   = errors.New("handle was not issued by this connector")
	ErrClosed          = errors.New("connector closed")
	ErrUnsupportedType = errors.New("declared type not supported by connector")
)

// Handle identifies a connected attribute to the connector that issued it.
type Handle interface {
	AttributeID() string
}

// Event is a notification raised by a resource. A zero Sequence asks the
// core to assign the next number; a zero Timestamp means now.
type Event struct {
	Message   string
	Sequence  uint64
	Timestamp time.Time
	UserData  any
}

// Emitter receives events from a connected notification source.
type Emitter func(Event)

// Source is a connected notification source.
type Source interface {
	// Close stops the source. The emitter is not called after Close returns.
	Close() error
}

// Connector is the per-resource capability implemented by every connector.
type Connector interface {
	// ConnectAttribute binds the attribute described by desc under id.
	ConnectAttribute(ctx context.Context, id string, desc model.AttributeDescriptor) (Handle, error)

	// GetValue reads the attribute's native value.
	GetValue(ctx context.Context, h Handle) (any, error)

	// SetValue writes a native value.
	SetValue(ctx context.Context, h Handle, value any) error

	// DisconnectAttribute releases the binding.
	DisconnectAttribute(h Handle) error

	// ConnectNotification binds a notification category. emit may be called
	// from any goroutine until the returned Source is closed.
	ConnectNotification(ctx context.Context, category string, desc model.NotificationDescriptor, emit Emitter) (Source, error)

	// Close releases the connection to the resource.
	Close() error
}

// Discoverer is implemented by connectors that can list the features of
// their resource.
type Discoverer interface {
	Discover(ctx context.Context, feature model.FeatureType) ([]model.FeatureConfiguration, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() error

// Close calls f.
func (f SourceFunc) Close() error { return f() }

// AttributeHandle is a simple Handle that connectors may embed.
type AttributeHandle struct {
	ID   string
	Desc model.AttributeDescriptor
}

// AttributeID returns the local attribute ID.
func (h *AttributeHandle) AttributeID() string { return h.ID }
