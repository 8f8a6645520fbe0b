package log

import (
	"time"
)

// Event is one trace record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"2,keyasint"`

	// Component that recorded the event.
	Component Component `cbor:"3,keyasint"`

	// Resource is the managed resource name.
	Resource string `cbor:"4,keyasint,omitempty"`

	// Feature is the attribute ID or notification category.
	Feature string `cbor:"5,keyasint,omitempty"`

	// SubscriptionID identifies the subscription, if any.
	SubscriptionID string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Attribute    *AttributeEvent    `cbor:"10,keyasint,omitempty"`
	Notification *NotificationEvent `cbor:"11,keyasint,omitempty"`
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"13,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAttribute indicates an attribute read or write.
	CategoryAttribute Category = 0
	// CategoryNotification indicates a notification delivery.
	CategoryNotification Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAttribute:
		return "ATTRIBUTE"
	case CategoryNotification:
		return "NOTIFICATION"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Component identifies the part of the platform that recorded an event.
type Component uint8

const (
	// ComponentRepository is an attribute or notification repository.
	ComponentRepository Component = 0
	// ComponentRegistry is the resource registry.
	ComponentRegistry Component = 1
	// ComponentDispatcher is the notification dispatcher.
	ComponentDispatcher Component = 2
	// ComponentGateway is a protocol gateway.
	ComponentGateway Component = 3
	// ComponentConnector is a resource connector.
	ComponentConnector Component = 4
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentRepository:
		return "REPOSITORY"
	case ComponentRegistry:
		return "REGISTRY"
	case ComponentDispatcher:
		return "DISPATCHER"
	case ComponentGateway:
		return "GATEWAY"
	case ComponentConnector:
		return "CONNECTOR"
	default:
		return "UNKNOWN"
	}
}

// AttributeOp is the kind of attribute access.
type AttributeOp uint8

const (
	// OpRead is an attribute read.
	OpRead AttributeOp = 0
	// OpWrite is an attribute write.
	OpWrite AttributeOp = 1
)

// String returns the operation name.
func (o AttributeOp) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// AttributeEvent captures one attribute access.
type AttributeEvent struct {
	// Op is read or write.
	Op AttributeOp `cbor:"1,keyasint"`

	// Value is the value read or written, rendered as text.
	Value string `cbor:"2,keyasint,omitempty"`

	// Duration is how long the connector call took.
	Duration time.Duration `cbor:"3,keyasint,omitempty"`

	// TimedOut indicates the call exceeded its deadline.
	TimedOut bool `cbor:"4,keyasint,omitempty"`
}

// NotificationEvent captures one notification passing through the dispatcher.
type NotificationEvent struct {
	// Sequence is the notification sequence number.
	Sequence uint64 `cbor:"1,keyasint"`

	// Message is the notification text.
	Message string `cbor:"2,keyasint,omitempty"`

	// Listeners is the number of subscriptions the notification was handed to.
	Listeners int `cbor:"3,keyasint,omitempty"`

	// Dropped indicates the notification was dropped for a subscription.
	Dropped bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures lifecycle changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityBinding indicates an attribute or notification binding.
	StateEntityBinding StateEntity = 0
	// StateEntitySubscription indicates a subscription.
	StateEntitySubscription StateEntity = 1
	// StateEntityResource indicates a resource attach or detach.
	StateEntityResource StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityBinding:
		return "BINDING"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityResource:
		return "RESOURCE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any component.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
