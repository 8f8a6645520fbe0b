package wire

import (
	"fmt"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Kind identifies a message. It is always stored under key 1.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotification
	KindValue
	KindError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "NOTIFICATION"
	case KindValue:
		return "VALUE"
	case KindError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Notification is a notification frame.
//
// CBOR encoding:
//
//	{
//	  1: kind,        // 1 = notification
//	  2: resource,    // string
//	  3: category,    // string
//	  4: type,        // string
//	  5: message,     // string
//	  6: sequence,    // uint64
//	  7: timestamp,   // int64 epoch milliseconds
//	  8: severity,    // uint8, syslog order
//	  9: userData     // wire value, absent if none
//	}
type Notification struct {
	Kind      Kind   `cbor:"1,keyasint"`
	Resource  string `cbor:"2,keyasint"`
	Category  string `cbor:"3,keyasint"`
	Type      string `cbor:"4,keyasint,omitempty"`
	Message   string `cbor:"5,keyasint"`
	Sequence  uint64 `cbor:"6,keyasint"`
	Timestamp int64  `cbor:"7,keyasint"`
	Severity  uint8  `cbor:"8,keyasint"`
	UserData  any    `cbor:"9,keyasint,omitempty"`
}

// FromNotification builds the frame of n. User data is converted to its
// wire form using its inferred type.
func FromNotification(n model.Notification) (*Notification, error) {
	var userData any
	if n.UserData != nil {
		v, err := ToWire(n.UserData, types.TypeOf(n.UserData))
		if err != nil {
			return nil, fmt.Errorf("notification %s/%s user data: %w", n.Resource, n.Category, err)
		}
		userData = v
	}
	return &Notification{
		Kind:      KindNotification,
		Resource:  n.Resource,
		Category:  n.Category,
		Type:      n.Type,
		Message:   n.Message,
		Sequence:  n.Sequence,
		Timestamp: n.Timestamp.UnixMilli(),
		Severity:  uint8(n.Severity),
		UserData:  userData,
	}, nil
}

// Model converts the frame back to a notification. User data stays in its
// wire form.
func (n *Notification) Model() model.Notification {
	return model.Notification{
		Resource:  n.Resource,
		Category:  n.Category,
		Type:      n.Type,
		Message:   n.Message,
		Sequence:  n.Sequence,
		Timestamp: time.UnixMilli(n.Timestamp),
		Severity:  model.Severity(n.Severity),
		UserData:  n.UserData,
	}
}

// ValueMessage carries one attribute value.
//
// CBOR encoding:
//
//	{
//	  1: kind,        // 2 = value
//	  2: resource,    // string
//	  3: attribute,   // string
//	  4: type,        // declared type, textual form
//	  5: value        // wire value, null if the value is null
//	}
type ValueMessage struct {
	Kind      Kind   `cbor:"1,keyasint"`
	Resource  string `cbor:"2,keyasint,omitempty"`
	Attribute string `cbor:"3,keyasint,omitempty"`
	Type      string `cbor:"4,keyasint"`
	Value     any    `cbor:"5,keyasint"`
}

// NewValueMessage builds the frame of an attribute value.
func NewValueMessage(resource, attribute string, v types.Value) (*ValueMessage, error) {
	t := v.Type
	if t == nil {
		t = types.Native
	}
	w, err := ToWire(v.Raw, t)
	if err != nil {
		return nil, err
	}
	return &ValueMessage{
		Kind:      KindValue,
		Resource:  resource,
		Attribute: attribute,
		Type:      t.String(),
		Value:     w,
	}, nil
}

// Decode converts the wire value to the canonical form of t. A nil t uses
// the type named in the frame.
func (m *ValueMessage) Decode(t types.Type) (types.Value, error) {
	if t == nil {
		parsed, err := types.Parse(m.Type)
		if err != nil {
			return types.Value{}, err
		}
		t = parsed
	}
	raw, err := FromWire(m.Value, t)
	if err != nil {
		return types.Value{}, err
	}
	return types.NewValue(raw, t), nil
}

// ErrorMessage reports a failed request.
//
// CBOR encoding:
//
//	{
//	  1: kind,        // 3 = error
//	  2: status,      // uint8
//	  3: message      // string
//	}
type ErrorMessage struct {
	Kind    Kind   `cbor:"1,keyasint"`
	Status  Status `cbor:"2,keyasint"`
	Message string `cbor:"3,keyasint,omitempty"`
}

// NewErrorMessage builds the error frame of err.
func NewErrorMessage(err error) *ErrorMessage {
	return &ErrorMessage{
		Kind:    KindError,
		Status:  StatusFromError(err),
		Message: err.Error(),
	}
}
