package wire

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// encMode is the CBOR encoder mode for wire messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for wire messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Composite values decode as string-keyed maps.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeNotification encodes a notification to a CBOR frame.
func EncodeNotification(n model.Notification) ([]byte, error) {
	msg, err := FromNotification(n)
	if err != nil {
		return nil, err
	}
	return Marshal(msg)
}

// DecodeNotification decodes a CBOR notification frame.
func DecodeNotification(data []byte) (*Notification, error) {
	var msg Notification
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	if msg.Kind != KindNotification {
		return nil, fmt.Errorf("not a notification message: kind=%s", msg.Kind)
	}
	return &msg, nil
}

// EncodeValue encodes a value frame.
func EncodeValue(msg *ValueMessage) ([]byte, error) {
	return Marshal(msg)
}

// DecodeValue decodes a CBOR value frame.
func DecodeValue(data []byte) (*ValueMessage, error) {
	var msg ValueMessage
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	if msg.Kind != KindValue {
		return nil, fmt.Errorf("not a value message: kind=%s", msg.Kind)
	}
	return &msg, nil
}

// EncodeError encodes an error frame.
func EncodeError(msg *ErrorMessage) ([]byte, error) {
	return Marshal(msg)
}

// DecodeError decodes a CBOR error frame.
func DecodeError(data []byte) (*ErrorMessage, error) {
	var msg ErrorMessage
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode error: %w", err)
	}
	if msg.Kind != KindError {
		return nil, fmt.Errorf("not an error message: kind=%s", msg.Kind)
	}
	return &msg, nil
}

// PeekKind reads key 1 of a frame without decoding the rest.
func PeekKind(data []byte) (Kind, error) {
	var peek struct {
		Kind Kind `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return KindUnknown, fmt.Errorf("failed to peek message: %w", err)
	}
	switch peek.Kind {
	case KindNotification, KindValue, KindError:
		return peek.Kind, nil
	}
	return KindUnknown, nil
}
