package wire

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

func TestNotificationFrame(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	n := model.Notification{
		Resource:  "db",
		Category:  "alarms",
		Type:      "db.alarm",
		Message:   "disk full",
		Sequence:  42,
		Timestamp: ts,
		Severity:  model.SeverityCritical,
		UserData:  int32(97),
	}

	data, err := EncodeNotification(n)
	if err != nil {
		t.Fatalf("EncodeNotification failed: %v", err)
	}

	kind, err := PeekKind(data)
	if err != nil {
		t.Fatalf("PeekKind failed: %v", err)
	}
	if kind != KindNotification {
		t.Errorf("PeekKind() = %v, want %v", kind, KindNotification)
	}

	decoded, err := DecodeNotification(data)
	if err != nil {
		t.Fatalf("DecodeNotification failed: %v", err)
	}
	got := decoded.Model()
	if got.Resource != "db" || got.Category != "alarms" || got.Type != "db.alarm" {
		t.Errorf("identity = %s/%s/%s, want db/alarms/db.alarm", got.Resource, got.Category, got.Type)
	}
	if got.Sequence != 42 {
		t.Errorf("Sequence = %d, want 42", got.Sequence)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.Severity != model.SeverityCritical {
		t.Errorf("Severity = %v, want %v", got.Severity, model.SeverityCritical)
	}
	v, err := types.Convert(got.UserData, types.Native, types.Int32)
	if err != nil || v != int32(97) {
		t.Errorf("UserData = %v (%v), want 97", got.UserData, err)
	}
}

func TestNotificationWithoutUserData(t *testing.T) {
	data, err := EncodeNotification(model.Notification{Resource: "r", Category: "c"})
	if err != nil {
		t.Fatalf("EncodeNotification failed: %v", err)
	}
	var raw map[int]any
	if err := Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := raw[9]; ok {
		t.Error("user data key present, want absent")
	}
}

func TestCompositeValueFrame(t *testing.T) {
	row := types.MustComposite("port",
		types.Field{Name: "name", Type: types.String},
		types.Field{Name: "speed", Type: types.Int64},
		types.Field{Name: "since", Type: types.UnixTime},
	)
	table, err := types.NewTabular("ports", row, "name")
	if err != nil {
		t.Fatalf("NewTabular failed: %v", err)
	}
	since := time.UnixMilli(1_700_000_000_000)
	value, err := types.Convert([]map[string]any{
		{"name": "eth0", "speed": int64(1000), "since": since},
		{"name": "eth1", "speed": int64(10), "since": since},
	}, types.Native, table)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	msg, err := NewValueMessage("switch", "ports", types.NewValue(value, table))
	if err != nil {
		t.Fatalf("NewValueMessage failed: %v", err)
	}
	data, err := EncodeValue(msg)
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}
	decoded, err := DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	got, err := decoded.Decode(table)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	td, ok := got.Raw.(*types.TabularData)
	if !ok {
		t.Fatalf("Raw = %T, want *types.TabularData", got.Raw)
	}
	if !td.Equal(value.(*types.TabularData)) {
		t.Errorf("decoded table differs from original")
	}
	if decoded.Attribute != "ports" || decoded.Resource != "switch" {
		t.Errorf("identity = %s/%s, want switch/ports", decoded.Resource, decoded.Attribute)
	}
}

func TestDecimalAndNullValues(t *testing.T) {
	d, _ := new(big.Float).SetString("12.5")
	msg, err := NewValueMessage("", "", types.NewValue(d, types.Decimal))
	if err != nil {
		t.Fatalf("NewValueMessage failed: %v", err)
	}
	if msg.Value != "12.5" {
		t.Errorf("wire decimal = %v, want %q", msg.Value, "12.5")
	}

	data, _ := EncodeValue(msg)
	decoded, err := DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	// The frame names its own type.
	got, err := decoded.Decode(nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Raw.(*big.Float).Cmp(d) != 0 {
		t.Errorf("decimal = %v, want 12.5", got.Raw)
	}

	null, err := NewValueMessage("", "", types.NewValue(nil, types.Int32))
	if err != nil {
		t.Fatalf("NewValueMessage(nil) failed: %v", err)
	}
	data, _ = EncodeValue(null)
	decoded, _ = DecodeValue(data)
	got, err = decoded.Decode(types.Int32)
	if err != nil || !got.IsNull() {
		t.Errorf("Decode(null) = %v, %v, want null", got.Raw, err)
	}
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	data, err := EncodeError(NewErrorMessage(fmt.Errorf("%w: db/cpu", model.ErrNotFound)))
	if err != nil {
		t.Fatalf("EncodeError failed: %v", err)
	}
	if _, err := DecodeNotification(data); err == nil {
		t.Error("DecodeNotification accepted an error frame")
	}
	if _, err := DecodeValue(data); err == nil {
		t.Error("DecodeValue accepted an error frame")
	}
	msg, err := DecodeError(data)
	if err != nil {
		t.Fatalf("DecodeError failed: %v", err)
	}
	if msg.Status != StatusNotFound {
		t.Errorf("Status = %v, want %v", msg.Status, StatusNotFound)
	}

	if kind, err := PeekKind([]byte{0xa0}); err != nil || kind != KindUnknown {
		t.Errorf("PeekKind(empty map) = %v, %v, want UNKNOWN", kind, err)
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusSuccess},
		{fmt.Errorf("%w: x", model.ErrNotFound), StatusNotFound},
		{model.ErrNotReadable, StatusNotReadable},
		{model.ErrNotWritable, StatusNotWritable},
		{fmt.Errorf("convert: %w", types.ErrTypeMismatch), StatusTypeMismatch},
		{types.ErrUnsupportedType, StatusUnsupported},
		{model.ErrTimeout, StatusTimeout},
		{model.ErrConnection, StatusConnection},
		{model.ErrInvalidDescriptor, StatusInvalidRequest},
		{errors.New("other"), StatusInternal},
	}
	for _, tt := range tests {
		if got := StatusFromError(tt.err); got != tt.want {
			t.Errorf("StatusFromError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if got := Status(200).String(); got != "UNKNOWN" {
		t.Errorf("String() = %q, want UNKNOWN", got)
	}
}
