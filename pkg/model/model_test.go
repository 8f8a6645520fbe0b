package model

import (
	"errors"
	"testing"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

func TestAccess(t *testing.T) {
	tests := []struct {
		access   Access
		canRead  bool
		canWrite bool
		str      string
	}{
		{AccessReadOnly, true, false, "read-only"},
		{AccessWriteOnly, false, true, "write-only"},
		{AccessReadWrite, true, true, "read-write"},
		{0, false, false, "none"},
	}

	for _, tt := range tests {
		if got := tt.access.CanRead(); got != tt.canRead {
			t.Errorf("%v.CanRead() = %v, want %v", tt.access, got, tt.canRead)
		}
		if got := tt.access.CanWrite(); got != tt.canWrite {
			t.Errorf("%v.CanWrite() = %v, want %v", tt.access, got, tt.canWrite)
		}
		if got := tt.access.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
	}
}

func TestParseAccess(t *testing.T) {
	for in, want := range map[string]Access{
		"":           AccessReadWrite,
		"RO":         AccessReadOnly,
		"write-only": AccessWriteOnly,
		"rw":         AccessReadWrite,
	} {
		got, err := ParseAccess(in)
		if err != nil {
			t.Fatalf("ParseAccess(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParseAccess(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseAccess("sometimes"); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("ParseAccess(invalid) error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestAttributeDescriptorValidate(t *testing.T) {
	valid := AttributeDescriptor{Name: "temp", ID: "t1", Type: types.Float64, Access: AccessReadOnly}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	missing := []AttributeDescriptor{
		{Name: "temp", Type: types.Float64, Access: AccessReadOnly},
		{ID: "t1", Type: types.Float64, Access: AccessReadOnly},
		{Name: "temp", ID: "t1", Access: AccessReadOnly},
		{Name: "temp", ID: "t1", Type: types.Float64},
	}
	for i, d := range missing {
		if err := d.Validate(); !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("case %d: Validate() error = %v, want ErrInvalidDescriptor", i, err)
		}
	}
}

func TestAttributeDescriptorEqualAndClone(t *testing.T) {
	d := AttributeDescriptor{
		Resource: "plc",
		Name:     "temp",
		ID:       "t1",
		Type:     types.MustParse("array(int32)"),
		Access:   AccessReadWrite,
		Options:  Options{"oid": "1.3.6.1.4.1.1"},
	}

	c := d.Clone()
	if !d.Equal(c) {
		t.Fatal("clone should equal original")
	}

	c.Options["oid"] = "1.3.6.1.4.1.2"
	if d.Options["oid"] != "1.3.6.1.4.1.1" {
		t.Error("mutating the clone changed the original")
	}
	if d.Equal(c) {
		t.Error("descriptors with different options should not be equal")
	}

	c = d.Clone()
	c.Type = types.MustParse("array(int64)")
	if d.Equal(c) {
		t.Error("descriptors with different types should not be equal")
	}
}

func TestOptions(t *testing.T) {
	o := Options{
		"n":       "42",
		"flag":    "true",
		"timeout": "1500",
		"period":  "2s",
		"bad":     "x",
	}

	if got := o.Int("n", 0); got != 42 {
		t.Errorf("Int(n) = %d, want 42", got)
	}
	if got := o.Int("bad", 7); got != 7 {
		t.Errorf("Int(bad) = %d, want default 7", got)
	}
	if !o.Bool("flag", false) {
		t.Error("Bool(flag) = false, want true")
	}
	if got := o.Duration("timeout", 0); got != 1500*time.Millisecond {
		t.Errorf("Duration(timeout) = %v, want 1.5s", got)
	}
	if got := o.Duration("period", 0); got != 2*time.Second {
		t.Errorf("Duration(period) = %v, want 2s", got)
	}
	if got := o.String("missing", "def"); got != "def" {
		t.Errorf("String(missing) = %q, want def", got)
	}
	if got := Field(o, "n", types.Int16, int16(0)); got != 42 {
		t.Errorf("Field(n) = %d, want 42", got)
	}
	if got := Field(o, "bad", types.Int16, int16(-1)); got != -1 {
		t.Errorf("Field(bad) = %d, want -1", got)
	}
	if got := Field(o, "n", types.Int16, "wrong type"); got != "wrong type" {
		t.Errorf("Field with mismatched T = %q, want default", got)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"emergency": SeverityPanic,
		"ALERT":     SeverityAlert,
		"crit":      SeverityCritical,
		"err":       SeverityError,
		"warn":      SeverityWarning,
		"notice":    SeverityNotice,
		"info":      SeverityInformational,
		"debug":     SeverityDebug,
		"whatever":  SeverityUnknown,
	}
	for in, want := range tests {
		if got := ParseSeverity(in); got != want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", in, got, want)
		}
	}

	if SeverityWarning.Code() != 4 {
		t.Errorf("SeverityWarning.Code() = %d, want 4", SeverityWarning.Code())
	}
	if SeverityUnknown.Code() != -1 {
		t.Errorf("SeverityUnknown.Code() = %d, want -1", SeverityUnknown.Code())
	}
}

func TestNotificationDescriptorType(t *testing.T) {
	d := NotificationDescriptor{Category: "alarm"}
	if d.Type() != "alarm" {
		t.Errorf("Type() = %q, want category fallback", d.Type())
	}
	d.NotifType = "snamp.alarm"
	if d.Type() != "snamp.alarm" {
		t.Errorf("Type() = %q, want snamp.alarm", d.Type())
	}
	if err := (NotificationDescriptor{}).Validate(); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("Validate() error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestFeatureConfigurationClone(t *testing.T) {
	orig := AttributeFeature(AttributeDescriptor{
		Name:    "cpu",
		ID:      "cpu",
		Type:    types.Int32,
		Access:  AccessReadOnly,
		Options: Options{OptionOID: "1.3.6.1.4.1.1"},
	})

	cp := orig.Clone()
	cp.Attribute.Options[OptionOID] = "changed"
	cp.Attribute.Name = "mem"

	if got := orig.Attribute.Options[OptionOID]; got != "1.3.6.1.4.1.1" {
		t.Errorf("original oid = %q, want unchanged", got)
	}
	if got := orig.Name(); got != "cpu" {
		t.Errorf("Name() = %q, want %q", got, "cpu")
	}

	n := NotificationFeature(NotificationDescriptor{Category: "alarms"})
	if n.Feature != FeatureNotification || n.Name() != "alarms" {
		t.Errorf("NotificationFeature = %+v, want notification alarms", n)
	}
}

func TestParseFeatureType(t *testing.T) {
	for in, want := range map[string]FeatureType{
		"attribute":    FeatureAttribute,
		"Attributes":   FeatureAttribute,
		"notification": FeatureNotification,
		"events":       FeatureNotification,
	} {
		got, err := ParseFeatureType(in)
		if err != nil {
			t.Fatalf("ParseFeatureType(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFeatureType(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseFeatureType("operation"); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("ParseFeatureType(operation) error = %v, want ErrInvalidDescriptor", err)
	}
}
