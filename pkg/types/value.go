package types

// Value pairs a raw value with its declared type. Gateways and the registry
// pass Values around without committing to a representation.
type Value struct {
	Raw  any
	Type Type
}

// NewValue creates a Value. A nil type is treated as Native.
func NewValue(raw any, t Type) Value {
	if t == nil {
		t = Native
	}
	return Value{Raw: raw, Type: t}
}

// IsNull returns true if the raw value is nil.
func (v Value) IsNull() bool { return v.Raw == nil }

// CanConvertTo reports whether the value's type converts to t.
func (v Value) CanConvertTo(t Type) bool {
	return CanConvert(v.typ(), t)
}

// CanConvertFrom reports whether values of type t convert to the value's type.
func (v Value) CanConvertFrom(t Type) bool {
	return CanConvert(t, v.typ())
}

// ConvertTo converts the raw value to t.
func (v Value) ConvertTo(t Type) (any, error) {
	return Convert(v.Raw, v.typ(), t)
}

// Canonical returns the raw value in the canonical form of its type.
func (v Value) Canonical() (any, error) {
	return Convert(v.Raw, Native, v.typ())
}

// Equal compares two values by type and canonical content.
func (v Value) Equal(other Value) bool {
	if !Equal(v.typ(), other.typ()) {
		return false
	}
	return ValuesEqual(v.Raw, other.Raw)
}

func (v Value) typ() Type {
	if v.Type == nil {
		return Native
	}
	return v.Type
}
