package types

import (
	"errors"
	"fmt"
	"strings"
)

// Conversion errors.
var (
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrInvalidType     = errors.New("invalid type definition")
)

// Kind identifies the shape of a type.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindUnixTime
	KindBytes
	KindArray
	KindComposite
	KindTabular
	KindNative
)

// String returns the kind name as used in configuration.
func (k Kind) String() string {
	names := []string{
		"unknown", "bool", "int8", "int16", "int32", "int64",
		"float32", "float64", "decimal", "string", "unixtime", "bytes",
		"array", "composite", "tabular", "native",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// IsInteger returns true for the signed integer kinds.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsNumeric returns true for integer, floating point and decimal kinds.
func (k Kind) IsNumeric() bool {
	return k >= KindInt8 && k <= KindDecimal
}

// IsSimple returns true for kinds that are not structured.
func (k Kind) IsSimple() bool {
	return k >= KindBool && k <= KindBytes
}

// Type describes the shape of a value.
type Type interface {
	// Kind returns the type's kind.
	Kind() Kind

	// String returns the type in the syntax accepted by Parse.
	String() string
}

// SimpleType is a scalar type identified by its kind alone.
type SimpleType struct {
	kind Kind
}

// Kind returns the scalar kind.
func (s SimpleType) Kind() Kind { return s.kind }

// String returns the kind name.
func (s SimpleType) String() string { return s.kind.String() }

// Predefined simple types.
var (
	Bool     Type = SimpleType{kind: KindBool}
	Int8     Type = SimpleType{kind: KindInt8}
	Int16    Type = SimpleType{kind: KindInt16}
	Int32    Type = SimpleType{kind: KindInt32}
	Int64    Type = SimpleType{kind: KindInt64}
	Float32  Type = SimpleType{kind: KindFloat32}
	Float64  Type = SimpleType{kind: KindFloat64}
	Decimal  Type = SimpleType{kind: KindDecimal}
	String   Type = SimpleType{kind: KindString}
	UnixTime Type = SimpleType{kind: KindUnixTime}
	Bytes    Type = SimpleType{kind: KindBytes}

	// Native is the type of values whose shape is given by their Go type.
	Native Type = SimpleType{kind: KindNative}
)

// Simple returns the predefined simple type for a kind.
func Simple(k Kind) (Type, bool) {
	if !k.IsSimple() && k != KindNative {
		return nil, false
	}
	return SimpleType{kind: k}, true
}

// ArrayType is a homogeneous sequence.
type ArrayType struct {
	Elem Type
}

// NewArray creates an array type with the given element type.
func NewArray(elem Type) *ArrayType {
	return &ArrayType{Elem: elem}
}

// Kind returns KindArray.
func (a *ArrayType) Kind() Kind { return KindArray }

// String returns "array(<elem>)".
func (a *ArrayType) String() string {
	return "array(" + a.Elem.String() + ")"
}

// Field is a named member of a composite type.
type Field struct {
	Name        string
	Description string
	Type        Type
}

// CompositeType is a record of named, individually typed fields.
type CompositeType struct {
	name   string
	fields []Field
	index  map[string]int
}

// NewComposite creates a composite type. Field names must be unique and
// non-empty.
func NewComposite(name string, fields ...Field) (*CompositeType, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: composite %q has no fields", ErrInvalidType, name)
	}
	c := &CompositeType{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: composite %q has an unnamed field", ErrInvalidType, name)
		}
		if f.Type == nil {
			return nil, fmt.Errorf("%w: field %q has no type", ErrInvalidType, f.Name)
		}
		if _, dup := c.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidType, f.Name)
		}
		c.fields[i] = f
		c.index[f.Name] = i
	}
	return c, nil
}

// MustComposite is like NewComposite but panics on error.
func MustComposite(name string, fields ...Field) *CompositeType {
	c, err := NewComposite(name, fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// Kind returns KindComposite.
func (c *CompositeType) Kind() Kind { return KindComposite }

// Name returns the composite type name.
func (c *CompositeType) Name() string { return c.name }

// Fields returns a copy of the fields in declaration order.
func (c *CompositeType) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Field returns the field with the given name.
func (c *CompositeType) Field(name string) (Field, bool) {
	i, ok := c.index[name]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// Len returns the number of fields.
func (c *CompositeType) Len() int { return len(c.fields) }

// String returns "composite(<name>){f:t,...}".
func (c *CompositeType) String() string {
	var b strings.Builder
	b.WriteString("composite(")
	b.WriteString(c.name)
	b.WriteString("){")
	writeFields(&b, c.fields)
	b.WriteString("}")
	return b.String()
}

// TabularType is a sequence of composite rows.
type TabularType struct {
	name  string
	row   *CompositeType
	index []string
}

// NewTabular creates a tabular type. Index columns, if given, must exist in
// the row type.
func NewTabular(name string, row *CompositeType, index ...string) (*TabularType, error) {
	if row == nil {
		return nil, fmt.Errorf("%w: table %q has no row type", ErrInvalidType, name)
	}
	for _, col := range index {
		if _, ok := row.Field(col); !ok {
			return nil, fmt.Errorf("%w: index column %q not in row type", ErrInvalidType, col)
		}
	}
	return &TabularType{name: name, row: row, index: append([]string(nil), index...)}, nil
}

// Kind returns KindTabular.
func (t *TabularType) Kind() Kind { return KindTabular }

// Name returns the table type name.
func (t *TabularType) Name() string { return t.name }

// Row returns the row type.
func (t *TabularType) Row() *CompositeType { return t.row }

// Index returns the index column names.
func (t *TabularType) Index() []string {
	return append([]string(nil), t.index...)
}

// String returns "tabular(<name>){f:t,...}".
func (t *TabularType) String() string {
	var b strings.Builder
	b.WriteString("tabular(")
	b.WriteString(t.name)
	b.WriteString("){")
	writeFields(&b, t.row.fields)
	b.WriteString("}")
	return b.String()
}

func writeFields(b *strings.Builder, fields []Field) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(f.Name)
		b.WriteString(":")
		b.WriteString(f.Type.String())
	}
}

// Equal reports whether two types are structurally identical.
// Composite and tabular names are ignored.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case *ArrayType:
		return Equal(at.Elem, b.(*ArrayType).Elem)
	case *CompositeType:
		return fieldsEqual(at, b.(*CompositeType))
	case *TabularType:
		return fieldsEqual(at.row, b.(*TabularType).row)
	default:
		return true
	}
}

func fieldsEqual(a, b *CompositeType) bool {
	if len(a.fields) != len(b.fields) {
		return false
	}
	for i := range a.fields {
		if a.fields[i].Name != b.fields[i].Name || !Equal(a.fields[i].Type, b.fields[i].Type) {
			return false
		}
	}
	return true
}
