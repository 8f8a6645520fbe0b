package types

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"
)

// MarshalJSON renders value, declared as type t, as JSON.
//
// Null renders as null, numbers as JSON numbers, unix time as epoch
// milliseconds, bytes as base64 strings, composites as objects keyed by
// field name in declaration order and tables as arrays of objects.
func MarshalJSON(value any, t Type) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, value, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSON renders a Value as JSON.
func ToJSON(v Value) ([]byte, error) {
	return MarshalJSON(v.Raw, v.typ())
}

// UnmarshalJSON decodes JSON into the canonical representation of t.
func UnmarshalJSON(data []byte, t Type) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return fromJSON(raw, t)
}

// FromJSON decodes JSON into a Value of type t.
func FromJSON(data []byte, t Type) (Value, error) {
	raw, err := UnmarshalJSON(data, t)
	if err != nil {
		return Value{}, err
	}
	return NewValue(raw, t), nil
}

func appendJSON(buf *bytes.Buffer, value any, t Type) error {
	if value == nil {
		buf.WriteString("null")
		return nil
	}
	if t == nil || t.Kind() == KindNative {
		t = TypeOf(value)
		if t.Kind() == KindNative {
			return appendNative(buf, value)
		}
	}
	v, err := coerce(value, t)
	if err != nil {
		return err
	}
	switch t.Kind() {
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.(bool)))
	case KindInt8:
		buf.WriteString(strconv.FormatInt(int64(v.(int8)), 10))
	case KindInt16:
		buf.WriteString(strconv.FormatInt(int64(v.(int16)), 10))
	case KindInt32:
		buf.WriteString(strconv.FormatInt(int64(v.(int32)), 10))
	case KindInt64:
		buf.WriteString(strconv.FormatInt(v.(int64), 10))
	case KindFloat32:
		return appendFloat(buf, float64(v.(float32)), 32)
	case KindFloat64:
		return appendFloat(buf, v.(float64), 64)
	case KindDecimal:
		d := v.(*big.Float)
		if d.IsInf() {
			return fmt.Errorf("%w: infinite decimal", ErrUnsupportedType)
		}
		buf.WriteString(d.Text('g', -1))
	case KindString:
		return appendNative(buf, v.(string))
	case KindUnixTime:
		buf.WriteString(strconv.FormatInt(v.(time.Time).UnixMilli(), 10))
	case KindBytes:
		buf.WriteByte('"')
		buf.WriteString(base64.StdEncoding.EncodeToString(v.([]byte)))
		buf.WriteByte('"')
	case KindArray:
		elem := t.(*ArrayType).Elem
		buf.WriteByte('[')
		for i, e := range v.([]any) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, e, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindComposite:
		return appendComposite(buf, v.(*CompositeData))
	case KindTabular:
		buf.WriteByte('[')
		for i, row := range v.(*TabularData).rows {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendComposite(buf, row); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return nil
}

func appendComposite(buf *bytes.Buffer, c *CompositeData) error {
	buf.WriteByte('{')
	for i, f := range c.typ.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendNative(buf, f.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := appendJSON(buf, c.values[f.Name], f.Type); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func appendFloat(buf *bytes.Buffer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v has no JSON representation", ErrUnsupportedType, f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

func appendNative(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	buf.Write(data)
	return nil
}

func fromJSON(raw any, t Type) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch t.Kind() {
	case KindNative:
		return nativeJSON(raw), nil
	case KindBytes:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(raw, t)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return b, nil
	case KindArray:
		items, ok := raw.([]any)
		if !ok {
			return nil, mismatch(raw, t)
		}
		elem := t.(*ArrayType).Elem
		out := make([]any, len(items))
		for i, item := range items {
			v, err := fromJSON(item, elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case KindComposite:
		return compositeFromJSON(raw, t.(*CompositeType))
	case KindTabular:
		tt := t.(*TabularType)
		items, ok := raw.([]any)
		if !ok {
			return nil, mismatch(raw, t)
		}
		rows := make([]*CompositeData, len(items))
		for i, item := range items {
			row, err := compositeFromJSON(item, tt.row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows[i] = row
		}
		return &TabularData{typ: tt, rows: rows}, nil
	}
	return coerce(raw, t)
}

func compositeFromJSON(raw any, ct *CompositeType) (*CompositeData, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, mismatch(raw, ct)
	}
	values := make(map[string]any, len(ct.fields))
	for k, item := range obj {
		f, ok := ct.Field(k)
		if !ok {
			return nil, fmt.Errorf("%w: field %q not in %s", ErrTypeMismatch, k, ct.name)
		}
		v, err := fromJSON(item, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		values[k] = v
	}
	for _, f := range ct.fields {
		if _, ok := values[f.Name]; !ok {
			values[f.Name] = nil
		}
	}
	return &CompositeData{typ: ct, values: values}, nil
}

func nativeJSON(raw any) any {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = nativeJSON(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = nativeJSON(v[k])
		}
		return v
	}
	return raw
}
