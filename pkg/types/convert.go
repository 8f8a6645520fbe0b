package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Convert converts value, interpreted as type from, into the canonical
// representation of type to. A nil value converts to nil for every type.
func Convert(value any, from, to Type) (any, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidType)
	}
	if value == nil {
		return nil, nil
	}
	src, err := coerce(value, from)
	if err != nil {
		return nil, err
	}
	return coerce(src, to)
}

// CanConvert reports whether values of type from can in principle be
// converted to type to. Conversions from strings and Native are checked at
// runtime and always report true here.
func CanConvert(from, to Type) bool {
	if from == nil || to == nil {
		return false
	}
	fk, tk := from.Kind(), to.Kind()
	if fk == KindNative || tk == KindNative {
		return true
	}
	switch tk {
	case KindArray:
		fa, ok := from.(*ArrayType)
		return ok && CanConvert(fa.Elem, to.(*ArrayType).Elem)
	case KindComposite:
		fc, ok := from.(*CompositeType)
		return ok && compositeConvertible(fc, to.(*CompositeType))
	case KindTabular:
		ft, ok := from.(*TabularType)
		return ok && compositeConvertible(ft.row, to.(*TabularType).row)
	}
	if !fk.IsSimple() || !tk.IsSimple() {
		return false
	}
	return scalarConvertible(fk, tk)
}

func scalarConvertible(from, to Kind) bool {
	switch {
	case from == to:
		return true
	case to == KindString, from == KindString:
		return true
	case from.IsNumeric() && to.IsNumeric():
		return true
	case from == KindBool && to.IsInteger(), from.IsInteger() && to == KindBool:
		return true
	case from == KindUnixTime && to == KindInt64, from == KindInt64 && to == KindUnixTime:
		return true
	}
	return false
}

func compositeConvertible(from, to *CompositeType) bool {
	if len(from.fields) != len(to.fields) {
		return false
	}
	for _, f := range to.fields {
		sf, ok := from.Field(f.Name)
		if !ok || !CanConvert(sf.Type, f.Type) {
			return false
		}
	}
	return true
}

func mismatch(v any, to Type) error {
	return fmt.Errorf("%w: cannot convert %T to %s", ErrTypeMismatch, v, to)
}

// coerce converts any supported Go value to the canonical form of to.
func coerce(v any, to Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch to.Kind() {
	case KindNative:
		return v, nil
	case KindBool:
		return toBool(v, to)
	case KindInt8:
		n, err := toIntN(v, to, math.MinInt8, math.MaxInt8)
		return int8(n), err
	case KindInt16:
		n, err := toIntN(v, to, math.MinInt16, math.MaxInt16)
		return int16(n), err
	case KindInt32:
		n, err := toIntN(v, to, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case KindInt64:
		return toInt64(v, to)
	case KindFloat32:
		fa, err := toFloat64(v, to)
		if err != nil {
			return nil, err
		}
		f := fa.(float64)
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: %v overflows float32", ErrTypeMismatch, v)
		}
		return float32(f), nil
	case KindFloat64:
		return toFloat64(v, to)
	case KindDecimal:
		return toDecimal(v, to)
	case KindString:
		return toString(v, to)
	case KindUnixTime:
		return toTime(v, to)
	case KindBytes:
		return toBytes(v, to)
	case KindArray:
		at, ok := to.(*ArrayType)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, to)
		}
		return toArray(v, at)
	case KindComposite:
		ct, ok := to.(*CompositeType)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, to)
		}
		return toComposite(v, ct)
	case KindTabular:
		tt, ok := to.(*TabularType)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, to)
		}
		return toTabular(v, tt)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, to)
}

func toBool(v any, to Type) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, mismatch(v, to)
		}
		return parsed, nil
	}
	if n, err := toInt64(v, to); err == nil {
		return n.(int64) != 0, nil
	}
	if f, err := toFloat64(v, to); err == nil {
		return f.(float64) != 0, nil
	}
	return nil, mismatch(v, to)
}

func toIntN(v any, to Type, min, max int64) (int64, error) {
	n, err := toInt64(v, to)
	if err != nil {
		return 0, err
	}
	i := n.(int64)
	if i < min || i > max {
		return 0, fmt.Errorf("%w: %d out of range for %s", ErrTypeMismatch, i, to)
	}
	return i, nil
}

func toInt64(v any, to Type) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n), v, to)
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n, v, to)
	case float32:
		return floatToInt64(float64(n), v, to)
	case float64:
		return floatToInt64(n, v, to)
	case *big.Float:
		if n == nil || !n.IsInt() {
			return nil, mismatch(v, to)
		}
		i, acc := n.Int64()
		if acc != big.Exact {
			return nil, fmt.Errorf("%w: %s out of range for %s", ErrTypeMismatch, n.Text('g', -1), to)
		}
		return i, nil
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt64(f, v, to)
		}
		return nil, mismatch(v, to)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return toInt64(string(n), to)
	case time.Time:
		return n.UnixMilli(), nil
	}
	return nil, mismatch(v, to)
}

func uintToInt64(u uint64, v any, to Type) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %v out of range for %s", ErrTypeMismatch, v, to)
	}
	return int64(u), nil
}

func floatToInt64(f float64, v any, to Type) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, mismatch(v, to)
	}
	if f < -9.223372036854775808e18 || f >= 9.223372036854775808e18 {
		return nil, fmt.Errorf("%w: %v out of range for %s", ErrTypeMismatch, v, to)
	}
	return int64(f), nil
}

func toFloat64(v any, to Type) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case *big.Float:
		if n == nil {
			return nil, mismatch(v, to)
		}
		f, _ := n.Float64()
		return f, nil
	case bool:
		if n {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, mismatch(v, to)
		}
		return f, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, mismatch(v, to)
		}
		return f, nil
	}
	return nil, mismatch(v, to)
}

func toDecimal(v any, to Type) (any, error) {
	switch n := v.(type) {
	case *big.Float:
		if n == nil {
			return nil, nil
		}
		return new(big.Float).Copy(n), nil
	case string:
		f, ok := new(big.Float).SetString(strings.TrimSpace(n))
		if !ok {
			return nil, mismatch(v, to)
		}
		return f, nil
	case json.Number:
		return toDecimal(string(n), to)
	case uint64:
		return new(big.Float).SetUint64(n), nil
	case uint:
		return new(big.Float).SetUint64(uint64(n)), nil
	case float32, float64:
		f, _ := toFloat64(v, to)
		ff := f.(float64)
		if math.IsNaN(ff) {
			return nil, mismatch(v, to)
		}
		return new(big.Float).SetFloat64(ff), nil
	}
	if i, err := toInt64(v, to); err == nil {
		return new(big.Float).SetInt64(i.(int64)), nil
	}
	return nil, mismatch(v, to)
}

func toString(v any, to Type) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case bool:
		return strconv.FormatBool(s), nil
	case int:
		return strconv.Itoa(s), nil
	case int8:
		return strconv.FormatInt(int64(s), 10), nil
	case int16:
		return strconv.FormatInt(int64(s), 10), nil
	case int32:
		return strconv.FormatInt(int64(s), 10), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case uint:
		return strconv.FormatUint(uint64(s), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(s), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(s), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(s), 10), nil
	case uint64:
		return strconv.FormatUint(s, 10), nil
	case float32:
		return strconv.FormatFloat(float64(s), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), nil
	case *big.Float:
		if s == nil {
			return nil, nil
		}
		return s.Text('g', -1), nil
	case time.Time:
		return s.Format(time.RFC3339Nano), nil
	case []byte:
		return string(s), nil
	case json.Number:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return nil, mismatch(v, to)
}

func toTime(v any, to Type) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed, nil
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, mismatch(v, to)
		}
		return time.UnixMilli(ms), nil
	case bool:
		return nil, mismatch(v, to)
	}
	ms, err := toInt64(v, to)
	if err != nil {
		return nil, err
	}
	return time.UnixMilli(ms.(int64)), nil
}

func toBytes(v any, to Type) (any, error) {
	switch b := v.(type) {
	case []byte:
		return bytes.Clone(b), nil
	case string:
		return []byte(b), nil
	}
	return nil, mismatch(v, to)
}

func toArray(v any, at *ArrayType) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(v, at)
	}
	out := make([]any, rv.Len())
	for i := range out {
		elem, err := coerce(rv.Index(i).Interface(), at.Elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = elem
	}
	return out, nil
}

func toComposite(v any, ct *CompositeType) (any, error) {
	switch c := v.(type) {
	case *CompositeData:
		return convertComposite(c, ct)
	case map[string]any:
		return NewCompositeData(ct, c)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, mismatch(v, ct)
	}
	items := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		items[iter.Key().String()] = iter.Value().Interface()
	}
	return NewCompositeData(ct, items)
}

func convertComposite(src *CompositeData, ct *CompositeType) (*CompositeData, error) {
	if src.typ == ct {
		return src, nil
	}
	if len(src.typ.fields) != len(ct.fields) {
		return nil, mismatch(src, ct)
	}
	values := make(map[string]any, len(ct.fields))
	for _, f := range ct.fields {
		sf, ok := src.typ.Field(f.Name)
		if !ok {
			return nil, fmt.Errorf("%w: field %q missing in %s", ErrTypeMismatch, f.Name, src.typ.name)
		}
		val, err := Convert(src.values[f.Name], sf.Type, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		values[f.Name] = val
	}
	return &CompositeData{typ: ct, values: values}, nil
}

func toTabular(v any, tt *TabularType) (any, error) {
	if t, ok := v.(*TabularData); ok {
		if t.typ == tt {
			return t, nil
		}
		return convertRows(t.rows, tt)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(v, tt)
	}
	rows := make([]*CompositeData, rv.Len())
	for i := range rows {
		row, err := toComposite(rv.Index(i).Interface(), tt.row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row.(*CompositeData)
	}
	return &TabularData{typ: tt, rows: rows}, nil
}

func convertRows(src []*CompositeData, tt *TabularType) (*TabularData, error) {
	rows := make([]*CompositeData, len(src))
	for i, r := range src {
		row, err := convertComposite(r, tt.row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row
	}
	return &TabularData{typ: tt, rows: rows}, nil
}

// TypeOf infers the open type of a canonical Go value. Values without an
// open type equivalent report Native.
func TypeOf(v any) Type {
	switch t := v.(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int, int64, uint8, uint16, uint32:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	case *big.Float:
		return Decimal
	case string:
		return String
	case time.Time:
		return UnixTime
	case []byte:
		return Bytes
	case *CompositeData:
		return t.typ
	case *TabularData:
		return t.typ
	}
	return Native
}

// ValuesEqual compares two canonical values.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case *big.Float:
		bv, ok := b.(*big.Float)
		return ok && av.Cmp(bv) == 0
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case *CompositeData:
		bv, ok := b.(*CompositeData)
		return ok && av.Equal(bv)
	case *TabularData:
		bv, ok := b.(*TabularData)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
