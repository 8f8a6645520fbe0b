package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

// ErrInvalidAddress is returned for malformed register addresses.
var ErrInvalidAddress = errors.New("invalid modbus address")

// Table is a Modbus data table.
type Table uint8

const (
	TableCoil Table = iota + 1
	TableDiscrete
	TableInput
	TableHolding
)

var tableNames = map[string]Table{
	"coil":     TableCoil,
	"discrete": TableDiscrete,
	"input":    TableInput,
	"holding":  TableHolding,
}

func (t Table) String() string {
	for name, v := range tableNames {
		if v == t {
			return name
		}
	}
	return "unknown"
}

// Writable reports whether the table accepts writes.
func (t Table) Writable() bool { return t == TableCoil || t == TableHolding }

// Bits reports whether the table holds single bits.
func (t Table) Bits() bool { return t == TableCoil || t == TableDiscrete }

// Address locates a value in a device.
type Address struct {
	Table  Table
	Offset uint16
	Count  uint16
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%d:%d", a.Table, a.Offset, a.Count)
}

// ParseAddress parses table:offset[:count] and fills in the count from t.
func ParseAddress(s string, t types.Type) (Address, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	table, ok := tableNames[strings.ToLower(parts[0])]
	if !ok {
		return Address{}, fmt.Errorf("%w: unknown table %q", ErrInvalidAddress, parts[0])
	}
	off, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("%w: offset %q", ErrInvalidAddress, parts[1])
	}
	a := Address{Table: table, Offset: uint16(off)}
	if len(parts) == 3 {
		n, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil || n == 0 || n > 125 {
			return Address{}, fmt.Errorf("%w: count %q", ErrInvalidAddress, parts[2])
		}
		a.Count = uint16(n)
	}

	if table.Bits() {
		if t.Kind() != types.KindBool {
			return Address{}, fmt.Errorf("%w: %s table holds bool, not %s", types.ErrUnsupportedType, table, t)
		}
		a.Count = 1
		return a, nil
	}
	width, err := registerWidth(t)
	if err != nil {
		return Address{}, err
	}
	if width > 0 {
		a.Count = width
	} else if a.Count == 0 {
		return Address{}, fmt.Errorf("%w: %s needs a register count", ErrInvalidAddress, t)
	}
	return a, nil
}

// registerWidth returns the fixed register count of t, or 0 for variable
// width types.
func registerWidth(t types.Type) (uint16, error) {
	switch t.Kind() {
	case types.KindBool, types.KindInt8, types.KindInt16:
		return 1, nil
	case types.KindInt32, types.KindFloat32:
		return 2, nil
	case types.KindInt64, types.KindFloat64:
		return 4, nil
	case types.KindString, types.KindBytes:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s in modbus registers", types.ErrUnsupportedType, t)
}

// decode converts register bytes to the canonical form of t.
func decode(b []byte, a Address, t types.Type) (any, error) {
	if a.Table.Bits() {
		if len(b) < 1 {
			return nil, fmt.Errorf("%w: empty coil response", ErrInvalidAddress)
		}
		return b[0]&1 == 1, nil
	}
	if len(b) < int(a.Count)*2 {
		return nil, fmt.Errorf("%w: short response for %s: %d bytes", ErrInvalidAddress, a, len(b))
	}
	switch t.Kind() {
	case types.KindBool:
		return binary.BigEndian.Uint16(b) != 0, nil
	case types.KindInt8:
		return types.Convert(int64(int16(binary.BigEndian.Uint16(b))), types.Int64, t)
	case types.KindInt16:
		return int16(binary.BigEndian.Uint16(b)), nil
	case types.KindInt32:
		return int32(binary.BigEndian.Uint32(b)), nil
	case types.KindFloat32:
		return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
	case types.KindInt64:
		return int64(binary.BigEndian.Uint64(b)), nil
	case types.KindFloat64:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case types.KindString:
		return strings.TrimRight(string(b[:a.Count*2]), "\x00"), nil
	case types.KindBytes:
		out := make([]byte, a.Count*2)
		copy(out, b)
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedType, t)
}

// encode converts a value of type t to register bytes.
func encode(v any, a Address, t types.Type) ([]byte, error) {
	c, err := types.Convert(v, types.Native, t)
	if err != nil {
		return nil, err
	}
	out := make([]byte, int(a.Count)*2)
	switch x := c.(type) {
	case bool:
		if x {
			binary.BigEndian.PutUint16(out, 1)
		}
	case int8:
		binary.BigEndian.PutUint16(out, uint16(int16(x)))
	case int16:
		binary.BigEndian.PutUint16(out, uint16(x))
	case int32:
		binary.BigEndian.PutUint32(out, uint32(x))
	case float32:
		binary.BigEndian.PutUint32(out, math.Float32bits(x))
	case int64:
		binary.BigEndian.PutUint64(out, uint64(x))
	case float64:
		binary.BigEndian.PutUint64(out, math.Float64bits(x))
	case string:
		if len(x) > len(out) {
			return nil, fmt.Errorf("%w: %d bytes exceed %d registers", types.ErrTypeMismatch, len(x), a.Count)
		}
		copy(out, x)
	case []byte:
		if len(x) > len(out) {
			return nil, fmt.Errorf("%w: %d bytes exceed %d registers", types.ErrTypeMismatch, len(x), a.Count)
		}
		copy(out, x)
	default:
		return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedType, c)
	}
	return out, nil
}
