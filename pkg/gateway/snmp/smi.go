package snmp

import (
	"fmt"
	"math"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

// TruthValue encodings (SNMPv2-TC).
const (
	truthTrue  = 1
	truthFalse = 2
)

// Mapper converts values between open types and SMI. TimeTicks count
// hundredths of a second since Epoch.
type Mapper struct {
	Epoch time.Time
}

// NewMapper returns a mapper whose TimeTicks count from epoch.
func NewMapper(epoch time.Time) Mapper {
	return Mapper{Epoch: epoch}
}

// ToSMI converts value, declared as type t, to an SMI type and value. On
// failure it still returns a zero-value placeholder for the varbind.
func (m Mapper) ToSMI(value any, t types.Type) (gosnmp.Asn1BER, any, error) {
	if value == nil {
		return gosnmp.Null, nil, nil
	}
	if t == nil || t.Kind() == types.KindNative {
		t = types.TypeOf(value)
	}
	v, err := types.Convert(value, types.Native, t)
	if err != nil {
		asn, zero := placeholder(t)
		return asn, zero, err
	}

	switch t.Kind() {
	case types.KindBool:
		if v.(bool) {
			return gosnmp.Integer, truthTrue, nil
		}
		return gosnmp.Integer, truthFalse, nil
	case types.KindInt8:
		return gosnmp.Integer, int(v.(int8)), nil
	case types.KindInt16:
		return gosnmp.Integer, int(v.(int16)), nil
	case types.KindInt32:
		return gosnmp.Integer, int(v.(int32)), nil
	case types.KindInt64:
		n := v.(int64)
		if n < 0 {
			return gosnmp.Counter64, uint64(0), fmt.Errorf("%w: %d is negative for Counter64", types.ErrTypeMismatch, n)
		}
		return gosnmp.Counter64, uint64(n), nil
	case types.KindFloat32, types.KindFloat64, types.KindDecimal, types.KindString:
		s, err := types.Convert(v, t, types.String)
		if err != nil {
			return gosnmp.OctetString, []byte{}, err
		}
		return gosnmp.OctetString, []byte(s.(string)), nil
	case types.KindUnixTime:
		return gosnmp.TimeTicks, m.ticks(v.(time.Time)), nil
	case types.KindBytes:
		return gosnmp.OctetString, v.([]byte), nil
	}
	return gosnmp.Null, nil, fmt.Errorf("%w: %s has no SMI mapping", types.ErrUnsupportedType, t)
}

// placeholder returns the zero varbind value of t.
func placeholder(t types.Type) (gosnmp.Asn1BER, any) {
	switch t.Kind() {
	case types.KindBool, types.KindInt8, types.KindInt16, types.KindInt32:
		return gosnmp.Integer, 0
	case types.KindInt64:
		return gosnmp.Counter64, uint64(0)
	case types.KindFloat32, types.KindFloat64, types.KindDecimal, types.KindString, types.KindBytes:
		return gosnmp.OctetString, []byte{}
	case types.KindUnixTime:
		return gosnmp.TimeTicks, uint32(0)
	}
	return gosnmp.Null, nil
}

// ticks converts t to hundredths of a second since the epoch, clamped to
// the uint32 range.
func (m Mapper) ticks(t time.Time) uint32 {
	d := t.Sub(m.Epoch)
	if d <= 0 {
		return 0
	}
	cs := d / (10 * time.Millisecond)
	if cs > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(cs)
}

// FromSMI converts a varbind value to the canonical form of t.
func (m Mapper) FromSMI(asn gosnmp.Asn1BER, raw any, t types.Type) (any, error) {
	if t == nil {
		t = types.Native
	}
	switch asn {
	case gosnmp.Null:
		return nil, nil
	case gosnmp.Integer:
		if t.Kind() == types.KindBool {
			switch raw {
			case truthTrue:
				return true, nil
			case truthFalse, 0:
				return false, nil
			}
			return nil, fmt.Errorf("%w: %v is not a TruthValue", types.ErrTypeMismatch, raw)
		}
		return types.Convert(raw, types.Native, t)
	case gosnmp.OctetString:
		var b []byte
		switch x := raw.(type) {
		case []byte:
			b = x
		case string:
			b = []byte(x)
		default:
			return nil, fmt.Errorf("%w: OCTET STRING holds %T", types.ErrTypeMismatch, raw)
		}
		if t.Kind() == types.KindBytes || t.Kind() == types.KindNative {
			return types.Convert(b, types.Bytes, t)
		}
		return types.Convert(string(b), types.String, t)
	case gosnmp.TimeTicks:
		if t.Kind() == types.KindUnixTime {
			n, ok := raw.(uint32)
			if !ok {
				return nil, fmt.Errorf("%w: TimeTicks holds %T", types.ErrTypeMismatch, raw)
			}
			return m.Epoch.Add(time.Duration(n) * 10 * time.Millisecond), nil
		}
		return types.Convert(raw, types.Native, t)
	case gosnmp.Counter64, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Uinteger32:
		return types.Convert(raw, types.Native, t)
	}
	return nil, fmt.Errorf("%w: SMI type %s", types.ErrUnsupportedType, asn)
}

// PDU builds the varbind of value at name.
func (m Mapper) PDU(name OID, value any, t types.Type) (gosnmp.SnmpPDU, error) {
	asn, v, err := m.ToSMI(value, t)
	return gosnmp.SnmpPDU{Name: name.String(), Type: asn, Value: v}, err
}
