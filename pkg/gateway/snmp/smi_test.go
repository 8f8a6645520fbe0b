package snmp

import (
	"errors"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

func TestToSMI(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMapper(epoch)

	tests := []struct {
		name    string
		value   any
		typ     types.Type
		wantASN gosnmp.Asn1BER
		want    any
	}{
		{"null", nil, types.Int32, gosnmp.Null, nil},
		{"true", true, types.Bool, gosnmp.Integer, 1},
		{"false", false, types.Bool, gosnmp.Integer, 2},
		{"int8", int8(-5), types.Int8, gosnmp.Integer, -5},
		{"int32", int32(70000), types.Int32, gosnmp.Integer, 70000},
		{"int64", int64(1) << 40, types.Int64, gosnmp.Counter64, uint64(1) << 40},
		{"float", 0.25, types.Float64, gosnmp.OctetString, []byte("0.25")},
		{"string", "eth0", types.String, gosnmp.OctetString, []byte("eth0")},
		{"bytes", []byte{1, 2}, types.Bytes, gosnmp.OctetString, []byte{1, 2}},
		{"unix time", epoch.Add(90 * time.Second), types.UnixTime, gosnmp.TimeTicks, uint32(9000)},
		{"before epoch", epoch.Add(-time.Hour), types.UnixTime, gosnmp.TimeTicks, uint32(0)},
		{"inferred", "x", nil, gosnmp.OctetString, []byte("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asn, v, err := m.ToSMI(tt.value, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.wantASN, asn)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestToSMIPlaceholders(t *testing.T) {
	m := NewMapper(time.Now())

	asn, v, err := m.ToSMI(int64(-1), types.Int64)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	assert.Equal(t, gosnmp.Counter64, asn)
	assert.Equal(t, uint64(0), v)

	asn, v, err = m.ToSMI("abc", types.Int32)
	assert.Error(t, err)
	assert.Equal(t, gosnmp.Integer, asn)
	assert.Equal(t, 0, v)

	asn, v, err = m.ToSMI([]any{int32(1)}, types.NewArray(types.Int32))
	assert.ErrorIs(t, err, types.ErrUnsupportedType)
	assert.Equal(t, gosnmp.Null, asn)
	assert.Nil(t, v)
}

func TestFromSMI(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMapper(epoch)

	tests := []struct {
		name string
		asn  gosnmp.Asn1BER
		raw  any
		typ  types.Type
		want any
	}{
		{"truth true", gosnmp.Integer, 1, types.Bool, true},
		{"truth false", gosnmp.Integer, 2, types.Bool, false},
		{"integer", gosnmp.Integer, 12, types.Int32, int32(12)},
		{"octets to string", gosnmp.OctetString, []byte("web"), types.String, "web"},
		{"octets to float", gosnmp.OctetString, []byte("1.5"), types.Float64, 1.5},
		{"octets to bytes", gosnmp.OctetString, []byte{9}, types.Bytes, []byte{9}},
		{"ticks", gosnmp.TimeTicks, uint32(150), types.UnixTime, epoch.Add(1500 * time.Millisecond)},
		{"counter64", gosnmp.Counter64, uint64(7), types.Int64, int64(7)},
		{"gauge", gosnmp.Gauge32, uint32(3), types.Int16, int16(3)},
		{"null", gosnmp.Null, nil, types.String, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.FromSMI(tt.asn, tt.raw, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	if _, err := m.FromSMI(gosnmp.Integer, 3, types.Bool); !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("FromSMI(3, bool) error = %v, want ErrTypeMismatch", err)
	}
	if _, err := m.FromSMI(gosnmp.IPAddress, "10.0.0.1", types.String); !errors.Is(err, types.ErrUnsupportedType) {
		t.Errorf("FromSMI(IPAddress) error = %v, want ErrUnsupportedType", err)
	}
}
