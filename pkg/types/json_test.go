package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSONSimple(t *testing.T) {
	tests := []struct {
		value any
		typ   Type
		want  string
	}{
		{nil, Int32, "null"},
		{true, Bool, "true"},
		{int32(42), Int32, "42"},
		{int64(math.MaxInt64), Int64, "9223372036854775807"},
		{3.14, Float64, "3.14"},
		{"hello", String, `"hello"`},
		{time.UnixMilli(1700000000000), UnixTime, "1700000000000"},
		{[]byte{1, 2, 3}, Bytes, `"AQID"`},
		{[]any{1, 2}, NewArray(Int8), "[1,2]"},
		{int32(5), Native, "5"},
	}

	for _, tt := range tests {
		got, err := MarshalJSON(tt.value, tt.typ)
		require.NoError(t, err)
		if string(got) != tt.want {
			t.Errorf("MarshalJSON(%v, %s) = %s, want %s", tt.value, tt.typ, got, tt.want)
		}
	}
}

func TestMarshalJSONRejectsNaN(t *testing.T) {
	_, err := MarshalJSON(math.NaN(), Float64)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCompositeJSONRoundTrip(t *testing.T) {
	ct := MustComposite("row",
		Field{Name: "col1", Type: Bool},
		Field{Name: "col2", Type: Int32},
		Field{Name: "col3", Type: String},
	)
	c, err := NewCompositeData(ct, map[string]any{"col1": true, "col2": 42, "col3": "x"})
	require.NoError(t, err)

	data, err := MarshalJSON(c, ct)
	require.NoError(t, err)
	assert.Equal(t, `{"col1":true,"col2":42,"col3":"x"}`, string(data))

	back, err := UnmarshalJSON(data, ct)
	require.NoError(t, err)
	assert.True(t, c.Equal(back.(*CompositeData)))
}

func TestTabularJSON(t *testing.T) {
	tab, err := Parse("tabular(ports){name:string,speed:int64}")
	require.NoError(t, err)

	data, err := UnmarshalJSON([]byte(`[{"name":"eth0","speed":1000},{"name":"eth1"}]`), tab)
	require.NoError(t, err)

	table := data.(*TabularData)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, int64(1000), table.Row(0).Get("speed"))
	assert.Nil(t, table.Row(1).Get("speed"))

	out, err := MarshalJSON(table, tab)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"eth0","speed":1000},{"name":"eth1","speed":null}]`, string(out))
}

func TestUnmarshalJSONSimple(t *testing.T) {
	v, err := UnmarshalJSON([]byte("1700000000000"), UnixTime)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), v.(time.Time).UnixMilli())

	v, err = UnmarshalJSON([]byte("null"), Int64)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = UnmarshalJSON([]byte(`"AQID"`), Bytes)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v)

	v, err = UnmarshalJSON([]byte(`{"a":[1,2.5]}`), Native)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{int64(1), 2.5}}, v)

	_, err = UnmarshalJSON([]byte(`"abc"`), Int32)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = UnmarshalJSON([]byte(`{`), Int32)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestUnmarshalJSONUnknownField(t *testing.T) {
	ct := MustComposite("c", Field{Name: "a", Type: Int32})
	_, err := UnmarshalJSON([]byte(`{"a":1,"b":2}`), ct)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestValueJSON(t *testing.T) {
	v, err := FromJSON([]byte("12"), Int16)
	require.NoError(t, err)
	assert.Equal(t, int16(12), v.Raw)

	data, err := ToJSON(v)
	require.NoError(t, err)
	assert.Equal(t, "12", string(data))
}
