package wire

import (
	"fmt"
	"math/big"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

// ToWire converts a value of type t to a CBOR-friendly form.
func ToWire(value any, t types.Type) (any, error) {
	if value == nil {
		return nil, nil
	}
	canonical, err := types.Convert(value, types.Native, t)
	if err != nil {
		return nil, err
	}
	return toWire(canonical)
}

func toWire(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *big.Float:
		if x == nil {
			return nil, nil
		}
		return x.Text('g', -1), nil
	case time.Time:
		return x.UnixMilli(), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			w, err := toWire(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = w
		}
		return out, nil
	case *types.CompositeData:
		return compositeToWire(x)
	case *types.TabularData:
		rows := make([]any, x.Len())
		for i, r := range x.Rows() {
			w, err := compositeToWire(r)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows[i] = w
		}
		return rows, nil
	}
	return v, nil
}

func compositeToWire(c *types.CompositeData) (map[string]any, error) {
	out := make(map[string]any, c.Type().Len())
	for name, v := range c.Values() {
		w, err := toWire(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = w
	}
	return out, nil
}

// FromWire converts a decoded CBOR value to the canonical form of t.
func FromWire(raw any, t types.Type) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return types.Convert(raw, types.Native, t)
}
