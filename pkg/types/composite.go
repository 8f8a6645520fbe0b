package types

import (
	"fmt"
)

// CompositeData is an immutable composite value.
type CompositeData struct {
	typ    *CompositeType
	values map[string]any
}

// NewCompositeData builds a composite value. Each item is converted to its
// field's type; missing fields are null and unknown keys are rejected.
func NewCompositeData(t *CompositeType, items map[string]any) (*CompositeData, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil composite type", ErrInvalidType)
	}
	for k := range items {
		if _, ok := t.index[k]; !ok {
			return nil, fmt.Errorf("%w: field %q not in %s", ErrTypeMismatch, k, t.name)
		}
	}
	values := make(map[string]any, len(t.fields))
	for _, f := range t.fields {
		v, err := Convert(items[f.Name], Native, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		values[f.Name] = v
	}
	return &CompositeData{typ: t, values: values}, nil
}

// Type returns the composite type.
func (c *CompositeData) Type() *CompositeType { return c.typ }

// Get returns the value of a field, or nil if the field does not exist.
func (c *CompositeData) Get(name string) any {
	return c.values[name]
}

// Has returns true if the composite type declares the field.
func (c *CompositeData) Has(name string) bool {
	_, ok := c.typ.index[name]
	return ok
}

// Values returns a copy of the field values keyed by name.
func (c *CompositeData) Values() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Equal reports whether two composites have equal types and field values.
func (c *CompositeData) Equal(other *CompositeData) bool {
	if c == nil || other == nil {
		return c == other
	}
	if !Equal(c.typ, other.typ) {
		return false
	}
	for _, f := range c.typ.fields {
		if !ValuesEqual(c.values[f.Name], other.values[f.Name]) {
			return false
		}
	}
	return true
}

// TabularData is an immutable table of composite rows.
type TabularData struct {
	typ  *TabularType
	rows []*CompositeData
}

// NewTabularData builds a table. Every row must match the table's row type.
func NewTabularData(t *TabularType, rows ...*CompositeData) (*TabularData, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tabular type", ErrInvalidType)
	}
	for i, r := range rows {
		if r == nil || !Equal(r.typ, t.row) {
			return nil, fmt.Errorf("%w: row %d does not match %s", ErrTypeMismatch, i, t.name)
		}
	}
	return &TabularData{typ: t, rows: append([]*CompositeData(nil), rows...)}, nil
}

// Type returns the table type.
func (t *TabularData) Type() *TabularType { return t.typ }

// Len returns the number of rows.
func (t *TabularData) Len() int { return len(t.rows) }

// Row returns the i-th row.
func (t *TabularData) Row(i int) *CompositeData { return t.rows[i] }

// Rows returns a copy of the row slice.
func (t *TabularData) Rows() []*CompositeData {
	return append([]*CompositeData(nil), t.rows...)
}

// Equal reports whether two tables have equal types and rows in order.
func (t *TabularData) Equal(other *TabularData) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !Equal(t.typ, other.typ) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		if !t.rows[i].Equal(other.rows[i]) {
			return false
		}
	}
	return true
}
