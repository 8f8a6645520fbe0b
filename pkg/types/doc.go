// Package types implements the open type system shared by connectors and
// gateways.
//
// An open type describes the shape of an attribute or notification payload
// independently of any wire format. Simple types cover booleans, signed
// integers, floating point numbers, arbitrary precision decimals, strings,
// unix timestamps and raw bytes. Structured types are arrays, composites
// (named fields, each with its own type) and tables (sequences of composite
// rows).
//
// # Canonical Representation
//
// Every type has exactly one canonical Go representation:
//
//	bool      bool
//	int8..64  int8, int16, int32, int64
//	float     float32, float64
//	decimal   *big.Float
//	string    string
//	unixtime  time.Time
//	bytes     []byte
//	array     []any (elements in canonical form)
//	composite *CompositeData
//	tabular   *TabularData
//
// Convert moves a value between types. The special type Native stands for
// "whatever the connector produced"; converting to Native returns the
// canonical form of the source type unchanged.
//
// # Concurrency
//
// Types and conversions hold no mutable state. CompositeData and TabularData
// are immutable once built and may be shared between goroutines.
package types
