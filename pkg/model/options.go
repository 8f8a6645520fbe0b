package model

import (
	"maps"
	"strconv"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Well-known option keys.
const (
	OptionReadTimeout = "readTimeout"
	OptionOID         = "oid"
	OptionDescription = "description"
	OptionUnit        = "unit"
	OptionExpiration  = "expiration"
	OptionFacility    = "facility"
	OptionAddress     = "address"
	OptionCommand     = "command"
)

// Options is an opaque key/value map attached to descriptors.
type Options map[string]string

// Clone returns a copy of the options. A nil map clones to nil.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	return maps.Clone(o)
}

// Equal reports whether both maps hold the same pairs.
func (o Options) Equal(other Options) bool {
	return maps.Equal(o, other)
}

// Has returns true if the key is present.
func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// String returns the option or def if absent.
func (o Options) String(name, def string) string {
	if v, ok := o[name]; ok {
		return v
	}
	return def
}

// Int returns the option parsed as an integer, or def if absent or invalid.
func (o Options) Int(name string, def int64) int64 {
	v, ok := o[name]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the option parsed as a boolean, or def if absent or invalid.
func (o Options) Bool(name string, def bool) bool {
	v, ok := o[name]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns the option parsed as a duration. Plain integers are
// milliseconds.
func (o Options) Duration(name string, def time.Duration) time.Duration {
	v, ok := o[name]
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

// Field converts the named option to type t and returns it as T. The default
// is returned if the option is absent or does not convert.
func Field[T any](o Options, name string, t types.Type, def T) T {
	v, ok := o[name]
	if !ok {
		return def
	}
	converted, err := types.Convert(v, types.String, t)
	if err != nil {
		return def
	}
	typed, ok := converted.(T)
	if !ok {
		return def
	}
	return typed
}
