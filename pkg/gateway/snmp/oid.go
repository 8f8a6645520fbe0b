package snmp

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidOID is returned for malformed object identifiers.
var ErrInvalidOID = errors.New("invalid OID")

// OID is a numeric object identifier.
type OID []uint32

// ParseOID parses a dotted OID. A leading dot is optional.
func ParseOID(s string) (OID, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), ".")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOID, s)
	}
	parts := strings.Split(trimmed, ".")
	out := make(OID, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: arc %d", ErrInvalidOID, s, i+1)
		}
		out[i] = uint32(n)
	}
	return out, nil
}

// MustParseOID parses s and panics on error.
func MustParseOID(s string) OID {
	o, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return o
}

// String returns the dotted form with a leading dot, as gosnmp names PDUs.
func (o OID) String() string {
	var b strings.Builder
	for _, n := range o {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(n), 10))
	}
	return b.String()
}

// Append returns a new OID with sub appended.
func (o OID) Append(sub ...uint32) OID {
	out := make(OID, 0, len(o)+len(sub))
	out = append(out, o...)
	return append(out, sub...)
}

// HasPrefix reports whether p is a prefix of o.
func (o OID) HasPrefix(p OID) bool {
	return len(p) <= len(o) && slices.Equal(o[:len(p)], p)
}

// Compare orders OIDs arc by arc; a prefix sorts first.
func (o OID) Compare(other OID) int {
	return slices.Compare(o, other)
}
