// Package wire defines the CBOR wire format used by the WebSocket "cbor"
// subprotocol and by REST clients that ask for application/cbor.
//
// All maps use integer keys for compactness. Key 1 of every message holds
// its Kind, so a receiver can dispatch with PeekKind before decoding the
// whole frame.
//
// # Values
//
// Values travel in the canonical form of their declared type with these
// substitutions: decimals are decimal strings, unix times are epoch
// milliseconds, composites are string-keyed maps and tables are arrays of
// such maps. Decoding converts back using the declared type.
//
// # Nullable vs Absent
//
// A null value key means the attribute value is null. An absent user data
// key means the notification carries no attachment.
package wire
