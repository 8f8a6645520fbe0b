// Package snmp re-exposes attributes and notifications over SNMP.
//
// Attributes whose descriptor carries an "oid" option are entered into an
// OID table. A scalar attribute is served at its OID with the instance
// suffix .0. A tabular attribute is a conceptual table: the cell of column
// c (the 1-based field position) in row r (1..n) lives at OID.1.c.r.
//
// Values map to SMI as follows:
//
//	bool                 INTEGER (TruthValue: 1 true, 2 false)
//	int8, int16, int32   INTEGER
//	int64                Counter64
//	float, decimal       OCTET STRING (decimal text)
//	string, bytes        OCTET STRING
//	unix time            TimeTicks since the mapper's epoch
//
// Other types fail with types.ErrUnsupportedType and map to a NULL
// placeholder so that a walk still yields one varbind per instance.
//
// Notifications are forwarded as SNMPv2c traps to the configured targets.
package snmp
