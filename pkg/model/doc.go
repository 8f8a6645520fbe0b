// Package model defines the descriptors and records shared by connectors,
// repositories and gateways.
//
// # Descriptors
//
// An AttributeDescriptor identifies one exposed attribute of a managed
// resource:
//
//	Resource  name of the managed resource
//	Name      attribute name as known to the connector
//	ID        locally assigned identifier, unique within the resource
//	Type      declared open type (see package types)
//	Access    read-only, write-only or read-write
//	Options   connector and gateway specific key/value pairs (OID, unit, ...)
//
// A NotificationDescriptor identifies one notification category of a
// resource. Category names are unique within a resource.
//
// Descriptors are plain values built from configuration. Options are an
// opaque string map with typed accessors; nothing in the core interprets
// option keys except the component that owns them.
//
// # Errors
//
// The sentinel errors in this package form the error taxonomy of the
// platform. Callers test for them with errors.Is.
package model
