package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Access flags for attributes.
type Access uint8

const (
	// AccessRead allows reading the attribute.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the attribute.
	AccessWrite

	// AccessReadOnly is the read-only specifier.
	AccessReadOnly = AccessRead

	// AccessWriteOnly is the write-only specifier.
	AccessWriteOnly = AccessWrite

	// AccessReadWrite is the read-write specifier.
	AccessReadWrite = AccessRead | AccessWrite
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// String returns the access specifier as used in configuration.
func (a Access) String() string {
	switch a {
	case AccessReadOnly:
		return "read-only"
	case AccessWriteOnly:
		return "write-only"
	case AccessReadWrite:
		return "read-write"
	}
	return "none"
}

// ParseAccess parses an access specifier. The empty string is read-write.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rw", "read-write", "readwrite":
		return AccessReadWrite, nil
	case "r", "ro", "read", "read-only", "readonly":
		return AccessReadOnly, nil
	case "w", "wo", "write", "write-only", "writeonly":
		return AccessWriteOnly, nil
	}
	return 0, fmt.Errorf("%w: unknown access %q", ErrInvalidDescriptor, s)
}

// AttributeDescriptor identifies one exposed attribute of a resource.
type AttributeDescriptor struct {
	Resource    string
	Name        string
	ID          string
	Type        types.Type
	Access      Access
	ReadTimeout time.Duration
	Options     Options
}

// Validate checks that the descriptor can be connected.
func (d AttributeDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: attribute has no ID", ErrInvalidDescriptor)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: attribute %q has no name", ErrInvalidDescriptor, d.ID)
	}
	if d.Type == nil {
		return fmt.Errorf("%w: attribute %q has no type", ErrInvalidDescriptor, d.ID)
	}
	if d.Access == 0 {
		return fmt.Errorf("%w: attribute %q has no access", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

// Equal reports whether two descriptors describe the same binding.
func (d AttributeDescriptor) Equal(o AttributeDescriptor) bool {
	return d.Resource == o.Resource &&
		d.Name == o.Name &&
		d.ID == o.ID &&
		types.Equal(d.Type, o.Type) &&
		d.Access == o.Access &&
		d.ReadTimeout == o.ReadTimeout &&
		d.Options.Equal(o.Options)
}

// Clone returns a copy that shares no mutable state with d.
func (d AttributeDescriptor) Clone() AttributeDescriptor {
	d.Options = d.Options.Clone()
	return d
}

// String returns "resource/id".
func (d AttributeDescriptor) String() string {
	return d.Resource + "/" + d.ID
}
