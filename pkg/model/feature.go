package model

import (
	"fmt"
	"strings"
)

// FeatureType selects the kind of resource feature a discovery asks for.
type FeatureType uint8

const (
	// FeatureAttribute selects attributes.
	FeatureAttribute FeatureType = iota + 1

	// FeatureNotification selects notification categories.
	FeatureNotification
)

// String returns the feature name used in configuration.
func (f FeatureType) String() string {
	switch f {
	case FeatureAttribute:
		return "attribute"
	case FeatureNotification:
		return "notification"
	}
	return "unknown"
}

// ParseFeatureType parses a feature name.
func ParseFeatureType(s string) (FeatureType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attribute", "attributes":
		return FeatureAttribute, nil
	case "notification", "notifications", "event", "events":
		return FeatureNotification, nil
	}
	return 0, fmt.Errorf("%w: unknown feature %q", ErrInvalidDescriptor, s)
}

// FeatureConfiguration is one feature reported by a discovery provider.
// Exactly one of Attribute and Notification is set, matching Feature.
type FeatureConfiguration struct {
	Feature      FeatureType
	Attribute    *AttributeDescriptor
	Notification *NotificationDescriptor
}

// AttributeFeature wraps an attribute descriptor.
func AttributeFeature(d AttributeDescriptor) FeatureConfiguration {
	d = d.Clone()
	return FeatureConfiguration{Feature: FeatureAttribute, Attribute: &d}
}

// NotificationFeature wraps a notification descriptor.
func NotificationFeature(d NotificationDescriptor) FeatureConfiguration {
	d = d.Clone()
	return FeatureConfiguration{Feature: FeatureNotification, Notification: &d}
}

// Name returns the attribute name or the notification category.
func (f FeatureConfiguration) Name() string {
	switch {
	case f.Attribute != nil:
		return f.Attribute.Name
	case f.Notification != nil:
		return f.Notification.Category
	}
	return ""
}

// Clone returns a deep copy.
func (f FeatureConfiguration) Clone() FeatureConfiguration {
	if f.Attribute != nil {
		a := f.Attribute.Clone()
		f.Attribute = &a
	}
	if f.Notification != nil {
		n := f.Notification.Clone()
		f.Notification = &n
	}
	return f
}

// CloneFeatures deep-copies a list of feature configurations.
func CloneFeatures(in []FeatureConfiguration) []FeatureConfiguration {
	out := make([]FeatureConfiguration, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}
