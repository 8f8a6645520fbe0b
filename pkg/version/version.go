// Package version provides build information, API version parsing and the
// vendor media types used for REST version negotiation.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the API version implemented by this build.
const Current = "1.0"

// mediaTypePrefix starts every vendor media type, e.g.
// "application/vnd.snamp.v1+json".
const mediaTypePrefix = "application/vnd.snamp.v"

// Build information, overridden with -ldflags at link time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	Date       string `json:"date"`
	APIVersion string `json:"apiVersion"`
}

// Info returns the build information of the running binary.
func Info() BuildInfo {
	return BuildInfo{
		Version:    Version,
		Commit:     Commit,
		Date:       Date,
		APIVersion: Current,
	}
}

// String returns a one-line summary for CLI output.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, api %s)", b.Version, b.Commit, b.Date, b.APIVersion)
}

// APIVersion represents a parsed "major.minor" API version.
type APIVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (APIVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return APIVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return APIVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return APIVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return APIVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// MustCurrent returns the parsed Current version.
func MustCurrent() APIVersion {
	v, err := Parse(Current)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v APIVersion) Compatible(other APIVersion) bool {
	return v.Major == other.Major
}

// MediaType returns the vendor media type of a major version and format
// suffix: "application/vnd.snamp.vN+json".
func MediaType(major uint16, format string) string {
	return fmt.Sprintf("%s%d+%s", mediaTypePrefix, major, format)
}

// MajorFromMediaType extracts the major version from a vendor media type.
// Parameters after ';' are ignored.
func MajorFromMediaType(mediaType string) (uint16, error) {
	mt, _, _ := strings.Cut(mediaType, ";")
	mt = strings.TrimSpace(mt)
	if !strings.HasPrefix(mt, mediaTypePrefix) {
		return 0, fmt.Errorf("not a SNAMP media type: %q", mediaType)
	}

	suffix := mt[len(mediaTypePrefix):]
	digits, _, _ := strings.Cut(suffix, "+")
	if digits == "" {
		return 0, fmt.Errorf("empty major version in media type: %q", mediaType)
	}

	major, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in media type %q: %w", mediaType, err)
	}

	return uint16(major), nil
}

// Negotiate picks the API version for an Accept header. Headers without a
// vendor media type get the current version. ok is false when the header
// only names unsupported majors.
func Negotiate(accept string) (v APIVersion, ok bool) {
	current := MustCurrent()
	found := false
	for _, part := range strings.Split(accept, ",") {
		major, err := MajorFromMediaType(part)
		if err != nil {
			continue
		}
		found = true
		if major == current.Major {
			return current, true
		}
	}
	return current, !found
}
