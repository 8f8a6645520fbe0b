package discovery

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Service types and defaults.
const (
	ServiceTypeGateway  = "_snamp._tcp"
	ServiceTypeEndpoint = "_snamp-mda._tcp"
	Domain              = "local."

	// MaxTXTRecordLen is the DNS limit for one TXT string.
	MaxTXTRecordLen = 255

	// MaxInstanceNameLen is the DNS-SD limit for an instance label.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyGateway   = "gw"
	TXTKeyVersion   = "ver"
	TXTKeyPath      = "path"
	TXTKeyResources = "res"

	txtPrefixAttribute    = "a."
	txtPrefixNotification = "n."
	txtFieldSep           = "|"
)

// TXT record errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrRecordTooLong       = errors.New("TXT record too long")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrInvalidRecord       = errors.New("invalid TXT record")
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// GatewayInfo describes an announced gateway.
type GatewayInfo struct {
	Name      string
	Kind      string
	Version   string
	Path      string
	Port      uint16
	Resources []string
}

// EncodeGatewayTXT creates the TXT records of a gateway announcement.
func EncodeGatewayTXT(info *GatewayInfo) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyGateway: info.Kind}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	if info.Path != "" {
		txt[TXTKeyPath] = info.Path
	}
	if len(info.Resources) > 0 {
		res := slices.Clone(info.Resources)
		slices.Sort(res)
		txt[TXTKeyResources] = strings.Join(res, ",")
	}
	return txt
}

// DecodeGatewayTXT parses the TXT records of a gateway announcement.
func DecodeGatewayTXT(txt TXTRecordMap) (*GatewayInfo, error) {
	kind, ok := txt[TXTKeyGateway]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyGateway)
	}
	info := &GatewayInfo{
		Kind:    kind,
		Version: txt[TXTKeyVersion],
		Path:    txt[TXTKeyPath],
	}
	if res := txt[TXTKeyResources]; res != "" {
		info.Resources = strings.Split(res, ",")
	}
	return info, nil
}

// EncodeEndpointTXT creates one TXT record per feature of an MDA endpoint.
func EncodeEndpointTXT(features []model.FeatureConfiguration) TXTRecordMap {
	txt := make(TXTRecordMap, len(features))
	for _, f := range features {
		switch {
		case f.Attribute != nil:
			t := types.Native
			if f.Attribute.Type != nil {
				t = f.Attribute.Type
			}
			txt[txtPrefixAttribute+f.Attribute.Name] = t.String() + txtFieldSep + f.Attribute.Access.String()
		case f.Notification != nil:
			txt[txtPrefixNotification+f.Notification.Category] = f.Notification.Severity.String()
		}
	}
	return txt
}

// DecodeEndpointTXT parses the feature records of an MDA endpoint. Keys
// without a feature prefix are ignored. The result is sorted by name.
func DecodeEndpointTXT(txt TXTRecordMap, feature model.FeatureType) ([]model.FeatureConfiguration, error) {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []model.FeatureConfiguration
	for _, k := range keys {
		v := txt[k]
		switch {
		case feature == model.FeatureAttribute && strings.HasPrefix(k, txtPrefixAttribute):
			name := strings.TrimPrefix(k, txtPrefixAttribute)
			desc, err := decodeAttribute(name, v)
			if err != nil {
				return nil, err
			}
			out = append(out, model.AttributeFeature(desc))
		case feature == model.FeatureNotification && strings.HasPrefix(k, txtPrefixNotification):
			out = append(out, model.NotificationFeature(model.NotificationDescriptor{
				Category: strings.TrimPrefix(k, txtPrefixNotification),
				Severity: model.ParseSeverity(v),
			}))
		}
	}
	return out, nil
}

func decodeAttribute(name, value string) (model.AttributeDescriptor, error) {
	typ, access, _ := strings.Cut(value, txtFieldSep)
	t, err := types.Parse(typ)
	if err != nil {
		return model.AttributeDescriptor{}, fmt.Errorf("%w: attribute %s: %w", ErrInvalidRecord, name, err)
	}
	a, err := model.ParseAccess(access)
	if err != nil {
		return model.AttributeDescriptor{}, fmt.Errorf("%w: attribute %s: %w", ErrInvalidRecord, name, err)
	}
	return model.AttributeDescriptor{Name: name, ID: name, Type: t, Access: a}, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if found {
			txt[k] = v
		} else if k != "" {
			// Key without value (boolean flag)
			txt[k] = ""
		}
	}
	return txt
}

// ValidateTXT checks every record against the DNS length limit.
func ValidateTXT(txt TXTRecordMap) error {
	for k, v := range txt {
		if n := len(k) + 1 + len(v); n > MaxTXTRecordLen {
			return fmt.Errorf("%w: %s (%d bytes)", ErrRecordTooLong, k, n)
		}
	}
	return nil
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
