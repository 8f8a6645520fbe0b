package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Sequence backends.
const (
	BackendLocal = "local"
	BackendNATS  = "nats"
	BackendRedis = "redis"
)

// Config is the root of the configuration document.
type Config struct {
	Sequence  SequenceConfig            `yaml:"sequence"`
	Gateways  GatewaysConfig            `yaml:"gateways"`
	Resources map[string]ResourceConfig `yaml:"resources"`
}

// SequenceConfig selects where notification sequence numbers come from.
type SequenceConfig struct {
	Backend string `yaml:"backend"`
	URL     string `yaml:"url"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

// GatewaysConfig lists the gateways to start. A nil entry is disabled.
type GatewaysConfig struct {
	REST   *RESTConfig   `yaml:"rest"`
	SNMP   *SNMPConfig   `yaml:"snmp"`
	Syslog *SyslogConfig `yaml:"syslog"`
}

// RESTConfig configures the HTTP gateway.
type RESTConfig struct {
	Address       string        `yaml:"address"`
	Port          int           `yaml:"port"`
	Name          string        `yaml:"name"`
	RateLimit     float64       `yaml:"rateLimit"`
	Burst         int           `yaml:"burst"`
	JWTSecret     string        `yaml:"jwtSecret"`
	JWTIssuer     string        `yaml:"jwtIssuer"`
	AccessTimeout time.Duration `yaml:"accessTimeout"`
	Announce      bool          `yaml:"announce"`
}

// TrapTargetConfig is one SNMP trap receiver.
type TrapTargetConfig struct {
	Address   string `yaml:"address"`
	Port      uint16 `yaml:"port"`
	Community string `yaml:"community"`
}

// SNMPConfig configures the SNMP gateway.
type SNMPConfig struct {
	Enterprise    string             `yaml:"enterprise"`
	AccessTimeout time.Duration      `yaml:"accessTimeout"`
	Traps         []TrapTargetConfig `yaml:"traps"`
	Retries       int                `yaml:"retries"`

	// Forward lists the namespaces whose notifications become traps. Empty
	// forwards every configured resource.
	Forward []string `yaml:"forward"`
}

// SyslogConfig configures the syslog gateway.
type SyslogConfig struct {
	Network   string   `yaml:"network"`
	Address   string   `yaml:"address"`
	Tag       string   `yaml:"tag"`
	Facility  string   `yaml:"facility"`
	Format    string   `yaml:"format"`
	RateLimit float64  `yaml:"rateLimit"`
	Burst     int      `yaml:"burst"`
	Forward   []string `yaml:"forward"`
}

// ResourceConfig describes one managed resource.
type ResourceConfig struct {
	Type             string                     `yaml:"type,omitempty"`
	ConnectionString string                     `yaml:"connectionString,omitempty"`
	Options          map[string]string          `yaml:"options,omitempty"`
	Attributes       map[string]AttributeConfig `yaml:"attributes,omitempty"`
	Events           map[string]EventConfig     `yaml:"events,omitempty"`
}

// AttributeConfig describes one attribute. The map key is the attribute ID;
// Name defaults to it.
type AttributeConfig struct {
	Name        string            `yaml:"name,omitempty"`
	Type        string            `yaml:"type,omitempty"`
	Access      string            `yaml:"access,omitempty"`
	ReadTimeout time.Duration     `yaml:"readTimeout,omitempty"`
	Options     map[string]string `yaml:"options,omitempty"`
}

// EventConfig describes one notification category. The map key is the
// category.
type EventConfig struct {
	Type       string            `yaml:"type,omitempty"`
	Severity   string            `yaml:"severity,omitempty"`
	Attachment string            `yaml:"attachment,omitempty"`
	Options    map[string]string `yaml:"options,omitempty"`
}

// Parse decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Sequence.Backend == "" {
		cfg.Sequence.Backend = BackendLocal
	}
	return &cfg, nil
}

// Load reads, parses and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the document and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Sequence.Backend {
	case BackendLocal:
	case BackendNATS, BackendRedis:
		if c.Sequence.URL == "" {
			fail("sequence backend %s needs a url", c.Sequence.Backend)
		}
	default:
		fail("unknown sequence backend %q", c.Sequence.Backend)
	}

	if r := c.Gateways.REST; r != nil && (r.Port < 0 || r.Port > 65535) {
		fail("rest port %d out of range", r.Port)
	}
	if s := c.Gateways.SNMP; s != nil {
		for i, t := range s.Traps {
			if t.Address == "" {
				fail("snmp trap target %d has no address", i)
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(c.Resources)) {
		if _, err := c.Resources[name].Descriptor(name); err != nil {
			errs = append(errs, fmt.Errorf("%w: resource %s: %w", ErrInvalidConfig, name, err))
		}
	}
	return errors.Join(errs...)
}

// ResourceNames returns the configured resource names, sorted.
func (c *Config) ResourceNames() []string {
	return slices.Sorted(maps.Keys(c.Resources))
}

// Descriptors converts every resource to its descriptor set. Invalid
// resources are reported by Validate and skipped here.
func (c *Config) Descriptors() map[string]ResourceDescriptor {
	out := make(map[string]ResourceDescriptor, len(c.Resources))
	for name, rc := range c.Resources {
		d, err := rc.Descriptor(name)
		if err != nil {
			continue
		}
		out[name] = d
	}
	return out
}

// ResourceDescriptor is a resource ready to be attached.
type ResourceDescriptor struct {
	Name             string
	Type             string
	ConnectionString string
	Options          model.Options
	Attributes       []model.AttributeDescriptor
	Notifications    []model.NotificationDescriptor
}

// SameConnection reports whether o can reuse the connector of d.
func (d ResourceDescriptor) SameConnection(o ResourceDescriptor) bool {
	return d.Type == o.Type &&
		d.ConnectionString == o.ConnectionString &&
		d.Options.Equal(o.Options)
}

// AttributeIDs returns the attribute IDs, sorted.
func (d ResourceDescriptor) AttributeIDs() []string {
	ids := make([]string, len(d.Attributes))
	for i, a := range d.Attributes {
		ids[i] = a.ID
	}
	return ids
}

// Categories returns the notification categories, sorted.
func (d ResourceDescriptor) Categories() []string {
	cats := make([]string, len(d.Notifications))
	for i, n := range d.Notifications {
		cats[i] = n.Category
	}
	return cats
}

// Descriptor converts the resource named name. Attributes and categories
// are sorted by ID.
func (rc ResourceConfig) Descriptor(name string) (ResourceDescriptor, error) {
	if rc.Type == "" {
		return ResourceDescriptor{}, errors.New("missing connector type")
	}
	d := ResourceDescriptor{
		Name:             name,
		Type:             rc.Type,
		ConnectionString: rc.ConnectionString,
		Options:          model.Options(rc.Options).Clone(),
		Attributes:       make([]model.AttributeDescriptor, 0, len(rc.Attributes)),
		Notifications:    make([]model.NotificationDescriptor, 0, len(rc.Events)),
	}

	for _, id := range slices.Sorted(maps.Keys(rc.Attributes)) {
		ac := rc.Attributes[id]
		t, err := types.Parse(ac.Type)
		if err != nil {
			return ResourceDescriptor{}, fmt.Errorf("attribute %s: %w", id, err)
		}
		access, err := model.ParseAccess(ac.Access)
		if err != nil {
			return ResourceDescriptor{}, fmt.Errorf("attribute %s: %w", id, err)
		}
		attrName := ac.Name
		if attrName == "" {
			attrName = id
		}
		d.Attributes = append(d.Attributes, model.AttributeDescriptor{
			Resource:    name,
			Name:        attrName,
			ID:          id,
			Type:        t,
			Access:      access,
			ReadTimeout: ac.ReadTimeout,
			Options:     model.Options(ac.Options).Clone(),
		})
	}

	for _, cat := range slices.Sorted(maps.Keys(rc.Events)) {
		ec := rc.Events[cat]
		nd := model.NotificationDescriptor{
			Resource:  name,
			Category:  cat,
			NotifType: ec.Type,
			Severity:  model.ParseSeverity(ec.Severity),
			Options:   model.Options(ec.Options).Clone(),
		}
		if ec.Attachment != "" {
			t, err := types.Parse(ec.Attachment)
			if err != nil {
				return ResourceDescriptor{}, fmt.Errorf("event %s: %w", cat, err)
			}
			nd.AttachmentType = t
		}
		d.Notifications = append(d.Notifications, nd)
	}
	return d, nil
}
