package syslog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/RackSec/srslog"
	"golang.org/x/time/rate"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Message formats.
const (
	FormatRFC5424 = "rfc5424"
	FormatRFC3164 = "rfc3164"
)

// Config configures a Forwarder.
type Config struct {
	// Network is "udp", "tcp" or "tcp+tls". Empty with an empty Address
	// writes to the local syslog daemon.
	Network string
	Address string
	Tag     string

	// Facility is the default facility name.
	Facility string
	Format   string

	// RateLimit caps messages per second. Zero means unlimited.
	RateLimit rate.Limit
	Burst     int

	Logger *slog.Logger
}

// DefaultConfig returns a configuration for a UDP receiver on localhost.
func DefaultConfig() Config {
	return Config{
		Network:   "udp",
		Address:   "localhost:514",
		Tag:       "snamp",
		Facility:  "local0",
		Format:    FormatRFC5424,
		RateLimit: 100,
		Burst:     200,
	}
}

type writer interface {
	WriteWithPriority(p srslog.Priority, b []byte) (int, error)
	Close() error
}

var dialFunc = func(cfg Config, priority srslog.Priority) (writer, error) {
	w, err := srslog.Dial(cfg.Network, cfg.Address, priority, cfg.Tag)
	if err != nil {
		return nil, err
	}
	switch cfg.Format {
	case FormatRFC3164:
		w.SetFormatter(srslog.RFC3164Formatter)
	default:
		w.SetFormatter(srslog.RFC5424Formatter)
	}
	if strings.HasPrefix(cfg.Network, "tcp") {
		w.SetFramer(srslog.RFC5425MessageLengthFramer)
	}
	return w, nil
}

// Forwarder writes notifications to syslog.
type Forwarder struct {
	reg      *registry.Registry
	session  *subscription.Session
	w        writer
	facility srslog.Priority
	limiter  *rate.Limiter
	logger   *slog.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New dials the receiver and opens a dispatcher session.
func New(reg *registry.Registry, d *subscription.Dispatcher, cfg Config) (*Forwarder, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Facility == "" {
		cfg.Facility = "local0"
	}
	facility, err := ParseFacility(cfg.Facility)
	if err != nil {
		return nil, err
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	w, err := dialFunc(cfg, facility|srslog.LOG_INFO)
	if err != nil {
		return nil, fmt.Errorf("syslog %s %s: %w", cfg.Network, cfg.Address, err)
	}
	session, err := d.OpenSession("syslog")
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Forwarder{
		reg:      reg,
		session:  session,
		w:        w,
		facility: facility,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   cfg.Logger,
	}, nil
}

// Forward subscribes the forwarder to notifications of namespace. No
// categories means all.
func (f *Forwarder) Forward(namespace string, categories ...string) (*subscription.Subscription, error) {
	return f.session.Subscribe(namespace, categories, f, subscription.WithName("syslog "+namespace))
}

// Priority returns the facility and severity for n.
func (f *Forwarder) Priority(n model.Notification) srslog.Priority {
	facility := f.facility
	if res, ok := f.reg.Resource(n.Resource); ok {
		if b, ok := res.Notifications.Binding(n.Category); ok {
			if name, ok := b.Descriptor().Options[model.OptionFacility]; ok {
				parsed, err := ParseFacility(name)
				if err != nil {
					f.logger.Warn("invalid facility option", "resource", n.Resource, "category", n.Category, "error", err)
				} else {
					facility = parsed
				}
			}
		}
	}
	return facility | SeverityPriority(n.Severity)
}

// Format renders n as a syslog message body.
func Format(n model.Notification) string {
	var b strings.Builder
	b.WriteString(n.Resource)
	b.WriteByte('/')
	b.WriteString(n.Category)
	b.WriteString(" seq=")
	b.WriteString(strconv.FormatUint(n.Sequence, 10))
	b.WriteString(": ")
	b.WriteString(n.Message)
	if n.UserData != nil {
		if data, err := types.ToJSON(types.NewValue(n.UserData, types.TypeOf(n.UserData))); err == nil {
			b.WriteString(" data=")
			b.Write(data)
		}
	}
	return b.String()
}

// HandleNotification writes n. Rate-limited and failed messages are
// dropped.
func (f *Forwarder) HandleNotification(_ context.Context, n model.Notification) error {
	if !f.limiter.Allow() {
		f.dropped.Add(1)
		f.logger.Debug("syslog rate limit exceeded", "resource", n.Resource, "category", n.Category, "sequence", n.Sequence)
		return nil
	}
	if _, err := f.w.WriteWithPriority(f.Priority(n), []byte(Format(n))); err != nil {
		f.dropped.Add(1)
		f.logger.Warn("syslog write failed", "resource", n.Resource, "category", n.Category, "error", err)
		return nil
	}
	f.sent.Add(1)
	return nil
}

// Stats returns the number of messages sent and dropped.
func (f *Forwarder) Stats() (sent, dropped uint64) {
	return f.sent.Load(), f.dropped.Load()
}

// Close ends all subscriptions and closes the connection.
func (f *Forwarder) Close() error {
	f.session.Close()
	return f.w.Close()
}
