package mda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/snamp-platform/snamp-go/pkg/accesstimer"
	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/discovery"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Type is the connector type name.
const Type = "mda"

// Option keys understood by the MDA connector.
const (
	// OptionSubject is the NATS subject prefix (resource option).
	OptionSubject = "subject"

	// OptionAdvertise is the mDNS instance name to announce (resource option).
	OptionAdvertise = "advertise"
)

// DefaultSubject is the NATS subject prefix.
const DefaultSubject = "snamp.mda"

// ErrExpired is returned when the last pushed value is older than the
// resource's expiration.
var ErrExpired = errors.New("pushed value expired")

type endpointAdvertiser interface {
	AdvertiseEndpoint(name string, port uint16, features []model.FeatureConfiguration) error
	UpdateEndpoint(name string, features []model.FeatureConfiguration) error
	Close() error
}

// Replaced in tests.
var (
	newAdvertiser = func(logger *slog.Logger) endpointAdvertiser {
		return discovery.NewAdvertiser(discovery.AdvertiserConfig{Logger: logger})
	}
	natsConnect = nats.Connect
)

type handle struct {
	connector.AttributeHandle
}

// Connector holds the values and event sources of one pushed resource.
type Connector struct {
	mu       sync.RWMutex
	values   map[string]any
	handles  map[string]*handle
	declared map[string]types.Type
	sources  map[string]map[*source]struct{}
	seen     map[string]struct{}
	closed   bool

	timers *accesstimer.Manager
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
	nc         *nats.Conn
	subs       []*nats.Subscription

	advertiser endpointAdvertiser
	instance   string
}

var _ connector.Discoverer = (*Connector)(nil)

// Open is the connector.Factory for the MDA connector.
func Open(ctx context.Context, connectionString string, opts model.Options, logger *slog.Logger) (connector.Connector, error) {
	return New(ctx, connectionString, opts, logger)
}

// New creates a connector and starts the transport named by
// connectionString.
func New(_ context.Context, connectionString string, opts model.Options, logger *slog.Logger) (*Connector, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timers, err := accesstimer.NewManager(opts.Duration(model.OptionExpiration, 0))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}
	c := &Connector{
		values:   make(map[string]any),
		handles:  make(map[string]*handle),
		declared: make(map[string]types.Type),
		sources:  make(map[string]map[*source]struct{}),
		seen:     make(map[string]struct{}),
		timers:   timers,
		logger:   logger,
	}
	timers.OnExpiry(func(name string, last time.Time) {
		logger.Debug("pushed value expired", "attribute", name, "last_push", last)
	})

	if connectionString == "" {
		return c, nil
	}
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}
	switch u.Scheme {
	case "http":
		err = c.serveHTTP(u.Host, opts.String(OptionAdvertise, ""))
	case "nats", "tls":
		err = c.subscribeNATS(connectionString, opts.String(OptionSubject, DefaultSubject))
	default:
		err = fmt.Errorf("%w: unsupported scheme %q", model.ErrConnection, u.Scheme)
	}
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Connector) serveHTTP(addr, instance string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrConnection, err)
	}
	c.listener = ln
	c.httpServer = &http.Server{
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := c.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("mda http server failed", "error", err)
		}
	}()
	c.logger.Info("mda endpoint listening", "address", ln.Addr().String())

	if instance != "" {
		port := uint16(ln.Addr().(*net.TCPAddr).Port)
		c.advertiser = newAdvertiser(c.logger)
		c.instance = instance
		if err := c.advertiser.AdvertiseEndpoint(instance, port, c.features()); err != nil {
			return fmt.Errorf("advertise %s: %w", instance, err)
		}
	}
	return nil
}

func (c *Connector) subscribeNATS(server, subject string) error {
	nc, err := natsConnect(server, nats.Name("snamp-mda"))
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrConnection, err)
	}
	c.nc = nc
	for _, s := range []string{subject + ".attributes.*", subject + ".notifications.*"} {
		sub, err := nc.Subscribe(s, c.handleMsg)
		if err != nil {
			return fmt.Errorf("%w: subscribe %s: %w", model.ErrConnection, s, err)
		}
		c.subs = append(c.subs, sub)
	}
	c.logger.Info("mda subscribed", "subject", subject)
	return nil
}

// handleMsg accepts a pushed value or event. Requests with a reply subject
// get "ok" or the error text back.
func (c *Connector) handleMsg(m *nats.Msg) {
	tokens := strings.Split(m.Subject, ".")
	if len(tokens) < 2 {
		return
	}
	name := tokens[len(tokens)-1]
	var err error
	switch tokens[len(tokens)-2] {
	case "attributes":
		err = c.PushValue(name, m.Data)
	case "notifications":
		_, err = c.PushEvent(name, m.Data)
	default:
		return
	}
	if err != nil {
		c.logger.Warn("mda push rejected", "subject", m.Subject, "error", err)
	}
	if m.Reply == "" {
		return
	}
	reply := []byte("ok")
	if err != nil {
		reply = []byte(err.Error())
	}
	if rerr := m.Respond(reply); rerr != nil {
		c.logger.Debug("mda reply failed", "subject", m.Subject, "error", rerr)
	}
}

// PushValue stores a JSON value for attribute name. Connected attributes
// decode it as their declared type; others keep the native JSON form.
func (c *Connector) PushValue(name string, data []byte) error {
	c.mu.RLock()
	t, ok := c.declared[name]
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return connector.ErrClosed
	}
	if !ok {
		t = types.Native
	}
	v, err := types.FromJSON(data, t)
	if err != nil {
		return fmt.Errorf("push %s: %w", name, err)
	}
	c.store(name, v.Raw)
	return nil
}

func (c *Connector) store(name string, v any) {
	c.mu.Lock()
	c.values[name] = v
	c.mu.Unlock()
	c.timers.Touch(name)
}

// pushedEvent is the JSON form of a pushed notification. Timestamp is in
// epoch milliseconds.
type pushedEvent struct {
	Message   string          `json:"message"`
	Sequence  uint64          `json:"sequence,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	UserData  json.RawMessage `json:"userData,omitempty"`
}

// PushEvent decodes a JSON event and raises it on every source connected
// for category. It returns the number of sources reached.
func (c *Connector) PushEvent(category string, data []byte) (int, error) {
	var pe pushedEvent
	if err := json.Unmarshal(data, &pe); err != nil {
		return 0, fmt.Errorf("%w: event %s: %w", types.ErrTypeMismatch, category, err)
	}
	e := connector.Event{Message: pe.Message, Sequence: pe.Sequence}
	if pe.Timestamp != 0 {
		e.Timestamp = time.UnixMilli(pe.Timestamp)
	}
	if len(pe.UserData) > 0 {
		v, err := types.FromJSON(pe.UserData, types.Native)
		if err != nil {
			return 0, fmt.Errorf("event %s user data: %w", category, err)
		}
		e.UserData = v.Raw
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, connector.ErrClosed
	}
	c.seen[category] = struct{}{}
	targets := make([]*source, 0, len(c.sources[category]))
	for s := range c.sources[category] {
		targets = append(targets, s)
	}
	c.mu.Unlock()

	for _, s := range targets {
		s.emit(e)
	}
	return len(targets), nil
}

// ConnectAttribute declares an attribute. Values pushed before the
// attribute was connected are converted on read.
func (c *Connector) ConnectAttribute(_ context.Context, id string, desc model.AttributeDescriptor) (connector.Handle, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, connector.ErrClosed
	}
	h := &handle{connector.AttributeHandle{ID: id, Desc: desc}}
	c.handles[id] = h
	c.declared[desc.Name] = desc.Type
	c.mu.Unlock()

	c.readvertise()
	return h, nil
}

func (c *Connector) lookup(h connector.Handle) (*handle, error) {
	mh, ok := h.(*handle)
	if !ok {
		return nil, connector.ErrInvalidHandle
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, connector.ErrClosed
	}
	if c.handles[mh.ID] != mh {
		return nil, connector.ErrInvalidHandle
	}
	return mh, nil
}

// GetValue returns the last pushed value. A value never pushed reads as
// null; an expired one fails with model.ErrTimeout.
func (c *Connector) GetValue(_ context.Context, h connector.Handle) (any, error) {
	mh, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	name := mh.Desc.Name
	c.mu.RLock()
	v, ok := c.values[name]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.timers.Stale(name) {
		return nil, fmt.Errorf("%w: %w: %s", model.ErrTimeout, ErrExpired, name)
	}
	return v, nil
}

// SetValue stores value as if it had been pushed.
func (c *Connector) SetValue(_ context.Context, h connector.Handle, value any) error {
	mh, err := c.lookup(h)
	if err != nil {
		return err
	}
	c.store(mh.Desc.Name, value)
	return nil
}

// DisconnectAttribute forgets the handle. The last value is kept.
func (c *Connector) DisconnectAttribute(h connector.Handle) error {
	mh, ok := h.(*handle)
	if !ok {
		return connector.ErrInvalidHandle
	}
	c.mu.Lock()
	if c.handles[mh.ID] == mh {
		delete(c.handles, mh.ID)
		delete(c.declared, mh.Desc.Name)
	}
	c.mu.Unlock()
	c.readvertise()
	return nil
}

type source struct {
	c        *Connector
	category string
	emit     connector.Emitter
	once     sync.Once
}

func (s *source) Close() error {
	s.once.Do(func() {
		s.c.mu.Lock()
		delete(s.c.sources[s.category], s)
		s.c.mu.Unlock()
		s.c.readvertise()
	})
	return nil
}

// ConnectNotification registers emit for events pushed to category.
func (c *Connector) ConnectNotification(_ context.Context, category string, _ model.NotificationDescriptor, emit connector.Emitter) (connector.Source, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, connector.ErrClosed
	}
	s := &source{c: c, category: category, emit: emit}
	if c.sources[category] == nil {
		c.sources[category] = make(map[*source]struct{})
	}
	c.sources[category][s] = struct{}{}
	c.mu.Unlock()

	c.readvertise()
	return s, nil
}

// features lists connected attributes and categories.
func (c *Connector) features() []model.FeatureConfiguration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.FeatureConfiguration, 0, len(c.handles)+len(c.sources))
	for _, h := range c.handles {
		out = append(out, model.AttributeFeature(h.Desc.Clone()))
	}
	for category, srcs := range c.sources {
		if len(srcs) > 0 {
			out = append(out, model.NotificationFeature(model.NotificationDescriptor{Category: category}))
		}
	}
	slices.SortFunc(out, func(a, b model.FeatureConfiguration) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

func (c *Connector) readvertise() {
	if c.advertiser == nil {
		return
	}
	if err := c.advertiser.UpdateEndpoint(c.instance, c.features()); err != nil {
		c.logger.Warn("mda advertisement update failed", "instance", c.instance, "error", err)
	}
}

// Discover lists connected and pushed attributes, or categories that have
// a source or have received events.
func (c *Connector) Discover(_ context.Context, feature model.FeatureType) ([]model.FeatureConfiguration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, connector.ErrClosed
	}

	out := make([]model.FeatureConfiguration, 0)
	switch feature {
	case model.FeatureAttribute:
		names := make(map[string]types.Type)
		for name, v := range c.values {
			names[name] = types.TypeOf(v)
		}
		for name, t := range c.declared {
			names[name] = t
		}
		for _, name := range slices.Sorted(maps.Keys(names)) {
			out = append(out, model.AttributeFeature(model.AttributeDescriptor{
				Name: name, ID: name, Type: names[name], Access: model.AccessReadWrite,
			}))
		}
	case model.FeatureNotification:
		categories := make(map[string]types.Type)
		for category := range c.seen {
			categories[category] = nil
		}
		for category, srcs := range c.sources {
			if len(srcs) > 0 {
				categories[category] = nil
			}
		}
		for _, category := range slices.Sorted(maps.Keys(categories)) {
			out = append(out, model.NotificationFeature(model.NotificationDescriptor{Category: category}))
		}
	}
	return out, nil
}

// Close stops the transport and the advertisement.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
	}
	if c.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.advertiser != nil {
		if err := c.advertiser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.timers.Stop()
	return errors.Join(errs...)
}
