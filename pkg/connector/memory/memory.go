// Package memory implements an in-process connector. Attribute values live
// in a map and notifications are raised by calling Emit or by a periodic
// heartbeat. It backs tests and demonstration configurations.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Type is the connector type name.
const Type = "memory"

// Option keys understood by the memory connector.
const (
	// OptionDelay delays every read and write (resource option).
	OptionDelay = "delay"

	// OptionStrict rejects attributes that were not declared (resource option).
	OptionStrict = "strict"

	// OptionValue is the initial value of an attribute (attribute option).
	OptionValue = "value"

	// OptionPeriod emits a heartbeat notification at this interval
	// (notification option).
	OptionPeriod = "period"
)

type handle struct {
	connector.AttributeHandle
}

// Connector is an in-process resource.
type Connector struct {
	mu     sync.RWMutex
	values map[string]any
	delay  time.Duration
	strict bool
	closed bool

	handles map[string]*handle
	sources map[string]map[*source]struct{}

	logger *slog.Logger
}

// New creates an empty in-process resource.
func New(opts model.Options, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Connector{
		values:  make(map[string]any),
		delay:   opts.Duration(OptionDelay, 0),
		strict:  opts.Bool(OptionStrict, false),
		handles: make(map[string]*handle),
		sources: make(map[string]map[*source]struct{}),
		logger:  logger,
	}
}

var _ connector.Discoverer = (*Connector)(nil)

// Open is the connector.Factory for the memory connector.
func Open(_ context.Context, _ string, opts model.Options, logger *slog.Logger) (connector.Connector, error) {
	return New(opts, logger), nil
}

// Declare sets the native value of an attribute by name.
func (c *Connector) Declare(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Value returns the stored native value of an attribute by name.
func (c *Connector) Value(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

// Names returns the declared attribute names.
func (c *Connector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.values))
	for n := range c.values {
		names = append(names, n)
	}
	return names
}

// ConnectAttribute binds an attribute. In non-strict mode unknown names are
// created with the descriptor's initial value.
func (c *Connector) ConnectAttribute(_ context.Context, id string, desc model.AttributeDescriptor) (connector.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, connector.ErrClosed
	}
	if _, exists := c.values[desc.Name]; !exists {
		if c.strict {
			return nil, fmt.Errorf("%w: %s", connector.ErrUnknownFeature, desc.Name)
		}
		var initial any
		if s, ok := desc.Options[OptionValue]; ok {
			v, err := types.Convert(s, types.String, desc.Type)
			if err != nil {
				return nil, err
			}
			initial = v
		}
		c.values[desc.Name] = initial
	}

	h := &handle{connector.AttributeHandle{ID: id, Desc: desc}}
	c.handles[id] = h
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

func (c *Connector) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.delay):
		return nil
	}
}

// GetValue returns the stored value after the configured delay.
func (c *Connector) GetValue(ctx context.Context, h connector.Handle) (any, error) {
	mh, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[mh.Desc.Name], nil
}

// SetValue stores a value after the configured delay.
func (c *Connector) SetValue(ctx context.Context, h connector.Handle, value any) error {
	mh, err := c.lookup(h)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[mh.Desc.Name] = value
	return nil
}

// DisconnectAttribute forgets the handle. The stored value is kept.
func (c *Connector) DisconnectAttribute(h connector.Handle) error {
	mh, ok := h.(*handle)
	if !ok {
		return connector.ErrInvalidHandle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handles[mh.ID] == mh {
		delete(c.handles, mh.ID)
	}
	return nil
}

type source struct {
	c        *Connector
	category string
	emit     connector.Emitter
	once     sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func (s *source) Close() error {
	s.once.Do(func() {
		s.c.mu.Lock()
		delete(s.c.sources[s.category], s)
		s.c.mu.Unlock()
		close(s.stop)
		<-s.done
	})
	return nil
}

// ConnectNotification registers emit for category. With a period option a
// heartbeat is emitted at that interval.
func (c *Connector) ConnectNotification(_ context.Context, category string, desc model.NotificationDescriptor, emit connector.Emitter) (connector.Source, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, connector.ErrClosed
	}
	s := &source{
		c:        c,
		category: category,
		emit:     emit,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if c.sources[category] == nil {
		c.sources[category] = make(map[*source]struct{})
	}
	c.sources[category][s] = struct{}{}

	period := desc.Options.Duration(OptionPeriod, 0)
	go func() {
		defer close(s.done)
		if period <= 0 {
			<-s.stop
			return
		}
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case t := <-ticker.C:
				emit(connector.Event{Message: "heartbeat", Timestamp: t})
			}
		}
	}()
	return s, nil
}

// Emit raises an event on every source connected for category. It returns
// the number of sources reached.
func (c *Connector) Emit(category string, e connector.Event) int {
	c.mu.RLock()
	targets := make([]*source, 0, len(c.sources[category]))
	for s := range c.sources[category] {
		targets = append(targets, s)
	}
	c.mu.RUnlock()

	for _, s := range targets {
		s.emit(e)
	}
	return len(targets)
}

// Discover lists the declared attributes with their inferred types, or the
// categories that currently have a connected source.
func (c *Connector) Discover(_ context.Context, feature model.FeatureType) ([]model.FeatureConfiguration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, connector.ErrClosed
	}

	var out []model.FeatureConfiguration
	switch feature {
	case model.FeatureAttribute:
		names := make([]string, 0, len(c.values))
		for n := range c.values {
			names = append(names, n)
		}
		slices.Sort(names)
		for _, n := range names {
			out = append(out, model.AttributeFeature(model.AttributeDescriptor{
				Name:   n,
				ID:     n,
				Type:   types.TypeOf(c.values[n]),
				Access: model.AccessReadWrite,
			}))
		}
	case model.FeatureNotification:
		cats := make([]string, 0, len(c.sources))
		for cat, set := range c.sources {
			if len(set) > 0 {
				cats = append(cats, cat)
			}
		}
		slices.Sort(cats)
		for _, cat := range cats {
			out = append(out, model.NotificationFeature(model.NotificationDescriptor{Category: cat}))
		}
	default:
		return nil, fmt.Errorf("%w: %v", connector.ErrUnknownFeature, feature)
	}
	return out, nil
}

// Close closes all sources and rejects further calls.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var all []*source
	for _, set := range c.sources {
		for s := range set {
			all = append(all, s)
		}
	}
	c.handles = make(map[string]*handle)
	c.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	c.logger.Debug("memory connector closed", "sources", len(all))
	return nil
}
