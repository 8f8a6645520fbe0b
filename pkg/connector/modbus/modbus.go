package modbus

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sony/gobreaker"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Type is the connector type name.
const Type = "modbus"

// Option keys understood by the modbus connector.
const (
	// OptionUnit is the slave or unit identifier (resource option).
	OptionUnit = "unit"

	// OptionTimeout bounds one request (resource option).
	OptionTimeout = "timeout"

	// OptionPeriod is the poll interval of a notification category.
	OptionPeriod = "period"

	// OptionRegisterPrefix prefixes declared register map entries.
	OptionRegisterPrefix = "register."
)

// DefaultPeriod is the poll interval of notification categories.
const DefaultPeriod = time.Second

// client is the subset of modbus.Client the connector uses.
type client interface {
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleCoil(address, value uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

type transport interface {
	Connect() error
	Close() error
}

// Target is a parsed connection string.
type Target struct {
	Scheme   string
	Address  string
	Unit     byte
	Timeout  time.Duration
	BaudRate int
	Parity   string
}

// ParseTarget parses a tcp:// or rtu:// connection string.
func ParseTarget(connectionString string, opts model.Options) (Target, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}
	q := u.Query()
	t := Target{
		Scheme:   u.Scheme,
		Unit:     byte(opts.Int(OptionUnit, 1)),
		Timeout:  opts.Duration(OptionTimeout, 2*time.Second),
		BaudRate: 9600,
		Parity:   "N",
	}
	if s := q.Get("unit"); s != "" {
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return Target{}, fmt.Errorf("%w: unit %q", model.ErrConnection, s)
		}
		t.Unit = byte(n)
	}
	switch u.Scheme {
	case "tcp":
		if u.Host == "" {
			return Target{}, fmt.Errorf("%w: missing host in %q", model.ErrConnection, connectionString)
		}
		t.Address = u.Host
		if u.Port() == "" {
			t.Address += ":502"
		}
	case "rtu":
		if u.Path == "" {
			return Target{}, fmt.Errorf("%w: missing device in %q", model.ErrConnection, connectionString)
		}
		t.Address = u.Path
		if s := q.Get("baud"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Target{}, fmt.Errorf("%w: baud %q", model.ErrConnection, s)
			}
			t.BaudRate = n
		}
		if s := q.Get("parity"); s != "" {
			t.Parity = strings.ToUpper(s)
		}
	default:
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", model.ErrConnection, u.Scheme)
	}
	return t, nil
}

var dialFunc = func(t Target) (client, transport) {
	if t.Scheme == "rtu" {
		h := modbus.NewRTUClientHandler(t.Address)
		h.BaudRate = t.BaudRate
		h.Parity = t.Parity
		h.SlaveId = t.Unit
		h.Timeout = t.Timeout
		return modbus.NewClient(h), h
	}
	h := modbus.NewTCPClientHandler(t.Address)
	h.SlaveId = t.Unit
	h.Timeout = t.Timeout
	return modbus.NewClient(h), h
}

type handle struct {
	connector.AttributeHandle
	addr Address
}

// Connector talks to one Modbus device.
type Connector struct {
	target  Target
	opts    model.Options
	client  client
	conn    transport
	breaker *gobreaker.CircuitBreaker
	gate    *connector.Gate
	logger  *slog.Logger

	// mu serializes requests; Modbus allows one outstanding request.
	mu        sync.Mutex
	connected bool
	closed    bool

	handles map[string]*handle
	pollers sync.WaitGroup
	stop    chan struct{}
}

var _ connector.Discoverer = (*Connector)(nil)

// Open is the connector.Factory for the modbus connector. The device is
// dialed lazily on the first request.
func Open(_ context.Context, connectionString string, opts model.Options, logger *slog.Logger) (connector.Connector, error) {
	return New(connectionString, opts, logger)
}

// New creates a connector for connectionString.
func New(connectionString string, opts model.Options, logger *slog.Logger) (*Connector, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	target, err := ParseTarget(connectionString, opts)
	if err != nil {
		return nil, err
	}
	c, t := dialFunc(target)
	return &Connector{
		target:  target,
		opts:    opts.Clone(),
		client:  c,
		conn:    t,
		breaker: connector.NewBreaker(connector.BreakerConfig{Name: "modbus " + target.Address, Logger: logger}),
		gate:    connector.NewGate(connector.BackoffConfig{}),
		logger:  logger,
		handles: make(map[string]*handle),
		stop:    make(chan struct{}),
	}, nil
}

// request runs fn on a connected client. A failed request drops the
// connection so that the next one redials after the backoff.
func (c *Connector) request(ctx context.Context, fn func(client) ([]byte, error)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, connector.ErrClosed
	}
	if !c.connected {
		if ok, wait := c.gate.Allow(); !ok {
			return nil, fmt.Errorf("%w: %s: reconnect in %v", model.ErrConnection, c.target.Address, wait.Round(time.Millisecond))
		}
		if err := c.conn.Connect(); err != nil {
			delay := c.gate.Failure()
			c.logger.Warn("modbus connect failed", "address", c.target.Address, "retry_in", delay, "error", err)
			return nil, fmt.Errorf("%w: %s: %w", model.ErrConnection, c.target.Address, err)
		}
		c.gate.Success()
		c.connected = true
	}

	out, err := connector.Guard(c.breaker, func() ([]byte, error) { return fn(c.client) })
	if err != nil {
		_ = c.conn.Close()
		c.connected = false
		return nil, err
	}
	return out, nil
}

func (c *Connector) read(ctx context.Context, a Address) ([]byte, error) {
	return c.request(ctx, func(cl client) ([]byte, error) {
		switch a.Table {
		case TableCoil:
			return cl.ReadCoils(a.Offset, a.Count)
		case TableDiscrete:
			return cl.ReadDiscreteInputs(a.Offset, a.Count)
		case TableInput:
			return cl.ReadInputRegisters(a.Offset, a.Count)
		default:
			return cl.ReadHoldingRegisters(a.Offset, a.Count)
		}
	})
}

// ConnectAttribute binds an attribute to the register named by its
// "address" option.
func (c *Connector) ConnectAttribute(_ context.Context, id string, desc model.AttributeDescriptor) (connector.Handle, error) {
	raw, ok := desc.Options[model.OptionAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %q option", model.ErrInvalidDescriptor, desc.Name, model.OptionAddress)
	}
	a, err := ParseAddress(raw, desc.Type)
	if err != nil {
		return nil, err
	}
	if desc.Access.CanWrite() && !a.Table.Writable() {
		return nil, fmt.Errorf("%w: %s table is read-only", model.ErrNotWritable, a.Table)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, connector.ErrClosed
	}
	h := &handle{AttributeHandle: connector.AttributeHandle{ID: id, Desc: desc}, addr: a}
	c.handles[id] = h
	return h, nil
}

func (c *Connector) lookup(h connector.Handle) (*handle, error) {
	mh, ok := h.(*handle)
	if !ok {
		return nil, connector.ErrInvalidHandle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handles[mh.ID] != mh {
		return nil, connector.ErrInvalidHandle
	}
	return mh, nil
}

// GetValue reads the register and decodes it to the declared type.
func (c *Connector) GetValue(ctx context.Context, h connector.Handle) (any, error) {
	mh, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	b, err := c.read(ctx, mh.addr)
	if err != nil {
		return nil, err
	}
	return decode(b, mh.addr, mh.Desc.Type)
}

// SetValue encodes value and writes it.
func (c *Connector) SetValue(ctx context.Context, h connector.Handle, value any) error {
	mh, err := c.lookup(h)
	if err != nil {
		return err
	}
	a := mh.addr
	if a.Table == TableCoil {
		on, err := types.Convert(value, types.Native, types.Bool)
		if err != nil {
			return err
		}
		var v uint16
		if on.(bool) {
			v = 0xFF00
		}
		_, err = c.request(ctx, func(cl client) ([]byte, error) { return cl.WriteSingleCoil(a.Offset, v) })
		return err
	}
	b, err := encode(value, a, mh.Desc.Type)
	if err != nil {
		return err
	}
	_, err = c.request(ctx, func(cl client) ([]byte, error) { return cl.WriteMultipleRegisters(a.Offset, a.Count, b) })
	return err
}

// DisconnectAttribute forgets the handle.
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

// ConnectNotification polls the category's "address" option and emits the
// new value on every change. The first poll only records the value.
func (c *Connector) ConnectNotification(_ context.Context, category string, desc model.NotificationDescriptor, emit connector.Emitter) (connector.Source, error) {
	raw, ok := desc.Options[model.OptionAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s", connector.ErrUnknownFeature, category)
	}
	t := desc.AttachmentType
	if t == nil {
		t = types.Int16
	}
	if strings.HasPrefix(raw, "coil:") || strings.HasPrefix(raw, "discrete:") {
		t = types.Bool
	}
	a, err := ParseAddress(raw, t)
	if err != nil {
		return nil, err
	}
	period := desc.Options.Duration(OptionPeriod, DefaultPeriod)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, connector.ErrClosed
	}
	c.pollers.Add(1)
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer c.pollers.Done()
		defer close(done)
		c.poll(ctx, category, a, t, period, emit)
	}()
	var once sync.Once
	return connector.SourceFunc(func() error {
		once.Do(func() {
			cancel()
			<-done
		})
		return nil
	}), nil
}

func (c *Connector) poll(ctx context.Context, category string, a Address, t types.Type, period time.Duration, emit connector.Emitter) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var (
		last any
		seen bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
		}
		b, err := c.read(ctx, a)
		if err != nil {
			c.logger.Debug("modbus poll failed", "category", category, "address", a.String(), "error", err)
			continue
		}
		v, err := decode(b, a, t)
		if err != nil {
			c.logger.Warn("modbus poll decode failed", "category", category, "error", err)
			continue
		}
		if seen && types.NewValue(v, t).Equal(types.NewValue(last, t)) {
			continue
		}
		if seen {
			emit(connector.Event{Message: fmt.Sprintf("%s changed", a.Table), UserData: v})
		}
		last, seen = v, true
	}
}

// Discover reports the register map declared in the resource options.
// Notifications cannot be discovered.
func (c *Connector) Discover(_ context.Context, feature model.FeatureType) ([]model.FeatureConfiguration, error) {
	if feature != model.FeatureAttribute {
		return []model.FeatureConfiguration{}, nil
	}
	names := make([]string, 0)
	for k := range c.opts {
		if strings.HasPrefix(k, OptionRegisterPrefix) {
			names = append(names, k)
		}
	}
	slices.Sort(names)

	out := make([]model.FeatureConfiguration, 0, len(names))
	for _, k := range names {
		name := strings.TrimPrefix(k, OptionRegisterPrefix)
		d, err := declared(name, c.opts[k])
		if err != nil {
			c.logger.Warn("skipping declared register", "register", name, "error", err)
			continue
		}
		out = append(out, model.AttributeFeature(d))
	}
	return out, nil
}

// declared parses "table:offset[:count]|type|access".
func declared(name, spec string) (model.AttributeDescriptor, error) {
	parts := strings.Split(spec, "|")
	if len(parts) < 2 {
		return model.AttributeDescriptor{}, fmt.Errorf("%w: %q", ErrInvalidAddress, spec)
	}
	t, err := types.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return model.AttributeDescriptor{}, err
	}
	a, err := ParseAddress(parts[0], t)
	if err != nil {
		return model.AttributeDescriptor{}, err
	}
	access := model.AccessReadOnly
	if len(parts) > 2 {
		if access, err = model.ParseAccess(parts[2]); err != nil {
			return model.AttributeDescriptor{}, err
		}
	} else if a.Table.Writable() {
		access = model.AccessReadWrite
	}
	return model.AttributeDescriptor{
		Name:    name,
		ID:      name,
		Type:    t,
		Access:  access,
		Options: model.Options{model.OptionAddress: strings.TrimSpace(parts[0])},
	}, nil
}

// Close stops the pollers and closes the connection.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	connected := c.connected
	c.connected = false
	c.mu.Unlock()

	c.pollers.Wait()
	if connected {
		return c.conn.Close()
	}
	return nil
}
