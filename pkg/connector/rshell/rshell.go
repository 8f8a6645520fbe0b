package rshell

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Type is the connector type name.
const Type = "rshell"

// Feature option keys.
const (
	OptionPattern    = "pattern"
	OptionSetCommand = "setCommand"
	OptionPeriod     = "period"
)

// DefaultPeriod is the poll interval of notification categories.
const DefaultPeriod = 10 * time.Second

type handle struct {
	connector.AttributeHandle
	command string
	set     string
	pattern *regexp.Regexp
}

// Connector runs commands on one host.
type Connector struct {
	target  *url.URL
	opts    model.Options
	breaker *gobreaker.CircuitBreaker
	gate    *connector.Gate
	logger  *slog.Logger

	mu      sync.Mutex
	runner  runner
	closed  bool
	handles map[string]*handle

	pollers sync.WaitGroup
	stop    chan struct{}
}

// Open is the connector.Factory for the rshell connector. The SSH session
// is dialed lazily on the first command.
func Open(_ context.Context, connectionString string, opts model.Options, logger *slog.Logger) (connector.Connector, error) {
	return New(connectionString, opts, logger)
}

// New creates a connector for connectionString.
func New(connectionString string, opts model.Options, logger *slog.Logger) (*Connector, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}
	switch {
	case connectionString == "local":
	case u.Scheme == "ssh":
		if u.Hostname() == "" {
			return nil, fmt.Errorf("%w: missing host in %q", model.ErrConnection, connectionString)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported connection string %q", model.ErrConnection, connectionString)
	}
	return &Connector{
		target:  u,
		opts:    opts.Clone(),
		breaker: connector.NewBreaker(connector.BreakerConfig{Name: "rshell " + u.Host, Logger: logger}),
		gate:    connector.NewGate(connector.BackoffConfig{}),
		logger:  logger,
		handles: make(map[string]*handle),
		stop:    make(chan struct{}),
	}, nil
}

// run executes command, dialing first if needed. A failed command over SSH
// drops the client so that the next one redials after the backoff.
func (c *Connector) run(ctx context.Context, command string) (string, error) {
	r, err := c.connect()
	if err != nil {
		return "", err
	}
	out, err := connector.Guard(c.breaker, func() (string, error) { return r.Run(ctx, command) })
	if err != nil {
		if ctx.Err() == nil {
			c.drop(r)
		}
		return "", err
	}
	return out, nil
}

func (c *Connector) connect() (runner, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, connector.ErrClosed
	}
	if c.runner != nil {
		return c.runner, nil
	}
	if ok, wait := c.gate.Allow(); !ok {
		return nil, fmt.Errorf("%w: %s: reconnect in %v", model.ErrConnection, c.target.Host, wait.Round(time.Millisecond))
	}
	r, err := dialFunc(c.target, c.opts, c.logger)
	if err != nil {
		delay := c.gate.Failure()
		c.logger.Warn("rshell connect failed", "host", c.target.Host, "retry_in", delay, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", model.ErrConnection, c.target.Host, err)
	}
	c.gate.Success()
	c.runner = r
	return r, nil
}

func (c *Connector) drop(r runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner == r {
		_ = r.Close()
		c.runner = nil
	}
}

// ConnectAttribute binds an attribute to its "command" option.
func (c *Connector) ConnectAttribute(_ context.Context, id string, desc model.AttributeDescriptor) (connector.Handle, error) {
	command := desc.Options.String(model.OptionCommand, "")
	if command == "" {
		return nil, fmt.Errorf("%w: %s has no %q option", model.ErrInvalidDescriptor, desc.Name, model.OptionCommand)
	}
	h := &handle{
		AttributeHandle: connector.AttributeHandle{ID: id, Desc: desc},
		command:         command,
		set:             desc.Options.String(OptionSetCommand, ""),
	}
	if p := desc.Options.String(OptionPattern, ""); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s pattern: %w", model.ErrInvalidDescriptor, desc.Name, err)
		}
		h.pattern = re
	}
	if desc.Access.CanWrite() && h.set == "" {
		return nil, fmt.Errorf("%w: %s has no %q option", model.ErrNotWritable, desc.Name, OptionSetCommand)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, connector.ErrClosed
	}
	c.handles[id] = h
	return h, nil
}

func (c *Connector) lookup(h connector.Handle) (*handle, error) {
	rh, ok := h.(*handle)
	if !ok {
		return nil, connector.ErrInvalidHandle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handles[rh.ID] != rh {
		return nil, connector.ErrInvalidHandle
	}
	return rh, nil
}

// GetValue runs the attribute's command and parses its output.
func (c *Connector) GetValue(ctx context.Context, h connector.Handle) (any, error) {
	rh, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	out, err := c.run(ctx, rh.command)
	if err != nil {
		return nil, err
	}
	return parseOutput(out, rh.pattern, rh.Desc.Type)
}

// parseOutput extracts the value text from out and converts it to t.
func parseOutput(out string, pattern *regexp.Regexp, t types.Type) (any, error) {
	text := strings.TrimSpace(out)
	if pattern != nil {
		m := pattern.FindStringSubmatch(text)
		switch {
		case m == nil:
			return nil, fmt.Errorf("%w: output %q does not match %s", types.ErrTypeMismatch, text, pattern)
		case len(m) > 1:
			text = m[1]
		default:
			text = m[0]
		}
	}
	return types.Convert(text, types.String, t)
}

// SetValue runs the attribute's set command with {value} replaced.
func (c *Connector) SetValue(ctx context.Context, h connector.Handle, value any) error {
	rh, err := c.lookup(h)
	if err != nil {
		return err
	}
	if rh.set == "" {
		return model.ErrNotWritable
	}
	s, err := types.Convert(value, rh.Desc.Type, types.String)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, strings.ReplaceAll(rh.set, "{value}", quote(s.(string))))
	return err
}

// quote wraps s in single quotes for sh.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// DisconnectAttribute forgets the handle.
func (c *Connector) DisconnectAttribute(h connector.Handle) error {
	rh, ok := h.(*handle)
	if !ok {
		return connector.ErrInvalidHandle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handles[rh.ID] == rh {
		delete(c.handles, rh.ID)
	}
	return nil
}

// ConnectNotification runs the category's "command" every period and
// emits the output whenever it differs from the previous run.
func (c *Connector) ConnectNotification(_ context.Context, category string, desc model.NotificationDescriptor, emit connector.Emitter) (connector.Source, error) {
	command := desc.Options.String(model.OptionCommand, "")
	if command == "" {
		return nil, fmt.Errorf("%w: %s", connector.ErrUnknownFeature, category)
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
		c.poll(ctx, category, command, period, emit)
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

func (c *Connector) poll(ctx context.Context, category, command string, period time.Duration, emit connector.Emitter) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var (
		last string
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
		out, err := c.run(ctx, command)
		if err != nil {
			c.logger.Debug("rshell poll failed", "category", category, "error", err)
			continue
		}
		out = strings.TrimSpace(out)
		if seen && out != last {
			emit(connector.Event{Message: out})
		}
		last, seen = out, true
	}
}

// Close stops the pollers and closes the SSH client.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	r := c.runner
	c.runner = nil
	c.mu.Unlock()

	c.pollers.Wait()
	if r != nil {
		return r.Close()
	}
	return nil
}
