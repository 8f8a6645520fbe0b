package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Access operations reported to the Observer.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// Config configures a repository.
type Config struct {
	// Resource is the managed resource name.
	Resource string

	// Connector binds features of the resource.
	Connector connector.Connector

	// Logger receives operational logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// Trace receives access and binding events. Optional.
	Trace log.Logger

	// Observer receives statistics. Optional.
	Observer Observer

	// DrainTimeout bounds how long Close waits for in-flight calls.
	DrainTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
}

type attributeMap map[string]*ConnectedAttribute

// AttributeRepository holds the connected attributes of one resource.
type AttributeRepository struct {
	resource string
	conn     connector.Connector

	// mu serializes writers; readers load bindings without it.
	mu       sync.Mutex
	bindings atomic.Pointer[attributeMap]
	closed   bool

	drain    time.Duration
	logger   *slog.Logger
	trace    log.Logger
	observer Observer
}

// NewAttributeRepository creates an empty repository.
func NewAttributeRepository(cfg Config) *AttributeRepository {
	cfg.defaults()
	r := &AttributeRepository{
		resource: cfg.Resource,
		conn:     cfg.Connector,
		drain:    cfg.DrainTimeout,
		logger:   cfg.Logger.With("resource", cfg.Resource),
		trace:    cfg.Trace,
		observer: cfg.Observer,
	}
	r.bindings.Store(&attributeMap{})
	return r
}

// Resource returns the resource name.
func (r *AttributeRepository) Resource() string { return r.resource }

func (r *AttributeRepository) snapshot() attributeMap {
	return *r.bindings.Load()
}

// publish installs next as the current snapshot. Callers hold mu.
func (r *AttributeRepository) publish(next attributeMap) {
	r.bindings.Store(&next)
	r.observer.BindingsActive(r.resource, len(next))
}

func (r *AttributeRepository) cloneLocked() attributeMap {
	cur := r.snapshot()
	next := make(attributeMap, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	return next
}

// Connect binds desc under id. An identical descriptor for an existing ID
// returns the existing binding; a different one disconnects the old binding
// before connecting the new one. On failure no binding remains for id.
func (r *AttributeRepository) Connect(ctx context.Context, id string, desc model.AttributeDescriptor) (*ConnectedAttribute, error) {
	desc = desc.Clone()
	desc.ID = id
	if desc.Resource == "" {
		desc.Resource = r.resource
	}
	if err := desc.Validate(); err != nil {
		r.connectFailed(id, err)
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w: attribute repository %s", model.ErrClosed, r.resource)
	}

	next := r.cloneLocked()
	if old, ok := next[id]; ok {
		if old.desc.Equal(desc) {
			return old, nil
		}
		delete(next, id)
		r.publish(next)
		old.detach()
		r.traceBinding(id, "connected", "disconnected", "descriptor changed")
	}

	h, err := r.conn.ConnectAttribute(ctx, id, desc)
	if err != nil {
		r.connectFailed(id, err)
		return nil, fmt.Errorf("%w: attribute %s: %w", model.ErrConnection, desc, err)
	}

	b := newConnectedAttribute(desc, h, r.conn, r.logger)
	next[id] = b
	r.publish(next)

	r.logger.Debug("attribute connected", "attribute", id, "name", desc.Name, "type", desc.Type)
	r.traceBinding(id, "", "connected", "")
	return b, nil
}

func (r *AttributeRepository) connectFailed(id string, err error) {
	r.logger.Warn("attribute connect failed", "attribute", id, "error", err)
	log.Failure(r.trace, log.ComponentRepository, r.resource, id, err, "connect attribute")
}

func (r *AttributeRepository) traceBinding(id, oldState, newState, reason string) {
	log.StateChange(r.trace, log.ComponentRepository, log.StateEntityBinding, r.resource, id, oldState, newState, reason)
}

// PutAll connects every descriptor under its own ID and returns the IDs
// that were connected. Failures are logged and skipped.
func (r *AttributeRepository) PutAll(ctx context.Context, descs []model.AttributeDescriptor) []string {
	connected := make([]string, 0, len(descs))
	for _, d := range descs {
		if _, err := r.Connect(ctx, d.ID, d); err != nil {
			continue
		}
		connected = append(connected, d.ID)
	}
	return connected
}

// Binding returns the binding for id.
func (r *AttributeRepository) Binding(id string) (*ConnectedAttribute, bool) {
	b, ok := r.snapshot()[id]
	return b, ok
}

// Bindings returns all bindings sorted by ID.
func (r *AttributeRepository) Bindings() []*ConnectedAttribute {
	snap := r.snapshot()
	out := make([]*ConnectedAttribute, 0, len(snap))
	for _, b := range snap {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *ConnectedAttribute) int {
		switch {
		case a.desc.ID < b.desc.ID:
			return -1
		case a.desc.ID > b.desc.ID:
			return 1
		}
		return 0
	})
	return out
}

// IDs returns the connected attribute IDs, sorted.
func (r *AttributeRepository) IDs() []string {
	snap := r.snapshot()
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of connected attributes.
func (r *AttributeRepository) Len() int {
	return len(r.snapshot())
}

// Stale reports whether attribute id was not accessed within expiration.
func (r *AttributeRepository) Stale(id string, expiration time.Duration) (bool, error) {
	b, ok := r.Binding(id)
	if !ok {
		return false, r.notFound(id)
	}
	return b.Stale(expiration), nil
}

func (r *AttributeRepository) notFound(id string) error {
	return fmt.Errorf("%w: attribute %s/%s", model.ErrNotFound, r.resource, id)
}

// acquire looks up id and takes a call reference on it.
func (r *AttributeRepository) acquire(id string) (*ConnectedAttribute, error) {
	b, ok := r.Binding(id)
	if !ok || !b.acquire() {
		return nil, r.notFound(id)
	}
	return b, nil
}

// Get reads attribute id and converts it to its declared type. It blocks at
// most timeout and fails with model.ErrTimeout when the deadline passes.
func (r *AttributeRepository) Get(ctx context.Context, id string, timeout time.Duration) (types.Value, error) {
	b, err := r.acquire(id)
	if err != nil {
		return types.Value{}, err
	}
	if !b.desc.Access.CanRead() {
		b.release()
		return types.Value{}, fmt.Errorf("%w: %s", model.ErrNotReadable, b.desc)
	}

	timeout = b.timeoutFor(timeout)
	start := time.Now()
	raw, err := b.call(ctx, timeout, func(ctx context.Context) (any, error) {
		return r.conn.GetValue(ctx, b.handle)
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, errTimedOut) {
			r.finish(b, log.OpRead, nil, elapsed, true)
			return types.Value{}, fmt.Errorf("%w: read %s after %v", model.ErrTimeout, b.desc, timeout)
		}
		r.finish(b, log.OpRead, err, elapsed, false)
		return types.Value{}, fmt.Errorf("read %s: %w", b.desc, err)
	}

	v, err := types.Convert(raw, types.Native, b.desc.Type)
	if err != nil {
		r.finish(b, log.OpRead, err, elapsed, false)
		return types.Value{}, fmt.Errorf("read %s: %w", b.desc, err)
	}

	b.timer.Reset()
	value := types.NewValue(v, b.desc.Type)
	r.finish(b, log.OpRead, nil, elapsed, false, value.Raw)
	return value, nil
}

// GetOrDefault reads attribute id, returning def if the deadline passes.
func (r *AttributeRepository) GetOrDefault(ctx context.Context, id string, timeout time.Duration, def types.Value) (types.Value, error) {
	v, err := r.Get(ctx, id, timeout)
	if errors.Is(err, model.ErrTimeout) {
		return def, nil
	}
	return v, err
}

// Set converts value to the attribute's declared type and writes it. It
// returns false without an error when the deadline passes.
func (r *AttributeRepository) Set(ctx context.Context, id string, timeout time.Duration, value types.Value) (bool, error) {
	b, err := r.acquire(id)
	if err != nil {
		return false, err
	}
	if !b.desc.Access.CanWrite() {
		b.release()
		return false, fmt.Errorf("%w: %s", model.ErrNotWritable, b.desc)
	}

	native, err := value.ConvertTo(b.desc.Type)
	if err != nil {
		b.release()
		return false, fmt.Errorf("write %s: %w", b.desc, err)
	}

	timeout = b.timeoutFor(timeout)
	start := time.Now()
	_, err = b.call(ctx, timeout, func(ctx context.Context) (any, error) {
		return nil, r.conn.SetValue(ctx, b.handle, native)
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, errTimedOut) {
			r.finish(b, log.OpWrite, nil, elapsed, true)
			return false, nil
		}
		r.finish(b, log.OpWrite, err, elapsed, false)
		return false, fmt.Errorf("write %s: %w", b.desc, err)
	}

	b.timer.Reset()
	r.finish(b, log.OpWrite, nil, elapsed, false, native)
	return true, nil
}

// finish reports one access to the observer, the trace and the log.
func (r *AttributeRepository) finish(b *ConnectedAttribute, op log.AttributeOp, err error, d time.Duration, timedOut bool, value ...any) {
	opName := OpRead
	if op == log.OpWrite {
		opName = OpWrite
	}
	outcome := "ok"
	switch {
	case timedOut:
		outcome = "timeout"
		r.logger.Debug("attribute access timed out", "attribute", b.desc.ID, "op", opName, "elapsed", d)
	case err != nil:
		outcome = "error"
		r.logger.Warn("attribute access failed", "attribute", b.desc.ID, "op", opName, "error", err)
		log.Failure(r.trace, log.ComponentRepository, r.resource, b.desc.ID, err, opName)
	}
	r.observer.AttributeAccess(r.resource, opName, outcome, d)

	ev := &log.AttributeEvent{Op: op, Duration: d, TimedOut: timedOut}
	if len(value) > 0 && value[0] != nil {
		ev.Value = fmt.Sprint(value[0])
	}
	log.Record(r.trace, log.Event{
		Category:  log.CategoryAttribute,
		Component: log.ComponentRepository,
		Resource:  r.resource,
		Feature:   b.desc.ID,
		Attribute: ev,
	})
}

// Disconnect removes attribute id. It reports whether a binding existed.
func (r *AttributeRepository) Disconnect(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.cloneLocked()
	b, ok := next[id]
	if !ok {
		return false
	}
	delete(next, id)
	r.publish(next)
	b.detach()
	r.traceBinding(id, "connected", "disconnected", "")
	return true
}

// DisconnectAll removes every binding and returns the released IDs, sorted.
// A second call returns an empty list.
func (r *AttributeRepository) DisconnectAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(func(string) bool { return true })
}

// Retain removes every binding whose ID is not in keep and returns the
// removed IDs, sorted. Kept bindings are not touched.
func (r *AttributeRepository) Retain(keep []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(func(id string) bool { return !slices.Contains(keep, id) })
}

func (r *AttributeRepository) removeLocked(remove func(id string) bool) []string {
	cur := r.snapshot()
	next := make(attributeMap, len(cur))
	var removed []*ConnectedAttribute
	for id, b := range cur {
		if remove(id) {
			removed = append(removed, b)
			continue
		}
		next[id] = b
	}
	ids := make([]string, 0, len(removed))
	if len(removed) == 0 {
		return ids
	}
	r.publish(next)
	for _, b := range removed {
		b.detach()
		ids = append(ids, b.desc.ID)
		r.traceBinding(b.desc.ID, "connected", "disconnected", "")
	}
	slices.Sort(ids)
	return ids
}

// Close disconnects every binding, waits up to the drain timeout for
// in-flight calls and rejects further Connect calls. It returns the IDs
// that were released.
func (r *AttributeRepository) Close() []string {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return []string{}
	}
	r.closed = true
	pending := r.Bindings()
	ids := r.removeLocked(func(string) bool { return true })
	r.mu.Unlock()

	deadline := time.NewTimer(r.drain)
	defer deadline.Stop()
	for _, b := range pending {
		select {
		case <-b.Released():
		case <-deadline.C:
			r.logger.Warn("abandoning in-flight attribute calls", "attribute", b.desc.ID)
			return ids
		}
	}
	return ids
}
