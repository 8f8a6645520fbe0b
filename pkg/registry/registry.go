// Package registry routes reads, writes and enumeration to the repositories
// of attached resources.
//
// A resource name maps to exactly one pair of repositories at a time.
// Attaching a name that is already attached detaches the old pair first and
// then installs the new one; re-attaching the pair that is already attached
// keeps it live. Detaching closes both repositories, which waits for
// in-flight calls before connector handles are released, and then closes
// the resource's owner (typically its connector) if one was given.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/repository"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// ErrInvalidResource is returned when attaching without a name or repositories.
var ErrInvalidResource = errors.New("invalid resource")

// Resource is one attached resource.
type Resource struct {
	Name          string
	Attributes    *repository.AttributeRepository
	Notifications *repository.NotificationRepository
	AttachedAt    time.Time

	owner io.Closer
}

// Released lists the bindings released by a detach.
type Released struct {
	Attributes []string
	Categories []string
}

// AttachOption configures an attached resource.
type AttachOption func(*Resource)

// WithOwner closes c after the resource's repositories are closed.
func WithOwner(c io.Closer) AttachOption {
	return func(r *Resource) {
		r.owner = c
	}
}

// Registry maps resource names to their repositories.
type Registry struct {
	// attachMu serializes Attach and Detach.
	attachMu sync.Mutex

	mu        sync.RWMutex
	resources map[string]*Resource
	closed    bool
	onChange  []func(name string, attached bool)

	logger *slog.Logger
	trace  log.Logger
}

// New creates an empty registry. A nil logger discards output; trace may be nil.
func New(logger *slog.Logger, trace log.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		resources: make(map[string]*Resource),
		logger:    logger,
		trace:     trace,
	}
}

// OnChange adds a callback invoked after a resource is attached or detached.
// Callbacks run in registration order, outside the registry lock.
func (r *Registry) OnChange(fn func(name string, attached bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

func notify(callbacks []func(string, bool), name string, attached bool) {
	for _, fn := range callbacks {
		fn(name, attached)
	}
}

// Attach registers the repositories of resource name. An existing pair for
// the same name is detached before the new pair is installed, so readers
// briefly see the name as not attached. Repositories shared between the old
// and the new pair are kept open.
func (r *Registry) Attach(name string, attrs *repository.AttributeRepository, notifs *repository.NotificationRepository, opts ...AttachOption) error {
	if name == "" || attrs == nil || notifs == nil {
		return fmt.Errorf("%w: %q", ErrInvalidResource, name)
	}
	res := &Resource{
		Name:          name,
		Attributes:    attrs,
		Notifications: notifs,
		AttachedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(res)
	}

	r.attachMu.Lock()
	onChange, err := r.install(res)
	r.attachMu.Unlock()
	if err != nil {
		return err
	}

	r.logger.Info("resource attached",
		"resource", name,
		"attributes", attrs.Len(),
		"categories", len(notifs.Categories()))
	log.StateChange(r.trace, log.ComponentRegistry, log.StateEntityResource, name, "", "", "attached", "")

	notify(onChange, name, true)
	return nil
}

// install swaps res in under attachMu, releasing the previous resource of
// the same name first. It returns the change callbacks to run.
func (r *Registry) install(res *Resource) ([]func(string, bool), error) {
	name := res.Name
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: registry", model.ErrClosed)
	}
	old := r.resources[name]
	same := old != nil && old.Attributes == res.Attributes && old.Notifications == res.Notifications
	switch {
	case same:
		if res.owner == nil {
			res.owner = old.owner
		}
		r.resources[name] = res
	case old != nil:
		delete(r.resources, name)
	}
	onChange := slices.Clone(r.onChange)
	r.mu.Unlock()

	if same {
		return onChange, nil
	}
	if old != nil {
		released := r.release(old, res)
		r.logger.Info("resource replaced",
			"resource", name,
			"released_attributes", len(released.Attributes),
			"released_categories", len(released.Categories))
		log.StateChange(r.trace, log.ComponentRegistry, log.StateEntityResource, name, "", "attached", "detached", "replaced")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("%w: registry", model.ErrClosed)
	}
	r.resources[name] = res
	return onChange, nil
}

// Detach removes resource name and releases its bindings.
func (r *Registry) Detach(name string) (Released, bool) {
	r.attachMu.Lock()
	released, onChange, ok := r.remove(name)
	r.attachMu.Unlock()
	if !ok {
		return Released{}, false
	}

	r.logger.Info("resource detached",
		"resource", name,
		"released_attributes", len(released.Attributes),
		"released_categories", len(released.Categories))
	log.StateChange(r.trace, log.ComponentRegistry, log.StateEntityResource, name, "", "attached", "detached", "")

	notify(onChange, name, false)
	return released, true
}

// remove deletes resource name under attachMu and releases it.
func (r *Registry) remove(name string) (Released, []func(string, bool), bool) {
	r.mu.Lock()
	res, ok := r.resources[name]
	if ok {
		delete(r.resources, name)
	}
	onChange := slices.Clone(r.onChange)
	r.mu.Unlock()

	if !ok {
		return Released{}, nil, false
	}
	return r.release(res, nil), onChange, true
}

// release closes the repositories of res and then its owner. Anything that
// keep still uses stays open; keep may be nil.
func (r *Registry) release(res, keep *Resource) Released {
	var out Released
	shared := false
	if keep == nil || res.Notifications != keep.Notifications {
		out.Categories = res.Notifications.Close()
	} else {
		shared = true
	}
	if keep == nil || res.Attributes != keep.Attributes {
		out.Attributes = res.Attributes.Close()
	} else {
		shared = true
	}
	if res.owner == nil || shared || (keep != nil && sameCloser(res.owner, keep.owner)) {
		return out
	}
	if err := res.owner.Close(); err != nil {
		r.logger.Warn("resource owner close failed", "resource", res.Name, "error", err)
	}
	return out
}

func sameCloser(a, b io.Closer) bool {
	if a == nil || b == nil {
		return false
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// Resource returns the attached resource name.
func (r *Registry) Resource(name string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[name]
	return res, ok
}

func (r *Registry) lookup(name string) (*Resource, error) {
	res, ok := r.Resource(name)
	if !ok {
		return nil, fmt.Errorf("%w: resource %s", model.ErrNotFound, name)
	}
	return res, nil
}

// Read reads attribute id of resource name.
func (r *Registry) Read(ctx context.Context, name, id string, timeout time.Duration) (types.Value, error) {
	res, err := r.lookup(name)
	if err != nil {
		return types.Value{}, err
	}
	return res.Attributes.Get(ctx, id, timeout)
}

// ReadOrDefault reads attribute id of resource name, returning def on timeout.
func (r *Registry) ReadOrDefault(ctx context.Context, name, id string, timeout time.Duration, def types.Value) (types.Value, error) {
	res, err := r.lookup(name)
	if err != nil {
		return types.Value{}, err
	}
	return res.Attributes.GetOrDefault(ctx, id, timeout, def)
}

// Write writes attribute id of resource name. It returns false without an
// error on timeout.
func (r *Registry) Write(ctx context.Context, name, id string, timeout time.Duration, value types.Value) (bool, error) {
	res, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	return res.Attributes.Set(ctx, id, timeout, value)
}

// Namespaces returns the attached resource names, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.resources))
	for n := range r.resources {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Attributes returns the attribute IDs of resource name, sorted.
func (r *Registry) Attributes(name string) ([]string, error) {
	res, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return res.Attributes.IDs(), nil
}

// Categories returns the enabled notification categories of resource name.
func (r *Registry) Categories(name string) ([]string, error) {
	res, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return res.Notifications.Categories(), nil
}

// Close detaches every resource and rejects further attaches.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	names := make([]string, 0, len(r.resources))
	for n := range r.resources {
		names = append(names, n)
	}
	r.mu.Unlock()

	slices.Sort(names)
	for _, n := range names {
		r.Detach(n)
	}
	return nil
}
