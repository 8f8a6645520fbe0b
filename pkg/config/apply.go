package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/repository"
	"github.com/snamp-platform/snamp-go/pkg/sequence"
)

// Applier attaches configured resources to a registry and keeps them in
// line with later configurations.
type Applier struct {
	Connectors *connector.Registry
	Registry   *registry.Registry
	Invokers   repository.Invokers

	// Counter issues notification sequence numbers. Nil uses a local one
	// per resource.
	Counter  sequence.Counter
	Observer repository.Observer
	Logger   *slog.Logger
	Trace    log.Logger

	mu      sync.Mutex
	applied map[string]ResourceDescriptor
}

// Result summarizes one Apply.
type Result struct {
	Attached  []string
	Updated   []string
	Detached  []string
	Unchanged []string
	Failed    []string
}

// Apply brings the registry in line with cfg:
//
//   - resources no longer configured are detached,
//   - new resources and resources whose connection changed are (re)attached
//     with a fresh connector,
//   - resources whose connection is unchanged keep their connector; removed
//     attributes and categories are released and new or changed ones are
//     connected in place.
//
// A resource that fails to attach is reported in Result.Failed and the
// error; other resources are still applied.
func (a *Applier) Apply(ctx context.Context, cfg *Config) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.applied == nil {
		a.applied = make(map[string]ResourceDescriptor)
	}
	logger := a.logger()

	next := cfg.Descriptors()
	var (
		res  Result
		errs []error
	)

	for _, name := range slices.Sorted(maps.Keys(a.applied)) {
		if _, ok := next[name]; ok {
			continue
		}
		a.Registry.Detach(name)
		delete(a.applied, name)
		res.Detached = append(res.Detached, name)
	}

	for _, name := range slices.Sorted(maps.Keys(next)) {
		d := next[name]
		prev, had := a.applied[name]
		r, attached := a.Registry.Resource(name)

		if had && attached && prev.SameConnection(d) {
			if a.update(ctx, r, prev, d) {
				res.Updated = append(res.Updated, name)
			} else {
				res.Unchanged = append(res.Unchanged, name)
			}
			a.applied[name] = d
			continue
		}

		if attached {
			// The old connector may hold the port or device the new one needs.
			a.Registry.Detach(name)
			delete(a.applied, name)
		}
		if err := a.attach(ctx, d); err != nil {
			logger.Error("resource attach failed", "resource", name, "type", d.Type, "error", err)
			errs = append(errs, fmt.Errorf("resource %s: %w", name, err))
			res.Failed = append(res.Failed, name)
			continue
		}
		a.applied[name] = d
		res.Attached = append(res.Attached, name)
	}

	logger.Info("configuration applied",
		"attached", len(res.Attached),
		"updated", len(res.Updated),
		"detached", len(res.Detached),
		"failed", len(res.Failed))
	return res, errors.Join(errs...)
}

// attach opens a connector for d and attaches its repositories. Callers
// detach a previous resource of the same name first.
func (a *Applier) attach(ctx context.Context, d ResourceDescriptor) error {
	conn, err := a.Connectors.Open(ctx, d.Type, d.ConnectionString, d.Options)
	if err != nil {
		return err
	}
	rc := repository.Config{
		Resource:  d.Name,
		Connector: conn,
		Logger:    a.logger(),
		Trace:     a.Trace,
		Observer:  a.Observer,
	}
	attrs := repository.NewAttributeRepository(rc)
	notifs := repository.NewNotificationRepository(rc, a.Invokers, a.Counter)

	connected := attrs.PutAll(ctx, d.Attributes)
	if len(connected) < len(d.Attributes) {
		a.logger().Warn("some attributes were not connected",
			"resource", d.Name,
			"configured", len(d.Attributes),
			"connected", len(connected))
	}
	for _, n := range d.Notifications {
		// Failures are logged by the repository.
		_, _ = notifs.Enable(ctx, n.Category, n)
	}
	if err := a.Registry.Attach(d.Name, attrs, notifs, registry.WithOwner(conn)); err != nil {
		notifs.Close()
		attrs.Close()
		_ = conn.Close()
		return err
	}
	return nil
}

// update reconciles the bindings of an attached resource and reports
// whether anything changed.
func (a *Applier) update(ctx context.Context, r *registry.Resource, prev, next ResourceDescriptor) bool {
	removedAttrs := r.Attributes.Retain(next.AttributeIDs())
	removedCats := r.Notifications.DisableAllExcept(next.Categories())

	changed := len(removedAttrs) > 0 || len(removedCats) > 0
	old := make(map[string]int, len(prev.Attributes))
	for i, ad := range prev.Attributes {
		old[ad.ID] = i
	}
	for _, ad := range next.Attributes {
		if i, ok := old[ad.ID]; !ok || !prev.Attributes[i].Equal(ad) {
			changed = true
		}
	}
	oldCats := make(map[string]int, len(prev.Notifications))
	for i, nd := range prev.Notifications {
		oldCats[nd.Category] = i
	}
	for _, nd := range next.Notifications {
		if i, ok := oldCats[nd.Category]; !ok || !prev.Notifications[i].Equal(nd) {
			changed = true
		}
	}

	// Connect and Enable return the existing binding for an identical
	// descriptor, so only new or changed features are rebound.
	r.Attributes.PutAll(ctx, next.Attributes)
	for _, nd := range next.Notifications {
		_, _ = r.Notifications.Enable(ctx, nd.Category, nd)
	}
	return changed
}

// Applied returns the descriptors of the currently applied resources.
func (a *Applier) Applied() map[string]ResourceDescriptor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.applied)
}

// DetachAll detaches every resource this applier attached.
func (a *Applier) DetachAll() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := slices.Sorted(maps.Keys(a.applied))
	for _, name := range names {
		a.Registry.Detach(name)
	}
	clear(a.applied)
	return names
}

func (a *Applier) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}
