package connector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Factory opens a connector for one resource.
type Factory func(ctx context.Context, connectionString string, opts model.Options, logger *slog.Logger) (Connector, error)

// Registry maps connector type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

// Register adds a factory under typ.
func (r *Registry) Register(typ string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typ)
	}
	r.factories[typ] = f
	return nil
}

// Open creates a connector of type typ.
func (r *Registry) Open(ctx context.Context, typ, connectionString string, opts model.Options) (Connector, error) {
	r.mu.RLock()
	f, exists := r.factories[typ]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	c, err := f(ctx, connectionString, opts, r.logger.With("connector", typ))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s connector: %w", model.ErrConnection, typ, err)
	}
	return c, nil
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
