package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Discovery errors.
var (
	ErrUnknownProvider   = errors.New("no discovery provider for connector type")
	ErrDuplicateProvider = errors.New("discovery provider already registered")
	ErrNotSupported      = errors.New("connector does not support discovery")
)

// Provider lists the features of one resource.
type Provider interface {
	Discover(ctx context.Context, feature model.FeatureType) ([]model.FeatureConfiguration, error)
	Close() error
}

// ProviderFactory opens a provider for a connection string.
type ProviderFactory func(ctx context.Context, connectionString string, opts model.Options) (Provider, error)

// Result is the outcome of DiscoverBatch. A feature whose discovery failed
// maps to an empty list; Err holds the first failure, if any.
type Result struct {
	Features map[model.FeatureType][]model.FeatureConfiguration
	Err      error
}

// Get returns a copy of the configurations discovered for feature.
func (r Result) Get(feature model.FeatureType) []model.FeatureConfiguration {
	return model.CloneFeatures(r.Features[feature])
}

// Service dispatches discovery requests to the provider of a connector type.
type Service struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory

	logger *slog.Logger
	trace  log.Logger
}

// NewService creates a service without providers. A nil logger discards
// output; trace may be nil.
func NewService(logger *slog.Logger, trace log.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		factories: make(map[string]ProviderFactory),
		logger:    logger,
		trace:     trace,
	}
}

// Register adds the provider factory of connector type typ.
func (s *Service) Register(typ string, f ProviderFactory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.factories[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, typ)
	}
	s.factories[typ] = f
	return nil
}

// Types returns the connector types with a provider, sorted.
func (s *Service) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.factories))
	for t := range s.factories {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Discover lists the features of one kind. Failures are logged and yield an
// empty list.
func (s *Service) Discover(ctx context.Context, typ, connectionString string, opts model.Options, feature model.FeatureType) []model.FeatureConfiguration {
	return s.DiscoverBatch(ctx, typ, connectionString, opts, feature).Get(feature)
}

// DiscoverBatch lists several feature kinds over a single provider session.
// The kinds are queried concurrently and fail independently.
func (s *Service) DiscoverBatch(ctx context.Context, typ, connectionString string, opts model.Options, features ...model.FeatureType) Result {
	res := Result{Features: make(map[model.FeatureType][]model.FeatureConfiguration, len(features))}
	for _, f := range features {
		res.Features[f] = []model.FeatureConfiguration{}
	}

	p, err := s.open(ctx, typ, connectionString, opts)
	if err != nil {
		s.logger.Warn("discovery provider unavailable", "type", typ, "error", err)
		res.Err = s.failed(typ, "open provider", err)
		return res
	}
	defer func() {
		if err := closeProvider(p); err != nil {
			s.logger.Warn("discovery provider close failed", "type", typ, "error", err)
		}
	}()

	var (
		mu       sync.Mutex
		firstErr error
		g        errgroup.Group
	)
	for _, f := range slices.Compact(slices.Sorted(slices.Values(features))) {
		g.Go(func() error {
			found, err := discoverOne(ctx, p, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				s.logger.Warn("feature discovery failed", "type", typ, "feature", f, "error", err)
				return nil
			}
			res.Features[f] = model.CloneFeatures(found)
			return nil
		})
	}
	_ = g.Wait()

	if firstErr != nil {
		res.Err = s.failed(typ, "discover features", firstErr)
	}
	s.logger.Debug("discovery finished", "type", typ, "features", len(features), "failed", firstErr != nil)
	return res
}

func discoverOne(ctx context.Context, p Provider, f model.FeatureType) (found []model.FeatureConfiguration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return p.Discover(ctx, f)
}

func closeProvider(p Provider) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic on close: %v", r)
		}
	}()
	return p.Close()
}

func (s *Service) open(ctx context.Context, typ, connectionString string, opts model.Options) (p Provider, err error) {
	s.mu.RLock()
	f, exists := s.factories[typ]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, typ)
	}
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("provider factory panic: %v", r)
		}
	}()
	p, err = f(ctx, connectionString, opts.Clone())
	if err == nil && p == nil {
		err = errors.New("provider factory returned no provider")
	}
	return p, err
}

func (s *Service) failed(typ, stage string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %w", model.ErrDiscovery, typ, err)
	log.Failure(s.trace, log.ComponentConnector, typ, "", wrapped, stage)
	return wrapped
}

// FromConnectors returns a factory that opens a connector of type typ and
// uses its connector.Discoverer capability.
func FromConnectors(reg *connector.Registry, typ string) ProviderFactory {
	return func(ctx context.Context, connectionString string, opts model.Options) (Provider, error) {
		c, err := reg.Open(ctx, typ, connectionString, opts)
		if err != nil {
			return nil, err
		}
		d, ok := c.(connector.Discoverer)
		if !ok {
			_ = c.Close()
			return nil, fmt.Errorf("%w: %s", ErrNotSupported, typ)
		}
		return &connectorProvider{Discoverer: d, conn: c}, nil
	}
}

// RegisterConnectors registers FromConnectors for every type in reg that has
// no provider yet. It returns the types added.
func (s *Service) RegisterConnectors(reg *connector.Registry) []string {
	var added []string
	for _, typ := range reg.Types() {
		if err := s.Register(typ, FromConnectors(reg, typ)); err == nil {
			added = append(added, typ)
		}
	}
	return added
}

type connectorProvider struct {
	connector.Discoverer
	conn connector.Connector
}

func (p *connectorProvider) Close() error { return p.conn.Close() }
