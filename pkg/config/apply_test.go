package config

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/connector/memory"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
)

func newApplier(t *testing.T) (*Applier, *atomic.Int32) {
	t.Helper()
	var opens atomic.Int32
	conns := connector.NewRegistry(nil)
	require.NoError(t, conns.Register(memory.Type, func(ctx context.Context, cs string, opts model.Options, logger *slog.Logger) (connector.Connector, error) {
		opens.Add(1)
		return memory.Open(ctx, cs, opts, logger)
	}))

	reg := registry.New(nil, nil)
	d := subscription.NewDispatcher(subscription.Config{})
	t.Cleanup(func() {
		reg.Close()
		d.Close()
	})
	return &Applier{Connectors: conns, Registry: reg, Invokers: d}, &opens
}

func parse(t *testing.T, doc string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

const base = `
resources:
  web:
    type: memory
    attributes:
      uptime: {type: int64, access: ro, options: {value: "42"}}
      title:  {type: string}
    events:
      alarms: {severity: critical}
`

func TestApplyAttaches(t *testing.T) {
	a, opens := newApplier(t)
	ctx := context.Background()

	res, err := a.Apply(ctx, parse(t, base))
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, res.Attached)
	assert.Equal(t, int32(1), opens.Load())

	r, ok := a.Registry.Resource("web")
	require.True(t, ok)
	assert.Equal(t, []string{"title", "uptime"}, r.Attributes.IDs())
	assert.Equal(t, []string{"alarms"}, r.Notifications.Categories())

	v, err := r.Attributes.Get(ctx, "uptime", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Raw)

	res, err = a.Apply(ctx, parse(t, base))
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, res.Unchanged)
	assert.Equal(t, int32(1), opens.Load())
}

func TestApplyUpdatesInPlace(t *testing.T) {
	a, opens := newApplier(t)
	ctx := context.Background()
	_, err := a.Apply(ctx, parse(t, base))
	require.NoError(t, err)

	r, _ := a.Registry.Resource("web")
	uptime, ok := r.Attributes.Binding("uptime")
	require.True(t, ok)

	res, err := a.Apply(ctx, parse(t, `
resources:
  web:
    type: memory
    attributes:
      uptime: {type: int64, access: ro, options: {value: "42"}}
      load:   {type: float64, access: ro}
    events:
      heartbeat: {}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, res.Updated)
	assert.Equal(t, int32(1), opens.Load())

	same, ok := a.Registry.Resource("web")
	require.True(t, ok)
	assert.Same(t, r, same)
	assert.Equal(t, []string{"load", "uptime"}, same.Attributes.IDs())
	assert.Equal(t, []string{"heartbeat"}, same.Notifications.Categories())

	kept, _ := same.Attributes.Binding("uptime")
	assert.Same(t, uptime, kept)
}

func TestApplyReattachesOnConnectionChange(t *testing.T) {
	a, opens := newApplier(t)
	ctx := context.Background()
	_, err := a.Apply(ctx, parse(t, base))
	require.NoError(t, err)
	first, _ := a.Registry.Resource("web")

	res, err := a.Apply(ctx, parse(t, `
resources:
  web:
    type: memory
    options: {delay: 1ms}
    attributes:
      uptime: {type: int64, access: ro}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, res.Attached)
	assert.Equal(t, int32(2), opens.Load())

	second, ok := a.Registry.Resource("web")
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, 0, first.Attributes.Len())
}

func TestApplyDetachesBeforeReopening(t *testing.T) {
	reg := registry.New(nil, nil)
	d := subscription.NewDispatcher(subscription.Config{})
	t.Cleanup(func() {
		reg.Close()
		d.Close()
	})

	var attachedAtOpen []bool
	conns := connector.NewRegistry(nil)
	require.NoError(t, conns.Register(memory.Type, func(ctx context.Context, cs string, opts model.Options, logger *slog.Logger) (connector.Connector, error) {
		_, ok := reg.Resource("web")
		attachedAtOpen = append(attachedAtOpen, ok)
		return memory.Open(ctx, cs, opts, logger)
	}))
	a := &Applier{Connectors: conns, Registry: reg, Invokers: d}
	ctx := context.Background()

	_, err := a.Apply(ctx, parse(t, base))
	require.NoError(t, err)
	_, err = a.Apply(ctx, parse(t, `
resources:
  web:
    type: memory
    options: {delay: 1ms}
`))
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false}, attachedAtOpen)
	_, ok := reg.Resource("web")
	assert.True(t, ok)
}

func TestApplyDetachesAndReportsFailures(t *testing.T) {
	a, _ := newApplier(t)
	ctx := context.Background()
	_, err := a.Apply(ctx, parse(t, base))
	require.NoError(t, err)

	res, err := a.Apply(ctx, parse(t, `
resources:
  db:
    type: oracle
    attributes:
      sessions: {type: int32, access: ro}
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, connector.ErrUnknownType)
	assert.Equal(t, []string{"web"}, res.Detached)
	assert.Equal(t, []string{"db"}, res.Failed)

	_, ok := a.Registry.Resource("web")
	assert.False(t, ok)
	assert.Empty(t, a.Applied())
	assert.Empty(t, a.Registry.Namespaces())
}

func TestDetachAll(t *testing.T) {
	a, _ := newApplier(t)
	_, err := a.Apply(context.Background(), parse(t, base))
	require.NoError(t, err)

	assert.Equal(t, []string{"web"}, a.DetachAll())
	assert.Empty(t, a.Registry.Namespaces())
	assert.Empty(t, a.DetachAll())
}
