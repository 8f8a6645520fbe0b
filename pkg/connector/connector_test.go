package connector_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/connector/mocks"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOpen(t *testing.T) {
	reg := connector.NewRegistry(nil)
	mc := mocks.NewMockConnector(t)

	var gotConn string
	err := reg.Register("memory", func(_ context.Context, conn string, _ model.Options, _ *slog.Logger) (connector.Connector, error) {
		gotConn = conn
		return mc, nil
	})
	require.NoError(t, err)

	c, err := reg.Open(context.Background(), "memory", "mem://plc", nil)
	require.NoError(t, err)
	assert.Same(t, mc, c)
	assert.Equal(t, "mem://plc", gotConn)
}

func TestRegistryErrors(t *testing.T) {
	reg := connector.NewRegistry(nil)
	failing := func(context.Context, string, model.Options, *slog.Logger) (connector.Connector, error) {
		return nil, errors.New("refused")
	}

	require.NoError(t, reg.Register("modbus", failing))
	assert.ErrorIs(t, reg.Register("modbus", failing), connector.ErrDuplicateType)

	_, err := reg.Open(context.Background(), "jmx", "", nil)
	assert.ErrorIs(t, err, connector.ErrUnknownType)

	_, err = reg.Open(context.Background(), "modbus", "tcp://x", nil)
	assert.ErrorIs(t, err, model.ErrConnection)

	require.NoError(t, reg.Register("alpha", failing))
	assert.Equal(t, []string{"alpha", "modbus"}, reg.Types())
}

func TestBackoffGrowsAndResets(t *testing.T) {
	b := connector.NewBackoff(connector.BackoffConfig{
		Initial: 10 * time.Millisecond,
		Max:     40 * time.Millisecond,
	})

	want := []time.Duration{10, 20, 40, 40}
	for i, w := range want {
		d := b.Next()
		lo := w * time.Millisecond
		hi := lo + lo/4
		if d < lo || d > hi {
			t.Errorf("Next() #%d = %v, want in [%v, %v]", i, d, lo, hi)
		}
	}
	assert.Equal(t, 4, b.Attempts())

	b.Reset()
	assert.Equal(t, 0, b.Attempts())
	if d := b.Next(); d > 13*time.Millisecond {
		t.Errorf("Next() after Reset = %v, want ~10ms", d)
	}
}

func TestGate(t *testing.T) {
	g := connector.NewGate(connector.BackoffConfig{Initial: 30 * time.Millisecond, Jitter: -1})

	ok, _ := g.Allow()
	assert.True(t, ok, "first attempt is always allowed")

	g.Failure()
	ok, wait := g.Allow()
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	time.Sleep(40 * time.Millisecond)
	ok, _ = g.Allow()
	assert.True(t, ok, "attempt allowed once the backoff elapsed")

	g.Failure()
	g.Success()
	ok, _ = g.Allow()
	assert.True(t, ok, "success clears the backoff")
}

func TestSourceFunc(t *testing.T) {
	closed := false
	var s connector.Source = connector.SourceFunc(func() error {
		closed = true
		return nil
	})
	require.NoError(t, s.Close())
	assert.True(t, closed)
}
