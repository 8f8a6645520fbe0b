package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attr(name string, t types.Type, opts model.Options) model.AttributeDescriptor {
	return model.AttributeDescriptor{Name: name, ID: name, Type: t, Access: model.AccessReadWrite, Options: opts}
}

func TestGetSet(t *testing.T) {
	c := New(nil, nil)
	ctx := context.Background()

	h, err := c.ConnectAttribute(ctx, "t1", attr("temp", types.Float64, model.Options{OptionValue: "21.5"}))
	require.NoError(t, err)
	assert.Equal(t, "t1", h.AttributeID())

	v, err := c.GetValue(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 21.5, v)

	require.NoError(t, c.SetValue(ctx, h, 19.0))
	v, _ = c.GetValue(ctx, h)
	assert.Equal(t, 19.0, v)
}

func TestStrictRejectsUnknown(t *testing.T) {
	c := New(model.Options{OptionStrict: "true"}, nil)
	_, err := c.ConnectAttribute(context.Background(), "x", attr("missing", types.Int32, nil))
	assert.ErrorIs(t, err, connector.ErrUnknownFeature)

	c.Declare("present", int32(1))
	_, err = c.ConnectAttribute(context.Background(), "p", attr("present", types.Int32, nil))
	assert.NoError(t, err)
}

func TestDelayHonorsContext(t *testing.T) {
	c := New(model.Options{OptionDelay: "200ms"}, nil)
	h, err := c.ConnectAttribute(context.Background(), "a", attr("a", types.Int32, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.GetValue(ctx, h)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestDisconnectInvalidatesHandle(t *testing.T) {
	c := New(nil, nil)
	h, _ := c.ConnectAttribute(context.Background(), "a", attr("a", types.Int32, nil))

	require.NoError(t, c.DisconnectAttribute(h))
	_, err := c.GetValue(context.Background(), h)
	assert.ErrorIs(t, err, connector.ErrInvalidHandle)
}

func TestEmitAndClose(t *testing.T) {
	c := New(nil, nil)

	var mu sync.Mutex
	var got []string
	src, err := c.ConnectNotification(context.Background(), "alarm", model.NotificationDescriptor{Category: "alarm"},
		func(e connector.Event) {
			mu.Lock()
			got = append(got, e.Message)
			mu.Unlock()
		})
	require.NoError(t, err)

	assert.Equal(t, 1, c.Emit("alarm", connector.Event{Message: "high"}))
	assert.Equal(t, 0, c.Emit("other", connector.Event{Message: "x"}))

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.Equal(t, 0, c.Emit("alarm", connector.Event{Message: "late"}))

	mu.Lock()
	assert.Equal(t, []string{"high"}, got)
	mu.Unlock()
}

func TestHeartbeat(t *testing.T) {
	c := New(nil, nil)
	defer c.Close()

	beats := make(chan connector.Event, 10)
	_, err := c.ConnectNotification(context.Background(), "hb",
		model.NotificationDescriptor{Category: "hb", Options: model.Options{OptionPeriod: "10ms"}},
		func(e connector.Event) {
			select {
			case beats <- e:
			default:
			}
		})
	require.NoError(t, err)

	select {
	case e := <-beats:
		assert.Equal(t, "heartbeat", e.Message)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for heartbeat")
	}
}

func TestClosedConnector(t *testing.T) {
	c := New(nil, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.ConnectAttribute(context.Background(), "a", attr("a", types.Int32, nil))
	assert.ErrorIs(t, err, connector.ErrClosed)
}

func TestDiscover(t *testing.T) {
	c := New(nil, nil)
	defer c.Close()
	c.Declare("temp", 21.5)
	c.Declare("name", "db-1")

	ctx := context.Background()
	attrs, err := c.Discover(ctx, model.FeatureAttribute)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "name", attrs[0].Name())
	assert.Equal(t, types.String, attrs[0].Attribute.Type)
	assert.Equal(t, types.Float64, attrs[1].Attribute.Type)

	src, err := c.ConnectNotification(ctx, "alarms", model.NotificationDescriptor{Category: "alarms"}, func(connector.Event) {})
	require.NoError(t, err)
	notifs, err := c.Discover(ctx, model.FeatureNotification)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, "alarms", notifs[0].Name())

	require.NoError(t, src.Close())
	notifs, err = c.Discover(ctx, model.FeatureNotification)
	require.NoError(t, err)
	assert.Empty(t, notifs)

	_, err = c.Discover(ctx, model.FeatureType(99))
	assert.ErrorIs(t, err, connector.ErrUnknownFeature)
}
