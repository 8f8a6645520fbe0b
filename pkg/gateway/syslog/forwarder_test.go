package syslog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RackSec/srslog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/connector/memory"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/repository"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
)

type record struct {
	priority srslog.Priority
	msg      string
}

type fakeWriter struct {
	mu      sync.Mutex
	records []record
	err     error
	closed  bool
}

func (w *fakeWriter) WriteWithPriority(p srslog.Priority, b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.records = append(w.records, record{p, string(b)})
	return len(b), nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]record(nil), w.records...)
}

func stubDial(t *testing.T) *fakeWriter {
	t.Helper()
	w := &fakeWriter{}
	orig := dialFunc
	dialFunc = func(Config, srslog.Priority) (writer, error) { return w, nil }
	t.Cleanup(func() { dialFunc = orig })
	return w
}

func setup(t *testing.T) (*registry.Registry, *subscription.Dispatcher, *memory.Connector) {
	t.Helper()
	d := subscription.NewDispatcher(subscription.Config{})
	reg := registry.New(nil, nil)
	t.Cleanup(func() {
		reg.Close()
		d.Close()
	})

	c := memory.New(nil, nil)
	cfg := repository.Config{Resource: "db", Connector: c}
	ar := repository.NewAttributeRepository(cfg)
	nr := repository.NewNotificationRepository(cfg, d, nil)
	ctx := context.Background()
	_, err := nr.Enable(ctx, "backup", model.NotificationDescriptor{Severity: model.SeverityError, Options: model.Options{model.OptionFacility: "daemon"}})
	require.NoError(t, err)
	_, err = nr.Enable(ctx, "login", model.NotificationDescriptor{Severity: model.SeverityNotice})
	require.NoError(t, err)
	require.NoError(t, reg.Attach("db", ar, nr, registry.WithOwner(c)))
	return reg, d, c
}

func TestSeverityPriority(t *testing.T) {
	tests := []struct {
		in   model.Severity
		want srslog.Priority
	}{
		{model.SeverityPanic, srslog.LOG_EMERG},
		{model.SeverityAlert, srslog.LOG_ALERT},
		{model.SeverityCritical, srslog.LOG_CRIT},
		{model.SeverityError, srslog.LOG_ERR},
		{model.SeverityWarning, srslog.LOG_WARNING},
		{model.SeverityNotice, srslog.LOG_NOTICE},
		{model.SeverityInformational, srslog.LOG_INFO},
		{model.SeverityDebug, srslog.LOG_DEBUG},
		{model.SeverityUnknown, srslog.LOG_INFO},
	}
	for _, tt := range tests {
		if got := SeverityPriority(tt.in); got != tt.want {
			t.Errorf("SeverityPriority(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseFacility(t *testing.T) {
	f, err := ParseFacility(" LOCAL3 ")
	require.NoError(t, err)
	assert.Equal(t, srslog.LOG_LOCAL3, f)

	_, err = ParseFacility("local9")
	assert.ErrorIs(t, err, ErrUnknownFacility)
}

func TestFormat(t *testing.T) {
	n := model.Notification{Resource: "db", Category: "backup", Message: "done", Sequence: 12}
	assert.Equal(t, "db/backup seq=12: done", Format(n))

	n.UserData = int32(5)
	assert.Equal(t, "db/backup seq=12: done data=5", Format(n))
}

func TestForwarding(t *testing.T) {
	w := stubDial(t)
	reg, d, c := setup(t)

	f, err := New(reg, d, Config{Facility: "local1"})
	require.NoError(t, err)
	_, err = f.Forward("db")
	require.NoError(t, err)

	c.Emit("backup", connector.Event{Message: "backup failed"})
	c.Emit("login", connector.Event{Message: "root login"})

	require.Eventually(t, func() bool { return len(w.written()) == 2 }, time.Second, 5*time.Millisecond)
	byMsg := make(map[string]srslog.Priority)
	for _, r := range w.written() {
		byMsg[r.msg] = r.priority
	}
	assert.Equal(t, srslog.LOG_DAEMON|srslog.LOG_ERR, byMsg["db/backup seq=1: backup failed"])
	assert.Equal(t, srslog.LOG_LOCAL1|srslog.LOG_NOTICE, byMsg["db/login seq=1: root login"])

	require.NoError(t, f.Close())
	assert.True(t, w.closed)
	assert.Equal(t, 0, d.Sessions())
}

func TestRateLimitDrops(t *testing.T) {
	w := stubDial(t)
	reg, d, _ := setup(t)

	f, err := New(reg, d, Config{RateLimit: 0.001, Burst: 2})
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, f.HandleNotification(ctx, model.Notification{Resource: "db", Category: "login", Message: "m"}))
	}
	sent, dropped := f.Stats()
	assert.Equal(t, uint64(2), sent)
	assert.Equal(t, uint64(3), dropped)
	assert.Len(t, w.written(), 2)
}

func TestWriteFailureDrops(t *testing.T) {
	w := stubDial(t)
	w.err = errors.New("connection refused")
	reg, d, _ := setup(t)

	f, err := New(reg, d, Config{})
	require.NoError(t, err)
	defer f.Close()

	assert.NoError(t, f.HandleNotification(context.Background(), model.Notification{Resource: "db", Category: "login"}))
	_, dropped := f.Stats()
	assert.Equal(t, uint64(1), dropped)
}

func TestInvalidFacility(t *testing.T) {
	stubDial(t)
	reg, d, _ := setup(t)

	_, err := New(reg, d, Config{Facility: "nope"})
	assert.ErrorIs(t, err, ErrUnknownFacility)
}
