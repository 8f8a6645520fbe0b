package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snamp-platform/snamp-go/pkg/connector/memory"
	"github.com/snamp-platform/snamp-go/pkg/discovery"
	"github.com/snamp-platform/snamp-go/pkg/metrics"
	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/repository"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
	"github.com/snamp-platform/snamp-go/pkg/types"
	"github.com/snamp-platform/snamp-go/pkg/wire"
)

type fixture struct {
	srv  *httptest.Server
	gw   *Server
	conn *memory.Connector
	reg  *registry.Registry
	d    *subscription.Dispatcher
}

func attach(t *testing.T, reg *registry.Registry, d *subscription.Dispatcher, name string, opts model.Options) *memory.Connector {
	t.Helper()
	c := memory.New(opts, nil)
	c.Declare("cpu", 0.25)
	c.Declare("limit", int64(10))

	cfg := repository.Config{Resource: name, Connector: c}
	ar := repository.NewAttributeRepository(cfg)
	nr := repository.NewNotificationRepository(cfg, d, nil)

	ctx := context.Background()
	_, err := ar.Connect(ctx, "cpu", model.AttributeDescriptor{
		Name: "cpu", Type: types.Float64, Access: model.AccessReadOnly,
		Options: model.Options{model.OptionUnit: "%"},
	})
	require.NoError(t, err)
	_, err = ar.Connect(ctx, "limit", model.AttributeDescriptor{Name: "limit", Type: types.Int32, Access: model.AccessReadWrite})
	require.NoError(t, err)
	_, err = nr.Enable(ctx, "alarms", model.NotificationDescriptor{Severity: model.SeverityWarning})
	require.NoError(t, err)

	require.NoError(t, reg.Attach(name, ar, nr, registry.WithOwner(c)))
	return c
}

func newFixture(t *testing.T, mutate func(*Config), opts model.Options) *fixture {
	t.Helper()
	d := subscription.NewDispatcher(subscription.Config{})
	reg := registry.New(nil, nil)
	c := attach(t, reg, d, "web", opts)

	config := DefaultConfig()
	if mutate != nil {
		mutate(config)
	}
	gw := New(config, reg, d)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(func() {
		srv.Close()
		reg.Close()
		d.Close()
	})
	return &fixture{srv: srv, gw: gw, conn: c, reg: reg, d: d}
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeError(t *testing.T, data []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestGetAttributeJSON(t *testing.T) {
	f := newFixture(t, nil, nil)

	resp, body := f.do(t, http.MethodGet, "/attribute/web/cpu", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "float64", resp.Header.Get("X-Attribute-Type"))
	assert.Equal(t, "0.25", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	assert.Equal(t, "1.0", resp.Header.Get("X-API-Version"))
}

func TestGetAttributeCBOR(t *testing.T) {
	f := newFixture(t, nil, nil)

	resp, body := f.do(t, http.MethodGet, "/attribute/web/limit", nil, map[string]string{"Accept": ContentTypeCBOR})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ContentTypeCBOR, resp.Header.Get("Content-Type"))

	msg, err := wire.DecodeValue(body)
	require.NoError(t, err)
	assert.Equal(t, "web", msg.Resource)
	assert.Equal(t, "limit", msg.Attribute)
	v, err := msg.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, int32(10), v.Raw)
}

func TestGetAttributeErrors(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/attribute/web/missing", http.StatusNotFound, "NOT_FOUND"},
		{"/attribute/db/cpu", http.StatusNotFound, "NOT_FOUND"},
		{"/attribute/web/cpu?timeout=soon", http.StatusBadRequest, ErrCodeInvalidRequest},
		{"/no/such/route", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, tt.path, nil, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			e := decodeError(t, body)
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.RequestID)
			assert.False(t, e.Timestamp.IsZero())
		})
	}
}

func TestGetAttributeTimeout(t *testing.T) {
	f := newFixture(t, nil, model.Options{memory.OptionDelay: "500ms"})

	resp, body := f.do(t, http.MethodGet, "/attribute/web/cpu?timeout=20ms", nil, nil)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "TIMEOUT", e.Code)
	assert.True(t, e.Retryable)
}

func TestSetAttribute(t *testing.T) {
	f := newFixture(t, nil, nil)

	resp, _ := f.do(t, http.MethodPut, "/attribute/web/limit", []byte("42"), map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	v, _ := f.conn.Value("limit")
	assert.Equal(t, int32(42), v)

	_, body := f.do(t, http.MethodGet, "/attribute/web/limit", nil, nil)
	assert.Equal(t, "42", string(body))

	msg, err := wire.NewValueMessage("web", "limit", types.NewValue(int32(7), types.Int32))
	require.NoError(t, err)
	frame, err := wire.EncodeValue(msg)
	require.NoError(t, err)
	resp, _ = f.do(t, http.MethodPut, "/attribute/web/limit", frame, map[string]string{"Content-Type": ContentTypeCBOR})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	v, _ = f.conn.Value("limit")
	assert.Equal(t, int32(7), v)
}

func TestSetAttributeErrors(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"type mismatch", "/attribute/web/limit", `"abc"`, http.StatusBadRequest, "TYPE_MISMATCH"},
		{"out of range", "/attribute/web/limit", `9999999999`, http.StatusBadRequest, "TYPE_MISMATCH"},
		{"read only", "/attribute/web/cpu", `0.5`, http.StatusMethodNotAllowed, "NOT_WRITABLE"},
		{"unknown attribute", "/attribute/web/nope", `1`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPut, tt.path, []byte(tt.body), nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, body).Code)
		})
	}

	resp, body := f.do(t, http.MethodPost, "/attribute/web/limit", []byte("1"), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, ErrCodeMethodNotAllowed, decodeError(t, body).Code)
}

func TestListing(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, body := f.do(t, http.MethodGet, "/namespaces", nil, nil)
	var ns NamespacesResponse
	require.NoError(t, json.Unmarshal(body, &ns))
	assert.Equal(t, []string{"web"}, ns.Namespaces)

	_, body = f.do(t, http.MethodGet, "/namespaces/web/attributes", nil, nil)
	var attrs AttributesResponse
	require.NoError(t, json.Unmarshal(body, &attrs))
	require.Len(t, attrs.Attributes, 2)
	assert.Equal(t, AttributeInfo{ID: "cpu", Name: "cpu", Type: "float64", Access: model.AccessReadOnly.String(), Unit: "%"}, attrs.Attributes[0])
	assert.Equal(t, "int32", attrs.Attributes[1].Type)

	_, body = f.do(t, http.MethodGet, "/namespaces/web/events", nil, nil)
	var events EventsResponse
	require.NoError(t, json.Unmarshal(body, &events))
	assert.Equal(t, []EventInfo{{Category: "alarms", Type: "alarms", Severity: "warning"}}, events.Events)

	resp, _ := f.do(t, http.MethodGet, "/namespaces/db/attributes", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthReadyVersion(t *testing.T) {
	f := newFixture(t, nil, nil)

	resp, body := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"healthy"`)

	resp, _ = f.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	f.gw.SetReady(true)
	resp, _ = f.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = f.do(t, http.MethodGet, "/version", nil, nil)
	assert.Contains(t, string(body), `"apiVersion":"1.0"`)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	f := newFixture(t, func(c *Config) { c.Metrics = m }, nil)

	f.do(t, http.MethodGet, "/attribute/web/cpu", nil, nil)
	_, body := f.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.True(t, strings.Contains(string(body),
		`snamp_http_requests_total{code="200",method="GET",route="/attribute/{namespace}/{id}"} 1`))
}

type fakeAnnouncer struct {
	mu      sync.Mutex
	infos   []discovery.GatewayInfo
	updates []discovery.GatewayInfo
	stopped bool
}

func (a *fakeAnnouncer) AdvertiseGateway(info *discovery.GatewayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.infos = append(a.infos, *info)
	return nil
}

func (a *fakeAnnouncer) UpdateGateway(info *discovery.GatewayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates = append(a.updates, *info)
	return nil
}

func (a *fakeAnnouncer) Stop(string, string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	return nil
}

func TestStartAnnouncesAndShutsDown(t *testing.T) {
	d := subscription.NewDispatcher(subscription.Config{})
	defer d.Close()
	reg := registry.New(nil, nil)
	defer reg.Close()
	attach(t, reg, d, "web", nil)

	config := DefaultConfig()
	config.Address = "127.0.0.1"
	config.Port = 0
	ann := &fakeAnnouncer{}
	gw := New(config, reg, d, WithAnnouncer(ann))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Start(ctx) }()

	require.Eventually(t, func() bool { return gw.Addr() != nil }, 2*time.Second, 5*time.Millisecond)
	resp, err := http.Get("http://" + gw.Addr().String() + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	attach(t, reg, d, "db", nil)

	ann.mu.Lock()
	require.Len(t, ann.infos, 1)
	assert.Equal(t, "http", ann.infos[0].Kind)
	assert.Equal(t, []string{"web"}, ann.infos[0].Resources)
	assert.NotZero(t, ann.infos[0].Port)
	require.Len(t, ann.updates, 1)
	assert.Equal(t, []string{"db", "web"}, ann.updates[0].Resources)
	ann.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.True(t, ann.stopped)
}
