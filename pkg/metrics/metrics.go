// Package metrics exposes Prometheus collectors for attribute access,
// notification delivery and the REST gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "snamp"

// Access outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics holds the platform collectors.
type Metrics struct {
	registry *prometheus.Registry

	attributeAccess   *prometheus.CounterVec
	attributeLatency  *prometheus.HistogramVec
	bindings          *prometheus.GaugeVec
	notificationsFire *prometheus.CounterVec
	delivered         *prometheus.CounterVec
	dropped           *prometheus.CounterVec
	listenerFailures  *prometheus.CounterVec
	subscriptions     prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attributeAccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "attribute",
			Name:      "access_total",
			Help:      "Attribute reads and writes by resource, operation and outcome.",
		}, []string{"resource", "op", "outcome"}),
		attributeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "attribute",
			Name:      "access_duration_seconds",
			Help:      "Connector call latency for attribute access.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		bindings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "attribute",
			Name:      "bindings",
			Help:      "Connected attributes per resource.",
		}, []string{"resource"}),
		notificationsFire: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notification",
			Name:      "fired_total",
			Help:      "Notifications emitted by connectors.",
		}, []string{"resource", "category"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notification",
			Name:      "delivered_total",
			Help:      "Notifications handed to listeners.",
		}, []string{"resource", "category"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notification",
			Name:      "dropped_total",
			Help:      "Notifications dropped because a listener queue was full.",
		}, []string{"resource", "category"}),
		listenerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notification",
			Name:      "listener_failures_total",
			Help:      "Listener errors and panics.",
		}, []string{"resource", "category"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "notification",
			Name:      "subscriptions_active",
			Help:      "Active notification subscriptions.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "REST gateway requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "REST gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.attributeAccess,
		m.attributeLatency,
		m.bindings,
		m.notificationsFire,
		m.delivered,
		m.dropped,
		m.listenerFailures,
		m.subscriptions,
		m.httpRequests,
		m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// AttributeAccess records one attribute read or write.
func (m *Metrics) AttributeAccess(resource, op, outcome string, d time.Duration) {
	m.attributeAccess.WithLabelValues(resource, op, outcome).Inc()
	m.attributeLatency.WithLabelValues(op).Observe(d.Seconds())
}

// BindingsActive sets the number of connected attributes of a resource.
func (m *Metrics) BindingsActive(resource string, n int) {
	m.bindings.WithLabelValues(resource).Set(float64(n))
}

// NotificationFired counts a notification emitted by a connector.
func (m *Metrics) NotificationFired(resource, category string) {
	m.notificationsFire.WithLabelValues(resource, category).Inc()
}

// NotificationDelivered counts a successful listener invocation.
func (m *Metrics) NotificationDelivered(resource, category string) {
	m.delivered.WithLabelValues(resource, category).Inc()
}

// NotificationDropped counts a queue overflow.
func (m *Metrics) NotificationDropped(resource, category string) {
	m.dropped.WithLabelValues(resource, category).Inc()
}

// ListenerFailed counts a listener error or panic.
func (m *Metrics) ListenerFailed(resource, category string) {
	m.listenerFailures.WithLabelValues(resource, category).Inc()
}

// SubscriptionsActive sets the active subscription gauge.
func (m *Metrics) SubscriptionsActive(n int) {
	m.subscriptions.Set(float64(n))
}

// HTTPRequest records one REST request.
func (m *Metrics) HTTPRequest(method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}
