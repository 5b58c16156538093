// Package metrics provides Prometheus metrics for the talky server.
//
// Metrics live on their own registry and are only exposed when a metrics
// listener is configured. Every method is safe on a nil *Metrics, so callers
// do not need to check whether metrics are enabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes used for the "target" label.
const (
	TargetDirectory = "directory"
	TargetFile      = "file"
	TargetError     = "error"
	TargetReload    = "livereload"
)

// Metrics holds talky's collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	bytesServed         prometheus.Counter
	resolveErrorsTotal  *prometheus.CounterVec
	templateCacheHits   prometheus.Counter
	templateCompiles    *prometheus.CounterVec
	liveReloadClients   prometheus.Gauge
	liveReloadBroadcast prometheus.Counter
}

// New creates the collectors on a fresh registry, along with the standard
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talky_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "target", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "talky_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		),
		bytesServed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "talky_bytes_served_total",
				Help: "Total response body bytes written",
			},
		),
		resolveErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talky_resolve_errors_total",
				Help: "Requests that ended in a diagnostic page, by error kind",
			},
			[]string{"kind"},
		),
		templateCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "talky_template_cache_hits_total",
				Help: "Renders that reused a compiled template",
			},
		),
		templateCompiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talky_template_compiles_total",
				Help: "Template compilations",
			},
			[]string{"result"},
		),
		liveReloadClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "talky_livereload_clients",
				Help: "Number of connected live reload clients",
			},
		),
		liveReloadBroadcast: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "talky_livereload_broadcasts_total",
				Help: "Reload messages broadcast to clients",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, target string, status int, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, target, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(target).Observe(duration.Seconds())
	m.bytesServed.Add(float64(bytes))
}

// RecordResolveError counts a request that failed with the given error kind.
func (m *Metrics) RecordResolveError(kind string) {
	if m == nil {
		return
	}
	m.resolveErrorsTotal.WithLabelValues(kind).Inc()
}

// TemplateCacheHit records a compiled template being reused.
func (m *Metrics) TemplateCacheHit() {
	if m == nil {
		return
	}
	m.templateCacheHits.Inc()
}

// TemplateCompiled records a template compilation.
func (m *Metrics) TemplateCompiled(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.templateCompiles.WithLabelValues(result).Inc()
}

// SetLiveReloadClients sets the number of connected live reload clients.
func (m *Metrics) SetLiveReloadClients(count int) {
	if m == nil {
		return
	}
	m.liveReloadClients.Set(float64(count))
}

// RecordLiveReloadBroadcast records a reload message being sent.
func (m *Metrics) RecordLiveReloadBroadcast() {
	if m == nil {
		return
	}
	m.liveReloadBroadcast.Inc()
}
