// Package metrics exposes Prometheus metrics for the HTTP layer and the
// import/export pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

const namespace = "donorcrm"

// Registry holds every metric the server records.
type Registry struct {
	gatherer prometheus.Gatherer

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Pipeline
	ImportRowsTotal     *prometheus.CounterVec
	ImportDuration      *prometheus.HistogramVec
	ImportsTotal        *prometheus.CounterVec
	ExportRowsTotal     *prometheus.CounterVec
	ImportsActive       prometheus.GaugeFunc
	RateLimitedRequests prometheus.Counter
}

// New registers all metrics with reg. activeImports backs the
// imports_active gauge and may be nil.
func New(reg *prometheus.Registry, activeImports func() int) *Registry {
	f := promauto.With(reg)
	if activeImports == nil {
		activeImports = func() int { return 0 }
	}

	return &Registry{
		gatherer: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route, method, and status code",
			},
			[]string{"route", "method", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "HTTP requests currently being served",
			},
		),

		ImportRowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_rows_total",
				Help:      "Import rows processed by entity type and outcome",
			},
			[]string{"entity_type", "outcome"},
		),
		ImportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Wall time of an import run",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"entity_type"},
		),
		ImportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Import runs by entity type and result",
			},
			[]string{"entity_type", "result"},
		),
		ExportRowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_rows_total",
				Help:      "Rows exported by entity type and format",
			},
			[]string{"entity_type", "format"},
		),
		ImportsActive: f.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "imports_active",
				Help:      "Imports currently holding a slot",
			},
			func() float64 { return float64(activeImports()) },
		),
		RateLimitedRequests: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the per-client rate limiter",
			},
		),
	}
}

// ImportRow implements core.Recorder.
func (m *Registry) ImportRow(et core.EntityType, outcome core.RowOutcome) {
	m.ImportRowsTotal.WithLabelValues(string(et), string(outcome)).Inc()
}

// ImportFinished implements core.Recorder.
func (m *Registry) ImportFinished(et core.EntityType, elapsed time.Duration, success bool) {
	m.ImportDuration.WithLabelValues(string(et)).Observe(elapsed.Seconds())
	result := "success"
	if !success {
		result = "incomplete"
	}
	m.ImportsTotal.WithLabelValues(string(et), result).Inc()
}

// Exported implements core.Recorder.
func (m *Registry) Exported(et core.EntityType, format core.ExportFormat, rows int) {
	m.ExportRowsTotal.WithLabelValues(string(et), string(format)).Add(float64(rows))
}

// Handler serves the registry in the Prometheus text format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight requests.
// Routes are labelled by their chi pattern so ids do not explode
// cardinality.
func (m *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
