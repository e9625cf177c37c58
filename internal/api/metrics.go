package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sparqld/internal/engine"
	"sparqld/internal/errors"
)

// MetricsCollector collects and exposes Prometheus metrics. It doubles as
// the engine's Tracer, timing each evaluation phase.
type MetricsCollector struct {
	registry *prometheus.Registry

	// Counters
	requestsTotal     *prometheus.CounterVec
	queriesTotal      *prometheus.CounterVec
	fallbacksTotal    prometheus.Counter
	errorsTotal       *prometheus.CounterVec
	rateLimitExceeded prometheus.Counter

	// Histograms
	requestDuration *prometheus.HistogramVec
	spanDuration    *prometheus.HistogramVec
}

type spanStartKey string

// NewMetricsCollector creates a collector on its own registry, with the Go
// runtime and process collectors attached.
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparqld_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparqld_queries_total",
			Help: "Total number of evaluated queries by strategy",
		}, []string{"strategy"}),
		fallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sparqld_fallbacks_total",
			Help: "Total number of queries declined by the primary strategy",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparqld_errors_total",
			Help: "Total number of error responses by error code",
		}, []string{"code"}),
		rateLimitExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sparqld_ratelimit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sparqld_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		spanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sparqld_evaluation_phase_duration_seconds",
			Help:    "Duration of query evaluation phases in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"phase", "outcome"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.queriesTotal,
		m.fallbacksTotal,
		m.errorsTotal,
		m.rateLimitExceeded,
		m.requestDuration,
		m.spanDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed HTTP request
func (m *MetricsCollector) RecordRequest(route, method string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordQuery records a query answered by strategy
func (m *MetricsCollector) RecordQuery(strategy string) {
	m.queriesTotal.WithLabelValues(strategy).Inc()
}

// RecordError records an error response
func (m *MetricsCollector) RecordError(code errors.ErrorCode) {
	m.errorsTotal.WithLabelValues(string(code)).Inc()
}

// RecordRateLimitExceeded records a rejected request
func (m *MetricsCollector) RecordRateLimitExceeded() {
	m.rateLimitExceeded.Inc()
}

// BeginSpan implements engine.Tracer.
func (m *MetricsCollector) BeginSpan(ctx context.Context, name string) context.Context {
	if name == engine.SpanFallback {
		m.fallbacksTotal.Inc()
	}
	return context.WithValue(ctx, spanStartKey(name), time.Now())
}

// EndSpan implements engine.Tracer.
func (m *MetricsCollector) EndSpan(ctx context.Context, name string, err error) {
	start, ok := ctx.Value(spanStartKey(name)).(time.Time)
	if !ok {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.spanDuration.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
}

var _ engine.Tracer = (*MetricsCollector)(nil)
