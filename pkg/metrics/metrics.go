// Package metrics defines the Prometheus metric collectors used across the
// pipeline and QA service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	IngestRunsTotal      *prometheus.CounterVec
	IngestRunDuration    prometheus.Histogram
	PostsDiscoveredTotal prometheus.Counter
	PostsStageTotal      *prometheus.CounterVec

	QARequestsTotal    *prometheus.CounterVec
	QALatency          *prometheus.HistogramVec
	RetrievedDocsCount prometheus.Histogram

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	CircuitBreakerState *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		IngestRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Total ingestion runs by outcome (committed, failed, cancelled).",
			},
			[]string{"outcome"},
		),
		IngestRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_run_duration_seconds",
				Help:    "Wall-clock duration of a full ingestion run.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		PostsDiscoveredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_discovered_total",
				Help: "Total posts seen in parsed feeds across all runs.",
			},
		),
		PostsStageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posts_stage_total",
				Help: "Per-stage post outcomes (stage: extract/summarize/ingest; status: ok/failed).",
			},
			[]string{"stage", "status"},
		),
		QARequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qa_requests_total",
				Help: "Total QA requests by result (answered, refused, error).",
			},
			[]string{"result"},
		),
		QALatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qa_latency_seconds",
				Help:    "QA request latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"cache_status"},
		),
		RetrievedDocsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieved_docs_count",
				Help:    "Number of documents returned per retrieval call.",
				Buckets: []float64{0, 1, 2, 4, 6, 8, 10},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of response cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of response cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.IngestRunsTotal,
		m.IngestRunDuration,
		m.PostsDiscoveredTotal,
		m.PostsStageTotal,
		m.QARequestsTotal,
		m.QALatency,
		m.RetrievedDocsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
