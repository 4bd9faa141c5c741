// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the reflection service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	LastSuccess *prometheus.GaugeVec

	// Reflection metrics
	ReportsGenerated *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec

	// Generator metrics
	GeneratorLatency prometheus.Histogram
	GeneratorErrors  prometheus.Counter

	// Pattern and adjustment metrics
	PatternsDiscovered    *prometheus.CounterVec
	AdjustmentsProposed   *prometheus.CounterVec
	AdjustmentTransitions *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics registers all metrics on a fresh registry that also carries
// the Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_memory"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by operation and status",
		}, []string{"operation", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline operation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		LastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful run by operation",
		}, []string{"operation"}),

		ReportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reflection",
			Name:      "reports_generated_total",
			Help:      "Total number of reflection reports by period kind and source",
		}, []string{"period", "source"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reflection",
			Name:      "fallbacks_total",
			Help:      "Total number of reports that fell back to the template",
		}, []string{"period"}),

		GeneratorLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "request_duration_seconds",
			Help:      "Narrative generator request latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		GeneratorErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "errors_total",
			Help:      "Total number of failed narrative generator requests",
		}),

		PatternsDiscovered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "patterns",
			Name:      "discovered_total",
			Help:      "Total number of patterns discovered by dimension and edge",
		}, []string{"dimension", "edge"}),
		AdjustmentsProposed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adjustments",
			Name:      "proposed_total",
			Help:      "Total number of adjustments proposed by type",
		}, []string{"type"}),
		AdjustmentTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adjustments",
			Name:      "transitions_total",
			Help:      "Total number of adjustment status transitions by target status",
		}, []string{"status"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"store", "operation"}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun records one pipeline operation.
func (m *Metrics) RecordRun(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(operation, status).Inc()
	m.RunDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err == nil {
		m.LastSuccess.WithLabelValues(operation).SetToCurrentTime()
	}
}

// RecordReport records a generated report.
func (m *Metrics) RecordReport(period, source string, usedFallback bool) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(period, source).Inc()
	if usedFallback {
		m.Fallbacks.WithLabelValues(period).Inc()
	}
}

// RecordGeneratorCall records one request to the narrative generator.
func (m *Metrics) RecordGeneratorCall(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.GeneratorLatency.Observe(d.Seconds())
	if err != nil {
		m.GeneratorErrors.Inc()
	}
}

// RecordPattern records a discovered pattern.
func (m *Metrics) RecordPattern(dimension, edge string) {
	if m == nil {
		return
	}
	m.PatternsDiscovered.WithLabelValues(dimension, edge).Inc()
}

// RecordAdjustmentProposed records a new proposal.
func (m *Metrics) RecordAdjustmentProposed(adjType string) {
	if m == nil {
		return
	}
	m.AdjustmentsProposed.WithLabelValues(adjType).Inc()
}

// RecordTransition records an adjustment moving to status.
func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.AdjustmentTransitions.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(store, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(store, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(store, operation).Inc()
	}
}
