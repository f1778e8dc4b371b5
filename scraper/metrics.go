package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aluiziolira/go-train-punctuality/extract"
	"github.com/aluiziolira/go-train-punctuality/models"
)

var _ extract.Observer = (*Metrics)(nil)

// Metrics bundles Prometheus collectors for fetching and extraction.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RecordsTotal     prometheus.Counter
	TablesTotal      prometheus.Counter
	AmbiguousTotal   prometheus.Counter
	RowsSkippedTotal *prometheus.CounterVec
	RetriesTotal     prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punctuality_requests_total",
			Help: "Total report requests issued.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "punctuality_request_duration_seconds",
			Help:    "HTTP latency of report requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "punctuality_records_extracted_total",
			Help: "Records produced by the row normalizer.",
		},
	)
	tables := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "punctuality_tables_located_total",
			Help: "Dated tables found by the section locator.",
		},
	)
	ambiguous := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "punctuality_ambiguous_tables_total",
			Help: "Tables found before any year heading.",
		},
	)
	rowsSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punctuality_rows_skipped_total",
			Help: "Table rows that produced no record, by reason.",
		},
		[]string{"reason"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "punctuality_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "punctuality_cache_hits_total",
			Help: "Sources served from the dataset cache.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punctuality_errors_total",
			Help: "Fetch and extraction errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, records, tables, ambiguous, rowsSkipped, retries, cacheHits, errorsTotal)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		RecordsTotal:     records,
		TablesTotal:      tables,
		AmbiguousTotal:   ambiguous,
		RowsSkippedTotal: rowsSkipped,
		RetriesTotal:     retries,
		CacheHitsTotal:   cacheHits,
		ErrorsTotal:      errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncCacheHit counts a source served from cache.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// TableLocated counts a dated table found by the locator.
func (m *Metrics) TableLocated(models.PeriodKey) {
	if m == nil {
		return
	}
	m.TablesTotal.Inc()
}

// RowSkipped counts a dropped row under its skip reason.
func (m *Metrics) RowSkipped(_ models.PeriodKey, reason extract.SkipReason) {
	if m == nil {
		return
	}
	m.RowsSkippedTotal.WithLabelValues(string(reason)).Inc()
}

// RecordExtracted counts a normalized record.
func (m *Metrics) RecordExtracted(models.PeriodKey) {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
}

// AmbiguousTable counts a table found before any year heading.
func (m *Metrics) AmbiguousTable(*extract.AmbiguousPeriodError) {
	if m == nil {
		return
	}
	m.AmbiguousTotal.Inc()
}
