// Package metrics exposes Prometheus collectors for the extraction pipeline.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns the pipeline collectors. A nil *Metrics is a valid no-op so
// components can run without instrumentation.
type Metrics struct {
	extractions        *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	activeExtractors   prometheus.Gauge
	persists           *prometheus.CounterVec
	enrichments        *prometheus.CounterVec
	runs               *prometheus.CounterVec
}

// New registers the collectors against the provided registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profiler_extractions_total",
			Help: "Extraction attempts partitioned by outcome.",
		}, []string{"outcome"}),
		extractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profiler_extraction_duration_seconds",
			Help:    "Wall time per extraction partitioned by outcome.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		activeExtractors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiler_active_extractors",
			Help: "Number of extractors currently holding a browser session.",
		}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profiler_persist_total",
			Help: "Description writes partitioned by result.",
		}, []string{"result"}),
		enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profiler_enrichment_total",
			Help: "Enrichment calls partitioned by result.",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profiler_runs_total",
			Help: "Pipeline runs partitioned by result.",
		}, []string{"result"}),
	}
	for _, collector := range []prometheus.Collector{
		m.extractions,
		m.extractionDuration,
		m.activeExtractors,
		m.persists,
		m.enrichments,
		m.runs,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register pipeline collector: %w", err)
		}
	}
	return m, nil
}

// ObserveExtraction counts one finished extraction.
func (m *Metrics) ObserveExtraction(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.extractionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

// IncActiveExtractors increments the active extractors gauge.
func (m *Metrics) IncActiveExtractors() {
	if m == nil {
		return
	}
	m.activeExtractors.Inc()
}

// DecActiveExtractors decrements the active extractors gauge.
func (m *Metrics) DecActiveExtractors() {
	if m == nil {
		return
	}
	m.activeExtractors.Dec()
}

// ObservePersist counts one description write ("ok", "error", "skipped").
func (m *Metrics) ObservePersist(result string) {
	if m == nil {
		return
	}
	m.persists.WithLabelValues(result).Inc()
}

// ObserveEnrichment counts one enrichment attempt ("ok", "fallback", "disabled").
func (m *Metrics) ObserveEnrichment(result string) {
	if m == nil {
		return
	}
	m.enrichments.WithLabelValues(result).Inc()
}

// ObserveRun counts one pipeline run ("completed", "empty", "aborted").
func (m *Metrics) ObserveRun(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}

// SanitizeSite extracts a lowercase hostname for log fields.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
