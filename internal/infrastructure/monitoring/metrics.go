package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the augmentation pipeline.
type Metrics struct {
	// Pipeline outcomes: augmented, skipped, failed, cancelled
	SearchesTotal *prometheus.CounterVec
	// Phase durations labelled by phase name
	PhaseDuration *prometheus.HistogramVec

	// Per-URL fetch outcomes: ok, no_content, timeout, error, cancelled
	FetchResults *prometheus.CounterVec
	// Pages kept by the early-exit policy per search
	FetchKept prometheus.Histogram

	// Executor events: captcha_detected, captcha_recovered, dismissed, timeout
	BrowserEvents *prometheus.CounterVec

	// HTTP facade
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webaugment_searches_total",
				Help: "Augmentation invocations by outcome",
			},
			[]string{"outcome"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webaugment_phase_duration_seconds",
				Help:    "Duration of each pipeline phase",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"phase"},
		),
		FetchResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webaugment_fetch_results_total",
				Help: "Per-URL fetch outcomes",
			},
			[]string{"status"},
		),
		FetchKept: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webaugment_fetch_kept_pages",
				Help:    "Pages kept per search by the early-exit policy",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		BrowserEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webaugment_browser_events_total",
				Help: "Browser executor events",
			},
			[]string{"event"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webaugment_http_requests_total",
				Help: "HTTP facade requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webaugment_http_request_duration_seconds",
				Help:    "HTTP facade request duration",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSearch records a pipeline outcome.
func (m *Metrics) RecordSearch(outcome string) {
	m.SearchesTotal.WithLabelValues(outcome).Inc()
}

// RecordPhase records how long a phase ran.
func (m *Metrics) RecordPhase(phase string, d time.Duration) {
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordFetch records a per-URL fetch outcome.
func (m *Metrics) RecordFetch(status string) {
	m.FetchResults.WithLabelValues(status).Inc()
}

// RecordKept records how many pages survived early exit.
func (m *Metrics) RecordKept(n int) {
	m.FetchKept.Observe(float64(n))
}

// RecordBrowserEvent records an executor event.
func (m *Metrics) RecordBrowserEvent(event string) {
	m.BrowserEvents.WithLabelValues(event).Inc()
}
