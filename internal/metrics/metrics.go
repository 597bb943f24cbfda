// Package metrics exposes Prometheus instrumentation for ingestion, backfill
// and source fetches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the casemap collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Ingest outcomes by source and kind (inserted, skipped_duplicate, invalid, failed)
	IngestOutcomes *prometheus.CounterVec

	// Source fetch results by source and result (ok, error)
	FetchResults *prometheus.CounterVec

	FetchLatency *prometheus.HistogramVec

	// Backfill row actions (reclassified, cleaned, failed)
	CorrectionActions *prometheus.CounterVec

	RunDuration prometheus.Histogram
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		IngestOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casemap_ingest_outcomes_total",
			Help: "Ingested candidates by source and outcome kind",
		}, []string{"source", "outcome"}),

		FetchResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casemap_source_fetch_total",
			Help: "Source fetches by source and result",
		}, []string{"source", "result"}),

		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casemap_source_fetch_duration_seconds",
			Help:    "Duration of a full source fetch, pagination included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),

		CorrectionActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casemap_correction_actions_total",
			Help: "Rows touched by the backfill job by action",
		}, []string{"action"}),

		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "casemap_ingest_run_duration_seconds",
			Help:    "Duration of one ingestion run over all selected sources",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

// IncrementOutcome records one ingest outcome.
func (m *Metrics) IncrementOutcome(source, outcome string) {
	if m != nil {
		m.IngestOutcomes.WithLabelValues(source, outcome).Inc()
	}
}

// ObserveFetch records a source fetch and its duration.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.FetchResults.WithLabelValues(source, result).Inc()
	m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
}

// AddCorrections records backfill actions.
func (m *Metrics) AddCorrections(action string, n int) {
	if m != nil && n > 0 {
		m.CorrectionActions.WithLabelValues(action).Add(float64(n))
	}
}

// ObserveRun records the duration of an ingestion run.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}
