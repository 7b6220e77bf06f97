// Package metrics exposes Prometheus collectors for the sync pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for the reconciliation counter.
const (
	OutcomeSynced  = "synced"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

var (
	syncPagesFetchedTotal prometheus.Counter
	syncBicyclesTotal     *prometheus.CounterVec
	syncRunSeconds        prometheus.Histogram

	once sync.Once
)

// Init registers the collectors with the default registry. It is safe to call
// multiple times; helpers below no-op until it has been called.
func Init() {
	once.Do(func() {
		syncPagesFetchedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_sync_pages_fetched_total",
				Help: "Total number of catalog pages fetched from the relational store.",
			},
		)

		syncBicyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sync_bicycles_total",
				Help: "Total number of bicycles reconciled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		syncRunSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_sync_run_duration_seconds",
				Help:    "Wall-clock duration of complete sync runs.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		)
	})
}

// PageFetched records one completed page query.
func PageFetched() {
	if syncPagesFetchedTotal != nil {
		syncPagesFetchedTotal.Inc()
	}
}

// BicycleReconciled records one per-item outcome.
func BicycleReconciled(outcome string) {
	if syncBicyclesTotal != nil {
		syncBicyclesTotal.WithLabelValues(outcome).Inc()
	}
}

// RunCompleted records the duration of a finished run.
func RunCompleted(d time.Duration) {
	if syncRunSeconds != nil {
		syncRunSeconds.Observe(d.Seconds())
	}
}
