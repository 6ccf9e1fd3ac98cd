// Package metrics provides Prometheus metrics for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsTotal counts processed sweep items by outcome.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postrella",
			Name:      "items_total",
			Help:      "Jobs or topics handled by a sweep, by outcome",
		},
		[]string{"sweep", "outcome"},
	)

	// SweepDuration measures whole invocations.
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "postrella",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of sweep invocations in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"sweep"},
	)

	// PublishTotal counts delivery attempts per platform.
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postrella",
			Name:      "publish_total",
			Help:      "Publish attempts by platform and status",
		},
		[]string{"platform", "status"},
	)

	// StepFailures counts failed pipeline steps by policy.
	StepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postrella",
			Name:      "step_failures_total",
			Help:      "Failed auto-publish steps",
		},
		[]string{"step", "policy"},
	)
)

// RecordSweep records one finished invocation.
func RecordSweep(sweep string, started time.Time, processed, failed, skipped int) {
	SweepDuration.WithLabelValues(sweep).Observe(time.Since(started).Seconds())
	ItemsTotal.WithLabelValues(sweep, "processed").Add(float64(processed))
	ItemsTotal.WithLabelValues(sweep, "failed").Add(float64(failed))
	ItemsTotal.WithLabelValues(sweep, "skipped").Add(float64(skipped))
}

// RecordPublish records one delivery outcome.
func RecordPublish(platform, status string) {
	PublishTotal.WithLabelValues(platform, status).Inc()
}
