// Package metrics provides Prometheus metrics collection for the benchmark
// harness: run counts and outcomes, per-subject score distributions, fit
// durations, and persistence failures, exposed via the Prometheus metrics
// endpoint of the suite runner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the harness.
type Metrics struct {
	// Run lifecycle metrics
	RunsTotal   prometheus.Counter   // Total number of harness runs started
	RunsFailed  prometheus.Counter   // Total number of harness runs that failed
	RunDuration prometheus.Histogram // Duration of completed runs in seconds

	// Score metrics
	AggregateScores prometheus.Histogram // Distribution of aggregate run scores
	SubjectScores   prometheus.Histogram // Distribution of per-subject scores

	// Fitting metrics
	FitDuration       prometheus.Histogram // Duration of model fitting in seconds
	FitNonConvergence prometheus.Counter   // Total number of non-converged fits

	// Persistence metrics
	SnapshotSkips prometheus.Counter // Total number of skipped model snapshots
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "runs_total",
			Help: "Total number of harness runs started",
		}),
		RunsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "runs_failed_total",
			Help: "Total number of harness runs that failed",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "run_duration_seconds",
			Help:    "Duration of completed harness runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		AggregateScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregate_scores",
			Help:    "Distribution of aggregate run scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		SubjectScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "subject_scores",
			Help:    "Distribution of per-subject scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fit_duration_seconds",
			Help:    "Duration of model fitting in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		FitNonConvergence: factory.NewCounter(prometheus.CounterOpts{
			Name: "fit_nonconvergence_total",
			Help: "Total number of fits that hit the iteration budget without converging",
		}),
		SnapshotSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapshot_skips_total",
			Help: "Total number of model snapshots skipped during persistence",
		}),
	}
}
