package metrics

import "time"

// Wrapper adapts Metrics to the harness's Tracker interface so the bench
// package does not import prometheus directly.
type Wrapper struct {
	m *Metrics
}

// NewWrapper wraps a Metrics set.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

// RunStarted implements bench.Tracker.
func (w *Wrapper) RunStarted(strategy, modelName string) {
	w.m.RunsTotal.Inc()
}

// RunCompleted implements bench.Tracker.
func (w *Wrapper) RunCompleted(strategy, modelName string, score float64, elapsed time.Duration) {
	w.m.AggregateScores.Observe(score)
	w.m.RunDuration.Observe(elapsed.Seconds())
}

// RunFailed implements bench.Tracker.
func (w *Wrapper) RunFailed(strategy, modelName string) {
	w.m.RunsFailed.Inc()
}

// SubjectScored implements bench.Tracker.
func (w *Wrapper) SubjectScored(score float64) {
	w.m.SubjectScores.Observe(score)
}
