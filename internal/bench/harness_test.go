package bench

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shashankyld/cognibench/internal/model"
	"github.com/shashankyld/cognibench/internal/storage"
)

// scripted replays a fixed prediction sequence, one value per Predict call.
type scripted struct {
	name  string
	preds []float64
	t     int
}

func newScripted(p model.Params) (model.Model, error) {
	s := &scripted{name: "scripted"}
	for i := 0; ; i++ {
		v, ok := p[fmt.Sprintf("s%d", i)]
		if !ok {
			break
		}
		s.preds = append(s.preds, v)
	}
	return s, nil
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Reset() { s.t = 0 }

func (s *scripted) Predict(stimulus []float64) (float64, error) {
	if s.t >= len(s.preds) {
		return 0, fmt.Errorf("no scripted prediction for trial %d", s.t)
	}
	p := s.preds[s.t]
	s.t++
	return p, nil
}

func (s *scripted) Update(stimulus []float64, reward, action float64, done bool) error { return nil }

func (s *scripted) Act(stimulus []float64) (float64, error) { return s.Predict(stimulus) }

// batchOnly counts calls so tests can assert nothing ran.
type batchOnly struct {
	fitCalls     int
	predictCalls int
}

func (b *batchOnly) Name() string { return "batch-only" }

func (b *batchOnly) Fit(stimuli [][]float64, actions []float64) error {
	b.fitCalls++
	return nil
}

func (b *batchOnly) PredictBatch(stimuli [][]float64) ([]float64, error) {
	b.predictCalls++
	return make([]float64, len(stimuli)), nil
}

// accuracy scores the fraction of trials where the rounded prediction equals
// the observed action.
func accuracy(actions, predictions []float64, args ScoreArgs) (Score, error) {
	if len(actions) != len(predictions) {
		return Score{}, fmt.Errorf("%d actions vs %d predictions", len(actions), len(predictions))
	}
	hits := 0
	for i := range actions {
		if math.Round(predictions[i]) == actions[i] {
			hits++
		}
	}
	return Score{Value: float64(hits) / float64(len(actions)), Min: 0, Max: 1}, nil
}

type fakeTracker struct {
	started   int
	completed int
	failed    int
	subjects  []float64
}

func (f *fakeTracker) RunStarted(strategy, modelName string) { f.started++ }
func (f *fakeTracker) RunCompleted(strategy, modelName string, score float64, elapsed time.Duration) {
	f.completed++
}
func (f *fakeTracker) RunFailed(strategy, modelName string) { f.failed++ }
func (f *fakeTracker) SubjectScored(score float64)          { f.subjects = append(f.subjects, score) }

func interactiveObs(actions []float64) *Observations {
	n := len(actions)
	obs := &Observations{
		Stimuli: make([][]float64, n),
		Actions: actions,
		Rewards: make([]float64, n),
	}
	for i := range obs.Stimuli {
		obs.Stimuli[i] = []float64{1}
	}
	return obs
}

func TestHarness_TwoSubjectsMeanAccuracy(t *testing.T) {
	// Both subjects hit 2 of 3 trials, so the aggregate is 2/3 exactly.
	perSubject := []model.Params{
		{"s0": 1, "s1": 0, "s2": 0},
		{"s0": 0, "s1": 0, "s2": 1},
	}
	composite, err := model.Compose("pair", newScripted, perSubject, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	strategy, err := NewInteractive(accuracy)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	tracker := &fakeTracker{}
	h, err := New(strategy, WithMultiSubject(), WithTracker(tracker))
	if err != nil {
		t.Fatalf("harness: %v", err)
	}

	actions := []float64{1, 0, 1}
	result, err := h.Run(composite, MultiSubject(interactiveObs(actions), interactiveObs(actions)))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := 2.0 / 3.0
	if math.Abs(result.Score.Value-want) > 1e-12 {
		t.Errorf("aggregate score = %v, want %v", result.Score.Value, want)
	}
	if len(result.SubjectScores) != 2 {
		t.Fatalf("subject score count = %d, want 2", len(result.SubjectScores))
	}
	for i, s := range result.SubjectScores {
		if math.Abs(s-want) > 1e-12 {
			t.Errorf("subject %d score = %v, want %v", i, s, want)
		}
	}
	if len(result.Predictions) != 2 || len(result.Predictions[0]) != 3 {
		t.Errorf("predictions shape = %dx%d, want 2x3", len(result.Predictions), len(result.Predictions[0]))
	}
	if tracker.started != 1 || tracker.completed != 1 || tracker.failed != 0 {
		t.Errorf("tracker counts = %d/%d/%d, want 1/1/0", tracker.started, tracker.completed, tracker.failed)
	}
	if len(tracker.subjects) != 2 {
		t.Errorf("tracked %d subject scores, want 2", len(tracker.subjects))
	}
}

func TestHarness_CapabilityFailureBeforeAnyPrediction(t *testing.T) {
	m := &batchOnly{}
	strategy, err := NewInteractive(accuracy)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	tracker := &fakeTracker{}
	h, err := New(strategy, WithTracker(tracker))
	if err != nil {
		t.Fatalf("harness: %v", err)
	}

	_, err = h.Run(m, SingleSubject(interactiveObs([]float64{1, 0})))
	if !errors.Is(err, model.ErrCapability) {
		t.Fatalf("got %v, want capability error", err)
	}
	if m.fitCalls != 0 || m.predictCalls != 0 {
		t.Errorf("model was touched (%d fits, %d predicts) despite failed precheck", m.fitCalls, m.predictCalls)
	}
	if tracker.failed != 1 || tracker.completed != 0 {
		t.Errorf("tracker counts = failed %d / completed %d, want 1 / 0", tracker.failed, tracker.completed)
	}
}

func TestHarness_DeterministicAcrossRuns(t *testing.T) {
	params := []model.Params{{"s0": 0.2, "s1": 0.8, "s2": 0.5}}
	actions := []float64{0, 1, 1}

	run := func() *Result {
		composite, err := model.Compose("det", newScripted, params, nil)
		if err != nil {
			t.Fatalf("compose failed: %v", err)
		}
		strategy, err := NewInteractive(accuracy)
		if err != nil {
			t.Fatalf("strategy: %v", err)
		}
		h, err := New(strategy, WithMultiSubject())
		if err != nil {
			t.Fatalf("harness: %v", err)
		}
		result, err := h.Run(composite, MultiSubject(interactiveObs(actions)))
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return result
	}

	a, b := run(), run()
	if a.Score != b.Score {
		t.Errorf("scores differ across identical runs: %v vs %v", a.Score, b.Score)
	}
	for i := range a.Predictions[0] {
		if a.Predictions[0][i] != b.Predictions[0][i] {
			t.Errorf("prediction %d differs: %v vs %v", i, a.Predictions[0][i], b.Predictions[0][i])
		}
	}
}

func TestHarness_CustomAggregator(t *testing.T) {
	perSubject := []model.Params{
		{"s0": 1}, // hit
		{"s0": 0}, // miss
	}
	composite, err := model.Compose("agg", newScripted, perSubject, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	strategy, err := NewInteractive(accuracy)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	minOf := func(scores []float64) float64 {
		m := scores[0]
		for _, s := range scores[1:] {
			if s < m {
				m = s
			}
		}
		return m
	}
	h, err := New(strategy, WithMultiSubject(), WithAggregator(minOf))
	if err != nil {
		t.Fatalf("harness: %v", err)
	}

	actions := []float64{1}
	result, err := h.Run(composite, MultiSubject(interactiveObs(actions), interactiveObs(actions)))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Score.Value != 0 {
		t.Errorf("min aggregate = %v, want 0", result.Score.Value)
	}
}

func TestHarness_ScoreArgsEvaluatedPerSubject(t *testing.T) {
	perSubject := []model.Params{{"s0": 1}, {"s0": 1}}
	composite, err := model.Compose("args", newScripted, perSubject, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	var argCalls int
	scoreCalls := 0
	scorer := func(actions, predictions []float64, args ScoreArgs) (Score, error) {
		scoreCalls++
		if args["tag"] != float64(scoreCalls) {
			return Score{}, fmt.Errorf("args tag = %v on call %d", args["tag"], scoreCalls)
		}
		return Score{Value: 1, Min: 0, Max: 1}, nil
	}
	strategy, err := NewInteractive(scorer)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	h, err := New(strategy,
		WithMultiSubject(),
		WithScoreArgs(func(m model.Model, obs *Observations, predictions []float64) ScoreArgs {
			argCalls++
			return ScoreArgs{"tag": float64(argCalls)}
		}),
	)
	if err != nil {
		t.Fatalf("harness: %v", err)
	}

	actions := []float64{1}
	if _, err := h.Run(composite, MultiSubject(interactiveObs(actions), interactiveObs(actions))); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if argCalls != 2 {
		t.Errorf("args function evaluated %d times, want 2", argCalls)
	}
}

func TestHarness_OutOfBoundsScoreRejected(t *testing.T) {
	badScorer := func(actions, predictions []float64, args ScoreArgs) (Score, error) {
		return Score{Value: 2, Min: 0, Max: 1}, nil
	}
	strategy, err := NewInteractive(badScorer)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	h, err := New(strategy)
	if err != nil {
		t.Fatalf("harness: %v", err)
	}

	m, _ := newScripted(model.Params{"s0": 1})
	_, err = h.Run(m, SingleSubject(interactiveObs([]float64{1})))
	if err == nil {
		t.Fatal("expected bounds violation error")
	}
}

func TestHarness_SubjectCountMismatch(t *testing.T) {
	composite, err := model.Compose("mismatch", newScripted, []model.Params{{"s0": 1}, {"s0": 1}}, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	strategy, err := NewInteractive(accuracy)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	h, err := New(strategy, WithMultiSubject())
	if err != nil {
		t.Fatalf("harness: %v", err)
	}

	_, err = h.Run(composite, MultiSubject(interactiveObs([]float64{1})))
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("got %v, want configuration error", err)
	}
}

func TestHarness_PersistsArtifacts(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewArtifactStore(dir)
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}

	strategy, err := NewInteractive(accuracy)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	h, err := New(strategy, WithArtifactStore(store))
	if err != nil {
		t.Fatalf("harness: %v", err)
	}

	m, _ := newScripted(model.Params{"s0": 1, "s1": 0})
	m.(*scripted).name = "persisted"
	if _, err := h.Run(m, SingleSubject(interactiveObs([]float64{1, 0}))); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{"score", "predictions"} {
		path := filepath.Join(dir, "persisted", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact %s: %v", path, err)
		}
	}
}
