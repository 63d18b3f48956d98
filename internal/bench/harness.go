package bench

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shashankyld/cognibench/internal/model"
	"github.com/shashankyld/cognibench/internal/storage"
)

// Tracker receives harness lifecycle events. Implementations typically export
// prometheus metrics; a nil tracker disables tracking.
type Tracker interface {
	RunStarted(strategy, modelName string)
	RunCompleted(strategy, modelName string, score float64, elapsed time.Duration)
	RunFailed(strategy, modelName string)
	SubjectScored(score float64)
}

// Result is the outcome of one harness run.
type Result struct {
	Model    string `json:"model"`
	Strategy string `json:"strategy"`
	Score    Score  `json:"score"`
	// SubjectScores holds the per-subject scores of a multi-subject run, in
	// subject index order. Nil for single-subject runs.
	SubjectScores []float64 `json:"subject_scores,omitempty"`
	// Predictions holds one prediction array per subject; single-subject runs
	// produce exactly one row.
	Predictions [][]float64 `json:"predictions"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Harness drives one evaluation strategy against models. It checks
// capabilities before any strategy method runs, iterates subjects of a
// composite strictly in index order through the bind/unbind adapter,
// aggregates per-subject scores, and persists run artifacts.
//
// Execution is synchronous; the harness borrows the model for the duration of
// Run and never mutates two subjects' state interleaved.
type Harness struct {
	strategy  Strategy
	multi     bool
	aggregate Aggregator
	argsFn    ScoreArgsFunc
	store     *storage.ArtifactStore
	tracker   Tracker
}

// Option configures a Harness.
type Option func(*Harness)

// WithMultiSubject makes the harness iterate the subjects of a composite
// model instead of evaluating the model as a whole.
func WithMultiSubject() Option {
	return func(h *Harness) { h.multi = true }
}

// WithAggregator replaces the default mean reduction of per-subject scores.
// Aggregators must not depend on subject order.
func WithAggregator(fn Aggregator) Option {
	return func(h *Harness) { h.aggregate = fn }
}

// WithScoreArgs supplies auxiliary scoring context, evaluated once per
// subject before scoring.
func WithScoreArgs(fn ScoreArgsFunc) Option {
	return func(h *Harness) { h.argsFn = fn }
}

// WithArtifactStore enables result persistence keyed by model name.
func WithArtifactStore(store *storage.ArtifactStore) Option {
	return func(h *Harness) { h.store = store }
}

// WithTracker attaches a lifecycle tracker.
func WithTracker(t Tracker) Option {
	return func(h *Harness) { h.tracker = t }
}

// New builds a harness around a strategy.
func New(strategy Strategy, opts ...Option) (*Harness, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: nil strategy", model.ErrConfiguration)
	}
	h := &Harness{
		strategy:  strategy,
		aggregate: Mean,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.aggregate == nil {
		return nil, fmt.Errorf("%w: nil aggregator", model.ErrConfiguration)
	}
	return h, nil
}

// rewardRequirer is implemented by strategies that consume rewards (the
// interactive protocol); observation validation depends on it.
type rewardRequirer interface {
	RequiresRewards() bool
}

// RequiresRewards reports that interactive evaluation needs reward arrays.
func (s *Interactive) RequiresRewards() bool { return true }

func (h *Harness) requiresRewards() bool {
	if rr, ok := h.strategy.(rewardRequirer); ok {
		return rr.RequiresRewards()
	}
	return false
}

// Run evaluates one model against one observation set and returns the score.
// Capability and configuration failures surface before any prediction is
// attempted, leaving the model untouched.
func (h *Harness) Run(m model.Model, set *ObservationSet) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", model.ErrConfiguration)
	}
	if set == nil {
		return nil, fmt.Errorf("%w: nil observation set", model.ErrConfiguration)
	}

	start := time.Now()
	if h.tracker != nil {
		h.tracker.RunStarted(h.strategy.Name(), m.Name())
	}

	result, err := h.run(m, set)
	if err != nil {
		if h.tracker != nil {
			h.tracker.RunFailed(h.strategy.Name(), m.Name())
		}
		return nil, err
	}
	result.Elapsed = time.Since(start)

	if h.tracker != nil {
		h.tracker.RunCompleted(h.strategy.Name(), m.Name(), result.Score.Value, result.Elapsed)
	}
	log.Info().
		Str("strategy", h.strategy.Name()).
		Str("model", m.Name()).
		Float64("score", result.Score.Value).
		Dur("elapsed", result.Elapsed).
		Msg("Run complete")

	if h.store != nil {
		art := storage.Artifact{
			Score:       result.Score.Value,
			Predictions: result.Predictions,
		}
		if tt, ok := h.strategy.(*BatchTrainAndTest); ok {
			art.TestIndices = tt.TestIndices()
		}
		if err := h.store.SaveRun(m.Name(), art, m); err != nil {
			return nil, fmt.Errorf("persist run for %s: %w", m.Name(), err)
		}
	}
	return result, nil
}

func (h *Harness) run(m model.Model, set *ObservationSet) (*Result, error) {
	if err := h.checkCapabilities(m); err != nil {
		return nil, err
	}

	if !h.multi {
		if set.Single == nil {
			return nil, fmt.Errorf("%w: single-subject run needs single-subject observations", model.ErrConfiguration)
		}
		return h.runSingle(m, set.Single)
	}

	composite, ok := m.(*model.Composite)
	if !ok {
		return nil, fmt.Errorf("%w: multi-subject run needs a composite model, got %s", model.ErrCapability, m.Name())
	}
	if set.Subjects == nil {
		return nil, fmt.Errorf("%w: multi-subject run needs per-subject observations", model.ErrConfiguration)
	}
	if len(set.Subjects) != composite.NumSubjects() {
		return nil, fmt.Errorf("%w: %d subject models but %d subject observation sets",
			model.ErrConfiguration, composite.NumSubjects(), len(set.Subjects))
	}
	return h.runMulti(m, composite, set.Subjects)
}

func (h *Harness) checkCapabilities(m model.Model) error {
	required := h.strategy.Required()
	if h.multi {
		required = append(append([]model.Capability(nil), required...), model.CapMultiSubject)
	}
	for _, c := range required {
		if !c.Satisfied(m) {
			return fmt.Errorf("%w: model %s lacks %s (required by %s)",
				model.ErrCapability, m.Name(), c.Name, h.strategy.Name())
		}
	}
	return nil
}

func (h *Harness) runSingle(m model.Model, obs *Observations) (*Result, error) {
	if err := obs.Validate(h.requiresRewards()); err != nil {
		return nil, err
	}

	predictions, err := h.strategy.PredictSingle(m, obs)
	if err != nil {
		return nil, fmt.Errorf("generate predictions for %s: %w", m.Name(), err)
	}
	score, err := h.scoreSubject(m, obs, predictions)
	if err != nil {
		return nil, err
	}

	return &Result{
		Model:       m.Name(),
		Strategy:    h.strategy.Name(),
		Score:       score,
		Predictions: [][]float64{predictions},
	}, nil
}

func (h *Harness) runMulti(m model.Model, composite *model.Composite, subjects []*Observations) (*Result, error) {
	requireRewards := h.requiresRewards()
	for i, obs := range subjects {
		if err := obs.Validate(requireRewards); err != nil {
			return nil, fmt.Errorf("subject %d: %w", i, err)
		}
	}

	result := &Result{
		Model:         m.Name(),
		Strategy:      h.strategy.Name(),
		SubjectScores: make([]float64, 0, len(subjects)),
		Predictions:   make([][]float64, 0, len(subjects)),
	}

	var bounds *Score
	for i, obs := range subjects {
		bound, err := composite.Bind(i)
		if err != nil {
			return nil, err
		}
		score, predictions, err := h.evalSubject(bound, obs)
		if _, uerr := bound.Unbind(); uerr != nil {
			return nil, uerr
		}
		if err != nil {
			return nil, fmt.Errorf("subject %d: %w", i, err)
		}

		log.Debug().
			Str("model", m.Name()).
			Int("subject", i).
			Float64("score", score.Value).
			Msg("Subject scored")
		if h.tracker != nil {
			h.tracker.SubjectScored(score.Value)
		}
		result.SubjectScores = append(result.SubjectScores, score.Value)
		result.Predictions = append(result.Predictions, predictions)
		if bounds == nil {
			bounds = &Score{Min: score.Min, Max: score.Max}
		}
	}

	// Scorer bounds are uniform across subjects since a single scoring
	// function serves the whole run.
	result.Score = Score{
		Value: h.aggregate(result.SubjectScores),
		Min:   bounds.Min,
		Max:   bounds.Max,
	}
	return result, nil
}

func (h *Harness) evalSubject(bound *model.BoundSubject, obs *Observations) (Score, []float64, error) {
	predictions, err := h.strategy.PredictSingle(bound, obs)
	if err != nil {
		return Score{}, nil, fmt.Errorf("generate predictions: %w", err)
	}
	score, err := h.scoreSubject(bound, obs, predictions)
	if err != nil {
		return Score{}, nil, err
	}
	return score, predictions, nil
}

func (h *Harness) scoreSubject(m model.Model, obs *Observations, predictions []float64) (Score, error) {
	var args ScoreArgs
	if h.argsFn != nil {
		args = h.argsFn(m, obs, predictions)
	}
	score, err := h.strategy.ScoreSingle(obs, predictions, args)
	if err != nil {
		return Score{}, fmt.Errorf("compute score for %s: %w", m.Name(), err)
	}
	if err := checkBounds(m.Name(), score); err != nil {
		return Score{}, err
	}
	return score, nil
}
