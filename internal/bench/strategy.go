package bench

import (
	"fmt"

	"github.com/shashankyld/cognibench/internal/model"
)

// Strategy is one evaluation protocol: a prediction procedure paired with a
// scoring procedure, applied to one (model, subject observations) pair at a
// time. The harness checks Required capabilities before invoking either.
type Strategy interface {
	Name() string
	Required() []model.Capability
	PredictSingle(m model.Model, obs *Observations) ([]float64, error)
	ScoreSingle(obs *Observations, predictions []float64, args ScoreArgs) (Score, error)
}

// Interactive evaluates a stateful model trial by trial: reset, then for each
// trial in temporal order predict from the stimulus and update from the full
// (stimulus, reward, action) record. Predictions therefore only ever depend
// on past trials.
type Interactive struct {
	score ScoreFunc
}

// NewInteractive builds the interactive strategy around an external scoring
// function.
func NewInteractive(score ScoreFunc) (*Interactive, error) {
	if score == nil {
		return nil, fmt.Errorf("%w: nil score function", model.ErrConfiguration)
	}
	return &Interactive{score: score}, nil
}

// Name implements Strategy.
func (s *Interactive) Name() string { return "interactive" }

// Required implements Strategy.
func (s *Interactive) Required() []model.Capability {
	return []model.Capability{model.CapInteractive}
}

// PredictSingle implements Strategy. It returns one prediction per trial, in
// trial order.
func (s *Interactive) PredictSingle(m model.Model, obs *Observations) ([]float64, error) {
	im, ok := m.(model.Interactive)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not interactive", model.ErrCapability, m.Name())
	}

	im.Reset()
	predictions := make([]float64, 0, obs.Len())
	for t := 0; t < obs.Len(); t++ {
		p, err := im.Predict(obs.Stimuli[t])
		if err != nil {
			return nil, fmt.Errorf("predict trial %d: %w", t, err)
		}
		predictions = append(predictions, p)
		if err := im.Update(obs.Stimuli[t], obs.Rewards[t], obs.Actions[t], false); err != nil {
			return nil, fmt.Errorf("update trial %d: %w", t, err)
		}
	}
	return predictions, nil
}

// ScoreSingle implements Strategy.
func (s *Interactive) ScoreSingle(obs *Observations, predictions []float64, args ScoreArgs) (Score, error) {
	return s.score(obs.Actions, predictions, args)
}

// Batch evaluates a model as a static function: one batch predict over the
// whole stimuli array, no reset and no update.
type Batch struct {
	score ScoreFunc
}

// NewBatch builds the batch strategy around an external scoring function.
func NewBatch(score ScoreFunc) (*Batch, error) {
	if score == nil {
		return nil, fmt.Errorf("%w: nil score function", model.ErrConfiguration)
	}
	return &Batch{score: score}, nil
}

// Name implements Strategy.
func (s *Batch) Name() string { return "batch" }

// Required implements Strategy.
func (s *Batch) Required() []model.Capability {
	return []model.Capability{model.CapBatchTrainable}
}

// PredictSingle implements Strategy.
func (s *Batch) PredictSingle(m model.Model, obs *Observations) ([]float64, error) {
	bm, ok := m.(model.BatchTrainable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not batch trainable", model.ErrCapability, m.Name())
	}
	predictions, err := bm.PredictBatch(obs.Stimuli)
	if err != nil {
		return nil, fmt.Errorf("batch predict: %w", err)
	}
	if len(predictions) != obs.Len() {
		return nil, fmt.Errorf("batch predict returned %d predictions for %d trials", len(predictions), obs.Len())
	}
	return predictions, nil
}

// ScoreSingle implements Strategy.
func (s *Batch) ScoreSingle(obs *Observations, predictions []float64, args ScoreArgs) (Score, error) {
	return s.score(obs.Actions, predictions, args)
}
