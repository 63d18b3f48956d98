package bench

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/shashankyld/cognibench/internal/model"
)

// SplitOptions configures the train/test partition for BatchTrainAndTest.
// Either supply both explicit index sets, or neither and let a seeded shuffle
// of [0, NumTrials) produce them; supplying exactly one of the index sets is
// a configuration error.
type SplitOptions struct {
	// TrainIndices and TestIndices are explicit, disjoint trial index sets.
	TrainIndices []int
	TestIndices  []int

	// NumTrials, TrainFraction and Seed drive the random split when no
	// explicit indices are given. TrainFraction must lie strictly between 0
	// and 1. The same seed always produces the same split.
	NumTrials     int
	TrainFraction float64
	Seed          int64
}

// BatchTrainAndTest fits a model on the training slice of a subject's trials
// and evaluates predictions on the held-out test slice. The partition is
// fixed at construction.
type BatchTrainAndTest struct {
	score ScoreFunc
	train []int
	test  []int
}

// NewBatchTrainAndTest builds the strategy and partitions trial indices per
// opts. All validation happens here, never mid-run.
func NewBatchTrainAndTest(score ScoreFunc, opts SplitOptions) (*BatchTrainAndTest, error) {
	if score == nil {
		return nil, fmt.Errorf("%w: nil score function", model.ErrConfiguration)
	}

	s := &BatchTrainAndTest{score: score}

	switch {
	case opts.TrainIndices != nil && opts.TestIndices != nil:
		if err := validateIndexSets(opts.TrainIndices, opts.TestIndices); err != nil {
			return nil, err
		}
		s.train = append([]int(nil), opts.TrainIndices...)
		s.test = append([]int(nil), opts.TestIndices...)

	case opts.TrainIndices == nil && opts.TestIndices == nil:
		if opts.NumTrials <= 1 {
			return nil, fmt.Errorf("%w: random split needs at least 2 trials, got %d", model.ErrConfiguration, opts.NumTrials)
		}
		if opts.TrainFraction <= 0 || opts.TrainFraction >= 1 {
			return nil, fmt.Errorf("%w: train fraction must be in (0, 1), got %v", model.ErrConfiguration, opts.TrainFraction)
		}
		indices := make([]int, opts.NumTrials)
		for i := range indices {
			indices[i] = i
		}
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		nTrain := int(math.Round(float64(opts.NumTrials) * opts.TrainFraction))
		if nTrain == 0 || nTrain == opts.NumTrials {
			return nil, fmt.Errorf("%w: train fraction %v leaves an empty split for %d trials",
				model.ErrConfiguration, opts.TrainFraction, opts.NumTrials)
		}
		s.train = indices[:nTrain]
		s.test = indices[nTrain:]

	default:
		return nil, fmt.Errorf("%w: train and test indices must be supplied together", model.ErrConfiguration)
	}

	return s, nil
}

func validateIndexSets(train, test []int) error {
	if len(train) == 0 || len(test) == 0 {
		return fmt.Errorf("%w: train and test index sets must be non-empty", model.ErrConfiguration)
	}
	seen := make(map[int]bool, len(train))
	for _, i := range train {
		if i < 0 {
			return fmt.Errorf("%w: negative trial index %d", model.ErrConfiguration, i)
		}
		seen[i] = true
	}
	for _, i := range test {
		if i < 0 {
			return fmt.Errorf("%w: negative trial index %d", model.ErrConfiguration, i)
		}
		if seen[i] {
			return fmt.Errorf("%w: trial index %d appears in both train and test sets", model.ErrConfiguration, i)
		}
	}
	return nil
}

// Name implements Strategy.
func (s *BatchTrainAndTest) Name() string { return "batch-train-and-test" }

// Required implements Strategy.
func (s *BatchTrainAndTest) Required() []model.Capability {
	return []model.Capability{model.CapBatchTrainable}
}

// TrainIndices returns the training trial indices.
func (s *BatchTrainAndTest) TrainIndices() []int { return s.train }

// TestIndices returns the held-out trial indices. The harness persists these
// alongside predictions so scores can be reproduced.
func (s *BatchTrainAndTest) TestIndices() []int { return s.test }

// PredictSingle implements Strategy: fit on the training slice, then predict
// the test slice. Predictions align with TestIndices order.
func (s *BatchTrainAndTest) PredictSingle(m model.Model, obs *Observations) ([]float64, error) {
	bm, ok := m.(model.BatchTrainable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not batch trainable", model.ErrCapability, m.Name())
	}
	if err := s.checkRange(obs.Len()); err != nil {
		return nil, err
	}

	xTrain := make([][]float64, len(s.train))
	yTrain := make([]float64, len(s.train))
	for k, i := range s.train {
		xTrain[k] = obs.Stimuli[i]
		yTrain[k] = obs.Actions[i]
	}
	if err := bm.Fit(xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	xTest := make([][]float64, len(s.test))
	for k, i := range s.test {
		xTest[k] = obs.Stimuli[i]
	}
	predictions, err := bm.PredictBatch(xTest)
	if err != nil {
		return nil, fmt.Errorf("test predict: %w", err)
	}
	if len(predictions) != len(s.test) {
		return nil, fmt.Errorf("test predict returned %d predictions for %d held-out trials", len(predictions), len(s.test))
	}
	return predictions, nil
}

// ScoreSingle implements Strategy, scoring against the actions at the test
// indices only.
func (s *BatchTrainAndTest) ScoreSingle(obs *Observations, predictions []float64, args ScoreArgs) (Score, error) {
	if err := s.checkRange(obs.Len()); err != nil {
		return Score{}, err
	}
	actions := make([]float64, len(s.test))
	for k, i := range s.test {
		actions[k] = obs.Actions[i]
	}
	return s.score(actions, predictions, args)
}

func (s *BatchTrainAndTest) checkRange(n int) error {
	for _, i := range s.train {
		if i >= n {
			return fmt.Errorf("%w: train index %d out of range for %d trials", model.ErrConfiguration, i, n)
		}
	}
	for _, i := range s.test {
		if i >= n {
			return fmt.Errorf("%w: test index %d out of range for %d trials", model.ErrConfiguration, i, n)
		}
	}
	return nil
}
