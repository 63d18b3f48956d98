package bench

import (
	"errors"
	"sort"
	"testing"

	"github.com/shashankyld/cognibench/internal/model"
)

// capturingBatch records what Fit and PredictBatch receive.
type capturingBatch struct {
	fitStimuli [][]float64
	fitActions []float64
	testStim   [][]float64
}

func (c *capturingBatch) Name() string { return "capturing" }

func (c *capturingBatch) Fit(stimuli [][]float64, actions []float64) error {
	c.fitStimuli = stimuli
	c.fitActions = actions
	return nil
}

func (c *capturingBatch) PredictBatch(stimuli [][]float64) ([]float64, error) {
	c.testStim = stimuli
	out := make([]float64, len(stimuli))
	for i := range stimuli {
		out[i] = stimuli[i][0]
	}
	return out, nil
}

func TestTrainTest_RandomSplitPartitionsTrials(t *testing.T) {
	s, err := NewBatchTrainAndTest(accuracy, SplitOptions{
		NumTrials:     10,
		TrainFraction: 0.7,
		Seed:          42,
	})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	train, test := s.TrainIndices(), s.TestIndices()
	if len(train) != 7 || len(test) != 3 {
		t.Fatalf("split sizes = %d/%d, want 7/3", len(train), len(test))
	}

	seen := make(map[int]int, 10)
	for _, i := range append(append([]int(nil), train...), test...) {
		seen[i]++
	}
	if len(seen) != 10 {
		t.Fatalf("union covers %d distinct indices, want 10", len(seen))
	}
	for i := 0; i < 10; i++ {
		if seen[i] != 1 {
			t.Errorf("index %d appears %d times across the split, want exactly once", i, seen[i])
		}
	}
}

func TestTrainTest_SameSeedSameSplit(t *testing.T) {
	opts := SplitOptions{NumTrials: 20, TrainFraction: 0.6, Seed: 7}
	a, err := NewBatchTrainAndTest(accuracy, opts)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	b, err := NewBatchTrainAndTest(accuracy, opts)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	for k := range a.TrainIndices() {
		if a.TrainIndices()[k] != b.TrainIndices()[k] {
			t.Fatalf("train splits differ at %d: %v vs %v", k, a.TrainIndices(), b.TrainIndices())
		}
	}
	for k := range a.TestIndices() {
		if a.TestIndices()[k] != b.TestIndices()[k] {
			t.Fatalf("test splits differ at %d: %v vs %v", k, a.TestIndices(), b.TestIndices())
		}
	}
}

func TestTrainTest_ConfigurationErrors(t *testing.T) {
	cases := []struct {
		name string
		opts SplitOptions
	}{
		{"one-sided indices", SplitOptions{TrainIndices: []int{0, 1}}},
		{"empty test set", SplitOptions{TrainIndices: []int{0}, TestIndices: []int{}}},
		{"overlapping sets", SplitOptions{TrainIndices: []int{0, 1}, TestIndices: []int{1, 2}}},
		{"negative index", SplitOptions{TrainIndices: []int{-1}, TestIndices: []int{0}}},
		{"too few trials", SplitOptions{NumTrials: 1, TrainFraction: 0.5}},
		{"fraction zero", SplitOptions{NumTrials: 10, TrainFraction: 0}},
		{"fraction one", SplitOptions{NumTrials: 10, TrainFraction: 1}},
		{"fraction empties test", SplitOptions{NumTrials: 10, TrainFraction: 0.99}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBatchTrainAndTest(accuracy, tc.opts); !errors.Is(err, model.ErrConfiguration) {
				t.Errorf("got %v, want configuration error", err)
			}
		})
	}
}

func TestTrainTest_FitsTrainScoresTest(t *testing.T) {
	s, err := NewBatchTrainAndTest(
		func(actions, predictions []float64, args ScoreArgs) (Score, error) {
			// Verify only held-out actions reach the scorer.
			want := []float64{20, 40}
			if len(actions) != len(want) {
				t.Errorf("scorer got %d actions, want %d", len(actions), len(want))
			}
			for i := range want {
				if actions[i] != want[i] {
					t.Errorf("scorer action %d = %v, want %v", i, actions[i], want[i])
				}
			}
			return Score{Value: 0.5, Min: 0, Max: 1}, nil
		},
		SplitOptions{TrainIndices: []int{0, 2}, TestIndices: []int{1, 3}},
	)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	obs := &Observations{
		Stimuli: [][]float64{{0}, {1}, {2}, {3}},
		Actions: []float64{10, 20, 30, 40},
	}
	m := &capturingBatch{}
	predictions, err := s.PredictSingle(m, obs)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	if len(m.fitStimuli) != 2 || m.fitActions[0] != 10 || m.fitActions[1] != 30 {
		t.Errorf("fit received stimuli %v actions %v, want train rows 0 and 2", m.fitStimuli, m.fitActions)
	}
	if len(predictions) != 2 || predictions[0] != 1 || predictions[1] != 3 {
		t.Errorf("predictions = %v, want test stimuli echoed back", predictions)
	}

	if _, err := s.ScoreSingle(obs, predictions, nil); err != nil {
		t.Fatalf("score failed: %v", err)
	}
}

func TestTrainTest_IndexOutOfRangeForObservations(t *testing.T) {
	s, err := NewBatchTrainAndTest(accuracy, SplitOptions{
		TrainIndices: []int{0, 5},
		TestIndices:  []int{1},
	})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	obs := &Observations{
		Stimuli: [][]float64{{0}, {1}},
		Actions: []float64{0, 1},
	}
	if _, err := s.PredictSingle(&capturingBatch{}, obs); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("got %v, want configuration error", err)
	}
}

func TestTrainTest_ExplicitIndicesNeedNotCoverAllTrials(t *testing.T) {
	s, err := NewBatchTrainAndTest(accuracy, SplitOptions{
		TrainIndices: []int{0},
		TestIndices:  []int{3},
	})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	obs := &Observations{
		Stimuli: [][]float64{{0}, {1}, {2}, {1}},
		Actions: []float64{0, 0, 0, 1},
	}
	predictions, err := s.PredictSingle(&capturingBatch{}, obs)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if len(predictions) != 1 {
		t.Errorf("got %d predictions, want 1", len(predictions))
	}
}

func TestObservations_Validate(t *testing.T) {
	cases := []struct {
		name    string
		obs     *Observations
		rewards bool
		wantErr bool
	}{
		{"valid without rewards", &Observations{Stimuli: [][]float64{{1}}, Actions: []float64{0}}, false, false},
		{"empty", &Observations{}, false, true},
		{"action length mismatch", &Observations{Stimuli: [][]float64{{1}, {2}}, Actions: []float64{0}}, false, true},
		{"missing required rewards", &Observations{Stimuli: [][]float64{{1}}, Actions: []float64{0}}, true, true},
		{"reward length mismatch", &Observations{Stimuli: [][]float64{{1}}, Actions: []float64{0}, Rewards: []float64{1, 2}}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.obs.Validate(tc.rewards)
			if tc.wantErr && !errors.Is(err, model.ErrConfiguration) {
				t.Errorf("got %v, want configuration error", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3}); got != 2 {
		t.Errorf("mean = %v, want 2", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("mean of empty = %v, want 0", got)
	}

	// Aggregation must not depend on subject order.
	scores := []float64{0.1, 0.9, 0.4, 0.6}
	shuffled := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(shuffled)))
	if Mean(scores) != Mean(shuffled) {
		t.Errorf("mean depends on order: %v vs %v", Mean(scores), Mean(shuffled))
	}
}
