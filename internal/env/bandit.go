// Package env provides the bandit environments used to generate observation
// data for the benchmark: a classic n-armed bandit and a stimulus-conditional
// variant for associative-learning tasks. Environments validate their
// probability tables at construction and are deterministic under a fixed
// seed.
package env

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/shashankyld/cognibench/internal/model"
)

// Bandit is an n-armed bandit: pulling arm a pays reward 1 with probability
// pDist[a], else 0.
type Bandit struct {
	pDist []float64
	rng   *rand.Rand
}

// NewBandit builds a bandit from per-arm payout probabilities.
func NewBandit(pDist []float64, seed int64) (*Bandit, error) {
	if len(pDist) == 0 {
		return nil, fmt.Errorf("%w: bandit needs at least one arm", model.ErrConfiguration)
	}
	for i, p := range pDist {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: arm %d payout probability %v outside [0, 1]", model.ErrConfiguration, i, p)
		}
	}
	return &Bandit{
		pDist: append([]float64(nil), pDist...),
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Arms reports the number of arms.
func (b *Bandit) Arms() int { return len(b.pDist) }

// Step reacts to the agent pulling an arm. The bandit task never terminates,
// so done is always false.
func (b *Bandit) Step(arm int) (reward float64, done bool, err error) {
	if arm < 0 || arm >= len(b.pDist) {
		return 0, false, fmt.Errorf("arm %d out of range [0,%d)", arm, len(b.pDist))
	}
	if b.rng.Float64() < b.pDist[arm] {
		reward = 1
	}
	return reward, false, nil
}

// StimulusBandit presents one stimulus per trial, drawn from a fixed set with
// probabilities pStimuli, and pays reward 1 with the probability pReward
// associated with the drawn stimulus. All three lists are co-indexed and
// their lengths must agree.
type StimulusBandit struct {
	stimuli  [][]float64
	pStimuli []float64
	pReward  []float64
	rng      *rand.Rand
}

// NewStimulusBandit validates the stimulus set and probability tables.
func NewStimulusBandit(stimuli [][]float64, pStimuli, pReward []float64, seed int64) (*StimulusBandit, error) {
	if len(stimuli) == 0 {
		return nil, fmt.Errorf("%w: empty stimulus set", model.ErrConfiguration)
	}
	if len(pStimuli) != len(stimuli) || len(pReward) != len(stimuli) {
		return nil, fmt.Errorf("%w: %d stimuli but %d presentation and %d reward probabilities",
			model.ErrConfiguration, len(stimuli), len(pStimuli), len(pReward))
	}
	var total float64
	for i := range stimuli {
		if pStimuli[i] < 0 || pStimuli[i] > 1 {
			return nil, fmt.Errorf("%w: presentation probability %v outside [0, 1]", model.ErrConfiguration, pStimuli[i])
		}
		if pReward[i] < 0 || pReward[i] > 1 {
			return nil, fmt.Errorf("%w: reward probability %v outside [0, 1]", model.ErrConfiguration, pReward[i])
		}
		total += pStimuli[i]
	}
	if math.Abs(total-1) > 1e-9 {
		return nil, fmt.Errorf("%w: presentation probabilities sum to %v, want 1", model.ErrConfiguration, total)
	}
	return &StimulusBandit{
		stimuli:  stimuli,
		pStimuli: append([]float64(nil), pStimuli...),
		pReward:  append([]float64(nil), pReward...),
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Sample draws the next trial's stimulus.
func (e *StimulusBandit) Sample() (index int, stimulus []float64) {
	u := e.rng.Float64()
	var cum float64
	for i, p := range e.pStimuli {
		cum += p
		if u < cum {
			return i, e.stimuli[i]
		}
	}
	last := len(e.stimuli) - 1
	return last, e.stimuli[last]
}

// Reward draws the reward for a presented stimulus.
func (e *StimulusBandit) Reward(index int) float64 {
	if e.rng.Float64() < e.pReward[index] {
		return 1
	}
	return 0
}

// Generate rolls out n trials, asking act for the agent's response to each
// stimulus, and returns the co-indexed trial arrays.
func (e *StimulusBandit) Generate(n int, act func(stimulus []float64) (float64, error)) (stimuli [][]float64, rewards, actions []float64, err error) {
	if n <= 0 {
		return nil, nil, nil, fmt.Errorf("%w: trial count must be positive, got %d", model.ErrConfiguration, n)
	}
	stimuli = make([][]float64, 0, n)
	rewards = make([]float64, 0, n)
	actions = make([]float64, 0, n)
	for t := 0; t < n; t++ {
		idx, stim := e.Sample()
		action, err := act(stim)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("trial %d: %w", t, err)
		}
		stimuli = append(stimuli, stim)
		rewards = append(rewards, e.Reward(idx))
		actions = append(actions, action)
	}
	return stimuli, rewards, actions, nil
}
