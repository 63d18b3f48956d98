package agents

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/shashankyld/cognibench/internal/bench"
	"github.com/shashankyld/cognibench/internal/model"
	"github.com/shashankyld/cognibench/internal/optimize"
)

// SoftmaxBandit is a two-armed bandit policy model: delta-rule action values
// with a softmax choice rule. Predictions are the probability of choosing arm
// 1 given the current values.
//
// Parameters: lr (value learning rate), beta (inverse temperature).
type SoftmaxBandit struct {
	name   string
	params model.Params
	fitCfg optimize.Config

	q [2]float64
}

// NewSoftmaxBandit builds the model. fitCfg carries the required optimizer
// budget and tolerance used by FitLikelihood.
func NewSoftmaxBandit(name string, params model.Params, fitCfg optimize.Config) (*SoftmaxBandit, error) {
	m := &SoftmaxBandit{
		name:   name,
		params: params.Clone(),
		fitCfg: fitCfg,
	}
	if m.params == nil {
		m.params = model.Params{}
	}
	m.Reset()
	return m, nil
}

// Name implements model.Model.
func (m *SoftmaxBandit) Name() string { return m.name }

// Params implements model.Parameterized.
func (m *SoftmaxBandit) Params() model.Params { return m.params }

// SetParams implements model.Parameterized.
func (m *SoftmaxBandit) SetParams(p model.Params) { m.params = p.Clone() }

// NumParams implements model.ReturnsNumParams.
func (m *SoftmaxBandit) NumParams() int { return 2 }

// Reset implements model.Interactive.
func (m *SoftmaxBandit) Reset() {
	m.q[0], m.q[1] = 0, 0
}

// Predict implements model.Interactive, returning P(action = 1).
func (m *SoftmaxBandit) Predict(stimulus []float64) (float64, error) {
	beta := m.params["beta"]
	return 1 / (1 + math.Exp(-beta*(m.q[1]-m.q[0]))), nil
}

// Update implements model.Interactive: delta-rule update of the chosen arm's
// value.
func (m *SoftmaxBandit) Update(stimulus []float64, reward, action float64, done bool) error {
	arm := int(action)
	if arm != 0 && arm != 1 {
		return fmt.Errorf("action %v is not a valid arm", action)
	}
	if done {
		return nil
	}
	m.q[arm] += m.params["lr"] * (reward - m.q[arm])
	return nil
}

// Act implements model.Interactive with a greedy choice.
func (m *SoftmaxBandit) Act(stimulus []float64) (float64, error) {
	if m.q[1] > m.q[0] {
		return 1, nil
	}
	return 0, nil
}

// FitLikelihood fits lr and beta by maximum likelihood over an interactive
// replay of the observations. A fit that exhausts the iteration budget is
// logged as a warning, not an error: the parameters are still set to the best
// point found and evaluation proceeds.
func (m *SoftmaxBandit) FitLikelihood(obs *bench.Observations) error {
	if err := obs.Validate(true); err != nil {
		return err
	}

	objective := func(x []float64) float64 {
		return m.negLogLike(x[0], x[1], obs)
	}
	x0 := []float64{m.params["lr"], m.params["beta"]}

	res, err := optimize.Minimize(objective, x0, m.fitCfg)
	if err != nil {
		return fmt.Errorf("fit %s: %w", m.name, err)
	}
	if !res.Converged {
		log.Warn().
			Str("model", m.name).
			Int("iters", res.Iters).
			Float64("nll", res.Value).
			Msg("Likelihood fit hit iteration budget without converging, keeping best point")
	}

	m.params["lr"] = res.X[0]
	m.params["beta"] = res.X[1]
	m.Reset()
	return nil
}

// negLogLike replays the trial sequence under candidate parameters without
// touching the model's own state.
func (m *SoftmaxBandit) negLogLike(lr, beta float64, obs *bench.Observations) float64 {
	var q0, q1 float64
	var nll float64
	for t := 0; t < obs.Len(); t++ {
		p1 := 1 / (1 + math.Exp(-beta*(q1-q0)))
		p := p1
		if obs.Actions[t] == 0 {
			p = 1 - p1
		}
		nll -= math.Log(clampProb(p))

		if obs.Actions[t] == 1 {
			q1 += lr * (obs.Rewards[t] - q1)
		} else {
			q0 += lr * (obs.Rewards[t] - q0)
		}
	}
	return nll
}

func clampProb(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
