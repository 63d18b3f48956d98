// Package agents provides reference model implementations used by the suite
// runner and the harness tests: an associative-learning interactive agent, a
// softmax bandit policy model with likelihood fitting, and a least-squares
// batch regressor. They exist to exercise every evaluation protocol with an
// in-repo model, not to be a model library.
package agents

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shashankyld/cognibench/internal/model"
)

// RescorlaWagner is an associative-learning agent with per-cue weights and
// Pearce-Hall style associability. Hidden state is one weight and one
// associability value per stimulus dimension.
//
// Parameters: w0 (initial weight), alpha0 (initial associability), kappa
// (weight learning rate), eta (associability learning rate), mix (proportion
// of the weight signal in the prediction mixture), b0/b1 (response intercept
// and slope). Missing parameters default to zero.
type RescorlaWagner struct {
	name   string
	nDims  int
	params model.Params

	w     []float64
	alpha []float64
}

// NewRescorlaWagner builds an agent for stimuli of the given dimensionality
// and resets its hidden state.
func NewRescorlaWagner(name string, nDims int, params model.Params) (*RescorlaWagner, error) {
	if nDims <= 0 {
		return nil, fmt.Errorf("%w: stimulus dimensionality must be positive, got %d", model.ErrConfiguration, nDims)
	}
	a := &RescorlaWagner{
		name:   name,
		nDims:  nDims,
		params: params.Clone(),
	}
	if a.params == nil {
		a.params = model.Params{}
	}
	a.Reset()
	return a, nil
}

// Name implements model.Model.
func (a *RescorlaWagner) Name() string { return a.name }

// Params implements model.Parameterized.
func (a *RescorlaWagner) Params() model.Params { return a.params }

// SetParams implements model.Parameterized.
func (a *RescorlaWagner) SetParams(p model.Params) { a.params = p.Clone() }

// NumParams implements model.ReturnsNumParams.
func (a *RescorlaWagner) NumParams() int { return len(a.params) }

// Reset implements model.Interactive, reinitializing weights and
// associabilities from w0 and alpha0.
func (a *RescorlaWagner) Reset() {
	a.w = fill(a.nDims, a.params["w0"])
	a.alpha = fill(a.nDims, a.params["alpha0"])
}

// Predict implements model.Interactive: the response is a linear readout of
// the weight/associability mixture for the active cues.
func (a *RescorlaWagner) Predict(stimulus []float64) (float64, error) {
	if len(stimulus) != a.nDims {
		return 0, fmt.Errorf("stimulus has %d dimensions, agent expects %d", len(stimulus), a.nDims)
	}
	mix := a.params["mix"]
	var signal float64
	for i, s := range stimulus {
		signal += s * (mix*a.w[i] + (1-mix)*a.alpha[i])
	}
	return a.params["b0"] + a.params["b1"]*signal, nil
}

// Update implements model.Interactive: delta-rule weight update with
// associability tracking of the absolute prediction error. Associabilities
// are clipped to [0, 1].
func (a *RescorlaWagner) Update(stimulus []float64, reward, action float64, done bool) error {
	if len(stimulus) != a.nDims {
		return fmt.Errorf("stimulus has %d dimensions, agent expects %d", len(stimulus), a.nDims)
	}
	if done {
		return nil
	}

	var rhat float64
	for i, s := range stimulus {
		rhat += s * a.w[i]
	}
	delta := reward - rhat

	kappa := a.params["kappa"]
	eta := a.params["eta"]
	for i, s := range stimulus {
		a.w[i] += kappa * delta * a.alpha[i] * s
		a.alpha[i] += eta * s * (abs(delta) - a.alpha[i])
		if a.alpha[i] < 0 {
			a.alpha[i] = 0
		} else if a.alpha[i] > 1 {
			a.alpha[i] = 1
		}
	}
	return nil
}

// Act implements model.Interactive. The agent responds with its prediction.
func (a *RescorlaWagner) Act(stimulus []float64) (float64, error) {
	return a.Predict(stimulus)
}

type rwSnapshot struct {
	Name   string       `json:"name"`
	NDims  int          `json:"n_dims"`
	Params model.Params `json:"params"`
	W      []float64    `json:"w"`
	Alpha  []float64    `json:"alpha"`
}

// Save implements model.Snapshotter.
func (a *RescorlaWagner) Save(path string) error {
	data, err := json.Marshal(rwSnapshot{
		Name:   a.name,
		NDims:  a.nDims,
		Params: a.params,
		W:      a.w,
		Alpha:  a.alpha,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
