package agents

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shashankyld/cognibench/internal/model"
)

// LeastSquares is a ridge-regularized linear regressor with an intercept,
// solved by normal equations. It is the reference batch-trainable model.
//
// Parameters: lambda (ridge strength, 0 for ordinary least squares).
type LeastSquares struct {
	name    string
	params  model.Params
	weights []float64 // intercept first, then one weight per feature
}

// NewLeastSquares builds an unfitted regressor.
func NewLeastSquares(name string, params model.Params) (*LeastSquares, error) {
	m := &LeastSquares{name: name, params: params.Clone()}
	if m.params == nil {
		m.params = model.Params{}
	}
	return m, nil
}

// Name implements model.Model.
func (m *LeastSquares) Name() string { return m.name }

// Params implements model.Parameterized.
func (m *LeastSquares) Params() model.Params { return m.params }

// SetParams implements model.Parameterized.
func (m *LeastSquares) SetParams(p model.Params) { m.params = p.Clone() }

// NumParams implements model.ReturnsNumParams.
func (m *LeastSquares) NumParams() int { return len(m.weights) }

// Fit implements model.BatchTrainable by solving the regularized normal
// equations for the given training slice.
func (m *LeastSquares) Fit(stimuli [][]float64, actions []float64) error {
	if len(stimuli) == 0 {
		return fmt.Errorf("%w: empty training set", model.ErrConfiguration)
	}
	if len(stimuli) != len(actions) {
		return fmt.Errorf("%w: %d stimuli but %d actions", model.ErrConfiguration, len(stimuli), len(actions))
	}

	d := len(stimuli[0]) + 1 // intercept column
	lambda := m.params["lambda"]

	// Accumulate X'X and X'y with the intercept folded in.
	xtx := make([][]float64, d)
	for i := range xtx {
		xtx[i] = make([]float64, d)
	}
	xty := make([]float64, d)
	row := make([]float64, d)
	for n, x := range stimuli {
		if len(x) != d-1 {
			return fmt.Errorf("%w: stimulus %d has %d features, expected %d", model.ErrConfiguration, n, len(x), d-1)
		}
		row[0] = 1
		copy(row[1:], x)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * actions[n]
		}
	}
	for i := 1; i < d; i++ { // intercept stays unregularized
		xtx[i][i] += lambda
	}

	weights, err := solve(xtx, xty)
	if err != nil {
		return fmt.Errorf("fit %s: %w", m.name, err)
	}
	m.weights = weights
	return nil
}

// PredictBatch implements model.BatchTrainable.
func (m *LeastSquares) PredictBatch(stimuli [][]float64) ([]float64, error) {
	if m.weights == nil {
		return nil, fmt.Errorf("model %s has not been fitted", m.name)
	}
	out := make([]float64, len(stimuli))
	for n, x := range stimuli {
		if len(x) != len(m.weights)-1 {
			return nil, fmt.Errorf("stimulus %d has %d features, expected %d", n, len(x), len(m.weights)-1)
		}
		y := m.weights[0]
		for i, v := range x {
			y += m.weights[i+1] * v
		}
		out[n] = y
	}
	return out, nil
}

type lsSnapshot struct {
	Name    string       `json:"name"`
	Params  model.Params `json:"params"`
	Weights []float64    `json:"weights"`
}

// Save implements model.Snapshotter.
func (m *LeastSquares) Save(path string) error {
	data, err := json.Marshal(lsSnapshot{Name: m.name, Params: m.params, Weights: m.weights})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// solve performs Gaussian elimination with partial pivoting on a (copied)
// square system.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	m := make([][]float64, n)
	for i := range m {
		m[i] = append(append([]float64(nil), a[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(m[r][col]) > abs(m[pivot][col]) {
				pivot = r
			}
		}
		if abs(m[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular design matrix (column %d)", col)
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		x[i] = m[i][n]
		for j := i + 1; j < n; j++ {
			x[i] -= m[i][j] * x[j]
		}
		x[i] /= m[i][i]
	}
	return x, nil
}
