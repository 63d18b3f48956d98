// Package optimize provides the gradient-free local search used to fit model
// parameters by likelihood maximization. The iteration budget and convergence
// tolerance are required configuration: there is deliberately no default
// budget, since any fixed small cap silently under-fits.
package optimize

import (
	"fmt"
	"math"

	"github.com/shashankyld/cognibench/internal/model"
)

// Config controls a minimization run.
type Config struct {
	// MaxIter is the iteration budget. Required.
	MaxIter int
	// Tol is the convergence tolerance on the simplex function-value spread.
	// Required.
	Tol float64
	// Step is the initial simplex step per coordinate. Zero means 0.1.
	Step float64
}

func (c Config) validate() error {
	if c.MaxIter <= 0 {
		return fmt.Errorf("%w: optimizer iteration budget must be positive, got %d", model.ErrConfiguration, c.MaxIter)
	}
	if c.Tol <= 0 {
		return fmt.Errorf("%w: optimizer tolerance must be positive, got %v", model.ErrConfiguration, c.Tol)
	}
	return nil
}

// Result is the outcome of a minimization run. Non-convergence is not an
// error: X holds the best point found within the budget either way, and the
// caller decides whether to warn.
type Result struct {
	X         []float64
	Value     float64
	Iters     int
	Converged bool
}

// Objective is the function being minimized.
type Objective func(x []float64) float64

// Nelder-Mead coefficients (standard values).
const (
	reflectCoef  = 1.0
	expandCoef   = 2.0
	contractCoef = 0.5
	shrinkCoef   = 0.5
)

// Minimize runs Nelder-Mead simplex search from x0. The search is
// deterministic: identical inputs always produce identical results.
func Minimize(f Objective, x0 []float64, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	if f == nil {
		return Result{}, fmt.Errorf("%w: nil objective", model.ErrConfiguration)
	}
	if len(x0) == 0 {
		return Result{}, fmt.Errorf("%w: empty start point", model.ErrConfiguration)
	}

	step := cfg.Step
	if step == 0 {
		step = 0.1
	}

	n := len(x0)
	simplex := make([][]float64, n+1)
	values := make([]float64, n+1)
	simplex[0] = append([]float64(nil), x0...)
	values[0] = f(simplex[0])
	for i := 1; i <= n; i++ {
		p := append([]float64(nil), x0...)
		p[i-1] += step
		simplex[i] = p
		values[i] = f(p)
	}

	iters := 0
	for ; iters < cfg.MaxIter; iters++ {
		sortSimplex(simplex, values)

		if values[n]-values[0] < cfg.Tol {
			return Result{X: simplex[0], Value: values[0], Iters: iters, Converged: true}, nil
		}

		centroid := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				centroid[j] += simplex[i][j] / float64(n)
			}
		}

		reflected := combine(centroid, simplex[n], 1+reflectCoef, -reflectCoef)
		fr := f(reflected)

		switch {
		case fr < values[0]:
			expanded := combine(centroid, simplex[n], 1+reflectCoef*expandCoef, -reflectCoef*expandCoef)
			if fe := f(expanded); fe < fr {
				simplex[n], values[n] = expanded, fe
			} else {
				simplex[n], values[n] = reflected, fr
			}

		case fr < values[n-1]:
			simplex[n], values[n] = reflected, fr

		default:
			contracted := combine(centroid, simplex[n], 1-contractCoef, contractCoef)
			if fc := f(contracted); fc < values[n] {
				simplex[n], values[n] = contracted, fc
			} else {
				// Shrink towards the best vertex.
				for i := 1; i <= n; i++ {
					simplex[i] = combine(simplex[0], simplex[i], 1-shrinkCoef, shrinkCoef)
					values[i] = f(simplex[i])
				}
			}
		}
	}

	sortSimplex(simplex, values)
	return Result{X: simplex[0], Value: values[0], Iters: iters, Converged: false}, nil
}

// combine returns a*p + b*q elementwise.
func combine(p, q []float64, a, b float64) []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = a*p[i] + b*q[i]
	}
	return out
}

func sortSimplex(simplex [][]float64, values []float64) {
	// Insertion sort; the simplex is small and nearly sorted between
	// iterations.
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && less(values[j], values[j-1]); j-- {
			values[j], values[j-1] = values[j-1], values[j]
			simplex[j], simplex[j-1] = simplex[j-1], simplex[j]
		}
	}
}

// less orders NaN last so a degenerate objective cannot pin the best vertex.
func less(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
