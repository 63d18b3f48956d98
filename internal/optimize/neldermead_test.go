package optimize

import (
	"errors"
	"math"
	"testing"

	"github.com/shashankyld/cognibench/internal/model"
)

func sphere(center []float64) Objective {
	return func(x []float64) float64 {
		var sum float64
		for i := range x {
			d := x[i] - center[i]
			sum += d * d
		}
		return sum
	}
}

func TestMinimize_Quadratic(t *testing.T) {
	res, err := Minimize(sphere([]float64{1, -2}), []float64{0, 0}, Config{MaxIter: 500, Tol: 1e-10})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if !res.Converged {
		t.Fatalf("did not converge in %d iterations", res.Iters)
	}
	if math.Abs(res.X[0]-1) > 1e-3 || math.Abs(res.X[1]+2) > 1e-3 {
		t.Errorf("minimum at %v, want (1, -2)", res.X)
	}
	if res.Value > 1e-6 {
		t.Errorf("minimum value = %v, want ~0", res.Value)
	}
}

func TestMinimize_Deterministic(t *testing.T) {
	cfg := Config{MaxIter: 200, Tol: 1e-8, Step: 0.5}
	f := func(x []float64) float64 { return math.Abs(x[0]-3) + x[1]*x[1] }

	a, err := Minimize(f, []float64{0, 1}, cfg)
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	b, err := Minimize(f, []float64{0, 1}, cfg)
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if a.Value != b.Value || a.Iters != b.Iters {
		t.Errorf("runs differ: (%v, %d) vs (%v, %d)", a.Value, a.Iters, b.Value, b.Iters)
	}
	for i := range a.X {
		if a.X[i] != b.X[i] {
			t.Errorf("coordinate %d differs: %v vs %v", i, a.X[i], b.X[i])
		}
	}
}

func TestMinimize_BudgetAndToleranceRequired(t *testing.T) {
	f := sphere([]float64{0})
	if _, err := Minimize(f, []float64{1}, Config{Tol: 1e-8}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("missing budget: got %v, want configuration error", err)
	}
	if _, err := Minimize(f, []float64{1}, Config{MaxIter: 100}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("missing tolerance: got %v, want configuration error", err)
	}
	if _, err := Minimize(nil, []float64{1}, Config{MaxIter: 100, Tol: 1e-8}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("nil objective: got %v, want configuration error", err)
	}
	if _, err := Minimize(f, nil, Config{MaxIter: 100, Tol: 1e-8}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("empty start: got %v, want configuration error", err)
	}
}

func TestMinimize_NonConvergenceReturnsBestPoint(t *testing.T) {
	res, err := Minimize(sphere([]float64{100}), []float64{0}, Config{MaxIter: 2, Tol: 1e-12})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if res.Converged {
		t.Error("budget of 2 iterations cannot reach a far minimum, yet reported convergence")
	}
	if res.Iters != 2 {
		t.Errorf("iters = %d, want 2", res.Iters)
	}
	if len(res.X) != 1 {
		t.Errorf("best point %v has wrong dimension", res.X)
	}
}

func TestMinimize_NaNObjectiveDoesNotWin(t *testing.T) {
	f := func(x []float64) float64 {
		if x[0] < 0 {
			return math.NaN()
		}
		return (x[0] - 1) * (x[0] - 1)
	}
	res, err := Minimize(f, []float64{2}, Config{MaxIter: 300, Tol: 1e-10})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if math.IsNaN(res.Value) {
		t.Error("best value is NaN")
	}
}
