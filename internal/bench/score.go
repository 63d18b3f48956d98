package bench

import (
	"fmt"

	"github.com/shashankyld/cognibench/internal/model"
)

// Score is a single scalar result tagged with its declared bounds.
type Score struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// InBounds reports whether the value lies within the declared [Min, Max].
func (s Score) InBounds() bool {
	return s.Value >= s.Min && s.Value <= s.Max
}

// ScoreArgs carries auxiliary per-call context for scoring (tolerances,
// epsilons). Nil means no extra context.
type ScoreArgs map[string]float64

// ScoreFunc is the external scoring contract: reduce observed actions and
// predictions to a bounded scalar. Implementations are supplied by callers;
// the harness only checks that the result honours its own bounds.
type ScoreFunc func(actions, predictions []float64, args ScoreArgs) (Score, error)

// ScoreArgsFunc produces auxiliary scoring context from the evaluated model
// and one subject's observations and predictions. It is evaluated once per
// subject, before scoring.
type ScoreArgsFunc func(m model.Model, obs *Observations, predictions []float64) ScoreArgs

// Aggregator reduces per-subject scores to one aggregate value. Aggregators
// must be independent of subject processing order.
type Aggregator func(scores []float64) float64

// Mean is the default aggregator.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func checkBounds(name string, s Score) error {
	if s.Min > s.Max {
		return fmt.Errorf("scorer for %s declared min %v > max %v", name, s.Min, s.Max)
	}
	if !s.InBounds() {
		return fmt.Errorf("scorer for %s produced %v outside declared bounds [%v, %v]", name, s.Value, s.Min, s.Max)
	}
	return nil
}
