// Package bench implements the test-execution protocol: evaluation strategies
// (interactive, batch, train-and-test), the harness that drives one model
// through one strategy, per-subject score computation and aggregation, and
// result persistence.
package bench

import (
	"fmt"

	"github.com/shashankyld/cognibench/internal/model"
)

// Observations is one subject's trial record: co-indexed arrays with one row
// per trial. Trial order is significant; for interactive evaluation it is the
// temporal order of the experiment.
type Observations struct {
	Stimuli [][]float64 `json:"stimuli"`
	Actions []float64   `json:"actions"`
	Rewards []float64   `json:"rewards,omitempty"`
}

// Len reports the number of trials.
func (o *Observations) Len() int { return len(o.Stimuli) }

// Validate checks the equal-length invariant across arrays. Rewards may be
// absent unless requireRewards is set (interactive evaluation needs them).
func (o *Observations) Validate(requireRewards bool) error {
	if o == nil {
		return fmt.Errorf("%w: nil observations", model.ErrConfiguration)
	}
	if len(o.Stimuli) == 0 {
		return fmt.Errorf("%w: observations contain no trials", model.ErrConfiguration)
	}
	if len(o.Actions) != len(o.Stimuli) {
		return fmt.Errorf("%w: %d stimuli but %d actions", model.ErrConfiguration, len(o.Stimuli), len(o.Actions))
	}
	if requireRewards && o.Rewards == nil {
		return fmt.Errorf("%w: rewards are required for interactive evaluation", model.ErrConfiguration)
	}
	if o.Rewards != nil && len(o.Rewards) != len(o.Stimuli) {
		return fmt.Errorf("%w: %d stimuli but %d rewards", model.ErrConfiguration, len(o.Stimuli), len(o.Rewards))
	}
	return nil
}

// ObservationSet is the harness input: a single subject's observations, or a
// per-subject list for multi-subject evaluation (co-indexed with the
// composite model's subjects).
type ObservationSet struct {
	Single   *Observations   `json:"single,omitempty"`
	Subjects []*Observations `json:"list,omitempty"`
}

// SingleSubject wraps one subject's observations into a set.
func SingleSubject(o *Observations) *ObservationSet {
	return &ObservationSet{Single: o}
}

// MultiSubject wraps per-subject observations into a set.
func MultiSubject(subjects ...*Observations) *ObservationSet {
	return &ObservationSet{Subjects: subjects}
}
