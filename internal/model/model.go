// Package model defines the contracts between the benchmark harness and the
// decision-making models it evaluates. Models are opaque entities that declare
// support for operation sets through capability interfaces; the harness checks
// capabilities up front and refuses to run a strategy against a model that
// does not satisfy it.
//
// The package also provides the multi-subject composite (one independent
// single-subject model per experimental subject) and the adapter that binds a
// composite to a single subject index for the duration of that subject's
// evaluation.
package model

// Params is the mutable parameter mapping of a model. Keys are parameter
// names, values are scalars. Models own their mapping; callers that need a
// stable view should Clone it.
type Params map[string]float64

// Clone returns an independent copy of the parameter mapping.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a new mapping with entries from override taking precedence
// over base. Neither input is modified.
func Merge(base, override Params) Params {
	out := make(Params, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Model is the minimal contract every evaluated entity satisfies. Everything
// beyond the name is declared through capability interfaces.
type Model interface {
	Name() string
}

// Parameterized is satisfied by models that expose their parameter mapping
// for inspection and fitting.
type Parameterized interface {
	Params() Params
	SetParams(Params)
}

// Interactive is the capability for step-by-step, stateful evaluation.
// Predict must only use information accumulated through prior Update calls;
// the harness guarantees trials arrive in temporal order.
type Interactive interface {
	Model
	Reset()
	Predict(stimulus []float64) (float64, error)
	Update(stimulus []float64, reward, action float64, done bool) error
	Act(stimulus []float64) (float64, error)
}

// BatchTrainable is the capability for train/test evaluation: Fit learns from
// a training slice, PredictBatch evaluates the model as a static function.
type BatchTrainable interface {
	Model
	Fit(stimuli [][]float64, actions []float64) error
	PredictBatch(stimuli [][]float64) ([]float64, error)
}

// ReturnsNumParams is satisfied by models that can report how many free
// parameters they carry (used by information-criterion scores).
type ReturnsNumParams interface {
	NumParams() int
}

// PredictsLogpdf marks models whose predictions are log-densities of the
// observed action rather than point values.
type PredictsLogpdf interface {
	LogpdfPredictions() bool
}

// Snapshotter is the optional persistence capability. Models lacking it are
// skipped during artifact persistence, which is not an error.
type Snapshotter interface {
	Save(path string) error
}

// MultiSubject is satisfied by composites owning one independent model per
// subject.
type MultiSubject interface {
	Model
	NumSubjects() int
	Subject(i int) Model
}

// Capability is a named, statically checkable contract. The check is a type
// assertion, so a model advertises a capability simply by implementing the
// corresponding interface. Composites forward the declaration of their
// subject models (see Compose).
type Capability struct {
	Name      string
	Satisfied func(Model) bool
}

var (
	CapInteractive = Capability{
		Name: "interactive",
		Satisfied: func(m Model) bool {
			if c, ok := m.(*Composite); ok {
				return c.interactive
			}
			_, ok := m.(Interactive)
			return ok
		},
	}

	CapBatchTrainable = Capability{
		Name: "batch-trainable",
		Satisfied: func(m Model) bool {
			if c, ok := m.(*Composite); ok {
				return c.batch
			}
			_, ok := m.(BatchTrainable)
			return ok
		},
	}

	CapMultiSubject = Capability{
		Name: "multi-subject",
		Satisfied: func(m Model) bool {
			_, ok := m.(MultiSubject)
			return ok
		},
	}

	CapReturnsNumParams = Capability{
		Name: "returns-num-params",
		Satisfied: func(m Model) bool {
			_, ok := m.(ReturnsNumParams)
			return ok
		},
	}

	CapPredictsLogpdf = Capability{
		Name: "predicts-logpdf",
		Satisfied: func(m Model) bool {
			_, ok := m.(PredictsLogpdf)
			return ok
		},
	}
)
