package model

import "fmt"

// Constructor builds one single-subject model from a parameter mapping.
type Constructor func(params Params) (Model, error)

// JointFitter fits all subject models at once. The default implementation
// fits each subject independently on that subject's slice of the supplied
// per-subject argument lists; replace it on the Composite to perform joint or
// hierarchical fitting across subjects.
type JointFitter func(subjects []Model, stimuli [][][]float64, actions [][]float64) error

// Composite owns one independently stateful single-subject model per subject.
// Subjects are fixed at construction: none can be added or removed afterwards,
// and mutating subject i never affects subject j.
//
// Fan-out operations take a leading subject index and forward the remaining
// arguments to the corresponding subject model. The composite declares the
// Interactive and BatchTrainable capabilities iff its subject models do.
type Composite struct {
	name        string
	subjects    []Model
	interactive bool
	batch       bool
	bound       map[int]bool

	// JointFit is the hook point for joint fitting across subjects. It
	// defaults to independent per-subject fitting.
	JointFit JointFitter
}

// Compose constructs a composite model from a single-subject constructor and
// a non-empty list of per-subject parameter mappings. Each subject model is
// built from its entry merged with shared (per-subject entries win). A
// malformed entry fails here, at composite construction, not lazily.
func Compose(name string, ctor Constructor, perSubject []Params, shared Params) (*Composite, error) {
	if ctor == nil {
		return nil, fmt.Errorf("%w: nil constructor", ErrConfiguration)
	}
	if len(perSubject) == 0 {
		return nil, fmt.Errorf("%w: per-subject parameter list is empty", ErrConfiguration)
	}

	c := &Composite{
		name:     name,
		subjects: make([]Model, 0, len(perSubject)),
		bound:    make(map[int]bool),
	}
	for i, params := range perSubject {
		m, err := ctor(Merge(shared, params))
		if err != nil {
			return nil, fmt.Errorf("%w: subject %d: %v", ErrConfiguration, i, err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: subject %d: constructor returned nil model", ErrConfiguration, i)
		}
		c.subjects = append(c.subjects, m)
	}

	// Capabilities are uniform across subjects since they share a constructor;
	// probe the first.
	_, c.interactive = c.subjects[0].(Interactive)
	_, c.batch = c.subjects[0].(BatchTrainable)

	c.JointFit = fitIndependently
	return c, nil
}

// Name implements Model.
func (c *Composite) Name() string { return c.name }

// NumSubjects implements MultiSubject.
func (c *Composite) NumSubjects() int { return len(c.subjects) }

// Subject implements MultiSubject. It panics on an out-of-range index, same
// as slice indexing would.
func (c *Composite) Subject(i int) Model { return c.subjects[i] }

func (c *Composite) subjectAt(i int) (Model, error) {
	if i < 0 || i >= len(c.subjects) {
		return nil, fmt.Errorf("%w: subject index %d out of range [0,%d)", ErrConfiguration, i, len(c.subjects))
	}
	return c.subjects[i], nil
}

func (c *Composite) interactiveAt(i int) (Interactive, error) {
	m, err := c.subjectAt(i)
	if err != nil {
		return nil, err
	}
	im, ok := m.(Interactive)
	if !ok {
		return nil, fmt.Errorf("%w: subject %d of %s is not interactive", ErrCapability, i, c.name)
	}
	return im, nil
}

func (c *Composite) batchAt(i int) (BatchTrainable, error) {
	m, err := c.subjectAt(i)
	if err != nil {
		return nil, err
	}
	bm, ok := m.(BatchTrainable)
	if !ok {
		return nil, fmt.Errorf("%w: subject %d of %s is not batch trainable", ErrCapability, i, c.name)
	}
	return bm, nil
}

// SubjectReset resets subject i's internal state.
func (c *Composite) SubjectReset(i int) error {
	im, err := c.interactiveAt(i)
	if err != nil {
		return err
	}
	im.Reset()
	return nil
}

// SubjectPredict forwards a prediction request to subject i.
func (c *Composite) SubjectPredict(i int, stimulus []float64) (float64, error) {
	im, err := c.interactiveAt(i)
	if err != nil {
		return 0, err
	}
	return im.Predict(stimulus)
}

// SubjectUpdate forwards a state update to subject i.
func (c *Composite) SubjectUpdate(i int, stimulus []float64, reward, action float64, done bool) error {
	im, err := c.interactiveAt(i)
	if err != nil {
		return err
	}
	return im.Update(stimulus, reward, action, done)
}

// SubjectAct forwards an action request to subject i.
func (c *Composite) SubjectAct(i int, stimulus []float64) (float64, error) {
	im, err := c.interactiveAt(i)
	if err != nil {
		return 0, err
	}
	return im.Act(stimulus)
}

// SubjectFit fits subject i on the given training data.
func (c *Composite) SubjectFit(i int, stimuli [][]float64, actions []float64) error {
	bm, err := c.batchAt(i)
	if err != nil {
		return err
	}
	return bm.Fit(stimuli, actions)
}

// SubjectPredictBatch evaluates subject i as a static function over stimuli.
func (c *Composite) SubjectPredictBatch(i int, stimuli [][]float64) ([]float64, error) {
	bm, err := c.batchAt(i)
	if err != nil {
		return nil, err
	}
	return bm.PredictBatch(stimuli)
}

// SubjectNumParams reports subject i's free parameter count.
func (c *Composite) SubjectNumParams(i int) (int, error) {
	m, err := c.subjectAt(i)
	if err != nil {
		return 0, err
	}
	np, ok := m.(ReturnsNumParams)
	if !ok {
		return 0, fmt.Errorf("%w: subject %d of %s does not report parameter count", ErrCapability, i, c.name)
	}
	return np.NumParams(), nil
}

// FitJointly fits every subject using the configured JointFit hook. Each
// argument is a per-subject list: subject i receives stimuli[i] and
// actions[i]. List lengths must match the subject count.
func (c *Composite) FitJointly(stimuli [][][]float64, actions [][]float64) error {
	n := len(c.subjects)
	if len(stimuli) != n || len(actions) != n {
		return fmt.Errorf("%w: joint fit arguments must have one entry per subject (want %d, got %d stimuli / %d actions)",
			ErrConfiguration, n, len(stimuli), len(actions))
	}
	return c.JointFit(c.subjects, stimuli, actions)
}

func fitIndependently(subjects []Model, stimuli [][][]float64, actions [][]float64) error {
	for i, m := range subjects {
		bm, ok := m.(BatchTrainable)
		if !ok {
			return fmt.Errorf("%w: subject %d is not batch trainable", ErrCapability, i)
		}
		if err := bm.Fit(stimuli[i], actions[i]); err != nil {
			return fmt.Errorf("fit subject %d: %w", i, err)
		}
	}
	return nil
}
