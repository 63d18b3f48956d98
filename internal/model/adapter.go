package model

import "fmt"

// BoundSubject is a live single-subject view into a composite model. It holds
// a reference to the composite, never a copy: mutations through the bound
// handle are visible in the composite afterwards. It satisfies the same
// argument and return contracts as a true single-subject model.
//
// The harness evaluates subjects strictly sequentially, so at most one bind
// per subject index is ever outstanding; a second Bind on the same index, or
// a second Unbind of the same handle, is a protocol violation reported as
// ErrAdapterState.
type BoundSubject struct {
	composite *Composite
	index     int
	released  bool
}

// Bind returns a single-subject view of subject i.
func (c *Composite) Bind(i int) (*BoundSubject, error) {
	if i < 0 || i >= len(c.subjects) {
		return nil, fmt.Errorf("%w: bind index %d out of range [0,%d)", ErrConfiguration, i, len(c.subjects))
	}
	if c.bound[i] {
		return nil, fmt.Errorf("%w: subject %d of %s is already bound", ErrAdapterState, i, c.name)
	}
	c.bound[i] = true
	return &BoundSubject{composite: c, index: i}, nil
}

// Unbind releases the view and returns the composite. Exactly one Unbind must
// follow each Bind.
func (b *BoundSubject) Unbind() (*Composite, error) {
	if b.released {
		return nil, fmt.Errorf("%w: subject %d of %s is not bound", ErrAdapterState, b.index, b.composite.name)
	}
	b.released = true
	delete(b.composite.bound, b.index)
	return b.composite, nil
}

// SubjectIndex reports which subject this view is bound to.
func (b *BoundSubject) SubjectIndex() int { return b.index }

// Name implements Model, reporting the underlying subject model's name.
func (b *BoundSubject) Name() string {
	return b.composite.subjects[b.index].Name()
}

// Reset implements Interactive.
func (b *BoundSubject) Reset() {
	if im, ok := b.composite.subjects[b.index].(Interactive); ok {
		im.Reset()
	}
}

// Predict implements Interactive.
func (b *BoundSubject) Predict(stimulus []float64) (float64, error) {
	return b.composite.SubjectPredict(b.index, stimulus)
}

// Update implements Interactive.
func (b *BoundSubject) Update(stimulus []float64, reward, action float64, done bool) error {
	return b.composite.SubjectUpdate(b.index, stimulus, reward, action, done)
}

// Act implements Interactive.
func (b *BoundSubject) Act(stimulus []float64) (float64, error) {
	return b.composite.SubjectAct(b.index, stimulus)
}

// Fit implements BatchTrainable.
func (b *BoundSubject) Fit(stimuli [][]float64, actions []float64) error {
	return b.composite.SubjectFit(b.index, stimuli, actions)
}

// PredictBatch implements BatchTrainable.
func (b *BoundSubject) PredictBatch(stimuli [][]float64) ([]float64, error) {
	return b.composite.SubjectPredictBatch(b.index, stimuli)
}

// NumParams implements ReturnsNumParams. It reports 0 for subject models that
// do not declare the capability; the harness checks the capability on the
// composite before binding.
func (b *BoundSubject) NumParams() int {
	if np, ok := b.composite.subjects[b.index].(ReturnsNumParams); ok {
		return np.NumParams()
	}
	return 0
}

// Params implements Parameterized against the underlying subject model.
func (b *BoundSubject) Params() Params {
	if p, ok := b.composite.subjects[b.index].(Parameterized); ok {
		return p.Params()
	}
	return nil
}

// SetParams implements Parameterized against the underlying subject model.
func (b *BoundSubject) SetParams(params Params) {
	if p, ok := b.composite.subjects[b.index].(Parameterized); ok {
		p.SetParams(params)
	}
}
