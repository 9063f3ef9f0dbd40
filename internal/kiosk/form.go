package kiosk

import "context"

// Step is one screen of a multi-step form: a title, caller-rendered
// content, and an optional validator gating forward navigation.  The
// validator may be asynchronous (it receives the caller's context);
// an error blocks advancement and is surfaced to the field-level
// contract, not interpreted here.
type Step struct {
	Title    string
	Validate func(ctx context.Context) error
}

// StepState is the derived progress of one step relative to the
// current index.
type StepState int

const (
	StepComplete StepState = iota // before the current index
	StepActive                    // the current index
	StepPending                   // after the current index
)

// StepForm sequences an ordered list of steps.  It owns only the step
// pointer; field values belong to the caller's draft.  The busy flag is
// external: while the owning flow reports a submission in flight, both
// navigation directions are refused so a double tap cannot double
// submit.
type StepForm struct {
	steps      []Step
	index      int
	busy       func() bool
	onComplete func(ctx context.Context) error
}

// NewStepForm builds a form over steps.  onComplete runs when Next is
// called on the last step and its validator passes.  busy may be nil,
// meaning "never busy".
func NewStepForm(steps []Step, busy func() bool, onComplete func(ctx context.Context) error) *StepForm {
	return &StepForm{steps: steps, busy: busy, onComplete: onComplete}
}

// Index returns the current zero-based step index.
func (f *StepForm) Index() int { return f.index }

// Current returns the active step.
func (f *StepForm) Current() Step { return f.steps[f.index] }

// Next validates the current step and advances.  A failing validator
// leaves the index unchanged and returns the validation error.  On the
// last step Next invokes the completion callback instead of advancing.
// While the external busy flag is set, Next returns ErrBusy.
func (f *StepForm) Next(ctx context.Context) error {
	if f.busy != nil && f.busy() {
		return ErrBusy
	}
	step := f.steps[f.index]
	if step.Validate != nil {
		if err := step.Validate(ctx); err != nil {
			return err
		}
	}
	if f.index == len(f.steps)-1 {
		if f.onComplete != nil {
			return f.onComplete(ctx)
		}
		return nil
	}
	f.index++
	return nil
}

// Back moves to the previous step.  It never runs validation
// (backward navigation is always permitted) and is a no-op on the
// first step.  While the external busy flag is set, Back returns
// ErrBusy.
func (f *StepForm) Back() error {
	if f.busy != nil && f.busy() {
		return ErrBusy
	}
	if f.index > 0 {
		f.index--
	}
	return nil
}

// Progress derives the indicator state for every step from the current
// index alone, so the indicator can never desynchronize from the
// pointer.
func (f *StepForm) Progress() []StepState {
	out := make([]StepState, len(f.steps))
	for i := range f.steps {
		switch {
		case i < f.index:
			out[i] = StepComplete
		case i == f.index:
			out[i] = StepActive
		default:
			out[i] = StepPending
		}
	}
	return out
}
