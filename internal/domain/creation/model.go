package creation

import "errors"

// State is a step of the user-creation dialog.
type State string

const (
	StateIdle       State = "idle"
	StateFormOpen   State = "form_open"
	StateSubmitting State = "submitting"
)

// ErrInvalidTransition is returned when an event does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid creation state transition")

// Workflow tracks the creation dialog.
// Idle -> FormOpen -> Submitting -> Idle (success) | FormOpen (failure, with error)
type Workflow struct {
	State State
	Error string
}

// NewWorkflow returns a workflow in the idle state.
func NewWorkflow() Workflow {
	return Workflow{State: StateIdle}
}

// Open shows the form.
// PRE: State is Idle or FormOpen
// POST: State is FormOpen with no error
func (w *Workflow) Open() error {
	if w.State == StateSubmitting {
		return ErrInvalidTransition
	}
	w.State = StateFormOpen
	w.Error = ""
	return nil
}

// Cancel closes the form without creating anything.
// PRE: State is FormOpen
// POST: State is Idle
func (w *Workflow) Cancel() error {
	if w.State != StateFormOpen {
		return ErrInvalidTransition
	}
	w.State = StateIdle
	w.Error = ""
	return nil
}

// Submit marks the request as in flight.
// PRE: State is FormOpen
// POST: State is Submitting
func (w *Workflow) Submit() error {
	if w.State != StateFormOpen {
		return ErrInvalidTransition
	}
	w.State = StateSubmitting
	w.Error = ""
	return nil
}

// Succeed closes the dialog after the batch was merged.
// PRE: State is Submitting
// POST: State is Idle
func (w *Workflow) Succeed() error {
	if w.State != StateSubmitting {
		return ErrInvalidTransition
	}
	w.State = StateIdle
	w.Error = ""
	return nil
}

// Fail reopens the form with a message.
// PRE: State is Submitting
// POST: State is FormOpen, Error set
func (w *Workflow) Fail(msg string) error {
	if w.State != StateSubmitting {
		return ErrInvalidTransition
	}
	w.State = StateFormOpen
	w.Error = msg
	return nil
}

// IsFormVisible reports whether the dialog should be rendered.
func (w Workflow) IsFormVisible() bool {
	return w.State == StateFormOpen || w.State == StateSubmitting
}
