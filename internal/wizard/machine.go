package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Machine errors. All are terminal for the offending call only; the
// machine itself stays usable.
var (
	ErrUnknownStep    = errors.New("unknown step")
	ErrNotCurrentStep = errors.New("step is not the current step")
	ErrStepRunning    = errors.New("step is already running")
	ErrStepCompleted  = errors.New("step already succeeded")
	ErrCommitted      = errors.New("wizard is committed, navigation is frozen")
	ErrAtFirstStep    = errors.New("already at the first step")
	ErrNoConfirmation = errors.New("current step is not awaiting confirmation")
	ErrStaleRun       = errors.New("wizard was reset while the step was running")
)

// Input carries the operator's submission for one step: an uploaded file,
// free-form fields, or both.
type Input struct {
	Filename string
	File     []byte
	Fields   map[string]interface{}
}

// StepDef describes one step of a wizard definition.
type StepDef struct {
	// Name identifies the step within its wizard.
	Name string
	// Kind selects the executor operation.
	Kind string
	// HoldsForConfirmation keeps the machine on this step after success
	// until Confirm is called. Used where a successful submission is a
	// mere selection, not a completed remote operation.
	HoldsForConfirmation bool
	// Commit marks the terminal side-effecting step. Once it succeeds the
	// machine freezes: the remote registration cannot be undone by
	// navigating back.
	Commit bool
}

// Definition is an ordered list of named steps for one wizard kind.
type Definition struct {
	Kind  string
	Steps []StepDef
}

// Executor invokes the external operation behind one step and returns its
// structured output. It must not touch machine state; the machine folds
// the result in itself.
type Executor interface {
	Execute(ctx context.Context, def Definition, step StepDef, input Input, collected map[string]Output) (Output, error)
}

// Machine is the wizard state machine: ordered steps, a monotone current
// index, collected outputs, and a committed flag. Safe for concurrent use;
// the Running state of the current step acts as a mutex so that duplicate
// submissions are rejected without a second remote call.
type Machine struct {
	mu        sync.Mutex
	def       Definition
	exec      Executor
	states    []StepState
	index     int
	collected map[string]Output
	committed bool

	// gen is bumped by Reset so that a completion from before the reset
	// is recognized as stale and discarded instead of corrupting the
	// fresh run.
	gen uint64
}

// New creates a machine at step 0 with every step Idle.
func New(def Definition, exec Executor) *Machine {
	states := make([]StepState, len(def.Steps))
	for i := range states {
		states[i] = Idle{}
	}
	return &Machine{
		def:       def,
		exec:      exec,
		states:    states,
		collected: make(map[string]Output),
	}
}

// Definition returns the machine's step definitions.
func (m *Machine) Definition() Definition {
	return m.def
}

// Submit runs the named step. Legal only for the current step while it is
// Idle or Failed; a retry after failure is the operator's call. On success
// the machine advances unless the step holds for confirmation.
func (m *Machine) Submit(ctx context.Context, stepName string, input Input) (Output, error) {
	m.mu.Lock()

	idx := m.stepIndex(stepName)
	if idx < 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, stepName)
	}
	if m.committed {
		m.mu.Unlock()
		return nil, ErrCommitted
	}
	if idx != m.index {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q (current is %q)", ErrNotCurrentStep, stepName, m.def.Steps[m.index].Name)
	}

	switch m.states[idx].(type) {
	case Running:
		m.mu.Unlock()
		return nil, ErrStepRunning
	case Succeeded:
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrStepCompleted, stepName)
	}

	step := m.def.Steps[idx]
	m.states[idx] = Running{}
	collected := m.collectedCopy()
	gen := m.gen
	m.mu.Unlock()

	// The remote call happens outside the lock; concurrent submissions
	// observe Running and bail out above.
	out, err := m.exec.Execute(ctx, m.def, step, input, collected)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		// The wizard was reset mid-flight. The reset already returned
		// every step to Idle; folding this completion in would revive
		// state the operator discarded.
		return nil, ErrStaleRun
	}

	if err != nil {
		if isGating(err) {
			// A gating condition (conflict warning) is not a failure:
			// the step returns to Idle and may be resubmitted with an
			// explicit override.
			m.states[idx] = Idle{}
		} else {
			m.states[idx] = Failed{Err: err}
		}
		return nil, err
	}

	m.states[idx] = Succeeded{Output: out}
	m.collected[step.Name] = out

	if step.Commit {
		m.committed = true
	}
	if !step.HoldsForConfirmation && m.index < len(m.def.Steps)-1 {
		m.index++
	}

	return out, nil
}

// Confirm advances past a holdsForConfirmation step that has succeeded.
func (m *Machine) Confirm() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	step := m.def.Steps[m.index]
	if !step.HoldsForConfirmation {
		return ErrNoConfirmation
	}
	if _, ok := m.states[m.index].(Succeeded); !ok {
		return ErrNoConfirmation
	}
	if m.index < len(m.def.Steps)-1 {
		m.index++
	}
	return nil
}

// Back steps to the previous step, discarding the current step's state and
// the state of the step returned to. Illegal once the commit step has
// succeeded: the registration cannot be undone client-side.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.committed {
		return ErrCommitted
	}
	if _, running := m.states[m.index].(Running); running {
		return ErrStepRunning
	}
	if m.index == 0 {
		return ErrAtFirstStep
	}

	m.clearStep(m.index)
	m.index--
	m.clearStep(m.index)
	return nil
}

// Reset returns to step 0 with empty collected outputs. Legal from any
// state: nothing is mutated server-side before the commit step, and after
// a commit a reset simply starts a fresh run. A submission still in
// flight is invalidated; its completion returns ErrStaleRun.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.states {
		m.states[i] = Idle{}
	}
	m.index = 0
	m.collected = make(map[string]Output)
	m.committed = false
	m.gen++
}

// Committed reports whether the terminal commit step has succeeded.
func (m *Machine) Committed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

// CurrentStep returns the definition of the step the machine is on.
func (m *Machine) CurrentStep() StepDef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def.Steps[m.index]
}

// Collected returns a copy of the step outputs accumulated so far.
func (m *Machine) Collected() map[string]Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectedCopy()
}

// StepView is the serializable state of one step.
type StepView struct {
	Name                 string `json:"name"`
	Kind                 string `json:"kind"`
	Status               string `json:"status"`
	Output               Output `json:"output,omitempty"`
	Error                string `json:"error,omitempty"`
	HoldsForConfirmation bool   `json:"holds_for_confirmation,omitempty"`
	Commit               bool   `json:"commit,omitempty"`
}

// View is a serializable snapshot of the whole machine.
type View struct {
	Kind      string     `json:"kind"`
	StepIndex int        `json:"step_index"`
	Committed bool       `json:"committed"`
	Steps     []StepView `json:"steps"`
}

// View returns a snapshot of the machine for display.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	steps := make([]StepView, len(m.def.Steps))
	for i, step := range m.def.Steps {
		view := StepView{
			Name:                 step.Name,
			Kind:                 step.Kind,
			Status:               StatusName(m.states[i]),
			HoldsForConfirmation: step.HoldsForConfirmation,
			Commit:               step.Commit,
		}
		switch s := m.states[i].(type) {
		case Succeeded:
			view.Output = s.Output
		case Failed:
			view.Error = s.Err.Error()
		}
		steps[i] = view
	}

	return View{
		Kind:      m.def.Kind,
		StepIndex: m.index,
		Committed: m.committed,
		Steps:     steps,
	}
}

func (m *Machine) stepIndex(name string) int {
	for i, s := range m.def.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (m *Machine) clearStep(idx int) {
	m.states[idx] = Idle{}
	delete(m.collected, m.def.Steps[idx].Name)
}

func (m *Machine) collectedCopy() map[string]Output {
	out := make(map[string]Output, len(m.collected))
	for k, v := range m.collected {
		out[k] = v
	}
	return out
}

// Gater marks executor errors that gate a submission instead of failing
// the step, such as the pre-commit conflict warning.
type Gater interface {
	Gating() bool
}

func isGating(err error) bool {
	var g Gater
	return errors.As(err, &g) && g.Gating()
}
