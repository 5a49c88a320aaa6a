package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExecutor resolves every step from a canned table of outputs/errors
// and counts invocations per step kind.
type stubExecutor struct {
	mu      sync.Mutex
	outputs map[string]Output
	errs    map[string]error
	calls   map[string]int

	// block, when set, makes Execute wait until release is closed.
	block   chan struct{}
	started chan struct{}
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{
		outputs: make(map[string]Output),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (e *stubExecutor) Execute(ctx context.Context, def Definition, step StepDef, input Input, collected map[string]Output) (Output, error) {
	e.mu.Lock()
	e.calls[step.Kind]++
	block := e.block
	started := e.started
	e.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.errs[step.Kind]; ok {
		return nil, err
	}
	if out, ok := e.outputs[step.Kind]; ok {
		return out, nil
	}
	return Output{}, nil
}

func (e *stubExecutor) callCount(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[kind]
}

func tuDefinition() Definition {
	return Definitions()[WizardTu]
}

func TestSubmit_AdvancesOnlyOnSuccess(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindParseApplication] = Output{"number": "2025-001", "applicant": "Ivanov I.I."}
	m := New(tuDefinition(), exec)

	require.Equal(t, "application", m.CurrentStep().Name)

	out, err := m.Submit(context.Background(), "application", Input{Filename: "z.docx"})
	require.NoError(t, err)
	assert.Equal(t, "Ivanov I.I.", out["applicant"])

	// Scenario A: parse succeeded, wizard advanced, applicant collected
	assert.Equal(t, "extract", m.CurrentStep().Name)
	assert.Equal(t, "Ivanov I.I.", m.Collected()["application"]["applicant"])
	assert.Equal(t, 1, m.View().StepIndex)
}

func TestSubmit_FailureKeepsIndex(t *testing.T) {
	exec := newStubExecutor()
	exec.errs[KindParseApplication] = errors.New("document structure not recognized")
	m := New(tuDefinition(), exec)

	_, err := m.Submit(context.Background(), "application", Input{})
	require.Error(t, err)

	view := m.View()
	assert.Equal(t, 0, view.StepIndex)
	assert.Equal(t, "failed", view.Steps[0].Status)
	assert.Contains(t, view.Steps[0].Error, "not recognized")
}

func TestSubmit_RetryAfterFailure(t *testing.T) {
	exec := newStubExecutor()
	exec.errs[KindParseApplication] = errors.New("transient")
	m := New(tuDefinition(), exec)

	_, err := m.Submit(context.Background(), "application", Input{})
	require.Error(t, err)

	// Operator retries the same step after the failure
	exec.mu.Lock()
	delete(exec.errs, KindParseApplication)
	exec.mu.Unlock()

	_, err = m.Submit(context.Background(), "application", Input{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.View().StepIndex)
}

func TestSubmit_NotCurrentStep(t *testing.T) {
	exec := newStubExecutor()
	m := New(tuDefinition(), exec)

	_, err := m.Submit(context.Background(), "register", Input{})
	assert.ErrorIs(t, err, ErrNotCurrentStep)
	assert.Equal(t, 0, exec.callCount(KindRegisterTu))
}

func TestSubmit_UnknownStep(t *testing.T) {
	m := New(tuDefinition(), newStubExecutor())

	_, err := m.Submit(context.Background(), "nope", Input{})
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestSubmit_CompletedStepNotRepeatable(t *testing.T) {
	exec := newStubExecutor()
	def := Definitions()[WizardRefusal]
	m := New(def, exec)

	_, err := m.Submit(context.Background(), "application", Input{})
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), "extract", Input{})
	require.NoError(t, err)

	// reason holds for confirmation, so it is still current after success
	_, err = m.Submit(context.Background(), "reason", Input{})
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), "reason", Input{})
	assert.ErrorIs(t, err, ErrStepCompleted)
}

func TestHoldsForConfirmation_WaitsForConfirm(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindSelectReason] = Output{"reason_code": "NO_RIGHTS"}
	m := New(Definitions()[WizardRefusal], exec)

	_, err := m.Submit(context.Background(), "application", Input{})
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), "extract", Input{})
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), "reason", Input{Fields: map[string]interface{}{"reason_code": "NO_RIGHTS"}})
	require.NoError(t, err)

	// Selection succeeded but did not advance
	assert.Equal(t, "reason", m.CurrentStep().Name)

	require.NoError(t, m.Confirm())
	assert.Equal(t, "register", m.CurrentStep().Name)
}

func TestConfirm_IllegalWithoutHoldingStep(t *testing.T) {
	m := New(tuDefinition(), newStubExecutor())

	assert.ErrorIs(t, m.Confirm(), ErrNoConfirmation)
}

func TestBack_LegalBeforeCommit(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindParseApplication] = Output{"applicant": "Ivanov I.I."}
	m := New(tuDefinition(), exec)

	_, err := m.Submit(context.Background(), "application", Input{})
	require.NoError(t, err)
	require.Equal(t, 1, m.View().StepIndex)

	require.NoError(t, m.Back())

	view := m.View()
	assert.Equal(t, 0, view.StepIndex)
	assert.Equal(t, "idle", view.Steps[0].Status)
	assert.Empty(t, m.Collected())
}

func TestBack_IllegalAtFirstStep(t *testing.T) {
	m := New(tuDefinition(), newStubExecutor())
	assert.ErrorIs(t, m.Back(), ErrAtFirstStep)
}

func TestBack_IllegalAfterCommit(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindRegisterTu] = Output{"out_number": 42, "out_year": 2025, "filename": "TU_2025_42.zip"}
	m := runTuWizardToCommit(t, exec)

	// Scenario C: after a successful commit, goBack is rejected
	assert.ErrorIs(t, m.Back(), ErrCommitted)
	assert.True(t, m.Committed())

	// ...and so is any further submission
	_, err := m.Submit(context.Background(), "register", Input{})
	assert.ErrorIs(t, err, ErrCommitted)
}

func TestReset_FromAnyState(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindRegisterTu] = Output{"out_number": 42}

	cases := []struct {
		name    string
		prepare func(t *testing.T) *Machine
	}{
		{
			name: "fresh machine",
			prepare: func(t *testing.T) *Machine {
				return New(tuDefinition(), exec)
			},
		},
		{
			name: "mid flight",
			prepare: func(t *testing.T) *Machine {
				m := New(tuDefinition(), exec)
				_, err := m.Submit(context.Background(), "application", Input{})
				require.NoError(t, err)
				return m
			},
		},
		{
			name: "failed step",
			prepare: func(t *testing.T) *Machine {
				failing := newStubExecutor()
				failing.errs[KindParseApplication] = errors.New("boom")
				m := New(tuDefinition(), failing)
				_, _ = m.Submit(context.Background(), "application", Input{})
				return m
			},
		},
		{
			name: "committed",
			prepare: func(t *testing.T) *Machine {
				return runTuWizardToCommit(t, exec)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.prepare(t)
			m.Reset()

			view := m.View()
			assert.Equal(t, 0, view.StepIndex)
			assert.False(t, view.Committed)
			assert.Empty(t, m.Collected())
			for _, s := range view.Steps {
				assert.Equal(t, "idle", s.Status)
			}
		})
	}
}

func TestSubmit_ConcurrentCommit_SingleNetworkCall(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindRegisterTu] = Output{"out_number": 42}

	m := New(tuDefinition(), exec)
	advanceTuToRegister(t, m)

	exec.mu.Lock()
	exec.block = make(chan struct{})
	exec.started = make(chan struct{}, 1)
	exec.mu.Unlock()

	var firstErr error
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		_, firstErr = m.Submit(context.Background(), "register", Input{})
	}()

	// Wait until the first submission is inside the executor, then fire a
	// second click against it. It must be rejected immediately as a no-op,
	// not queued as a retry.
	<-exec.started
	_, secondErr := m.Submit(context.Background(), "register", Input{})
	assert.ErrorIs(t, secondErr, ErrStepRunning)

	close(exec.block)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, 1, exec.callCount(KindRegisterTu), "exactly one network call per confirmation")
}

func TestReset_InvalidatesInFlightSubmission(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindRegisterTu] = Output{"out_number": 42}

	m := New(tuDefinition(), exec)
	advanceTuToRegister(t, m)

	exec.mu.Lock()
	exec.block = make(chan struct{})
	exec.started = make(chan struct{}, 1)
	exec.mu.Unlock()

	var submitErr error
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		_, submitErr = m.Submit(context.Background(), "register", Input{})
	}()

	// Reset while the commit step is inside the executor. The completion
	// arriving afterwards belongs to the discarded run and must not
	// resurrect its state.
	<-exec.started
	m.Reset()

	close(exec.block)
	wg.Wait()

	assert.ErrorIs(t, submitErr, ErrStaleRun)

	view := m.View()
	assert.Equal(t, 0, view.StepIndex)
	assert.False(t, view.Committed)
	assert.Empty(t, m.Collected())
	for _, s := range view.Steps {
		assert.Equal(t, "idle", s.Status)
	}
}

// gatingErr mimics the conflict warning raised before a commit.
type gatingErr struct{ msg string }

func (e *gatingErr) Error() string { return e.msg }
func (e *gatingErr) Gating() bool  { return true }

func TestSubmit_GatingErrorLeavesStepIdle(t *testing.T) {
	exec := newStubExecutor()
	exec.errs[KindRegisterTu] = &gatingErr{msg: "application already has a refusal on file"}

	m := New(tuDefinition(), exec)
	advanceTuToRegister(t, m)

	_, err := m.Submit(context.Background(), "register", Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has a refusal")

	// The gate is not a failure: the step is idle again and may be
	// resubmitted with an override, and nothing was committed.
	view := m.View()
	assert.Equal(t, "idle", view.Steps[3].Status)
	assert.False(t, view.Committed)

	exec.mu.Lock()
	delete(exec.errs, KindRegisterTu)
	exec.outputs[KindRegisterTu] = Output{"out_number": 7}
	exec.mu.Unlock()

	_, err = m.Submit(context.Background(), "register", Input{Fields: map[string]interface{}{"override": true}})
	require.NoError(t, err)
	assert.True(t, m.Committed())
}

func TestCommitFailure_LeavesWizardAtCommitStep(t *testing.T) {
	exec := newStubExecutor()
	exec.errs[KindRegisterTu] = errors.New("remote service unavailable")

	m := New(tuDefinition(), exec)
	advanceTuToRegister(t, m)

	_, err := m.Submit(context.Background(), "register", Input{})
	require.Error(t, err)

	// Upstream data survives so the operator can retry without re-entry
	view := m.View()
	assert.Equal(t, 3, view.StepIndex)
	assert.False(t, view.Committed)
	assert.Len(t, m.Collected(), 3)
}

func TestView_TerminalState(t *testing.T) {
	exec := newStubExecutor()
	exec.outputs[KindRegisterTu] = Output{"out_number": 42, "out_year": 2025, "filename": "TU_2025_42.zip"}
	m := runTuWizardToCommit(t, exec)

	view := m.View()
	assert.True(t, view.Committed)
	assert.Equal(t, "succeeded", view.Steps[3].Status)
	assert.Equal(t, "TU_2025_42.zip", view.Steps[3].Output["filename"])

	// collected contains one entry per step including the commit output
	assert.Len(t, m.Collected(), 4)
}

// advanceTuToRegister walks a TU wizard up to its register step.
func advanceTuToRegister(t *testing.T, m *Machine) {
	t.Helper()

	_, err := m.Submit(context.Background(), "application", Input{})
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), "extract", Input{})
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), "rso", Input{Fields: map[string]interface{}{"rso_type": "vodokanal"}})
	require.NoError(t, err)
	require.NoError(t, m.Confirm())
	require.Equal(t, "register", m.CurrentStep().Name)
}

func runTuWizardToCommit(t *testing.T, exec *stubExecutor) *Machine {
	t.Helper()

	m := New(tuDefinition(), exec)
	advanceTuToRegister(t, m)
	_, err := m.Submit(context.Background(), "register", Input{})
	require.NoError(t, err)
	return m
}
