package wizard

// Output is the structured result of one completed step, as returned by
// the executor. Kept opaque by the machine: it only stores and replays it.
type Output map[string]interface{}

// StepState is the per-step status. It is a sealed tagged union so that
// illegal combinations (running and failed at once) cannot be represented.
type StepState interface {
	stepState()
}

// Idle means the step has not been submitted yet.
type Idle struct{}

// Running means a submission is in flight. While a step is Running the
// machine rejects equivalent submissions, so Running doubles as the
// single-flight guard.
type Running struct{}

// Succeeded holds the step's output.
type Succeeded struct {
	Output Output
}

// Failed holds the error the submission resolved to. A Failed step may be
// resubmitted by the operator; nothing is retried automatically.
type Failed struct {
	Err error
}

func (Idle) stepState()      {}
func (Running) stepState()   {}
func (Succeeded) stepState() {}
func (Failed) stepState()    {}

// StatusName returns the wire name of a step state.
func StatusName(s StepState) string {
	switch s.(type) {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
