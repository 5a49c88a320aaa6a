package services

import (
	"fmt"

	"github.com/glavarch/gpzu/internal/models"
)

// Warning is a non-fatal advisory raised before a side-effecting step.
// It blocks the operation until the operator explicitly overrides it.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConflictError wraps a Warning as an error so the wizard machine can
// treat it as a gating condition: the step returns to Idle instead of
// Failed and may be resubmitted with an override.
type ConflictError struct {
	Warning Warning
}

func (e *ConflictError) Error() string {
	return e.Warning.Message
}

// Gating marks the error as a gate rather than a failure.
func (e *ConflictError) Gating() bool {
	return true
}

// ConflictAdvisor checks whether an application already carries a terminal
// outcome. It never mutates data; the hard guarantee against double
// outcomes is the database unique constraint, the advisor only front-runs
// it with an operator-readable warning.
type ConflictAdvisor struct{}

// NewConflictAdvisor creates a new instance of ConflictAdvisor.
func NewConflictAdvisor() *ConflictAdvisor {
	return &ConflictAdvisor{}
}

// Advise returns a warning when the application is already refused or
// already has an issued plan, and nil otherwise.
func (a *ConflictAdvisor) Advise(app *models.Application) *Warning {
	if app == nil {
		return nil
	}
	switch app.Status {
	case models.StatusRefused:
		return &Warning{
			Code:    "HAS_REFUSAL",
			Message: fmt.Sprintf("application %s already has a refusal on file", app.Number),
		}
	case models.StatusGPIssued:
		return &Warning{
			Code:    "HAS_PLAN",
			Message: fmt.Sprintf("application %s already has an issued plan on file", app.Number),
		}
	}
	return nil
}
