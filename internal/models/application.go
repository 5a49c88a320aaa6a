package models

import "time"

// ApplicationStatus is the lifecycle state of an application.
// Transitions to StatusGPIssued and StatusRefused happen only through
// registration of a Plan or a Refusal.
type ApplicationStatus string

const (
	StatusNew        ApplicationStatus = "new"
	StatusInProgress ApplicationStatus = "in_progress"
	StatusGPIssued   ApplicationStatus = "gp_issued"
	StatusRefused    ApplicationStatus = "refused"
)

// Valid reports whether s is one of the known statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusGPIssued, StatusRefused:
		return true
	}
	return false
}

// Terminal reports whether the application already carries an outcome.
// An application can have at most one outcome (a plan or a refusal).
func (s ApplicationStatus) Terminal() bool {
	return s == StatusGPIssued || s == StatusRefused
}

// Application represents a request for issuing an urban-planning document
// for a land parcel. Created by parsing an uploaded DOCX or manual entry.
// Nullable columns use pointers to distinguish zero values from NULL.
type Application struct {
	ID           int64             `json:"id"`
	Number       string            `json:"number"`
	Date         string            `json:"date"`
	Applicant    string            `json:"applicant"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email"`
	Cadnum       string            `json:"cadnum"`
	Address      string            `json:"address"`
	Area         *float64          `json:"area,omitempty"`
	PermittedUse *string           `json:"permitted_use,omitempty"`
	Status       ApplicationStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
