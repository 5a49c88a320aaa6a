package models

import "time"

// Plan is an issued urban-planning document (GPZU) for an application.
// At most one plan exists per application; (OutYear, OutNumber) is unique
// across plans, so registration numbers are year-scoped and never reused.
type Plan struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	OutNumber     int       `json:"out_number"`
	OutDate       string    `json:"out_date"`
	OutYear       int       `json:"out_year"`
	XMLData       *string   `json:"xml_data,omitempty"`
	Attachment    *string   `json:"attachment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Application is the joined parent record, populated by detail queries.
	Application *Application `json:"application,omitempty"`
}
