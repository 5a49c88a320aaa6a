package models

import "time"

// RSOType identifies a utility provider kind (resource-supplying
// organization) a technical-conditions request is addressed to.
type RSOType string

const (
	RSOVodokanal RSOType = "vodokanal"
	RSOGaz       RSOType = "gaz"
	RSOTeplo     RSOType = "teplo"
)

// RSOInfo carries the display name of a utility provider.
type RSOInfo struct {
	Code RSOType `json:"code"`
	Name string  `json:"name"`
}

// RSOTypes is the catalog of utility providers requests are sent to.
var RSOTypes = map[RSOType]RSOInfo{
	RSOVodokanal: {Code: RSOVodokanal, Name: "Vodokanal LLC"},
	RSOGaz:       {Code: RSOGaz, Name: "Gazprom Gas Distribution Siberia LLC"},
	RSOTeplo:     {Code: RSOTeplo, Name: "EnergoTranzit LLC, NTSK LLC"},
}

// RSOInfoFor resolves an RSO code against the catalog.
func RSOInfoFor(code RSOType) (RSOInfo, bool) {
	info, ok := RSOTypes[code]
	return info, ok
}

// TuRequest is a registered technical-conditions request to one utility
// provider. Unique on (ApplicationID, RSOType), one request per utility
// kind per application, and on (OutYear, OutNumber).
type TuRequest struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	OutNumber     int       `json:"out_number"`
	OutDate       string    `json:"out_date"`
	OutYear       int       `json:"out_year"`
	RSOType       RSOType   `json:"rso_type"`
	RSOName       *string   `json:"rso_name,omitempty"`
	Attachment    *string   `json:"attachment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Application *Application `json:"application,omitempty"`
}
