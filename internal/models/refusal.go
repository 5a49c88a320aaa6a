package models

import "time"

// RefusalReason is a coded ground for refusing to issue a plan.
type RefusalReason string

const (
	ReasonNoRights        RefusalReason = "NO_RIGHTS"
	ReasonNoBorders       RefusalReason = "NO_BORDERS"
	ReasonNotInCity       RefusalReason = "NOT_IN_CITY"
	ReasonObjectNotExists RefusalReason = "OBJECT_NOT_EXISTS"
	ReasonHasActiveGP     RefusalReason = "HAS_ACTIVE_GP"
)

// ReasonInfo carries the operator-facing title and the formal wording
// inserted into the refusal letter.
type ReasonInfo struct {
	Code  RefusalReason `json:"code"`
	Title string        `json:"title"`
	Text  string        `json:"text"`
}

// RefusalReasons is the catalog of recognized refusal grounds.
var RefusalReasons = map[RefusalReason]ReasonInfo{
	ReasonNoRights: {
		Code:  ReasonNoRights,
		Title: "No rights to the land parcel",
		Text:  "documents confirming rights to the land parcel were not provided",
	},
	ReasonNoBorders: {
		Code:  ReasonNoBorders,
		Title: "Parcel boundaries not established",
		Text:  "the boundaries of the land parcel have not been established",
	},
	ReasonNotInCity: {
		Code:  ReasonNotInCity,
		Title: "Parcel outside city limits",
		Text:  "the land parcel is located outside the city limits",
	},
	ReasonObjectNotExists: {
		Code:  ReasonObjectNotExists,
		Title: "Object does not exist",
		Text:  "the object is absent from the land registry",
	},
	ReasonHasActiveGP: {
		Code:  ReasonHasActiveGP,
		Title: "Active plan already issued",
		Text:  "a previously issued urban-planning document is still in force",
	},
}

// ReasonInfoFor resolves a reason code against the catalog.
func ReasonInfoFor(code RefusalReason) (ReasonInfo, bool) {
	info, ok := RefusalReasons[code]
	return info, ok
}

// Refusal is a formal rejection of a plan request. At most one refusal
// exists per application; (OutYear, OutNumber) is unique across refusals.
type Refusal struct {
	ID            int64         `json:"id"`
	ApplicationID int64         `json:"application_id"`
	OutNumber     int           `json:"out_number"`
	OutDate       string        `json:"out_date"`
	OutYear       int           `json:"out_year"`
	ReasonCode    RefusalReason `json:"reason_code"`
	ReasonText    *string       `json:"reason_text,omitempty"`
	Attachment    *string       `json:"attachment,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Application *Application `json:"application,omitempty"`
}
