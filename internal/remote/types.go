package remote

// ParsedApplication is the structured result of parsing an uploaded DOCX
// application. Either the whole document parses or the step fails; the
// parser never returns a partial record.
type ParsedApplication struct {
	Number    string `json:"number"`
	Date      string `json:"date"`
	DateText  string `json:"date_text"`
	Applicant string `json:"applicant"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Cadnum    string `json:"cadnum"`
	Purpose   string `json:"purpose"`
}

// ParsedExtract is the structured result of parsing a land-registry
// extract (XML, or ZIP containing one).
type ParsedExtract struct {
	Cadnum       string    `json:"cadnum"`
	Address      string    `json:"address"`
	Area         *float64  `json:"area"`
	PermittedUse string    `json:"permitted_use"`
	IsLand       bool      `json:"is_land"`
	Contours     [][]Coord `json:"contours,omitempty"`
}

// Coord is one boundary point in the extract's coordinate system.
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Analysis is the spatial-analysis result for a parcel.
type Analysis struct {
	Zone            string           `json:"zone"`
	District        string           `json:"district"`
	CapitalObjects  []CapitalObject  `json:"capital_objects"`
	RestrictedZones []RestrictedZone `json:"restricted_zones"`
	PlanningProject *PlanningProject `json:"planning_project,omitempty"`
}

// CapitalObject is a building or structure intersecting the parcel.
type CapitalObject struct {
	Cadnum  string `json:"cadnum"`
	Kind    string `json:"kind"`
	Address string `json:"address"`
}

// RestrictedZone is a use-restriction zone intersecting the parcel.
type RestrictedZone struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// PlanningProject references an approved planning project covering the parcel.
type PlanningProject struct {
	Name     string `json:"name"`
	Approved string `json:"approved"`
}

// Artifact is a generated document: an opaque byte stream plus the
// filename suggested by the generator's Content-Disposition header.
type Artifact struct {
	Filename string
	Bytes    []byte
}

// KaitenCard is a task card created in the Kaiten tracker.
type KaitenCard struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
