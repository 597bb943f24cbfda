package models

// EntryPath identifies how a candidate reached the pipeline. Validation rules
// differ per path.
type EntryPath int

// Entry paths.
const (
	PathScraped EntryPath = iota
	PathImport
	PathManual
)

// String returns the path label used in logs and metrics.
func (p EntryPath) String() string {
	switch p {
	case PathScraped:
		return "scraped"
	case PathImport:
		return "import"
	case PathManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Candidate is an untagged case produced by a source adapter, an import file
// or the add-case API. Empty strings mean absent.
type Candidate struct {
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	State          string    `json:"state"`
	Municipality   string    `json:"municipality"`
	Organization   string    `json:"organization"`
	ValueEstimated string    `json:"value_estimated"`
	Status         string    `json:"status"`
	Date           string    `json:"date"`
	Source         string    `json:"source"`
	URL            string    `json:"url"`
	Path           EntryPath `json:"-"`
}

// ToRecord copies the pass-through fields into a record with the given geography.
func (c *Candidate) ToRecord(geo Geography) *CaseRecord {
	return &CaseRecord{
		Title:          c.Title,
		Summary:        c.Summary,
		Municipality:   c.Municipality,
		Organization:   c.Organization,
		ValueEstimated: c.ValueEstimated,
		Status:         c.Status,
		Date:           c.Date,
		Source:         c.Source,
		URL:            c.URL,
		Geography:      geo,
	}
}
