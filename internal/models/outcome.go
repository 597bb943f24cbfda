package models

// OutcomeKind classifies the result of ingesting one candidate.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeInserted OutcomeKind = iota
	OutcomeSkippedDuplicate
	OutcomeInvalid
	OutcomeFailed
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInserted:
		return "inserted"
	case OutcomeSkippedDuplicate:
		return "skipped_duplicate"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IngestOutcome is the result of ingesting one candidate. ID is the new row
// for inserted outcomes and the existing row for duplicates. Err is set for
// invalid and failed outcomes.
type IngestOutcome struct {
	Err  error
	Geo  Geography
	ID   int64
	Kind OutcomeKind
}
