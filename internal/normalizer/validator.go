package normalizer

import (
	"errors"
	"strings"

	"casemap/internal/models"
)

// Validation errors.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNilCandidate = errors.New("candidate is nil")
	ErrMissingTitle = errors.New("missing title")
	ErrMissingState = errors.New("missing state")
	ErrMissingURL   = errors.New("missing url")
)

// ValidationError lists every required field a candidate is missing.
type ValidationError struct {
	Fields []string
	causes []error
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Is matches ErrValidation and each per-field sentinel.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}

	for _, c := range e.causes {
		if c == target {
			return true
		}
	}

	return false
}

func (e *ValidationError) add(field string, cause error) {
	e.Fields = append(e.Fields, field)
	e.causes = append(e.causes, cause)
}

// Validator checks candidates against the rules of their entry path.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns a *ValidationError naming the missing fields, or nil.
// Title is always required; the manual add-case path also requires state
// and a non-blank url.
func (v *Validator) Validate(c *models.Candidate) error {
	if c == nil {
		return ErrNilCandidate
	}

	verr := &ValidationError{}

	if strings.TrimSpace(c.Title) == "" {
		verr.add("title", ErrMissingTitle)
	}

	if c.Path == models.PathManual {
		if strings.TrimSpace(c.State) == "" {
			verr.add("state", ErrMissingState)
		}

		if strings.TrimSpace(c.URL) == "" {
			verr.add("url", ErrMissingURL)
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}

	return nil
}
