// Package normalizer cleans and validates case candidates and provides the
// text folding used for gazetteer matching.
package normalizer

import (
	"fmt"

	"casemap/internal/models"
)

// Processor runs the transformer and then the validator.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// Process returns the cleaned candidate, or an error wrapping a
// *ValidationError when required fields are missing after cleaning.
func (p *Processor) Process(c *models.Candidate) (*models.Candidate, error) {
	if c == nil {
		return nil, ErrNilCandidate
	}

	cleaned := p.transformer.Transform(c)

	if err := p.validator.Validate(cleaned); err != nil {
		return nil, fmt.Errorf("%s candidate: %w", cleaned.Path, err)
	}

	return cleaned, nil
}
