// Package ingest turns candidates into persisted case records: clean-up,
// validation, classification, duplicate suppression and insertion.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"casemap/internal/classifier"
	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/models"
	"casemap/internal/normalizer"
	"casemap/internal/store"
)

// Engine ingests candidates one at a time against a store.
type Engine struct {
	store      store.Store
	processor  *normalizer.Processor
	classifier *classifier.Classifier
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// NewEngine creates an engine. m may be nil.
func NewEngine(s store.Store, log *logger.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		store:      s,
		processor:  normalizer.NewProcessor(),
		classifier: classifier.New(),
		metrics:    m,
		logger:     log,
	}
}

// BatchReport summarizes one source batch.
type BatchReport struct {
	Errors     []error
	Source     string
	Received   int
	Unique     int
	Inserted   int
	Duplicates int
	Invalid    int
	Failed     int
}

// Ingest processes a single candidate. It never panics on store errors; they
// come back as a failed outcome.
func (e *Engine) Ingest(ctx context.Context, c *models.Candidate) models.IngestOutcome {
	label := "unknown"
	if c != nil {
		label = c.Path.String()
	}

	return e.ingest(ctx, label, c)
}

func (e *Engine) ingest(ctx context.Context, source string, c *models.Candidate) models.IngestOutcome {
	out := e.decide(ctx, c)
	e.metrics.IncrementOutcome(source, out.Kind.String())

	return out
}

func (e *Engine) decide(ctx context.Context, c *models.Candidate) models.IngestOutcome {
	cleaned, err := e.processor.Process(c)
	if err != nil {
		return models.IngestOutcome{Kind: models.OutcomeInvalid, Err: err}
	}

	geo := e.geographyFor(cleaned)

	existing, err := e.store.FindByTitleOrURL(ctx, cleaned.Title, cleaned.URL)
	if err != nil {
		return models.IngestOutcome{Kind: models.OutcomeFailed, Geo: geo, Err: err}
	}

	if existing != nil {
		return models.IngestOutcome{Kind: models.OutcomeSkippedDuplicate, Geo: geo, ID: existing.ID}
	}

	id, err := e.store.Insert(ctx, cleaned.ToRecord(geo))
	if err != nil {
		return models.IngestOutcome{Kind: models.OutcomeFailed, Geo: geo, Err: err}
	}

	return models.IngestOutcome{Kind: models.OutcomeInserted, Geo: geo, ID: id}
}

// geographyFor keeps an explicit state and derives its region; otherwise the
// classifier infers both from url and text.
func (e *Engine) geographyFor(c *models.Candidate) models.Geography {
	if c.State != "" {
		return classifier.Resolve(c.State)
	}

	return e.classifier.ClassifyCandidate(c)
}

// IngestBatch drops repeated urls within the batch, keeping the first, and
// ingests the rest in order. Failures are counted and collected, never
// returned early.
func (e *Engine) IngestBatch(ctx context.Context, source string, candidates []models.Candidate) BatchReport {
	report := BatchReport{
		Source:   source,
		Received: len(candidates),
	}

	unique := UniqueByURL(candidates)
	report.Unique = len(unique)

	log := e.logger.With("source", source)

	for i := range unique {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("batch interrupted after %d of %d: %w", i, len(unique), err))
			break
		}

		c := &unique[i]
		out := e.ingest(ctx, source, c)

		switch out.Kind {
		case models.OutcomeInserted:
			report.Inserted++
			log.Debug("case inserted", "id", out.ID, "title", c.Title, "state", out.Geo.StateName())
		case models.OutcomeSkippedDuplicate:
			report.Duplicates++
		case models.OutcomeInvalid:
			report.Invalid++
			report.Errors = append(report.Errors, fmt.Errorf("item %d: %w", i, out.Err))
			log.Warn("invalid candidate", "index", i, "error", out.Err)
		case models.OutcomeFailed:
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("item %d %q: %w", i, c.Title, out.Err))
			log.Error("failed to store case", "title", c.Title, "error", out.Err)
		}
	}

	log.Info("batch ingested",
		"received", report.Received,
		"unique", report.Unique,
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"invalid", report.Invalid,
		"failed", report.Failed,
	)

	return report
}

// UniqueByURL keeps the first candidate per url. Candidates without a url
// are always kept.
func UniqueByURL(candidates []models.Candidate) []models.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]models.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if key := strings.TrimSpace(c.URL); key != "" {
			if seen[key] {
				continue
			}

			seen[key] = true
		}

		out = append(out, c)
	}

	return out
}
