// Package correction re-classifies persisted cases and clears placeholder
// states left by older ingestion paths.
package correction

import (
	"context"
	"fmt"

	"casemap/internal/classifier"
	"casemap/internal/gazetteer"
	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/models"
	"casemap/internal/store"
)

// Report summarizes one correction pass.
type Report struct {
	Errors       []error
	Scanned      int
	Reclassified int
	Cleaned      int
	Failed       int
}

// Job rewrites the geography of stored rows.
type Job struct {
	store      store.Store
	classifier *classifier.Classifier
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// NewJob creates a correction job. m may be nil.
func NewJob(s store.Store, log *logger.Logger, m *metrics.Metrics) *Job {
	return &Job{
		store:      s,
		classifier: classifier.New(),
		metrics:    m,
		logger:     log,
	}
}

// Correct reads every row first and then applies updates.
func (j *Job) Correct(ctx context.Context) (Report, error) {
	records, err := j.store.ListAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list cases: %w", err)
	}

	return j.CorrectRecords(ctx, records), nil
}

// CorrectRecords applies the correction rules to records and writes the
// changes to the store. A placeholder state is cleared first; a detected
// state that differs from the stored one is written after, so it wins when
// both apply.
func (j *Job) CorrectRecords(ctx context.Context, records []models.CaseRecord) Report {
	var report Report

	for i := range records {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Errorf("correction interrupted after %d rows: %w", i, ctx.Err()))
			break
		}

		report.Scanned++
		j.correctRow(ctx, &records[i], &report)
	}

	j.metrics.AddCorrections("reclassified", report.Reclassified)
	j.metrics.AddCorrections("cleaned", report.Cleaned)
	j.metrics.AddCorrections("failed", report.Failed)

	j.logger.Info("correction finished",
		"scanned", report.Scanned,
		"reclassified", report.Reclassified,
		"cleaned", report.Cleaned,
		"failed", report.Failed,
	)

	return report
}

func (j *Job) correctRow(ctx context.Context, rec *models.CaseRecord, report *Report) {
	log := j.logger.With("id", rec.ID)

	if rec.State != nil && gazetteer.IsSentinel(*rec.State) {
		if j.update(ctx, rec.ID, models.Geography{}, report) {
			report.Cleaned++
			log.Info("placeholder state cleared", "state", *rec.State)
		}
	}

	// Same state with a stale region is rewritten too.
	detected := j.classifier.Classify(rec.URL, rec.Title, rec.Summary)
	if detected.IsZero() || detected.Equal(rec.Geography) {
		return
	}

	if j.update(ctx, rec.ID, detected, report) {
		report.Reclassified++
		log.Info("case reclassified",
			"from", stateOrUnknown(rec.Geography),
			"to", detected.StateName(),
			"region", detected.RegionName(),
		)
	}
}

func (j *Job) update(ctx context.Context, id int64, geo models.Geography, report *Report) bool {
	if err := j.store.UpdateGeography(ctx, id, geo); err != nil {
		report.Failed++
		report.Errors = append(report.Errors, fmt.Errorf("row %d: %w", id, err))
		j.logger.Error("failed to update geography", "id", id, "error", err)

		return false
	}

	return true
}

func stateOrUnknown(g models.Geography) string {
	if g.State == nil {
		return "?"
	}

	return *g.State
}
