package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/models"
)

// ErrSourceFetch marks a source whose fetch failed. Only that source is
// skipped.
var ErrSourceFetch = errors.New("source fetch failed")

// Source produces candidates for one configured origin.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Candidate, error)
}

// SourceResult is the outcome of one source within a run.
type SourceResult struct {
	FetchErr error
	Name     string
	Batch    BatchReport
	Duration time.Duration
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	StartedAt time.Time
	RunID     string
	Sources   []SourceResult
	Duration  time.Duration
}

// Totals sums the batch counters over all sources.
func (r RunReport) Totals() BatchReport {
	total := BatchReport{Source: "all"}

	for _, s := range r.Sources {
		total.Received += s.Batch.Received
		total.Unique += s.Batch.Unique
		total.Inserted += s.Batch.Inserted
		total.Duplicates += s.Batch.Duplicates
		total.Invalid += s.Batch.Invalid
		total.Failed += s.Batch.Failed
		total.Errors = append(total.Errors, s.Batch.Errors...)
	}

	return total
}

// FailedSources returns the names of sources whose fetch failed.
func (r RunReport) FailedSources() []string {
	var names []string

	for _, s := range r.Sources {
		if s.FetchErr != nil {
			names = append(names, s.Name)
		}
	}

	return names
}

// Runner fetches sources one after another and ingests each batch fully
// before moving on.
type Runner struct {
	engine  *Engine
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewRunner creates a runner over engine. m may be nil.
func NewRunner(engine *Engine, log *logger.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		engine:  engine,
		metrics: m,
		logger:  log,
	}
}

// Run processes sources in order. A failing fetch is logged and recorded;
// the remaining sources still run. A cancelled context stops the run before
// the next source.
func (r *Runner) Run(ctx context.Context, sources []Source) RunReport {
	report := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	log := r.logger.With("run_id", report.RunID)
	log.Info("ingestion run started", "sources", len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			log.Warn("ingestion run cancelled", "error", ctx.Err())
			break
		}

		report.Sources = append(report.Sources, r.runSource(ctx, log, src))
	}

	report.Duration = time.Since(report.StartedAt)
	r.metrics.ObserveRun(report.Duration)

	totals := report.Totals()
	log.Info("ingestion run finished",
		"duration", report.Duration.String(),
		"inserted", totals.Inserted,
		"duplicates", totals.Duplicates,
		"invalid", totals.Invalid,
		"failed", totals.Failed,
		"failed_sources", len(report.FailedSources()),
	)

	return report
}

func (r *Runner) runSource(ctx context.Context, log *logger.Logger, src Source) SourceResult {
	name := src.Name()
	result := SourceResult{Name: name, Batch: BatchReport{Source: name}}
	start := time.Now()

	log.Info("fetching source", "source", name)

	candidates, err := src.Fetch(ctx)
	r.metrics.ObserveFetch(name, time.Since(start), err)

	if err != nil {
		result.FetchErr = fmt.Errorf("%w: %s: %w", ErrSourceFetch, name, err)
		result.Duration = time.Since(start)
		log.Error("source fetch failed", "source", name, "error", err)

		return result
	}

	result.Batch = r.engine.IngestBatch(ctx, name, candidates)
	result.Duration = time.Since(start)

	return result
}
