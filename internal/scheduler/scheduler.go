// Package scheduler fires ingestion jobs on a cron calendar and keeps at most
// one job running at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"casemap/internal/config"
	"casemap/internal/logger"
)

// ErrBusy is returned when a job is triggered while another one runs.
var ErrBusy = errors.New("another job is running")

// RunFunc executes one job.
type RunFunc func(ctx context.Context, job config.JobConfig) error

// Scheduler owns the cron calendar and the single-pipeline lock.
type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	run    RunFunc
	logger *logger.Logger
	mu     sync.Mutex
}

// New creates a scheduler that runs jobs with run.
func New(run RunFunc, log *logger.Logger) *Scheduler {
	return &Scheduler{
		ctx:    context.Background(),
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{log}))),
		run:    run,
		logger: log,
	}
}

// Add registers job on its cron expression (standard five-field syntax or a
// descriptor such as @daily).
func (s *Scheduler) Add(job config.JobConfig) error {
	_, err := s.cron.AddFunc(job.Cron, func() {
		if err := s.Trigger(s.ctx, job); err != nil {
			if errors.Is(err, ErrBusy) {
				s.logger.Warn("skipping job, previous run still active", "job", job.Name)
				return
			}

			s.logger.Error("scheduled job failed", "job", job.Name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression for job %s: %w", job.Name, err)
	}

	s.logger.Info("job scheduled", "job", job.Name, "cron", job.Cron, "sources", len(job.Sources))

	return nil
}

// Trigger runs job now unless another job holds the lock, in which case it
// returns ErrBusy without running.
func (s *Scheduler) Trigger(ctx context.Context, job config.JobConfig) error {
	if !s.mu.TryLock() {
		return ErrBusy
	}
	defer s.mu.Unlock()

	start := time.Now()
	s.logger.Info("job started", "job", job.Name)

	err := s.run(ctx, job)

	s.logger.Info("job finished", "job", job.Name, "duration", time.Since(start).String())

	return err
}

// Start begins firing jobs. Runs started by the calendar use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts the calendar and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Next returns the next activation time of every job, in registration order.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))

	for _, e := range entries {
		out = append(out, e.Next)
	}

	return out
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
