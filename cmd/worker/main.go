// Package main provides the ingestion worker. It runs the configured sources
// once, or keeps running them on the cron calendar from the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"casemap/internal/config"
	"casemap/internal/crawler"
	"casemap/internal/ingest"
	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/scheduler"
	"casemap/internal/store"
)

var errAllSourcesFailed = errors.New("every source failed")

func main() {
	configPath := flag.String("config", "configs/casemap.yaml", "Path to YAML configuration file")
	once := flag.Bool("once", false, "Run every enabled source once and exit")
	jobName := flag.String("job", "", "With -once, run only the sources of this schedule job")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger("info").Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	log.Info("config loaded", "path", *configPath, "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *once, *jobName); err != nil {
		log.Error("worker stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, once bool, jobName string) error {
	s, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer)
	runner := ingest.NewRunner(ingest.NewEngine(s, log, m), log, m)

	pipeline := func(ctx context.Context, job config.JobConfig) error {
		sources, err := crawler.BuildSources(cfg.GetSourcesByName(job.Sources), cfg.Retry, log)
		if err != nil {
			return err
		}

		report := runner.Run(ctx, sources)
		printReport(job.Name, report)

		if len(sources) > 0 && len(report.FailedSources()) == len(sources) {
			return errAllSourcesFailed
		}

		return nil
	}

	sched := scheduler.New(pipeline, log)

	if once {
		job := config.JobConfig{Name: "once"}

		if jobName != "" {
			found := false

			for _, j := range cfg.Schedule.Jobs {
				if j.Name == jobName {
					job, found = j, true
					break
				}
			}

			if !found {
				return fmt.Errorf("unknown job %q", jobName)
			}
		}

		return sched.Trigger(ctx, job)
	}

	if len(cfg.Schedule.Jobs) == 0 {
		return errors.New("no schedule jobs configured, use -once")
	}

	for _, job := range cfg.Schedule.Jobs {
		if err := sched.Add(job); err != nil {
			return err
		}
	}

	sched.Start(ctx)
	log.Info("scheduler started", "jobs", sched.Entries())

	<-ctx.Done()
	log.Info("shutting down, waiting for running job")
	sched.Stop()

	return nil
}

func printReport(job string, report ingest.RunReport) {
	totals := report.Totals()

	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Ingestion Report (%s, run %s)\n", job, report.RunID)
	fmt.Println("------------------------------------------------")

	for _, src := range report.Sources {
		if src.FetchErr != nil {
			fmt.Printf("❌ %-22s fetch failed: %v\n", src.Name, src.FetchErr)
			continue
		}

		b := src.Batch
		fmt.Printf("✅ %-22s received %d, inserted %d, duplicates %d, invalid %d, failed %d (%v)\n",
			src.Name, b.Received, b.Inserted, b.Duplicates, b.Invalid, b.Failed, src.Duration.Round(time.Millisecond))
	}

	fmt.Printf("Inserted: %d | Duplicates: %d | Invalid: %d | Failed: %d\n",
		totals.Inserted, totals.Duplicates, totals.Invalid, totals.Failed)
	fmt.Printf("Total Duration: %v\n", report.Duration.Round(time.Millisecond))
	fmt.Println("------------------------------------------------")
}
