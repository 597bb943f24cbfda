// Package main re-classifies every stored case and clears placeholder states.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"casemap/internal/config"
	"casemap/internal/correction"
	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/casemap.yaml", "Path to YAML configuration file")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger("info").Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("memory store selected, there are no persisted rows to correct; set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Error("failed to open store", "error", err)
		stop()
		os.Exit(1)
	}
	defer closeStore()

	job := correction.NewJob(s, log, metrics.New(prometheus.NewRegistry()))

	report, err := job.Correct(ctx)
	if err != nil {
		log.Error("correction failed", "error", err)
		closeStore()
		stop()
		os.Exit(1)
	}

	fmt.Println("\n------------------------------------------------")
	fmt.Println("🧹 Correction Report")
	fmt.Println("------------------------------------------------")
	fmt.Printf("Scanned: %d\n", report.Scanned)
	fmt.Printf("Reclassified: %d\n", report.Reclassified)
	fmt.Printf("Cleaned: %d\n", report.Cleaned)
	fmt.Printf("Failed: %d\n", report.Failed)

	for _, e := range report.Errors {
		fmt.Printf("  - %v\n", e)
	}

	fmt.Println("------------------------------------------------")
}
