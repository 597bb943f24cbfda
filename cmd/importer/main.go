// Package main imports a .csv or .json case file into the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"casemap/internal/config"
	"casemap/internal/importer"
	"casemap/internal/ingest"
	"casemap/internal/logger"
	"casemap/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/casemap.yaml", "Path to YAML configuration file")
	file := flag.String("file", "", "Case file to import (.csv or .json)")

	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Please provide a file with -file")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger("info").Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, log, *file); err != nil {
		log.Error("import failed", "file", *file, "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, file string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candidates, err := importer.LoadFile(file)
	if err != nil {
		return err
	}

	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("memory store selected, imported cases are dropped on exit; set DATABASE_URL")
	}

	log.Info("file decoded", "file", file, "summary", importer.Describe(candidates))

	s, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := ingest.NewEngine(s, log, nil)
	report := engine.IngestBatch(ctx, "import:"+filepath.Base(file), candidates)

	fmt.Printf("📥 %s: received %d, inserted %d, duplicates %d, invalid %d, failed %d\n",
		file, report.Received, report.Inserted, report.Duplicates, report.Invalid, report.Failed)

	for _, e := range report.Errors {
		fmt.Printf("  - %v\n", e)
	}

	return nil
}
