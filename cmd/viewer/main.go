// Package main prints the stored cases as an aligned table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"casemap/internal/classifier"
	"casemap/internal/config"
	"casemap/internal/formatter"
	"casemap/internal/logger"
	"casemap/internal/models"
	"casemap/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/casemap.yaml", "Path to YAML configuration file")
	state := flag.String("state", "", "Only show cases of this state (name or code)")
	summary := flag.Bool("summary", false, "Print case counts per state instead of the case list")
	width := flag.Int("width", formatter.DefaultMaxTitle, "Maximum title width")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger("info").Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Logging.Level)
	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("memory store selected, there is nothing to show; set DATABASE_URL")
	}

	ctx := context.Background()

	s, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var records []models.CaseRecord
	if *state != "" {
		records, err = s.ListByState(ctx, classifier.Canonicalize(*state))
	} else {
		records, err = s.ListAll(ctx)
	}

	if err != nil {
		log.Error("failed to list cases", "error", err)
		closeStore()
		os.Exit(1)
	}

	if *summary {
		fmt.Println(formatter.StateSummary(records))
		return
	}

	fmt.Println(formatter.CaseTable(records, *width))
	fmt.Printf("\n%d cases\n", len(records))
}
