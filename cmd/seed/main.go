// Package main inserts a small fixed set of sample cases for development.
// Running it twice inserts nothing new.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"casemap/internal/config"
	"casemap/internal/ingest"
	"casemap/internal/logger"
	"casemap/internal/models"
	"casemap/internal/store"
)

// samples are the development cases. Region is derived from state.
var samples = []models.Candidate{
	{
		Title:   "Fraude em licitação no Piauí",
		Summary: "Auditoria aponta superfaturamento em contratos de obras públicas.",
		State:   "Piauí",
		Date:    "2024-09-15",
		Source:  "Portal da Transparência",
		URL:     "https://exemplo.com/piaui",
		Path:    models.PathImport,
	},
	{
		Title:   "Desvio de verbas em São Paulo",
		Summary: "Prefeitura é investigada por uso irregular de recursos da educação.",
		State:   "São Paulo",
		Date:    "2025-01-10",
		Source:  "Folha de São Paulo",
		URL:     "https://exemplo.com/sp",
		Path:    models.PathImport,
	},
	{
		Title:   "Esquema de propina em Brasília",
		Summary: "Operação da Polícia Federal prende servidores públicos.",
		State:   "Distrito Federal",
		Date:    "2025-06-02",
		Source:  "G1 Notícias",
		URL:     "https://g1.globo.com",
		Path:    models.PathImport,
	},
}

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
		log.Warn("memory store selected, samples are dropped on exit; set DATABASE_URL")
	}

	ctx := context.Background()

	s, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	engine := ingest.NewEngine(s, log, nil)

	for i := range samples {
		out := engine.Ingest(ctx, &samples[i])

		switch out.Kind {
		case models.OutcomeInserted:
			fmt.Printf("✅ Case added: %s (id %d, %s)\n", samples[i].Title, out.ID, out.Geo.RegionName())
		case models.OutcomeSkippedDuplicate:
			fmt.Printf("⏭️  Already present: %s\n", samples[i].Title)
		default:
			fmt.Printf("❌ Failed to add %s: %v\n", samples[i].Title, out.Err)
		}
	}
}
