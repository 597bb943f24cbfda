// Package main serves the case HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"casemap/internal/api"
	"casemap/internal/config"
	"casemap/internal/ingest"
	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/casemap.yaml", "Path to YAML configuration file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger("info").Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	log.Info("config loaded", "path", *configPath, "config", cfg.String())

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := ingest.NewEngine(s, log, metrics.New(reg))
	handler := api.New(s, engine, reg, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
