package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"eventhub/internal/scraper"
	"eventhub/internal/store"
	"eventhub/pkg/utils"
)

// One-shot ingestion run against the configured store and upstream.
func main() {
	log := utils.NewLogger("scraper", "info")
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = utils.NewLogger("scraper", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Ingest.RunTimeout)
	defer cancel()

	res, err := run(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("run_id", res.RunID).Msg("ingest failed")
		stop()
		os.Exit(1)
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("added", len(res.Added)).
		Int("total", len(res.Events)).
		Bool("fallback", res.Fallback).
		Msg("store updated")
}

func run(ctx context.Context, cfg *utils.Config, log zerolog.Logger) (scraper.Result, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return scraper.Result{}, err
	}
	defer func() { _ = store.Close(st) }()

	pipeline, err := scraper.NewPipelineFromConfig(cfg, st, log)
	if err != nil {
		return scraper.Result{}, err
	}
	return pipeline.Run(ctx)
}
