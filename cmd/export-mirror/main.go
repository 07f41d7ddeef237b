package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"eventhub/internal/mirror"
	"eventhub/internal/store"
	"eventhub/pkg/utils"
)

// Writes the store as a Google Events response for cmd/mirror-server.
func main() {
	log := utils.NewLogger("export-mirror", "info")

	sc, err := utils.LoadStoreConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	var (
		outPath = flag.String("out", "data/mirror.json", "output JSON path")
		limit   = flag.Int("limit", 200, "how many events to export")
		driver  = flag.String("driver", sc.Driver, "store driver (sqlite|file)")
		path    = flag.String("path", sc.Path, "store path")
	)
	flag.Parse()
	sc.Driver, sc.Path = *driver, *path

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(sc)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer func() { _ = store.Close(st) }()

	events, err := st.ReadAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("read store")
	}
	if *limit > 0 && len(events) > *limit {
		events = events[:*limit]
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output dir")
	}
	if err := mirror.Save(*outPath, mirror.FromEvents(events)); err != nil {
		log.Fatal().Err(err).Msg("write mirror")
	}
	log.Info().Int("events", len(events)).Str("out", *outPath).Msg("mirror exported")
}
