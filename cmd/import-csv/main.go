package main

import (
	"context"
	"flag"
	"os"
	"time"

	"eventhub/internal/scraper"
	"eventhub/internal/store"
	"eventhub/pkg/models"
	"eventhub/pkg/utils"
)

func main() {
	log := utils.NewLogger("import-csv", "info")

	sc, err := utils.LoadStoreConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	var (
		inPath = flag.String("in", "data/events.csv", "input CSV path")
		driver = flag.String("driver", sc.Driver, "store driver (sqlite|file)")
		path   = flag.String("path", sc.Path, "store path")
	)
	flag.Parse()
	sc.Driver, sc.Path = *driver, *path

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	f, err := os.Open(*inPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open csv")
	}
	rows, err := store.ReadCSV(f)
	_ = f.Close()
	if err != nil {
		log.Fatal().Err(err).Str("in", *inPath).Msg("parse csv")
	}

	st, err := store.Open(sc)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer func() { _ = store.Close(st) }()

	existing, err := st.ReadAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("read store")
	}

	merged, stats := mergeRows(existing, rows)
	if err := st.WriteAll(ctx, merged); err != nil {
		log.Fatal().Err(err).Msg("write store")
	}
	log.Info().
		Int("updated", stats.updated).
		Int("added", stats.added).
		Int("skipped", stats.skipped).
		Int("total", len(merged)).
		Msg("imported events")
}

type importStats struct {
	updated, added, skipped int
}

// mergeRows replaces events whose id already exists and appends the rest.
// New rows go through the same name dedup and id allocation as ingestion;
// their CSV ids are not trusted.
func mergeRows(existing, rows []models.Event) ([]models.Event, importStats) {
	var stats importStats
	merged := append([]models.Event(nil), existing...)

	var fresh []models.Event
	for _, row := range rows {
		if i, ok := store.Find(merged, row.ID); ok && row.ID != "" {
			merged[i] = row
			stats.updated++
			continue
		}
		fresh = append(fresh, row)
	}

	accepted := scraper.NewDeduplicator(merged).Filter(fresh)
	stats.skipped = len(fresh) - len(accepted)
	stats.added = len(accepted)
	scraper.NewAllocator(merged).Assign(accepted)

	return scraper.Merge(merged, accepted), stats
}
