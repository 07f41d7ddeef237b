package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"eventhub/internal/store"
	"eventhub/pkg/utils"
)

func main() {
	log := utils.NewLogger("export-csv", "info")

	sc, err := utils.LoadStoreConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	var (
		outPath = flag.String("out", "data/events.csv", "output CSV path")
		driver  = flag.String("driver", sc.Driver, "store driver (sqlite|file)")
		path    = flag.String("path", sc.Path, "store path")
	)
	flag.Parse()
	sc.Driver, sc.Path = *driver, *path

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	if err := writeFile(*outPath, func(f *os.File) error { return store.WriteCSV(f, events) }); err != nil {
		log.Fatal().Err(err).Str("out", *outPath).Msg("export failed")
	}
	log.Info().Int("events", len(events)).Str("out", *outPath).Msg("exported events")
}

func writeFile(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
