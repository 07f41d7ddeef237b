package main

import (
	"flag"
	"net/http"
	"time"

	"eventhub/internal/mirror"
	"eventhub/pkg/utils"
)

// Serves data/mirror.json at GET /search.json, paged by ?start=. Point
// EVENTHUB_UPSTREAM_BASE_URL here to ingest without a provider key.
func main() {
	var (
		addr     = flag.String("addr", ":9000", "listen address")
		dataPath = flag.String("data", "data/mirror.json", "mirror JSON file")
		pageSize = flag.Int("page-size", mirror.DefaultPageSize, "results per page")
	)
	flag.Parse()
	log := utils.NewLogger("mirror-server", "info")

	mux := http.NewServeMux()
	mux.Handle("/search.json", mirror.Handler(*dataPath, *pageSize))

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", *addr).Str("data", *dataPath).Msg("mirror-server listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("mirror-server stopped")
	}
}
