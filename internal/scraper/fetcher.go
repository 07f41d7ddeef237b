package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"eventhub/pkg/models"
)

const (
	DefaultMaxPages  = 3
	DefaultTargetNew = 5
	DefaultPageSize  = 10
)

// PageFunc receives the normalized candidates of one page and returns how
// many of them were accepted. The Fetcher uses the running total to decide
// whether another page is worth requesting.
type PageFunc func(candidates []models.Event) int

// FetchStats summarizes one paged fetch.
type FetchStats struct {
	Pages      int
	Raw        int
	Candidates int
	Accepted   int
	Exhausted  bool
	// Err is the page failure that stopped pagination, if any. It wraps
	// ErrUpstreamPageFailed.
	Err error
}

type Fetcher struct {
	Source     Source
	Normalizer Normalizer
	MaxPages   int
	TargetNew  int
	PageSize   int
	Log        zerolog.Logger
}

func NewFetcher(src Source, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		Source: src,
		Normalizer: Normalizer{
			Category:        src.Category(),
			DescriptionCap:  DefaultDescriptionCap,
			DefaultLocation: DefaultLocation,
		},
		MaxPages:  DefaultMaxPages,
		TargetNew: DefaultTargetNew,
		PageSize:  DefaultPageSize,
		Log:       log,
	}
}

// Fetch requests pages sequentially, handing each page's candidates to
// onPage. It stops when the accepted total reaches TargetNew, after MaxPages
// requests, when a page returns no records, or on the first page failure.
// Failures never escape: they are reported in FetchStats.Err.
func (f *Fetcher) Fetch(ctx context.Context, now time.Time, onPage PageFunc) FetchStats {
	maxPages := f.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	target := f.TargetNew
	if target <= 0 {
		target = DefaultTargetNew
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var stats FetchStats
	for page := 0; page < maxPages && stats.Accepted < target; page++ {
		offset := page * pageSize
		records, err := f.Source.FetchPage(ctx, offset)
		stats.Pages++

		if errors.Is(err, ErrUpstreamExhausted) {
			stats.Exhausted = true
			f.Log.Info().Int("offset", offset).Msg("upstream exhausted")
			break
		}
		if err != nil {
			stats.Err = fmt.Errorf("%w: %s offset %d: %w", ErrUpstreamPageFailed, f.Source.Name(), offset, err)
			f.Log.Warn().Err(err).Int("offset", offset).Msg("page failed, keeping partial results")
			break
		}
		if len(records) == 0 {
			stats.Exhausted = true
			f.Log.Info().Int("offset", offset).Msg("upstream returned no records")
			break
		}

		candidates := make([]models.Event, 0, len(records))
		for _, r := range records {
			candidates = append(candidates, f.Normalizer.Normalize(r, now))
		}
		accepted := 0
		if onPage != nil {
			accepted = onPage(candidates)
		}

		stats.Raw += len(records)
		stats.Candidates += len(candidates)
		stats.Accepted += accepted

		f.Log.Info().
			Int("offset", offset).
			Int("records", len(records)).
			Int("accepted", accepted).
			Int("accepted_total", stats.Accepted).
			Msg("page fetched")
	}
	return stats
}
