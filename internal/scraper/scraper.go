package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"eventhub/internal/store"
	"eventhub/pkg/models"
	"eventhub/pkg/utils"
)

// Result describes one ingestion run.
type Result struct {
	RunID string
	// Events is the full collection after the run.
	Events []models.Event
	// Added holds the events appended by this run, with their ids.
	Added []models.Event
	// Fallback is set when Added came from the placeholder catalog.
	Fallback bool
	Stats    FetchStats
	// StoreErr is the read failure that was treated as an empty store.
	StoreErr error
}

// Pipeline runs fetch, dedup, id allocation, fallback and persistence
// against one store. A Pipeline does not serialize its own runs; see
// events.Service for that.
type Pipeline struct {
	Store    store.Store
	Fetcher  *Fetcher
	Fallback *FallbackGenerator
	Log      zerolog.Logger
	Now      func() time.Time
}

func NewPipeline(s store.Store, f *Fetcher, fb *FallbackGenerator, log zerolog.Logger) *Pipeline {
	if fb == nil {
		fb = NewFallbackGenerator(nil)
	}
	return &Pipeline{
		Store:    s,
		Fetcher:  f,
		Fallback: fb,
		Log:      log.With().Str("component", "pipeline").Logger(),
		Now:      time.Now,
	}
}

// NewPipelineFromConfig wires the upstream strategy, tuning constants and
// fallback catalog named by cfg.
func NewPipelineFromConfig(cfg *utils.Config, s store.Store, log zerolog.Logger) (*Pipeline, error) {
	src, err := NewSourceFromConfig(cfg.Upstream)
	if err != nil {
		return nil, err
	}
	catalog, err := LoadCatalog(cfg.Ingest.FallbackCatalog)
	if err != nil {
		return nil, err
	}

	f := NewFetcher(src, log.With().Str("component", "fetcher").Str("source", src.Name()).Logger())
	f.MaxPages = cfg.Ingest.MaxPages
	f.TargetNew = cfg.Ingest.TargetNew
	f.PageSize = cfg.Ingest.PageSize
	f.Normalizer.DescriptionCap = cfg.Ingest.DescriptionCap
	if cfg.Ingest.DefaultLocation != "" {
		f.Normalizer.DefaultLocation = cfg.Ingest.DefaultLocation
	}

	fb := NewFallbackGenerator(catalog)
	fb.DescriptionCap = cfg.Ingest.DescriptionCap
	if cfg.Ingest.DefaultLocation != "" {
		fb.DefaultLocation = cfg.Ingest.DefaultLocation
	}

	return NewPipeline(s, f, fb, log), nil
}

// Ingest runs the pipeline and returns the merged collection. It fails only
// when the store cannot be written or ctx is done.
func (p *Pipeline) Ingest(ctx context.Context) ([]models.Event, error) {
	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}

func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	res := Result{RunID: uuid.NewString()}
	log := p.Log.With().Str("run_id", res.RunID).Logger()

	existing, err := p.Store.ReadAll(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		log.Warn().Err(err).Msg("store unreadable, treating as empty")
		res.StoreErr = err
		existing = nil
	}
	if existing == nil {
		existing = []models.Event{}
	}

	dedup := NewDeduplicator(existing)
	ids := NewAllocator(existing)
	var accepted []models.Event

	res.Stats = p.Fetcher.Fetch(ctx, now(), func(candidates []models.Event) int {
		fresh := dedup.Filter(candidates)
		accepted = append(accepted, fresh...)
		return len(fresh)
	})

	// A cancelled run persists nothing.
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("ingest cancelled: %w", err)
	}

	if len(accepted) == 0 {
		accepted = dedup.Filter(p.Fallback.Generate(now()))
		res.Fallback = len(accepted) > 0
		log.Info().Int("placeholders", len(accepted)).Msg("no new upstream events, using fallback catalog")
	}
	ids.Assign(accepted)

	merged, err := MergeAndPersist(ctx, p.Store, existing, accepted)
	if err != nil {
		log.Error().Err(err).Int("added", len(accepted)).Msg("persist failed")
		return res, err
	}
	res.Events = merged
	res.Added = accepted

	ev := log.Info().
		Int("pages", res.Stats.Pages).
		Int("added", len(accepted)).
		Int("total", len(merged)).
		Bool("fallback", res.Fallback)
	if res.Stats.Err != nil {
		ev = ev.AnErr("page_error", res.Stats.Err)
	}
	ev.Msg("ingest finished")
	return res, nil
}

// IsRecoverable reports whether err is one the pipeline absorbs instead of
// failing the run.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUpstreamPageFailed) ||
		errors.Is(err, ErrUpstreamExhausted) ||
		errors.Is(err, store.ErrStoreUnavailable)
}
