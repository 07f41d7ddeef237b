package events

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"eventhub/internal/scraper"
	"eventhub/internal/store"
	"eventhub/pkg/models"
)

// Bus topics published by Service.
const (
	TopicIngested     = "events:ingested"
	TopicIngestFailed = "events:ingest_failed"
	TopicSaved        = "events:saved"
)

// IngestedEvent is published after every successful refresh.
type IngestedEvent struct {
	RunID    string
	Added    []models.Event
	Total    int
	Fallback bool
	Pages    int
	PageErr  error
	At       time.Time
}

// IngestFailedEvent is published when a refresh could not persist.
type IngestFailedEvent struct {
	RunID string
	Err   error
	At    time.Time
}

// SavedEvent is published when an event's saved flag changes.
type SavedEvent struct {
	Event models.Event
	At    time.Time
}

type ListQuery struct {
	Q        string // substring of name or description, case-insensitive
	Category string
	Saved    *bool
	Limit    int // 0 means no limit
	Offset   int
}

// DefaultRunTimeout bounds a refresh when Service.RunTimeout is unset.
const DefaultRunTimeout = 60 * time.Second

// Service owns every read-modify-write cycle on the store. Refreshes and
// toggles share one mutex so they never overwrite each other; concurrent
// refresh requests collapse into a single pipeline run.
type Service struct {
	Store    store.Store
	Pipeline *scraper.Pipeline
	Bus      evbus.Bus
	Log      zerolog.Logger
	// RunTimeout bounds one pipeline run. Runs are detached from the
	// triggering request, so this is their only deadline.
	RunTimeout time.Duration

	mu    sync.Mutex
	group singleflight.Group
}

func NewService(s store.Store, p *scraper.Pipeline, bus evbus.Bus, log zerolog.Logger) *Service {
	if bus == nil {
		bus = evbus.New()
	}
	return &Service{
		Store:      s,
		Pipeline:   p,
		Bus:        bus,
		Log:        log.With().Str("component", "events").Logger(),
		RunTimeout: DefaultRunTimeout,
	}
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]models.Event, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}

	kw := strings.ToLower(strings.TrimSpace(q.Q))
	category := strings.ToLower(strings.TrimSpace(q.Category))

	out := make([]models.Event, 0, len(all))
	for _, ev := range all {
		if q.Saved != nil && ev.Saved != *q.Saved {
			continue
		}
		if category != "" && strings.ToLower(ev.Category) != category {
			continue
		}
		if kw != "" &&
			!strings.Contains(strings.ToLower(ev.Name), kw) &&
			!strings.Contains(strings.ToLower(ev.Description), kw) {
			continue
		}
		out = append(out, ev)
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []models.Event{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Event, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return models.Event{}, err
	}
	i, ok := store.Find(all, id)
	if !ok {
		return models.Event{}, store.ErrNotFound
	}
	return all[i], nil
}

// Refresh runs the ingestion pipeline. Callers arriving while a run is in
// flight share its result. The run itself keeps going when the caller that
// started it goes away; each caller stops waiting when its own ctx is done.
func (s *Service) Refresh(ctx context.Context) (scraper.Result, error) {
	ch := s.group.DoChan("ingest", func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		runCtx := context.WithoutCancel(ctx)
		if s.RunTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, s.RunTimeout)
			defer cancel()
		}

		res, err := s.Pipeline.Run(runCtx)
		if err != nil {
			s.Bus.Publish(TopicIngestFailed, IngestFailedEvent{RunID: res.RunID, Err: err, At: time.Now()})
			return res, err
		}
		s.Bus.Publish(TopicIngested, IngestedEvent{
			RunID:    res.RunID,
			Added:    res.Added,
			Total:    len(res.Events),
			Fallback: res.Fallback,
			Pages:    res.Stats.Pages,
			PageErr:  res.Stats.Err,
			At:       time.Now(),
		})
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			s.Log.Debug().Msg("refresh joined an in-flight run")
		}
		res, _ := r.Val.(scraper.Result)
		return res, r.Err
	case <-ctx.Done():
		return scraper.Result{}, ctx.Err()
	}
}

// ToggleSaved flips the saved flag of id and persists the collection.
func (s *Service) ToggleSaved(ctx context.Context, id string) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		return models.Event{}, err
	}
	i, ok := store.Find(all, id)
	if !ok {
		return models.Event{}, store.ErrNotFound
	}
	all[i].Saved = !all[i].Saved

	if err := s.Store.WriteAll(ctx, all); err != nil {
		return models.Event{}, err
	}
	s.Bus.Publish(TopicSaved, SavedEvent{Event: all[i], At: time.Now()})
	return all[i], nil
}

// Ready probes the store.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.Store.ReadAll(ctx)
	return err
}

// readAll treats an unreadable store as empty, like the pipeline does.
func (s *Service) readAll(ctx context.Context) ([]models.Event, error) {
	all, err := s.Store.ReadAll(ctx)
	if err == nil {
		return all, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, store.ErrStoreUnavailable) {
		s.Log.Warn().Err(err).Msg("store unreadable, serving empty collection")
		return []models.Event{}, nil
	}
	return nil, err
}
