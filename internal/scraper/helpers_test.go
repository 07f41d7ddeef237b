package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eventhub/internal/store"
	"eventhub/pkg/models"
)

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

// fakeSource serves pages by index (offset / page size) and records every
// offset it was asked for.
type fakeSource struct {
	mu      sync.Mutex
	pages   [][]RawRecord
	failAt  int
	failErr error
	offsets []int
}

func newFakeSource(pages ...[]RawRecord) *fakeSource {
	return &fakeSource{pages: pages, failAt: -1}
}

func (f *fakeSource) Name() string     { return "fake" }
func (f *fakeSource) Category() string { return "Fake" }

func (f *fakeSource) FetchPage(_ context.Context, offset int) ([]RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	idx := offset / DefaultPageSize
	if idx == f.failAt {
		return nil, f.failErr
	}
	if idx >= len(f.pages) {
		return nil, nil
	}
	return f.pages[idx], nil
}

func (f *fakeSource) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.offsets)
}

// countingStore wraps a MemoryStore with injectable failures.
type countingStore struct {
	*store.MemoryStore
	readErr  error
	writeErr error
	writes   int
}

func newCountingStore(seed ...models.Event) *countingStore {
	return &countingStore{MemoryStore: store.NewMemoryStore(seed...)}
}

func (s *countingStore) ReadAll(ctx context.Context) ([]models.Event, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.MemoryStore.ReadAll(ctx)
}

func (s *countingStore) WriteAll(ctx context.Context, events []models.Event) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.MemoryStore.WriteAll(ctx, events)
}

func newTestPipeline(s store.Store, src Source, catalog []Placeholder) *Pipeline {
	p := NewPipeline(s, NewFetcher(src, zerolog.Nop()), NewFallbackGenerator(catalog), zerolog.Nop())
	p.Now = func() time.Time { return testNow }
	return p
}

func records(titles ...string) []RawRecord {
	out := make([]RawRecord, 0, len(titles))
	for _, t := range titles {
		out = append(out, RawRecord{Title: t, Link: "https://example.com/" + t})
	}
	return out
}

var errBoom = errors.New("boom")
