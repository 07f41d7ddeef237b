package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/scraper"
	"eventhub/internal/store"
	"eventhub/pkg/models"
)

// stubSource returns one page of fixed titles, optionally blocking until
// release is closed.
type stubSource struct {
	titles  []string
	release chan struct{}
	calls   atomic.Int32
}

func (s *stubSource) Name() string     { return "stub" }
func (s *stubSource) Category() string { return "Stub" }

func (s *stubSource) FetchPage(ctx context.Context, offset int) ([]scraper.RawRecord, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if offset > 0 {
		return nil, nil
	}
	out := make([]scraper.RawRecord, 0, len(s.titles))
	for _, t := range s.titles {
		out = append(out, scraper.RawRecord{Title: t})
	}
	return out, nil
}

func newTestService(src scraper.Source, seed ...models.Event) (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore(seed...)
	f := scraper.NewFetcher(src, zerolog.Nop())
	f.MaxPages = 1
	p := scraper.NewPipeline(st, f, nil, zerolog.Nop())
	return NewService(st, p, evbus.New(), zerolog.Nop()), st
}

func seedEvents() []models.Event {
	return []models.Event{
		{ID: "001", Name: "Frevo no Paço", Category: "Cultura", Description: "orquestra"},
		{ID: "002", Name: "Feira Orgânica", Category: "Feira", Saved: true},
		{ID: "003", Name: "Cinema na Praça", Category: "cultura"},
	}
}

func TestService_ListFilters(t *testing.T) {
	svc, _ := newTestService(&stubSource{}, seedEvents()...)
	ctx := context.Background()
	saved := true

	all, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := svc.List(ctx, ListQuery{Saved: &saved})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "002", got[0].ID)

	got, err = svc.List(ctx, ListQuery{Category: "CULTURA"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.List(ctx, ListQuery{Q: "ORQUESTRA"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "001", got[0].ID)

	got, err = svc.List(ctx, ListQuery{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "002", got[0].ID)

	got, err = svc.List(ctx, ListQuery{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_ToggleSaved(t *testing.T) {
	svc, st := newTestService(&stubSource{}, seedEvents()...)
	ctx := context.Background()

	var mu sync.Mutex
	var published []SavedEvent
	require.NoError(t, svc.Bus.Subscribe(TopicSaved, func(e SavedEvent) {
		mu.Lock()
		published = append(published, e)
		mu.Unlock()
	}))

	ev, err := svc.ToggleSaved(ctx, "001")
	require.NoError(t, err)
	assert.True(t, ev.Saved)

	ev, err = svc.ToggleSaved(ctx, "002")
	require.NoError(t, err)
	assert.False(t, ev.Saved)

	stored, err := st.ReadAll(ctx)
	require.NoError(t, err)
	assert.True(t, stored[0].Saved)
	assert.False(t, stored[1].Saved)

	_, err = svc.ToggleSaved(ctx, "999")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, published, 2)
}

func TestService_RefreshPublishes(t *testing.T) {
	svc, _ := newTestService(&stubSource{titles: []string{"Novo show"}}, seedEvents()...)

	var got IngestedEvent
	require.NoError(t, svc.Bus.Subscribe(TopicIngested, func(e IngestedEvent) { got = e }))

	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Added, 1)
	assert.Equal(t, "004", res.Added[0].ID)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, 4, got.Total)
	assert.False(t, got.Fallback)
}

func TestService_ConcurrentRefreshesShareOneRun(t *testing.T) {
	src := &stubSource{titles: []string{"a", "b"}, release: make(chan struct{})}
	svc, st := newTestService(src)

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Refresh(context.Background())
			assert.NoError(t, err)
			results[i] = res.RunID
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	stored, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, []string{"001", "002"}, []string{stored[0].ID, stored[1].ID})
}

func TestService_RefreshSurvivesStarterCancellation(t *testing.T) {
	src := &stubSource{titles: []string{"a", "b"}, release: make(chan struct{})}
	svc, st := newTestService(src)

	starterCtx, cancelStarter := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(starterCtx)
		starterErr <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	joined := make(chan scraper.Result, 1)
	joinedErr := make(chan error, 1)
	go func() {
		res, err := svc.Refresh(context.Background())
		joined <- res
		joinedErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelStarter()
	assert.ErrorIs(t, <-starterErr, context.Canceled)

	close(src.release)
	require.NoError(t, <-joinedErr)
	res := <-joined
	assert.Len(t, res.Added, 2)

	stored, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestService_RefreshRunTimeout(t *testing.T) {
	src := &stubSource{titles: []string{"a"}, release: make(chan struct{})}
	svc, st := newTestService(src)
	svc.RunTimeout = 30 * time.Millisecond

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	stored, rerr := st.ReadAll(context.Background())
	require.NoError(t, rerr)
	assert.Empty(t, stored)
}

func TestService_GetNotFound(t *testing.T) {
	svc, _ := newTestService(&stubSource{}, seedEvents()...)

	ev, err := svc.Get(context.Background(), "003")
	require.NoError(t, err)
	assert.Equal(t, "Cinema na Praça", ev.Name)

	_, err = svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
