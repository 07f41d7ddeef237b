package scraper

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/store"
	"eventhub/pkg/models"
)

func TestPipeline_StopsAtMaxPagesWhenTargetNotReached(t *testing.T) {
	src := newFakeSource(
		records("a1", "a2"),
		records("b1", "b2"),
		records("c1", "c2"),
		records("d1", "d2"),
	)
	s := newCountingStore()
	p := newTestPipeline(s, src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, src.requests())
	assert.Equal(t, []int{0, 10, 20}, src.offsets)
	require.Len(t, res.Added, 6)
	assert.False(t, res.Fallback)
	for i, ev := range res.Added {
		assert.Equal(t, fmt.Sprintf("%03d", i+1), ev.ID)
	}
}

func TestPipeline_StopsOnceTargetReached(t *testing.T) {
	src := newFakeSource(
		records("a1", "a2", "a3"),
		records("b1", "b2", "b3"),
		records("c1", "c2", "c3"),
	)
	p := newTestPipeline(newCountingStore(), src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, src.requests())
	assert.Len(t, res.Added, 6)
}

func TestPipeline_DuplicatePagesDoNotCountTowardTarget(t *testing.T) {
	src := newFakeSource(
		records("Old", "old"),
		records("New 1"),
	)
	p := newTestPipeline(newCountingStore(models.Event{ID: "001", Name: "OLD"}), src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, src.requests())
	require.Len(t, res.Added, 1)
	assert.Equal(t, "New 1", res.Added[0].Name)
	assert.Equal(t, "002", res.Added[0].ID)
}

func TestPipeline_EmptyFirstPageIssuesOneRequest(t *testing.T) {
	src := newFakeSource(nil, records("never"))
	p := newTestPipeline(newCountingStore(), src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.requests())
	assert.True(t, res.Stats.Exhausted)
	assert.True(t, res.Fallback)
}

func TestPipeline_PageFailureKeepsPartialResults(t *testing.T) {
	src := newFakeSource(records("a1", "a2"), records("b1"))
	src.failAt = 1
	src.failErr = errBoom
	s := newCountingStore()
	p := newTestPipeline(s, src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, src.requests())
	assert.ErrorIs(t, res.Stats.Err, ErrUpstreamPageFailed)
	assert.ErrorIs(t, res.Stats.Err, errBoom)
	assert.True(t, IsRecoverable(res.Stats.Err))
	assert.False(t, res.Fallback)
	require.Len(t, res.Added, 2)

	stored, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPipeline_FirstPageFailureFallsBack(t *testing.T) {
	src := newFakeSource()
	src.failAt = 0
	src.failErr = errBoom
	p := newTestPipeline(newCountingStore(), src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Len(t, res.Added, len(DefaultCatalog()))
}

func TestPipeline_FallbackSkipsStoredPlaceholders(t *testing.T) {
	existing := models.Event{ID: "007", Name: "feira de artesanato do marco zero"}
	s := newCountingStore(existing)
	p := newTestPipeline(s, newFakeSource(), nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	require.Len(t, res.Added, 2)
	assert.Equal(t, "Circuito do Frevo no Recife Antigo", res.Added[0].Name)
	assert.Equal(t, "008", res.Added[0].ID)
	assert.Equal(t, "19-10-2026", res.Added[0].Date)
	assert.True(t, res.Added[0].IsFree)
	assert.Equal(t, "Noite de Forró no Pátio de São Pedro", res.Added[1].Name)
	assert.Equal(t, "009", res.Added[1].ID)
	assert.Equal(t, "21-10-2026", res.Added[1].Date)

	require.Len(t, res.Events, 3)
	assert.Equal(t, existing, res.Events[0])
	assert.Equal(t, 1, s.writes)
}

func TestPipeline_NothingNewIsANoOp(t *testing.T) {
	seed := []models.Event{
		{ID: "001", Name: "Show A", Date: "01-11-2026"},
		{ID: "002", Name: "SHOW B", Saved: true},
	}
	catalog := []Placeholder{{Name: "show a"}, {Name: "Show B"}}
	s := newCountingStore(seed...)
	p := newTestPipeline(s, newFakeSource(records("Show A")), catalog)

	for i := 0; i < 2; i++ {
		got, err := p.Ingest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, seed, got)
	}

	assert.Equal(t, 0, s.writes)
	stored, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed, stored)
}

func TestPipeline_UnreadableStoreIsTreatedAsEmpty(t *testing.T) {
	s := newCountingStore(models.Event{ID: "041", Name: "hidden"})
	s.readErr = fmt.Errorf("%w: disk gone", store.ErrStoreUnavailable)
	p := newTestPipeline(s, newFakeSource(records("x")), nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, res.StoreErr, store.ErrStoreUnavailable)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "001", res.Events[0].ID)
}

func TestPipeline_WriteFailureFailsTheRun(t *testing.T) {
	s := newCountingStore()
	s.writeErr = errBoom
	p := newTestPipeline(s, newFakeSource(records("x")), nil)

	events, err := p.Ingest(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStoreWriteFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.Nil(t, events)
}

func TestPipeline_CancelledRunPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newCountingStore()
	p := newTestPipeline(s, newFakeSource(records("x")), nil)

	_, err := p.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.writes)
}

func TestPipeline_NormalizesCandidates(t *testing.T) {
	src := newFakeSource([]RawRecord{{}})
	p := newTestPipeline(newCountingStore(), src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Added, 1)
	ev := res.Added[0]
	assert.Equal(t, PlaceholderName, ev.Name)
	assert.Equal(t, PlaceholderDescription, ev.Description)
	assert.Equal(t, PlaceholderSchedule, ev.Time)
	assert.Equal(t, PlaceholderLink, ev.Link)
	assert.Equal(t, "Recife", ev.Location)
	assert.Equal(t, "Fake", ev.Category)
	assert.Equal(t, "18-10-2026", ev.Date)
	assert.False(t, ev.IsFree)
	assert.False(t, ev.Saved)
}
