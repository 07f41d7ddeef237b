package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"eventhub/internal/store"
	"eventhub/pkg/models"
)

// Sample returns a small collection touching every field.
func Sample() []models.Event {
	return []models.Event{
		{ID: "002", Name: "Show X", Description: "desc", Date: "01-12-2026", Location: "Recife Antigo",
			Time: "Sáb, 20:00", IsFree: true, Category: "Eventos Google", Link: "https://example.test/x", Saved: true},
		{ID: "001", Name: "Feira", Description: "", Date: "02-12-2026", Location: "Olinda",
			Time: "Data a confirmar", IsFree: false, Category: "Busca Web", Link: "#"},
		{ID: "010", Name: "Maracatu na Rua", Description: "Cortejo", Date: "03-12-2026", Location: "Recife",
			Time: "Dom", Category: "Cultura", Link: "#"},
	}
}

// Run exercises the contract every store.Store must satisfy. makeStore must
// return a fresh, empty store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store reads as empty", func(t *testing.T) {
		s := makeStore(t)
		got, err := s.ReadAll(ctx)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("round trip preserves order and fields", func(t *testing.T) {
		s := makeStore(t)
		want := Sample()
		require.NoError(t, s.WriteAll(ctx, want))

		got, err := s.ReadAll(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("writing what was read is a no-op", func(t *testing.T) {
		s := makeStore(t)
		require.NoError(t, s.WriteAll(ctx, Sample()))

		first, err := s.ReadAll(ctx)
		require.NoError(t, err)
		require.NoError(t, s.WriteAll(ctx, first))

		second, err := s.ReadAll(ctx)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("write replaces the collection", func(t *testing.T) {
		s := makeStore(t)
		require.NoError(t, s.WriteAll(ctx, Sample()))

		only := []models.Event{{ID: "001", Name: "Solo", Link: "#"}}
		require.NoError(t, s.WriteAll(ctx, only))

		got, err := s.ReadAll(ctx)
		require.NoError(t, err)
		require.Equal(t, only, got)
	})
}
