package scraper

import (
	"context"
	"errors"
	"fmt"

	"eventhub/internal/store"
	"eventhub/pkg/models"
)

// Merge appends added after existing without touching existing order.
func Merge(existing, added []models.Event) []models.Event {
	merged := make([]models.Event, 0, len(existing)+len(added))
	merged = append(merged, existing...)
	merged = append(merged, added...)
	return merged
}

// MergeAndPersist writes existing+added back to s. With nothing added it
// returns existing untouched and performs no write.
func MergeAndPersist(ctx context.Context, s store.Store, existing, added []models.Event) ([]models.Event, error) {
	if len(added) == 0 {
		return existing, nil
	}
	merged := Merge(existing, added)
	if err := s.WriteAll(ctx, merged); err != nil {
		if errors.Is(err, store.ErrStoreWriteFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", store.ErrStoreWriteFailed, err)
	}
	return merged, nil
}
