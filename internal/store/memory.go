package store

import (
	"context"
	"sync"

	"eventhub/pkg/models"
)

// MemoryStore keeps the collection in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
}

func NewMemoryStore(seed ...models.Event) *MemoryStore {
	return &MemoryStore{events: cloneEvents(seed)}
}

func (s *MemoryStore) ReadAll(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.events), nil
}

func (s *MemoryStore) WriteAll(ctx context.Context, events []models.Event) error {
	if err := ctx.Err(); err != nil {
		return writeFailed(err)
	}
	s.mu.Lock()
	s.events = cloneEvents(events)
	s.mu.Unlock()
	return nil
}

func cloneEvents(in []models.Event) []models.Event {
	out := make([]models.Event, len(in))
	copy(out, in)
	return out
}
