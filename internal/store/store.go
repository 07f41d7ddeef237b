package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"eventhub/pkg/models"
	"eventhub/pkg/utils"
)

var (
	// ErrStoreUnavailable means the backing medium could not be read.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreWriteFailed means the collection could not be persisted.
	ErrStoreWriteFailed = errors.New("store write failed")
	// ErrNotFound is returned by lookups on a single event.
	ErrNotFound = errors.New("event not found")
)

// Store persists the whole event collection at once. ReadAll returns the
// events in stored order; WriteAll replaces the collection with events.
//
// There is no partial update and no isolation between a ReadAll and a later
// WriteAll: two writers working from the same snapshot overwrite each other.
// Callers that mutate concurrently must serialize around the read/write cycle.
type Store interface {
	ReadAll(ctx context.Context) ([]models.Event, error)
	WriteAll(ctx context.Context, events []models.Event) error
}

// Open builds the store selected by cfg.Driver.
func Open(cfg utils.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return OpenSQLite(cfg.Path)
	case "file":
		path := cfg.Path
		if path == "" {
			path = DefaultFilePath
		}
		return NewFileStore(path), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// Close releases s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Find returns the event with the given id from events.
func Find(events []models.Event, id string) (int, bool) {
	for i := range events {
		if events[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func writeFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
}
