package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"eventhub/pkg/models"
)

// DefaultFilePath is where the flat-file store lives when no path is configured.
const DefaultFilePath = "data/db.json"

// FileStore keeps the collection as one JSON array on disk. A missing file
// reads as an empty collection.
type FileStore struct {
	Path string

	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) ReadAll(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Event{}, nil
	}
	if err != nil {
		return nil, unavailable(fmt.Errorf("read %s: %w", s.Path, err))
	}
	if len(b) == 0 {
		return []models.Event{}, nil
	}

	var events []models.Event
	if err := json.Unmarshal(b, &events); err != nil {
		return nil, unavailable(fmt.Errorf("decode %s: %w", s.Path, err))
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// WriteAll writes to a temp file next to Path and renames it over Path, so
// readers never observe a half-written array.
func (s *FileStore) WriteAll(ctx context.Context, events []models.Event) error {
	if err := ctx.Err(); err != nil {
		return writeFailed(err)
	}
	if events == nil {
		events = []models.Event{}
	}

	b, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return writeFailed(fmt.Errorf("encode events: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return writeFailed(fmt.Errorf("mkdir %s: %w", dir, err))
	}

	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return writeFailed(fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return writeFailed(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return writeFailed(fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return writeFailed(fmt.Errorf("rename into %s: %w", s.Path, err))
	}
	return nil
}
