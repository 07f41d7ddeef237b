package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"eventhub/pkg/database"
	"eventhub/pkg/models"
)

const eventsTable = "events"

var eventColumns = []string{
	"id", "name", "description", "date", "location", "schedule", "is_free", "category", "link", "saved",
}

// SQLiteStore keeps the collection in the events table; the position column
// preserves collection order.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens (and migrates) the database at path. An empty path uses
// database.DefaultConfig.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := database.Open(database.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return NewSQLiteStore(db), nil
}

func (s *SQLiteStore) DB() *sqlx.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) ReadAll(ctx context.Context) ([]models.Event, error) {
	query, args, err := sq.Select(eventColumns...).
		From(eventsTable).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, unavailable(fmt.Errorf("build select: %w", err))
	}

	events := []models.Event{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, unavailable(fmt.Errorf("select events: %w", err))
	}
	return events, nil
}

func (s *SQLiteStore) WriteAll(ctx context.Context, events []models.Event) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return writeFailed(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+eventsTable); err != nil {
		return writeFailed(fmt.Errorf("clear events: %w", err))
	}

	for i, ev := range events {
		query, args, err := sq.Insert(eventsTable).
			Columns(append([]string{"position"}, eventColumns...)...).
			Values(i, ev.ID, ev.Name, ev.Description, ev.Date, ev.Location, ev.Time, ev.IsFree, ev.Category, ev.Link, ev.Saved).
			ToSql()
		if err != nil {
			return writeFailed(fmt.Errorf("build insert for %s: %w", ev.ID, err))
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return writeFailed(fmt.Errorf("insert %s: %w", ev.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return writeFailed(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
