package sync

import (
	"time"

	"eventhub/pkg/models"
)

const (
	TypeIngested = "events.ingested"
	TypeSaved    = "event.saved"
)

// IngestedMessage is pushed to feed clients after a refresh that changed
// the collection.
type IngestedMessage struct {
	Type     string         `json:"type"`
	RunID    string         `json:"run_id"`
	Added    []models.Event `json:"added"`
	Total    int            `json:"total"`
	Fallback bool           `json:"fallback"`
	At       time.Time      `json:"at"`
}

type SavedMessage struct {
	Type  string       `json:"type"`
	Event models.Event `json:"event"`
	At    time.Time    `json:"at"`
}
