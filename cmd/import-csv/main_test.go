package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eventhub/pkg/models"
)

func TestMergeRows(t *testing.T) {
	existing := []models.Event{
		{ID: "001", Name: "Frevo"},
		{ID: "004", Name: "Feira"},
	}
	rows := []models.Event{
		{ID: "004", Name: "Feira Renovada", Saved: true},
		{ID: "", Name: "Cinema"},
		{ID: "001x", Name: "frevo"},
		{ID: "999", Name: "Maracatu"},
	}

	merged, stats := mergeRows(existing, rows)

	assert.Equal(t, importStats{updated: 1, added: 2, skipped: 1}, stats)
	assert.Equal(t, []models.Event{
		{ID: "001", Name: "Frevo"},
		{ID: "004", Name: "Feira Renovada", Saved: true},
		{ID: "005", Name: "Cinema"},
		{ID: "006", Name: "Maracatu"},
	}, merged)
	assert.Equal(t, "001", existing[0].ID)
	assert.Equal(t, "Feira", existing[1].Name)
}
