// Package mirror converts stored events into the Google Events response
// shape and serves it back paged, so the serpapi source can run against
// local data.
package mirror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"eventhub/pkg/models"
)

const (
	DefaultPageSize = 10
	noResultsError  = "Google hasn't returned any results for this query."
)

type Date struct {
	StartDate string `json:"start_date,omitempty"`
	When      string `json:"when,omitempty"`
}

type Result struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Link        string   `json:"link,omitempty"`
	Date        Date     `json:"date"`
	Address     []string `json:"address,omitempty"`
}

type Metadata struct {
	Status string `json:"status"`
}

type Response struct {
	SearchMetadata Metadata `json:"search_metadata"`
	EventsResults  []Result `json:"events_results,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// FromEvents maps events to results. Dates are rendered as "Jan 2" so the
// ingestion side parses them back to the same day.
func FromEvents(events []models.Event) []Result {
	out := make([]Result, 0, len(events))
	for _, ev := range events {
		r := Result{
			Title:       ev.Name,
			Description: ev.Description,
			Link:        ev.Link,
			Date:        Date{When: ev.Time},
		}
		if d, err := time.Parse(models.DateLayout, ev.Date); err == nil {
			r.Date.StartDate = d.Format("Jan 2")
		}
		if ev.Location != "" {
			r.Address = []string{ev.Location}
		}
		out = append(out, r)
	}
	return out
}

// Page returns the response for offset start. Past the end it reports the
// provider's no-results error.
func Page(results []Result, start, size int) Response {
	if size <= 0 {
		size = DefaultPageSize
	}
	if start < 0 {
		start = 0
	}
	if start >= len(results) {
		return Response{SearchMetadata: Metadata{Status: "Success"}, Error: noResultsError}
	}
	end := start + size
	if end > len(results) {
		end = len(results)
	}
	return Response{SearchMetadata: Metadata{Status: "Success"}, EventsResults: results[start:end]}
}

func Load(path string) ([]Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.EventsResults, nil
}

func Save(path string, results []Result) error {
	b, err := json.MarshalIndent(Response{
		SearchMetadata: Metadata{Status: "Success"},
		EventsResults:  results,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Handler serves GET /search.json from the file at path, re-read on every
// request so edits show up without a restart.
func Handler(path string, pageSize int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results, err := Load(path)
		if err != nil {
			http.Error(w, "cannot read mirror: "+err.Error(), http.StatusInternalServerError)
			return
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Page(results, start, pageSize))
	})
}
