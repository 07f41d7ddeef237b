package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/pkg/utils"
)

func serpConfig(baseURL string) utils.UpstreamConfig {
	return utils.UpstreamConfig{
		Kind:     "serpapi",
		BaseURL:  baseURL,
		APIKey:   "secret",
		Query:    "eventos em recife",
		Language: "pt",
		Country:  "br",
		Timeout:  2 * time.Second,
	}
}

func TestSerpAPISource_FetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "google_events", q.Get("engine"))
		assert.Equal(t, "eventos em recife", q.Get("q"))
		assert.Equal(t, "10", q.Get("start"))
		assert.Equal(t, "pt", q.Get("hl"))
		assert.Equal(t, "br", q.Get("gl"))
		assert.Equal(t, "secret", q.Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"search_metadata": {"status": "Success"},
			"events_results": [
				{
					"title": "Festival de Inverno",
					"description": "Shows gratuitos",
					"link": "https://example.com/inverno",
					"date": {"start_date": "Dec 7", "when": "Sat, Dec 7, 8 PM"},
					"address": ["Marco Zero", "Recife, PE"]
				},
				{"title": "Sem data"}
			]
		}`))
	}))
	defer srv.Close()

	src := NewSerpAPISource(serpConfig(srv.URL))
	got, err := src.FetchPage(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, RawRecord{
		Title:       "Festival de Inverno",
		Description: "Shows gratuitos",
		Link:        "https://example.com/inverno",
		When:        "Sat, Dec 7, 8 PM",
		StartDate:   "Dec 7",
		Address:     []string{"Marco Zero", "Recife, PE"},
	}, got[0])
	assert.Equal(t, RawRecord{Title: "Sem data"}, got[1])
	assert.Equal(t, "Eventos Google", src.Category())
}

func TestSerpAPISource_NoResultsIsExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	_, err := NewSerpAPISource(serpConfig(srv.URL)).FetchPage(context.Background(), 20)
	assert.ErrorIs(t, err, ErrUpstreamExhausted)
}

func TestSerpAPISource_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"invalid key", http.StatusUnauthorized, `{"error": "Invalid API key."}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"garbage body", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewSerpAPISource(serpConfig(srv.URL)).FetchPage(context.Background(), 0)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrUpstreamExhausted)
		})
	}
}

func TestSerpAPISource_TimeoutIsAPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"events_results": []}`))
	}))
	defer srv.Close()

	cfg := serpConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	f := NewFetcher(NewSerpAPISource(cfg), zerolog.Nop())

	stats := f.Fetch(context.Background(), testNow, nil)
	assert.Equal(t, 1, stats.Pages)
	assert.ErrorIs(t, stats.Err, ErrUpstreamPageFailed)
}
