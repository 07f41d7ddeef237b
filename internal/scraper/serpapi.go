package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"eventhub/pkg/utils"
)

const serpAPICategory = "Eventos Google"

// SerpAPISource pages through the Google Events engine of SerpApi (or any
// server speaking the same shape, such as cmd/mirror-server).
type SerpAPISource struct {
	client   *resty.Client
	apiKey   string
	query    string
	language string
	country  string
}

func NewSerpAPISource(cfg utils.UpstreamConfig) *SerpAPISource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= 500
		})
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &SerpAPISource{
		client:   c,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		query:    cfg.Query,
		language: cfg.Language,
		country:  cfg.Country,
	}
}

func (s *SerpAPISource) Name() string     { return "serpapi" }
func (s *SerpAPISource) Category() string { return serpAPICategory }

func (s *SerpAPISource) FetchPage(ctx context.Context, offset int) ([]RawRecord, error) {
	params := map[string]string{
		"engine": "google_events",
		"q":      s.query,
		"start":  strconv.Itoa(offset),
	}
	if s.language != "" {
		params["hl"] = s.language
	}
	if s.country != "" {
		params["gl"] = s.country
	}
	if s.apiKey != "" {
		params["api_key"] = s.apiKey
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/search.json")
	if err != nil {
		return nil, fmt.Errorf("serpapi: request: %w", err)
	}

	body := resp.Body()

	// SerpApi reports provider errors in the body, sometimes with a 200.
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		if isNoResults(msg.String()) {
			return nil, ErrUpstreamExhausted
		}
		return nil, fmt.Errorf("serpapi: provider error: %s", msg.String())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("serpapi: status %d: %s", resp.StatusCode(), truncateRunes(string(body), 200, ""))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("serpapi: decode: invalid json (len=%d)", len(body))
	}

	results := gjson.GetBytes(body, "events_results")
	records := make([]RawRecord, 0, len(results.Array()))
	results.ForEach(func(_, item gjson.Result) bool {
		rec := RawRecord{
			Title:       item.Get("title").String(),
			Description: item.Get("description").String(),
			Link:        item.Get("link").String(),
			When:        item.Get("date.when").String(),
			StartDate:   item.Get("date.start_date").String(),
		}
		for _, line := range item.Get("address").Array() {
			rec.Address = append(rec.Address, line.String())
		}
		records = append(records, rec)
		return true
	})
	return records, nil
}

func isNoResults(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "hasn't returned any results") ||
		strings.Contains(msg, "has not returned any results")
}
