package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"eventhub/pkg/models"
)

type apiError struct {
	Error string `json:"error"`
}

type scrapeResponse struct {
	Message  string         `json:"message"`
	Data     []models.Event `json:"data"`
	Added    []models.Event `json:"added"`
	Fallback bool           `json:"fallback"`
	RunID    string         `json:"run_id"`
}

type listOptions struct {
	Saved    string
	Category string
	Q        string
	Limit    int
	Offset   int
}

// apiClient talks to cmd/api-server.
type apiClient struct {
	rc *resty.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})
	return &apiClient{rc: rc}
}

func (c *apiClient) List(ctx context.Context, opts listOptions) ([]models.Event, error) {
	params := map[string]string{}
	if opts.Saved != "" {
		params["saved"] = opts.Saved
	}
	if opts.Category != "" {
		params["category"] = opts.Category
	}
	if opts.Q != "" {
		params["q"] = opts.Q
	}
	if opts.Limit > 0 {
		params["limit"] = strconv.Itoa(opts.Limit)
	}
	if opts.Offset > 0 {
		params["offset"] = strconv.Itoa(opts.Offset)
	}

	var out []models.Event
	resp, err := c.req(ctx).SetQueryParams(params).SetResult(&out).Get("/api/events")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) Get(ctx context.Context, id string) (models.Event, error) {
	var out models.Event
	resp, err := c.req(ctx).SetResult(&out).Get("/api/events/" + url.PathEscape(id))
	if err := check(resp, err); err != nil {
		return models.Event{}, err
	}
	return out, nil
}

func (c *apiClient) Refresh(ctx context.Context) (scrapeResponse, error) {
	var out scrapeResponse
	resp, err := c.req(ctx).SetResult(&out).Post("/api/scrape")
	if err := check(resp, err); err != nil {
		return scrapeResponse{}, err
	}
	return out, nil
}

func (c *apiClient) ToggleSave(ctx context.Context, id string) (models.Event, error) {
	var out models.Event
	resp, err := c.req(ctx).SetResult(&out).Post("/api/events/" + url.PathEscape(id) + "/toggle-save")
	if err := check(resp, err); err != nil {
		return models.Event{}, err
	}
	return out, nil
}

// req decodes every response body as JSON regardless of its content type.
func (c *apiClient) req(ctx context.Context) *resty.Request {
	return c.rc.R().SetContext(ctx).ForceContentType("application/json")
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		return fmt.Errorf("%s %s: %d %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), e.Error)
	}
	return fmt.Errorf("%s %s: %d %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), strings.TrimSpace(resp.String()))
}
