package scraper

import (
	"context"
	"errors"
	"fmt"

	"eventhub/pkg/utils"
)

var (
	// ErrUpstreamPageFailed marks a page request that failed (network,
	// provider error, timeout). Pagination stops; earlier pages are kept.
	ErrUpstreamPageFailed = errors.New("upstream page failed")
	// ErrUpstreamExhausted is returned by a Source that knows there is
	// nothing past offset. It is a normal stop, not a failure.
	ErrUpstreamExhausted = errors.New("upstream exhausted")
)

// RawRecord is one upstream item before normalization. Every field is
// optional.
type RawRecord struct {
	Title       string
	Description string
	Link        string
	When        string   // free-text schedule, e.g. "Sáb., 7 de dez., 20:00"
	StartDate   string   // short date, e.g. "Dec 7" or "7 de dez."
	Address     []string // address lines, most specific first
}

// Source is implemented by each upstream strategy (search API, rendered
// page). A page with zero records means the upstream is exhausted.
type Source interface {
	Name() string
	// Category is the tag stored on every event coming from this source.
	Category() string
	FetchPage(ctx context.Context, offset int) ([]RawRecord, error)
}

// NewSourceFromConfig builds the strategy named by cfg.Kind.
func NewSourceFromConfig(cfg utils.UpstreamConfig) (Source, error) {
	switch cfg.Kind {
	case "", "serpapi":
		return NewSerpAPISource(cfg), nil
	case "page":
		return NewPageSource(cfg), nil
	default:
		return nil, fmt.Errorf("unknown upstream kind: %s", cfg.Kind)
	}
}
