package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"eventhub/pkg/utils"
)

const pageCategory = "Busca Web"

// PageSource loads a search results page for a fixed query and extracts
// heading+link pairs. The page has no pagination: any offset past the first
// page reports ErrUpstreamExhausted.
type PageSource struct {
	client   *resty.Client
	pageURL  string
	query    string
	selector string
	limit    int
}

func NewPageSource(cfg utils.UpstreamConfig) *PageSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	selector := cfg.Selector
	if selector == "" {
		selector = "a h3"
	}
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = 5
	}

	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/html").
		SetRetryCount(cfg.Retries)
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &PageSource{
		client:   c,
		pageURL:  cfg.PageURL,
		query:    cfg.Query,
		selector: selector,
		limit:    limit,
	}
}

func (s *PageSource) Name() string     { return "page" }
func (s *PageSource) Category() string { return pageCategory }

func (s *PageSource) FetchPage(ctx context.Context, offset int) ([]RawRecord, error) {
	if offset > 0 {
		return nil, ErrUpstreamExhausted
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("q", s.query).
		Get(s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("page: request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("page: status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("page: parse html: %w", err)
	}

	base, _ := url.Parse(s.pageURL)
	description := fmt.Sprintf("Evento encontrado na busca por %q. Acesse o link para mais detalhes.", s.query)

	var records []RawRecord
	doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.Join(strings.Fields(sel.Text()), " ")
		if title == "" {
			return true
		}
		href, _ := sel.Closest("a").Attr("href")
		records = append(records, RawRecord{
			Title:       title,
			Description: description,
			Link:        resolveLink(base, href),
		})
		return len(records) < s.limit
	})
	return records, nil
}

// resolveLink makes href absolute and unwraps search redirect links of the
// form /url?q=<target>.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Path == "/url" {
		if target := u.Query().Get("q"); strings.HasPrefix(target, "http") {
			return target
		}
	}
	return u.String()
}
