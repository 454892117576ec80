package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"

	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/source"
)

// Reader builds snapshots from the presidential actions RSS feed. The feed
// already carries the full text, so no per-item page fetches are needed,
// which makes it the lighter alternative to the HTML scraper.
type Reader struct {
	client    *http.Client
	parser    *gofeed.Parser
	converter *md.Converter
	userAgent string
}

// NewReader wires an HTTP client; a nil client gets sane timeouts.
func NewReader(client *http.Client, userAgent string) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Reader{
		client:    client,
		parser:    gofeed.NewParser(),
		converter: md.NewConverter("", true, nil),
		userAgent: userAgent,
	}
}

// Name identifies the strategy inside the registry.
func (r *Reader) Name() string {
	return "feed"
}

// Scan downloads and parses the feed, keeping the wanted actions in feed
// order (newest first).
func (r *Reader) Scan(ctx context.Context, req source.Request) ([]domain.Order, error) {
	if req.FeedURL == "" {
		return nil, fmt.Errorf("feed url is not configured")
	}

	raw, err := r.fetch(ctx, req.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := r.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	orders := make([]domain.Order, 0, len(parsed.Items))
	seen := map[string]struct{}{}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		title := strings.TrimSpace(item.Title)
		if title == "" || !source.Wanted(title, req.IncludeProclamations) {
			continue
		}

		id := source.IdentityFromURL(item.Link, title)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		order := domain.Order{
			ID:       id,
			Number:   source.OrderNumber(title),
			Title:    title,
			Type:     source.TypeFromTitle(title),
			URL:      item.Link,
			BodyText: r.bodyText(item),
		}
		if item.PublishedParsed != nil {
			order.PublishedAt = item.PublishedParsed.UTC()
		}

		orders = append(orders, order)
	}

	return orders, nil
}

// bodyText prefers the full content:encoded payload over the description and
// converts either to Markdown.
func (r *Reader) bodyText(item *gofeed.Item) string {
	raw := item.Content
	if strings.TrimSpace(raw) == "" {
		raw = item.Description
	}
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	markdown, err := r.converter.ConvertString(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(markdown)
}

func (r *Reader) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", feedURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", feedURL, err)
	}
	return body, nil
}
