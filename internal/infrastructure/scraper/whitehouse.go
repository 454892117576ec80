package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/source"
)

// contentSelectors lists where the action text lives, newest page layout
// first. Readability takes over when none of them match.
var contentSelectors = []string{
	"div.entry-content",
	"div.presidential-action-content",
	"div.body-content",
	"main",
	"article",
}

// Scanner scrapes the presidential actions listing and the pages it links
// to. Detail fetches are rate limited to stay polite with the origin.
type Scanner struct {
	client    *http.Client
	limiter   *rate.Limiter
	converter *md.Converter
	userAgent string
	logger    *slog.Logger
	retries   int
	backoff   time.Duration
}

// New wires an HTTP client; a nil client gets sane timeouts.
func New(client *http.Client, userAgent string, logger *slog.Logger) *Scanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		converter: md.NewConverter("", true, nil),
		userAgent: userAgent,
		logger:    logger,
		retries:   3,
		backoff:   time.Second,
	}
}

// Name identifies the strategy inside the registry.
func (s *Scanner) Name() string {
	return "whitehouse"
}

// Scan fetches the listing page, keeps the wanted actions, and enriches each
// one with the full text from its own page. Any fetch failure aborts the
// snapshot: a partial snapshot would make missing items look processed.
func (s *Scanner) Scan(ctx context.Context, req source.Request) ([]domain.Order, error) {
	if req.ListingURL == "" {
		return nil, fmt.Errorf("listing url is not configured")
	}

	raw, err := s.fetch(ctx, req.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	orders, err := s.extractListing(raw, req.ListingURL, req.IncludeProclamations)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, published, err := s.fetchOrderBody(ctx, orders[i].URL)
		if err != nil {
			return nil, fmt.Errorf("fetch order %s: %w", orders[i].ID, err)
		}
		orders[i].BodyText = body
		if orders[i].PublishedAt.IsZero() {
			orders[i].PublishedAt = published
		}
	}

	s.logger.Debug("listing scraped", "orders", len(orders))
	return orders, nil
}

func (s *Scanner) extractListing(raw []byte, listingURL string, includeProclamations bool) ([]domain.Order, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %s: %w", listingURL, err)
	}

	items := doc.Find("ul.wp-block-post-template > li")
	if items.Length() == 0 {
		items = doc.Find("article")
	}

	orders := make([]domain.Order, 0)
	seen := map[string]struct{}{}

	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find("h2 a").First()
		if link.Length() == 0 {
			link = item.Find("a[href]").First()
		}

		title := strings.TrimSpace(link.Text())
		href, ok := link.Attr("href")
		if title == "" || !ok {
			return
		}
		if !source.Wanted(title, includeProclamations) {
			return
		}

		actionURL := resolveURL(base, href)
		id := source.IdentityFromURL(actionURL, title)
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		orders = append(orders, domain.Order{
			ID:          id,
			Number:      source.OrderNumber(title),
			Title:       title,
			Type:        source.TypeFromTitle(title),
			URL:         actionURL,
			PublishedAt: actionDate(item.Find("time").First()),
		})
	})

	return orders, nil
}

// fetchOrderBody pulls one action page and extracts its text as Markdown.
func (s *Scanner) fetchOrderBody(ctx context.Context, orderURL string) (string, time.Time, error) {
	raw, err := s.fetch(ctx, orderURL)
	if err != nil {
		return "", time.Time{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse order page: %w", err)
	}

	published := actionDate(doc.Find("time").First())

	var content string
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if html, err := goquery.OuterHtml(sel); err == nil && strings.TrimSpace(html) != "" {
			content = html
			break
		}
	}

	if content == "" {
		if article, err := readability.FromReader(bytes.NewReader(raw), nil); err == nil {
			content = article.Content
		}
	}
	if strings.TrimSpace(content) == "" {
		return collapsedText(doc), published, nil
	}

	markdown, err := s.converter.ConvertString(content)
	if err != nil || strings.TrimSpace(markdown) == "" {
		return collapsedText(doc), published, nil
	}
	return strings.TrimSpace(markdown), published, nil
}

// fetch downloads one page, retrying transient failures with an exponential
// backoff (1s, 2s, ...).
func (s *Scanner) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff << (attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request %s: %w", pageURL, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read %s: %w", pageURL, err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%s returned %s", pageURL, resp.Status)
			continue
		}

		return body, nil
	}

	return nil, lastErr
}

func resolveURL(base *url.URL, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}

// actionDate reads the publish date from a <time> element, preferring the
// machine-readable attribute over the display text.
func actionDate(sel *goquery.Selection) time.Time {
	if sel.Length() == 0 {
		return time.Time{}
	}
	if dt, ok := sel.Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(dt)); err == nil {
			return parsed.UTC()
		}
	}
	if parsed, err := time.Parse("January 2, 2006", strings.TrimSpace(sel.Text())); err == nil {
		return parsed.UTC()
	}
	return time.Time{}
}

func collapsedText(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Text()), " ")
}
