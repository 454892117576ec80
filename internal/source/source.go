package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"ExecOrdersMonitor/internal/domain"
)

// Request carries all parameters required to execute a scan.
type Request struct {
	ListingURL           string
	FeedURL              string
	IncludeProclamations bool
}

// Strategy captures a single snapshot implementation (HTML listing, RSS feed).
type Strategy interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Order, error)
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("source strategy %s is not registered", name)
}

var orderNumberExpr = regexp.MustCompile(`(?i)executive order\s+(\d+)`)

// OrderNumber extracts the executive order number from a headline, or ""
// when the headline carries none.
func OrderNumber(title string) string {
	if m := orderNumberExpr.FindStringSubmatch(title); len(m) == 2 {
		return m[1]
	}
	return ""
}

// TypeFromTitle classifies a presidential action by its headline.
func TypeFromTitle(title string) domain.OrderType {
	if strings.Contains(strings.ToLower(title), "proclamation") {
		return domain.TypeProclamation
	}
	return domain.TypeExecutiveOrder
}

// Wanted reports whether an action should enter the snapshot. Executive
// orders always qualify; everything else only when proclamations and other
// secondary actions are included.
func Wanted(title string, includeProclamations bool) bool {
	if includeProclamations {
		return true
	}
	return strings.Contains(strings.ToLower(title), "executive order")
}

// IdentityFromURL derives a stable per-item identifier from the action URL
// path, falling back to a slug of the title when the URL has none.
func IdentityFromURL(rawURL, title string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if trimmed := strings.Trim(parsed.Path, "/"); trimmed != "" {
			return strings.ReplaceAll(trimmed, "/", "-")
		}
	}
	return slugify(title, 100)
}

func slugify(value string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}
	return slug
}
