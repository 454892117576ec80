package source

import (
	"context"
	"fmt"
	"log/slog"

	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/ports"
)

// AdapterConfig selects the strategy and the endpoints it scans.
type AdapterConfig struct {
	Strategy   string
	ListingURL string
	FeedURL    string
}

// Adapter resolves the configured strategy and exposes it as ports.Source.
type Adapter struct {
	registry *Registry
	cfg      AdapterConfig
	logger   *slog.Logger
}

var _ ports.Source = (*Adapter)(nil)

// NewAdapter wires the strategy registry with the configured endpoints.
func NewAdapter(registry *Registry, cfg AdapterConfig, logger *slog.Logger) *Adapter {
	return &Adapter{registry: registry, cfg: cfg, logger: logger}
}

// FetchSnapshot runs the configured strategy and returns its snapshot in
// source order.
func (a *Adapter) FetchSnapshot(ctx context.Context, includeProclamations bool) ([]domain.Order, error) {
	if a.registry == nil {
		return nil, fmt.Errorf("source registry is not configured")
	}

	strategy, err := a.registry.Resolve(a.cfg.Strategy)
	if err != nil {
		return nil, err
	}

	a.debug("fetch snapshot", "strategy", strategy.Name(), "include_proclamations", includeProclamations)

	orders, err := strategy.Scan(ctx, Request{
		ListingURL:           a.cfg.ListingURL,
		FeedURL:              a.cfg.FeedURL,
		IncludeProclamations: includeProclamations,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", strategy.Name(), err)
	}

	a.debug("snapshot fetched", "strategy", strategy.Name(), "count", len(orders))
	return orders, nil
}

func (a *Adapter) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
