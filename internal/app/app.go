package app

import (
	"context"
	"fmt"
	"log/slog"

	"ExecOrdersMonitor/internal/config"
	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/infrastructure/archive"
	"ExecOrdersMonitor/internal/infrastructure/bluesky"
	"ExecOrdersMonitor/internal/infrastructure/documentcloud"
	"ExecOrdersMonitor/internal/infrastructure/feed"
	"ExecOrdersMonitor/internal/infrastructure/ipfs"
	"ExecOrdersMonitor/internal/infrastructure/pdf"
	"ExecOrdersMonitor/internal/infrastructure/scraper"
	"ExecOrdersMonitor/internal/infrastructure/state"
	"ExecOrdersMonitor/internal/logging"
	"ExecOrdersMonitor/internal/ports"
	"ExecOrdersMonitor/internal/source"
	"ExecOrdersMonitor/internal/usecase"
)

// Application wires configuration to the run controller and owns the state
// store lifecycle.
type Application struct {
	cfg        config.Config
	store      *state.Store
	controller *usecase.Controller
	logger     *slog.Logger
}

// New builds a runnable application instance. Optional stages whose
// configuration is disabled or incomplete get a nil sink, which the
// publisher reports as skipped-disabled.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	registry := source.NewRegistry()
	registry.Register(scraper.New(nil, cfg.Source.UserAgent, baseLogger.With("component", "scraper")))
	registry.Register(feed.NewReader(nil, cfg.Source.UserAgent))

	src := source.NewAdapter(registry, source.AdapterConfig{
		Strategy:   cfg.Source.Strategy,
		ListingURL: cfg.Source.ListingURL,
		FeedURL:    cfg.Source.FeedURL,
	}, baseLogger.With("component", "source"))

	dc := documentcloud.NewClient(cfg.DocumentCloud)

	var archiveSink ports.ArchiveSink
	if cfg.Archive.Enabled {
		archiveSink = archive.NewTrigger(dc, cfg.Archive.Addon)
	}

	var decentralizedSink ports.DecentralizedSink
	if cfg.Decentralized.Enabled {
		decentralizedSink = ipfs.NewPusher(dc, cfg.Decentralized.Addon)
	}

	var announceSink ports.AnnounceSink
	if cfg.Announce.Enabled() {
		announceSink = bluesky.NewAnnouncer(
			bluesky.NewClient(cfg.Announce), store, cfg.Announce,
			baseLogger.With("component", "bluesky"))
	}

	publisher := usecase.NewPublisher(usecase.PublisherDeps{
		Primary:         dc,
		Archive:         archiveSink,
		Decentralized:   decentralizedSink,
		Announce:        announceSink,
		ArchiveRequired: cfg.Archive.Required,
		Logger:          baseLogger.With("component", "publisher"),
	})

	controller := usecase.NewController(usecase.ControllerDeps{
		Source:               src,
		Store:                store,
		Builder:              pdf.NewBuilder(),
		Publisher:            publisher,
		MinInterval:          cfg.Schedule.Interval(),
		IncludeProclamations: cfg.Source.IncludeProclamations,
		Logger:               baseLogger.With("component", "controller"),
	})

	return &Application{
		cfg:        cfg,
		store:      store,
		controller: controller,
		logger:     baseLogger,
	}, nil
}

// Run performs a single scheduled execution.
func (a *Application) Run(ctx context.Context, force bool) (domain.RunSummary, error) {
	return a.controller.Run(ctx, force)
}

// Stats reads the persisted ledger totals.
func (a *Application) Stats(ctx context.Context) (domain.StateStats, error) {
	return a.store.Stats(ctx)
}

// Close releases the state store.
func (a *Application) Close() error {
	return a.store.Close()
}
