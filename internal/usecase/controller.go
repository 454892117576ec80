package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/ports"
)

// ControllerDeps wires everything one scheduled execution needs.
type ControllerDeps struct {
	Source               ports.Source
	Store                ports.StateStore
	Builder              ports.ArtifactBuilder
	Publisher            *Publisher
	MinInterval          time.Duration
	IncludeProclamations bool
	Logger               *slog.Logger
	Now                  func() time.Time
}

// Controller drives a single run: interval gate, snapshot, diff, per-item
// publishing, and state bookkeeping.
type Controller struct {
	source               ports.Source
	store                ports.StateStore
	builder              ports.ArtifactBuilder
	publisher            *Publisher
	minInterval          time.Duration
	includeProclamations bool
	logger               *slog.Logger
	now                  func() time.Time
}

// NewController constructs the orchestration component.
func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		source:               deps.Source,
		store:                deps.Store,
		builder:              deps.Builder,
		publisher:            deps.Publisher,
		minInterval:          deps.MinInterval,
		includeProclamations: deps.IncludeProclamations,
		logger:               logger,
		now:                  now,
	}
}

// Run executes one scheduled check. The returned error is fatal for the
// process: state unavailable, snapshot unavailable, or a mark-processed
// write that did not land. Per-item publish failures are reported in the
// summary instead and retried on the next run.
func (c *Controller) Run(ctx context.Context, force bool) (domain.RunSummary, error) {
	started := c.now()
	summary := domain.RunSummary{StartedAt: started}

	stats, err := c.store.Stats(ctx)
	if err != nil {
		return summary, fmt.Errorf("read state: %w", err)
	}

	if !force && stats.LastRunAt != nil && started.Sub(*stats.LastRunAt) < c.minInterval {
		summary.SkippedRun = true
		summary.Totals = stats
		summary.Duration = c.now().Sub(started)
		c.logger.Info("run skipped, interval not elapsed",
			"last_run", stats.LastRunAt.Format(time.RFC3339),
			"interval", c.minInterval.String())
		return summary, nil
	}

	snapshot, err := c.source.FetchSnapshot(ctx, c.includeProclamations)
	if err != nil {
		return summary, fmt.Errorf("fetch snapshot: %w", err)
	}
	summary.Snapshot = len(snapshot)

	processed, err := c.store.Processed(ctx, Fingerprints(snapshot))
	if err != nil {
		return summary, fmt.Errorf("load processed: %w", err)
	}

	candidates := SelectCandidates(snapshot, processed)
	summary.Candidates = len(candidates)
	c.logger.Info("snapshot diffed", "snapshot", len(snapshot), "new", len(candidates))

	for _, order := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		report := domain.ItemReport{Order: order}

		artifact, err := c.builder.Render(ctx, order)
		if err != nil {
			report.RenderErr = fmt.Errorf("render artifact: %w", err)
			summary.Failed++
			summary.Items = append(summary.Items, report)
			c.logger.Error("render failed", "order", order.ID, "error", err)
			continue
		}

		results, done := c.publisher.Publish(ctx, order, artifact)
		report.Results = results
		report.Done = done

		if done {
			if err := c.store.MarkProcessed(ctx, order.Fingerprint()); err != nil {
				summary.Items = append(summary.Items, report)
				return summary, fmt.Errorf("mark processed %s: %w", order.Fingerprint(), err)
			}
			summary.Done++
		} else {
			summary.Failed++
		}
		summary.Items = append(summary.Items, report)
	}

	if err := c.store.SetLastRunAt(ctx, started); err != nil {
		return summary, fmt.Errorf("record run time: %w", err)
	}

	summary.Totals, err = c.store.Stats(ctx)
	if err != nil {
		return summary, fmt.Errorf("read state: %w", err)
	}
	summary.Duration = c.now().Sub(started)

	c.logger.Info("run complete",
		"snapshot", summary.Snapshot,
		"candidates", summary.Candidates,
		"done", summary.Done,
		"failed", summary.Failed,
		"total_processed", summary.Totals.Processed,
		"duration", summary.Duration.String())
	return summary, nil
}
