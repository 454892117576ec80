package usecase

import (
	"context"
	"log/slog"

	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/ports"
)

// PublisherDeps wires the stage sinks. A nil sink disables its stage.
type PublisherDeps struct {
	Primary         ports.PrimarySink
	Archive         ports.ArchiveSink
	Decentralized   ports.DecentralizedSink
	Announce        ports.AnnounceSink
	ArchiveRequired bool
	Logger          *slog.Logger
}

// Publisher fans one rendered item out to the publishing stages in a fixed
// order: primary, archive, decentralized, announce. Only the primary stage
// (and archive, when configured as required) decides whether the item
// counts as done; every other failure is reported and left for the next run
// or manual follow-up.
type Publisher struct {
	stages []stage
	logger *slog.Logger
}

// publishState accumulates per-item references the later stages consume.
type publishState struct {
	order    domain.Order
	artifact domain.Artifact
	doc      domain.DocumentRef
	archived string
}

type stage struct {
	name     domain.StageName
	enabled  bool
	required bool
	requires []domain.StageName
	run      func(ctx context.Context, st *publishState) (string, error)
}

// NewPublisher builds the stage list in execution order.
func NewPublisher(deps PublisherDeps) *Publisher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stages := []stage{
		{
			name:     domain.StagePrimary,
			enabled:  deps.Primary != nil,
			required: true,
			run: func(ctx context.Context, st *publishState) (string, error) {
				doc, err := deps.Primary.Upload(ctx, st.artifact)
				if err != nil {
					return "", err
				}
				st.doc = doc
				return doc.CanonicalURL, nil
			},
		},
		{
			name:     domain.StageArchive,
			enabled:  deps.Archive != nil,
			required: deps.ArchiveRequired,
			requires: []domain.StageName{domain.StagePrimary},
			run: func(ctx context.Context, st *publishState) (string, error) {
				item, err := deps.Archive.Archive(ctx, st.artifact.Meta, st.doc)
				if err != nil {
					return "", err
				}
				st.archived = item
				return item, nil
			},
		},
		{
			name:     domain.StageDecentralized,
			enabled:  deps.Decentralized != nil,
			requires: []domain.StageName{domain.StageArchive},
			run: func(ctx context.Context, st *publishState) (string, error) {
				return deps.Decentralized.Push(ctx, st.artifact.Meta, st.doc, st.archived)
			},
		},
		{
			name:     domain.StageAnnounce,
			enabled:  deps.Announce != nil,
			requires: []domain.StageName{domain.StagePrimary},
			run: func(ctx context.Context, st *publishState) (string, error) {
				return deps.Announce.Announce(ctx, st.order, st.doc.CanonicalURL)
			},
		},
	}

	return &Publisher{stages: stages, logger: logger}
}

// Publish runs every stage for one item and reports whether all required
// stages succeeded. A failed stage never aborts later stages whose
// preconditions still hold.
func (p *Publisher) Publish(ctx context.Context, order domain.Order, artifact domain.Artifact) ([]domain.StageResult, bool) {
	st := &publishState{order: order, artifact: artifact}
	succeeded := map[domain.StageName]bool{}
	results := make([]domain.StageResult, 0, len(p.stages))
	done := true

	for _, s := range p.stages {
		res := domain.StageResult{Stage: s.name}

		switch {
		case !s.enabled:
			res.Outcome = domain.OutcomeSkippedDisabled
		case !preconditionsMet(s.requires, succeeded):
			res.Outcome = domain.OutcomeSkippedPrecondition
		default:
			ref, err := s.run(ctx, st)
			res.Ref = ref
			if err == nil {
				res.Outcome = domain.OutcomeSucceeded
				succeeded[s.name] = true
			} else {
				res.Err = err
				res.Outcome = domain.OutcomeFailedRetryable
				// The decentralized push is irreversible and is never
				// retried automatically; its failures go to manual
				// follow-up.
				if domain.IsPermanent(err) || s.name == domain.StageDecentralized {
					res.Outcome = domain.OutcomeFailedPermanent
				}
			}
		}

		if s.required && res.Outcome != domain.OutcomeSucceeded {
			done = false
		}

		p.logStage(order, res)
		results = append(results, res)
	}

	return results, done
}

func preconditionsMet(requires []domain.StageName, succeeded map[domain.StageName]bool) bool {
	for _, name := range requires {
		if !succeeded[name] {
			return false
		}
	}
	return true
}

func (p *Publisher) logStage(order domain.Order, res domain.StageResult) {
	args := []any{"order", order.ID, "stage", string(res.Stage), "outcome", string(res.Outcome)}
	if res.Ref != "" {
		args = append(args, "ref", res.Ref)
	}

	switch res.Outcome {
	case domain.OutcomeFailedRetryable, domain.OutcomeFailedPermanent:
		args = append(args, "error", res.Err)
		if res.Stage == domain.StageDecentralized {
			args = append(args, "note", "manual follow-up required")
		}
		p.logger.Error("stage failed", args...)
	case domain.OutcomeSucceeded:
		p.logger.Info("stage succeeded", args...)
	default:
		p.logger.Debug("stage skipped", args...)
	}
}
