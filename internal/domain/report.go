package domain

import "time"

// StageName labels one publishing stage.
type StageName string

const (
	StagePrimary       StageName = "primary"
	StageArchive       StageName = "archive"
	StageDecentralized StageName = "decentralized"
	StageAnnounce      StageName = "announce"
)

// PublishOutcome classifies how a stage ended for one item.
type PublishOutcome string

const (
	OutcomeSucceeded           PublishOutcome = "succeeded"
	OutcomeFailedRetryable     PublishOutcome = "failed-retryable"
	OutcomeFailedPermanent     PublishOutcome = "failed-permanent"
	OutcomeSkippedDisabled     PublishOutcome = "skipped-disabled"
	OutcomeSkippedPrecondition PublishOutcome = "skipped-precondition"
)

// StageResult records the outcome of one stage for one item. Ref holds a
// stage-specific reference: document URL, archive item name, or post URI.
type StageResult struct {
	Stage   StageName
	Outcome PublishOutcome
	Ref     string
	Err     error
}

// ItemReport aggregates everything that happened to a single candidate.
// Done is true only when every required stage succeeded and the item was
// recorded as processed.
type ItemReport struct {
	Order     Order
	RenderErr error
	Results   []StageResult
	Done      bool
}

// RunSummary is the outcome of one scheduled execution.
type RunSummary struct {
	StartedAt  time.Time
	Duration   time.Duration
	SkippedRun bool
	Snapshot   int
	Candidates int
	Done       int
	Failed     int
	Items      []ItemReport
	Totals     StateStats
}

// StateStats mirrors the persisted ledgers for reports and the status command.
type StateStats struct {
	Processed int
	Announced int
	LastRunAt *time.Time
}
