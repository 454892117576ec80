package ports

import (
	"context"
	"time"

	"ExecOrdersMonitor/internal/domain"
)

// Source produces the current upstream snapshot, newest first.
type Source interface {
	FetchSnapshot(ctx context.Context, includeProclamations bool) ([]domain.Order, error)
}

// StateStore persists the processed and announced ledgers plus run
// metadata. Writes must be durable before they return; any error means the
// state is unknown and the run must stop rather than guess.
type StateStore interface {
	Processed(ctx context.Context, fps []domain.Fingerprint) (map[domain.Fingerprint]bool, error)
	MarkProcessed(ctx context.Context, fp domain.Fingerprint) error
	AnnounceLedger
	SetLastRunAt(ctx context.Context, at time.Time) error
	Stats(ctx context.Context) (domain.StateStats, error)
}

// AnnounceLedger tracks which items already had a public announcement.
type AnnounceLedger interface {
	Announced(ctx context.Context, fp domain.Fingerprint) (string, bool, error)
	MarkAnnounced(ctx context.Context, fp domain.Fingerprint, ref string) error
}

// ArtifactBuilder renders an order into an uploadable document.
type ArtifactBuilder interface {
	Render(ctx context.Context, order domain.Order) (domain.Artifact, error)
}

// PrimarySink uploads the artifact to the primary document repository.
type PrimarySink interface {
	Upload(ctx context.Context, artifact domain.Artifact) (domain.DocumentRef, error)
}

// ArchiveSink queues an archival export of the uploaded document and
// returns the archive item name.
type ArchiveSink interface {
	Archive(ctx context.Context, meta domain.Metadata, doc domain.DocumentRef) (string, error)
}

// DecentralizedSink replicates the archived copy to decentralized storage.
// The push is irreversible, so callers must check its preconditions first.
type DecentralizedSink interface {
	Push(ctx context.Context, meta domain.Metadata, doc domain.DocumentRef, archiveItem string) (string, error)
}

// AnnounceSink publishes a public notice linking to the primary document.
type AnnounceSink interface {
	Announce(ctx context.Context, order domain.Order, primaryURL string) (string, error)
}
