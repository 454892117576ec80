package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ExecOrdersMonitor/internal/config"
	"ExecOrdersMonitor/internal/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()

	store, err := Open(context.Background(), config.StateConfig{Backend: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestProcessedLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))

	known, err := store.Processed(ctx, nil)
	if err != nil {
		t.Fatalf("query empty: %v", err)
	}
	if len(known) != 0 {
		t.Fatalf("expected empty map, got %v", known)
	}

	first := domain.NewFingerprint(domain.TypeExecutiveOrder, "eo-14200")
	second := domain.NewFingerprint(domain.TypeProclamation, "flag-day-2025")

	for _, fp := range []domain.Fingerprint{first, second} {
		if err := store.MarkProcessed(ctx, fp); err != nil {
			t.Fatalf("mark %s: %v", fp, err)
		}
	}
	// Marking again must be a no-op, not an error.
	if err := store.MarkProcessed(ctx, first); err != nil {
		t.Fatalf("re-mark %s: %v", first, err)
	}

	unknown := domain.NewFingerprint(domain.TypeExecutiveOrder, "eo-99999")
	known, err = store.Processed(ctx, []domain.Fingerprint{first, second, unknown})
	if err != nil {
		t.Fatalf("query processed: %v", err)
	}
	if !known[first] || !known[second] {
		t.Fatalf("expected %s and %s to be processed, got %v", first, second, known)
	}
	if known[unknown] {
		t.Fatalf("unexpected fingerprint %s reported as processed", unknown)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", stats.Processed)
	}
}

func TestAnnouncedLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))

	fp := domain.NewFingerprint(domain.TypeExecutiveOrder, "eo-14200")

	if _, ok, err := store.Announced(ctx, fp); err != nil || ok {
		t.Fatalf("expected no announcement, got ok=%v err=%v", ok, err)
	}

	if err := store.MarkAnnounced(ctx, fp, "at://did:plc:abc/app.bsky.feed.post/1"); err != nil {
		t.Fatalf("mark announced: %v", err)
	}
	// A repeat keeps the original URI.
	if err := store.MarkAnnounced(ctx, fp, "at://did:plc:abc/app.bsky.feed.post/2"); err != nil {
		t.Fatalf("re-mark announced: %v", err)
	}

	uri, ok, err := store.Announced(ctx, fp)
	if err != nil {
		t.Fatalf("query announced: %v", err)
	}
	if !ok || uri != "at://did:plc:abc/app.bsky.feed.post/1" {
		t.Fatalf("expected original post URI, got ok=%v uri=%q", ok, uri)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Announced != 1 {
		t.Fatalf("expected 1 announced, got %d", stats.Announced)
	}
}

func TestLastCheckRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.LastRunAt != nil {
		t.Fatalf("expected no last check on a fresh store, got %v", stats.LastRunAt)
	}

	first := time.Date(2025, 8, 20, 14, 30, 45, 0, time.UTC)
	if err := store.SetLastRunAt(ctx, first); err != nil {
		t.Fatalf("set last check: %v", err)
	}

	second := first.Add(24 * time.Hour)
	if err := store.SetLastRunAt(ctx, second); err != nil {
		t.Fatalf("overwrite last check: %v", err)
	}

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.LastRunAt == nil || !stats.LastRunAt.Equal(second) {
		t.Fatalf("expected last check %v, got %v", second, stats.LastRunAt)
	}
}

func TestReopenKeepsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	fp := domain.NewFingerprint(domain.TypeExecutiveOrder, "eo-14200")

	store, err := Open(ctx, config.StateConfig{Backend: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.MarkProcessed(ctx, fp); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened := openTestStore(t, path)
	known, err := reopened.Processed(ctx, []domain.Fingerprint{fp})
	if err != nil {
		t.Fatalf("query processed: %v", err)
	}
	if !known[fp] {
		t.Fatalf("expected %s to survive a reopen", fp)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), config.StateConfig{Backend: "redis"}); err == nil {
		t.Fatal("expected an error for an unsupported backend")
	}
}
