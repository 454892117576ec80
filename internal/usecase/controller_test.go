package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ExecOrdersMonitor/internal/domain"
)

type fakeStore struct {
	processed map[domain.Fingerprint]bool
	marks     []domain.Fingerprint
	announced map[domain.Fingerprint]string
	lastRun   *time.Time
	statsErr  error
	markErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		processed: map[domain.Fingerprint]bool{},
		announced: map[domain.Fingerprint]string{},
	}
}

func (f *fakeStore) Processed(_ context.Context, fps []domain.Fingerprint) (map[domain.Fingerprint]bool, error) {
	result := map[domain.Fingerprint]bool{}
	for _, fp := range fps {
		if f.processed[fp] {
			result[fp] = true
		}
	}
	return result, nil
}

func (f *fakeStore) MarkProcessed(_ context.Context, fp domain.Fingerprint) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.processed[fp] = true
	f.marks = append(f.marks, fp)
	return nil
}

func (f *fakeStore) Announced(_ context.Context, fp domain.Fingerprint) (string, bool, error) {
	uri, ok := f.announced[fp]
	return uri, ok, nil
}

func (f *fakeStore) MarkAnnounced(_ context.Context, fp domain.Fingerprint, ref string) error {
	f.announced[fp] = ref
	return nil
}

func (f *fakeStore) SetLastRunAt(_ context.Context, at time.Time) error {
	f.lastRun = &at
	return nil
}

func (f *fakeStore) Stats(_ context.Context) (domain.StateStats, error) {
	if f.statsErr != nil {
		return domain.StateStats{}, f.statsErr
	}
	return domain.StateStats{
		Processed: len(f.processed),
		Announced: len(f.announced),
		LastRunAt: f.lastRun,
	}, nil
}

type fakeSource struct {
	orders []domain.Order
	err    error
	calls  int
}

func (f *fakeSource) FetchSnapshot(_ context.Context, _ bool) ([]domain.Order, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type fakeBuilder struct {
	failFor string
	calls   int
}

func (f *fakeBuilder) Render(_ context.Context, order domain.Order) (domain.Artifact, error) {
	f.calls++
	if f.failFor != "" && order.ID == f.failFor {
		return domain.Artifact{}, errors.New("render broke")
	}
	return domain.Artifact{
		Content:     []byte("%PDF-1.4 " + order.ID),
		ContentType: "application/pdf",
		Meta:        domain.Metadata{OrderID: order.ID, Title: order.Title},
	}, nil
}

func eo(id string) domain.Order {
	return domain.Order{
		ID:    id,
		Title: "Executive Order " + id,
		Type:  domain.TypeExecutiveOrder,
		URL:   "https://www.whitehouse.gov/presidential-actions/" + id + "/",
	}
}

func newTestController(src *fakeSource, store *fakeStore, builder *fakeBuilder, primary *stubPrimary) *Controller {
	publisher := NewPublisher(PublisherDeps{Primary: primary, Logger: testLogger()})
	return NewController(ControllerDeps{
		Source:    src,
		Store:     store,
		Builder:   builder,
		Publisher: publisher,
		Logger:    testLogger(),
	})
}

func TestRunProcessesDeduplicatedSnapshot(t *testing.T) {
	t.Parallel()

	// Two records share id "1"; only one publish per identity.
	src := &fakeSource{orders: []domain.Order{eo("1"), eo("2"), eo("1")}}
	store := newFakeStore()
	primary := &stubPrimary{}

	ctl := newTestController(src, store, &fakeBuilder{}, primary)
	summary, err := ctl.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Candidates != 2 || summary.Done != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if primary.calls != 2 {
		t.Fatalf("expected 2 uploads, got %d", primary.calls)
	}
	for _, id := range []string{"1", "2"} {
		if !store.processed[domain.NewFingerprint(domain.TypeExecutiveOrder, id)] {
			t.Fatalf("id %s not marked processed", id)
		}
	}
	if len(store.processed) != 2 {
		t.Fatalf("processed set = %v", store.processed)
	}
}

func TestRunIdempotentOnWarmState(t *testing.T) {
	t.Parallel()

	src := &fakeSource{orders: []domain.Order{eo("1"), eo("2")}}
	store := newFakeStore()
	primary := &stubPrimary{}
	ctl := newTestController(src, store, &fakeBuilder{}, primary)

	if _, err := ctl.Run(context.Background(), false); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := primary.calls

	summary, err := ctl.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Candidates != 0 {
		t.Fatalf("second run found %d candidates, want 0", summary.Candidates)
	}
	if primary.calls != first {
		t.Fatalf("second run published again: %d -> %d uploads", first, primary.calls)
	}
}

func TestRunAlreadyProcessedSnapshot(t *testing.T) {
	t.Parallel()

	src := &fakeSource{orders: []domain.Order{eo("1")}}
	store := newFakeStore()
	store.processed[domain.NewFingerprint(domain.TypeExecutiveOrder, "1")] = true
	primary := &stubPrimary{}

	ctl := newTestController(src, store, &fakeBuilder{}, primary)
	summary, err := ctl.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Candidates != 0 || primary.calls != 0 {
		t.Fatalf("candidates=%d uploads=%d, want 0/0", summary.Candidates, primary.calls)
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	t.Parallel()

	src := &fakeSource{orders: []domain.Order{eo("1"), eo("2"), eo("3")}}
	store := newFakeStore()
	primary := &stubPrimary{failFor: "2"}

	ctl := newTestController(src, store, &fakeBuilder{}, primary)
	summary, err := ctl.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Done != 2 || summary.Failed != 1 {
		t.Fatalf("done=%d failed=%d, want 2/1", summary.Done, summary.Failed)
	}
	if store.processed[domain.NewFingerprint(domain.TypeExecutiveOrder, "2")] {
		t.Fatal("failed item must not be marked processed")
	}
	for _, id := range []string{"1", "3"} {
		if !store.processed[domain.NewFingerprint(domain.TypeExecutiveOrder, id)] {
			t.Fatalf("id %s should have completed despite the sibling failure", id)
		}
	}
}

func TestRunIsolatesRenderFailures(t *testing.T) {
	t.Parallel()

	src := &fakeSource{orders: []domain.Order{eo("1"), eo("2")}}
	store := newFakeStore()
	primary := &stubPrimary{}

	ctl := newTestController(src, store, &fakeBuilder{failFor: "1"}, primary)
	summary, err := ctl.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Done != 1 || summary.Failed != 1 {
		t.Fatalf("done=%d failed=%d, want 1/1", summary.Done, summary.Failed)
	}
	if primary.calls != 1 {
		t.Fatalf("uploads = %d, want 1", primary.calls)
	}
	if summary.Items[0].RenderErr == nil {
		t.Fatal("render error missing from the item report")
	}
}

func TestRunResumesAfterInterruption(t *testing.T) {
	t.Parallel()

	// Items 1..2 were marked done before the previous process died.
	src := &fakeSource{orders: []domain.Order{eo("1"), eo("2"), eo("3"), eo("4")}}
	store := newFakeStore()
	store.processed[domain.NewFingerprint(domain.TypeExecutiveOrder, "1")] = true
	store.processed[domain.NewFingerprint(domain.TypeExecutiveOrder, "2")] = true
	primary := &stubPrimary{}

	ctl := newTestController(src, store, &fakeBuilder{}, primary)
	summary, err := ctl.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Candidates != 2 || primary.calls != 2 {
		t.Fatalf("candidates=%d uploads=%d, want 2/2", summary.Candidates, primary.calls)
	}
	wantMarks := []domain.Fingerprint{
		domain.NewFingerprint(domain.TypeExecutiveOrder, "3"),
		domain.NewFingerprint(domain.TypeExecutiveOrder, "4"),
	}
	for i, want := range wantMarks {
		if store.marks[i] != want {
			t.Fatalf("mark %d = %s, want %s", i, store.marks[i], want)
		}
	}
}

func TestRunIntervalGate(t *testing.T) {
	t.Parallel()

	src := &fakeSource{orders: []domain.Order{eo("1")}}
	store := newFakeStore()
	recent := time.Now().Add(-time.Hour)
	store.lastRun = &recent

	publisher := NewPublisher(PublisherDeps{Primary: &stubPrimary{}, Logger: testLogger()})
	ctl := NewController(ControllerDeps{
		Source:      src,
		Store:       store,
		Builder:     &fakeBuilder{},
		Publisher:   publisher,
		MinInterval: 24 * time.Hour,
		Logger:      testLogger(),
	})

	summary, err := ctl.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !summary.SkippedRun {
		t.Fatal("expected the interval gate to skip the run")
	}
	if src.calls != 0 {
		t.Fatal("a skipped run must not hit the source")
	}

	// --force bypasses the gate.
	summary, err = ctl.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if summary.SkippedRun || summary.Done != 1 {
		t.Fatalf("forced run summary = %+v", summary)
	}
}

func TestRunFatalPreconditions(t *testing.T) {
	t.Parallel()

	t.Run("state unavailable", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.statsErr = errors.New("disk gone")
		ctl := newTestController(&fakeSource{}, store, &fakeBuilder{}, &stubPrimary{})

		if _, err := ctl.Run(context.Background(), false); err == nil {
			t.Fatal("unreadable state must abort the run")
		}
	})

	t.Run("source unavailable", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{err: errors.New("listing 503")}
		primary := &stubPrimary{}
		ctl := newTestController(src, newFakeStore(), &fakeBuilder{}, primary)

		if _, err := ctl.Run(context.Background(), false); err == nil {
			t.Fatal("snapshot failure must abort the run")
		}
		if primary.calls != 0 {
			t.Fatal("no item work may happen after a fatal precondition")
		}
	})

	t.Run("mark write fails", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{orders: []domain.Order{eo("1"), eo("2")}}
		store := newFakeStore()
		store.markErr = errors.New("disk full")
		primary := &stubPrimary{}
		ctl := newTestController(src, store, &fakeBuilder{}, primary)

		if _, err := ctl.Run(context.Background(), false); err == nil {
			t.Fatal("a lost mark-processed write must abort the run")
		}
		if primary.calls != 1 {
			t.Fatalf("uploads = %d, the run must stop at the first lost write", primary.calls)
		}
	})
}
