package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestFingerprintNamespacing(t *testing.T) {
	t.Parallel()

	order := Order{ID: "presidential-actions-2025-sample", Type: TypeExecutiveOrder}
	proclamation := Order{ID: "presidential-actions-2025-sample", Type: TypeProclamation}

	if order.Fingerprint() == proclamation.Fingerprint() {
		t.Fatalf("same id in different categories must not collide: %s", order.Fingerprint())
	}

	fp := order.Fingerprint()
	if fp.Category() != string(TypeExecutiveOrder) {
		t.Fatalf("unexpected category: %s", fp.Category())
	}
	if fp.ItemID() != "presidential-actions-2025-sample" {
		t.Fatalf("unexpected item id: %s", fp.ItemID())
	}
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad request")
	permanent := NewStageError(StagePrimary, true, cause)
	retryable := NewStageError(StageArchive, false, cause)

	if !IsPermanent(permanent) {
		t.Fatal("expected permanent classification")
	}
	if IsPermanent(retryable) {
		t.Fatal("retryable error classified as permanent")
	}
	if IsPermanent(cause) {
		t.Fatal("plain error classified as permanent")
	}
	if !IsPermanent(fmt.Errorf("upload: %w", permanent)) {
		t.Fatal("wrapped permanent error lost its classification")
	}
	if !errors.Is(permanent, cause) {
		t.Fatal("stage error must unwrap to its cause")
	}
}

func TestPermanentStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, true},
		{401, true},
		{404, true},
		{408, false},
		{429, false},
		{500, false},
		{503, false},
	}

	for _, tc := range cases {
		if got := PermanentStatus(tc.code); got != tc.want {
			t.Errorf("PermanentStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
