package guard

import (
	"context"
	"testing"
	"time"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard/store"
)

func newTestTracker(clock *fakeClock) *FailureTracker {
	return NewFailureTracker(store.NewMemory(), TrackerConfig{
		Window:      15 * time.Minute,
		MaxAttempts: 5,
		Now:         clock.Now,
	})
}

func TestTrackerLockoutThreshold(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := newTestTracker(clock)

	for i := 0; i < 4; i++ {
		if err := tr.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
		locked, err := tr.IsLockedOut(ctx, "alice")
		if err != nil {
			t.Fatalf("IsLockedOut error: %v", err)
		}
		if locked {
			t.Fatalf("locked out after only %d failures", i+1)
		}
	}

	if err := tr.RecordFailure(ctx, "alice"); err != nil {
		t.Fatalf("RecordFailure error: %v", err)
	}
	locked, err := tr.IsLockedOut(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLockedOut error: %v", err)
	}
	if !locked {
		t.Fatal("expected lockout at the attempt limit")
	}

	// Other identifiers are unaffected.
	locked, err = tr.IsLockedOut(ctx, "bob")
	if err != nil {
		t.Fatalf("IsLockedOut error: %v", err)
	}
	if locked {
		t.Fatal("unrelated identifier locked out")
	}
}

func TestTrackerLockoutExpires(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := newTestTracker(clock)

	for i := 0; i < 5; i++ {
		if err := tr.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}

	remaining, err := tr.RemainingLockout(ctx, "alice")
	if err != nil {
		t.Fatalf("RemainingLockout error: %v", err)
	}
	if remaining != 15*time.Minute {
		t.Fatalf("expected full window remaining, got %v", remaining)
	}

	clock.Advance(10 * time.Minute)
	remaining, err = tr.RemainingLockout(ctx, "alice")
	if err != nil {
		t.Fatalf("RemainingLockout error: %v", err)
	}
	if remaining != 5*time.Minute {
		t.Fatalf("expected 5m remaining, got %v", remaining)
	}

	// At exactly the window boundary a failure no longer counts, so the
	// lockout lifts the instant the countdown reaches zero.
	clock.Advance(5 * time.Minute)
	locked, err := tr.IsLockedOut(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLockedOut error: %v", err)
	}
	if locked {
		t.Fatal("lockout should have expired with the window")
	}
	remaining, err = tr.RemainingLockout(ctx, "alice")
	if err != nil {
		t.Fatalf("RemainingLockout error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected zero remaining after expiry, got %v", remaining)
	}
}

func TestTrackerSlidingWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := newTestTracker(clock)

	// Three old failures, then two fresh ones 14 minutes later: all five
	// are still inside the window, so the fifth locks.
	for i := 0; i < 3; i++ {
		if err := tr.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}
	clock.Advance(14 * time.Minute)
	for i := 0; i < 2; i++ {
		if err := tr.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}
	locked, err := tr.IsLockedOut(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLockedOut error: %v", err)
	}
	if !locked {
		t.Fatal("expected lockout with five failures in the window")
	}

	// Two minutes later the first three have aged out; only two count.
	clock.Advance(2 * time.Minute)
	locked, err = tr.IsLockedOut(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLockedOut error: %v", err)
	}
	if locked {
		t.Fatal("expected lockout to lift once old failures aged out")
	}
}

func TestTrackerClearFailures(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := newTestTracker(clock)

	for i := 0; i < 5; i++ {
		if err := tr.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}
	if err := tr.ClearFailures(ctx, "alice"); err != nil {
		t.Fatalf("ClearFailures error: %v", err)
	}

	locked, err := tr.IsLockedOut(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLockedOut error: %v", err)
	}
	if locked {
		t.Fatal("expected clean slate after ClearFailures")
	}

	// Clearing an unknown identifier is a no-op, not an error.
	if err := tr.ClearFailures(ctx, "nobody"); err != nil {
		t.Fatalf("ClearFailures on empty history: %v", err)
	}
}

func TestTrackerIndependentInstances(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	trA := newTestTracker(clock)
	trB := newTestTracker(clock)

	for i := 0; i < 5; i++ {
		if err := trA.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}

	locked, err := trB.IsLockedOut(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLockedOut error: %v", err)
	}
	if locked {
		t.Fatal("trackers with separate stores must not share state")
	}
}
