package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	t.Cleanup(func() { _ = st.Close(ctx) })

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := st.Append(ctx, "alice", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	if err := st.Append(ctx, "bob", base); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	stamps, err := st.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(stamps) != 3 {
		t.Fatalf("expected 3 failures for alice, got %d", len(stamps))
	}

	// Prune removes entries at or before the cutoff, never after it.
	if err := st.Prune(ctx, "alice", base.Add(time.Minute)); err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	stamps, err = st.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(stamps) != 1 {
		t.Fatalf("expected 1 failure after prune, got %d", len(stamps))
	}
	if !stamps[0].Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("pruned the wrong entry: %v", stamps[0])
	}

	// Identifiers are isolated.
	stamps, err = st.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(stamps) != 1 {
		t.Fatalf("bob should be untouched, got %d", len(stamps))
	}

	if err := st.Clear(ctx, "alice"); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	stamps, err = st.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(stamps) != 0 {
		t.Fatalf("expected empty history after Clear, got %d", len(stamps))
	}
}
