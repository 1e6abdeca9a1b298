package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&storage.FailedLogin{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st, err := NewSQLite(newTestSQLiteDB(t))
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(ctx) })

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := st.Append(ctx, "alice", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	stamps, err := st.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(stamps) != 4 {
		t.Fatalf("expected 4 failures, got %d", len(stamps))
	}

	if err := st.Prune(ctx, "alice", base.Add(2*time.Minute)); err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	stamps, err = st.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(stamps) != 1 {
		t.Fatalf("expected 1 failure after prune, got %d", len(stamps))
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

func TestSQLiteStoreRequiresHandle(t *testing.T) {
	if _, err := NewSQLite(nil); err == nil {
		t.Fatal("expected error for missing database handle")
	}
}
