package credentials

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/vault"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:credtest-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, vault.New("test-fingerprint"), nil), db
}

func TestCredentialRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	if err := svc.Store(ctx, 1, "openai", "sk-test-12345"); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	// Key material never reaches the row in the clear.
	var cred storage.Credential
	if err := db.First(&cred).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if cred.Blob == "sk-test-12345" {
		t.Fatal("key stored in the clear")
	}

	key, err := svc.Reveal(ctx, 1, "openai")
	if err != nil {
		t.Fatalf("Reveal error: %v", err)
	}
	if key != "sk-test-12345" {
		t.Fatalf("unexpected key: %q", key)
	}
}

func TestCredentialReplace(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Store(ctx, 1, "openai", "old-key"); err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if err := svc.Store(ctx, 1, "openai", "new-key"); err != nil {
		t.Fatalf("replace Store error: %v", err)
	}

	key, err := svc.Reveal(ctx, 1, "openai")
	if err != nil {
		t.Fatalf("Reveal error: %v", err)
	}
	if key != "new-key" {
		t.Fatalf("expected replacement key, got %q", key)
	}

	infos, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("replace must not duplicate rows, got %d", len(infos))
	}
}

func TestCredentialIsolationByUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Store(ctx, 1, "openai", "user1-key"); err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if _, err := svc.Reveal(ctx, 2, "openai"); err == nil {
		t.Fatal("expected other user's lookup to fail")
	}
}

func TestCredentialTamperedBlob(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	if err := svc.Store(ctx, 1, "openai", "sk-test"); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	// Corrupt the stored blob directly.
	err := db.Model(&storage.Credential{}).
		Where("user_id = ? AND provider = ?", 1, "openai").
		Update("blob", "AAAA"+"not-a-valid-blob").Error
	if err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	_, err = svc.Reveal(ctx, 1, "openai")
	if err == nil {
		t.Fatal("expected decryption failure for corrupted blob")
	}
	if !vault.IsDecryptionError(err) {
		t.Fatalf("expected decryption error kind, got %v", err)
	}
}

func TestCredentialListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, provider := range []string{"openai", "anthropic"} {
		if err := svc.Store(ctx, 1, provider, "key-"+provider); err != nil {
			t.Fatalf("Store(%s) error: %v", provider, err)
		}
	}

	infos, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 credentials, got %d", len(infos))
	}
	for _, info := range infos {
		if info.RotationDue {
			t.Fatalf("fresh key flagged for rotation: %+v", info)
		}
		if info.KeyCreatedAt.IsZero() {
			t.Fatalf("missing KeyCreatedAt: %+v", info)
		}
	}

	if err := svc.Delete(ctx, 1, "openai"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := svc.Delete(ctx, 1, "openai"); err == nil {
		t.Fatal("expected error deleting a missing credential")
	}
}
