package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard/store"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:authtest-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tracker := guard.NewFailureTracker(store.NewMemory(), guard.TrackerConfig{
		Window:      15 * time.Minute,
		MaxAttempts: 3,
	})

	svc, err := NewService(Options{
		DB:      db,
		Tracker: tracker,
		Secret:  "unit-test-secret",
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func TestServiceRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	user, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2!")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.Password == "hunter2!" {
		t.Fatal("password stored in the clear")
	}

	token, got, err := svc.Login(ctx, "alice", "hunter2!")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %+v", got)
	}

	userID, username, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if userID != user.ID || username != "alice" {
		t.Fatalf("unexpected token identity: %d %q", userID, username)
	}
}

func TestServiceDuplicateRegister(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	_, err := svc.Register(ctx, "alice", "other@example.com", "pw")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestServiceLoginLockout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.Register(ctx, "alice", "", "correct-password"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(ctx, "alice", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Even the correct password is rejected while locked out.
	_, _, err := svc.Login(ctx, "alice", "correct-password")
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}

	remaining, err := svc.RemainingLockout(ctx, "alice")
	if err != nil {
		t.Fatalf("RemainingLockout error: %v", err)
	}
	if remaining <= 0 {
		t.Fatalf("expected positive lockout countdown, got %v", remaining)
	}
}

func TestServiceSuccessClearsFailures(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.Register(ctx, "alice", "", "pw"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Login(ctx, "alice", "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if _, _, err := svc.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// History is gone: two more bad attempts do not lock (limit is 3).
	for i := 0; i < 2; i++ {
		if _, _, err := svc.Login(ctx, "alice", "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if _, _, err := svc.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Login after clear error: %v", err)
	}
}

func TestServiceUnknownUserCountsFailures(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// Unknown identifiers are tracked too, so probing cannot distinguish
	// missing accounts from wrong passwords.
	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(ctx, "ghost", "guess")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	_, _, err := svc.Login(ctx, "ghost", "guess")
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}
}
