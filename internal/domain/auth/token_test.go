package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	at := NewAuthToken("unit-test-secret")

	token, err := at.GenerateToken(42, "alice")
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	userID, username, err := at.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if userID != 42 || username != "alice" {
		t.Fatalf("unexpected identity: %d %q", userID, username)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewAuthToken("secret-a").GenerateToken(1, "alice")
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if _, _, err := NewAuthToken("secret-b").VerifyToken(token); err == nil {
		t.Fatal("expected verification failure under a different secret")
	}
}

func TestTokenExpired(t *testing.T) {
	at := NewAuthToken("unit-test-secret")
	at.ttl = -time.Minute // WithTTL refuses non-positive values
	token, err := at.GenerateToken(1, "alice")
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if _, _, err := at.VerifyToken(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestTokenGarbage(t *testing.T) {
	at := NewAuthToken("unit-test-secret")
	if _, _, err := at.VerifyToken("not.a.jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestTokenEmptySecret(t *testing.T) {
	at := NewAuthToken("")
	if _, err := at.GenerateToken(1, "alice"); err == nil {
		t.Fatal("expected error with empty secret")
	}
}
