package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	token, err := svc.GenerateSession(Principal{ID: 7, Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("expected user id 7, got %d", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("unexpected email: %s", claims.Email)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	svc, err := NewTokenService("test-secret", WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	token, err := svc.Generate(Principal{ID: 1}, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	clock = issued.Add(2 * time.Minute)
	if _, err := svc.ParseAndValidate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseRejectsMalformedToken(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	for _, token := range []string{"", "not-a-jwt", "a.b"} {
		if _, err := svc.ParseAndValidate(token); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	mine, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	theirs, err := NewTokenService("other-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	token, err := theirs.GenerateSession(Principal{ID: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := mine.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateRejectsNonPositiveTTL(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	if _, err := svc.Generate(Principal{ID: 1}, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("hunter2boat")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyPassword(hash, "hunter2boat"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-password"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
