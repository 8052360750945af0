package auth

import (
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	claims := Claims{
		Sub:   "user-1",
		Email: "mia@example.com",
		UserMetadata: UserMetadata{
			FullName: "Mia Berger",
		},
		Iat: time.Now().Unix(),
		Exp: time.Now().Add(time.Hour).Unix(),
	}
	token, err := SignHS256(claims, "secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	parsed, err := ParseAndVerifyHS256(token, "secret")
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub {
		t.Fatalf("expected sub %q, got %q", claims.Sub, parsed.Sub)
	}
	if parsed.DisplayName() != "Mia Berger" {
		t.Fatalf("expected display name from full_name, got %q", parsed.DisplayName())
	}

	if _, err := ParseAndVerifyHS256(token, "other-secret"); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	claims := Claims{
		Sub: "user-1",
		Iat: time.Now().Add(-2 * time.Hour).Unix(),
		Exp: time.Now().Add(-time.Hour).Unix(),
	}
	token, err := SignHS256(claims, "secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestDisplayNameFallsBackToEmail(t *testing.T) {
	c := Claims{Sub: "u", Email: "kai@example.com"}
	if c.DisplayName() != "kai@example.com" {
		t.Fatalf("expected email fallback, got %q", c.DisplayName())
	}
}
