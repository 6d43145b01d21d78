package auth

import (
	"strings"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService with a fixed, known secret so
// tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// GENERATE / VALIDATE TESTS
// =========================================================================

func TestGenerate_ReturnsJWTShapedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(42)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Error("Generate() returned empty token")
	}
	// header.payload.signature
	if parts := strings.Count(token, "."); parts != 2 {
		t.Errorf("Generate() token has %d dots, want 2", parts)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(7216342581)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	telegramID, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if telegramID != 7216342581 {
		t.Errorf("Validate() telegramID = %d, want 7216342581", telegramID)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService("a-completely-different-secret!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts.Generate(42)
	if _, err := other.Validate(token); err == nil {
		t.Error("Validate() accepted a token signed with a different secret")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration(42, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() accepted an expired token")
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.Validate(tok); err == nil {
			t.Errorf("Validate(%q) accepted garbage", tok)
		}
	}
}
