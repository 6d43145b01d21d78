package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/tap-to-earn/internal/apperror"
	"github.com/sakif/tap-to-earn/internal/auth"
)

const testBotToken = "123456:TEST-TOKEN"

// signedInitData builds launch data for the given user JSON, signed the way
// Telegram would sign it for testBotToken.
func signedInitData(t *testing.T, botToken, userJSON string) string {
	t.Helper()

	pairs := []string{
		"user=" + url.QueryEscape(userJSON),
		"auth_date=1700000000",
	}
	sorted := make([]string, len(pairs))
	copy(sorted, pairs)
	sort.Strings(sorted)

	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(strings.Join(sorted, "\n")))

	return strings.Join(pairs, "&") + "&hash=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestAuthService(t *testing.T, store *fakeStore, withTokens bool) *AuthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	var tokens *auth.TokenService
	if withTokens {
		var err error
		tokens, err = auth.NewTokenService("test-secret-at-least-16-chars!!")
		if err != nil {
			t.Fatalf("NewTokenService: %v", err)
		}
	}
	return NewAuthService(testBotToken, store, tokens, logger)
}

// =========================================================================
// IDENTIFY
// =========================================================================

func TestIdentify_ValidInitData(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore(), false)
	initData := signedInitData(t, testBotToken, `{"id":42,"username":"taptap","first_name":"Tap"}`)

	identity, err := svc.Identify(initData)
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if identity.ID != 42 || identity.Username != "taptap" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestIdentify_ErrorMapping(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore(), false)

	tests := []struct {
		name     string
		initData string
		want     error
	}{
		{"empty init_data", "", apperror.ErrValidation},
		{"malformed", "no-hash-here", apperror.ErrValidation},
		{"forged signature", "user=%7B%22id%22%3A42%7D&auth_date=1&hash=deadbeef", apperror.ErrForbidden},
		{
			"verified but no identity",
			signedInitData(t, testBotToken, `{"username":"ghost"}`),
			apperror.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Identify(tt.initData)
			if !errors.Is(err, tt.want) {
				t.Errorf("Identify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIdentify_MissingBotToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewAuthService("", newFakeStore(), nil, logger)

	initData := signedInitData(t, testBotToken, `{"id":42}`)
	_, err := svc.Identify(initData)
	if !errors.Is(err, apperror.ErrConfig) {
		t.Errorf("Identify() without bot token: error = %v, want ErrConfig", err)
	}
}

// TestIdentify_SignedWithWrongToken: a payload signed for some other bot must
// be rejected even though it is internally consistent.
func TestIdentify_SignedWithWrongToken(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore(), false)

	initData := signedInitData(t, "999999:OTHER-BOT", `{"id":42}`)
	_, err := svc.Identify(initData)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Identify() error = %v, want ErrForbidden", err)
	}
}

// =========================================================================
// LOGIN / PROFILE
// =========================================================================

func TestLogin(t *testing.T) {
	store := newFakeStore()
	svc := newTestAuthService(t, store, true)
	now := time.UnixMilli(1_700_000_000_000)

	initData := signedInitData(t, testBotToken, `{"id":42,"username":"taptap","first_name":"Tap"}`)
	result, err := svc.Login(context.Background(), initData, "android", now)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if result.User.TelegramID != 42 || result.User.Platform != "android" {
		t.Errorf("user = %+v", result.User)
	}
	if store.users[42] == nil {
		t.Error("Login() did not upsert the user")
	}
	if result.Token == "" {
		t.Fatal("Login() returned empty token")
	}

	// The token round-trips back to the same Telegram ID.
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	telegramID, err := tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate(token): %v", err)
	}
	if telegramID != 42 {
		t.Errorf("token subject = %d, want 42", telegramID)
	}
}

func TestLogin_TokensNotConfigured(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore(), false)

	initData := signedInitData(t, testBotToken, `{"id":42}`)
	_, err := svc.Login(context.Background(), initData, "", time.Now())
	if !errors.Is(err, apperror.ErrConfig) {
		t.Errorf("Login() without token service: error = %v, want ErrConfig", err)
	}
}

func TestLogin_BadSignatureDoesNotUpsert(t *testing.T) {
	store := newFakeStore()
	svc := newTestAuthService(t, store, true)

	_, err := svc.Login(context.Background(),
		"user=%7B%22id%22%3A42%7D&auth_date=1&hash=deadbeef", "", time.Now())
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Login() error = %v, want ErrForbidden", err)
	}
	if len(store.users) != 0 {
		t.Error("Login() upserted a user despite a forged signature")
	}
}

func TestProfile_NotFound(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore(), true)

	_, err := svc.Profile(context.Background(), 42)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Profile() error = %v, want ErrNotFound", err)
	}
}
