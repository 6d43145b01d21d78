package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errNoToken = errors.New("auth: no bearer token")

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the values we store.
type contextKey string

const telegramIDKey contextKey = "telegramID"

// RequireAuth enforces a valid session token on protected routes.
//
// The Mini App sends the token in the Authorization header as a Bearer
// credential. We deliberately do not use cookies here: the WebApp runs inside
// Telegram's embedded browser, where third-party cookie rules are unreliable,
// and the frontend already holds the token it got from /api/auth.
//
// On success the Telegram user ID is stored in the request context; on a
// missing or invalid token the chain stops with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			telegramID, err := extractTelegramID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid session token required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), telegramIDKey, telegramID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TelegramIDFromContext retrieves the authenticated Telegram user ID set by
// RequireAuth. Returns (0, false) if the request carried no valid token.
func TelegramIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(telegramIDKey).(int64)
	return id, ok && id != 0
}

// extractTelegramID reads and validates the Bearer token.
func extractTelegramID(r *http.Request, tokens *TokenService) (int64, error) {
	header := r.Header.Get("Authorization")
	tokenStr, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenStr == "" {
		return 0, errNoToken
	}

	return tokens.Validate(tokenStr)
}
