// Package auth issues and validates session tokens for the Mini App API.
//
// Launch data is verified once, on POST /api/auth. Re-verifying the HMAC on
// every request would work, but it forces the client to hold the raw initData
// for the whole session and makes every endpoint depend on the bot token. So
// we trade it for a short-lived JWT: verify the signed launch payload once,
// then hand back a token whose subject is the Telegram user ID.
//
// The token is symmetric HS256 — single server, one secret, no key
// distribution problem. Expiry is short (15 minutes); the Mini App re-sends
// its launch data to /api/auth when a request comes back 401.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "tap-to-earn"

// TokenLifetime is how long a session token stays valid.
const TokenLifetime = 15 * time.Minute

// TokenService signs and verifies session tokens. It holds the HMAC secret,
// which must be the same for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production,
// e.g. JWT_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a new session token for the given Telegram user ID.
// The ID goes in the "sub" claim as a decimal string.
func (s *TokenService) Generate(telegramID int64) (string, error) {
	return s.generate(telegramID, TokenLifetime)
}

// GenerateWithDuration signs a token with a custom lifetime. Used in tests
// to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(telegramID int64, d time.Duration) (string, error) {
	return s.generate(telegramID, d)
}

func (s *TokenService) generate(telegramID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(telegramID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token and returns the Telegram user
// ID it was issued for.
//
// Beyond the signature, the jwt library checks expiry, pins the issuer, and
// rejects any algorithm other than HS256 (jwt.WithValidMethods — otherwise a
// token signed with "none" could slip through).
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("auth: token expired")
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("auth: invalid token claims")
	}

	telegramID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || telegramID == 0 {
		return 0, fmt.Errorf("auth: token subject is not a Telegram ID")
	}

	return telegramID, nil
}
