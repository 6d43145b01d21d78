package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/tap-to-earn/internal/apperror"
	"github.com/sakif/tap-to-earn/internal/auth"
	"github.com/sakif/tap-to-earn/internal/model"
	"github.com/sakif/tap-to-earn/internal/repository"
	"github.com/sakif/tap-to-earn/internal/telegram"
)

// AuthService verifies Telegram launch data and runs the session flow.
//
// It owns the bot token (the shared secret the launch-data signature is
// derived from) and translates the verifier's errors into the application
// error taxonomy the handlers know how to map to HTTP.
type AuthService struct {
	botToken string
	users    repository.UserRepository
	tokens   *auth.TokenService // nil when JWT_SECRET is unset; Login then fails with Config
	logger   *slog.Logger
}

// NewAuthService creates an AuthService. botToken may be empty — requests
// depending on it will then fail with a config error, loudly, rather than
// letting unverified identities through.
func NewAuthService(botToken string, users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		botToken: botToken,
		users:    users,
		tokens:   tokens,
		logger:   logger,
	}
}

// Identify verifies the launch data and returns the authenticated identity.
//
// Error mapping: a missing bot token is a server problem (Config → 500),
// garbage input is the client's (Validation → 400), a canonicalization match
// failure means forgery or a wrong token (Forbidden → 403), and a verified
// payload without a user is again the client's (Validation → 400).
func (s *AuthService) Identify(initData string) (telegram.Identity, error) {
	if initData == "" {
		return telegram.Identity{}, apperror.ValidationFailed("init_data", "init_data is required")
	}
	if s.botToken == "" {
		s.logger.Error("tap authentication unavailable: bot token not configured")
		return telegram.Identity{}, apperror.Config("bot token not configured")
	}

	identity, err := telegram.Verify(initData, s.botToken)
	if err != nil {
		switch {
		case errors.Is(err, telegram.ErrInvalidSignature):
			return telegram.Identity{}, apperror.Forbidden("invalid init_data signature")
		case errors.Is(err, telegram.ErrMalformed):
			return telegram.Identity{}, apperror.ValidationFailed("init_data", "init_data is malformed")
		case errors.Is(err, telegram.ErrMissingIdentity):
			return telegram.Identity{}, apperror.ValidationFailed("init_data", "init_data carries no user identity")
		default:
			return telegram.Identity{}, fmt.Errorf("verifying init_data: %w", err)
		}
	}

	return identity, nil
}

// AuthResult bundles what the session flow hands back to the client.
type AuthResult struct {
	User  *model.User
	Token string
}

// Login authenticates launch data, upserts the user profile and issues a
// session token. This is the POST /api/auth flow.
func (s *AuthService) Login(ctx context.Context, initData, platform string, now time.Time) (*AuthResult, error) {
	if s.tokens == nil {
		s.logger.Error("session flow unavailable: JWT secret not configured")
		return nil, apperror.Config("session tokens not configured")
	}

	identity, err := s.Identify(initData)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		TelegramID:   identity.ID,
		Username:     identity.Username,
		FirstName:    identity.FirstName,
		LastName:     identity.LastName,
		Platform:     platform,
		LastActiveAt: now.UnixMilli(),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("upserting user %d on login: %w", identity.ID, err)
	}

	token, err := s.tokens.Generate(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session token for user %d: %w", identity.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.Int64("telegramID", identity.ID),
		slog.String("username", identity.Username),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// Profile returns the stored record for an already-authenticated user
// (GET /api/me). Unlike Balance, a missing row here is surfaced as NotFound:
// a valid session token implies the user was upserted at login.
func (s *AuthService) Profile(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return user, nil
}
