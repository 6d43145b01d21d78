// Package service contains the business logic layer: the tap ledger and the
// authentication flow. Handlers parse HTTP and delegate here; repositories
// do the SQL. Services know about neither.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/tap-to-earn/internal/apperror"
	"github.com/sakif/tap-to-earn/internal/model"
	"github.com/sakif/tap-to-earn/internal/repository"
	"github.com/sakif/tap-to-earn/internal/telegram"
)

const (
	// MinTapInterval is the minimum wall-clock gap between two accepted taps
	// from the same user. A tap arriving earlier is rejected and credits
	// nothing.
	MinTapInterval = 200 * time.Millisecond

	// PointsPerTap is the credit for one accepted tap.
	PointsPerTap = 1

	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// TapService applies the rate-limited point-increment state transition.
type TapService struct {
	users  repository.UserRepository
	taps   repository.TapRepository
	locks  *userLocks
	logger *slog.Logger
}

// NewTapService creates a TapService. users and taps are usually the same
// *sqlite.DB; tests pass fakes.
func NewTapService(users repository.UserRepository, taps repository.TapRepository, logger *slog.Logger) *TapService {
	return &TapService{
		users:  users,
		taps:   taps,
		locks:  newUserLocks(),
		logger: logger,
	}
}

// RecordTap processes one tap for an authenticated user and returns the new
// point total.
//
// The sequence is the one the ledger invariant demands:
//
//  1. Upsert the user — creates the row on first contact, otherwise
//     refreshes the profile fields. This happens whether or not the tap is
//     accepted, and outside the per-user lock (profile data carries no
//     invariant; last-writer-wins is fine).
//  2. Under the user's lock: re-read last_tap_at, reject with RateLimited if
//     the interval hasn't elapsed, otherwise credit the tap atomically.
//
// A rejected tap mutates nothing beyond the profile refresh, so clients can
// retry freely.
func (s *TapService) RecordTap(ctx context.Context, identity telegram.Identity, platform string, now time.Time) (int64, error) {
	nowMS := now.UnixMilli()

	user := &model.User{
		TelegramID:   identity.ID,
		Username:     identity.Username,
		FirstName:    identity.FirstName,
		LastName:     identity.LastName,
		Platform:     platform,
		LastActiveAt: nowMS,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return 0, fmt.Errorf("recording tap for user %d: %w", identity.ID, err)
	}

	lock := s.locks.forUser(identity.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: the upsert result above may be stale by now if
	// another tap for this user slipped in between.
	current, err := s.users.GetByTelegramID(ctx, identity.ID)
	if err != nil {
		return 0, fmt.Errorf("recording tap for user %d: %w", identity.ID, err)
	}

	elapsed := time.Duration(nowMS-current.LastTapAt) * time.Millisecond
	if elapsed < MinTapInterval {
		s.logger.Debug("tap rate-limited",
			slog.Int64("telegramID", identity.ID),
			slog.Duration("elapsed", elapsed),
		)
		return 0, apperror.RateLimited(MinTapInterval - elapsed)
	}

	points, err := s.taps.ApplyTap(ctx, identity.ID, nowMS, PointsPerTap)
	if err != nil {
		s.logger.Error("failed to credit tap",
			slog.Int64("telegramID", identity.ID),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("crediting tap for user %d: %w", identity.ID, err)
	}

	s.logger.Info("tap accepted",
		slog.Int64("telegramID", identity.ID),
		slog.Int64("points", points),
	)

	return points, nil
}

// Balance returns a user's point total. Unknown users are not an error —
// they simply haven't earned anything yet, so the balance is 0.
func (s *TapService) Balance(ctx context.Context, telegramID int64) (int64, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading balance for user %d: %w", telegramID, err)
	}
	return user.Points, nil
}

// Leaderboard returns the top users by points. limit is clamped to
// [1, MaxLeaderboardLimit]; 0 or negative means the default.
func (s *TapService) Leaderboard(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	users, err := s.users.TopByPoints(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing leaderboard: %w", err)
	}
	return users, nil
}
