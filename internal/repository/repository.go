// Package repository defines the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite);
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/tap-to-earn/internal/model"
)

// UserRepository reads and writes player records keyed by Telegram ID.
type UserRepository interface {
	// GetByTelegramID returns the user or apperror.ErrNotFound.
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)

	// Upsert creates the user on first sight (points=0, last_tap_at=0) or
	// refreshes the denormalized profile fields and last_active_at on an
	// existing row. Points, last_tap_at and created_at are never touched by
	// Upsert. On return the struct is populated with the stored counters.
	Upsert(ctx context.Context, user *model.User) error

	// TopByPoints returns up to limit users ordered by points descending.
	TopByPoints(ctx context.Context, limit int) ([]model.User, error)
}

// TapRepository applies accepted taps.
type TapRepository interface {
	// ApplyTap atomically credits points, advances last_tap_at/last_active_at
	// to now and appends the audit row, all in one transaction. Returns the
	// new point total, or apperror.ErrNotFound if the user row is missing.
	//
	// ApplyTap does NOT check the rate limit — that is the service's job,
	// under its per-user lock.
	ApplyTap(ctx context.Context, telegramID, now, points int64) (int64, error)
}
