package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/tap-to-earn/internal/apperror"
	"github.com/sakif/tap-to-earn/internal/model"
	"github.com/sakif/tap-to-earn/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// GetByTelegramID retrieves a user by their Telegram account ID.
// Returns apperror.ErrNotFound if no such user exists.
func (db *DB) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT telegram_id, username, first_name, last_name, platform,
		        points, last_tap_at, created_at, last_active_at
		 FROM users WHERE telegram_id = ?`,
		telegramID,
	).Scan(
		&u.TelegramID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Platform,
		&u.Points,
		&u.LastTapAt,
		&u.CreatedAt,
		&u.LastActiveAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", telegramID)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", telegramID, err)
	}

	return &u, nil
}

// Upsert inserts the user on first authentication or refreshes their profile.
//
// Telegram guarantees the account ID is stable and unique, so we can always
// upsert on telegram_id. The ON CONFLICT clause only touches the denormalized
// profile columns and last_active_at — points, last_tap_at and created_at
// belong to the tap path and must survive profile refreshes untouched.
//
// After the write we SELECT the row back so the caller sees the stored
// counters (e.g. the points an existing user already has).
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (telegram_id, username, first_name, last_name, platform,
		                    points, last_tap_at, created_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)
		 ON CONFLICT(telegram_id) DO UPDATE SET
		     username       = excluded.username,
		     first_name     = excluded.first_name,
		     last_name      = excluded.last_name,
		     platform       = excluded.platform,
		     last_active_at = excluded.last_active_at`,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Platform,
		user.LastActiveAt,
		user.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user %d: %w", user.TelegramID, err)
	}

	stored, err := db.GetByTelegramID(ctx, user.TelegramID)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user %d: %w", user.TelegramID, err)
	}
	*user = *stored

	return nil
}

// TopByPoints returns the leaderboard: up to limit users, highest score first.
func (db *DB) TopByPoints(ctx context.Context, limit int) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT telegram_id, username, first_name, last_name, platform,
		        points, last_tap_at, created_at, last_active_at
		 FROM users
		 ORDER BY points DESC, telegram_id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing top users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.TelegramID,
			&u.Username,
			&u.FirstName,
			&u.LastName,
			&u.Platform,
			&u.Points,
			&u.LastTapAt,
			&u.CreatedAt,
			&u.LastActiveAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning top user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating top users: %w", err)
	}

	return users, nil
}
