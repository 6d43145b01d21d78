package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/tap-to-earn/internal/apperror"
	"github.com/sakif/tap-to-earn/internal/repository"
)

// compile-time check that *DB implements repository.TapRepository
var _ repository.TapRepository = (*DB)(nil)

// ApplyTap credits an accepted tap: increment points, advance last_tap_at and
// last_active_at, and append the audit row — one transaction, so a crash can
// never leave a credited tap without its log entry (or vice versa).
//
// The rate-limit decision has already been made by the caller; this method is
// pure bookkeeping. Returns the new point total.
func (db *DB) ApplyTap(ctx context.Context, telegramID, now, points int64) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning tap transaction: %w", err)
	}
	// No-op after a successful Commit.
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET points = points + ?, last_tap_at = ?, last_active_at = ?
		 WHERE telegram_id = ?`,
		points, now, now, telegramID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: crediting tap for user %d: %w", telegramID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking tap update for user %d: %w", telegramID, err)
	}
	if affected == 0 {
		return 0, apperror.NotFound("user", telegramID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO taps (id, telegram_id, ts, count) VALUES (?, ?, ?, 1)`,
		xid.New().String(), telegramID, now,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: appending tap event for user %d: %w", telegramID, err)
	}

	var newPoints int64
	err = tx.QueryRowContext(ctx,
		`SELECT points FROM users WHERE telegram_id = ?`, telegramID,
	).Scan(&newPoints)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading new point total for user %d: %w", telegramID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing tap for user %d: %w", telegramID, err)
	}

	return newPoints, nil
}

// TapCount returns the number of audit rows for a user. Used by tests to
// check the one-row-per-accepted-tap invariant.
func (db *DB) TapCount(ctx context.Context, telegramID int64) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM taps WHERE telegram_id = ?`, telegramID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting taps for user %d: %w", telegramID, err)
	}
	return n, nil
}
