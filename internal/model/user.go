// Package model defines the data structures used throughout the application.
package model

// User is a Mini App player, keyed by the Telegram-issued account ID.
//
// Unlike most tables there is no locally generated primary key here: Telegram
// already hands us a stable numeric ID in the signed launch data, and every
// lookup the app ever does is by that ID.
//
// All timestamps are int64 milliseconds since the Unix epoch. The rate limiter
// works in millisecond deltas, so we store the same unit everywhere instead of
// mixing time.Time with ms arithmetic.
//
// Username, FirstName, LastName and Platform are denormalized copies of what
// Telegram sent with the most recent successful authentication. They are
// refreshed on every tap and carry no invariants — Points and LastTapAt are
// the load-bearing fields.
type User struct {
	TelegramID   int64  `json:"telegram_id"    db:"telegram_id"`
	Username     string `json:"username"       db:"username"` // Telegram @handle, may be empty
	FirstName    string `json:"first_name"     db:"first_name"`
	LastName     string `json:"last_name"      db:"last_name"`
	Platform     string `json:"platform"       db:"platform"` // WebApp client platform, e.g. "android"
	Points       int64  `json:"points"         db:"points"`
	LastTapAt    int64  `json:"last_tap_at"    db:"last_tap_at"` // 0 = never tapped
	CreatedAt    int64  `json:"created_at"     db:"created_at"`
	LastActiveAt int64  `json:"last_active_at" db:"last_active_at"`
}
