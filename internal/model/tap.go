package model

// TapEvent is one row of the append-only tap audit log.
//
// A row is written for every accepted tap and never updated or deleted
// afterwards. Rejected taps (rate-limited or unauthenticated) leave no row —
// the log records what was credited, not what was attempted.
type TapEvent struct {
	ID         string `json:"id"          db:"id"` // xid, generated at insert time
	TelegramID int64  `json:"telegram_id" db:"telegram_id"`
	Timestamp  int64  `json:"ts"          db:"ts"` // ms since epoch
	Count      int64  `json:"count"       db:"count"`
}
