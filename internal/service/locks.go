package service

import "sync"

// userLocks hands out one mutex per Telegram user ID.
//
// The tap path is a read-check-write sequence (load last_tap_at, compare
// against the minimum interval, then credit). Two concurrent taps from the
// same user must not both read the same stale last_tap_at and both pass the
// check, so the whole sequence runs under that user's mutex. Different users
// get different mutexes and never block each other.
//
// Locks are never evicted. Each entry is a bare sync.Mutex, and the map only
// grows with distinct active users — fine at this system's scale.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

// forUser returns the mutex for the given user, creating it on first use.
func (l *userLocks) forUser(telegramID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[telegramID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[telegramID] = m
	}
	return m
}
