// Package engine is the embedded looply event store: an in-memory,
// profile-scoped copy of every habit and log, persisted to disk in the
// background after each mutation.
package engine

import (
	"time"

	"github.com/celerix-dev/looply/pkg/sdk"
	"go.uber.org/zap"
)

// The engine reports the same sentinels as the remote client.
var (
	ErrProfileNotFound = sdk.ErrProfileNotFound
	ErrUserNotFound    = sdk.ErrUserNotFound
	ErrHabitNotFound   = sdk.ErrHabitNotFound
	ErrLogNotFound     = sdk.ErrLogNotFound
	ErrDuplicateID     = sdk.ErrDuplicateID
)

var _ sdk.Store = (*MemStore)(nil)

// Option configures a MemStore.
type Option func(*MemStore)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(m *MemStore) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock sets the time source used for createdAt defaults.
func WithClock(now func() time.Time) Option {
	return func(m *MemStore) {
		if now != nil {
			m.now = now
		}
	}
}
