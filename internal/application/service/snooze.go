package service

import (
	"context"
	"medreminder/internal/domain/entity"
	"time"
)

// SnoozeCoordinator applies snooze and cancel decisions identically in both
// contexts: write-through to the durable alarms table, then a best-effort
// notice to the peer context.
type SnoozeCoordinator interface {
	// Snooze suppresses id until until and tells the peer. Snoozing again overwrites.
	Snooze(ctx context.Context, id string, until time.Time) error
	// Cancel drops any snooze for id and tells the peer. Cancelling nothing is a no-op.
	Cancel(ctx context.Context, id string) error
	// ApplySnooze persists a snooze received from the peer without echoing it back.
	ApplySnooze(ctx context.Context, id string, until time.Time) error
	// ApplyCancel drops a snooze received from the peer without echoing it back.
	ApplyCancel(ctx context.Context, id string) error
	// Entry returns the stored snooze for id, or nil.
	Entry(ctx context.Context, id string) (*entity.SnoozeEntry, error)
	// IsSnoozed reports whether id is suppressed at now. Read failures count as not snoozed.
	IsSnoozed(ctx context.Context, id string, now time.Time) bool
}
