package entity

import (
	"medreminder/internal/domain/constant"
	"time"
)

// ScheduledAlarm is the derived, in-memory next fire of a reminder.
// It is recomputed on every (re)start and never persisted.
type ScheduledAlarm struct {
	ReminderID string             `json:"reminder_id"`
	FireAt     time.Time          `json:"fire_at"`
	Kind       constant.AlarmKind `json:"kind"`
}

// SnoozeEntry suppresses delivery of a reminder until Until.
type SnoozeEntry struct {
	ReminderID string
	Until      time.Time
}

// Active reports whether the snooze window is still open at now.
func (s SnoozeEntry) Active(now time.Time) bool {
	return now.Before(s.Until)
}
