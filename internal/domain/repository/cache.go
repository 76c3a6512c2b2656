package repository

import (
	"context"
	"medreminder/internal/domain/entity"
)

// AlarmRepository stores durable snooze rows. It is shared by both schedulers.
type AlarmRepository interface {
	// PutAlarm inserts or replaces the alarm row for its ID.
	PutAlarm(ctx context.Context, alarm entity.AlarmEntry) error
	// FindAlarm returns the alarm row for id.
	FindAlarm(ctx context.Context, id string) (*entity.AlarmEntry, error)
	// ListAlarms returns every alarm row.
	ListAlarms(ctx context.Context) ([]entity.AlarmEntry, error)
	// DeleteAlarm removes the alarm row for id. Missing rows are not an error.
	DeleteAlarm(ctx context.Context, id string) error
}

// CacheRepository is the background scheduler's own durable store.
type CacheRepository interface {
	AlarmRepository
	// ReplaceReminders atomically replaces the whole reminders table.
	ReplaceReminders(ctx context.Context, reminders []entity.CachedReminder) error
	// ReplaceOwnerReminders atomically replaces the rows of owners, leaving other owners untouched.
	ReplaceOwnerReminders(ctx context.Context, owners []string, reminders []entity.CachedReminder) error
	// UpsertReminder inserts or replaces one cached reminder.
	UpsertReminder(ctx context.Context, reminder entity.CachedReminder) error
	// FindReminder returns one cached reminder.
	FindReminder(ctx context.Context, id string) (*entity.CachedReminder, error)
	// ListReminders returns every cached reminder.
	ListReminders(ctx context.Context) ([]entity.CachedReminder, error)
	// DeleteReminder removes one cached reminder. Missing rows are not an error.
	DeleteReminder(ctx context.Context, id string) error
}

// PreferenceRepository is the small local key-value store for sound and snooze settings.
type PreferenceRepository interface {
	Load(ctx context.Context) (entity.Preferences, error)
	Save(ctx context.Context, prefs entity.Preferences) error
}
