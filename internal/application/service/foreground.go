package service

import (
	"context"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/entity"
	"time"
)

// ForegroundOptions tunes the foreground scheduler.
type ForegroundOptions struct {
	// OwnerID selects whose reminders are fetched.
	OwnerID string
	// PollSpec is the cron spec of the due-check poll while visible.
	PollSpec string
	// KeepaliveSpec is the cron spec of the keepalive sent while visible.
	KeepaliveSpec string
	// AlarmTimeout stops the sound and clears the active entry of an unanswered alarm.
	AlarmTimeout time.Duration
	// UpcomingWindow bounds the reminders handed to the background on hide.
	UpcomingWindow time.Duration
	// DueSoonWindow bounds DueSoon.
	DueSoonWindow time.Duration
}

// DefaultForegroundOptions returns the production defaults.
func DefaultForegroundOptions() ForegroundOptions {
	return ForegroundOptions{
		PollSpec:       "@every 15s",
		KeepaliveSpec:  "@every 1m",
		AlarmTimeout:   30 * time.Second,
		UpcomingWindow: time.Hour,
		DueSoonWindow:  30 * time.Minute,
	}
}

// ForegroundScheduler alerts the user while the console is visible.
type ForegroundScheduler interface {
	// Start fetches reminders and arms them as if the console just became visible.
	Start(ctx context.Context) error
	// Stop halts timers, jobs and sound and waits for in-flight deliveries.
	Stop()
	// Refresh re-fetches the reminder set. On failure the last known set is kept.
	Refresh(ctx context.Context) error
	// SetReminders replaces the in-memory set and re-arms when visible.
	SetReminders(ctx context.Context, reminders []*entity.Reminder)
	// Reminders returns the in-memory set ordered by time of day.
	Reminders() []*entity.Reminder
	// Check delivers every reminder due at now.
	Check(ctx context.Context, now time.Time)
	// OnHidden hands scheduling to the background.
	OnHidden(ctx context.Context) error
	// OnVisible takes scheduling back from the background.
	OnVisible(ctx context.Context) error
	// Visible reports whether the console is currently visible.
	Visible() bool
	// Snooze suppresses a reminder for minutes, or the preferred duration when minutes <= 0.
	Snooze(ctx context.Context, id string, minutes int) error
	// Dismiss stops the alarm of a reminder.
	Dismiss(id string)
	// Taken dismisses a reminder and records that the dose was taken.
	Taken(ctx context.Context, id string)
	// HandleMessage applies one message from the background.
	HandleMessage(ctx context.Context, env dto.Envelope) error
	// Keepalive announces the visible foreground to the background.
	Keepalive(ctx context.Context)
	// DueSoon lists reminders whose next occurrence is close to now.
	DueSoon(now time.Time) []*entity.Reminder
	// Preferences returns the stored preferences, or defaults when unreadable.
	Preferences(ctx context.Context) entity.Preferences
	// UpdatePreferences applies fn to the stored preferences and saves them.
	UpdatePreferences(ctx context.Context, fn func(*entity.Preferences)) (entity.Preferences, error)
	// ActiveAlarms lists the reminders currently alerting.
	ActiveAlarms() []string
	// Alarms lists the armed timers ordered by fire time.
	Alarms() []entity.ScheduledAlarm
}
