package service

import (
	"context"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/entity"
	"time"
)

// BackgroundOptions tunes the background scheduler.
type BackgroundOptions struct {
	// RearmSpec is the cron spec of the periodic re-arm pass.
	RearmSpec string
	// PollSpec is the cron spec of the due-check poll.
	PollSpec string
	// DueGrace is how far into the due minute the poll still delivers.
	DueGrace time.Duration
	// DeliveredHold keeps a delivered reminder in the active set.
	DeliveredHold time.Duration
	// StaleSyncAfter triggers a reconciliation pass on keepalive.
	StaleSyncAfter time.Duration
	// ForegroundLease is how long a keepalive marks the foreground as present.
	ForegroundLease time.Duration
	// DeliveryTimeout bounds one delivery attempt.
	DeliveryTimeout time.Duration
	// DefaultSnoozeMinutes applies until a sync carries preferences.
	DefaultSnoozeMinutes int
}

// DefaultBackgroundOptions returns the production defaults.
func DefaultBackgroundOptions() BackgroundOptions {
	return BackgroundOptions{
		RearmSpec:            "@every 10m",
		PollSpec:             "*/5 * * * * *",
		DueGrace:             10 * time.Second,
		DeliveredHold:        time.Minute,
		StaleSyncAfter:       15 * time.Minute,
		ForegroundLease:      2 * time.Minute,
		DeliveryTimeout:      10 * time.Second,
		DefaultSnoozeMinutes: constant.DefaultSnoozeMinutes,
	}
}

// BackgroundScheduler delivers reminders while no foreground is visible.
type BackgroundScheduler interface {
	// Start loads the cache, arms every reminder and registers the periodic jobs.
	Start(ctx context.Context) error
	// Stop removes the periodic jobs, disarms every timer and waits for in-flight deliveries.
	Stop()
	// HandleMessage applies one message from a foreground.
	HandleMessage(ctx context.Context, env dto.Envelope) error
	// HandleClick reacts to a click on a delivered notification.
	HandleClick(ctx context.Context, id string, action constant.ClickAction) error
	// ApplyChange mirrors a Reminder Store change into the cache and timers.
	ApplyChange(ctx context.Context, evt ChangeEvent)
	// Rearm reloads the cache and recomputes every timer.
	Rearm(ctx context.Context)
	// CheckDue delivers every reminder due at now.
	CheckDue(ctx context.Context, now time.Time)
	// ForegroundDetached ends the foreground lease immediately.
	ForegroundDetached()
	// Alarms lists the armed timers ordered by fire time.
	Alarms() []entity.ScheduledAlarm
	// ActiveAlarms lists the reminder IDs currently being alerted.
	ActiveAlarms() []string
}
