package service

import (
	"context"
	"errors"
	"fmt"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/duetime"
	"medreminder/internal/domain/entity"
	"medreminder/internal/domain/repository"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"
	"time"

	"gorm.io/gorm"
)

type snoozeCoordinator struct {
	alarms repository.AlarmRepository
	peer   Messenger
	log    logger.Logger
}

// NewSnoozeCoordinator creates a SnoozeCoordinator. peer may be nil when no
// other context exists.
func NewSnoozeCoordinator(alarms repository.AlarmRepository, peer Messenger, log logger.Logger) SnoozeCoordinator {
	return &snoozeCoordinator{
		alarms: alarms,
		peer:   peer,
		log:    log,
	}
}

// Snooze persists the snooze and notifies the peer.
func (c *snoozeCoordinator) Snooze(ctx context.Context, id string, until time.Time) error {
	if err := c.ApplySnooze(ctx, id, until); err != nil {
		return err
	}
	c.notifyPeer(ctx, dto.MustEnvelope(dto.TypeSnoozeNotification, dto.SnoozePayload{ID: id, SnoozeUntil: until.UnixMilli()}))
	return nil
}

// Cancel removes the snooze and notifies the peer.
func (c *snoozeCoordinator) Cancel(ctx context.Context, id string) error {
	if err := c.ApplyCancel(ctx, id); err != nil {
		return err
	}
	c.notifyPeer(ctx, dto.MustEnvelope(dto.TypeCancelNotification, dto.CancelPayload{ID: id}))
	return nil
}

// ApplySnooze writes the snooze row. Only the latest snooze_until is kept.
func (c *snoozeCoordinator) ApplySnooze(ctx context.Context, id string, until time.Time) error {
	if err := c.alarms.PutAlarm(ctx, entity.NewSnoozeAlarm(id, until)); err != nil {
		c.log.Error(fmt.Sprintf("Failed to persist snooze for reminder %s", id), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	c.log.Info(fmt.Sprintf("Reminder %s snoozed until %s", id, until.Format(time.Kitchen)))
	return nil
}

// ApplyCancel deletes the snooze row.
func (c *snoozeCoordinator) ApplyCancel(ctx context.Context, id string) error {
	if err := c.alarms.DeleteAlarm(ctx, id); err != nil {
		c.log.Error(fmt.Sprintf("Failed to delete snooze for reminder %s", id), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	return nil
}

// Entry returns the stored snooze for id, or nil when there is none.
func (c *snoozeCoordinator) Entry(ctx context.Context, id string) (*entity.SnoozeEntry, error) {
	alarm, err := c.alarms.FindAlarm(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	entry := alarm.SnoozeEntry()
	return &entry, nil
}

// IsSnoozed reports whether id is suppressed at now. Expired rows are removed.
func (c *snoozeCoordinator) IsSnoozed(ctx context.Context, id string, now time.Time) bool {
	entry, err := c.Entry(ctx, id)
	if err != nil {
		c.log.Error(fmt.Sprintf("Failed to read snooze for reminder %s, treating as not snoozed", id), err)
		return false
	}
	if entry == nil {
		return false
	}
	if duetime.IsSnoozed(entry, now) {
		return true
	}
	if err := c.alarms.DeleteAlarm(ctx, id); err != nil {
		c.log.Warn(fmt.Sprintf("Failed to remove expired snooze for reminder %s: %v", id, err))
	}
	return false
}

func (c *snoozeCoordinator) notifyPeer(ctx context.Context, env dto.Envelope) {
	if c.peer == nil {
		return
	}
	if err := c.peer.Send(ctx, env); err != nil {
		c.log.Debug(fmt.Sprintf("Peer did not receive %s: %v", env.Type, err))
	}
}
