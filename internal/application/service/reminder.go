package service

import (
	"context"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/entity"
)

// ChangeKind names a mutation of the Reminder Store.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is published after a reminder is created, updated or deleted.
// For deletions Reminder holds the last known state.
type ChangeEvent struct {
	Kind     ChangeKind
	Reminder *entity.Reminder
}

// ReminderService defines the interface for the authoritative Reminder Store.
type ReminderService interface {
	// List returns the reminders of owner ordered by time of day. An empty owner lists all.
	List(ctx context.Context, owner string) ([]*entity.Reminder, error)
	// Get retrieves a reminder by its ID.
	Get(ctx context.Context, id string) (*entity.Reminder, error)
	// Create validates and stores a new reminder.
	Create(ctx context.Context, req dto.CreateReminderRequest) (*entity.Reminder, error)
	// Update applies the non-nil fields of req.
	Update(ctx context.Context, req dto.UpdateReminderRequest) (*entity.Reminder, error)
	// Delete removes a reminder.
	Delete(ctx context.Context, id string) error
	// Subscribe registers fn for change events and returns a function that removes it.
	Subscribe(fn func(ctx context.Context, evt ChangeEvent)) (unsubscribe func())
}
