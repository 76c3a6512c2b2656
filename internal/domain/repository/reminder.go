package repository

import (
	"context"
	"medreminder/internal/domain/entity"
)

// ReminderRepository defines the interface for reminder data operations.
type ReminderRepository interface {
	// FindByID retrieves a reminder by its ID.
	FindByID(ctx context.Context, id string) (*entity.Reminder, error)
	// FindByUserID retrieves all reminders for a specific user, ordered by time.
	FindByUserID(ctx context.Context, userID string) ([]*entity.Reminder, error)
	// FindAll retrieves all reminders.
	FindAll(ctx context.Context) ([]*entity.Reminder, error)
	// Create creates a new reminder.
	Create(ctx context.Context, reminder *entity.Reminder) error
	// Update updates an existing reminder.
	Update(ctx context.Context, reminder *entity.Reminder) error
	// Delete deletes a reminder by its ID.
	Delete(ctx context.Context, id string) error
}
