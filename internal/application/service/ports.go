package service

import (
	"context"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/entity"
	"medreminder/internal/domain/gateway"
)

// Messenger sends an envelope to the other execution context. Delivery is best
// effort: an error means the peer was unreachable, never that it acted on the message.
type Messenger interface {
	Send(ctx context.Context, env dto.Envelope) error
}

// ClickForwarder hands a notification click to a foreground, queueing it when
// none is attached so the next one to connect receives it.
type ClickForwarder interface {
	Forward(ctx context.Context, env dto.Envelope) error
}

// ReminderSource lists the authoritative reminders of an owner.
type ReminderSource interface {
	List(ctx context.Context, owner string) ([]*entity.Reminder, error)
}

// ReminderLookup fetches one reminder from the Reminder Store.
type ReminderLookup interface {
	Get(ctx context.Context, id string) (*entity.Reminder, error)
}

// AlarmPlayer plays the audible alarm for a reminder until stopped.
type AlarmPlayer interface {
	Play(reminderID string, sound constant.Sound, volume float64)
	Stop(reminderID string)
	StopAll()
}

// Toaster shows in-UI toasts.
type Toaster interface {
	Toast(t gateway.Toast)
}
