package dto

import (
	"encoding/json"
	"fmt"
	appErrors "medreminder/internal/pkg/errors"
)

// MessageType names a cross-context message.
type MessageType string

const (
	TypeScheduleNotification MessageType = "SCHEDULE_NOTIFICATION"
	TypeSnoozeNotification   MessageType = "SNOOZE_NOTIFICATION"
	TypeCancelNotification   MessageType = "CANCEL_NOTIFICATION"
	TypeSyncReminders        MessageType = "SYNC_REMINDERS"
	TypeKeepalive            MessageType = "KEEPALIVE"
	TypeNotificationClicked  MessageType = "NOTIFICATION_CLICKED"
	// TypeRemindersChanged tells a foreground that the Reminder Store changed.
	TypeRemindersChanged MessageType = "REMINDERS_CHANGED"
)

// ProtocolVersion is stamped on every envelope this build sends.
const ProtocolVersion = 1

// Envelope is the JSON frame exchanged between the foreground and background contexts.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Version int             `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of type t.
func NewEnvelope(t MessageType, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: encode %s: %v", appErrors.ErrInvalidMessage, t, err)
	}
	return Envelope{Type: t, Version: ProtocolVersion, Payload: raw}, nil
}

// MustEnvelope is NewEnvelope for payloads that always marshal.
func MustEnvelope(t MessageType, payload interface{}) Envelope {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", appErrors.ErrInvalidMessage, e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", appErrors.ErrInvalidMessage, e.Type, err)
	}
	return nil
}

// SchedulePayload asks the background to fire once after Time milliseconds.
type SchedulePayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Time      int64  `json:"time"` // relative delay in milliseconds
	Medicine  string `json:"medicine"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// SnoozePayload suppresses a reminder until SnoozeUntil (epoch milliseconds).
type SnoozePayload struct {
	ID          string `json:"id"`
	SnoozeUntil int64  `json:"snoozeUntil"`
}

// CancelPayload removes a reminder's schedule and snooze state.
type CancelPayload struct {
	ID string `json:"id"`
}

// SyncPayload replaces the background's working set for Owner. Without an
// owner, the owners named by the reminders are replaced.
type SyncPayload struct {
	Owner       string              `json:"owner,omitempty"`
	Reminders   []ReminderPayload   `json:"reminders"`
	Preferences *PreferencesPayload `json:"preferences,omitempty"`
}

// KeepalivePayload is a liveness ping from a visible foreground.
type KeepalivePayload struct {
	Timestamp int64 `json:"timestamp"` // epoch milliseconds
}

// ClickPayload reports a notification interaction. Action is empty for a plain click.
type ClickPayload struct {
	ID     string `json:"id"`
	Action string `json:"action,omitempty"`
}

// RemindersChangedPayload names the store mutation that happened.
type RemindersChangedPayload struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}
