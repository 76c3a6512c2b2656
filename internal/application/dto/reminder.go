package dto

import (
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/entity"
	"time"
)

// ReminderPayload is the wire form of a reminder, used by the REST API and by SYNC_REMINDERS.
type ReminderPayload struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	MedicineName string    `json:"medicine_name"`
	Dosage       *string   `json:"dosage"`
	Frequency    string    `json:"frequency"`
	Time         string    `json:"time"`
	Notes        *string   `json:"notes"`
	ImageURL     *string   `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// ToReminderPayload converts an entity.Reminder to its wire form.
func ToReminderPayload(r *entity.Reminder) ReminderPayload {
	return ReminderPayload{
		ID:           r.ID,
		UserID:       r.UserID,
		MedicineName: r.MedicineName,
		Dosage:       r.Dosage,
		Frequency:    r.Frequency.String(),
		Time:         r.Time,
		Notes:        r.Notes,
		ImageURL:     r.ImageURL,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ToReminderPayloadList converts a slice of reminders to their wire form.
func ToReminderPayloadList(reminders []*entity.Reminder) []ReminderPayload {
	list := make([]ReminderPayload, len(reminders))
	for i, r := range reminders {
		list[i] = ToReminderPayload(r)
	}
	return list
}

// Entity converts the payload back into an entity.Reminder.
func (p ReminderPayload) Entity() *entity.Reminder {
	return &entity.Reminder{
		ID:           p.ID,
		UserID:       p.UserID,
		MedicineName: p.MedicineName,
		Dosage:       p.Dosage,
		Frequency:    constant.Frequency(p.Frequency),
		Time:         p.Time,
		Notes:        p.Notes,
		ImageURL:     p.ImageURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// EntityList converts payloads back into entities.
func EntityList(payloads []ReminderPayload) []*entity.Reminder {
	list := make([]*entity.Reminder, len(payloads))
	for i, p := range payloads {
		list[i] = p.Entity()
	}
	return list
}

// CreateReminderRequest is the DTO for creating a new reminder.
type CreateReminderRequest struct {
	UserID       string  `json:"user_id"`
	MedicineName string  `json:"medicine_name"`
	Dosage       *string `json:"dosage"`
	Frequency    string  `json:"frequency"`
	Time         string  `json:"time"`
	Notes        *string `json:"notes"`
	ImageURL     *string `json:"image_url"`
}

// UpdateReminderRequest is the DTO for updating a reminder. Nil fields are left unchanged.
type UpdateReminderRequest struct {
	ID           string  `json:"-"`
	UserID       string  `json:"user_id"`
	MedicineName *string `json:"medicine_name"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Time         *string `json:"time"`
	Notes        *string `json:"notes"`
	ImageURL     *string `json:"image_url"`
}

// PreferencesPayload carries sound and snooze settings to the background context.
type PreferencesPayload struct {
	SoundEnabled  bool    `json:"soundEnabled"`
	Sound         string  `json:"sound"`
	Volume        float64 `json:"volume"`
	SnoozeMinutes int     `json:"snoozeMinutes"`
}

// ToPreferencesPayload converts preferences to their wire form.
func ToPreferencesPayload(p entity.Preferences) *PreferencesPayload {
	return &PreferencesPayload{
		SoundEnabled:  p.SoundEnabled,
		Sound:         p.Sound,
		Volume:        p.Volume,
		SnoozeMinutes: p.SnoozeMinutes,
	}
}

// Entity converts the payload into normalized preferences.
func (p PreferencesPayload) Entity() entity.Preferences {
	return entity.Preferences{
		SoundEnabled:  p.SoundEnabled,
		Sound:         p.Sound,
		Volume:        p.Volume,
		SnoozeMinutes: p.SnoozeMinutes,
	}.Normalize()
}
