package entity

import (
	"medreminder/internal/domain/constant"
	"time"
)

// CachedReminder is the background scheduler's mirror of a synced reminder.
// ScheduledAt, when set, overrides the next natural occurrence once.
type CachedReminder struct {
	ID              string             `gorm:"primaryKey;type:text"`
	UserID          string             `gorm:"column:user_id"`
	MedicineName    string             `gorm:"column:medicine_name"`
	Dosage          string             `gorm:"column:dosage"`
	Frequency       constant.Frequency `gorm:"column:frequency;type:text"`
	Time            string             `gorm:"column:time;type:text"`
	Title           string             `gorm:"column:title"`
	Body            string             `gorm:"column:body"`
	ScheduledAt     *time.Time         `gorm:"column:scheduled_at"`
	SourceUpdatedAt time.Time          `gorm:"column:source_updated_at"`
	SyncedAt        time.Time          `gorm:"column:synced_at"`
}

// TableName specifies the table name for the CachedReminder entity.
func (CachedReminder) TableName() string {
	return "reminders"
}

// NewCachedReminder mirrors a store reminder into a cache row.
func NewCachedReminder(r *Reminder, syncedAt time.Time) CachedReminder {
	return CachedReminder{
		ID:              r.ID,
		UserID:          r.UserID,
		MedicineName:    r.MedicineName,
		Dosage:          r.DosageText(),
		Frequency:       r.Frequency,
		Time:            r.Time,
		SourceUpdatedAt: r.UpdatedAt,
		SyncedAt:        syncedAt,
	}
}

// AlarmEntry is a durable row of the alarms table. Only snooze rows exist today.
type AlarmEntry struct {
	ID          string `gorm:"primaryKey;type:text"`
	SnoozeUntil int64  `gorm:"column:snooze_until"` // epoch milliseconds
	Type        string `gorm:"column:type"`
}

// TableName specifies the table name for the AlarmEntry entity.
func (AlarmEntry) TableName() string {
	return "alarms"
}

// SnoozeEntry converts the row into a SnoozeEntry.
func (a AlarmEntry) SnoozeEntry() SnoozeEntry {
	return SnoozeEntry{ReminderID: a.ID, Until: time.UnixMilli(a.SnoozeUntil)}
}

// NewSnoozeAlarm builds the alarms row for a snooze.
func NewSnoozeAlarm(id string, until time.Time) AlarmEntry {
	return AlarmEntry{ID: id, SnoozeUntil: until.UnixMilli(), Type: constant.AlarmTypeSnooze}
}
