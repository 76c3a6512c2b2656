package entity

import (
	"medreminder/internal/domain/constant"
	"time"
)

// Reminder represents a medication reminder owned by a user.
// Time holds only the hour and minute ("HH:MM"); the next fire instant is derived.
type Reminder struct {
	ID           string             `gorm:"primaryKey;type:text"`
	UserID       string             `gorm:"column:user_id;index"`
	MedicineName string             `gorm:"column:medicine_name;not null"`
	Dosage       *string            `gorm:"column:dosage"`
	Frequency    constant.Frequency `gorm:"column:frequency;type:text"`
	Time         string             `gorm:"column:time;type:text"`
	Notes        *string            `gorm:"column:notes;type:text"`
	ImageURL     *string            `gorm:"column:image_url"`
	CreatedAt    time.Time          `gorm:"column:created_at"`
	UpdatedAt    time.Time          `gorm:"column:updated_at"`
}

// TableName specifies the table name for the Reminder entity.
func (Reminder) TableName() string {
	return "medicine_reminders"
}

// DosageText returns the dosage or an empty string.
func (r *Reminder) DosageText() string {
	if r.Dosage == nil {
		return ""
	}
	return *r.Dosage
}
