package sqlite

import (
	"context"
	"errors"
	"fmt"
	"medreminder/internal/domain/entity"
	"medreminder/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cacheRepository struct {
	db *gorm.DB
}

// NewCacheRepository creates the background scheduler's durable cache over db.
func NewCacheRepository(db *gorm.DB) repository.CacheRepository {
	return &cacheRepository{db: db}
}

// ReplaceReminders swaps the full reminders table inside one transaction.
func (r *cacheRepository) ReplaceReminders(ctx context.Context, reminders []entity.CachedReminder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.CachedReminder{}).Error; err != nil {
			return err
		}
		if len(reminders) == 0 {
			return nil
		}
		return tx.Create(&reminders).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace cached reminders: %w", err)
	}
	return nil
}

// ReplaceOwnerReminders swaps the rows of owners inside one transaction.
// Rows are upserted so that a reminder moving between owners keeps one row.
func (r *cacheRepository) ReplaceOwnerReminders(ctx context.Context, owners []string, reminders []entity.CachedReminder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id IN ?", owners).Delete(&entity.CachedReminder{}).Error; err != nil {
			return err
		}
		if len(reminders) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&reminders).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace cached reminders of %v: %w", owners, err)
	}
	return nil
}

// UpsertReminder inserts or replaces one cached reminder.
func (r *cacheRepository) UpsertReminder(ctx context.Context, reminder entity.CachedReminder) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&reminder).Error; err != nil {
		return fmt.Errorf("failed to upsert cached reminder %s: %w", reminder.ID, err)
	}
	return nil
}

// FindReminder returns one cached reminder.
func (r *cacheRepository) FindReminder(ctx context.Context, id string) (*entity.CachedReminder, error) {
	var reminder entity.CachedReminder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reminder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cached reminder %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to find cached reminder %s: %w", id, err)
	}
	return &reminder, nil
}

// ListReminders returns every cached reminder.
func (r *cacheRepository) ListReminders(ctx context.Context) ([]entity.CachedReminder, error) {
	var reminders []entity.CachedReminder
	if err := r.db.WithContext(ctx).Order("time asc").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to list cached reminders: %w", err)
	}
	return reminders, nil
}

// DeleteReminder removes one cached reminder.
func (r *cacheRepository) DeleteReminder(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.CachedReminder{}).Error; err != nil {
		return fmt.Errorf("failed to delete cached reminder %s: %w", id, err)
	}
	return nil
}

// PutAlarm inserts or replaces the alarm row for its ID. Last writer wins.
func (r *cacheRepository) PutAlarm(ctx context.Context, alarm entity.AlarmEntry) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&alarm).Error; err != nil {
		return fmt.Errorf("failed to put alarm %s: %w", alarm.ID, err)
	}
	return nil
}

// FindAlarm returns the alarm row for id.
func (r *cacheRepository) FindAlarm(ctx context.Context, id string) (*entity.AlarmEntry, error) {
	var alarm entity.AlarmEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&alarm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alarm %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to find alarm %s: %w", id, err)
	}
	return &alarm, nil
}

// ListAlarms returns every alarm row.
func (r *cacheRepository) ListAlarms(ctx context.Context) ([]entity.AlarmEntry, error) {
	var alarms []entity.AlarmEntry
	if err := r.db.WithContext(ctx).Find(&alarms).Error; err != nil {
		return nil, fmt.Errorf("failed to list alarms: %w", err)
	}
	return alarms, nil
}

// DeleteAlarm removes the alarm row for id.
func (r *cacheRepository) DeleteAlarm(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.AlarmEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete alarm %s: %w", id, err)
	}
	return nil
}
