package service

import (
	"context"
	"errors"
	"fmt"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/duetime"
	"medreminder/internal/domain/entity"
	"medreminder/internal/domain/repository"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type reminderService struct {
	reminderRepo repository.ReminderRepository
	clock        clockwork.Clock
	log          logger.Logger

	mu          sync.RWMutex
	nextSubID   int
	subscribers map[int]func(ctx context.Context, evt ChangeEvent)
}

// NewReminderService creates a new instance of ReminderService implementation.
func NewReminderService(reminderRepo repository.ReminderRepository, clock clockwork.Clock, log logger.Logger) ReminderService {
	return &reminderService{
		reminderRepo: reminderRepo,
		clock:        clock,
		log:          log,
		subscribers:  make(map[int]func(ctx context.Context, evt ChangeEvent)),
	}
}

// List returns the reminders of owner.
func (s *reminderService) List(ctx context.Context, owner string) ([]*entity.Reminder, error) {
	var (
		reminders []*entity.Reminder
		err       error
	)
	if owner == "" {
		reminders, err = s.reminderRepo.FindAll(ctx)
	} else {
		reminders, err = s.reminderRepo.FindByUserID(ctx, owner)
	}
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list reminders for owner %q", owner), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].Time < reminders[j].Time
	})
	return reminders, nil
}

// Get retrieves a reminder by its ID.
func (s *reminderService) Get(ctx context.Context, id string) (*entity.Reminder, error) {
	reminder, err := s.reminderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(errors.Unwrap(err), gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrReminderNotFound
		}
		s.log.Error(fmt.Sprintf("Failed to find reminder %s", id), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	return reminder, nil
}

// Create validates and stores a new reminder.
func (s *reminderService) Create(ctx context.Context, req dto.CreateReminderRequest) (*entity.Reminder, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", appErrors.ErrValidation)
	}
	name := strings.TrimSpace(req.MedicineName)
	if name == "" {
		return nil, fmt.Errorf("%w: medicine_name is required", appErrors.ErrValidation)
	}
	tod, err := duetime.ParseTimeOfDay(req.Time)
	if err != nil {
		return nil, err
	}
	freq, err := parseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reminder := &entity.Reminder{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		MedicineName: name,
		Dosage:       req.Dosage,
		Frequency:    freq,
		Time:         tod.String(),
		Notes:        req.Notes,
		ImageURL:     req.ImageURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.reminderRepo.Create(ctx, reminder); err != nil {
		s.log.Error(fmt.Sprintf("Failed to create reminder for user %s", req.UserID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Created reminder %s (%s at %s) for user %s", reminder.ID, reminder.MedicineName, reminder.Time, reminder.UserID))
	s.publish(ctx, ChangeEvent{Kind: ChangeCreated, Reminder: reminder})
	return reminder, nil
}

// Update applies the non-nil fields of req to the stored reminder.
func (s *reminderService) Update(ctx context.Context, req dto.UpdateReminderRequest) (*entity.Reminder, error) {
	reminder, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.UserID != "" && req.UserID != reminder.UserID {
		return nil, appErrors.ErrReminderNotFound
	}

	if req.MedicineName != nil {
		name := strings.TrimSpace(*req.MedicineName)
		if name == "" {
			return nil, fmt.Errorf("%w: medicine_name is required", appErrors.ErrValidation)
		}
		reminder.MedicineName = name
	}
	if req.Time != nil {
		tod, err := duetime.ParseTimeOfDay(*req.Time)
		if err != nil {
			return nil, err
		}
		reminder.Time = tod.String()
	}
	if req.Frequency != nil {
		freq, err := parseFrequency(*req.Frequency)
		if err != nil {
			return nil, err
		}
		reminder.Frequency = freq
	}
	if req.Dosage != nil {
		reminder.Dosage = req.Dosage
	}
	if req.Notes != nil {
		reminder.Notes = req.Notes
	}
	if req.ImageURL != nil {
		reminder.ImageURL = req.ImageURL
	}
	reminder.UpdatedAt = s.clock.Now()

	if err := s.reminderRepo.Update(ctx, reminder); err != nil {
		s.log.Error(fmt.Sprintf("Failed to update reminder %s", reminder.ID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Updated reminder %s", reminder.ID))
	s.publish(ctx, ChangeEvent{Kind: ChangeUpdated, Reminder: reminder})
	return reminder, nil
}

// Delete removes a reminder.
func (s *reminderService) Delete(ctx context.Context, id string) error {
	reminder, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reminderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(errors.Unwrap(err), gorm.ErrRecordNotFound) {
			s.log.Warn(fmt.Sprintf("Reminder %s already deleted.", id))
			return appErrors.ErrReminderNotFound
		}
		s.log.Error(fmt.Sprintf("Failed to delete reminder %s", id), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Deleted reminder %s", id))
	s.publish(ctx, ChangeEvent{Kind: ChangeDeleted, Reminder: reminder})
	return nil
}

// Subscribe registers fn for change events.
func (s *reminderService) Subscribe(fn func(ctx context.Context, evt ChangeEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *reminderService) publish(ctx context.Context, evt ChangeEvent) {
	s.mu.RLock()
	subs := make([]func(ctx context.Context, evt ChangeEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx, evt)
	}
}

func parseFrequency(s string) (constant.Frequency, error) {
	if s == "" {
		return constant.FrequencyDaily, nil
	}
	freq := constant.Frequency(strings.ToLower(s))
	if !freq.Valid() {
		return "", fmt.Errorf("%w: %q", appErrors.ErrInvalidFrequency, s)
	}
	return freq, nil
}
