package service

import (
	"context"
	"fmt"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/duetime"
	"medreminder/internal/domain/entity"
	"medreminder/internal/domain/gateway"
	"medreminder/internal/domain/repository"
	"medreminder/internal/infrastructure/scheduler"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

type foregroundScheduler struct {
	source  ReminderSource
	peer    Messenger
	snooze  SnoozeCoordinator
	gateway gateway.Gateway
	player  AlarmPlayer
	toaster Toaster
	prefs   repository.PreferenceRepository
	cron    *scheduler.Scheduler
	timers  *scheduler.TimerSet
	clock   clockwork.Clock
	log     logger.Logger
	opts    ForegroundOptions

	mu        sync.Mutex
	reminders map[string]*entity.Reminder
	active    map[string]time.Time
	delivered map[string]time.Time
	visible   bool
	stopped   bool
	jobs      []cron.EntryID
	inflight  sync.WaitGroup
}

// ForegroundDeps groups the collaborators of the foreground scheduler.
// Peer, Gateway, Player, Toaster and Cron may be nil.
type ForegroundDeps struct {
	Source      ReminderSource
	Peer        Messenger
	Snooze      SnoozeCoordinator
	Gateway     gateway.Gateway
	Player      AlarmPlayer
	Toaster     Toaster
	Preferences repository.PreferenceRepository
	Cron        *scheduler.Scheduler
	Clock       clockwork.Clock
	Log         logger.Logger
}

// NewForegroundScheduler creates a new instance of ForegroundScheduler implementation.
func NewForegroundScheduler(deps ForegroundDeps, opts ForegroundOptions) ForegroundScheduler {
	return &foregroundScheduler{
		source:    deps.Source,
		peer:      deps.Peer,
		snooze:    deps.Snooze,
		gateway:   deps.Gateway,
		player:    deps.Player,
		toaster:   deps.Toaster,
		prefs:     deps.Preferences,
		cron:      deps.Cron,
		timers:    scheduler.NewTimerSet(deps.Clock),
		clock:     deps.Clock,
		log:       deps.Log,
		opts:      opts,
		reminders: make(map[string]*entity.Reminder),
		active:    make(map[string]time.Time),
		delivered: make(map[string]time.Time),
	}
}

// Start behaves like the console becoming visible.
func (s *foregroundScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting foreground scheduler...")
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	return s.OnVisible(ctx)
}

// Stop halts everything the foreground runs.
func (s *foregroundScheduler) Stop() {
	s.mu.Lock()
	s.visible = false
	s.stopped = true
	s.mu.Unlock()
	s.stopJobs()
	s.timers.DisarmAll()
	if s.player != nil {
		s.player.StopAll()
	}
	s.inflight.Wait()
	s.log.Info("Foreground scheduler stopped.")
}

// Refresh re-fetches the reminders of the owner.
func (s *foregroundScheduler) Refresh(ctx context.Context) error {
	reminders, err := s.source.List(ctx, s.opts.OwnerID)
	if err != nil {
		s.log.Error("Failed to fetch reminders, keeping the last known set", err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.SetReminders(ctx, reminders)
	return nil
}

// SetReminders replaces the in-memory set. Snoozes of reminders whose time
// changed are dropped; removed reminders are cancelled in both contexts.
func (s *foregroundScheduler) SetReminders(ctx context.Context, reminders []*entity.Reminder) {
	next := make(map[string]*entity.Reminder, len(reminders))
	for _, r := range reminders {
		next[r.ID] = r
	}

	s.mu.Lock()
	var stale []string
	for id, prev := range s.reminders {
		if cur, ok := next[id]; !ok || cur.Time != prev.Time {
			stale = append(stale, id)
		}
	}
	s.reminders = next
	visible := s.visible
	s.mu.Unlock()

	for _, id := range stale {
		var err error
		if _, ok := next[id]; ok {
			err = s.snooze.ApplyCancel(ctx, id)
		} else {
			s.timers.Disarm(id)
			s.Dismiss(id)
			err = s.snooze.Cancel(ctx, id)
		}
		if err != nil {
			s.log.Warn(fmt.Sprintf("Failed to cancel snooze of reminder %s: %v", id, err))
		}
	}
	if visible {
		s.armAll()
	}
}

// Reminders returns the in-memory set ordered by time of day.
func (s *foregroundScheduler) Reminders() []*entity.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *foregroundScheduler) sortedLocked() []*entity.Reminder {
	list := make([]*entity.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Time == list[j].Time {
			return list[i].ID < list[j].ID
		}
		return list[i].Time < list[j].Time
	})
	return list
}

func (s *foregroundScheduler) armAll() {
	now := s.clock.Now()
	reminders := s.Reminders()
	s.timers.DisarmAll()
	for _, r := range reminders {
		s.arm(r, now)
	}
}

func (s *foregroundScheduler) arm(r *entity.Reminder, now time.Time) {
	tod, err := duetime.ParseTimeOfDay(r.Time)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Reminder %s has an invalid time %q, not scheduling", r.ID, r.Time))
		return
	}
	s.timers.Arm(entity.ScheduledAlarm{
		ReminderID: r.ID,
		FireAt:     duetime.NextOccurrence(tod, now),
		Kind:       constant.AlarmOccurrence,
	}, s.onTimer)
}

func (s *foregroundScheduler) reminder(id string) (*entity.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	return r, ok
}

// track registers one in-flight delivery. It refuses once Stop has begun.
func (s *foregroundScheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *foregroundScheduler) onTimer(alarm entity.ScheduledAlarm) {
	if !s.track() {
		return
	}
	defer s.inflight.Done()

	r, ok := s.reminder(alarm.ReminderID)
	if !ok || !s.Visible() {
		return
	}
	now := s.clock.Now()
	tod, err := duetime.ParseTimeOfDay(r.Time)
	if err != nil {
		return
	}
	if duetime.IsDueNow(tod, now) && duetime.OccurrenceAt(tod, now).Equal(alarm.FireAt) {
		s.deliver(context.Background(), r, alarm.FireAt)
	}
	s.arm(r, now)
}

// Check delivers every reminder whose time matches now to the minute. Each
// delivery runs on its own goroutine.
func (s *foregroundScheduler) Check(ctx context.Context, now time.Time) {
	if !s.Visible() {
		return
	}
	for _, r := range s.Reminders() {
		tod, err := duetime.ParseTimeOfDay(r.Time)
		if err != nil || !duetime.IsDueNow(tod, now) {
			continue
		}
		if !s.track() {
			return
		}
		occurrence := duetime.OccurrenceAt(tod, now)
		r := r
		go func() {
			defer s.inflight.Done()
			s.deliver(context.WithoutCancel(ctx), r, occurrence)
		}()
	}
}

// deliver alerts the user once per occurrence. It reports whether an alert was raised.
func (s *foregroundScheduler) deliver(ctx context.Context, r *entity.Reminder, occurrence time.Time) bool {
	now := s.clock.Now()
	if s.snooze.IsSnoozed(ctx, r.ID, now) {
		s.log.Debug(fmt.Sprintf("Reminder %s is snoozed, skipping", r.ID))
		return false
	}

	s.mu.Lock()
	if last, ok := s.delivered[r.ID]; ok && last.Equal(occurrence) {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.active[r.ID]; ok {
		s.mu.Unlock()
		return false
	}
	s.delivered[r.ID] = occurrence
	s.active[r.ID] = occurrence
	s.mu.Unlock()

	prefs := s.Preferences(ctx)
	if prefs.SoundEnabled && s.player != nil {
		s.player.Play(r.ID, constant.LookupSound(prefs.Sound), prefs.Volume)
	}

	title := foregroundTitle(r.MedicineName)
	body := notificationBody(r.DosageText())
	if s.toaster != nil {
		s.toaster.Toast(gateway.Toast{ReminderID: r.ID, Title: title, Body: body, SnoozeMinutes: prefs.SnoozeMinutes})
	}
	if s.gateway != nil {
		if perm, err := s.gateway.RequestPermission(ctx); err == nil && perm == gateway.PermissionGranted {
			n := gateway.Notification{
				OwnerID: r.UserID,
				Title:   title,
				Body:    body,
				Tag:     r.ID,
				Data: gateway.Data{
					ReminderID: r.ID,
					Medicine:   r.MedicineName,
					Dosage:     r.DosageText(),
					Frequency:  string(r.Frequency),
				},
			}
			if _, err := s.gateway.Show(ctx, n); err != nil {
				s.log.Warn(fmt.Sprintf("System notification for reminder %s failed: %v", r.ID, err))
			}
		}
	}
	s.log.Info(fmt.Sprintf("Alerted reminder %s (%s)", r.ID, r.MedicineName))

	s.clock.AfterFunc(s.opts.AlarmTimeout, func() {
		s.finish(r.ID, occurrence)
	})
	return true
}

// finish ends an unanswered alarm.
func (s *foregroundScheduler) finish(id string, occurrence time.Time) {
	s.mu.Lock()
	at, ok := s.active[id]
	if !ok || !at.Equal(occurrence) {
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	s.mu.Unlock()
	if s.player != nil {
		s.player.Stop(id)
	}
}

// Dismiss stops the alarm of id.
func (s *foregroundScheduler) Dismiss(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
	if s.player != nil {
		s.player.Stop(id)
	}
}

// Taken dismisses id.
func (s *foregroundScheduler) Taken(ctx context.Context, id string) {
	s.Dismiss(id)
	s.log.Info(fmt.Sprintf("Reminder %s marked as taken", id))
}

// Snooze suppresses id and tells the background.
func (s *foregroundScheduler) Snooze(ctx context.Context, id string, minutes int) error {
	if _, ok := s.reminder(id); !ok {
		return appErrors.ErrReminderNotFound
	}
	if minutes <= 0 {
		minutes = s.Preferences(ctx).SnoozeMinutes
	}
	s.Dismiss(id)
	until := s.clock.Now().Add(time.Duration(minutes) * time.Minute)
	return s.snooze.Snooze(ctx, id, until)
}

// OnHidden stops local scheduling and hands the reminder set to the background.
func (s *foregroundScheduler) OnHidden(ctx context.Context) error {
	s.mu.Lock()
	s.visible = false
	reminders := s.sortedLocked()
	s.mu.Unlock()

	s.stopJobs()
	s.timers.DisarmAll()
	s.log.Info("Foreground hidden, handing reminders to background")

	if s.peer == nil {
		return nil
	}
	prefs := s.Preferences(ctx)
	payload := dto.SyncPayload{
		Owner:       s.opts.OwnerID,
		Reminders:   dto.ToReminderPayloadList(reminders),
		Preferences: dto.ToPreferencesPayload(prefs),
	}
	if err := s.peer.Send(ctx, dto.MustEnvelope(dto.TypeSyncReminders, payload)); err != nil {
		s.log.Warn(fmt.Sprintf("Background did not receive sync: %v", err))
		return err
	}

	now := s.clock.Now()
	for _, r := range duetime.Upcoming(reminders, now, s.opts.UpcomingWindow) {
		tod, err := duetime.ParseTimeOfDay(r.Time)
		if err != nil {
			continue
		}
		delay := duetime.OccurrenceAt(tod, now).Sub(now)
		if delay <= 0 {
			continue
		}
		p := dto.SchedulePayload{
			ID:        r.ID,
			Title:     backgroundTitle(r.MedicineName),
			Body:      notificationBody(r.DosageText()),
			Time:      delay.Milliseconds(),
			Medicine:  r.MedicineName,
			Dosage:    r.DosageText(),
			Frequency: string(r.Frequency),
		}
		if err := s.peer.Send(ctx, dto.MustEnvelope(dto.TypeScheduleNotification, p)); err != nil {
			s.log.Warn(fmt.Sprintf("Failed to schedule reminder %s in background: %v", r.ID, err))
		}
	}
	return nil
}

// OnVisible discards local timers, re-fetches and re-arms, then resumes the
// poll and keepalive.
func (s *foregroundScheduler) OnVisible(ctx context.Context) error {
	s.timers.DisarmAll()
	refreshErr := s.Refresh(ctx)

	s.mu.Lock()
	s.visible = true
	s.mu.Unlock()
	s.armAll()

	if err := s.startJobs(); err != nil {
		return err
	}
	s.Keepalive(ctx)
	return refreshErr
}

// Visible reports whether the console is visible.
func (s *foregroundScheduler) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *foregroundScheduler) startJobs() error {
	if s.cron == nil {
		return nil
	}
	s.stopJobs()
	pollID, err := s.cron.AddJob(s.opts.PollSpec, func() {
		s.Check(context.Background(), s.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("%w: poll job: %v", appErrors.ErrScheduling, err)
	}
	keepaliveID, err := s.cron.AddJob(s.opts.KeepaliveSpec, func() {
		s.Keepalive(context.Background())
	})
	if err != nil {
		s.cron.RemoveJob(pollID)
		return fmt.Errorf("%w: keepalive job: %v", appErrors.ErrScheduling, err)
	}
	s.mu.Lock()
	s.jobs = []cron.EntryID{pollID, keepaliveID}
	s.mu.Unlock()
	return nil
}

func (s *foregroundScheduler) stopJobs() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()
	if s.cron == nil {
		return
	}
	for _, id := range jobs {
		s.cron.RemoveJob(id)
	}
}

// Keepalive tells the background that a visible foreground is present.
func (s *foregroundScheduler) Keepalive(ctx context.Context) {
	if s.peer == nil || !s.Visible() {
		return
	}
	env := dto.MustEnvelope(dto.TypeKeepalive, dto.KeepalivePayload{Timestamp: s.clock.Now().UnixMilli()})
	if err := s.peer.Send(ctx, env); err != nil {
		s.log.Debug(fmt.Sprintf("Keepalive not delivered: %v", err))
	}
}

// HandleMessage applies one message from the background.
func (s *foregroundScheduler) HandleMessage(ctx context.Context, env dto.Envelope) error {
	switch env.Type {
	case dto.TypeNotificationClicked:
		var p dto.ClickPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		s.Dismiss(p.ID)
		s.log.Info(fmt.Sprintf("Notification for reminder %s clicked (%s)", p.ID, clickLabel(p.Action)))
		return nil
	case dto.TypeSnoozeNotification:
		var p dto.SnoozePayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		s.Dismiss(p.ID)
		return nil
	case dto.TypeCancelNotification:
		var p dto.CancelPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		s.Dismiss(p.ID)
		return nil
	case dto.TypeRemindersChanged:
		if !s.Visible() {
			return nil
		}
		return s.Refresh(ctx)
	case dto.TypeScheduleNotification, dto.TypeSyncReminders, dto.TypeKeepalive:
		s.log.Debug(fmt.Sprintf("Ignoring %s from background", env.Type))
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", appErrors.ErrInvalidMessage, env.Type)
	}
}

func clickLabel(action string) string {
	if action == "" {
		return "open"
	}
	return action
}

// DueSoon lists reminders whose next occurrence falls within the due-soon window.
func (s *foregroundScheduler) DueSoon(now time.Time) []*entity.Reminder {
	var out []*entity.Reminder
	for _, r := range s.Reminders() {
		tod, err := duetime.ParseTimeOfDay(r.Time)
		if err != nil {
			continue
		}
		if duetime.IsDueSoon(tod, now, s.opts.DueSoonWindow) {
			out = append(out, r)
		}
	}
	return out
}

// Preferences returns the stored preferences, falling back to defaults.
func (s *foregroundScheduler) Preferences(ctx context.Context) entity.Preferences {
	if s.prefs == nil {
		return entity.DefaultPreferences()
	}
	prefs, err := s.prefs.Load(ctx)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Failed to load preferences, using defaults: %v", err))
		return entity.DefaultPreferences()
	}
	return prefs.Normalize()
}

// UpdatePreferences applies fn and saves the result.
func (s *foregroundScheduler) UpdatePreferences(ctx context.Context, fn func(*entity.Preferences)) (entity.Preferences, error) {
	prefs := s.Preferences(ctx)
	fn(&prefs)
	prefs = prefs.Normalize()
	if s.prefs == nil {
		return prefs, nil
	}
	if err := s.prefs.Save(ctx, prefs); err != nil {
		s.log.Error("Failed to save preferences", err)
		return prefs, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	return prefs, nil
}

// ActiveAlarms lists the reminders currently alerting.
func (s *foregroundScheduler) ActiveAlarms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Alarms lists the armed timers.
func (s *foregroundScheduler) Alarms() []entity.ScheduledAlarm {
	return s.timers.Snapshot()
}
