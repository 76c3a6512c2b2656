package service

import (
	"context"
	"errors"
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
	"gorm.io/gorm"
)

type backgroundScheduler struct {
	cache   repository.CacheRepository
	snooze  SnoozeCoordinator
	gateway gateway.Gateway
	forward ClickForwarder
	lookup  ReminderLookup
	cron    *scheduler.Scheduler
	timers  *scheduler.TimerSet
	clock   clockwork.Clock
	log     logger.Logger
	opts    BackgroundOptions

	mu             sync.Mutex
	active         map[string]time.Time // id -> occurrence being alerted
	delivered      map[string]time.Time // id -> last handled occurrence
	prefs          entity.Preferences
	lastReconcile  time.Time
	foregroundSeen time.Time
	stopped        bool
	jobs           []cron.EntryID
	inflight       sync.WaitGroup
}

// NewBackgroundScheduler creates a new instance of BackgroundScheduler implementation.
// forward, lookup and cronScheduler may be nil. A non-nil lookup re-validates
// every reminder against the Reminder Store before it is delivered.
func NewBackgroundScheduler(
	cache repository.CacheRepository,
	snooze SnoozeCoordinator,
	gw gateway.Gateway,
	forward ClickForwarder,
	lookup ReminderLookup,
	cronScheduler *scheduler.Scheduler,
	clock clockwork.Clock,
	log logger.Logger,
	opts BackgroundOptions,
) BackgroundScheduler {
	prefs := entity.DefaultPreferences()
	if opts.DefaultSnoozeMinutes > 0 {
		prefs.SnoozeMinutes = opts.DefaultSnoozeMinutes
	}
	return &backgroundScheduler{
		cache:     cache,
		snooze:    snooze,
		gateway:   gw,
		forward:   forward,
		lookup:    lookup,
		cron:      cronScheduler,
		timers:    scheduler.NewTimerSet(clock),
		clock:     clock,
		log:       log,
		opts:      opts,
		active:    make(map[string]time.Time),
		delivered: make(map[string]time.Time),
		prefs:     prefs,
	}
}

// Start arms every cached reminder and registers the re-arm and poll jobs.
func (s *backgroundScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting background scheduler...")
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	s.Rearm(ctx)
	if s.cron == nil {
		return nil
	}

	rearmID, err := s.cron.AddJob(s.opts.RearmSpec, func() {
		s.Rearm(context.Background())
	})
	if err != nil {
		return fmt.Errorf("%w: re-arm job: %v", appErrors.ErrScheduling, err)
	}
	pollID, err := s.cron.AddJob(s.opts.PollSpec, func() {
		s.CheckDue(context.Background(), s.clock.Now())
	})
	if err != nil {
		s.cron.RemoveJob(rearmID)
		return fmt.Errorf("%w: poll job: %v", appErrors.ErrScheduling, err)
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, rearmID, pollID)
	s.mu.Unlock()
	s.log.Info(fmt.Sprintf("Background scheduler started (re-arm %s, poll %s)", s.opts.RearmSpec, s.opts.PollSpec))
	return nil
}

// Stop removes the periodic jobs and waits for in-flight deliveries.
func (s *backgroundScheduler) Stop() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.stopped = true
	s.mu.Unlock()
	if s.cron != nil {
		for _, id := range jobs {
			s.cron.RemoveJob(id)
		}
	}
	s.timers.DisarmAll()
	s.inflight.Wait()
	s.log.Info("Background scheduler stopped.")
}

// Rearm reloads the cache and recomputes every timer. A failed read keeps the
// timers that are already armed.
func (s *backgroundScheduler) Rearm(ctx context.Context) {
	reminders, err := s.cache.ListReminders(ctx)
	if err != nil {
		s.log.Error("Failed to load cached reminders, keeping current timers", err)
		return
	}
	snoozes := s.loadSnoozes(ctx)
	now := s.clock.Now()

	s.timers.DisarmAll()
	for i := range reminders {
		r := reminders[i]
		var entry *entity.SnoozeEntry
		if e, ok := snoozes[r.ID]; ok {
			entry = &e
		}
		s.arm(r, entry, now)
	}

	s.mu.Lock()
	s.lastReconcile = now
	s.mu.Unlock()
	s.log.Debug(fmt.Sprintf("Re-armed %d of %d cached reminders", s.timers.Len(), len(reminders)))
}

func (s *backgroundScheduler) loadSnoozes(ctx context.Context) map[string]entity.SnoozeEntry {
	out := make(map[string]entity.SnoozeEntry)
	alarms, err := s.cache.ListAlarms(ctx)
	if err != nil {
		s.log.Error("Failed to load snoozes, treating all reminders as not snoozed", err)
		return out
	}
	for _, a := range alarms {
		if a.Type != constant.AlarmTypeSnooze {
			continue
		}
		out[a.ID] = a.SnoozeEntry()
	}
	return out
}

// arm installs the single timer of r: snooze expiry while snoozed, then a
// pending override, then the next natural occurrence.
func (s *backgroundScheduler) arm(r entity.CachedReminder, snoozed *entity.SnoozeEntry, now time.Time) {
	if snoozed != nil && snoozed.Active(now) {
		s.timers.Arm(entity.ScheduledAlarm{ReminderID: r.ID, FireAt: snoozed.Until, Kind: constant.AlarmSnoozeExpiry}, s.onTimer)
		return
	}
	if r.ScheduledAt != nil && r.ScheduledAt.After(now) {
		s.timers.Arm(entity.ScheduledAlarm{ReminderID: r.ID, FireAt: *r.ScheduledAt, Kind: constant.AlarmOverride}, s.onTimer)
		return
	}
	tod, err := duetime.ParseTimeOfDay(r.Time)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Reminder %s has an invalid time %q, not scheduling", r.ID, r.Time))
		s.timers.Disarm(r.ID)
		return
	}
	s.timers.Arm(entity.ScheduledAlarm{
		ReminderID: r.ID,
		FireAt:     duetime.NextOccurrence(tod, now),
		Kind:       constant.AlarmOccurrence,
	}, s.onTimer)
}

// rearmOne arms r again, consulting its current snooze entry.
func (s *backgroundScheduler) rearmOne(ctx context.Context, r entity.CachedReminder) {
	entry, err := s.snooze.Entry(ctx, r.ID)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Failed to read snooze for reminder %s: %v", r.ID, err))
		entry = nil
	}
	s.arm(r, entry, s.clock.Now())
}

// track registers one in-flight delivery. It refuses once Stop has begun.
func (s *backgroundScheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *backgroundScheduler) onTimer(alarm entity.ScheduledAlarm) {
	if !s.track() {
		return
	}
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.DeliveryTimeout)
	defer cancel()

	r, err := s.cache.FindReminder(ctx, alarm.ReminderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(errors.Unwrap(err), gorm.ErrRecordNotFound) {
			s.log.Debug(fmt.Sprintf("Timer for removed reminder %s ignored", alarm.ReminderID))
			return
		}
		s.log.Error(fmt.Sprintf("Failed to load reminder %s for timer", alarm.ReminderID), err)
		return
	}

	switch alarm.Kind {
	case constant.AlarmSnoozeExpiry:
		s.onSnoozeExpired(ctx, *r)
	case constant.AlarmOverride:
		s.onOverride(ctx, *r, alarm)
	default:
		s.onOccurrence(ctx, *r, alarm)
	}
}

// onSnoozeExpired drops the expired snooze and arms the next natural occurrence.
// It never alerts on its own.
func (s *backgroundScheduler) onSnoozeExpired(ctx context.Context, r entity.CachedReminder) {
	now := s.clock.Now()
	entry, err := s.snooze.Entry(ctx, r.ID)
	if err == nil && entry != nil && entry.Active(now) {
		s.arm(r, entry, now)
		return
	}
	if err := s.snooze.ApplyCancel(ctx, r.ID); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to clear expired snooze for reminder %s: %v", r.ID, err))
	}
	s.log.Info(fmt.Sprintf("Snooze for reminder %s expired", r.ID))
	s.arm(r, nil, now)
}

func (s *backgroundScheduler) onOverride(ctx context.Context, r entity.CachedReminder, alarm entity.ScheduledAlarm) {
	now := s.clock.Now()
	if r.ScheduledAt == nil || !r.ScheduledAt.Equal(alarm.FireAt) {
		s.log.Debug(fmt.Sprintf("Stale override timer for reminder %s ignored", r.ID))
		s.rearmOne(ctx, r)
		return
	}
	if now.Sub(alarm.FireAt) < time.Minute {
		s.deliver(ctx, r, overrideOccurrence(r, alarm.FireAt))
	} else {
		s.log.Warn(fmt.Sprintf("Missed override for reminder %s at %s", r.ID, alarm.FireAt.Format(time.Kitchen)))
	}

	r.ScheduledAt = nil
	if err := s.cache.UpsertReminder(ctx, r); err != nil {
		s.log.Error(fmt.Sprintf("Failed to clear override of reminder %s", r.ID), err)
	}
	s.rearmOne(ctx, r)
}

// overrideOccurrence keys an override by the natural occurrence it stands in
// for when the two are less than a minute apart, so the natural timer and the
// poll see that occurrence as handled.
func overrideOccurrence(r entity.CachedReminder, fireAt time.Time) time.Time {
	tod, err := duetime.ParseTimeOfDay(r.Time)
	if err != nil {
		return fireAt
	}
	for _, near := range []time.Time{fireAt.Add(-time.Minute), fireAt, fireAt.Add(time.Minute)} {
		occ := duetime.OccurrenceAt(tod, near)
		if d := occ.Sub(fireAt); d > -time.Minute && d < time.Minute {
			return occ
		}
	}
	return fireAt
}

func (s *backgroundScheduler) onOccurrence(ctx context.Context, r entity.CachedReminder, alarm entity.ScheduledAlarm) {
	now := s.clock.Now()
	tod, err := duetime.ParseTimeOfDay(r.Time)
	if err != nil {
		return
	}
	switch {
	case !duetime.OccurrenceAt(tod, now).Equal(alarm.FireAt):
		s.log.Debug(fmt.Sprintf("Stale timer for reminder %s ignored", r.ID))
	case !duetime.IsDueNow(tod, now):
		s.log.Warn(fmt.Sprintf("Missed occurrence of reminder %s at %s", r.ID, alarm.FireAt.Format(time.Kitchen)))
	default:
		s.deliver(ctx, r, alarm.FireAt)
	}
	s.rearmOne(ctx, r)
}

// CheckDue delivers every cached reminder that is due at now within the grace window.
func (s *backgroundScheduler) CheckDue(ctx context.Context, now time.Time) {
	reminders, err := s.cache.ListReminders(ctx)
	if err != nil {
		s.log.Error("Failed to load cached reminders for due check", err)
		return
	}
	for i := range reminders {
		r := reminders[i]
		tod, err := duetime.ParseTimeOfDay(r.Time)
		if err != nil || !duetime.IsDueWithin(tod, now, s.opts.DueGrace) {
			continue
		}
		occurrence := duetime.OccurrenceAt(tod, now)
		if !s.track() {
			return
		}
		go func() {
			defer s.inflight.Done()
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DeliveryTimeout)
			defer cancel()
			if s.deliver(dctx, r, occurrence) {
				s.rearmOne(dctx, r)
			}
		}()
	}
}

// deliver runs the pre-delivery checks and hands the alert to the gateway.
// It reports whether a notification was shown.
func (s *backgroundScheduler) deliver(ctx context.Context, r entity.CachedReminder, occurrence time.Time) bool {
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
		// The alert on screen covers this occurrence too.
		s.delivered[r.ID] = occurrence
		s.mu.Unlock()
		return false
	}
	s.delivered[r.ID] = occurrence
	if s.foregroundAttachedLocked(now) {
		s.mu.Unlock()
		s.log.Info(fmt.Sprintf("Foreground is visible, leaving reminder %s to it", r.ID))
		return false
	}
	s.active[r.ID] = occurrence
	s.mu.Unlock()

	if s.lookup != nil {
		if _, err := s.lookup.Get(ctx, r.ID); err != nil {
			if errors.Is(err, appErrors.ErrReminderNotFound) {
				s.log.Warn(fmt.Sprintf("Reminder %s no longer exists, dropping it", r.ID))
				s.clearActive(r.ID, occurrence)
				s.remove(ctx, r.ID)
				return false
			}
			s.log.Warn(fmt.Sprintf("Could not re-validate reminder %s, using cached copy: %v", r.ID, err))
		}
	}

	perm, err := s.gateway.RequestPermission(ctx)
	if err != nil || perm != gateway.PermissionGranted {
		s.log.Debug(fmt.Sprintf("Notification permission is %q, suppressing reminder %s", perm, r.ID))
		s.clearActive(r.ID, occurrence)
		return false
	}

	if _, err := s.gateway.Show(ctx, s.notification(r)); err != nil {
		s.log.Error(fmt.Sprintf("Missed reminder %s", r.ID), fmt.Errorf("%w: %v", appErrors.ErrDelivery, err))
		s.clearActive(r.ID, occurrence)
		return false
	}
	s.log.Info(fmt.Sprintf("Delivered reminder %s (%s) for %s", r.ID, r.MedicineName, occurrence.Format(time.Kitchen)))

	s.clock.AfterFunc(s.opts.DeliveredHold, func() {
		s.clearActive(r.ID, occurrence)
	})
	return true
}

func (s *backgroundScheduler) notification(r entity.CachedReminder) gateway.Notification {
	title := r.Title
	if title == "" {
		title = backgroundTitle(r.MedicineName)
	}
	body := r.Body
	if body == "" {
		body = notificationBody(r.Dosage)
	}
	return gateway.Notification{
		OwnerID:            r.UserID,
		Title:              title,
		Body:               body,
		Tag:                r.ID,
		Actions:            reminderActions,
		RequireInteraction: true,
		Data: gateway.Data{
			ReminderID: r.ID,
			Medicine:   r.MedicineName,
			Dosage:     r.Dosage,
			Frequency:  string(r.Frequency),
		},
	}
}

func (s *backgroundScheduler) foregroundAttachedLocked(now time.Time) bool {
	return !s.foregroundSeen.IsZero() && now.Sub(s.foregroundSeen) <= s.opts.ForegroundLease
}

func (s *backgroundScheduler) clearActive(id string, occurrence time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.active[id]; ok && at.Equal(occurrence) {
		delete(s.active, id)
	}
}

// remove drops every trace of id: timer, cached row, snooze and bookkeeping.
func (s *backgroundScheduler) remove(ctx context.Context, id string) {
	s.timers.Disarm(id)
	if err := s.snooze.ApplyCancel(ctx, id); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to drop snooze of reminder %s: %v", id, err))
	}
	if err := s.cache.DeleteReminder(ctx, id); err != nil {
		s.log.Error(fmt.Sprintf("Failed to delete cached reminder %s", id), err)
	}
	s.mu.Lock()
	delete(s.active, id)
	delete(s.delivered, id)
	s.mu.Unlock()
}

// HandleMessage applies one message from a foreground.
func (s *backgroundScheduler) HandleMessage(ctx context.Context, env dto.Envelope) error {
	switch env.Type {
	case dto.TypeScheduleNotification:
		var p dto.SchedulePayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		return s.schedule(ctx, p)
	case dto.TypeSnoozeNotification:
		var p dto.SnoozePayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		return s.applySnooze(ctx, p.ID, time.UnixMilli(p.SnoozeUntil))
	case dto.TypeCancelNotification:
		var p dto.CancelPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		s.remove(ctx, p.ID)
		s.log.Info(fmt.Sprintf("Cancelled reminder %s", p.ID))
		return nil
	case dto.TypeSyncReminders:
		var p dto.SyncPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		return s.sync(ctx, p)
	case dto.TypeKeepalive:
		s.keepalive(ctx)
		return nil
	case dto.TypeNotificationClicked, dto.TypeRemindersChanged:
		s.log.Debug(fmt.Sprintf("Ignoring %s from foreground", env.Type))
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", appErrors.ErrInvalidMessage, env.Type)
	}
}

// schedule stores a one-shot override for the reminder, creating the cached
// row when the foreground knows a reminder the cache does not.
func (s *backgroundScheduler) schedule(ctx context.Context, p dto.SchedulePayload) error {
	if p.ID == "" {
		return fmt.Errorf("%w: schedule without id", appErrors.ErrInvalidMessage)
	}
	now := s.clock.Now()
	at := now.Add(time.Duration(p.Time) * time.Millisecond)

	row := entity.CachedReminder{
		ID:           p.ID,
		MedicineName: p.Medicine,
		Dosage:       p.Dosage,
		Frequency:    constant.Frequency(p.Frequency),
		Time:         at.Format("15:04"),
	}
	existing, err := s.cache.FindReminder(ctx, p.ID)
	switch {
	case err == nil:
		row = *existing
	case !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(errors.Unwrap(err), gorm.ErrRecordNotFound):
		s.log.Error(fmt.Sprintf("Failed to load cached reminder %s for schedule", p.ID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	row.Title = p.Title
	row.Body = p.Body
	row.ScheduledAt = &at
	row.SyncedAt = now

	if err := s.cache.UpsertReminder(ctx, row); err != nil {
		s.log.Error(fmt.Sprintf("Failed to store schedule for reminder %s", p.ID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.rearmOne(ctx, row)
	s.log.Info(fmt.Sprintf("Scheduled reminder %s at %s", p.ID, at.Format(time.Kitchen)))
	return nil
}

func (s *backgroundScheduler) applySnooze(ctx context.Context, id string, until time.Time) error {
	if err := s.snooze.ApplySnooze(ctx, id, until); err != nil {
		return err
	}
	s.suppress(id, until)
	return nil
}

// suppress replaces the timer of id with its snooze expiry and clears the active entry.
func (s *backgroundScheduler) suppress(id string, until time.Time) {
	s.timers.Disarm(id)
	if until.After(s.clock.Now()) {
		s.timers.Arm(entity.ScheduledAlarm{ReminderID: id, FireAt: until, Kind: constant.AlarmSnoozeExpiry}, s.onTimer)
	}
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// syncOwners names the owners whose cached reminders a sync replaces: the
// declared owner, else every owner present in the payload. Empty means the
// whole cache.
func syncOwners(p dto.SyncPayload) []string {
	if p.Owner != "" {
		return []string{p.Owner}
	}
	seen := make(map[string]bool)
	var owners []string
	for _, r := range p.Reminders {
		if r.UserID != "" && !seen[r.UserID] {
			seen[r.UserID] = true
			owners = append(owners, r.UserID)
		}
	}
	return owners
}

// sync replaces the syncing owner's cached reminders with the foreground's
// set. Other owners' rows are left alone. A snooze on a reminder that
// disappeared or whose time changed is dropped.
func (s *backgroundScheduler) sync(ctx context.Context, p dto.SyncPayload) error {
	now := s.clock.Now()
	owners := syncOwners(p)
	scoped := make(map[string]bool, len(owners))
	for _, o := range owners {
		scoped[o] = true
	}

	previous := make(map[string]entity.CachedReminder)
	if old, err := s.cache.ListReminders(ctx); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to read cache before sync: %v", err))
	} else {
		for _, r := range old {
			if len(scoped) == 0 || scoped[r.UserID] {
				previous[r.ID] = r
			}
		}
	}

	rows := make([]entity.CachedReminder, 0, len(p.Reminders))
	for _, payload := range p.Reminders {
		row := entity.NewCachedReminder(payload.Entity(), now)
		if prev, ok := previous[row.ID]; ok {
			if prev.Time != row.Time {
				s.dropSnooze(ctx, row.ID)
			}
			delete(previous, row.ID)
		}
		rows = append(rows, row)
	}

	var err error
	if len(owners) == 0 {
		err = s.cache.ReplaceReminders(ctx, rows)
	} else {
		err = s.cache.ReplaceOwnerReminders(ctx, owners, rows)
	}
	if err != nil {
		s.log.Error("Failed to replace cached reminders", err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	for id := range previous {
		s.dropSnooze(ctx, id)
	}

	s.mu.Lock()
	for id := range previous {
		delete(s.active, id)
		delete(s.delivered, id)
	}
	if p.Preferences != nil {
		s.prefs = p.Preferences.Entity()
	}
	s.foregroundSeen = time.Time{}
	s.mu.Unlock()

	s.Rearm(ctx)
	s.log.Info(fmt.Sprintf("Synced %d reminders from foreground for %v", len(rows), owners))
	return nil
}

func (s *backgroundScheduler) dropSnooze(ctx context.Context, id string) {
	if err := s.snooze.ApplyCancel(ctx, id); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to drop snooze of reminder %s: %v", id, err))
	}
}

func (s *backgroundScheduler) keepalive(ctx context.Context) {
	now := s.clock.Now()
	s.mu.Lock()
	s.foregroundSeen = now
	stale := now.Sub(s.lastReconcile) > s.opts.StaleSyncAfter
	s.mu.Unlock()
	if stale {
		s.log.Info("Last reconciliation is stale, re-arming")
		s.Rearm(ctx)
	}
}

// ForegroundDetached ends the foreground lease.
func (s *backgroundScheduler) ForegroundDetached() {
	s.mu.Lock()
	s.foregroundSeen = time.Time{}
	s.mu.Unlock()
	s.log.Debug("Foreground detached")
}

// HandleClick reacts to a notification click and forwards it to a foreground.
func (s *backgroundScheduler) HandleClick(ctx context.Context, id string, action constant.ClickAction) error {
	if id == "" {
		return fmt.Errorf("%w: click without reminder id", appErrors.ErrValidation)
	}
	switch action {
	case constant.ActionSnooze:
		s.mu.Lock()
		minutes := s.prefs.SnoozeMinutes
		s.mu.Unlock()
		until := s.clock.Now().Add(time.Duration(minutes) * time.Minute)
		if err := s.snooze.Snooze(ctx, id, until); err != nil {
			s.log.Error(fmt.Sprintf("Failed to snooze reminder %s", id), err)
		}
		s.suppress(id, until)
	case constant.ActionTaken:
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
		s.log.Info(fmt.Sprintf("Reminder %s marked as taken", id))
	case constant.ActionDefault:
	default:
		return fmt.Errorf("%w: unknown action %q", appErrors.ErrValidation, action)
	}

	if s.forward != nil {
		env := dto.MustEnvelope(dto.TypeNotificationClicked, dto.ClickPayload{ID: id, Action: string(action)})
		if err := s.forward.Forward(ctx, env); err != nil {
			s.log.Warn(fmt.Sprintf("Failed to forward click on reminder %s: %v", id, err))
		}
	}
	return nil
}

// ApplyChange mirrors a Reminder Store change into the cache.
func (s *backgroundScheduler) ApplyChange(ctx context.Context, evt ChangeEvent) {
	if evt.Reminder == nil {
		return
	}
	id := evt.Reminder.ID
	if evt.Kind == ChangeDeleted {
		s.remove(ctx, id)
		return
	}

	row := entity.NewCachedReminder(evt.Reminder, s.clock.Now())
	prev, err := s.cache.FindReminder(ctx, id)
	if err == nil {
		if prev.Time != row.Time {
			s.dropSnooze(ctx, id)
		}
		row.Title = prev.Title
		row.Body = prev.Body
		row.ScheduledAt = prev.ScheduledAt
	}
	if err := s.cache.UpsertReminder(ctx, row); err != nil {
		s.log.Error(fmt.Sprintf("Failed to cache reminder %s", id), err)
		return
	}
	s.rearmOne(ctx, row)
}

// Alarms lists the armed timers.
func (s *backgroundScheduler) Alarms() []entity.ScheduledAlarm {
	return s.timers.Snapshot()
}

// ActiveAlarms lists the reminders currently being alerted.
func (s *backgroundScheduler) ActiveAlarms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
