package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"medreminder/internal/application/dto"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/entity"
	"medreminder/internal/domain/gateway"
	"medreminder/internal/domain/repository"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backgroundFixture struct {
	bg    BackgroundScheduler
	cache repository.CacheRepository
	gw    *fakeGateway
	peer  *fakeMessenger
	clock fakeClock
}

func newBackgroundFixture(t *testing.T, start time.Time, lookup ReminderLookup) *backgroundFixture {
	t.Helper()
	f := &backgroundFixture{
		cache: newCache(t),
		gw:    &fakeGateway{},
		peer:  &fakeMessenger{},
		clock: clockwork.NewFakeClockAt(start),
	}
	log := logger.Nop()
	coordinator := NewSnoozeCoordinator(f.cache, f.peer, log)
	f.bg = NewBackgroundScheduler(f.cache, coordinator, f.gw, f.peer, lookup, nil, f.clock, log, DefaultBackgroundOptions())
	t.Cleanup(f.bg.Stop)
	return f
}

func (f *backgroundFixture) seed(t *testing.T, id, hhmm string, freq constant.Frequency) {
	t.Helper()
	require.NoError(t, f.cache.UpsertReminder(context.Background(), entity.CachedReminder{
		ID:           id,
		UserID:       "u1",
		MedicineName: "Aspirin",
		Dosage:       "100mg",
		Frequency:    freq,
		Time:         hhmm,
	}))
}

func (f *backgroundFixture) waitIdle() {
	f.bg.(*backgroundScheduler).inflight.Wait()
}

func (f *backgroundFixture) alarmAt(want time.Time, kind constant.AlarmKind) func() bool {
	return func() bool {
		alarms := f.bg.Alarms()
		return len(alarms) == 1 && alarms[0].FireAt.Equal(want) && alarms[0].Kind == kind
	}
}

func TestBackgroundRestartArmsPendingOccurrence(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 13, 59, 0), nil)
	f.seed(t, "r1", "14:00", constant.FrequencyDaily)

	require.NoError(t, f.bg.Start(ctx))
	assert.True(t, f.alarmAt(at(10, 14, 0, 0), constant.AlarmOccurrence)())

	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return f.gw.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, f.alarmAt(at(11, 14, 0, 0), constant.AlarmOccurrence), time.Second, 5*time.Millisecond)

	n := f.gw.last()
	assert.Equal(t, "Medicine Reminder: Aspirin", n.Title)
	assert.Equal(t, "Dosage: 100mg", n.Body)
	assert.Equal(t, "r1", n.Tag)
	assert.Equal(t, "u1", n.OwnerID)
	assert.True(t, n.RequireInteraction)
	assert.Len(t, n.Actions, 2)
}

func TestBackgroundDeliversOncePerOccurrence(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)
	require.NoError(t, f.bg.Start(ctx))

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 1, f.gw.count())

	f.clock.Advance(5 * time.Second)
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 1, f.gw.count())
}

func TestBackgroundPollIgnoresLateMinute(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 30), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 0, f.gw.count())
}

func TestBackgroundSnoozeSuppressesThenArmsNextDay(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 8, 59, 30), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)
	require.NoError(t, f.bg.Start(ctx))

	until := at(10, 9, 10, 0)
	env := dto.MustEnvelope(dto.TypeSnoozeNotification, dto.SnoozePayload{ID: "r1", SnoozeUntil: until.UnixMilli()})
	require.NoError(t, f.bg.HandleMessage(ctx, env))
	assert.True(t, f.alarmAt(until, constant.AlarmSnoozeExpiry)())

	f.clock.Advance(30 * time.Second)
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 0, f.gw.count())

	f.clock.Advance(10 * time.Minute)
	require.Eventually(t, f.alarmAt(at(11, 9, 0, 0), constant.AlarmOccurrence), time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.gw.count())

	_, err := f.cache.FindAlarm(ctx, "r1")
	assert.Error(t, err)
	assert.Empty(t, f.peer.ofType(dto.TypeSnoozeNotification), "incoming snooze must not be echoed")
}

func TestBackgroundScheduleThenCancelNeverDelivers(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 8, 0, 0), nil)
	require.NoError(t, f.bg.Start(ctx))

	schedule := dto.MustEnvelope(dto.TypeScheduleNotification, dto.SchedulePayload{
		ID: "r9", Title: "Take Ibuprofen", Body: "Dosage: 200mg", Time: 60000, Medicine: "Ibuprofen",
	})
	require.NoError(t, f.bg.HandleMessage(ctx, schedule))
	assert.True(t, f.alarmAt(at(10, 8, 1, 0), constant.AlarmOverride)())

	cancel := dto.MustEnvelope(dto.TypeCancelNotification, dto.CancelPayload{ID: "r9"})
	require.NoError(t, f.bg.HandleMessage(ctx, cancel))
	assert.Empty(t, f.bg.Alarms())

	f.clock.Advance(2 * time.Minute)
	f.bg.CheckDue(ctx, at(10, 8, 1, 0))
	f.waitIdle()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, f.gw.count())

	_, err := f.cache.FindReminder(ctx, "r9")
	assert.Error(t, err)
}

func TestBackgroundScheduleDeliversOverride(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 8, 0, 0), nil)
	require.NoError(t, f.bg.Start(ctx))

	schedule := dto.MustEnvelope(dto.TypeScheduleNotification, dto.SchedulePayload{
		ID: "r9", Title: "Take Ibuprofen", Body: "Dosage: 200mg", Time: 60000, Medicine: "Ibuprofen",
	})
	require.NoError(t, f.bg.HandleMessage(ctx, schedule))

	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return f.gw.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Take Ibuprofen", f.gw.last().Title)

	require.Eventually(t, f.alarmAt(at(11, 8, 1, 0), constant.AlarmOccurrence), time.Second, 5*time.Millisecond)
	row, err := f.cache.FindReminder(ctx, "r9")
	require.NoError(t, err)
	assert.Nil(t, row.ScheduledAt)
}

func TestBackgroundOverrideCoversNaturalOccurrence(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 7, 0, 0), nil)
	f.seed(t, "r1", "08:00", constant.FrequencyDaily)
	require.NoError(t, f.bg.Start(ctx))

	// The relative delay is truncated to the millisecond, so the override lands just before 08:00.
	schedule := dto.MustEnvelope(dto.TypeScheduleNotification, dto.SchedulePayload{
		ID: "r1", Title: "Time to take Aspirin", Time: 3599700, Medicine: "Aspirin",
	})
	require.NoError(t, f.bg.HandleMessage(ctx, schedule))
	assert.True(t, f.alarmAt(at(10, 7, 59, 59).Add(700*time.Millisecond), constant.AlarmOverride)())

	f.clock.Advance(time.Hour - 300*time.Millisecond)
	require.Eventually(t, func() bool { return f.gw.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, f.alarmAt(at(10, 8, 0, 0), constant.AlarmOccurrence), time.Second, 5*time.Millisecond)

	f.clock.Advance(300 * time.Millisecond)
	require.Eventually(t, f.alarmAt(at(11, 8, 0, 0), constant.AlarmOccurrence), time.Second, 5*time.Millisecond)
	f.waitIdle()

	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.bg.HandleClick(ctx, "r1", constant.ActionTaken))
	f.clock.Advance(3 * time.Second)
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 1, f.gw.count())
}

func TestBackgroundActiveAlertCoversPoll(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	require.Equal(t, 1, f.gw.count())

	// Forget the occurrence key: only the active entry still blocks the next poll.
	bg := f.bg.(*backgroundScheduler)
	bg.mu.Lock()
	delete(bg.delivered, "r1")
	bg.mu.Unlock()

	f.clock.Advance(2 * time.Second)
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	require.NoError(t, f.bg.HandleClick(ctx, "r1", constant.ActionTaken))

	f.clock.Advance(3 * time.Second)
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 1, f.gw.count())
}

func TestBackgroundStoppedSchedulerDeliversNothing(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)
	require.NoError(t, f.bg.Start(ctx))

	f.bg.Stop()
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 0, f.gw.count())
}

func TestBackgroundWeeklyReminderRepeatsDaily(t *testing.T) {
	ctx := context.Background()
	// 2026-03-09 is a Monday.
	f := newBackgroundFixture(t, at(9, 8, 59, 0), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyWeekly)
	require.NoError(t, f.bg.Start(ctx))

	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return f.gw.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, f.alarmAt(at(10, 9, 0, 0), constant.AlarmOccurrence), time.Second, 5*time.Millisecond)
}

func TestBackgroundDefersToVisibleForeground(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	f.seed(t, "a", "09:00", constant.FrequencyDaily)
	f.seed(t, "b", "09:01", constant.FrequencyDaily)
	require.NoError(t, f.bg.Start(ctx))

	keepalive := dto.MustEnvelope(dto.TypeKeepalive, dto.KeepalivePayload{Timestamp: f.clock.Now().UnixMilli()})
	require.NoError(t, f.bg.HandleMessage(ctx, keepalive))
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 0, f.gw.count())

	f.bg.ForegroundDetached()
	f.clock.Advance(time.Minute)
	f.bg.CheckDue(ctx, f.clock.Now())
	require.Eventually(t, func() bool { return f.gw.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.gw.count())
	assert.Equal(t, "b", f.gw.last().Tag)
}

func TestBackgroundPermissionDeniedSuppresses(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	f.gw.perm = gateway.PermissionDenied
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 0, f.gw.count())
	assert.Empty(t, f.bg.ActiveAlarms())
}

func TestBackgroundDeliveryFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	f.gw.err = errors.New("push rejected")
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()

	f.gw.mu.Lock()
	f.gw.err = nil
	f.gw.mu.Unlock()
	f.clock.Advance(5 * time.Second)
	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 0, f.gw.count())
}

func TestBackgroundActiveClearsAfterHold(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, []string{"r1"}, f.bg.ActiveAlarms())

	f.clock.Advance(DefaultBackgroundOptions().DeliveredHold)
	require.Eventually(t, func() bool { return len(f.bg.ActiveAlarms()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestBackgroundClickSnoozePersistsAndForwards(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 5), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	require.Equal(t, []string{"r1"}, f.bg.ActiveAlarms())

	require.NoError(t, f.bg.HandleClick(ctx, "r1", constant.ActionSnooze))
	assert.Empty(t, f.bg.ActiveAlarms())

	until := at(10, 9, 5, 5)
	row, err := f.cache.FindAlarm(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, until.UnixMilli(), row.SnoozeUntil)
	assert.True(t, f.alarmAt(until, constant.AlarmSnoozeExpiry)())
	assert.Len(t, f.peer.ofType(dto.TypeSnoozeNotification), 1)

	require.Len(t, f.peer.forwarded, 1)
	var click dto.ClickPayload
	require.NoError(t, f.peer.forwarded[0].Decode(&click))
	assert.Equal(t, dto.ClickPayload{ID: "r1", Action: "snooze"}, click)
}

func TestBackgroundClickRejectsUnknownAction(t *testing.T) {
	f := newBackgroundFixture(t, at(10, 9, 0, 0), nil)
	err := f.bg.HandleClick(context.Background(), "r1", constant.ClickAction("later"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.peer.forwarded)
}

func TestBackgroundSyncDropsSnoozeOfEditedReminder(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 8, 0, 0), nil)
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)
	require.NoError(t, f.cache.PutAlarm(ctx, entity.NewSnoozeAlarm("r1", at(10, 9, 30, 0))))
	require.NoError(t, f.bg.Start(ctx))
	assert.True(t, f.alarmAt(at(10, 9, 30, 0), constant.AlarmSnoozeExpiry)())

	sync := dto.MustEnvelope(dto.TypeSyncReminders, dto.SyncPayload{
		Reminders: []dto.ReminderPayload{{
			ID: "r1", UserID: "u1", MedicineName: "Aspirin", Frequency: "daily", Time: "10:00",
		}},
		Preferences: &dto.PreferencesPayload{SoundEnabled: true, Sound: "sound2", Volume: 0.5, SnoozeMinutes: 15},
	})
	require.NoError(t, f.bg.HandleMessage(ctx, sync))

	_, err := f.cache.FindAlarm(ctx, "r1")
	assert.Error(t, err)
	assert.True(t, f.alarmAt(at(10, 10, 0, 0), constant.AlarmOccurrence)())

	require.NoError(t, f.bg.HandleClick(ctx, "r1", constant.ActionSnooze))
	row, err := f.cache.FindAlarm(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, at(10, 8, 15, 0).UnixMilli(), row.SnoozeUntil)
}

func TestBackgroundSyncRemovesMissingReminders(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 8, 0, 0), nil)
	f.seed(t, "old", "09:00", constant.FrequencyDaily)
	require.NoError(t, f.bg.Start(ctx))

	sync := dto.MustEnvelope(dto.TypeSyncReminders, dto.SyncPayload{
		Reminders: []dto.ReminderPayload{{ID: "new", UserID: "u1", MedicineName: "Vitamin D", Time: "12:30"}},
	})
	require.NoError(t, f.bg.HandleMessage(ctx, sync))

	alarms := f.bg.Alarms()
	require.Len(t, alarms, 1)
	assert.Equal(t, "new", alarms[0].ReminderID)
	_, err := f.cache.FindReminder(ctx, "old")
	assert.Error(t, err)
}

func TestBackgroundSyncKeepsOtherOwnersReminders(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 7, 59, 0), nil)
	require.NoError(t, f.cache.UpsertReminder(ctx, entity.CachedReminder{
		ID: "bob-1", UserID: "bob", MedicineName: "Metformin", Frequency: constant.FrequencyDaily, Time: "08:00",
	}))
	require.NoError(t, f.bg.Start(ctx))

	// Without a declared owner the payload's own user IDs scope the sync.
	sync := dto.MustEnvelope(dto.TypeSyncReminders, dto.SyncPayload{
		Reminders: []dto.ReminderPayload{{ID: "alice-1", UserID: "alice", MedicineName: "Vitamin D", Frequency: string(constant.FrequencyDaily), Time: "09:00"}},
	})
	require.NoError(t, f.bg.HandleMessage(ctx, sync))
	list, err := f.cache.ListReminders(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// An empty set for a declared owner clears only that owner.
	empty := dto.MustEnvelope(dto.TypeSyncReminders, dto.SyncPayload{Owner: "alice"})
	require.NoError(t, f.bg.HandleMessage(ctx, empty))
	list, err = f.cache.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob-1", list[0].ID)

	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return f.gw.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "bob-1", f.gw.last().Tag)
	assert.Equal(t, "bob", f.gw.last().OwnerID)
}

func TestBackgroundLookupNotFoundDropsReminder(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), &fakeLookup{err: appErrors.ErrReminderNotFound})
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 0, f.gw.count())
	_, err := f.cache.FindReminder(ctx, "r1")
	assert.Error(t, err)
}

func TestBackgroundLookupFailureFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 9, 0, 0), &fakeLookup{err: errors.New("store offline")})
	f.seed(t, "r1", "09:00", constant.FrequencyDaily)

	f.bg.CheckDue(ctx, f.clock.Now())
	f.waitIdle()
	assert.Equal(t, 1, f.gw.count())
}

func TestBackgroundApplyChange(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 8, 0, 0), nil)
	require.NoError(t, f.bg.Start(ctx))

	r := &entity.Reminder{ID: "r1", UserID: "u1", MedicineName: "Aspirin", Frequency: constant.FrequencyDaily, Time: "09:00"}
	f.bg.ApplyChange(ctx, ChangeEvent{Kind: ChangeCreated, Reminder: r})
	assert.True(t, f.alarmAt(at(10, 9, 0, 0), constant.AlarmOccurrence)())

	edited := *r
	edited.Time = "07:30"
	f.bg.ApplyChange(ctx, ChangeEvent{Kind: ChangeUpdated, Reminder: &edited})
	assert.True(t, f.alarmAt(at(11, 7, 30, 0), constant.AlarmOccurrence)())

	f.bg.ApplyChange(ctx, ChangeEvent{Kind: ChangeDeleted, Reminder: &edited})
	assert.Empty(t, f.bg.Alarms())
	_, err := f.cache.FindReminder(ctx, "r1")
	assert.Error(t, err)
}

func TestBackgroundRejectsBadMessages(t *testing.T) {
	ctx := context.Background()
	f := newBackgroundFixture(t, at(10, 8, 0, 0), nil)

	err := f.bg.HandleMessage(ctx, dto.Envelope{Type: "BOGUS", Version: dto.ProtocolVersion})
	assert.ErrorIs(t, err, appErrors.ErrInvalidMessage)

	err = f.bg.HandleMessage(ctx, dto.Envelope{Type: dto.TypeSnoozeNotification, Version: dto.ProtocolVersion})
	assert.ErrorIs(t, err, appErrors.ErrInvalidMessage)
}
