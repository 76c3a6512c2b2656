package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/entity"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerSetFiresOnce(t *testing.T) {
	start := time.Date(2026, 3, 10, 13, 59, 0, 0, time.Local)
	fc := clockwork.NewFakeClockAt(start)
	set := NewTimerSet(fc)

	var fired atomic.Int32
	set.Arm(entity.ScheduledAlarm{ReminderID: "r1", FireAt: start.Add(time.Minute), Kind: constant.AlarmOccurrence}, func(a entity.ScheduledAlarm) {
		fired.Add(1)
	})
	assert.Equal(t, 1, set.Len())

	fc.Advance(30 * time.Second)
	assert.Equal(t, int32(0), fired.Load())

	fc.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, set.Len())

	fc.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestTimerSetRearmReplaces(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	fc := clockwork.NewFakeClockAt(start)
	set := NewTimerSet(fc)

	var first, second atomic.Int32
	set.Arm(entity.ScheduledAlarm{ReminderID: "r1", FireAt: start.Add(time.Minute)}, func(entity.ScheduledAlarm) { first.Add(1) })
	set.Arm(entity.ScheduledAlarm{ReminderID: "r1", FireAt: start.Add(2 * time.Minute)}, func(entity.ScheduledAlarm) { second.Add(1) })
	assert.Equal(t, 1, set.Len())

	got, ok := set.Get("r1")
	require.True(t, ok)
	assert.Equal(t, start.Add(2*time.Minute), got.FireAt)

	fc.Advance(3 * time.Minute)
	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestTimerSetDisarm(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	fc := clockwork.NewFakeClockAt(start)
	set := NewTimerSet(fc)

	var fired atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		set.Arm(entity.ScheduledAlarm{ReminderID: id, FireAt: start.Add(time.Minute)}, func(entity.ScheduledAlarm) { fired.Add(1) })
	}
	assert.True(t, set.Disarm("a"))
	assert.False(t, set.Disarm("a"))
	assert.Equal(t, 2, set.Len())

	set.DisarmAll()
	assert.Equal(t, 0, set.Len())

	fc.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestTimerSetSnapshotOrdered(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	set := NewTimerSet(clockwork.NewFakeClockAt(start))
	noop := func(entity.ScheduledAlarm) {}
	set.Arm(entity.ScheduledAlarm{ReminderID: "late", FireAt: start.Add(2 * time.Hour)}, noop)
	set.Arm(entity.ScheduledAlarm{ReminderID: "early", FireAt: start.Add(time.Hour)}, noop)

	snap := set.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "early", snap[0].ReminderID)
	assert.Equal(t, "late", snap[1].ReminderID)
}
