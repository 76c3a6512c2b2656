package scheduler

import (
	"sort"
	"sync"

	"medreminder/internal/domain/entity"

	"github.com/jonboulle/clockwork"
)

type armedTimer struct {
	timer clockwork.Timer
	alarm entity.ScheduledAlarm
	gen   uint64
}

// TimerSet holds at most one one-shot timer per reminder ID.
// Arming an ID replaces its previous timer; a replaced timer that was already
// firing is recognized by its generation and dropped.
type TimerSet struct {
	clock  clockwork.Clock
	mu     sync.Mutex
	gen    uint64
	timers map[string]*armedTimer
}

// NewTimerSet creates an empty timer set driven by clock.
func NewTimerSet(clock clockwork.Clock) *TimerSet {
	return &TimerSet{
		clock:  clock,
		timers: make(map[string]*armedTimer),
	}
}

// Arm schedules fn to run at alarm.FireAt. Past instants fire immediately.
func (s *TimerSet) Arm(alarm entity.ScheduledAlarm, fn func(entity.ScheduledAlarm)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[alarm.ReminderID]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	delay := alarm.FireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	t := s.clock.AfterFunc(delay, func() {
		if !s.take(alarm.ReminderID, gen) {
			return
		}
		fn(alarm)
	})
	s.timers[alarm.ReminderID] = &armedTimer{timer: t, alarm: alarm, gen: gen}
}

// take removes the entry for id if it still belongs to generation gen.
func (s *TimerSet) take(id string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.timers[id]
	if !ok || cur.gen != gen {
		return false
	}
	delete(s.timers, id)
	return true
}

// Disarm stops the timer for id. It reports whether one was armed.
func (s *TimerSet) Disarm(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.timers[id]
	if !ok {
		return false
	}
	cur.timer.Stop()
	delete(s.timers, id)
	return true
}

// DisarmAll stops every timer.
func (s *TimerSet) DisarmAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cur := range s.timers {
		cur.timer.Stop()
		delete(s.timers, id)
	}
}

// Get returns the alarm armed for id.
func (s *TimerSet) Get(id string) (entity.ScheduledAlarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.timers[id]
	if !ok {
		return entity.ScheduledAlarm{}, false
	}
	return cur.alarm, true
}

// Len returns the number of armed timers.
func (s *TimerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Snapshot returns the armed alarms ordered by fire time.
func (s *TimerSet) Snapshot() []entity.ScheduledAlarm {
	s.mu.Lock()
	out := make([]entity.ScheduledAlarm, 0, len(s.timers))
	for _, cur := range s.timers {
		out = append(out, cur.alarm)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ReminderID < out[j].ReminderID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}
