// Package duetime decides when a reminder is due. Every function is pure and
// derives its answer from the wall-clock instant it is given, so a freshly
// restarted process computes the same result as a long-running one.
package duetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"medreminder/internal/domain/entity"
	appErrors "medreminder/internal/pkg/errors"
)

// TimeOfDay is an hour and minute without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS". Seconds are discarded.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", appErrors.ErrInvalidTimeOfDay, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: bad hour in %q", appErrors.ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: bad minute in %q", appErrors.ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String formats the time of day as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// OccurrenceAt returns the instant of t on the calendar day of now, in now's location.
func OccurrenceAt(t TimeOfDay, now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, now.Location())
}

// NextOccurrence returns the next instant at which t fires.
// When now's hour:minute is at or past t, the occurrence moves to the next day,
// so a reminder saved at the very minute it names waits a full day.
func NextOccurrence(t TimeOfDay, now time.Time) time.Time {
	at := OccurrenceAt(t, now)
	if !at.After(now) {
		y, m, d := now.Date()
		at = time.Date(y, m, d+1, t.Hour, t.Minute, 0, 0, now.Location())
	}
	return at
}

// IsDueNow reports whether now's hour and minute equal t.
func IsDueNow(t TimeOfDay, now time.Time) bool {
	return now.Hour() == t.Hour && now.Minute() == t.Minute
}

// IsDueWithin is IsDueNow restricted to the first grace of the minute.
// Pollers use it so that several wake-ups inside one minute match only once.
func IsDueWithin(t TimeOfDay, now time.Time, grace time.Duration) bool {
	if !IsDueNow(t, now) {
		return false
	}
	intoMinute := time.Duration(now.Second())*time.Second + time.Duration(now.Nanosecond())
	return intoMinute < grace
}

// IsDueSoon reports whether the next occurrence is within window of now.
func IsDueSoon(t TimeOfDay, now time.Time, window time.Duration) bool {
	d := NextOccurrence(t, now).Sub(now)
	return d >= 0 && d <= window
}

// IsSnoozed reports whether entry exists and has not expired at now.
func IsSnoozed(entry *entity.SnoozeEntry, now time.Time) bool {
	return entry != nil && entry.Active(now)
}

// Upcoming returns the reminders whose occurrence today lies in [now, now+window].
// Reminders with an unparsable time are skipped.
func Upcoming(reminders []*entity.Reminder, now time.Time, window time.Duration) []*entity.Reminder {
	cutoff := now.Add(window)
	var out []*entity.Reminder
	for _, r := range reminders {
		tod, err := ParseTimeOfDay(r.Time)
		if err != nil {
			continue
		}
		at := OccurrenceAt(tod, now)
		if at.Before(now) || at.After(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}
