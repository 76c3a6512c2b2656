package console

import (
	"bytes"
	"context"
	"medreminder/internal/application/service"
	"medreminder/internal/domain/entity"
	appErrors "medreminder/internal/pkg/errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubForeground implements only what the console calls.
type stubForeground struct {
	service.ForegroundScheduler
	reminders []*entity.Reminder
	prefs     entity.Preferences
	snoozed   map[string]int
	dismissed []string
	taken     []string
	hidden    bool
}

func newStub() *stubForeground {
	return &stubForeground{
		reminders: []*entity.Reminder{{ID: "r-1", MedicineName: "Aspirin", Time: "08:00"}},
		prefs:     entity.DefaultPreferences(),
		snoozed:   map[string]int{},
	}
}

func (s *stubForeground) Reminders() []*entity.Reminder { return s.reminders }
func (s *stubForeground) DueSoon(now time.Time) []*entity.Reminder {
	return s.reminders
}
func (s *stubForeground) Snooze(ctx context.Context, id string, minutes int) error {
	if id != "r-1" {
		return appErrors.ErrReminderNotFound
	}
	s.snoozed[id] = minutes
	return nil
}
func (s *stubForeground) Dismiss(id string)                                  { s.dismissed = append(s.dismissed, id) }
func (s *stubForeground) Taken(ctx context.Context, id string)               { s.taken = append(s.taken, id) }
func (s *stubForeground) OnHidden(ctx context.Context) error                 { s.hidden = true; return nil }
func (s *stubForeground) OnVisible(ctx context.Context) error                { s.hidden = false; return nil }
func (s *stubForeground) Preferences(ctx context.Context) entity.Preferences { return s.prefs }
func (s *stubForeground) UpdatePreferences(ctx context.Context, fn func(*entity.Preferences)) (entity.Preferences, error) {
	fn(&s.prefs)
	return s.prefs, nil
}

func newConsole(fg service.ForegroundScheduler) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 7, 45, 0, 0, time.Local))
	return New(fg, clock, &out), &out
}

func TestExecuteList(t *testing.T) {
	c, out := newConsole(newStub())

	require.NoError(t, c.Execute(context.Background(), "list"))
	assert.Contains(t, out.String(), "*08:00", "due-soon reminders are marked")
	assert.Contains(t, out.String(), "Aspirin")
}

func TestExecuteSnooze(t *testing.T) {
	fg := newStub()
	c, out := newConsole(fg)
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, "snooze r-1 10"))
	assert.Equal(t, 10, fg.snoozed["r-1"])
	assert.Contains(t, out.String(), "snoozed for 10 minutes")

	require.NoError(t, c.Execute(ctx, "snooze r-1"))
	assert.Equal(t, 0, fg.snoozed["r-1"], "zero asks the scheduler for the preferred duration")
	assert.Contains(t, out.String(), "snoozed for 5 minutes")

	assert.ErrorIs(t, c.Execute(ctx, "snooze r-1 soon"), appErrors.ErrValidation)
	assert.ErrorIs(t, c.Execute(ctx, "snooze r-9"), appErrors.ErrReminderNotFound)
}

func TestExecuteDismissTakenAndVisibility(t *testing.T) {
	fg := newStub()
	c, _ := newConsole(fg)
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, "dismiss r-1"))
	require.NoError(t, c.Execute(ctx, "taken r-1"))
	assert.Equal(t, []string{"r-1"}, fg.dismissed)
	assert.Equal(t, []string{"r-1"}, fg.taken)

	require.NoError(t, c.Execute(ctx, "hide"))
	assert.True(t, fg.hidden)
	require.NoError(t, c.Execute(ctx, "show"))
	assert.False(t, fg.hidden)

	assert.ErrorIs(t, c.Execute(ctx, "dismiss"), appErrors.ErrValidation)
}

func TestExecutePreferences(t *testing.T) {
	fg := newStub()
	c, _ := newConsole(fg)
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, "sound off"))
	assert.False(t, fg.prefs.SoundEnabled)
	require.NoError(t, c.Execute(ctx, "sound sound3"))
	assert.Equal(t, "sound3", fg.prefs.Sound)
	require.NoError(t, c.Execute(ctx, "volume 0.5"))
	assert.Equal(t, 0.5, fg.prefs.Volume)
	require.NoError(t, c.Execute(ctx, "snooze-default 15"))
	assert.Equal(t, 15, fg.prefs.SnoozeMinutes)

	assert.ErrorIs(t, c.Execute(ctx, "sound trumpet"), appErrors.ErrValidation)
	assert.ErrorIs(t, c.Execute(ctx, "volume 3"), appErrors.ErrValidation)
}

func TestExecuteQuitAndUnknown(t *testing.T) {
	c, _ := newConsole(newStub())
	ctx := context.Background()

	assert.ErrorIs(t, c.Execute(ctx, "quit"), ErrQuit)
	assert.ErrorIs(t, c.Execute(ctx, "launch"), appErrors.ErrValidation)
	assert.NoError(t, c.Execute(ctx, "   "))
}
