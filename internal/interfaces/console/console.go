// Package console is the interactive command loop of the foreground process.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"medreminder/internal/application/service"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/entity"
	appErrors "medreminder/internal/pkg/errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/jonboulle/clockwork"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

const help = `Commands:
  list                    show your reminders (* marks those due soon)
  due                     show reminders due in the next half hour
  alarms                  show armed timers and ringing alarms
  refresh                 re-fetch reminders from the server
  hide | show             hand scheduling to the server or take it back
  snooze <id> [minutes]   snooze a reminder
  dismiss <id>            silence an alarm
  taken <id>              mark a dose as taken
  sound on|off|<sound id> change the alarm sound
  volume <0..1>           change the alarm volume
  snooze-default <min>    change the default snooze duration
  prefs                   show preferences
  quit                    exit`

// Console reads commands and applies them to the foreground scheduler.
type Console struct {
	fg    service.ForegroundScheduler
	clock clockwork.Clock
	out   io.Writer
	head  lipgloss.Style
	due   lipgloss.Style
}

// New creates a Console that writes to out.
func New(fg service.ForegroundScheduler, clock clockwork.Clock, out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		fg:    fg,
		clock: clock,
		out:   out,
		head:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		due:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
}

// Completer lists the commands for readline tab completion.
func Completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("due"),
		readline.PcItem("alarms"),
		readline.PcItem("refresh"),
		readline.PcItem("hide"),
		readline.PcItem("show"),
		readline.PcItem("snooze"),
		readline.PcItem("dismiss"),
		readline.PcItem("taken"),
		readline.PcItem("sound", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("volume"),
		readline.PcItem("snooze-default"),
		readline.PcItem("prefs"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Run reads lines from rl until quit, EOF or interrupt.
func (c *Console) Run(ctx context.Context, rl *readline.Instance) error {
	fmt.Fprintln(c.out, c.head.Render("Medicine reminders")+"  (type help for commands)")
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if err := c.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

// Execute runs one command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(c.out, help)
		fmt.Fprintf(c.out, "Snooze presets: %s minutes\n", presets())
	case "quit", "exit":
		return ErrQuit
	case "list":
		c.printReminders("Reminders", c.fg.Reminders(), c.fg.DueSoon(c.clock.Now()))
	case "due":
		c.printReminders("Due soon", c.fg.DueSoon(c.clock.Now()), nil)
	case "alarms":
		c.printAlarms()
	case "refresh":
		if err := c.fg.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d reminders loaded\n", len(c.fg.Reminders()))
	case "hide":
		if err := c.fg.OnHidden(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "hidden: the server will deliver reminders")
	case "show":
		if err := c.fg.OnVisible(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "visible")
	case "snooze":
		return c.snooze(ctx, args)
	case "dismiss":
		id, err := oneID(cmd, args)
		if err != nil {
			return err
		}
		c.fg.Dismiss(id)
	case "taken":
		id, err := oneID(cmd, args)
		if err != nil {
			return err
		}
		c.fg.Taken(ctx, id)
		fmt.Fprintf(c.out, "%s marked as taken\n", id)
	case "sound":
		return c.sound(ctx, args)
	case "volume":
		return c.volume(ctx, args)
	case "snooze-default":
		return c.snoozeDefault(ctx, args)
	case "prefs":
		c.printPrefs(c.fg.Preferences(ctx))
	default:
		return fmt.Errorf("%w: unknown command %q", appErrors.ErrValidation, cmd)
	}
	return nil
}

func presets() string {
	out := make([]string, len(constant.SnoozePresets))
	for i, m := range constant.SnoozePresets {
		out[i] = strconv.Itoa(m)
	}
	return strings.Join(out, ", ")
}

func oneID(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: usage: %s <id>", appErrors.ErrValidation, cmd)
	}
	return args[0], nil
}

func (c *Console) snooze(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("%w: usage: snooze <id> [minutes]", appErrors.ErrValidation)
	}
	minutes := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: minutes must be a positive number (presets: %s)", appErrors.ErrValidation, presets())
		}
		minutes = n
	}
	if err := c.fg.Snooze(ctx, args[0], minutes); err != nil {
		return err
	}
	if minutes == 0 {
		minutes = c.fg.Preferences(ctx).SnoozeMinutes
	}
	fmt.Fprintf(c.out, "%s snoozed for %d minutes\n", args[0], minutes)
	return nil
}

func (c *Console) sound(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: sound on|off|<sound id>", appErrors.ErrValidation)
	}
	arg := strings.ToLower(args[0])
	var apply func(*entity.Preferences)
	switch arg {
	case "on":
		apply = func(p *entity.Preferences) { p.SoundEnabled = true }
	case "off":
		apply = func(p *entity.Preferences) { p.SoundEnabled = false }
	default:
		if constant.LookupSound(arg).ID != arg {
			return fmt.Errorf("%w: unknown sound %q", appErrors.ErrValidation, arg)
		}
		apply = func(p *entity.Preferences) { p.Sound = arg }
	}
	prefs, err := c.fg.UpdatePreferences(ctx, apply)
	if err != nil {
		return err
	}
	c.printPrefs(prefs)
	return nil
}

func (c *Console) volume(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: volume <0..1>", appErrors.ErrValidation)
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v <= 0 || v > 1 {
		return fmt.Errorf("%w: volume must be in (0, 1]", appErrors.ErrValidation)
	}
	prefs, err := c.fg.UpdatePreferences(ctx, func(p *entity.Preferences) { p.Volume = v })
	if err != nil {
		return err
	}
	c.printPrefs(prefs)
	return nil
}

func (c *Console) snoozeDefault(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: snooze-default <minutes>", appErrors.ErrValidation)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: minutes must be a positive number", appErrors.ErrValidation)
	}
	prefs, err := c.fg.UpdatePreferences(ctx, func(p *entity.Preferences) { p.SnoozeMinutes = n })
	if err != nil {
		return err
	}
	c.printPrefs(prefs)
	return nil
}

// printReminders lists reminders, highlighting those in soon.
func (c *Console) printReminders(title string, reminders, soon []*entity.Reminder) {
	fmt.Fprintln(c.out, c.head.Render(title))
	if len(reminders) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}
	dueSoon := make(map[string]bool, len(soon))
	for _, r := range soon {
		dueSoon[r.ID] = true
	}
	for _, r := range reminders {
		mark := " "
		if dueSoon[r.ID] {
			mark = c.due.Render("*")
		}
		line := fmt.Sprintf(" %s%s  %-12s %s", mark, r.Time, r.ID, r.MedicineName)
		if d := r.DosageText(); d != "" {
			line += " (" + d + ")"
		}
		fmt.Fprintln(c.out, line)
	}
}

func (c *Console) printAlarms() {
	fmt.Fprintln(c.out, c.head.Render("Armed"))
	alarms := c.fg.Alarms()
	if len(alarms) == 0 {
		fmt.Fprintln(c.out, "  (none)")
	}
	for _, a := range alarms {
		fmt.Fprintf(c.out, "  %s  %s (%s)\n", a.FireAt.Format("2006-01-02 15:04:05"), a.ReminderID, a.Kind)
	}
	if active := c.fg.ActiveAlarms(); len(active) > 0 {
		fmt.Fprintln(c.out, c.head.Render("Ringing"))
		fmt.Fprintln(c.out, "  "+strings.Join(active, ", "))
	}
}

func (c *Console) printPrefs(p entity.Preferences) {
	state := "off"
	if p.SoundEnabled {
		state = "on"
	}
	fmt.Fprintf(c.out, "sound %s (%s), volume %.1f, snooze %d minutes\n",
		state, constant.LookupSound(p.Sound).Name, p.Volume, p.SnoozeMinutes)
}
