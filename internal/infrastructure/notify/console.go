// Package notify renders reminders on the terminal.
package notify

import (
	"context"
	"fmt"
	"io"
	"medreminder/internal/domain/gateway"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console is a gateway.Gateway and toaster that draws boxed alerts on a writer.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	perm   gateway.Permission
	seq    int
	box    lipgloss.Style
	title  lipgloss.Style
	hint   lipgloss.Style
	action lipgloss.Style
}

// NewConsole creates a console gateway. perm is what RequestPermission reports.
func NewConsole(out io.Writer, perm gateway.Permission) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:  out,
		perm: perm,
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 1),
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		hint:   r.NewStyle().Foreground(lipgloss.Color("240")),
		action: r.NewStyle().Foreground(lipgloss.Color("86")),
	}
}

// ParsePermission maps a configuration value to a permission. Unknown values mean default.
func ParsePermission(s string) gateway.Permission {
	switch gateway.Permission(strings.ToLower(strings.TrimSpace(s))) {
	case gateway.PermissionGranted:
		return gateway.PermissionGranted
	case gateway.PermissionDenied:
		return gateway.PermissionDenied
	default:
		return gateway.PermissionDefault
	}
}

// RequestPermission reports the configured permission.
func (c *Console) RequestPermission(ctx context.Context) (gateway.Permission, error) {
	return c.perm, nil
}

// Show draws a system-style notification.
func (c *Console) Show(ctx context.Context, n gateway.Notification) (gateway.Handle, error) {
	lines := []string{c.title.Render(n.Title), n.Body}
	if len(n.Actions) > 0 {
		labels := make([]string, len(n.Actions))
		for i, a := range n.Actions {
			labels[i] = c.action.Render("[" + a.Title + "]")
		}
		lines = append(lines, strings.Join(labels, " "))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if _, err := fmt.Fprintln(c.out, c.box.Render(strings.Join(lines, "\n"))); err != nil {
		return "", err
	}
	return gateway.Handle(fmt.Sprintf("console-%d", c.seq)), nil
}

// Toast draws an in-UI alert with the snooze hint.
func (c *Console) Toast(t gateway.Toast) {
	hint := fmt.Sprintf("snooze %s [minutes]  (default %d)  ·  taken %s  ·  dismiss %s", t.ReminderID, t.SnoozeMinutes, t.ReminderID, t.ReminderID)
	content := strings.Join([]string{c.title.Render(t.Title), t.Body, c.hint.Render(hint)}, "\n")

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.box.Render(content))
}
