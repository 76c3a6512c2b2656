package gateway

import "context"

// Permission is the user's decision about OS-level alerts.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Action is a button attached to a notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Data is the structured payload carried by a notification so that a click
// handler with no other state can still tell which reminder it belongs to.
type Data struct {
	ReminderID string `json:"reminder_id"`
	Medicine   string `json:"medicine"`
	Dosage     string `json:"dosage,omitempty"`
	Frequency  string `json:"frequency,omitempty"`
}

// Notification is an alert to show. Tag is the reminder ID; the host replaces
// an existing notification with the same tag instead of stacking them.
type Notification struct {
	OwnerID            string
	Title              string
	Body               string
	Tag                string
	Actions            []Action
	Data               Data
	RequireInteraction bool
}

// Handle identifies a shown notification.
type Handle string

// Gateway is the host's permission-gated alert surface.
type Gateway interface {
	// RequestPermission returns the current permission, prompting if the host supports it.
	RequestPermission(ctx context.Context) (Permission, error)
	// Show displays the notification.
	Show(ctx context.Context, n Notification) (Handle, error)
}

// Toast is an in-UI alert that offers a snooze action.
type Toast struct {
	ReminderID    string
	Title         string
	Body          string
	SnoozeMinutes int
}
