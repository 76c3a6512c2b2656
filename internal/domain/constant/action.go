package constant

// ClickAction identifies what the user did with a delivered notification.
type ClickAction string

const (
	// ActionDefault is a plain click on the notification body.
	ActionDefault ClickAction = ""
	// ActionSnooze suppresses the reminder for the configured snooze window.
	ActionSnooze ClickAction = "snooze"
	// ActionTaken marks the dose as taken.
	ActionTaken ClickAction = "taken"
)

// AlarmKind tells why a timer was armed for a reminder.
type AlarmKind string

const (
	// AlarmOccurrence fires at the next natural occurrence of the time-of-day.
	AlarmOccurrence AlarmKind = "occurrence"
	// AlarmOverride fires at an explicit instant pushed by the foreground.
	AlarmOverride AlarmKind = "override"
	// AlarmSnoozeExpiry fires when a snooze window ends. It never alerts.
	AlarmSnoozeExpiry AlarmKind = "snooze-expiry"
)

// AlarmTypeSnooze is the type column value of snooze rows in the alarms table.
const AlarmTypeSnooze = "snooze"

// Default snooze presets in minutes, as offered by the UI.
var SnoozePresets = []int{5, 10, 15, 30, 60, 120}

// DefaultSnoozeMinutes is used when no preference is stored.
const DefaultSnoozeMinutes = 5
