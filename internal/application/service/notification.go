package service

import (
	"fmt"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/gateway"
)

const defaultBody = "Time to take your medicine"

func notificationBody(dosage string) string {
	if dosage == "" {
		return defaultBody
	}
	return fmt.Sprintf("Dosage: %s", dosage)
}

func foregroundTitle(medicine string) string {
	return fmt.Sprintf("Time to take %s", medicine)
}

func backgroundTitle(medicine string) string {
	return fmt.Sprintf("Medicine Reminder: %s", medicine)
}

// reminderActions are the buttons attached to background notifications.
var reminderActions = []gateway.Action{
	{Action: string(constant.ActionSnooze), Title: "Snooze"},
	{Action: string(constant.ActionTaken), Title: "Taken"},
}
