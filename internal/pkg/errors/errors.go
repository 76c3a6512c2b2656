package errors

import "errors"

// Custom application errors
var (
	ErrReminderNotFound  = errors.New("reminder not found")                     // Reminder not found in the store or cache
	ErrInvalidTimeOfDay  = errors.New("invalid time of day")                    // Time field is not HH:MM
	ErrInvalidFrequency  = errors.New("invalid frequency")                      // Frequency outside daily/weekly/monthly/as-needed
	ErrValidation        = errors.New("validation failed")                      // Generic input validation error
	ErrDatabaseOperation = errors.New("database operation failed")              // Generic database error
	ErrScheduling        = errors.New("scheduling failed")                      // Generic scheduling error
	ErrPermissionDenied  = errors.New("notification permission not granted")    // Gateway refused to show alerts
	ErrDelivery          = errors.New("notification delivery failed")           // Gateway call failed
	ErrInvalidMessage    = errors.New("invalid cross-context message")          // Envelope could not be decoded
	ErrChannelClosed     = errors.New("cross-context channel is not connected") // Peer unreachable
	ErrInternalServer    = errors.New("internal server error")                  // Generic internal error
)
