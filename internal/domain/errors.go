package domain

import "errors"

var (
	ErrUnknownApp      = errors.New("unknown notification app")
	ErrUnknownType     = errors.New("unknown notification type")
	ErrUnknownChannel  = errors.New("unknown notification channel")
	ErrInvalidCadence  = errors.New("invalid email cadence")
	ErrInvalidValue    = errors.New("invalid value for channel")
	ErrAppDisabled     = errors.New("notification app is disabled")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNoTarget is returned by mark-read when neither a notification id nor a known app is given.
	ErrNoTarget = errors.New("invalid app_name or notification_id")
)

// Reason returns the machine-readable code for err, or "internal_error" when err is not part of
// the taxonomy.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownApp):
		return "unknown_app"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrUnknownChannel):
		return "unknown_channel"
	case errors.Is(err, ErrInvalidCadence):
		return "invalid_cadence"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrAppDisabled):
		return "app_disabled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNoTarget):
		return "invalid_target"
	}
	return "internal_error"
}

// IsValidation reports whether err is a client error that left every record untouched.
func IsValidation(err error) bool {
	switch Reason(err) {
	case "unknown_app", "unknown_type", "unknown_channel", "invalid_cadence", "invalid_value", "app_disabled", "invalid_target":
		return true
	}
	return false
}
