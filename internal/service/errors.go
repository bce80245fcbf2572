package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

var (
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may not touch the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials covers unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a request that breaks a business rule before
// anything was written.  Code is a stable machine-readable identifier.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a clash with existing state.  Conflict is set when
// the clash is with a specific reservation.
type ConflictError struct {
	Code     string
	Message  string
	Conflict *model.Reservation
}

func (e *ConflictError) Error() string { return e.Message }

func conflict(code, format string, args ...any) error {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// BlacklistedError rejects a blacklisted user.  Remaining is floored at 0.
type BlacklistedError struct {
	Remaining time.Duration
}

func (e *BlacklistedError) Error() string {
	return fmt.Sprintf("user is blacklisted for another %s", e.Remaining.Round(time.Minute))
}

// RemainingMillis is the remaining blacklist time in milliseconds.
func (e *BlacklistedError) RemainingMillis() int64 { return e.Remaining.Milliseconds() }

// CheckInTimeError rejects a check-in outside [start-15m, end].
type CheckInTimeError struct {
	TooEarly    bool
	WindowStart time.Time
	WindowEnd   time.Time
}

func (e *CheckInTimeError) Code() string {
	if e.TooEarly {
		return "check_in_too_early"
	}
	return "check_in_too_late"
}

func (e *CheckInTimeError) Error() string {
	if e.TooEarly {
		return fmt.Sprintf("check-in opens at %s", e.WindowStart.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("check-in closed at %s", e.WindowEnd.Format("2006-01-02 15:04"))
}

// Error codes shared with the HTTP layer.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeSeatUnavailable    = "seat_unavailable"
	CodeRoomUnavailable    = "room_unavailable"
	CodeOutsideHours       = "outside_opening_hours"
	CodeDateOutOfRange     = "date_out_of_range"
	CodeDailyLimit         = "daily_limit_reached"
	CodeSeatConflict       = "seat_time_conflict"
	CodeUserConflict       = "user_time_conflict"
	CodeInvalidState       = "invalid_status_transition"
	CodeDuplicate          = "duplicate"
	CodeHasReservations    = "has_reservations"
	CodeNoSeatAvailable    = "no_seat_available"
	CodeAlreadyBlacklisted = "already_blacklisted"
	CodeNotBlacklisted     = "not_blacklisted"
	CodeWrongPassword      = "wrong_password"
	CodeAlreadyProcessed   = "already_processed"
)
