package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ReservationStatus is the single source of truth for reservation states.
// Rows written by older clients may still carry "PENDING"; it is read as
// CONFIRMED.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCheckedIn ReservationStatus = "CHECKED_IN"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusNoShow    ReservationStatus = "NO_SHOW"
	StatusCompleted ReservationStatus = "COMPLETED"

	legacyPending = "PENDING"
)

// ParseReservationStatus normalizes s and reports whether it names a known
// status.
func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case legacyPending, string(StatusConfirmed):
		return StatusConfirmed, true
	case string(StatusCheckedIn), string(StatusCancelled), string(StatusNoShow), string(StatusCompleted):
		return ReservationStatus(v), true
	}
	return "", false
}

func (s ReservationStatus) Value() (driver.Value, error) { return string(s), nil }

func (s *ReservationStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into ReservationStatus", src)
	}
	st, ok := ParseReservationStatus(raw)
	if !ok {
		return fmt.Errorf("unknown reservation status %q", raw)
	}
	*s = st
	return nil
}

// Reservation is a booking of one seat for one time interval on one day.
//
// Fields:
//
//	ID          – UUID primary key.
//	UserID      – booking user.
//	SeatID      – booked seat.
//	StudyRoomID – room of the seat, denormalized for room-level queries.
//	Date        – calendar day of the booking.
//	StartTime   – inclusive start, minute precision.
//	EndTime     – exclusive end, minute precision.
//	Status      – lifecycle state.
//	IsDeleted   – soft-delete flag set by admins; purged after a week.
//	AdjustedBy  – admin who forced a status change.
type Reservation struct {
	ID          string            `json:"id"`            // reservations.id
	UserID      string            `json:"user_id"`       // reservations.user_id
	SeatID      string            `json:"seat_id"`       // reservations.seat_id
	StudyRoomID string            `json:"study_room_id"` // reservations.study_room_id
	Date        Date              `json:"date"`          // reservations.reservation_date
	StartTime   Clock             `json:"start_time"`    // reservations.start_time
	EndTime     Clock             `json:"end_time"`      // reservations.end_time
	Status      ReservationStatus `json:"status"`        // reservations.status
	Remarks     string            `json:"remarks,omitempty"`
	IsDeleted   bool              `json:"is_deleted"`
	DeletedBy   *string           `json:"deleted_by,omitempty"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty"`
	AdjustedBy  *string           `json:"adjusted_by,omitempty"`
	AdjustedAt  *time.Time        `json:"adjusted_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Active reports whether the reservation still occupies its interval.
func (r Reservation) Active() bool {
	return !r.IsDeleted && r.Status != StatusCancelled
}

// StartsAt is the absolute start instant in loc.
func (r Reservation) StartsAt(loc *time.Location) time.Time {
	return r.Date.At(r.StartTime, loc)
}

// EndsAt is the absolute end instant in loc.
func (r Reservation) EndsAt(loc *time.Location) time.Time {
	return r.Date.At(r.EndTime, loc)
}
