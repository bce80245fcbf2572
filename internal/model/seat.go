package model

import (
	"strings"
	"time"
)

// SeatStatus is the physical, out-of-band availability of a seat.  It is
// independent of reservations: a seat under maintenance is UNAVAILABLE
// even when nobody booked it.
type SeatStatus string

const (
	SeatAvailable   SeatStatus = "AVAILABLE"
	SeatUnavailable SeatStatus = "UNAVAILABLE"
	SeatReserved    SeatStatus = "RESERVED"
)

func ParseSeatStatus(s string) (SeatStatus, bool) {
	switch v := SeatStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case SeatAvailable, SeatUnavailable, SeatReserved:
		return v, true
	}
	return "", false
}

// Seat describes a physical seat in a study room.  Seat numbers are unique
// within a room; rooms created with a capacity get "001".."N".
type Seat struct {
	ID          string     `json:"id"`            // seats.id
	SeatNumber  string     `json:"seat_number"`   // seats.seat_number
	StudyRoomID string     `json:"study_room_id"` // seats.study_room_id
	Status      SeatStatus `json:"status"`        // seats.status
	CreatedAt   time.Time  `json:"created_at"`    // seats.created_at
}

// Bookable reports whether the physical status allows reservations.
func (s Seat) Bookable() bool { return s.Status == SeatAvailable }
