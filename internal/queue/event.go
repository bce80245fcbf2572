// Package queue defines the change events emitted by write paths and the
// RabbitMQ publisher and consumer that carry them.
package queue

import (
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// Kind names a change.  Consumers switch on it; the cache invalidator maps
// it to the keys it must drop.
type Kind string

const (
	ReservationCreated       Kind = "reservation.created"
	ReservationCancelled     Kind = "reservation.cancelled"
	ReservationStatusChanged Kind = "reservation.status_changed"
	ReservationDeleted       Kind = "reservation.deleted"

	SeatCreated       Kind = "seat.created"
	SeatDeleted       Kind = "seat.deleted"
	SeatStatusChanged Kind = "seat.status_changed"

	RoomCreated         Kind = "study_room.created"
	RoomUpdated         Kind = "study_room.updated"
	RoomCapacityChanged Kind = "study_room.capacity_changed"
	RoomDeleted         Kind = "study_room.deleted"
)

// Event is the payload published for every mutation.  Fields that do not
// apply to a kind are left empty.
type Event struct {
	Kind          Kind      `json:"kind"`
	ReservationID string    `json:"reservation_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	SeatID        string    `json:"seat_id,omitempty"`
	SeatIDs       []string  `json:"seat_ids,omitempty"`
	StudyRoomID   string    `json:"study_room_id,omitempty"`
	Date          string    `json:"date,omitempty"`
	StartTime     string    `json:"start_time,omitempty"`
	EndTime       string    `json:"end_time,omitempty"`
	Status        string    `json:"status,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReservationEvent describes a change to r.
func ReservationEvent(kind Kind, r model.Reservation, at time.Time) Event {
	return Event{
		Kind:          kind,
		ReservationID: r.ID,
		UserID:        r.UserID,
		SeatID:        r.SeatID,
		StudyRoomID:   r.StudyRoomID,
		Date:          r.Date.String(),
		StartTime:     r.StartTime.String(),
		EndTime:       r.EndTime.String(),
		Status:        string(r.Status),
		OccurredAt:    at.UTC(),
	}
}

// SeatEvent describes a change to one seat.
func SeatEvent(kind Kind, s model.Seat, at time.Time) Event {
	return Event{
		Kind:        kind,
		SeatID:      s.ID,
		StudyRoomID: s.StudyRoomID,
		Status:      string(s.Status),
		OccurredAt:  at.UTC(),
	}
}

// RoomEvent describes a change to a room and, optionally, the seats it
// created or removed.
func RoomEvent(kind Kind, roomID string, seatIDs []string, at time.Time) Event {
	return Event{
		Kind:        kind,
		StudyRoomID: roomID,
		SeatIDs:     seatIDs,
		OccurredAt:  at.UTC(),
	}
}
