package model

import (
	"fmt"
	"strings"
	"time"
)

// RoomStatus is the administrative state of a study room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "AVAILABLE"
	RoomUnavailable RoomStatus = "UNAVAILABLE"
	RoomMaintenance RoomStatus = "MAINTENANCE"
)

func ParseRoomStatus(s string) (RoomStatus, bool) {
	switch v := RoomStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case RoomAvailable, RoomUnavailable, RoomMaintenance:
		return v, true
	}
	return "", false
}

// StudyRoom represents a bookable room.  OpenTime and CloseTime bound every
// reservation made in the room; Capacity equals the number of seats it was
// provisioned with.
type StudyRoom struct {
	ID             string     `json:"id"`               // study_rooms.id
	Name           string     `json:"name"`             // study_rooms.name
	Location       string     `json:"location"`         // study_rooms.location
	Capacity       int        `json:"capacity"`         // study_rooms.capacity
	Description    string     `json:"description"`      // study_rooms.description
	OpenTime       Clock      `json:"open_time"`        // study_rooms.open_time
	CloseTime      Clock      `json:"close_time"`       // study_rooms.close_time
	MaxAdvanceDays int        `json:"max_advance_days"` // study_rooms.max_advance_days
	Status         RoomStatus `json:"status"`           // study_rooms.status
	ImageURL       string     `json:"image_url"`        // study_rooms.image_url
	CreatedAt      time.Time  `json:"created_at"`       // study_rooms.created_at
}

// Contains reports whether [start,end] lies within the opening hours.
func (r StudyRoom) Contains(start, end Clock) bool {
	return !start.Before(r.OpenTime) && !end.After(r.CloseTime)
}

// IsOpenAt reports whether c is within opening hours, bounds included.
func (r StudyRoom) IsOpenAt(c Clock) bool {
	return !c.Before(r.OpenTime) && !c.After(r.CloseTime)
}

// SeatNumber formats the n-th provisioned seat number ("001").
func SeatNumber(n int) string {
	return fmt.Sprintf("%03d", n)
}
