package service

import (
	"sort"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// Overlaps reports whether [s1,e1) and [s2,e2) share any instant.
// Touching intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 model.Clock) bool {
	return s1 < e2 && s2 < e1
}

// FindConflicts returns the active reservations in existing that overlap
// [start,end) on date, ordered by start time.  The caller reports the
// first one.
func FindConflicts(existing []model.Reservation, date model.Date, start, end model.Clock) []model.Reservation {
	var out []model.Reservation
	for _, r := range existing {
		if !r.Active() || !r.Date.Equal(date) {
			continue
		}
		if Overlaps(start, end, r.StartTime, r.EndTime) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// Slot is a free interval within opening hours.
type Slot struct {
	Start model.Clock `json:"start_time"`
	End   model.Clock `json:"end_time"`
}

// FreeSlots returns the gaps between open and close not covered by any
// active reservation in booked.  booked need not be sorted.
func FreeSlots(open, closeAt model.Clock, booked []model.Reservation) []Slot {
	active := make([]model.Reservation, 0, len(booked))
	for _, r := range booked {
		if r.Active() {
			active = append(active, r)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StartTime < active[j].StartTime })

	slots := []Slot{}
	cursor := open
	for _, r := range active {
		if r.StartTime > cursor {
			end := r.StartTime
			if end > closeAt {
				end = closeAt
			}
			if end > cursor {
				slots = append(slots, Slot{Start: cursor, End: end})
			}
		}
		if r.EndTime > cursor {
			cursor = r.EndTime
		}
		if cursor >= closeAt {
			break
		}
	}
	if cursor < closeAt {
		slots = append(slots, Slot{Start: cursor, End: closeAt})
	}
	return slots
}
