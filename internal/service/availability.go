package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/cache"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// View statuses.  They extend the physical seat and room statuses with
// states derived from reservations.
const (
	ViewAvailable        = "AVAILABLE"
	ViewUnavailable      = "UNAVAILABLE"
	ViewClosed           = "CLOSED"
	ViewReserved         = "RESERVED"
	ViewOccupied         = "OCCUPIED"
	ViewEmpty            = "EMPTY"
	ViewFull             = "FULL"
	ViewNoAvailableSeats = "NO_AVAILABLE_SEATS"
)

// DefaultAdvanceDays applies to rooms without a positive MaxAdvanceDays.
const DefaultAdvanceDays = 7

// Window is a time-of-day interval used by the room views.
type Window struct {
	Start model.Clock `json:"start_time"`
	End   model.Clock `json:"end_time"`
}

// AvailabilityService answers read-only questions about seats and rooms.
// Nothing here writes to the database.
type AvailabilityService struct {
	Deps
	Cache *cache.Cache
}

func NewAvailabilityService(d Deps, c *cache.Cache) *AvailabilityService {
	return &AvailabilityService{Deps: d, Cache: c}
}

// DefaultWindow is [current hour, current hour + 1h].
func (s *AvailabilityService) DefaultWindow() Window {
	start := model.ClockOf(s.now()).Truncate()
	return Window{Start: start, End: start.Add(time.Hour)}
}

// ResolveWindow fills a missing bound: start defaults to the current hour
// and end to start plus one hour.
func (s *AvailabilityService) ResolveWindow(start, end *model.Clock) (Window, error) {
	w := s.DefaultWindow()
	if start != nil {
		w.Start = *start
		w.End = w.Start.Add(time.Hour)
	}
	if end != nil {
		w.End = *end
	}
	if w.End.Before(w.Start) {
		return w, invalid(CodeInvalidRequest, "end time must not be before start time")
	}
	return w, nil
}

type SeatInfo struct {
	ID             string           `json:"id"`
	SeatNumber     string           `json:"seat_number"`
	StudyRoomID    string           `json:"study_room_id"`
	StudyRoomName  string           `json:"study_room_name"`
	PhysicalStatus model.SeatStatus `json:"physical_status"`
}

type TimeInfo struct {
	Date      model.Date  `json:"date"`
	StartTime model.Clock `json:"start_time"`
	EndTime   model.Clock `json:"end_time"`
}

// SeatAvailability answers "can this seat be booked for this interval".
type SeatAvailability struct {
	Available   bool                `json:"available"`
	Message     string              `json:"message"`
	SeatInfo    *SeatInfo           `json:"seat_info,omitempty"`
	TimeInfo    *TimeInfo           `json:"time_info,omitempty"`
	Overlapping []model.Reservation `json:"overlapping_reservations,omitempty"`
}

// CheckSeat runs the booking checks that do not depend on the user.  A
// missing seat or room is an error; every other failure is reported as
// Available=false with a message.
func (s *AvailabilityService) CheckSeat(ctx context.Context, seatID string, date model.Date, start, end model.Clock) (*SeatAvailability, error) {
	if !start.Before(end) {
		return nil, invalid(CodeInvalidRequest, "start time must be before end time")
	}
	seat, err := s.Stores.Seats.GetByID(ctx, seatID)
	if err != nil {
		return nil, notFound("seat", err)
	}
	room, err := s.Stores.Rooms.GetByID(ctx, seat.StudyRoomID)
	if err != nil {
		return nil, notFound("study room", err)
	}

	if !room.Contains(start, end) {
		return &SeatAvailability{Message: fmt.Sprintf("outside opening hours (%s - %s)", room.OpenTime, room.CloseTime)}, nil
	}
	today := s.today()
	if date.Before(today) || date.After(today.AddDays(BookingHorizonDays)) {
		return &SeatAvailability{Message: fmt.Sprintf("date must be between %s and %s", today, today.AddDays(BookingHorizonDays))}, nil
	}
	if !seat.Bookable() {
		return &SeatAvailability{Message: "seat is " + string(seat.Status)}, nil
	}
	clash, err := s.Stores.Reservations.FindSeatOverlaps(ctx, seat.ID, date, start, end)
	if err != nil {
		return nil, err
	}
	if len(clash) > 0 {
		return &SeatAvailability{Message: "seat is already reserved in this interval", Overlapping: clash}, nil
	}
	return &SeatAvailability{
		Available: true,
		Message:   "seat is available",
		SeatInfo: &SeatInfo{
			ID:             seat.ID,
			SeatNumber:     seat.SeatNumber,
			StudyRoomID:    room.ID,
			StudyRoomName:  room.Name,
			PhysicalStatus: seat.Status,
		},
		TimeInfo: &TimeInfo{Date: date, StartTime: start, EndTime: end},
	}, nil
}

// RoomSlots lists the free intervals of every physically available seat.
type RoomSlots struct {
	StudyRoomID      string            `json:"study_room_id"`
	StudyRoomName    string            `json:"study_room_name"`
	Date             model.Date        `json:"date"`
	OpenTime         model.Clock       `json:"open_time"`
	CloseTime        model.Clock       `json:"close_time"`
	Status           model.RoomStatus  `json:"status,omitempty"`
	Message          string            `json:"message,omitempty"`
	TotalSeats       int               `json:"total_seats"`
	AvailableSeats   int               `json:"available_seats"`
	SeatAvailability map[string][]Slot `json:"seat_availability"`
}

// AvailableSlots computes, per bookable seat of roomID, the gaps between
// opening and closing not covered by an active reservation on date.  The
// date must be within the room's own advance-booking horizon.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, roomID string, date model.Date) (*RoomSlots, error) {
	room, err := s.Stores.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, notFound("study room", err)
	}
	horizon := room.MaxAdvanceDays
	if horizon <= 0 {
		horizon = DefaultAdvanceDays
	}
	today := s.today()
	if date.Before(today) || date.After(today.AddDays(horizon)) {
		return nil, invalid(CodeDateOutOfRange, "date must be between %s and %s", today, today.AddDays(horizon))
	}

	out := &RoomSlots{
		StudyRoomID:      room.ID,
		StudyRoomName:    room.Name,
		Date:             date,
		OpenTime:         room.OpenTime,
		CloseTime:        room.CloseTime,
		SeatAvailability: map[string][]Slot{},
	}
	if room.Status != model.RoomAvailable {
		out.Status = room.Status
		out.Message = "study room is " + string(room.Status)
		return out, nil
	}

	seats, err := s.Stores.Seats.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	out.TotalSeats = len(seats)
	if len(seats) == 0 {
		return out, nil
	}
	booked, err := s.Stores.Reservations.ListActiveByRoomAndDate(ctx, room.ID, date)
	if err != nil {
		return nil, err
	}
	bySeat := groupBySeat(booked)
	for _, seat := range seats {
		if !seat.Bookable() {
			continue
		}
		out.AvailableSeats++
		out.SeatAvailability[seat.ID] = FreeSlots(room.OpenTime, room.CloseTime, bySeat[seat.ID])
	}
	return out, nil
}

// occupied returns the seats of reservations overlapping w, keyed by seat
// id with the first overlapping reservation as value.
func occupied(booked []model.Reservation, w Window) map[string]model.Reservation {
	out := map[string]model.Reservation{}
	for _, r := range booked {
		if !r.Active() || !Overlaps(w.Start, w.End, r.StartTime, r.EndTime) {
			continue
		}
		if prev, ok := out[r.SeatID]; !ok || r.StartTime < prev.StartTime {
			out[r.SeatID] = r
		}
	}
	return out
}

// RoomStatus is the occupancy summary of one room in a window.
type RoomStatus struct {
	StudyRoomID    string      `json:"study_room_id"`
	Status         string      `json:"status"`
	TotalSeats     int         `json:"total_seats"`
	ReservedSeats  int         `json:"reserved_seats"`
	AvailableSeats int         `json:"available_seats"`
	Date           model.Date  `json:"date"`
	StartTime      model.Clock `json:"start_time"`
	EndTime        model.Clock `json:"end_time"`
}

// RoomStatusAt classifies roomID on date in w: the room's own status when
// it is not AVAILABLE, else EMPTY, FULL or AVAILABLE by the number of
// distinct seats reserved in the window.
func (s *AvailabilityService) RoomStatusAt(ctx context.Context, roomID string, date model.Date, w Window) (*RoomStatus, error) {
	room, err := s.Stores.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, notFound("study room", err)
	}
	out := &RoomStatus{StudyRoomID: room.ID, Date: date, StartTime: w.Start, EndTime: w.End}
	if room.Status != model.RoomAvailable {
		out.Status = string(room.Status)
		return out, nil
	}
	seats, err := s.Stores.Seats.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	out.TotalSeats = len(seats)
	if len(seats) == 0 {
		out.Status = ViewEmpty
		return out, nil
	}
	booked, err := s.Stores.Reservations.ListActiveByRoomAndDate(ctx, room.ID, date)
	if err != nil {
		return nil, err
	}
	out.ReservedSeats = len(occupied(booked, w))
	out.AvailableSeats = out.TotalSeats - out.ReservedSeats
	switch {
	case out.ReservedSeats == 0:
		out.Status = ViewEmpty
	case out.ReservedSeats >= out.TotalSeats:
		out.Status = ViewFull
	default:
		out.Status = ViewAvailable
	}
	return out, nil
}

// SeatState is one seat of a room view.
type SeatState struct {
	SeatID         string           `json:"seat_id"`
	SeatNumber     string           `json:"seat_number"`
	PhysicalStatus model.SeatStatus `json:"physical_status,omitempty"`
	Status         string           `json:"status"`
	ReservationID  string           `json:"reservation_id,omitempty"`
}

// RoomSeatsStatus reports every seat of roomID on date in w.  A seat that
// is not physically available shows that status; otherwise the status of
// its overlapping reservation, or AVAILABLE.
func (s *AvailabilityService) RoomSeatsStatus(ctx context.Context, roomID string, date model.Date, w Window) ([]SeatState, error) {
	if _, err := s.Stores.Rooms.GetByID(ctx, roomID); err != nil {
		return nil, notFound("study room", err)
	}
	seats, err := s.Stores.Seats.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	booked, err := s.Stores.Reservations.ListActiveByRoomAndDate(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	taken := occupied(booked, w)
	out := make([]SeatState, 0, len(seats))
	for _, seat := range seats {
		st := SeatState{SeatID: seat.ID, SeatNumber: seat.SeatNumber, Status: ViewAvailable}
		if !seat.Bookable() {
			st.Status = string(seat.Status)
		} else if r, ok := taken[seat.ID]; ok {
			st.Status = string(r.Status)
			st.ReservationID = r.ID
		}
		out = append(out, st)
	}
	return out, nil
}

// RoomOverview is one entry of the room list view.
type RoomOverview struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Location  string      `json:"location"`
	OpenTime  model.Clock `json:"open_time"`
	CloseTime model.Clock `json:"close_time"`
	ImageURL  string      `json:"image_url"`
	Status    string      `json:"status"`
}

// RoomsStatus classifies every room on date in w.
func (s *AvailabilityService) RoomsStatus(ctx context.Context, date model.Date, w Window) ([]RoomOverview, error) {
	rooms, err := s.Stores.Rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoomOverview, 0, len(rooms))
	for _, room := range rooms {
		ov := RoomOverview{
			ID:        room.ID,
			Name:      room.Name,
			Location:  room.Location,
			OpenTime:  room.OpenTime,
			CloseTime: room.CloseTime,
			ImageURL:  room.ImageURL,
		}
		switch {
		case room.Status != model.RoomAvailable:
			ov.Status = string(room.Status)
		case !room.Contains(w.Start, w.End):
			ov.Status = ViewClosed
		default:
			full, err := s.roomFull(ctx, room.ID, date, w)
			if err != nil {
				return nil, err
			}
			ov.Status = ViewAvailable
			if full {
				ov.Status = ViewFull
			}
		}
		out = append(out, ov)
	}
	return out, nil
}

func (s *AvailabilityService) roomFull(ctx context.Context, roomID string, date model.Date, w Window) (bool, error) {
	n, err := s.Stores.Seats.CountByRoom(ctx, roomID)
	if err != nil || n == 0 {
		return false, err
	}
	booked, err := s.Stores.Reservations.ListActiveByRoomAndDate(ctx, roomID, date)
	if err != nil {
		return false, err
	}
	return len(occupied(booked, w)) >= n, nil
}

// RoomDetail is the full room view: a summary plus every seat.
type RoomDetail struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	Location                 string           `json:"location"`
	Description              string           `json:"description"`
	ImageURL                 string           `json:"image_url"`
	OpenTime                 model.Clock      `json:"open_time"`
	CloseTime                model.Clock      `json:"close_time"`
	MaxAdvanceDays           int              `json:"max_advance_days"`
	PhysicalStatus           model.RoomStatus `json:"physical_status"`
	TotalSeats               int              `json:"total_seats"`
	AvailableSeats           int              `json:"available_seats"`
	PhysicallyAvailableSeats int              `json:"physically_available_seats"`
	Status                   string           `json:"status"`
	Date                     model.Date       `json:"date"`
	StartTime                model.Clock      `json:"start_time"`
	EndTime                  model.Clock      `json:"end_time"`
	Seats                    []SeatState      `json:"seats"`
}

// RoomDetailAt builds the detail view.  Status is the room's own status
// when not AVAILABLE, then NO_AVAILABLE_SEATS, FULL, EMPTY and AVAILABLE
// in that order of precedence.
func (s *AvailabilityService) RoomDetailAt(ctx context.Context, roomID string, date model.Date, w Window) (*RoomDetail, error) {
	room, err := s.Stores.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, notFound("study room", err)
	}
	seats, err := s.Stores.Seats.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	booked, err := s.Stores.Reservations.ListActiveByRoomAndDate(ctx, room.ID, date)
	if err != nil {
		return nil, err
	}
	taken := occupied(booked, w)

	d := &RoomDetail{
		ID:             room.ID,
		Name:           room.Name,
		Location:       room.Location,
		Description:    room.Description,
		ImageURL:       room.ImageURL,
		OpenTime:       room.OpenTime,
		CloseTime:      room.CloseTime,
		MaxAdvanceDays: room.MaxAdvanceDays,
		PhysicalStatus: room.Status,
		TotalSeats:     len(seats),
		Date:           date,
		StartTime:      w.Start,
		EndTime:        w.End,
		Seats:          make([]SeatState, 0, len(seats)),
	}
	reserved := 0
	for _, seat := range seats {
		st := SeatState{SeatID: seat.ID, SeatNumber: seat.SeatNumber, PhysicalStatus: seat.Status, Status: ViewAvailable}
		switch r, ok := taken[seat.ID]; {
		case !seat.Bookable():
			st.Status = string(seat.Status)
		case ok:
			st.Status = ViewOccupied
			st.ReservationID = r.ID
			reserved++
		default:
			d.AvailableSeats++
		}
		if seat.Bookable() {
			d.PhysicallyAvailableSeats++
		}
		d.Seats = append(d.Seats, st)
	}

	switch {
	case room.Status != model.RoomAvailable:
		d.Status = string(room.Status)
	case d.PhysicallyAvailableSeats == 0:
		d.Status = ViewNoAvailableSeats
	case d.AvailableSeats == 0:
		d.Status = ViewFull
	case reserved == 0:
		d.Status = ViewEmpty
	default:
		d.Status = ViewAvailable
	}
	return d, nil
}

// SeatSlotStatus is the status of one seat in one interval.
type SeatSlotStatus struct {
	SeatID         string              `json:"seat_id"`
	SeatNumber     string              `json:"seat_number"`
	StudyRoomID    string              `json:"study_room_id"`
	StudyRoomName  string              `json:"study_room_name"`
	Date           model.Date          `json:"date"`
	StartTime      model.Clock         `json:"start_time"`
	EndTime        model.Clock         `json:"end_time"`
	PhysicalStatus model.SeatStatus    `json:"physical_status"`
	Available      bool                `json:"available"`
	CurrentStatus  string              `json:"current_status"`
	Message        string              `json:"message"`
	OpenTime       *model.Clock        `json:"open_time,omitempty"`
	CloseTime      *model.Clock        `json:"close_time,omitempty"`
	Overlapping    []model.Reservation `json:"overlapping_reservations,omitempty"`
}

// SeatStatusForSlot reports UNAVAILABLE, CLOSED, RESERVED or AVAILABLE
// for seatID in [start,end) on date.  Results are read through the seat
// status cache; reservation and seat events evict them.
func (s *AvailabilityService) SeatStatusForSlot(ctx context.Context, seatID string, date model.Date, start, end model.Clock) (*SeatSlotStatus, error) {
	if !start.Before(end) {
		return nil, invalid(CodeInvalidRequest, "start time must be before end time")
	}
	return cache.Load(ctx, s.Cache, cache.SeatStatusKey(seatID, date, start, end), func() (*SeatSlotStatus, error) {
		return s.seatStatusForSlot(ctx, seatID, date, start, end)
	})
}

func (s *AvailabilityService) seatStatusForSlot(ctx context.Context, seatID string, date model.Date, start, end model.Clock) (*SeatSlotStatus, error) {
	seat, err := s.Stores.Seats.GetByID(ctx, seatID)
	if err != nil {
		return nil, notFound("seat", err)
	}
	room, err := s.Stores.Rooms.GetByID(ctx, seat.StudyRoomID)
	if err != nil {
		return nil, notFound("study room", err)
	}
	out := &SeatSlotStatus{
		SeatID:         seat.ID,
		SeatNumber:     seat.SeatNumber,
		StudyRoomID:    room.ID,
		StudyRoomName:  room.Name,
		Date:           date,
		StartTime:      start,
		EndTime:        end,
		PhysicalStatus: seat.Status,
	}
	if !seat.Bookable() {
		out.CurrentStatus = ViewUnavailable
		out.Message = "seat is " + string(seat.Status)
		return out, nil
	}
	if !room.Contains(start, end) {
		open, closeAt := room.OpenTime, room.CloseTime
		out.CurrentStatus = ViewClosed
		out.Message = fmt.Sprintf("outside opening hours (%s - %s)", open, closeAt)
		out.OpenTime, out.CloseTime = &open, &closeAt
		return out, nil
	}
	clash, err := s.Stores.Reservations.FindSeatOverlaps(ctx, seat.ID, date, start, end)
	if err != nil {
		return nil, err
	}
	if len(clash) > 0 {
		out.CurrentStatus = ViewReserved
		out.Message = "seat is reserved in this interval"
		out.Overlapping = clash
		return out, nil
	}
	out.Available = true
	out.CurrentStatus = ViewAvailable
	out.Message = "seat is available"
	return out, nil
}

// ReservedSlot is a booked interval without the owner's details.
type ReservedSlot struct {
	StartTime model.Clock             `json:"start_time"`
	EndTime   model.Clock             `json:"end_time"`
	Status    model.ReservationStatus `json:"status"`
	UserID    string                  `json:"user_id"`
}

// CurrentReservation is the reservation covering the current instant.
type CurrentReservation struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	StartTime model.Clock `json:"start_time"`
	EndTime   model.Clock `json:"end_time"`
}

// SeatRealTime is a seat's status right now plus its whole day.
type SeatRealTime struct {
	SeatID             string              `json:"seat_id"`
	SeatNumber         string              `json:"seat_number"`
	StudyRoomID        string              `json:"study_room_id"`
	StudyRoomName      string              `json:"study_room_name"`
	Date               model.Date          `json:"date"`
	PhysicalStatus     model.SeatStatus    `json:"physical_status"`
	OpenTime           model.Clock         `json:"open_time"`
	CloseTime          model.Clock         `json:"close_time"`
	CurrentStatus      string              `json:"current_status"`
	CurrentReservation *CurrentReservation `json:"current_reservation,omitempty"`
	ReservedSlots      []ReservedSlot      `json:"reserved_slots"`
	FreeSlots          []Slot              `json:"free_slots"`
}

// SeatRealTimeStatus reports seatID on date.  CLOSED and OCCUPIED only
// apply when date is today; other days are AVAILABLE unless the seat is
// physically unavailable.  A zero date means today.
func (s *AvailabilityService) SeatRealTimeStatus(ctx context.Context, seatID string, date model.Date) (*SeatRealTime, error) {
	now := s.now()
	today := model.DateOf(now)
	if date.IsZero() {
		date = today
	}
	seat, err := s.Stores.Seats.GetByID(ctx, seatID)
	if err != nil {
		return nil, notFound("seat", err)
	}
	room, err := s.Stores.Rooms.GetByID(ctx, seat.StudyRoomID)
	if err != nil {
		return nil, notFound("study room", err)
	}
	booked, err := s.Stores.Reservations.ListActiveBySeatAndDate(ctx, seat.ID, date)
	if err != nil {
		return nil, err
	}

	out := &SeatRealTime{
		SeatID:         seat.ID,
		SeatNumber:     seat.SeatNumber,
		StudyRoomID:    room.ID,
		StudyRoomName:  room.Name,
		Date:           date,
		PhysicalStatus: seat.Status,
		OpenTime:       room.OpenTime,
		CloseTime:      room.CloseTime,
		CurrentStatus:  ViewAvailable,
		ReservedSlots:  make([]ReservedSlot, 0, len(booked)),
		FreeSlots:      FreeSlots(room.OpenTime, room.CloseTime, booked),
	}
	for _, r := range booked {
		out.ReservedSlots = append(out.ReservedSlots, ReservedSlot{
			StartTime: r.StartTime, EndTime: r.EndTime, Status: r.Status, UserID: r.UserID,
		})
	}

	clock := model.ClockOf(now)
	switch {
	case !seat.Bookable():
		out.CurrentStatus = ViewUnavailable
	case date.Equal(today) && !room.IsOpenAt(clock):
		out.CurrentStatus = ViewClosed
	case date.Equal(today):
		for _, r := range booked {
			if !clock.Before(r.StartTime) && clock.Before(r.EndTime) {
				out.CurrentStatus = ViewOccupied
				out.CurrentReservation = &CurrentReservation{ID: r.ID, UserID: r.UserID, StartTime: r.StartTime, EndTime: r.EndTime}
				break
			}
		}
	}
	return out, nil
}
