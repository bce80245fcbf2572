package service

import (
	"context"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// QuickReserveInput asks for any free seat in the given interval.
type QuickReserveInput struct {
	UserID    string
	Date      model.Date
	StartTime model.Clock
	EndTime   model.Clock
	Remarks   string
}

// QuickReserve picks the first free seat across AVAILABLE rooms, in
// creation order, and books it through Create.  A seat that is taken
// between the scan and the booking surfaces as Create's conflict.
func (s *ReservationService) QuickReserve(ctx context.Context, in QuickReserveInput) (*model.Reservation, error) {
	if in.UserID == "" {
		return nil, invalid(CodeInvalidRequest, "user id is required")
	}
	if in.Date.IsZero() {
		return nil, invalid(CodeInvalidRequest, "date is required")
	}
	if !in.StartTime.Before(in.EndTime) {
		return nil, invalid(CodeInvalidRequest, "start time must be before end time")
	}

	user, err := s.Stores.Users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, notFound("user", err)
	}
	if user.IsBlacklisted {
		return nil, &BlacklistedError{Remaining: user.BlacklistRemaining(s.now())}
	}
	mine, err := s.Stores.Reservations.FindUserOverlaps(ctx, user.ID, in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	if len(mine) > 0 {
		c := mine[0]
		return nil, &ConflictError{
			Code:     CodeUserConflict,
			Message:  "you already hold a reservation from " + c.StartTime.String() + " to " + c.EndTime.String(),
			Conflict: &c,
		}
	}

	seat, err := s.findFreeSeat(ctx, in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	if seat == nil {
		return nil, conflict(CodeNoSeatAvailable, "no seat is free from %s to %s on %s", in.StartTime, in.EndTime, in.Date)
	}
	return s.Create(ctx, CreateReservationInput{
		UserID:    in.UserID,
		SeatID:    seat.ID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Remarks:   in.Remarks,
	})
}

func (s *ReservationService) findFreeSeat(ctx context.Context, date model.Date, start, end model.Clock) (*model.Seat, error) {
	rooms, err := s.Stores.Rooms.ListByStatus(ctx, model.RoomAvailable)
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		if !room.Contains(start, end) {
			continue
		}
		seats, err := s.Stores.Seats.ListByRoom(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		if len(seats) == 0 {
			continue
		}
		booked, err := s.Stores.Reservations.ListActiveByRoomAndDate(ctx, room.ID, date)
		if err != nil {
			return nil, err
		}
		bySeat := groupBySeat(booked)
		for i := range seats {
			if !seats[i].Bookable() {
				continue
			}
			if len(FindConflicts(bySeat[seats[i].ID], date, start, end)) == 0 {
				return &seats[i], nil
			}
		}
	}
	return nil, nil
}

func groupBySeat(rs []model.Reservation) map[string][]model.Reservation {
	out := make(map[string][]model.Reservation, len(rs))
	for _, r := range rs {
		out[r.SeatID] = append(out[r.SeatID], r)
	}
	return out
}
