package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
)

// MaxBatchSeats bounds a single batch creation.
const MaxBatchSeats = 500

type SeatService struct {
	Deps
}

func NewSeatService(d Deps) *SeatService { return &SeatService{Deps: d} }

func (s *SeatService) Get(ctx context.Context, id string) (*model.Seat, error) {
	seat, err := s.Stores.Seats.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("seat", err)
	}
	return seat, nil
}

// Create adds one seat to an existing room.  Seat numbers are unique
// within a room.
func (s *SeatService) Create(ctx context.Context, roomID, number string, status model.SeatStatus) (*model.Seat, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, invalid(CodeInvalidRequest, "seat number is required")
	}
	if status == "" {
		status = model.SeatAvailable
	}
	if _, err := s.Stores.Rooms.GetByID(ctx, roomID); err != nil {
		return nil, notFound("study room", err)
	}
	seat := &model.Seat{SeatNumber: number, StudyRoomID: roomID, Status: status, CreatedAt: s.now().UTC()}
	if err := s.Stores.Seats.Create(ctx, seat); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(CodeDuplicate, "seat %s already exists in this room", number)
		}
		return nil, err
	}
	s.notify(ctx, queue.SeatEvent(queue.SeatCreated, *seat, s.now()))
	return seat, nil
}

// CreateBatch creates prefix+1 .. prefix+count, skipping numbers the room
// already has.  It returns only the seats it created.
func (s *SeatService) CreateBatch(ctx context.Context, roomID string, count int, prefix string) ([]model.Seat, error) {
	if count <= 0 || count > MaxBatchSeats {
		return nil, invalid(CodeInvalidRequest, "count must be between 1 and %d", MaxBatchSeats)
	}
	var created []model.Seat
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		if _, err := st.Rooms.GetByIDForUpdate(ctx, roomID); err != nil {
			return notFound("study room", err)
		}
		existing, err := st.Seats.ListByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		taken := make(map[string]bool, len(existing))
		for _, e := range existing {
			taken[e.SeatNumber] = true
		}
		now := s.now().UTC()
		for i := 1; i <= count; i++ {
			number := fmt.Sprintf("%s%d", prefix, i)
			if taken[number] {
				continue
			}
			created = append(created, model.Seat{SeatNumber: number, StudyRoomID: roomID, Status: model.SeatAvailable, CreatedAt: now})
		}
		return translate(st.Seats.CreateBulk(ctx, created))
	})
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = []model.Seat{}
	}
	for _, seat := range created {
		s.notify(ctx, queue.SeatEvent(queue.SeatCreated, seat, s.now()))
	}
	return created, nil
}

// SetStatus changes the physical status of a seat.
func (s *SeatService) SetStatus(ctx context.Context, id string, status model.SeatStatus) (*model.Seat, error) {
	if err := s.Stores.Seats.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFound("seat", err)
	}
	seat, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, queue.SeatEvent(queue.SeatStatusChanged, *seat, s.now()))
	return seat, nil
}

// Delete removes a seat that has never been reserved.
func (s *SeatService) Delete(ctx context.Context, id string) error {
	seat, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	used, err := s.Stores.Reservations.ExistsBySeat(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return conflict(CodeHasReservations, "seat %s has reservations", seat.SeatNumber)
	}
	if err := s.Stores.Seats.Delete(ctx, id); err != nil {
		return notFound("seat", err)
	}
	s.notify(ctx, queue.SeatEvent(queue.SeatDeleted, *seat, s.now()))
	return nil
}

// DeleteByRoom removes every seat of a room, refusing when any of them has
// reservations.
func (s *SeatService) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	var (
		n       int64
		removed []string
	)
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		if _, err := st.Rooms.GetByIDForUpdate(ctx, roomID); err != nil {
			return notFound("study room", err)
		}
		seats, err := st.Seats.ListByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		removed = seatIDs(seats)
		booked, err := st.Reservations.SeatsWithReservations(ctx, removed)
		if err != nil {
			return err
		}
		if len(booked) > 0 {
			return conflict(CodeHasReservations, "%d seats of this room have reservations", len(booked))
		}
		n, err = st.Seats.DeleteByRoom(ctx, roomID)
		return translate(err)
	})
	if err != nil {
		return 0, err
	}
	s.notify(ctx, queue.RoomEvent(queue.RoomCapacityChanged, roomID, removed, s.now()))
	return n, nil
}
