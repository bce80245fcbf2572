package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iliyamo/studyroom-seat-reservation/internal/cache"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/storage"
)

// ImageSaver stores an uploaded room picture and returns its public URL.
type ImageSaver interface {
	SaveRoomImage(ctx context.Context, r io.Reader) (string, error)
	Remove(url string) error
}

type StudyRoomService struct {
	Deps
	Cache  *cache.Cache
	Images ImageSaver
}

func NewStudyRoomService(d Deps, c *cache.Cache, images ImageSaver) *StudyRoomService {
	return &StudyRoomService{Deps: d, Cache: c, Images: images}
}

// CreateRoomInput describes a new room.  Capacity seats numbered "001"..
// are created with it.
type CreateRoomInput struct {
	Name           string
	Location       string
	Description    string
	Capacity       int
	OpenTime       model.Clock
	CloseTime      model.Clock
	MaxAdvanceDays int
	ImageURL       string
}

// UpdateRoomInput carries the fields to change; nil leaves a field alone.
type UpdateRoomInput struct {
	Name           *string
	Location       *string
	Description    *string
	Capacity       *int
	OpenTime       *model.Clock
	CloseTime      *model.Clock
	MaxAdvanceDays *int
	Status         *model.RoomStatus
}

func validateHours(open, closeAt model.Clock) error {
	if !open.Before(closeAt) {
		return invalid(CodeInvalidRequest, "open time must be before close time")
	}
	return nil
}

func numberedSeats(roomID string, from, to int) []model.Seat {
	seats := make([]model.Seat, 0, to-from+1)
	for n := from; n <= to; n++ {
		seats = append(seats, model.Seat{SeatNumber: model.SeatNumber(n), StudyRoomID: roomID, Status: model.SeatAvailable})
	}
	return seats
}

func seatIDs(seats []model.Seat) []string {
	ids := make([]string, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}

// Create inserts the room and its seats in one transaction.
func (s *StudyRoomService) Create(ctx context.Context, in CreateRoomInput) (*model.StudyRoom, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid(CodeInvalidRequest, "name is required")
	}
	if in.Capacity <= 0 {
		return nil, invalid(CodeInvalidRequest, "capacity must be positive")
	}
	if err := validateHours(in.OpenTime, in.CloseTime); err != nil {
		return nil, err
	}
	if in.MaxAdvanceDays <= 0 {
		in.MaxAdvanceDays = DefaultAdvanceDays
	}
	room := &model.StudyRoom{
		Name:           in.Name,
		Location:       in.Location,
		Description:    in.Description,
		Capacity:       in.Capacity,
		OpenTime:       in.OpenTime,
		CloseTime:      in.CloseTime,
		MaxAdvanceDays: in.MaxAdvanceDays,
		Status:         model.RoomAvailable,
		ImageURL:       in.ImageURL,
		CreatedAt:      s.now().UTC(),
	}
	var created []model.Seat
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		if err := st.Rooms.Create(ctx, room); err != nil {
			return translate(err)
		}
		created = numberedSeats(room.ID, 1, room.Capacity)
		return translate(st.Seats.CreateBulk(ctx, created))
	})
	if err != nil {
		return nil, err
	}
	s.Log.LogDatabase("INSERT", "study_rooms", fmt.Sprintf("room %s with %d seats", room.ID, len(created)))
	s.notify(ctx, queue.RoomEvent(queue.RoomCreated, room.ID, seatIDs(created), s.now()))
	return room, nil
}

func (s *StudyRoomService) Get(ctx context.Context, id string) (*model.StudyRoom, error) {
	room, err := s.Stores.Rooms.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("study room", err)
	}
	return room, nil
}

func (s *StudyRoomService) List(ctx context.Context) ([]model.StudyRoom, error) {
	return s.Stores.Rooms.List(ctx)
}

// Seats lists the room's seats, read through the room seat cache.
func (s *StudyRoomService) Seats(ctx context.Context, roomID string) ([]model.Seat, error) {
	return cache.Load(ctx, s.Cache, cache.RoomSeatsKey(roomID), func() ([]model.Seat, error) {
		if _, err := s.Stores.Rooms.GetByID(ctx, roomID); err != nil {
			return nil, notFound("study room", err)
		}
		return s.Stores.Seats.ListByRoom(ctx, roomID)
	})
}

// Update applies a partial update.  A capacity increase appends seats
// numbered after the old capacity; a decrease removes the seats numbered
// above the new one and fails when any of them has reservations.
func (s *StudyRoomService) Update(ctx context.Context, id string, in UpdateRoomInput) (*model.StudyRoom, error) {
	var (
		out     model.StudyRoom
		changed []string
		resized bool
	)
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		room, err := st.Rooms.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound("study room", err)
		}
		oldCapacity := room.Capacity
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return invalid(CodeInvalidRequest, "name must not be empty")
			}
			room.Name = strings.TrimSpace(*in.Name)
		}
		if in.Location != nil {
			room.Location = *in.Location
		}
		if in.Description != nil {
			room.Description = *in.Description
		}
		if in.OpenTime != nil {
			room.OpenTime = *in.OpenTime
		}
		if in.CloseTime != nil {
			room.CloseTime = *in.CloseTime
		}
		if err := validateHours(room.OpenTime, room.CloseTime); err != nil {
			return err
		}
		if in.MaxAdvanceDays != nil {
			if *in.MaxAdvanceDays <= 0 {
				return invalid(CodeInvalidRequest, "max advance days must be positive")
			}
			room.MaxAdvanceDays = *in.MaxAdvanceDays
		}
		if in.Status != nil {
			room.Status = *in.Status
		}
		if in.Capacity != nil {
			if *in.Capacity <= 0 {
				return invalid(CodeInvalidRequest, "capacity must be positive")
			}
			room.Capacity = *in.Capacity
		}

		switch {
		case room.Capacity > oldCapacity:
			seats := numberedSeats(room.ID, oldCapacity+1, room.Capacity)
			if err := st.Seats.CreateBulk(ctx, seats); err != nil {
				return translate(err)
			}
			changed, resized = seatIDs(seats), true
		case room.Capacity < oldCapacity:
			extra, err := st.Seats.ListByRoomAfterNumber(ctx, room.ID, model.SeatNumber(room.Capacity))
			if err != nil {
				return err
			}
			ids := seatIDs(extra)
			booked, err := st.Reservations.SeatsWithReservations(ctx, ids)
			if err != nil {
				return err
			}
			if len(booked) > 0 {
				return conflict(CodeHasReservations, "cannot shrink to %d seats: %d of the removed seats have reservations", room.Capacity, len(booked))
			}
			if _, err := st.Seats.DeleteByIDs(ctx, ids); err != nil {
				return translate(err)
			}
			changed, resized = ids, true
		}
		if err := st.Rooms.Update(ctx, room); err != nil {
			return notFound("study room", err)
		}
		out = *room
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := queue.RoomUpdated
	if resized {
		kind = queue.RoomCapacityChanged
	}
	// Opening hours feed the cached seat statuses, so every seat is stale.
	if !resized || in.OpenTime != nil || in.CloseTime != nil {
		if seats, err := s.Stores.Seats.ListByRoom(ctx, out.ID); err == nil {
			changed = append(changed, seatIDs(seats)...)
		}
	}
	s.notify(ctx, queue.RoomEvent(kind, out.ID, changed, s.now()))
	return &out, nil
}

// SetStatus changes the administrative status of a room.
func (s *StudyRoomService) SetStatus(ctx context.Context, id string, status model.RoomStatus) (*model.StudyRoom, error) {
	if err := s.Stores.Rooms.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFound("study room", err)
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, queue.RoomEvent(queue.RoomUpdated, id, nil, s.now()))
	return room, nil
}

// Delete removes the room and its seats, refusing when any seat has
// reservations.
func (s *StudyRoomService) Delete(ctx context.Context, id string) error {
	var removed []string
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		if _, err := st.Rooms.GetByIDForUpdate(ctx, id); err != nil {
			return notFound("study room", err)
		}
		seats, err := st.Seats.ListByRoom(ctx, id)
		if err != nil {
			return err
		}
		removed = seatIDs(seats)
		booked, err := st.Reservations.SeatsWithReservations(ctx, removed)
		if err != nil {
			return err
		}
		if len(booked) > 0 {
			return conflict(CodeHasReservations, "study room has reservations on %d seats", len(booked))
		}
		if _, err := st.Seats.DeleteByRoom(ctx, id); err != nil {
			return translate(err)
		}
		return notFound("study room", st.Rooms.Delete(ctx, id))
	})
	if err != nil {
		return err
	}
	s.Log.LogDatabase("DELETE", "study_rooms", "room "+id)
	s.notify(ctx, queue.RoomEvent(queue.RoomDeleted, id, removed, s.now()))
	return nil
}

// UploadImage stores r as the room picture and records its URL.  The
// previous picture is removed once the new URL is saved.
func (s *StudyRoomService) UploadImage(ctx context.Context, id string, r io.Reader) (*model.StudyRoom, error) {
	if s.Images == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.Images.SaveRoomImage(ctx, r)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return nil, invalid(CodeInvalidRequest, "%v", err)
		}
		return nil, err
	}
	if err := s.Stores.Rooms.UpdateImage(ctx, id, url); err != nil {
		_ = s.Images.Remove(url)
		return nil, notFound("study room", err)
	}
	if room.ImageURL != "" && room.ImageURL != url {
		if err := s.Images.Remove(room.ImageURL); err != nil {
			s.Log.Warn("STORAGE", fmt.Sprintf("remove old image %s: %v", room.ImageURL, err))
		}
	}
	room.ImageURL = url
	s.notify(ctx, queue.RoomEvent(queue.RoomUpdated, id, nil, s.now()))
	return room, nil
}
