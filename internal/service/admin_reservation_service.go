package service

import (
	"context"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
)

// Paging limits of the admin search.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ReservationPage is one page of an admin search.
type ReservationPage struct {
	Items []model.Reservation `json:"items"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
}

type AdminReservationService struct {
	Deps
}

func NewAdminReservationService(d Deps) *AdminReservationService {
	return &AdminReservationService{Deps: d}
}

// Search pages through non-deleted reservations, newest first.
func (s *AdminReservationService) Search(ctx context.Context, f repository.ReservationFilter, page, size int) (*ReservationPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, invalid(CodeInvalidRequest, "end date must not be before start date")
	}
	f.IncludeDeleted = false
	items, total, err := s.Stores.Reservations.Search(ctx, f, page, size)
	if err != nil {
		return nil, err
	}
	return &ReservationPage{Items: items, Total: total, Page: page, Size: size}, nil
}

// Delete soft-deletes a reservation; the purge job removes it for good
// later.
func (s *AdminReservationService) Delete(ctx context.Context, id, adminID string) error {
	var deleted model.Reservation
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		r, err := st.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound("reservation", err)
		}
		if err := st.Reservations.SoftDelete(ctx, r.ID, adminID, s.now()); err != nil {
			return notFound("reservation", err)
		}
		deleted = *r
		return nil
	})
	if err != nil {
		return err
	}
	s.Log.LogEvent(string(queue.ReservationDeleted), id, "soft deleted by admin "+adminID)
	s.notify(ctx, queue.ReservationEvent(queue.ReservationDeleted, deleted, s.now()))
	return nil
}

// AdjustCheckIn marks a reservation CHECKED_IN on behalf of the user, for
// example when the user forgot to check in at the desk.
func (s *AdminReservationService) AdjustCheckIn(ctx context.Context, id, adminID string) (*model.Reservation, error) {
	now := s.now()
	var out model.Reservation
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		r, err := st.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound("reservation", err)
		}
		if r.Status == model.StatusCancelled {
			return conflict(CodeInvalidState, "cannot check in a cancelled reservation")
		}
		if err := st.Reservations.Adjust(ctx, r.ID, model.StatusCheckedIn, adminID, now); err != nil {
			return notFound("reservation", err)
		}
		at := now.UTC()
		r.Status = model.StatusCheckedIn
		r.AdjustedBy = &adminID
		r.AdjustedAt = &at
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, queue.ReservationEvent(queue.ReservationStatusChanged, out, now))
	return &out, nil
}
