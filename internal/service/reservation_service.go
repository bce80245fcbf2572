package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
)

const (
	// BookingHorizonDays bounds how far ahead the booking flow accepts.
	BookingHorizonDays = 7
	// DailyReservationLimit caps non-cancelled reservations per user per day.
	DailyReservationLimit = 3
	// CheckInLead is how early before the start a user may check in.
	CheckInLead = 15 * time.Minute
)

// Caller identifies who issues a request.
type Caller struct {
	ID    string
	Admin bool
}

func (c Caller) canAccess(ownerID string) bool { return c.Admin || c.ID == ownerID }

// CreateReservationInput is a booking request.  UserID comes from the
// token, never from the body.
type CreateReservationInput struct {
	UserID    string
	SeatID    string
	Date      model.Date
	StartTime model.Clock
	EndTime   model.Clock
	Remarks   string
}

func (in CreateReservationInput) validate() error {
	switch {
	case in.UserID == "":
		return invalid(CodeInvalidRequest, "user id is required")
	case in.SeatID == "":
		return invalid(CodeInvalidRequest, "seat id is required")
	case in.Date.IsZero():
		return invalid(CodeInvalidRequest, "date is required")
	case !in.StartTime.Before(in.EndTime):
		return invalid(CodeInvalidRequest, "start time must be before end time")
	}
	return nil
}

type ReservationService struct {
	Deps
}

func NewReservationService(d Deps) *ReservationService {
	return &ReservationService{Deps: d}
}

// Create runs the booking flow.  Checks run in a fixed order and the
// first failure is returned; nothing is written unless every check
// passes.  The user and seat rows are locked for the duration, so two
// competing bookings for the same seat or the same user serialize and the
// second one sees the first one's row.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()

	var created model.Reservation
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		r, err := s.create(ctx, st, in, now)
		if err != nil {
			return err
		}
		created = *r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogEvent(string(queue.ReservationCreated), created.ID,
		fmt.Sprintf("seat=%s %s %s-%s", created.SeatID, created.Date, created.StartTime, created.EndTime))
	s.notify(ctx, queue.ReservationEvent(queue.ReservationCreated, created, now))
	return &created, nil
}

func (s *ReservationService) create(ctx context.Context, st Stores, in CreateReservationInput, now time.Time) (*model.Reservation, error) {
	user, err := st.Users.GetByIDForUpdate(ctx, in.UserID)
	if err != nil {
		return nil, notFound("user", err)
	}
	// The flag stands until the release job clears it, even once the
	// remaining time has reached zero.
	if user.IsBlacklisted {
		return nil, &BlacklistedError{Remaining: user.BlacklistRemaining(now)}
	}

	seat, err := st.Seats.GetByIDForUpdate(ctx, in.SeatID)
	if err != nil {
		return nil, notFound("seat", err)
	}
	room, err := st.Rooms.GetByID(ctx, seat.StudyRoomID)
	if err != nil {
		return nil, notFound("study room", err)
	}
	if !seat.Bookable() {
		return nil, invalid(CodeSeatUnavailable, "seat %s is %s", seat.SeatNumber, seat.Status)
	}
	if !room.Contains(in.StartTime, in.EndTime) {
		return nil, invalid(CodeOutsideHours, "reservation must be within opening hours (%s - %s)", room.OpenTime, room.CloseTime)
	}
	today := model.DateOf(now)
	if in.Date.Before(today) || in.Date.After(today.AddDays(BookingHorizonDays)) {
		return nil, invalid(CodeDateOutOfRange, "date must be between %s and %s", today, today.AddDays(BookingHorizonDays))
	}

	seatClash, err := st.Reservations.FindSeatOverlaps(ctx, seat.ID, in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	if len(seatClash) > 0 {
		c := seatClash[0]
		return nil, &ConflictError{
			Code:     CodeSeatConflict,
			Message:  fmt.Sprintf("seat is already reserved from %s to %s", c.StartTime, c.EndTime),
			Conflict: &c,
		}
	}
	userClash, err := st.Reservations.FindUserOverlaps(ctx, user.ID, in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	if len(userClash) > 0 {
		c := userClash[0]
		return nil, &ConflictError{
			Code:     CodeUserConflict,
			Message:  fmt.Sprintf("you already hold a reservation from %s to %s", c.StartTime, c.EndTime),
			Conflict: &c,
		}
	}
	n, err := st.Reservations.CountActiveByUserOnDate(ctx, user.ID, in.Date)
	if err != nil {
		return nil, err
	}
	if n >= DailyReservationLimit {
		return nil, invalid(CodeDailyLimit, "at most %d reservations per day", DailyReservationLimit)
	}

	r := &model.Reservation{
		UserID:      user.ID,
		SeatID:      seat.ID,
		StudyRoomID: room.ID,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Status:      model.StatusConfirmed,
		Remarks:     in.Remarks,
		CreatedAt:   now.UTC(),
	}
	if err := st.Reservations.Create(ctx, r); err != nil {
		return nil, translate(err)
	}
	return r, nil
}

// Get returns a reservation visible to caller.
func (s *ReservationService) Get(ctx context.Context, id string, caller Caller) (*model.Reservation, error) {
	r, err := s.Stores.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("reservation", err)
	}
	if !caller.canAccess(r.UserID) {
		return nil, ErrForbidden
	}
	return r, nil
}

// ListByUser returns userID's reservations; status may be empty.
func (s *ReservationService) ListByUser(ctx context.Context, userID string, status model.ReservationStatus, caller Caller) ([]model.Reservation, error) {
	if !caller.canAccess(userID) {
		return nil, ErrForbidden
	}
	if status == "" {
		return s.Stores.Reservations.ListByUser(ctx, userID)
	}
	return s.Stores.Reservations.ListByUserAndStatus(ctx, userID, status)
}

func (s *ReservationService) ListBySeat(ctx context.Context, seatID string) ([]model.Reservation, error) {
	return s.Stores.Reservations.ListBySeat(ctx, seatID)
}

func (s *ReservationService) ListByRoom(ctx context.Context, roomID string) ([]model.Reservation, error) {
	return s.Stores.Reservations.ListByRoom(ctx, roomID)
}

func (s *ReservationService) ListByDate(ctx context.Context, date model.Date) ([]model.Reservation, error) {
	return s.Stores.Reservations.ListByDate(ctx, date)
}

// transition moves one reservation to target under a row lock.  allowed
// lists the statuses it may leave; check runs after the ownership test and
// may veto.
func (s *ReservationService) transition(ctx context.Context, id string, caller Caller, target model.ReservationStatus,
	allowed []model.ReservationStatus, check func(st Stores, r *model.Reservation) error) (*model.Reservation, error) {

	var out model.Reservation
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		r, err := st.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound("reservation", err)
		}
		if !caller.canAccess(r.UserID) {
			return ErrForbidden
		}
		if check != nil {
			if err := check(st, r); err != nil {
				return err
			}
		}
		ok := false
		for _, a := range allowed {
			if r.Status == a {
				ok = true
				break
			}
		}
		if !ok {
			return conflict(CodeInvalidState, "cannot move a %s reservation to %s", r.Status, target)
		}
		if err := st.Reservations.UpdateStatus(ctx, r.ID, target); err != nil {
			return translate(err)
		}
		r.Status = target
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel moves a CONFIRMED reservation to CANCELLED.
func (s *ReservationService) Cancel(ctx context.Context, id string, caller Caller) (*model.Reservation, error) {
	r, err := s.transition(ctx, id, caller, model.StatusCancelled, []model.ReservationStatus{model.StatusConfirmed}, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, queue.ReservationEvent(queue.ReservationCancelled, *r, s.now()))
	return r, nil
}

// Complete ends a CONFIRMED or CHECKED_IN reservation early.
func (s *ReservationService) Complete(ctx context.Context, id string, caller Caller) (*model.Reservation, error) {
	r, err := s.transition(ctx, id, caller, model.StatusCompleted,
		[]model.ReservationStatus{model.StatusConfirmed, model.StatusCheckedIn}, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, queue.ReservationEvent(queue.ReservationStatusChanged, *r, s.now()))
	return r, nil
}

// CheckIn marks the caller's reservation CHECKED_IN.  The window opens
// CheckInLead before the start and closes at the end, both evaluated in
// the configured time zone.
func (s *ReservationService) CheckIn(ctx context.Context, id, userID string) (*model.Reservation, error) {
	now := s.now()
	caller := Caller{ID: userID}
	r, err := s.transition(ctx, id, caller, model.StatusCheckedIn, []model.ReservationStatus{model.StatusConfirmed},
		func(st Stores, r *model.Reservation) error {
			user, err := st.Users.GetByID(ctx, userID)
			if err != nil {
				return notFound("user", err)
			}
			if user.IsBlacklisted {
				return &BlacklistedError{Remaining: user.BlacklistRemaining(now)}
			}
			start := r.StartsAt(s.loc())
			end := r.EndsAt(s.loc())
			opens := start.Add(-CheckInLead)
			if now.Before(opens) {
				return &CheckInTimeError{TooEarly: true, WindowStart: opens, WindowEnd: end}
			}
			if now.After(end) {
				return &CheckInTimeError{WindowStart: opens, WindowEnd: end}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, queue.ReservationEvent(queue.ReservationStatusChanged, *r, now))
	return r, nil
}

// SweepResult counts what one status sweep did.
type SweepResult struct {
	NoShow      int
	Completed   int
	Blacklisted int
}

// SweepExpired finalizes reservations whose end has passed.  CONFIRMED
// becomes NO_SHOW and counts against the owner; CHECKED_IN becomes
// COMPLETED.  Each row is handled in its own transaction and re-read under
// lock, so a row transitioned elsewhere meanwhile is skipped.  Failures
// are logged and the sweep continues; they are joined into the returned
// error.
func (s *ReservationService) SweepExpired(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()
	expired, err := s.Stores.Reservations.ListExpired(ctx, model.DateOf(now), model.ClockOf(now))
	if err != nil {
		return res, fmt.Errorf("list expired reservations: %w", err)
	}

	var errs []error
	for _, candidate := range expired {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		var (
			changed     *model.Reservation
			blacklisted bool
		)
		err := s.Tx.RunInTx(ctx, func(st Stores) error {
			r, err := st.Reservations.GetByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			switch r.Status {
			case model.StatusConfirmed:
				if err := st.Reservations.UpdateStatus(ctx, r.ID, model.StatusNoShow); err != nil {
					return err
				}
				u, err := st.Users.GetByIDForUpdate(ctx, r.UserID)
				if err != nil {
					return err
				}
				blacklisted = u.RecordNoShow(now.UTC())
				if err := st.Users.UpdateBlacklist(ctx, u); err != nil {
					return err
				}
				r.Status = model.StatusNoShow
			case model.StatusCheckedIn:
				if err := st.Reservations.UpdateStatus(ctx, r.ID, model.StatusCompleted); err != nil {
					return err
				}
				r.Status = model.StatusCompleted
			default:
				return nil
			}
			changed = r
			return nil
		})
		if err != nil {
			s.Log.Error("JOB", fmt.Sprintf("sweep reservation %s: %v", candidate.ID, err))
			errs = append(errs, fmt.Errorf("reservation %s: %w", candidate.ID, err))
			continue
		}
		if changed == nil {
			continue
		}
		if changed.Status == model.StatusNoShow {
			res.NoShow++
		} else {
			res.Completed++
		}
		if blacklisted {
			res.Blacklisted++
			s.Log.LogSecurity("blacklisted", "user "+changed.UserID+" reached the no-show threshold")
		}
		s.notify(ctx, queue.ReservationEvent(queue.ReservationStatusChanged, *changed, now))
	}
	return res, errors.Join(errs...)
}

// PurgeDeleted hard-deletes reservations soft-deleted more than retention
// ago.
func (s *ReservationService) PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error) {
	before := s.now().Add(-retention)
	n, err := s.Stores.Reservations.PurgeDeleted(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge deleted reservations: %w", err)
	}
	return n, nil
}
