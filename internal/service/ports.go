package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
)

// The store interfaces are the subset of the repository API the services
// use.  repository.*Repo satisfies them over MySQL; servicetest provides an
// in-memory implementation for tests.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateBlacklist(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	List(ctx context.Context) ([]model.User, error)
	ListBlacklisted(ctx context.Context) ([]model.User, error)
}

type AdminStore interface {
	Create(ctx context.Context, a *model.Admin) error
	GetByID(ctx context.Context, id string) (*model.Admin, error)
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type RoomStore interface {
	Create(ctx context.Context, room *model.StudyRoom) error
	GetByID(ctx context.Context, id string) (*model.StudyRoom, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.StudyRoom, error)
	List(ctx context.Context) ([]model.StudyRoom, error)
	ListByStatus(ctx context.Context, status model.RoomStatus) ([]model.StudyRoom, error)
	Update(ctx context.Context, room *model.StudyRoom) error
	UpdateStatus(ctx context.Context, id string, status model.RoomStatus) error
	UpdateImage(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

type SeatStore interface {
	Create(ctx context.Context, s *model.Seat) error
	CreateBulk(ctx context.Context, seats []model.Seat) error
	GetByID(ctx context.Context, id string) (*model.Seat, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Seat, error)
	GetByRoomAndNumber(ctx context.Context, roomID, number string) (*model.Seat, error)
	ListByRoom(ctx context.Context, roomID string) ([]model.Seat, error)
	ListByRoomAfterNumber(ctx context.Context, roomID, number string) ([]model.Seat, error)
	CountByRoom(ctx context.Context, roomID string) (int, error)
	UpdateStatus(ctx context.Context, id string, status model.SeatStatus) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteByRoom(ctx context.Context, roomID string) (int64, error)
}

type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error
	Adjust(ctx context.Context, id string, status model.ReservationStatus, adminID string, at time.Time) error
	SoftDelete(ctx context.Context, id, adminID string, at time.Time) error
	FindSeatOverlaps(ctx context.Context, seatID string, date model.Date, start, end model.Clock) ([]model.Reservation, error)
	FindUserOverlaps(ctx context.Context, userID string, date model.Date, start, end model.Clock) ([]model.Reservation, error)
	CountActiveByUserOnDate(ctx context.Context, userID string, date model.Date) (int, error)
	ListByUser(ctx context.Context, userID string) ([]model.Reservation, error)
	ListByUserAndStatus(ctx context.Context, userID string, status model.ReservationStatus) ([]model.Reservation, error)
	ListBySeat(ctx context.Context, seatID string) ([]model.Reservation, error)
	ListByRoom(ctx context.Context, roomID string) ([]model.Reservation, error)
	ListByDate(ctx context.Context, date model.Date) ([]model.Reservation, error)
	ListActiveByRoomAndDate(ctx context.Context, roomID string, date model.Date) ([]model.Reservation, error)
	ListActiveBySeatAndDate(ctx context.Context, seatID string, date model.Date) ([]model.Reservation, error)
	ListExpired(ctx context.Context, today model.Date, now model.Clock) ([]model.Reservation, error)
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
	ExistsBySeat(ctx context.Context, seatID string) (bool, error)
	SeatsWithReservations(ctx context.Context, seatIDs []string) (map[string]bool, error)
	Search(ctx context.Context, f repository.ReservationFilter, page, size int) ([]model.Reservation, int, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, f *model.Feedback) error
	GetByID(ctx context.Context, id uint64) (*model.Feedback, error)
	ListByUser(ctx context.Context, userID string) ([]model.Feedback, error)
	List(ctx context.Context, status model.FeedbackStatus) ([]model.Feedback, error)
	Process(ctx context.Context, id uint64, response, processorID string, at time.Time) error
}

// Stores bundles one implementation of every store.  Inside RunInTx all
// of them share the transaction.
type Stores struct {
	Users        UserStore
	Admins       AdminStore
	Rooms        RoomStore
	Seats        SeatStore
	Reservations ReservationStore
	Feedback     FeedbackStore
}

// Transactor runs fn with stores bound to a single transaction.  The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(Stores) error) error
}

// NewSQLStores builds MySQL-backed stores over db, which may be a *sql.DB
// or a *sql.Tx.
func NewSQLStores(db repository.DBTX) Stores {
	return Stores{
		Users:        repository.NewUserRepo(db),
		Admins:       repository.NewAdminRepo(db),
		Rooms:        repository.NewStudyRoomRepo(db),
		Seats:        repository.NewSeatRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Feedback:     repository.NewFeedbackRepo(db),
	}
}

// SQLTransactor implements Transactor over *sql.DB.
type SQLTransactor struct {
	DB *sql.DB
}

func (t SQLTransactor) RunInTx(ctx context.Context, fn func(Stores) error) error {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(NewSQLStores(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Deps carries what every service needs.  Now and Loc define "today" and
// the current clock time; tests replace Now with a fixed instant.
type Deps struct {
	Stores   Stores
	Tx       Transactor
	Notifier Notifier
	Log      *logger.Logger
	Loc      *time.Location
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().In(d.loc())
	}
	return time.Now().In(d.loc())
}

func (d Deps) loc() *time.Location {
	if d.Loc != nil {
		return d.Loc
	}
	return time.Local
}

func (d Deps) today() model.Date { return model.DateOf(d.now()) }

// Today is the current calendar day in the service time zone.
func (d Deps) Today() model.Date { return d.today() }

func (d Deps) notify(ctx context.Context, evs ...queueEvent) {
	if d.Notifier == nil {
		return
	}
	for _, ev := range evs {
		d.Notifier.Notify(ctx, ev)
	}
}

// translate maps repository sentinels onto service errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return conflict(CodeDuplicate, "already exists")
	case errors.Is(err, repository.ErrConflict):
		return conflict(CodeHasReservations, "entity is still referenced")
	}
	return err
}

// notFound wraps ErrNotFound with the entity name so messages stay useful.
func notFound(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return translate(err)
}
