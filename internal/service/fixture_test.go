package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service/servicetest"
)

var shanghai = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		panic(err)
	}
	return loc
}()

// fixedNow is Monday 2026-10-19 10:30 in Shanghai.
var fixedNow = time.Date(2026, 10, 19, 10, 30, 0, 0, shanghai)

var today = model.MustDate("2026-10-19")

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Notify(_ context.Context, ev queue.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []queue.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

type fixture struct {
	db     *servicetest.DB
	deps   service.Deps
	events *recorder
	user   model.User
	room   model.StudyRoom
	seats  []model.Seat
}

// newFixture seeds one user and one room open 08:00-22:00 with three
// seats.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := servicetest.New()
	ev := &recorder{}
	deps := db.Deps(fixedNow, shanghai)
	deps.Notifier = ev

	f := &fixture{db: db, deps: deps, events: ev}
	f.user = db.PutUser(model.User{Username: "alice"})
	f.room = f.addRoom("Reading Room A", "08:00", "22:00", 3)
	f.seats = f.roomSeats(f.room.ID)
	return f
}

func (f *fixture) addRoom(name, open, closeAt string, seats int) model.StudyRoom {
	room := f.db.PutRoom(model.StudyRoom{
		Name:           name,
		Capacity:       seats,
		OpenTime:       model.MustClock(open),
		CloseTime:      model.MustClock(closeAt),
		MaxAdvanceDays: 7,
		CreatedAt:      fixedNow,
	})
	for i := 1; i <= seats; i++ {
		f.db.PutSeat(model.Seat{SeatNumber: model.SeatNumber(i), StudyRoomID: room.ID})
	}
	return room
}

func (f *fixture) roomSeats(roomID string) []model.Seat {
	seats, err := f.db.Stores().Seats.ListByRoom(context.Background(), roomID)
	if err != nil {
		panic(err)
	}
	return seats
}

func (f *fixture) addUser(name string) model.User {
	return f.db.PutUser(model.User{Username: name})
}

func (f *fixture) book(userID string, seat model.Seat, date model.Date, start, end string, status model.ReservationStatus) model.Reservation {
	return f.db.PutReservation(model.Reservation{
		UserID:      userID,
		SeatID:      seat.ID,
		StudyRoomID: seat.StudyRoomID,
		Date:        date,
		StartTime:   model.MustClock(start),
		EndTime:     model.MustClock(end),
		Status:      status,
		CreatedAt:   fixedNow,
	})
}

func (f *fixture) input(seat model.Seat, date model.Date, start, end string) service.CreateReservationInput {
	return service.CreateReservationInput{
		UserID:    f.user.ID,
		SeatID:    seat.ID,
		Date:      date,
		StartTime: model.MustClock(start),
		EndTime:   model.MustClock(end),
	}
}

func ptr[T any](v T) *T { return &v }
