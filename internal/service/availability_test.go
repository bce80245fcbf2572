package service_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seat-reservation/internal/cache"
	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

func window(start, end string) service.Window {
	return service.Window{Start: model.MustClock(start), End: model.MustClock(end)}
}

func TestResolveWindow(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.deps, nil)

	w, err := svc.ResolveWindow(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, window("10:00", "11:00"), w)

	w, err = svc.ResolveWindow(ptr(model.MustClock("14:00")), nil)
	require.NoError(t, err)
	assert.Equal(t, window("14:00", "15:00"), w)

	_, err = svc.ResolveWindow(ptr(model.MustClock("14:00")), ptr(model.MustClock("13:00")))
	assert.Error(t, err)
}

func TestCheckSeat(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.deps, nil)
	ctx := context.Background()
	existing := f.book(f.user.ID, f.seats[0], today, "14:00", "16:00", model.StatusConfirmed)

	res, err := svc.CheckSeat(ctx, f.seats[0].ID, today, model.MustClock("15:00"), model.MustClock("17:00"))
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.Len(t, res.Overlapping, 1)
	assert.Equal(t, existing.ID, res.Overlapping[0].ID)

	res, err = svc.CheckSeat(ctx, f.seats[0].ID, today, model.MustClock("16:00"), model.MustClock("17:00"))
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, f.room.Name, res.SeatInfo.StudyRoomName)
	assert.Equal(t, model.MustClock("16:00"), res.TimeInfo.StartTime)

	res, err = svc.CheckSeat(ctx, f.seats[0].ID, today, model.MustClock("21:00"), model.MustClock("23:00"))
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Contains(t, res.Message, "08:00 - 22:00")

	res, err = svc.CheckSeat(ctx, f.seats[0].ID, today.AddDays(9), model.MustClock("10:00"), model.MustClock("11:00"))
	require.NoError(t, err)
	assert.False(t, res.Available)

	_, err = svc.CheckSeat(ctx, "missing", today, model.MustClock("10:00"), model.MustClock("11:00"))
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.deps, nil)
	ctx := context.Background()
	f.book(f.user.ID, f.seats[0], today, "10:00", "12:00", model.StatusConfirmed)
	f.book(f.user.ID, f.seats[0], today, "14:00", "15:00", model.StatusCheckedIn)
	f.book(f.user.ID, f.seats[0], today, "16:00", "17:00", model.StatusCancelled)
	broken := f.seats[2]
	broken.Status = model.SeatUnavailable
	f.db.PutSeat(broken)

	res, err := svc.AvailableSlots(ctx, f.room.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalSeats)
	assert.Equal(t, 2, res.AvailableSeats)
	assert.Equal(t, []service.Slot{
		{Start: model.MustClock("08:00"), End: model.MustClock("10:00")},
		{Start: model.MustClock("12:00"), End: model.MustClock("14:00")},
		{Start: model.MustClock("15:00"), End: model.MustClock("22:00")},
	}, res.SeatAvailability[f.seats[0].ID])
	assert.Equal(t, []service.Slot{{Start: model.MustClock("08:00"), End: model.MustClock("22:00")}}, res.SeatAvailability[f.seats[1].ID])
	assert.NotContains(t, res.SeatAvailability, broken.ID)

	_, err = svc.AvailableSlots(ctx, f.room.ID, today.AddDays(8))
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, service.CodeDateOutOfRange, ve.Code)
}

func TestAvailableSlotsClosedRoom(t *testing.T) {
	f := newFixture(t)
	room := f.room
	room.Status = model.RoomMaintenance
	f.db.PutRoom(room)

	res, err := service.NewAvailabilityService(f.deps, nil).AvailableSlots(context.Background(), room.ID, today)
	require.NoError(t, err)
	assert.Equal(t, model.RoomMaintenance, res.Status)
	assert.Empty(t, res.SeatAvailability)
}

func TestRoomStatusAt(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.deps, nil)
	ctx := context.Background()
	w := window("14:00", "15:00")

	st, err := svc.RoomStatusAt(ctx, f.room.ID, today, w)
	require.NoError(t, err)
	assert.Equal(t, service.ViewEmpty, st.Status)

	bob := f.addUser("bob")
	f.book(f.user.ID, f.seats[0], today, "13:00", "14:30", model.StatusConfirmed)
	// two reservations on one seat still count as one occupied seat
	f.book(bob.ID, f.seats[0], today, "14:30", "15:00", model.StatusConfirmed)
	st, err = svc.RoomStatusAt(ctx, f.room.ID, today, w)
	require.NoError(t, err)
	assert.Equal(t, service.ViewAvailable, st.Status)
	assert.Equal(t, 1, st.ReservedSeats)
	assert.Equal(t, 2, st.AvailableSeats)

	f.book(bob.ID, f.seats[1], today, "14:00", "15:00", model.StatusConfirmed)
	f.book(bob.ID, f.seats[2], today, "12:00", "18:00", model.StatusCheckedIn)
	st, err = svc.RoomStatusAt(ctx, f.room.ID, today, w)
	require.NoError(t, err)
	assert.Equal(t, service.ViewFull, st.Status)
}

func TestRoomSeatsStatus(t *testing.T) {
	f := newFixture(t)
	broken := f.seats[2]
	broken.Status = model.SeatUnavailable
	f.db.PutSeat(broken)
	r := f.book(f.user.ID, f.seats[0], today, "10:00", "12:00", model.StatusCheckedIn)

	seats, err := service.NewAvailabilityService(f.deps, nil).RoomSeatsStatus(context.Background(), f.room.ID, today, window("10:00", "11:00"))
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, string(model.StatusCheckedIn), seats[0].Status)
	assert.Equal(t, r.ID, seats[0].ReservationID)
	assert.Equal(t, service.ViewAvailable, seats[1].Status)
	assert.Equal(t, string(model.SeatUnavailable), seats[2].Status)
}

func TestRoomsStatus(t *testing.T) {
	f := newFixture(t)
	evening := f.addRoom("Evening Room", "18:00", "23:00", 1)
	closed := f.addRoom("Closed Room", "08:00", "22:00", 1)
	closed.Status = model.RoomUnavailable
	f.db.PutRoom(closed)
	full := f.addRoom("Tiny Room", "08:00", "22:00", 1)
	f.book(f.user.ID, f.roomSeats(full.ID)[0], today, "10:00", "11:00", model.StatusConfirmed)

	rooms, err := service.NewAvailabilityService(f.deps, nil).RoomsStatus(context.Background(), today, window("10:00", "11:00"))
	require.NoError(t, err)
	got := map[string]string{}
	for _, r := range rooms {
		got[r.ID] = r.Status
	}
	assert.Equal(t, map[string]string{
		f.room.ID:  service.ViewAvailable,
		evening.ID: service.ViewClosed,
		closed.ID:  string(model.RoomUnavailable),
		full.ID:    service.ViewFull,
	}, got)
}

func TestRoomDetailAt(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.deps, nil)
	ctx := context.Background()
	w := window("10:00", "11:00")

	d, err := svc.RoomDetailAt(ctx, f.room.ID, today, w)
	require.NoError(t, err)
	assert.Equal(t, service.ViewEmpty, d.Status)
	assert.Equal(t, 3, d.AvailableSeats)

	r := f.book(f.user.ID, f.seats[0], today, "10:00", "12:00", model.StatusConfirmed)
	d, err = svc.RoomDetailAt(ctx, f.room.ID, today, w)
	require.NoError(t, err)
	assert.Equal(t, service.ViewAvailable, d.Status)
	assert.Equal(t, service.ViewOccupied, d.Seats[0].Status)
	assert.Equal(t, r.ID, d.Seats[0].ReservationID)

	for _, s := range f.seats[1:] {
		s.Status = model.SeatUnavailable
		f.db.PutSeat(s)
	}
	d, err = svc.RoomDetailAt(ctx, f.room.ID, today, w)
	require.NoError(t, err)
	assert.Equal(t, service.ViewFull, d.Status)
	assert.Equal(t, 1, d.PhysicallyAvailableSeats)

	s := f.seats[0]
	s.Status = model.SeatUnavailable
	f.db.PutSeat(s)
	d, err = svc.RoomDetailAt(ctx, f.room.ID, today, w)
	require.NoError(t, err)
	assert.Equal(t, service.ViewNoAvailableSeats, d.Status)
}

func newRedisCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.New(rdb, 0, logger.Nop()), mr
}

func TestSeatStatusForSlotIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	c, mr := newRedisCache(t)
	f.deps.Notifier = service.Fanout{c, f.events}
	svc := service.NewAvailabilityService(f.deps, c)
	ctx := context.Background()
	start, end := model.MustClock("14:00"), model.MustClock("16:00")
	seat := f.seats[0]

	st, err := svc.SeatStatusForSlot(ctx, seat.ID, today, start, end)
	require.NoError(t, err)
	assert.Equal(t, service.ViewAvailable, st.CurrentStatus)
	assert.True(t, mr.Exists(cache.SeatStatusKey(seat.ID, today, start, end)))

	// a direct write bypasses invalidation, so the cached answer survives
	f.book(f.user.ID, seat, today, "15:00", "17:00", model.StatusConfirmed)
	st, err = svc.SeatStatusForSlot(ctx, seat.ID, today, start, end)
	require.NoError(t, err)
	assert.Equal(t, service.ViewAvailable, st.CurrentStatus)

	// a reservation event drops every key of the seat
	f.deps.Notifier.Notify(ctx, queue.Event{Kind: queue.ReservationCreated, SeatID: seat.ID})
	assert.False(t, mr.Exists(cache.SeatStatusKey(seat.ID, today, start, end)))
	st, err = svc.SeatStatusForSlot(ctx, seat.ID, today, start, end)
	require.NoError(t, err)
	assert.Equal(t, service.ViewReserved, st.CurrentStatus)
	assert.Len(t, st.Overlapping, 1)
}

func TestSeatStatusForSlotStates(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.deps, nil)
	ctx := context.Background()

	st, err := svc.SeatStatusForSlot(ctx, f.seats[0].ID, today, model.MustClock("06:00"), model.MustClock("07:00"))
	require.NoError(t, err)
	assert.Equal(t, service.ViewClosed, st.CurrentStatus)
	require.NotNil(t, st.OpenTime)
	assert.Equal(t, model.MustClock("08:00"), *st.OpenTime)

	s := f.seats[1]
	s.Status = model.SeatUnavailable
	f.db.PutSeat(s)
	st, err = svc.SeatStatusForSlot(ctx, s.ID, today, model.MustClock("10:00"), model.MustClock("11:00"))
	require.NoError(t, err)
	assert.Equal(t, service.ViewUnavailable, st.CurrentStatus)
	assert.False(t, st.Available)
}

func TestSeatRealTimeStatus(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.deps, nil)
	ctx := context.Background()
	seat := f.seats[0]
	current := f.book(f.user.ID, seat, today, "10:00", "12:00", model.StatusCheckedIn)
	f.book(f.user.ID, seat, today, "15:00", "16:00", model.StatusConfirmed)

	st, err := svc.SeatRealTimeStatus(ctx, seat.ID, model.Date{})
	require.NoError(t, err)
	assert.Equal(t, service.ViewOccupied, st.CurrentStatus)
	require.NotNil(t, st.CurrentReservation)
	assert.Equal(t, current.ID, st.CurrentReservation.ID)
	assert.Len(t, st.ReservedSlots, 2)
	assert.Equal(t, []service.Slot{
		{Start: model.MustClock("08:00"), End: model.MustClock("10:00")},
		{Start: model.MustClock("12:00"), End: model.MustClock("15:00")},
		{Start: model.MustClock("16:00"), End: model.MustClock("22:00")},
	}, st.FreeSlots)

	st, err = svc.SeatRealTimeStatus(ctx, f.seats[1].ID, today.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, service.ViewAvailable, st.CurrentStatus)
	assert.Nil(t, st.CurrentReservation)
}

func TestSeatRealTimeStatusClosed(t *testing.T) {
	f := newFixture(t)
	late := f.addRoom("Night Room", "18:00", "23:00", 1)

	st, err := service.NewAvailabilityService(f.deps, nil).SeatRealTimeStatus(context.Background(), f.roomSeats(late.ID)[0].ID, today)
	require.NoError(t, err)
	assert.Equal(t, service.ViewClosed, st.CurrentStatus)
}
