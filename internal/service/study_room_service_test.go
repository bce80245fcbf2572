package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
	"github.com/iliyamo/studyroom-seat-reservation/internal/storage"
)

type fakeImages struct {
	saved   []string
	removed []string
	err     error
}

func (f *fakeImages) SaveRoomImage(_ context.Context, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	url := "/uploads/study-rooms/" + string(b) + ".jpg"
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeImages) Remove(url string) error {
	f.removed = append(f.removed, url)
	return nil
}

func seatNumbers(seats []model.Seat) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.SeatNumber
	}
	return out
}

func TestCreateRoomProvisionsSeats(t *testing.T) {
	f := newFixture(t)
	svc := service.NewStudyRoomService(f.deps, nil, nil)

	room, err := svc.Create(context.Background(), service.CreateRoomInput{
		Name:      "  Quiet Room ",
		Capacity:  4,
		OpenTime:  model.MustClock("09:00"),
		CloseTime: model.MustClock("21:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Quiet Room", room.Name)
	assert.Equal(t, service.DefaultAdvanceDays, room.MaxAdvanceDays)
	assert.Equal(t, []string{"001", "002", "003", "004"}, seatNumbers(f.roomSeats(room.ID)))
	assert.Equal(t, []queue.Kind{queue.RoomCreated}, f.events.kinds())
	assert.Len(t, f.events.events[0].SeatIDs, 4)
}

func TestCreateRoomValidation(t *testing.T) {
	f := newFixture(t)
	svc := service.NewStudyRoomService(f.deps, nil, nil)
	ctx := context.Background()
	good := service.CreateRoomInput{Name: "R", Capacity: 1, OpenTime: model.MustClock("08:00"), CloseTime: model.MustClock("20:00")}

	bad := good
	bad.Capacity = 0
	_, err := svc.Create(ctx, bad)
	assert.Error(t, err)

	bad = good
	bad.Name = " "
	_, err = svc.Create(ctx, bad)
	assert.Error(t, err)

	bad = good
	bad.OpenTime, bad.CloseTime = bad.CloseTime, bad.OpenTime
	_, err = svc.Create(ctx, bad)
	assert.Error(t, err)
}

func TestUpdateRoomCapacity(t *testing.T) {
	f := newFixture(t)
	svc := service.NewStudyRoomService(f.deps, nil, nil)
	ctx := context.Background()

	room, err := svc.Update(ctx, f.room.ID, service.UpdateRoomInput{Capacity: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, room.Capacity)
	assert.Equal(t, []string{"001", "002", "003", "004", "005"}, seatNumbers(f.roomSeats(f.room.ID)))
	assert.Equal(t, []queue.Kind{queue.RoomCapacityChanged}, f.events.kinds())

	room, err = svc.Update(ctx, f.room.ID, service.UpdateRoomInput{Capacity: ptr(2), Name: ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", room.Name)
	assert.Equal(t, []string{"001", "002"}, seatNumbers(f.roomSeats(f.room.ID)))
}

func TestUpdateRoomShrinkRejectedWhenReserved(t *testing.T) {
	f := newFixture(t)
	f.book(f.user.ID, f.seats[2], today.AddDays(-3), "10:00", "11:00", model.StatusCompleted)

	_, err := service.NewStudyRoomService(f.deps, nil, nil).Update(context.Background(), f.room.ID, service.UpdateRoomInput{Capacity: ptr(1)})
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, service.CodeHasReservations, ce.Code)

	// nothing changed: the transaction rolled back
	assert.Len(t, f.roomSeats(f.room.ID), 3)
	room, _ := f.db.Stores().Rooms.GetByID(context.Background(), f.room.ID)
	assert.Equal(t, 3, room.Capacity)
}

func TestUpdateRoomHoursEvictsEverySeat(t *testing.T) {
	f := newFixture(t)
	_, err := service.NewStudyRoomService(f.deps, nil, nil).Update(context.Background(), f.room.ID,
		service.UpdateRoomInput{OpenTime: ptr(model.MustClock("07:00"))})
	require.NoError(t, err)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, queue.RoomUpdated, f.events.events[0].Kind)
	assert.ElementsMatch(t, []string{f.seats[0].ID, f.seats[1].ID, f.seats[2].ID}, f.events.events[0].SeatIDs)
}

func TestDeleteRoom(t *testing.T) {
	f := newFixture(t)
	svc := service.NewStudyRoomService(f.deps, nil, nil)
	ctx := context.Background()

	f.book(f.user.ID, f.seats[0], today, "10:00", "11:00", model.StatusCancelled)
	err := svc.Delete(ctx, f.room.ID)
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)

	empty := f.addRoom("Empty", "08:00", "20:00", 2)
	require.NoError(t, svc.Delete(ctx, empty.ID))
	assert.Empty(t, f.roomSeats(empty.ID))
	_, err = svc.Get(ctx, empty.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "missing"), service.ErrNotFound)
}

func TestSetRoomStatus(t *testing.T) {
	f := newFixture(t)
	room, err := service.NewStudyRoomService(f.deps, nil, nil).SetStatus(context.Background(), f.room.ID, model.RoomMaintenance)
	require.NoError(t, err)
	assert.Equal(t, model.RoomMaintenance, room.Status)
}

func TestRoomSeatsReadThrough(t *testing.T) {
	f := newFixture(t)
	c, mr := newRedisCache(t)
	svc := service.NewStudyRoomService(f.deps, c, nil)
	ctx := context.Background()

	seats, err := svc.Seats(ctx, f.room.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 3)
	assert.True(t, mr.Exists("study_room:seats:"+f.room.ID))

	_, err = svc.Seats(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t)
	images := &fakeImages{}
	svc := service.NewStudyRoomService(f.deps, nil, images)
	ctx := context.Background()

	room, err := svc.UploadImage(ctx, f.room.ID, strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/study-rooms/first.jpg", room.ImageURL)

	room, err = svc.UploadImage(ctx, f.room.ID, strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/study-rooms/second.jpg", room.ImageURL)
	assert.Equal(t, []string{"/uploads/study-rooms/first.jpg"}, images.removed)

	images.err = errors.Join(storage.ErrInvalidImage, errors.New("bad header"))
	_, err = svc.UploadImage(ctx, f.room.ID, strings.NewReader("x"))
	var ve *service.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSeatService(t *testing.T) {
	f := newFixture(t)
	svc := service.NewSeatService(f.deps)
	ctx := context.Background()

	seat, err := svc.Create(ctx, f.room.ID, "A1", "")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, seat.Status)

	_, err = svc.Create(ctx, f.room.ID, "A1", "")
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, service.CodeDuplicate, ce.Code)

	_, err = svc.Create(ctx, "missing", "B1", "")
	assert.ErrorIs(t, err, service.ErrNotFound)

	created, err := svc.CreateBatch(ctx, f.room.ID, 3, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A3"}, seatNumbers(created))

	_, err = svc.CreateBatch(ctx, f.room.ID, 0, "A")
	assert.Error(t, err)

	updated, err := svc.SetStatus(ctx, seat.ID, model.SeatUnavailable)
	require.NoError(t, err)
	assert.Equal(t, model.SeatUnavailable, updated.Status)

	require.NoError(t, svc.Delete(ctx, seat.ID))
	assert.ErrorIs(t, svc.Delete(ctx, seat.ID), service.ErrNotFound)

	f.book(f.user.ID, f.seats[0], today, "10:00", "11:00", model.StatusCompleted)
	err = svc.Delete(ctx, f.seats[0].ID)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, service.CodeHasReservations, ce.Code)

	_, err = svc.DeleteByRoom(ctx, f.room.ID)
	assert.ErrorAs(t, err, &ce)

	other := f.addRoom("Other", "08:00", "20:00", 4)
	n, err := svc.DeleteByRoom(ctx, other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
