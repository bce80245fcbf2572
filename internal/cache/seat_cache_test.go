package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestKeys(t *testing.T) {
	key := SeatStatusKey("s1", model.MustDate("2024-03-05"), model.MustClock("10:00"), model.MustClock("11:00"))
	assert.Equal(t, "seat:status:s1:2024-03-05:10:00:11:00", key)
	assert.Equal(t, "study_room:seats:r1", RoomSeatsKey("r1"))
}

func TestLoadReadsThrough(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := New(client, time.Hour, logger.Nop())
	ctx := context.Background()

	calls := 0
	load := func() (string, error) {
		calls++
		return "AVAILABLE", nil
	}
	v, err := Load(ctx, c, "seat:status:s1:x", load)
	require.NoError(t, err)
	assert.Equal(t, "AVAILABLE", v)
	v, err = Load(ctx, c, "seat:status:s1:x", load)
	require.NoError(t, err)
	assert.Equal(t, "AVAILABLE", v)
	assert.Equal(t, 1, calls)

	assert.Equal(t, time.Hour, mr.TTL("seat:status:s1:x"))
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := New(client, 0, logger.Nop())

	_, err := Load(context.Background(), c, "k", func() (int, error) { return 0, errors.New("db down") })
	assert.Error(t, err)
	assert.False(t, mr.Exists("k"))
}

func TestNilClientIsAlwaysMiss(t *testing.T) {
	c := New(nil, 0, logger.Nop())
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Load(context.Background(), c, "k", func() (int, error) { calls++; return 1, nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.InvalidateSeat(context.Background(), "s1"))
	c.Notify(context.Background(), queue.Event{Kind: queue.SeatDeleted, SeatID: "s1"})
}

func TestNotifyReservationDropsOnlyThatSeat(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := New(client, 0, logger.Nop())
	ctx := context.Background()

	for _, k := range []string{
		"seat:status:s1:2024-03-05:10:00:11:00",
		"seat:status:s1:2024-03-06:08:00:09:00",
		"seat:status:s10:2024-03-05:10:00:11:00",
		"study_room:seats:r1",
	} {
		require.NoError(t, mr.Set(k, `"AVAILABLE"`))
	}

	c.Notify(ctx, queue.Event{Kind: queue.ReservationCreated, SeatID: "s1", StudyRoomID: "r1"})

	assert.False(t, mr.Exists("seat:status:s1:2024-03-05:10:00:11:00"))
	assert.False(t, mr.Exists("seat:status:s1:2024-03-06:08:00:09:00"))
	assert.True(t, mr.Exists("seat:status:s10:2024-03-05:10:00:11:00"))
	assert.True(t, mr.Exists("study_room:seats:r1"))
}

func TestNotifyRoomCapacityDropsRoomAndSeats(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := New(client, 0, logger.Nop())

	require.NoError(t, mr.Set("study_room:seats:r1", "[]"))
	require.NoError(t, mr.Set("seat:status:s7:2024-03-05:10:00:11:00", `"RESERVED"`))

	c.Notify(context.Background(), queue.RoomEvent(queue.RoomCapacityChanged, "r1", []string{"s7"}, time.Now()))

	assert.False(t, mr.Exists("study_room:seats:r1"))
	assert.False(t, mr.Exists("seat:status:s7:2024-03-05:10:00:11:00"))
}

func TestSeatStatusChangeDropsRoomList(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := New(client, 0, logger.Nop())
	require.NoError(t, mr.Set("study_room:seats:r1", "[]"))

	c.Notify(context.Background(), queue.SeatEvent(queue.SeatStatusChanged, model.Seat{ID: "s1", StudyRoomID: "r1"}, time.Now()))
	assert.False(t, mr.Exists("study_room:seats:r1"))
}
