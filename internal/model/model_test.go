package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Hour())
	assert.Equal(t, 30, c.Minute())
	assert.Equal(t, "08:30", c.String())

	c, err = ParseClock("22:00:00")
	require.NoError(t, err)
	assert.Equal(t, "22:00", c.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("")
	assert.Error(t, err)
}

func TestClockScanAndValue(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan([]byte("13:45:00")))
	assert.Equal(t, MustClock("13:45"), c)

	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "13:45:00", v)

	assert.Error(t, c.Scan(42))
}

func TestClockAddClamps(t *testing.T) {
	assert.Equal(t, "09:45", MustClock("10:00").Add(-15*time.Minute).String())
	assert.Equal(t, "00:00", MustClock("00:10").Add(-time.Hour).String())
	assert.Equal(t, "23:59", MustClock("23:30").Add(time.Hour).String())
	assert.Equal(t, "10:00", MustClock("10:37").Truncate().String())
}

func TestDateJSONRoundTrip(t *testing.T) {
	type payload struct {
		Date  Date  `json:"date"`
		Start Clock `json:"start"`
	}
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-03-05","start":"10:00"}`), &p))
	assert.Equal(t, "2024-03-05", p.Date.String())
	assert.Equal(t, MustClock("10:00"), p.Start)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-03-05","start":"10:00"}`, string(out))
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	instant := time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC) // 04:00 next day in UTC+8
	assert.Equal(t, "2024-03-05", DateOf(instant).String())
	assert.Equal(t, "2024-03-06", DateOf(instant.In(loc)).String())
}

func TestDateAt(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	at := MustDate("2024-03-05").At(MustClock("09:15"), loc)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 15, 0, 0, loc), at)
}

func TestParseReservationStatusFoldsPending(t *testing.T) {
	st, ok := ParseReservationStatus("pending")
	assert.True(t, ok)
	assert.Equal(t, StatusConfirmed, st)

	st, ok = ParseReservationStatus("CHECKED_IN")
	assert.True(t, ok)
	assert.Equal(t, StatusCheckedIn, st)

	_, ok = ParseReservationStatus("EXPIRED")
	assert.False(t, ok)

	var scanned ReservationStatus
	require.NoError(t, scanned.Scan([]byte("PENDING")))
	assert.Equal(t, StatusConfirmed, scanned)
}

func TestReservationActive(t *testing.T) {
	r := Reservation{Status: StatusConfirmed}
	assert.True(t, r.Active())
	r.Status = StatusNoShow
	assert.True(t, r.Active())
	r.Status = StatusCancelled
	assert.False(t, r.Active())
	r = Reservation{Status: StatusConfirmed, IsDeleted: true}
	assert.False(t, r.Active())
}

func TestUserRecordNoShowBlacklistsAtThreshold(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	u := &User{}

	assert.False(t, u.RecordNoShow(now))
	assert.False(t, u.RecordNoShow(now))
	assert.False(t, u.IsBlacklisted)

	assert.True(t, u.RecordNoShow(now))
	assert.Equal(t, 3, u.NoShowCount)
	assert.True(t, u.IsBlacklisted)
	require.NotNil(t, u.BlacklistStartTime)
	assert.Equal(t, now, *u.BlacklistStartTime)

	// a fourth no-show keeps the original start time
	later := now.Add(time.Hour)
	assert.False(t, u.RecordNoShow(later))
	assert.Equal(t, now, *u.BlacklistStartTime)
}

func TestUserBlacklistRemaining(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	start := now.Add(-12 * time.Hour)
	u := User{IsBlacklisted: true, BlacklistStartTime: &start}
	assert.Equal(t, 36*time.Hour, u.BlacklistRemaining(now))
	assert.False(t, u.BlacklistExpired(now))

	old := now.Add(-72 * time.Hour)
	u = User{IsBlacklisted: true, BlacklistStartTime: &old}
	assert.Equal(t, time.Duration(0), u.BlacklistRemaining(now))
	assert.True(t, u.BlacklistExpired(now))

	u.ClearBlacklist()
	assert.False(t, u.IsBlacklisted)
	assert.Nil(t, u.BlacklistStartTime)
	assert.Equal(t, 0, u.NoShowCount)
}

func TestStudyRoomContains(t *testing.T) {
	room := StudyRoom{OpenTime: MustClock("08:00"), CloseTime: MustClock("22:00")}
	assert.True(t, room.Contains(MustClock("08:00"), MustClock("22:00")))
	assert.True(t, room.Contains(MustClock("10:00"), MustClock("12:00")))
	assert.False(t, room.Contains(MustClock("07:30"), MustClock("09:00")))
	assert.False(t, room.Contains(MustClock("21:00"), MustClock("22:30")))
	assert.Equal(t, "007", SeatNumber(7))
}
