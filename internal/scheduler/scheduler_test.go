package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seat-reservation/internal/config"
	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

type mockReservations struct{ mock.Mock }

func (m *mockReservations) SweepExpired(ctx context.Context) (service.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.SweepResult), args.Error(1)
}

func (m *mockReservations) PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) ReleaseExpiredBlacklists(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:        true,
		StatusSpec:     "@every 1m",
		BlacklistSpec:  "@every 1h",
		PurgeSpec:      "0 0 * * MON",
		PurgeRetention: 7 * 24 * time.Hour,
		JobTimeout:     time.Second,
	}
}

func TestNewRegistersJobs(t *testing.T) {
	s, err := New(testConfig(), Jobs{Reservations: &mockReservations{}, Users: &mockUsers{}}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{JobBlacklistRelease, JobPurgeDeleted, JobStatusSweep}, s.Names())
	assert.Len(t, s.cron.Entries(), 3)
}

func TestNewRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.PurgeSpec = "every tuesday-ish"
	_, err := New(cfg, Jobs{Reservations: &mockReservations{}, Users: &mockUsers{}}, logger.Nop())
	assert.Error(t, err)
}

func TestRunDispatchesWithDeadline(t *testing.T) {
	res := &mockReservations{}
	users := &mockUsers{}
	hasDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})
	res.On("SweepExpired", hasDeadline).Return(service.SweepResult{NoShow: 2, Completed: 1}, nil).Once()
	res.On("PurgeDeleted", hasDeadline, 7*24*time.Hour).Return(int64(4), nil).Once()
	users.On("ReleaseExpiredBlacklists", hasDeadline).Return(3, nil).Once()

	var out bytes.Buffer
	s, err := New(testConfig(), Jobs{Reservations: res, Users: users}, logger.NewWithWriters(&out, nil))
	require.NoError(t, err)

	require.NoError(t, s.Run(JobStatusSweep))
	require.NoError(t, s.Run(JobPurgeDeleted))
	require.NoError(t, s.Run(JobBlacklistRelease))

	res.AssertExpectations(t)
	users.AssertExpectations(t)
	assert.Contains(t, out.String(), "no_show=2 completed=1")
	assert.Contains(t, out.String(), "purged=4")
	assert.Contains(t, out.String(), "released=3")
}

func TestRunReportsFailure(t *testing.T) {
	res := &mockReservations{}
	res.On("SweepExpired", mock.Anything).Return(service.SweepResult{}, errors.New("db down"))

	var out bytes.Buffer
	s, err := New(testConfig(), Jobs{Reservations: res, Users: &mockUsers{}}, logger.NewWithWriters(&out, nil))
	require.NoError(t, err)

	assert.EqualError(t, s.Run(JobStatusSweep), "db down")
	assert.Contains(t, out.String(), "db down")
	assert.Error(t, s.Run("nope"))
}

func TestStopReturns(t *testing.T) {
	s, err := New(testConfig(), Jobs{Reservations: &mockReservations{}, Users: &mockUsers{}}, logger.Nop())
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
