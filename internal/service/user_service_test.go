package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
	"github.com/iliyamo/studyroom-seat-reservation/internal/utils"
)

var testAuth = service.AuthConfig{Secret: "test-secret", TTL: time.Hour, BcryptCost: bcrypt.MinCost}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := service.NewUserService(f.deps, testAuth)
	ctx := context.Background()

	u, err := svc.Register(ctx, "carol", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err = svc.Register(ctx, "carol", "secret2")
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, service.CodeDuplicate, ce.Code)

	_, err = svc.Register(ctx, "dave", "short")
	assert.Error(t, err)

	res, err := svc.Login(ctx, "carol", "secret1")
	require.NoError(t, err)
	claims, err := utils.ParseToken(testAuth.Secret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.Equal(t, "carol", claims.Subject)

	_, err = svc.Login(ctx, "carol", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLoginUpgradesHashCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := service.NewUserService(f.deps, testAuth).Register(ctx, "erin", "secret1")
	require.NoError(t, err)

	stronger := testAuth
	stronger.BcryptCost = bcrypt.MinCost + 1
	_, err = service.NewUserService(f.deps, stronger).Login(ctx, "erin", "secret1")
	require.NoError(t, err)

	stored, err := f.deps.Stores.Users.GetByUsername(ctx, "erin")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "secret1"))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	svc := service.NewUserService(f.deps, testAuth)
	ctx := context.Background()
	u, err := svc.Register(ctx, "erin", "initial1")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, "nope", "brand-new-1")
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, service.CodeWrongPassword, ve.Code)

	assert.Error(t, svc.ChangePassword(ctx, u.ID, "initial1", "short"))
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "initial1", "brand-new-1"))
	_, err = svc.Login(ctx, "erin", "brand-new-1")
	assert.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, u.ID, "reset-pass-1"))
	_, err = svc.Login(ctx, "erin", "reset-pass-1")
	assert.NoError(t, err)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "missing", "reset-pass-1"), service.ErrNotFound)
}

func TestBlacklistAdministration(t *testing.T) {
	f := newFixture(t)
	svc := service.NewUserService(f.deps, testAuth)
	ctx := context.Background()

	u, err := svc.AddToBlacklist(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, u.IsBlacklisted)

	_, err = svc.AddToBlacklist(ctx, f.user.ID)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, service.CodeAlreadyBlacklisted, ve.Code)

	st, err := svc.BlacklistStatus(ctx, f.user.ID, service.Caller{ID: f.user.ID})
	require.NoError(t, err)
	assert.True(t, st.IsBlacklisted)
	assert.Equal(t, model.BlacklistDuration.Milliseconds(), st.RemainingTime)

	_, err = svc.BlacklistStatus(ctx, f.user.ID, service.Caller{ID: "other"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	list, err := svc.ListBlacklisted(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	u, err = svc.RemoveFromBlacklist(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, u.IsBlacklisted)
	assert.Zero(t, u.NoShowCount)

	_, err = svc.RemoveFromBlacklist(ctx, f.user.ID)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, service.CodeNotBlacklisted, ve.Code)
}

func TestReleaseExpiredBlacklists(t *testing.T) {
	f := newFixture(t)
	expired := fixedNow.Add(-49 * time.Hour).UTC()
	fresh := fixedNow.Add(-time.Hour).UTC()
	old := f.db.PutUser(model.User{Username: "old", NoShowCount: 3, IsBlacklisted: true, BlacklistStartTime: &expired})
	recent := f.db.PutUser(model.User{Username: "recent", NoShowCount: 3, IsBlacklisted: true, BlacklistStartTime: &fresh})

	n, err := service.NewUserService(f.deps, testAuth).ReleaseExpiredBlacklists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := f.db.User(old.ID)
	assert.False(t, got.IsBlacklisted)
	assert.Zero(t, got.NoShowCount)
	assert.Nil(t, got.BlacklistStartTime)
	got, _ = f.db.User(recent.ID)
	assert.True(t, got.IsBlacklisted)
}

func TestAdminBootstrapAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAdminService(f.deps, testAuth)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, "root", "rootpass")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.EnsureBootstrapAdmin(ctx, "root", "other")
	require.NoError(t, err)
	assert.False(t, created)
	created, err = svc.EnsureBootstrapAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := svc.Login(ctx, "root", "rootpass")
	require.NoError(t, err)
	require.NotNil(t, res.Admin)
	claims, err := utils.ParseToken(testAuth.Secret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	_, err = svc.Register(ctx, "root", "another1")
	assert.Error(t, err)
	second, err := svc.Register(ctx, "ops", "opspass1")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, second.ID, "opspass1", "opspass-2"))
	_, err = svc.Login(ctx, "ops", "opspass1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestFeedbackFlow(t *testing.T) {
	f := newFixture(t)
	svc := service.NewFeedbackService(f.deps)
	ctx := context.Background()

	fb, err := svc.Submit(ctx, f.user.ID, "  the lamp at seat 002 flickers ", "facility")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackPending, fb.Status)
	assert.Equal(t, "FACILITY", fb.Type)

	_, err = svc.Submit(ctx, f.user.ID, "   ", "")
	assert.Error(t, err)

	_, err = svc.Get(ctx, fb.ID, service.Caller{ID: "other"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	mine, err := svc.Mine(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	done, err := svc.Respond(ctx, fb.ID, "admin-1", "fixed, thanks")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackProcessed, done.Status)
	require.NotNil(t, done.ProcessorID)
	assert.Equal(t, "admin-1", *done.ProcessorID)

	_, err = svc.Respond(ctx, fb.ID, "admin-1", "again")
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, service.CodeAlreadyProcessed, ce.Code)

	pending, err := svc.List(ctx, model.FeedbackPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAdminReservations(t *testing.T) {
	f := newFixture(t)
	svc := service.NewAdminReservationService(f.deps)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.book(f.user.ID, f.seats[0], today.AddDays(-i), "10:00", "11:00", model.StatusCompleted)
	}
	target := f.book(f.user.ID, f.seats[1], today, "14:00", "15:00", model.StatusConfirmed)

	page, err := svc.Search(ctx, repository.ReservationFilter{UserID: f.user.ID}, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Len(t, page.Items, 4)
	assert.Equal(t, target.ID, page.Items[0].ID)

	adjusted, err := svc.AdjustCheckIn(ctx, target.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, adjusted.Status)
	require.NotNil(t, adjusted.AdjustedBy)

	require.NoError(t, svc.Delete(ctx, target.ID, "admin-1"))
	stored, ok := f.db.Reservation(target.ID)
	require.True(t, ok)
	assert.True(t, stored.IsDeleted)
	assert.ErrorIs(t, svc.Delete(ctx, target.ID, "admin-1"), service.ErrNotFound)

	page, err = svc.Search(ctx, repository.ReservationFilter{}, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Items, 1)

	from, to := today, today.AddDays(-1)
	_, err = svc.Search(ctx, repository.ReservationFilter{From: &from, To: &to}, 1, 10)
	assert.Error(t, err)
}

func TestQuickReserve(t *testing.T) {
	f := newFixture(t)
	svc := service.NewReservationService(f.deps)
	ctx := context.Background()
	bob := f.addUser("bob")
	f.book(bob.ID, f.seats[0], today, "14:00", "16:00", model.StatusConfirmed)
	broken := f.seats[1]
	broken.Status = model.SeatUnavailable
	f.db.PutSeat(broken)

	in := service.QuickReserveInput{UserID: f.user.ID, Date: today, StartTime: model.MustClock("14:00"), EndTime: model.MustClock("16:00")}
	r, err := svc.QuickReserve(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, f.seats[2].ID, r.SeatID)

	// holds its own reservation now
	_, err = svc.QuickReserve(ctx, in)
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, service.CodeUserConflict, ce.Code)

	// the only room is full for carol
	carol := f.addUser("carol")
	in.UserID = carol.ID
	_, err = svc.QuickReserve(ctx, in)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, service.CodeNoSeatAvailable, ce.Code)

	// a later room that is open and free is found
	spare := f.addRoom("Spare", "08:00", "22:00", 1)
	r, err = svc.QuickReserve(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, spare.ID, r.StudyRoomID)
}
