package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// ReservationRepo provides access to the reservations table.  Rows flagged
// is_deleted are invisible to every read except Search with IncludeDeleted
// and PurgeDeleted.  All timestamp fields are stored in UTC; dates and
// clock times are local to the deployment's time zone.
type ReservationRepo struct {
	db DBTX
}

// NewReservationRepo returns a new ReservationRepo bound to db.
func NewReservationRepo(db DBTX) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, seat_id, study_room_id, reservation_date, start_time, end_time, status, remarks,
       is_deleted, deleted_by, deleted_at, adjusted_by, adjusted_at, created_at, updated_at`

// activeFilter matches rows that still occupy their interval.
const activeFilter = `is_deleted=0 AND status<>'CANCELLED'`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		r                     model.Reservation
		deletedBy, adjustedBy sql.NullString
		deletedAt, adjustedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.SeatID, &r.StudyRoomID, &r.Date, &r.StartTime, &r.EndTime,
		&r.Status, &r.Remarks, &r.IsDeleted, &deletedBy, &deletedAt, &adjustedBy, &adjustedAt,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	r.DeletedBy = stringPtr(deletedBy)
	r.DeletedAt = timePtr(deletedAt)
	r.AdjustedBy = stringPtr(adjustedBy)
	r.AdjustedAt = timePtr(adjustedAt)
	return &r, nil
}

// Create inserts res.  ID and timestamps are populated when empty.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = res.CreatedAt
	if res.Status == "" {
		res.Status = model.StatusConfirmed
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO reservations (id, user_id, seat_id, study_room_id, reservation_date, start_time, end_time, status, remarks, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, res.UserID, res.SeatID, res.StudyRoomID, res.Date, res.StartTime, res.EndTime,
		res.Status, res.Remarks, res.CreatedAt, res.UpdatedAt)
	return mapErr(err)
}

// GetByID returns a non-deleted reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id=? AND is_deleted=0 LIMIT 1", id))
}

// GetByIDForUpdate is GetByID holding a row lock.
func (r *ReservationRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id=? AND is_deleted=0 LIMIT 1 FOR UPDATE", id))
}

// UpdateStatus moves a reservation to status.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reservations SET status=?, updated_at=? WHERE id=? AND is_deleted=0",
		status, time.Now().UTC(), id)
	return affectedOne(res, err)
}

// Adjust forces a status on behalf of an admin and records who did it.
func (r *ReservationRepo) Adjust(ctx context.Context, id string, status model.ReservationStatus, adminID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reservations SET status=?, adjusted_by=?, adjusted_at=?, updated_at=? WHERE id=? AND is_deleted=0",
		status, adminID, at.UTC(), at.UTC(), id)
	return affectedOne(res, err)
}

// SoftDelete hides a reservation from every regular read.
func (r *ReservationRepo) SoftDelete(ctx context.Context, id, adminID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reservations SET is_deleted=1, deleted_by=?, deleted_at=?, updated_at=? WHERE id=? AND is_deleted=0",
		adminID, at.UTC(), at.UTC(), id)
	return affectedOne(res, err)
}

// FindSeatOverlaps returns active reservations of seatID on date whose
// interval intersects [start, end).
func (r *ReservationRepo) FindSeatOverlaps(ctx context.Context, seatID string, date model.Date, start, end model.Clock) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE seat_id=? AND reservation_date=? AND `+activeFilter+` AND start_time < ? AND ? < end_time
ORDER BY start_time`, seatID, date, end, start)
}

// FindUserOverlaps is FindSeatOverlaps keyed by user.
func (r *ReservationRepo) FindUserOverlaps(ctx context.Context, userID string, date model.Date, start, end model.Clock) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE user_id=? AND reservation_date=? AND `+activeFilter+` AND start_time < ? AND ? < end_time
ORDER BY start_time`, userID, date, end, start)
}

// CountActiveByUserOnDate counts the user's non-cancelled reservations on
// date; it backs the daily quota.
func (r *ReservationRepo) CountActiveByUserOnDate(ctx context.Context, userID string, date model.Date) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE user_id=? AND reservation_date=? AND "+activeFilter,
		userID, date).Scan(&n)
	return n, mapErr(err)
}

// ListByUser returns the user's reservations, newest day first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE user_id=? AND is_deleted=0 ORDER BY reservation_date DESC, start_time DESC`, userID)
}

func (r *ReservationRepo) ListByUserAndStatus(ctx context.Context, userID string, status model.ReservationStatus) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE user_id=? AND status=? AND is_deleted=0 ORDER BY reservation_date DESC, start_time DESC`, userID, status)
}

func (r *ReservationRepo) ListBySeat(ctx context.Context, seatID string) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE seat_id=? AND is_deleted=0 ORDER BY reservation_date DESC, start_time`, seatID)
}

func (r *ReservationRepo) ListByRoom(ctx context.Context, roomID string) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE study_room_id=? AND is_deleted=0 ORDER BY reservation_date DESC, start_time`, roomID)
}

func (r *ReservationRepo) ListByDate(ctx context.Context, date model.Date) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE reservation_date=? AND is_deleted=0 ORDER BY start_time, seat_id`, date)
}

// ListActiveByRoomAndDate feeds the room occupancy views.
func (r *ReservationRepo) ListActiveByRoomAndDate(ctx context.Context, roomID string, date model.Date) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE study_room_id=? AND reservation_date=? AND `+activeFilter+` ORDER BY seat_id, start_time`, roomID, date)
}

func (r *ReservationRepo) ListActiveBySeatAndDate(ctx context.Context, seatID string, date model.Date) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE seat_id=? AND reservation_date=? AND `+activeFilter+` ORDER BY start_time`, seatID, date)
}

// ListExpired returns reservations that ended at or before now and are
// still waiting for a final status.  Legacy PENDING rows are included and
// read back as CONFIRMED.
func (r *ReservationRepo) ListExpired(ctx context.Context, today model.Date, now model.Clock) ([]model.Reservation, error) {
	return r.query(ctx, "SELECT "+reservationColumns+` FROM reservations
WHERE status IN ('CONFIRMED','PENDING','CHECKED_IN') AND is_deleted=0
  AND (reservation_date < ? OR (reservation_date = ? AND end_time <= ?))
ORDER BY reservation_date, end_time`, today, today, now)
}

// PurgeDeleted physically removes soft-deleted rows deleted before cutoff.
func (r *ReservationRepo) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE is_deleted=1 AND deleted_at < ?", before.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

// ExistsBySeat reports whether any reservation row references seatID.
func (r *ReservationRepo) ExistsBySeat(ctx context.Context, seatID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM reservations WHERE seat_id=? LIMIT 1", seatID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

// SeatsWithReservations returns the subset of seatIDs that are referenced
// by at least one reservation row.
func (r *ReservationRepo) SeatsWithReservations(ctx context.Context, seatIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(seatIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(seatIDs))
	for i, id := range seatIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT seat_id FROM reservations WHERE seat_id IN ("+placeholders(len(seatIDs))+")", args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ReservationFilter narrows Search.  Zero values are ignored.
type ReservationFilter struct {
	UserID         string
	SeatID         string
	StudyRoomID    string
	Status         model.ReservationStatus
	From           *model.Date
	To             *model.Date
	IncludeDeleted bool
}

func (f ReservationFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.IncludeDeleted {
		conds = append(conds, "is_deleted=0")
	}
	if f.UserID != "" {
		conds = append(conds, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.SeatID != "" {
		conds = append(conds, "seat_id=?")
		args = append(args, f.SeatID)
	}
	if f.StudyRoomID != "" {
		conds = append(conds, "study_room_id=?")
		args = append(args, f.StudyRoomID)
	}
	if f.Status != "" {
		if f.Status == model.StatusConfirmed {
			conds = append(conds, "status IN ('CONFIRMED','PENDING')")
		} else {
			conds = append(conds, "status=?")
			args = append(args, f.Status)
		}
	}
	if f.From != nil {
		conds = append(conds, "reservation_date>=?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "reservation_date<=?")
		args = append(args, *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Search pages through reservations matching f, newest first.  page is
// 1-based.  The second result is the total number of matches.
func (r *ReservationRepo) Search(ctx context.Context, f ReservationFilter, page, size int) ([]model.Reservation, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	where, args := f.where()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations"+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}
	if total == 0 {
		return []model.Reservation{}, 0, nil
	}

	q := "SELECT " + reservationColumns + " FROM reservations" + where +
		" ORDER BY reservation_date DESC, start_time DESC, id LIMIT ? OFFSET ?"
	items, err := r.query(ctx, q, append(args, size, (page-1)*size)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
