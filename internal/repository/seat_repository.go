package repository // repository defines data access for seats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db DBTX
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db DBTX) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, seat_number, study_room_id, status, created_at`

func scanSeat(row rowScanner) (*model.Seat, error) {
	var s model.Seat
	if err := row.Scan(&s.ID, &s.SeatNumber, &s.StudyRoomID, &s.Status, &s.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func prepareSeat(s *model.Seat) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = model.SeatAvailable
	}
}

// Create inserts a single seat.  A seat number already used in the room
// yields ErrDuplicate.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	prepareSeat(s)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO seats (id, seat_number, study_room_id, status, created_at) VALUES (?,?,?,?,?)",
		s.ID, s.SeatNumber, s.StudyRoomID, string(s.Status), s.CreatedAt)
	return mapErr(err)
}

// CreateBulk inserts multiple seats in a single statement.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO seats (id, seat_number, study_room_id, status, created_at) VALUES ")
	args := make([]any, 0, len(seats)*5)
	for i := range seats {
		prepareSeat(&seats[i])
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?,?,?,?)")
		s := seats[i]
		args = append(args, s.ID, s.SeatNumber, s.StudyRoomID, string(s.Status), s.CreatedAt)
	}
	_, err := r.db.ExecContext(ctx, b.String(), args...)
	return mapErr(err)
}

func (r *SeatRepo) GetByID(ctx context.Context, id string) (*model.Seat, error) {
	return scanSeat(r.db.QueryRowContext(ctx,
		"SELECT "+seatColumns+" FROM seats WHERE id=? LIMIT 1", id))
}

// GetByIDForUpdate locks the seat row; concurrent bookings of the same
// seat queue behind it.
func (r *SeatRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Seat, error) {
	return scanSeat(r.db.QueryRowContext(ctx,
		"SELECT "+seatColumns+" FROM seats WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// GetByRoomAndNumber looks a seat up by its number within a room.
func (r *SeatRepo) GetByRoomAndNumber(ctx context.Context, roomID, number string) (*model.Seat, error) {
	return scanSeat(r.db.QueryRowContext(ctx,
		"SELECT "+seatColumns+" FROM seats WHERE study_room_id=? AND seat_number=? LIMIT 1", roomID, number))
}

// ListByRoom retrieves the seats of a room ordered by seat number.
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID string) ([]model.Seat, error) {
	return r.query(ctx, "SELECT "+seatColumns+" FROM seats WHERE study_room_id=? ORDER BY seat_number, id", roomID)
}

// ListByRoomAfterNumber returns seats whose number sorts after number.
// Capacity shrinking uses it to find the surplus seats.
func (r *SeatRepo) ListByRoomAfterNumber(ctx context.Context, roomID, number string) ([]model.Seat, error) {
	return r.query(ctx, "SELECT "+seatColumns+" FROM seats WHERE study_room_id=? AND seat_number>? ORDER BY seat_number, id", roomID, number)
}

func (r *SeatRepo) CountByRoom(ctx context.Context, roomID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM seats WHERE study_room_id=?", roomID).Scan(&n)
	return n, mapErr(err)
}

func (r *SeatRepo) UpdateStatus(ctx context.Context, id string, status model.SeatStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE seats SET status=? WHERE id=? AND status<>?", string(status), id, string(status))
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

// Delete removes one seat.  Seats referenced by reservations fail with
// ErrConflict.
func (r *SeatRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM seats WHERE id=?", id)
	return affectedOne(res, err)
}

// DeleteByIDs removes a set of seats and reports how many went away.
func (r *SeatRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM seats WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (r *SeatRepo) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM seats WHERE study_room_id=?", roomID)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (r *SeatRepo) query(ctx context.Context, q string, args ...any) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query seats: %w", err)
	}
	defer rows.Close()

	seats := []model.Seat{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *s)
	}
	return seats, rows.Err()
}
