package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// StudyRoomRepo encapsulates the study_rooms table.
type StudyRoomRepo struct{ db DBTX }

func NewStudyRoomRepo(db DBTX) *StudyRoomRepo { return &StudyRoomRepo{db: db} }

const roomColumns = `id, name, location, capacity, description, open_time, close_time, max_advance_days, status, image_url, created_at`

func scanRoom(row rowScanner) (*model.StudyRoom, error) {
	var r model.StudyRoom
	if err := row.Scan(&r.ID, &r.Name, &r.Location, &r.Capacity, &r.Description,
		&r.OpenTime, &r.CloseTime, &r.MaxAdvanceDays, &r.Status, &r.ImageURL, &r.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// Create inserts room, assigning an id when empty.
func (r *StudyRoomRepo) Create(ctx context.Context, room *model.StudyRoom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	if room.Status == "" {
		room.Status = model.RoomAvailable
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO study_rooms (id, name, location, capacity, description, open_time, close_time, max_advance_days, status, image_url, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		room.ID, room.Name, room.Location, room.Capacity, room.Description,
		room.OpenTime, room.CloseTime, room.MaxAdvanceDays, string(room.Status), room.ImageURL, room.CreatedAt)
	return mapErr(err)
}

func (r *StudyRoomRepo) GetByID(ctx context.Context, id string) (*model.StudyRoom, error) {
	return scanRoom(r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM study_rooms WHERE id=? LIMIT 1", id))
}

// GetByIDForUpdate locks the room row; capacity changes hold it while they
// rewrite the seat set.
func (r *StudyRoomRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.StudyRoom, error) {
	return scanRoom(r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM study_rooms WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// List returns every room, oldest first.
func (r *StudyRoomRepo) List(ctx context.Context) ([]model.StudyRoom, error) {
	return r.query(ctx, "SELECT "+roomColumns+" FROM study_rooms ORDER BY created_at, id")
}

func (r *StudyRoomRepo) ListByStatus(ctx context.Context, status model.RoomStatus) ([]model.StudyRoom, error) {
	return r.query(ctx, "SELECT "+roomColumns+" FROM study_rooms WHERE status=? ORDER BY created_at, id", string(status))
}

// Update writes the editable attributes of room.
func (r *StudyRoomRepo) Update(ctx context.Context, room *model.StudyRoom) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE study_rooms
   SET name=?, location=?, capacity=?, description=?, open_time=?, close_time=?, max_advance_days=?, status=?, image_url=?
 WHERE id=?`,
		room.Name, room.Location, room.Capacity, room.Description, room.OpenTime, room.CloseTime,
		room.MaxAdvanceDays, string(room.Status), room.ImageURL, room.ID)
	if err != nil {
		return mapErr(err)
	}
	// MySQL reports 0 affected rows when nothing changed, so fall back to
	// an existence check before claiming not found.
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, room.ID)
		return err
	}
	return nil
}

func (r *StudyRoomRepo) UpdateStatus(ctx context.Context, id string, status model.RoomStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE study_rooms SET status=? WHERE id=? AND status<>?", string(status), id, string(status))
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

func (r *StudyRoomRepo) UpdateImage(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE study_rooms SET image_url=? WHERE id=?", url, id)
	return affectedOne(res, err)
}

// Delete removes the room.  Seats go with it through ON DELETE CASCADE;
// rooms whose seats carry reservations fail with ErrConflict.
func (r *StudyRoomRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM study_rooms WHERE id=?", id)
	return affectedOne(res, err)
}

func (r *StudyRoomRepo) query(ctx context.Context, q string, args ...any) ([]model.StudyRoom, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query study rooms: %w", err)
	}
	defer rows.Close()

	out := []model.StudyRoom{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}
