package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

type FeedbackRepo struct{ db DBTX }

func NewFeedbackRepo(db DBTX) *FeedbackRepo { return &FeedbackRepo{db: db} }

const feedbackColumns = `id, user_id, content, type, status, response, processor_id, processed_at, created_at, updated_at`

func scanFeedback(row rowScanner) (*model.Feedback, error) {
	var (
		f           model.Feedback
		response    sql.NullString
		processor   sql.NullString
		processedAt sql.NullTime
		updatedAt   sql.NullTime
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.Content, &f.Type, &f.Status,
		&response, &processor, &processedAt, &f.CreatedAt, &updatedAt); err != nil {
		return nil, mapErr(err)
	}
	f.Response = stringPtr(response)
	f.ProcessorID = stringPtr(processor)
	f.ProcessedAt = timePtr(processedAt)
	f.UpdatedAt = timePtr(updatedAt)
	return &f, nil
}

// Create inserts f and populates its auto-increment id.
func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.Status == "" {
		f.Status = model.FeedbackPending
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO feedback (user_id, content, type, status, created_at) VALUES (?,?,?,?,?)",
		f.UserID, f.Content, f.Type, string(f.Status), f.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

func (r *FeedbackRepo) GetByID(ctx context.Context, id uint64) (*model.Feedback, error) {
	return scanFeedback(r.db.QueryRowContext(ctx,
		"SELECT "+feedbackColumns+" FROM feedback WHERE id=? LIMIT 1", id))
}

func (r *FeedbackRepo) ListByUser(ctx context.Context, userID string) ([]model.Feedback, error) {
	return r.query(ctx, "SELECT "+feedbackColumns+" FROM feedback WHERE user_id=? ORDER BY created_at DESC, id DESC", userID)
}

// List returns all feedback, optionally restricted to one status.
func (r *FeedbackRepo) List(ctx context.Context, status model.FeedbackStatus) ([]model.Feedback, error) {
	if status == "" {
		return r.query(ctx, "SELECT "+feedbackColumns+" FROM feedback ORDER BY created_at DESC, id DESC")
	}
	return r.query(ctx, "SELECT "+feedbackColumns+" FROM feedback WHERE status=? ORDER BY created_at DESC, id DESC", string(status))
}

// Process records an admin response and marks the feedback PROCESSED.
func (r *FeedbackRepo) Process(ctx context.Context, id uint64, response, processorID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE feedback SET status=?, response=?, processor_id=?, processed_at=?, updated_at=? WHERE id=?",
		string(model.FeedbackProcessed), response, processorID, at.UTC(), at.UTC(), id)
	return affectedOne(res, err)
}

func (r *FeedbackRepo) query(ctx context.Context, q string, args ...any) ([]model.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := []model.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}
