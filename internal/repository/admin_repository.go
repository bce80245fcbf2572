package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// AdminRepo stores operator accounts.
type AdminRepo struct{ db DBTX }

func NewAdminRepo(db DBTX) *AdminRepo { return &AdminRepo{db: db} }

func scanAdmin(row rowScanner) (*model.Admin, error) {
	var a model.Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Username = strings.TrimSpace(a.Username)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO admins (id, username, password_hash, created_at) VALUES (?,?,?,?)",
		a.ID, a.Username, a.PasswordHash, a.CreatedAt)
	return mapErr(err)
}

func (r *AdminRepo) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM admins WHERE id=? LIMIT 1", id))
}

func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM admins WHERE username=? LIMIT 1", strings.TrimSpace(username)))
}

func (r *AdminRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE admins SET password_hash=? WHERE id=?", hash, id)
	return affectedOne(res, err)
}
