package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, password_hash, no_show_count, is_blacklisted, blacklist_start_time, created_at`

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u     model.User
		start sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.NoShowCount, &u.IsBlacklisted, &start, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	u.BlacklistStartTime = timePtr(start)
	return &u, nil
}

// Create inserts u.  ID and CreatedAt are filled in when empty.  A taken
// username yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Username = strings.TrimSpace(u.Username)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, no_show_count, is_blacklisted, blacklist_start_time, created_at) VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Username, u.PasswordHash, u.NoShowCount, u.IsBlacklisted, nullTime(u.BlacklistStartTime), u.CreatedAt)
	return mapErr(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByIDForUpdate locks the user row until the surrounding transaction
// ends.  Booking and no-show bookkeeping for one user serialize on it.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// GetByUsername fetches a user by login name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
}

// UpdateBlacklist persists the no-show counter and blacklist fields.
func (r *UserRepo) UpdateBlacklist(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET no_show_count=?, is_blacklisted=?, blacklist_start_time=? WHERE id=?",
		u.NoShowCount, u.IsBlacklisted, nullTime(u.BlacklistStartTime), u.ID)
	return affectedOne(res, err)
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return affectedOne(res, err)
}

// List returns all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, id")
}

// ListBlacklisted returns users whose blacklist flag is set.
func (r *UserRepo) ListBlacklisted(ctx context.Context) ([]model.User, error) {
	return r.query(ctx, "SELECT "+userColumns+" FROM users WHERE is_blacklisted=1 ORDER BY blacklist_start_time, id")
}

func (r *UserRepo) query(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
