package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
	"github.com/iliyamo/studyroom-seat-reservation/internal/utils"
)

// AuthConfig holds what token issue and password hashing need.
type AuthConfig struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

func (a AuthConfig) issue(id, username, role string) (utils.AccessToken, error) {
	ttl := a.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return utils.NewAccessToken(a.Secret, id, username, role, ttl)
}

// Password length rules.
const (
	MinRegisterPassword = 6
	MaxRegisterPassword = 64
	MinChangedPassword  = 8
	MaxChangedPassword  = 20
)

func checkPassword(p string, min, max int) error {
	if n := len(p); n < min || n > max {
		return invalid(CodeInvalidRequest, "password must be %d-%d characters", min, max)
	}
	return nil
}

type UserService struct {
	Deps
	Auth AuthConfig
}

func NewUserService(d Deps, auth AuthConfig) *UserService {
	return &UserService{Deps: d, Auth: auth}
}

// Register creates a user with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid(CodeInvalidRequest, "username is required")
	}
	if err := checkPassword(password, MinRegisterPassword, MaxRegisterPassword); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password, s.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Username: username, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.Stores.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(CodeDuplicate, "username %q is taken", username)
		}
		return nil, err
	}
	return u, nil
}

// LoginResult is a freshly issued token with its principal.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *model.User  `json:"user,omitempty"`
	Admin     *model.Admin `json:"admin,omitempty"`
}

// Login checks the credentials and issues a USER token.  Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.Stores.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		s.Log.LogSecurity("login_failed", "user "+u.Username)
		return nil, ErrInvalidCredentials
	}
	s.Auth.rehash(ctx, s.Log, s.Stores.Users, u.ID, password, u.PasswordHash)
	tok, err := s.Auth.issue(u.ID, u.Username, model.RoleUser)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}

func (s *UserService) Get(ctx context.Context, id string, caller Caller) (*model.User, error) {
	if !caller.canAccess(id) {
		return nil, ErrForbidden
	}
	u, err := s.Stores.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("user", err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.Stores.Users.List(ctx)
}

// ChangePassword replaces the caller's password after verifying the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := checkPassword(newPassword, MinChangedPassword, MaxChangedPassword); err != nil {
		return err
	}
	u, err := s.Stores.Users.GetByID(ctx, userID)
	if err != nil {
		return notFound("user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, oldPassword) {
		return invalid(CodeWrongPassword, "old password does not match")
	}
	return s.setPassword(ctx, u.ID, newPassword)
}

// ResetPassword sets a user's password without the old one; admin only.
func (s *UserService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if err := checkPassword(newPassword, MinChangedPassword, MaxChangedPassword); err != nil {
		return err
	}
	if _, err := s.Stores.Users.GetByID(ctx, userID); err != nil {
		return notFound("user", err)
	}
	return s.setPassword(ctx, userID, newPassword)
}

// passwordWriter is the part of the user and admin stores that rehash needs.
type passwordWriter interface {
	UpdatePassword(ctx context.Context, id, hash string) error
}

// rehash upgrades a verified hash to the configured cost.  Failures only
// cost a log line; the login itself already succeeded.
func (a AuthConfig) rehash(ctx context.Context, log *logger.Logger, w passwordWriter, id, plain, hash string) {
	if !utils.NeedsRehash(hash, a.BcryptCost) {
		return
	}
	fresh, err := utils.HashPassword(plain, a.BcryptCost)
	if err == nil {
		err = w.UpdatePassword(ctx, id, fresh)
	}
	if err != nil {
		log.Warn("AUTH", "rehash "+id+": "+err.Error())
	}
}

func (s *UserService) setPassword(ctx context.Context, id, plain string) error {
	hash, err := utils.HashPassword(plain, s.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Stores.Users.UpdatePassword(ctx, id, hash); err != nil {
		return notFound("user", err)
	}
	return nil
}

// BlacklistStatus is what a user sees about their own suspension.
type BlacklistStatus struct {
	UserID             string     `json:"user_id"`
	IsBlacklisted      bool       `json:"is_blacklisted"`
	NoShowCount        int        `json:"no_show_count"`
	BlacklistStartTime *time.Time `json:"blacklist_start_time,omitempty"`
	RemainingTime      int64      `json:"remaining_time"`
}

func (s *UserService) BlacklistStatus(ctx context.Context, userID string, caller Caller) (*BlacklistStatus, error) {
	u, err := s.Get(ctx, userID, caller)
	if err != nil {
		return nil, err
	}
	return &BlacklistStatus{
		UserID:             u.ID,
		IsBlacklisted:      u.IsBlacklisted,
		NoShowCount:        u.NoShowCount,
		BlacklistStartTime: u.BlacklistStartTime,
		RemainingTime:      u.BlacklistRemaining(s.now()).Milliseconds(),
	}, nil
}

func (s *UserService) ListBlacklisted(ctx context.Context) ([]model.User, error) {
	return s.Stores.Users.ListBlacklisted(ctx)
}

// AddToBlacklist suspends a user now, whatever their no-show count.
func (s *UserService) AddToBlacklist(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		u, err := st.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return notFound("user", err)
		}
		if u.IsBlacklisted {
			return invalid(CodeAlreadyBlacklisted, "user is already blacklisted")
		}
		u.Blacklist(s.now())
		if err := st.Users.UpdateBlacklist(ctx, u); err != nil {
			return err
		}
		out = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.LogSecurity("blacklisted", "user "+out.ID+" blacklisted by admin")
	return &out, nil
}

// RemoveFromBlacklist lifts a suspension and resets the no-show count.
func (s *UserService) RemoveFromBlacklist(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	err := s.Tx.RunInTx(ctx, func(st Stores) error {
		u, err := st.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return notFound("user", err)
		}
		if !u.IsBlacklisted {
			return invalid(CodeNotBlacklisted, "user is not blacklisted")
		}
		u.ClearBlacklist()
		if err := st.Users.UpdateBlacklist(ctx, u); err != nil {
			return err
		}
		out = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.LogSecurity("unblacklisted", "user "+out.ID+" released by admin")
	return &out, nil
}

// ReleaseExpiredBlacklists clears every suspension older than
// model.BlacklistDuration and returns how many users were released.
func (s *UserService) ReleaseExpiredBlacklists(ctx context.Context) (int, error) {
	now := s.now()
	users, err := s.Stores.Users.ListBlacklisted(ctx)
	if err != nil {
		return 0, fmt.Errorf("list blacklisted users: %w", err)
	}
	released := 0
	var errs []error
	for _, candidate := range users {
		if !candidate.BlacklistExpired(now) {
			continue
		}
		var done bool
		err := s.Tx.RunInTx(ctx, func(st Stores) error {
			u, err := st.Users.GetByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !u.BlacklistExpired(now) {
				return nil
			}
			u.ClearBlacklist()
			done = true
			return st.Users.UpdateBlacklist(ctx, u)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", candidate.ID, err))
			continue
		}
		if done {
			released++
			s.Log.LogSecurity("unblacklisted", "user "+candidate.ID+" released after suspension")
		}
	}
	return released, errors.Join(errs...)
}
