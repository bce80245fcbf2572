package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
	"github.com/iliyamo/studyroom-seat-reservation/internal/utils"
)

type AdminService struct {
	Deps
	Auth AuthConfig
}

func NewAdminService(d Deps, auth AuthConfig) *AdminService {
	return &AdminService{Deps: d, Auth: auth}
}

// EnsureBootstrapAdmin creates the configured admin when it does not exist
// yet.  Empty credentials disable bootstrapping.
func (s *AdminService) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	_, err := s.Stores.Admins.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	if _, err := s.create(ctx, username, password); err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) && ce.Code == CodeDuplicate {
			return false, nil
		}
		return false, err
	}
	s.Log.Info("BOOTSTRAP", "created admin "+username)
	return true, nil
}

// Register creates another admin account.
func (s *AdminService) Register(ctx context.Context, username, password string) (*model.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid(CodeInvalidRequest, "username is required")
	}
	if err := checkPassword(password, MinRegisterPassword, MaxRegisterPassword); err != nil {
		return nil, err
	}
	return s.create(ctx, username, password)
}

func (s *AdminService) create(ctx context.Context, username, password string) (*model.Admin, error) {
	hash, err := utils.HashPassword(password, s.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &model.Admin{Username: username, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.Stores.Admins.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(CodeDuplicate, "admin %q already exists", username)
		}
		return nil, err
	}
	return a, nil
}

// Login checks admin credentials and issues an ADMIN token.
func (s *AdminService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	a, err := s.Stores.Admins.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		s.Log.LogSecurity("login_failed", "admin "+a.Username)
		return nil, ErrInvalidCredentials
	}
	s.Auth.rehash(ctx, s.Log, s.Stores.Admins, a.ID, password, a.PasswordHash)
	tok, err := s.Auth.issue(a.ID, a.Username, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok.Token, ExpiresAt: tok.Exp, Admin: a}, nil
}

// ChangePassword replaces an admin's own password.
func (s *AdminService) ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	if err := checkPassword(newPassword, MinChangedPassword, MaxChangedPassword); err != nil {
		return err
	}
	a, err := s.Stores.Admins.GetByID(ctx, adminID)
	if err != nil {
		return notFound("admin", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, oldPassword) {
		return invalid(CodeWrongPassword, "old password does not match")
	}
	hash, err := utils.HashPassword(newPassword, s.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Stores.Admins.UpdatePassword(ctx, a.ID, hash); err != nil {
		return notFound("admin", err)
	}
	return nil
}
