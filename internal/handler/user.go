package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// UserHandler serves profile, password and blacklist endpoints.
type UserHandler struct {
	errorLog
	Users *service.UserService
}

func NewUserHandler(u *service.UserService, log *logger.Logger) *UserHandler { return &UserHandler{errorLog: errorLog{Log: log}, Users: u} }

type resetPasswordReq struct {
	UserID      string `json:"userId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=20"`
}

// Get: GET /api/users/:id (self or admin).
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Get(ctx, c.Param("id"), caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// List: GET /api/admins/users.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// ChangePassword: PUT /api/users/change-password.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.ChangePassword(ctx, middleware.UserID(c), req.OldPassword, req.NewPassword); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// ResetPassword: PUT /api/admins/users/change-password.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.ResetPassword(ctx, req.UserID, req.NewPassword); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}

// BlacklistStatus: GET /api/users/:id/blacklist-status.
func (h *UserHandler) BlacklistStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Users.BlacklistStatus(ctx, c.Param("id"), caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ListBlacklisted: GET /api/users/blacklist.
func (h *UserHandler) ListBlacklisted(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.ListBlacklisted(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// AddToBlacklist: POST /api/users/blacklist/:userId.
func (h *UserHandler) AddToBlacklist(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.AddToBlacklist(ctx, c.Param("userId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// RemoveFromBlacklist: DELETE /api/users/blacklist/:userId.
func (h *UserHandler) RemoveFromBlacklist(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.RemoveFromBlacklist(ctx, c.Param("userId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
