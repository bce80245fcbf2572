package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	errorLog
	Users  *service.UserService
	Admins *service.AdminService
}

func NewAuthHandler(u *service.UserService, a *service.AdminService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{errorLog: errorLog{Log: log}, Users: u, Admins: a}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6,max=64"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=20"`
}

// RegisterUser: POST /api/users/register.
func (h *AuthHandler) RegisterUser(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Register(ctx, req.Username, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// LoginUser: POST /api/users/login.
func (h *AuthHandler) LoginUser(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		// Do not leak the password rules on login.
		return h.fail(c, service.ErrInvalidCredentials)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// LoginAdmin: POST /api/admins/login.
func (h *AuthHandler) LoginAdmin(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, service.ErrInvalidCredentials)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Admins.Login(ctx, req.Username, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RegisterAdmin: POST /api/admins/register (ADMIN).
func (h *AuthHandler) RegisterAdmin(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Admins.Register(ctx, req.Username, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// ChangeAdminPassword: PUT /api/admins/change-password.
func (h *AuthHandler) ChangeAdminPassword(c echo.Context) error {
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Admins.ChangePassword(ctx, middleware.UserID(c), req.OldPassword, req.NewPassword); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}
