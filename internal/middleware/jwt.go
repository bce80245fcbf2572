package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's userId, subject and role claims into the request
// context.  The provided secret must match the one used when issuing tokens.
// Handlers read the principal back with UserID, Username and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header is "Bearer <jwt>"; anything else is 401.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			// ParseToken pins HS256 and requires exp, userId and role.
			claims, err := utils.ParseToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxUsername, claims.Subject)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// UserID returns the authenticated principal id or "".
func UserID(c echo.Context) string { return ctxString(c, CtxUserID) }

// Username returns the token subject or "".
func Username(c echo.Context) string { return ctxString(c, CtxUsername) }

// Role returns the authenticated role or "".
func Role(c echo.Context) string { return ctxString(c, CtxRole) }

func ctxString(c echo.Context, key string) string {
	if s, ok := c.Get(key).(string); ok {
		return s
	}
	return ""
}
