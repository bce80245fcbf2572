package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
)

// HeaderRequestID carries the request id back to the client.
const HeaderRequestID = "X-Request-ID"

// RequestLogger tags each request with an id and logs method, path, status
// and duration once the handler has returned.  Handler errors are passed to
// echo's error handler first so the logged status is the one the client
// sees.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			id := req.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, id)

			if err := next(c); err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = req.URL.Path
			}
			log.LogAPI(req.Method, path, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
