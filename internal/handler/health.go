package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health is the check used by load balancers and monitoring.  The database
// must answer; Redis is reported but optional because every Redis consumer
// degrades without it.
func Health(db Pinger, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		body := echo.Map{"status": "ok", "database": "up", "redis": "disabled"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				body["status"], body["database"] = "degraded", "down"
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			body["redis"] = "up"
			if err := rdb.Ping(ctx).Err(); err != nil {
				body["redis"] = "down"
			}
		}
		return c.JSON(code, body)
	}
}
