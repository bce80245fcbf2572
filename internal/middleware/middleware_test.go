package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seat-reservation/internal/config"
	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/utils"
)

const secret = "mw-secret"

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, "name-"+userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	whoami := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": UserID(c), "username": Username(c), "role": Role(c)})
	}
	e.GET("/me", whoami, JWTAuth(secret))
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole("ADMIN"))

	rec := do(e, http.MethodGet, "/me", bearer(t, "u1", "USER"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","username":"name-u1","role":"USER"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "Basic abc").Code)

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", bearer(t, "u1", "USER")).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/admin", bearer(t, "a1", "ADMIN")).Code)
}

func TestTokenBucket(t *testing.T) {
	rdb, _ := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, logger.Nop()))

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/login", "").Code)
	rec := do(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retry)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil, nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/x", "").Code)
	}

	var buf bytes.Buffer
	rdb, mr := newRedis(t)
	mr.Close()
	e = echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, logger.NewWithWriters(nil, &buf)))
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/x", "").Code)
	assert.Contains(t, buf.String(), "RATELIMIT")
}

func TestResponseCache(t *testing.T) {
	rdb, mr := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{
		Enabled: true,
		Methods: map[string]bool{http.MethodGet: true},
		TTL:     time.Minute,
		Prefix:  "httpcache",
	}, rdb, logger.Nop())

	calls := 0
	e := echo.New()
	e.GET("/rooms/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "n": calls})
	}, rc.Middleware())
	e.GET("/missing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}, rc.Middleware())

	first := do(e, http.MethodGet, "/rooms/a", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/rooms/a", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	// a different path param is a different entry
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/rooms/b", "").Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	// errors are never stored
	do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/missing", "").Header().Get("X-Cache"))

	// reservation events leave the entries alone; room events purge them
	rc.Notify(context.Background(), queue.Event{Kind: queue.ReservationCreated})
	assert.Len(t, mr.Keys(), 2)
	rc.Notify(context.Background(), queue.Event{Kind: queue.RoomUpdated})
	assert.Empty(t, mr.Keys())
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/rooms/a", "").Header().Get("X-Cache"))
}

func TestResponseCacheDisabled(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil, nil)
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, rc.Middleware())
	rec := do(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, rc.Purge(context.Background()))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(logger.NewWithWriters(nil, &buf)))
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	rec := do(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Contains(t, buf.String(), "/boom")
	assert.Contains(t, buf.String(), "418")
}
