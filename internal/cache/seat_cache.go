// Package cache is the Redis read cache for seat status lookups and room
// seat lists.  A Cache built over a nil client is valid and behaves as a
// permanent miss, so callers never branch on whether Redis is up.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
)

// DefaultTTL applies when New is given a non-positive ttl.
const DefaultTTL = 24 * time.Hour

const (
	seatStatusPrefix = "seat:status:"
	roomSeatsPrefix  = "study_room:seats:"
)

// SeatStatusKey is the key of a cached seat status for one time slot.
func SeatStatusKey(seatID string, date model.Date, start, end model.Clock) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", seatStatusPrefix, seatID, date, start, end)
}

// RoomSeatsKey is the key of a cached room seat list.
func RoomSeatsKey(roomID string) string {
	return roomSeatsPrefix + roomID
}

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil }

// Get decodes the JSON value under key into dst and reports a hit.  Redis
// errors count as a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("CACHE", fmt.Sprintf("get %s: %v", key, err))
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warn("CACHE", fmt.Sprintf("decode %s: %v", key, err))
		return false
	}
	return true
}

// Set stores v as JSON under key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	if !c.enabled() {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("CACHE", fmt.Sprintf("encode %s: %v", key, err))
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("CACHE", fmt.Sprintf("set %s: %v", key, err))
	}
}

// Load is a read-through helper: it returns the cached value under key or
// calls load and caches its result.  Errors from load are not cached.
func Load[T any](ctx context.Context, c *Cache, key string, load func() (T, error)) (T, error) {
	var v T
	if c.Get(ctx, key, &v) {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(ctx, key, v)
	return v, nil
}

// InvalidateSeat drops every cached time slot of seatID.
func (c *Cache) InvalidateSeat(ctx context.Context, seatID string) error {
	if !c.enabled() || seatID == "" {
		return nil
	}
	return c.deletePattern(ctx, seatStatusPrefix+seatID+":*")
}

// InvalidateRoom drops the cached seat list of roomID.
func (c *Cache) InvalidateRoom(ctx context.Context, roomID string) error {
	if !c.enabled() || roomID == "" {
		return nil
	}
	return c.rdb.Del(ctx, RoomSeatsKey(roomID)).Err()
}

func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Notify maps a change event to the keys it makes stale and drops them.
func (c *Cache) Notify(ctx context.Context, ev queue.Event) {
	if !c.enabled() {
		return
	}
	var errs []error
	switch ev.Kind {
	case queue.ReservationCreated, queue.ReservationCancelled,
		queue.ReservationStatusChanged, queue.ReservationDeleted:
		errs = append(errs, c.InvalidateSeat(ctx, ev.SeatID))
	case queue.SeatCreated, queue.SeatDeleted, queue.SeatStatusChanged:
		errs = append(errs, c.InvalidateSeat(ctx, ev.SeatID), c.InvalidateRoom(ctx, ev.StudyRoomID))
	case queue.RoomCreated, queue.RoomUpdated, queue.RoomCapacityChanged, queue.RoomDeleted:
		errs = append(errs, c.InvalidateRoom(ctx, ev.StudyRoomID))
		for _, id := range ev.SeatIDs {
			errs = append(errs, c.InvalidateSeat(ctx, id))
		}
	}
	if err := errors.Join(errs...); err != nil {
		c.log.Warn("CACHE", fmt.Sprintf("invalidate after %s: %v", ev.Kind, err))
	}
}
