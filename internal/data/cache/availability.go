// Package cache holds the Redis-backed read caches. Only the per-showtime
// seat map lives here; all booking and lock state stays in Postgres.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinema-reservation/internal/dto/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const seatMapKeyPrefix = "seats:"

// SeatAvailability is a cache-aside layer over the seat map read endpoint.
// A nil client disables it: Get always misses and writes are no-ops, so the
// service degrades to the store when Redis is not configured.
type SeatAvailability struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewSeatAvailability(client *redis.Client, ttl time.Duration, log *zap.Logger) *SeatAvailability {
	return &SeatAvailability{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("cache", "seat_availability")),
	}
}

func seatMapKey(showtimeID uuid.UUID) string {
	return seatMapKeyPrefix + showtimeID.String()
}

// Get returns the cached seat map, or (nil, nil) on a miss. Redis errors are
// logged and reported as a miss so the caller falls through to the store.
func (c *SeatAvailability) Get(ctx context.Context, showtimeID uuid.UUID) (*response.SeatMapResponse, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, seatMapKey(showtimeID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.log.Warn("Seat map cache read failed",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return nil, nil
	}

	var seatMap response.SeatMapResponse
	if err := json.Unmarshal(raw, &seatMap); err != nil {
		return nil, fmt.Errorf("decode cached seat map for showtime %s: %w", showtimeID.String(), err)
	}

	return &seatMap, nil
}

func (c *SeatAvailability) Set(ctx context.Context, showtimeID uuid.UUID, seatMap *response.SeatMapResponse) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(seatMap)
	if err != nil {
		return fmt.Errorf("encode seat map for showtime %s: %w", showtimeID.String(), err)
	}

	if err := c.client.Set(ctx, seatMapKey(showtimeID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Seat map cache write failed",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
	}

	return nil
}

// Invalidate drops the showtime's cached seat map. Called after every
// mutation that changes seat state; failures only shorten cache freshness
// to the TTL, so they are logged and swallowed.
func (c *SeatAvailability) Invalidate(ctx context.Context, showtimeID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, seatMapKey(showtimeID)).Err(); err != nil {
		c.log.Warn("Seat map cache invalidation failed",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
	}
}
