package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cinema-reservation/internal/data/cache"
	"cinema-reservation/internal/dto/response"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleSeatMap(showtimeID uuid.UUID) *response.SeatMapResponse {
	return &response.SeatMapResponse{
		ShowtimeID: showtimeID.String(),
		TotalSeats: 50,
		Unavailable: []response.SeatState{
			{SeatID: uuid.NewString(), State: "booked"},
			{SeatID: uuid.NewString(), State: "locked"},
		},
	}
}

func TestSeatAvailabilityRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewSeatAvailability(client, 30*time.Second, zap.NewNop())
	ctx := context.Background()

	showtimeID := uuid.New()
	key := "seats:" + showtimeID.String()
	seatMap := sampleSeatMap(showtimeID)
	raw, err := json.Marshal(seatMap)
	require.NoError(t, err)

	// Cold read misses.
	mock.ExpectGet(key).RedisNil()
	got, err := c.Get(ctx, showtimeID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Write, then a warm read returns the stored map.
	mock.ExpectSet(key, raw, 30*time.Second).SetVal("OK")
	require.NoError(t, c.Set(ctx, showtimeID, seatMap))

	mock.ExpectGet(key).SetVal(string(raw))
	got, err = c.Get(ctx, showtimeID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, seatMap.ShowtimeID, got.ShowtimeID)
	assert.Equal(t, seatMap.Unavailable, got.Unavailable)

	// Invalidation drops the key.
	mock.ExpectDel(key).SetVal(1)
	c.Invalidate(ctx, showtimeID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatAvailabilityReadErrorDegradesToMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewSeatAvailability(client, 30*time.Second, zap.NewNop())

	showtimeID := uuid.New()
	mock.ExpectGet("seats:" + showtimeID.String()).SetErr(assert.AnError)

	got, err := c.Get(context.Background(), showtimeID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSeatAvailabilityDisabledWithoutClient(t *testing.T) {
	c := cache.NewSeatAvailability(nil, 30*time.Second, zap.NewNop())
	ctx := context.Background()
	showtimeID := uuid.New()

	got, err := c.Get(ctx, showtimeID)
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, c.Set(ctx, showtimeID, sampleSeatMap(showtimeID)))
	c.Invalidate(ctx, showtimeID)

	var disabled *cache.SeatAvailability
	got, err = disabled.Get(ctx, showtimeID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
