package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/data/repository/memory"
	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/dto/response"
	"cinema-reservation/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store   *memory.Store
	repos   *repository.Repository
	service *usecase.Service
	clock   *fakeClock
	movieID uuid.UUID
	hallID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	repos := store.Repositories()

	service := usecase.NewService(repos, nil, nil, nil, zap.NewNop(),
		usecase.WithClock(clock.Now),
		usecase.WithHoldLease(15*time.Minute),
	)

	f := &fixture{
		store:   store,
		repos:   repos,
		service: service,
		clock:   clock,
		movieID: uuid.New(),
		hallID:  uuid.New(),
	}

	now := clock.Now()
	store.AddMovie(entity.Movie{
		BaseNoDelete:      entity.BaseNoDelete{ID: f.movieID, CreatedAt: now, UpdatedAt: now},
		Title:             "Arrival",
		DurationInMinutes: 120,
	})
	store.AddHall(entity.Hall{
		BaseNoDelete: entity.BaseNoDelete{ID: f.hallID, CreatedAt: now, UpdatedAt: now},
		Name:         "Hall 1",
		TotalSeats:   100,
	})

	return f
}

// createShowtime schedules a showtime starting the given duration from the
// fixture clock's current time.
func (f *fixture) createShowtime(t *testing.T, startsIn time.Duration, price float64) *response.ShowtimeResponse {
	t.Helper()

	resp, err := f.service.Showtime.CreateShowtime(context.Background(), &request.CreateShowtimeRequest{
		MovieID:  f.movieID.String(),
		HallID:   f.hallID.String(),
		StartsAt: f.clock.Now().Add(startsIn).Format(time.RFC3339),
		Price:    price,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) createBooking(t *testing.T, customerID, showtimeID string, seats int) *response.BookingResponse {
	t.Helper()

	seatIDs := make([]string, seats)
	for i := range seatIDs {
		seatIDs[i] = uuid.NewString()
	}

	resp, err := f.service.Booking.CreateBooking(context.Background(), customerID, &request.CreateBookingRequest{
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
	})
	require.NoError(t, err)
	return resp
}
