package sweeper_test

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
	"cinema-reservation/internal/sweeper"
	"cinema-reservation/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
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

type world struct {
	store   *memory.Store
	repos   *repository.Repository
	service *usecase.Service
	sweeper *sweeper.Sweeper
	clock   *fakeClock
	movieID uuid.UUID
	hallID  uuid.UUID
}

func newWorld(t *testing.T) *world {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	repos := store.Repositories()
	service := usecase.NewService(repos, nil, nil, nil, zap.NewNop(),
		usecase.WithClock(clock.Now),
		usecase.WithHoldLease(15*time.Minute),
	)
	sw := sweeper.New(service, repos, sweeper.DefaultIntervals(), zap.NewNop()).WithClock(clock.Now)

	w := &world{
		store:   store,
		repos:   repos,
		service: service,
		sweeper: sw,
		clock:   clock,
		movieID: uuid.New(),
		hallID:  uuid.New(),
	}

	now := clock.Now()
	store.AddMovie(entity.Movie{
		BaseNoDelete:      entity.BaseNoDelete{ID: w.movieID, CreatedAt: now, UpdatedAt: now},
		Title:             "Heat",
		DurationInMinutes: 170,
	})
	store.AddHall(entity.Hall{
		BaseNoDelete: entity.BaseNoDelete{ID: w.hallID, CreatedAt: now, UpdatedAt: now},
		Name:         "Hall 2",
		TotalSeats:   80,
	})

	return w
}

func (w *world) createShowtime(t *testing.T, startsIn time.Duration) *response.ShowtimeResponse {
	t.Helper()
	resp, err := w.service.Showtime.CreateShowtime(context.Background(), &request.CreateShowtimeRequest{
		MovieID:  w.movieID.String(),
		HallID:   w.hallID.String(),
		StartsAt: w.clock.Now().Add(startsIn).Format(time.RFC3339),
		Price:    45,
	})
	require.NoError(t, err)
	return resp
}

func TestSweepLocksPurgesOnlyLapsed(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	showtime := w.createShowtime(t, 2*time.Hour)
	showtimeID := uuid.MustParse(showtime.ID)
	now := w.clock.Now()

	_, err := w.repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, now, now.Add(time.Minute))
	require.NoError(t, err)
	_, err = w.repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{uuid.New()}, now, now.Add(time.Hour))
	require.NoError(t, err)

	w.clock.Advance(5 * time.Minute)
	w.sweeper.SweepLocks(ctx)

	assert.Equal(t, 1, w.store.HoldCountByShowtime(showtimeID))
}

func TestSweepConsistencyRepairsDrift(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	showtime := w.createShowtime(t, 2*time.Hour)
	showtimeID := uuid.MustParse(showtime.ID)
	now := w.clock.Now()

	// Drift case 1: a Booked hold whose booking does not exist.
	ghostBooking := uuid.New()
	orphan := entity.SeatHold{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ShowtimeID:   showtimeID,
		SeatID:       uuid.New(),
		BookingID:    &ghostBooking,
		Status:       entity.HoldStatusBooked,
	}
	w.store.AddHold(orphan)

	// Drift case 2: a completed booking whose hold never left Locked.
	paid, err := w.service.Booking.CreateBooking(ctx, uuid.NewString(), &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    []string{uuid.NewString()},
	})
	require.NoError(t, err)
	_, err = w.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  paid.ID,
		PaymentRef: "PAY-OK",
	})
	require.NoError(t, err)

	paidID := uuid.MustParse(paid.ID)
	exp := now.Add(15 * time.Minute)
	straggler := entity.SeatHold{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ShowtimeID:   showtimeID,
		SeatID:       uuid.New(),
		BookingID:    &paidID,
		Status:       entity.HoldStatusLocked,
		ExpiresAt:    &exp,
	}
	w.store.AddHold(straggler)

	w.sweeper.SweepConsistency(ctx)

	holds, err := w.repos.SeatHold.FindByBookingID(ctx, paidID)
	require.NoError(t, err)
	require.Len(t, holds, 2, "the paid booking keeps its committed seat and the repaired one")
	for _, hold := range holds {
		assert.Equal(t, entity.HoldStatusBooked, hold.Status)
	}

	// The orphan is gone: its seat can be acquired again.
	_, err = w.repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{orphan.SeatID}, w.clock.Now(), w.clock.Now().Add(time.Minute))
	assert.NoError(t, err)
}

// End-to-end: a showtime ends with one paid and one abandoned booking. The
// showtime sweep completes the showtime and the paid booking; the booking
// sweep cancels the abandoned one.
func TestSweepsSettleEndedShowtime(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	showtime := w.createShowtime(t, time.Hour)
	showtimeID := uuid.MustParse(showtime.ID)

	paid, err := w.service.Booking.CreateBooking(ctx, uuid.NewString(), &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    []string{uuid.NewString(), uuid.NewString()},
	})
	require.NoError(t, err)
	_, err = w.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  paid.ID,
		PaymentRef: "PAY-OK",
	})
	require.NoError(t, err)

	abandoned, err := w.service.Booking.CreateBooking(ctx, uuid.NewString(), &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    []string{uuid.NewString()},
	})
	require.NoError(t, err)

	w.clock.Advance(4 * time.Hour)

	w.sweeper.SweepBookings(ctx)
	w.sweeper.SweepShowtimes(ctx)
	w.sweeper.SweepLocks(ctx)
	w.sweeper.SweepConsistency(ctx)

	st, err := w.repos.Showtime.FindByID(ctx, showtimeID)
	require.NoError(t, err)
	assert.Equal(t, entity.ShowtimeStatusCompleted, st.Status)

	p, err := w.repos.Booking.FindByID(ctx, uuid.MustParse(paid.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, p.Status)
	assert.Equal(t, entity.PaymentStatusCompleted, p.PaymentStatus)

	a, err := w.repos.Booking.FindByID(ctx, uuid.MustParse(abandoned.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, a.Status)
	assert.Equal(t, entity.PaymentStatusFailed, a.PaymentStatus)

	assert.Equal(t, 0, w.store.HoldCountByShowtime(showtimeID))

	// Re-running every sweep changes nothing.
	w.sweeper.SweepBookings(ctx)
	w.sweeper.SweepShowtimes(ctx)
	st, err = w.repos.Showtime.FindByID(ctx, showtimeID)
	require.NoError(t, err)
	assert.Equal(t, entity.ShowtimeStatusCompleted, st.Status)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w := newWorld(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.sweeper.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
