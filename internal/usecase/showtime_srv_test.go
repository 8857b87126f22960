package usecase_test

import (
	"context"
	"testing"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShowtimeDerivesEndTime(t *testing.T) {
	f := newFixture(t)

	showtime := f.createShowtime(t, 2*time.Hour, 50)

	assert.Equal(t, entity.ShowtimeStatusScheduled, showtime.Status)
	assert.Equal(t, showtime.StartsAt.Add(120*time.Minute), showtime.EndsAt)
	assert.Equal(t, "Arrival", showtime.MovieTitle)
	assert.Equal(t, "Hall 1", showtime.HallName)
}

func TestCreateShowtimeRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createShowtime(t, 2*time.Hour, 50)

	// Starts an hour into the existing 2h slot.
	_, err := f.service.Showtime.CreateShowtime(ctx, &request.CreateShowtimeRequest{
		MovieID:  f.movieID.String(),
		HallID:   f.hallID.String(),
		StartsAt: f.clock.Now().Add(3 * time.Hour).Format(time.RFC3339),
		Price:    50,
	})
	assert.ErrorIs(t, err, usecase.ErrOverlap)

	// Back-to-back is fine: the interval is half-open.
	_, err = f.service.Showtime.CreateShowtime(ctx, &request.CreateShowtimeRequest{
		MovieID:  f.movieID.String(),
		HallID:   f.hallID.String(),
		StartsAt: f.clock.Now().Add(4 * time.Hour).Format(time.RFC3339),
		Price:    50,
	})
	assert.NoError(t, err)
}

func TestCreateShowtimeRejectsPastEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Showtime.CreateShowtime(ctx, &request.CreateShowtimeRequest{
		MovieID:  f.movieID.String(),
		HallID:   f.hallID.String(),
		StartsAt: f.clock.Now().Add(-3 * time.Hour).Format(time.RFC3339),
		Price:    50,
	})
	assert.ErrorIs(t, err, usecase.ErrInThePast)
}

func TestCreateShowtimeUnknownMovie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Showtime.CreateShowtime(ctx, &request.CreateShowtimeRequest{
		MovieID:  uuid.NewString(),
		HallID:   f.hallID.String(),
		StartsAt: f.clock.Now().Add(time.Hour).Format(time.RFC3339),
		Price:    50,
	})
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestUpdateShowtimeRevalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createShowtime(t, 2*time.Hour, 50)
	second := f.createShowtime(t, 6*time.Hour, 50)

	// Moving the second onto the first is an overlap.
	_, err := f.service.Showtime.UpdateShowtime(ctx, second.ID, &request.UpdateShowtimeRequest{
		StartsAt: first.StartsAt.Add(30 * time.Minute).Format(time.RFC3339),
		Price:    60,
	})
	assert.ErrorIs(t, err, usecase.ErrOverlap)

	// Keeping its own slot while repricing is not.
	updated, err := f.service.Showtime.UpdateShowtime(ctx, second.ID, &request.UpdateShowtimeRequest{
		StartsAt: second.StartsAt.Format(time.RFC3339),
		Price:    60,
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, updated.Price)

	// Terminal showtimes are not editable.
	require.NoError(t, f.service.Showtime.CancelShowtime(ctx, second.ID))
	_, err = f.service.Showtime.UpdateShowtime(ctx, second.ID, &request.UpdateShowtimeRequest{
		StartsAt: second.StartsAt.Format(time.RFC3339),
		Price:    70,
	})
	assert.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestCancelShowtimeCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	showtimeID := uuid.MustParse(showtime.ID)

	bookingA := f.createBooking(t, uuid.NewString(), showtime.ID, 2)
	bookingB := f.createBooking(t, uuid.NewString(), showtime.ID, 1)

	require.NoError(t, f.service.Showtime.CancelShowtime(ctx, showtime.ID))

	st, err := f.repos.Showtime.FindByID(ctx, showtimeID)
	require.NoError(t, err)
	assert.Equal(t, entity.ShowtimeStatusCancelled, st.Status)

	for _, id := range []string{bookingA.ID, bookingB.ID} {
		b, err := f.repos.Booking.FindByID(ctx, uuid.MustParse(id))
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCancelled, b.Status)
	}
	assert.Equal(t, 0, f.store.HoldCountByShowtime(showtimeID))

	// Cancelling again is a no-op; completing a cancelled showtime is not.
	assert.NoError(t, f.service.Showtime.CancelShowtime(ctx, showtime.ID))

	// No new bookings on a cancelled showtime.
	_, err = f.service.Booking.CreateBooking(ctx, uuid.NewString(), &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    []string{uuid.NewString()},
	})
	assert.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestCompleteEnded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, time.Hour, 50)
	showtimeID := uuid.MustParse(showtime.ID)

	paid := f.createBooking(t, uuid.NewString(), showtime.ID, 1)
	_, err := f.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  paid.ID,
		PaymentRef: "PAY-OK",
	})
	require.NoError(t, err)

	unpaid := f.createBooking(t, uuid.NewString(), showtime.ID, 1)

	// Not ended yet: nothing happens.
	completed, err := f.service.Showtime.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.Zero(t, completed)

	f.clock.Advance(3*time.Hour + time.Minute)

	completed, err = f.service.Showtime.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	st, err := f.repos.Showtime.FindByID(ctx, showtimeID)
	require.NoError(t, err)
	assert.Equal(t, entity.ShowtimeStatusCompleted, st.Status)

	p, err := f.repos.Booking.FindByID(ctx, uuid.MustParse(paid.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, p.Status)

	// Unpaid booking is left to the expiry sweep, not force-completed.
	u, err := f.repos.Booking.FindByID(ctx, uuid.MustParse(unpaid.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, u.Status)
	assert.Equal(t, entity.PaymentStatusPending, u.PaymentStatus)

	// All holds are purged, and the sweep is idempotent.
	assert.Equal(t, 0, f.store.HoldCountByShowtime(showtimeID))
	completed, err = f.service.Showtime.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.Zero(t, completed)
}

func TestGetSeatMapStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	showtimeID := uuid.MustParse(showtime.ID)

	booked := f.createBooking(t, uuid.NewString(), showtime.ID, 1)

	// A raw lock, as held by a checkout in progress.
	now := f.clock.Now()
	lockedSeat := uuid.New()
	_, err := f.repos.SeatHold.Acquire(ctx, showtimeID, []uuid.UUID{lockedSeat}, now, now.Add(15*time.Minute))
	require.NoError(t, err)

	seatMap, err := f.service.Showtime.GetSeatMap(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, seatMap.TotalSeats)
	require.Len(t, seatMap.Unavailable, 2)

	states := make(map[string]string, 2)
	for _, seat := range seatMap.Unavailable {
		states[seat.SeatID] = seat.State
	}
	assert.Equal(t, "booked", states[booked.SeatIDs[0]])
	assert.Equal(t, "locked", states[lockedSeat.String()])

	// An expired lock no longer shows up.
	f.clock.Advance(16 * time.Minute)
	seatMap, err = f.service.Showtime.GetSeatMap(ctx, showtime.ID)
	require.NoError(t, err)
	require.Len(t, seatMap.Unavailable, 1)
	assert.Equal(t, booked.SeatIDs[0], seatMap.Unavailable[0].SeatID)
}

func TestGetShowtimesByMovieSkipsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kept := f.createShowtime(t, 2*time.Hour, 50)
	dropped := f.createShowtime(t, 6*time.Hour, 50)
	require.NoError(t, f.service.Showtime.CancelShowtime(ctx, dropped.ID))

	showtimes, err := f.service.Showtime.GetShowtimesByMovie(ctx, f.movieID.String())
	require.NoError(t, err)
	require.Len(t, showtimes, 1)
	assert.Equal(t, kept.ID, showtimes[0].ID)
}
