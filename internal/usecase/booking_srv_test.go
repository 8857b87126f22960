package usecase_test

import (
	"context"
	"testing"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingLocksSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	booking := f.createBooking(t, uuid.NewString(), showtime.ID, 2)

	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, entity.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, 2, booking.TotalSeats)
	assert.Equal(t, 100.0, booking.TotalPrice)
	assert.Len(t, booking.SeatIDs, 2)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), booking.HoldExpiresAt)
	assert.NotEmpty(t, booking.ReferenceCode)
	assert.Equal(t, "Arrival", booking.MovieTitle)

	showtimeID := uuid.MustParse(showtime.ID)
	holds, err := f.repos.SeatHold.FindActiveByShowtime(ctx, showtimeID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, holds, 2)
	for _, hold := range holds {
		assert.Equal(t, entity.HoldStatusBooked, hold.Status)
		require.NotNil(t, hold.BookingID)
		assert.Equal(t, booking.ID, hold.BookingID.String())
	}
}

func TestCreateBookingSeatConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	first := f.createBooking(t, uuid.NewString(), showtime.ID, 2)

	loser := uuid.NewString()
	_, err := f.service.Booking.CreateBooking(ctx, loser, &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    []string{first.SeatIDs[0], uuid.NewString()},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)

	// No booking row and no leftover holds for the losing attempt.
	losses, err := f.repos.Booking.FindByCustomerID(ctx, uuid.MustParse(loser), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, losses)
	assert.Equal(t, 2, f.store.HoldCountByShowtime(uuid.MustParse(showtime.ID)))
}

func TestCreateBookingRejectsStartedShowtime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 30*time.Minute, 50)
	f.clock.Advance(time.Hour)

	_, err := f.service.Booking.CreateBooking(ctx, uuid.NewString(), &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    []string{uuid.NewString()},
	})
	assert.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	booking := f.createBooking(t, uuid.NewString(), showtime.ID, 1)

	paid, err := f.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  booking.ID,
		PaymentRef: "PAY-1234",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, paid.Status)
	assert.Equal(t, entity.PaymentStatusCompleted, paid.PaymentStatus)

	// Same settlement reference again: no-op success.
	again, err := f.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  booking.ID,
		PaymentRef: "PAY-1234",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, again.Status)

	// A different reference on a settled booking is a state violation.
	_, err = f.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  booking.ID,
		PaymentRef: "PAY-9999",
	})
	assert.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestConfirmPaymentAfterHoldLapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	booking := f.createBooking(t, uuid.NewString(), showtime.ID, 1)

	f.clock.Advance(16 * time.Minute)

	_, err := f.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  booking.ID,
		PaymentRef: "PAY-LATE",
	})
	assert.ErrorIs(t, err, usecase.ErrHoldExpired)

	// The late payment triggered the expiry cancellation inline.
	cancelled, err := f.repos.Booking.FindByID(ctx, uuid.MustParse(booking.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, entity.PaymentStatusFailed, cancelled.PaymentStatus)
	assert.Equal(t, 0, f.store.HoldCountByShowtime(uuid.MustParse(showtime.ID)))
}

func TestCancelBookingReleasesSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	booking := f.createBooking(t, uuid.NewString(), showtime.ID, 2)

	require.NoError(t, f.service.Booking.CancelBooking(ctx, booking.ID, "changed plans"))

	// The seats are immediately available to someone else.
	_, err := f.service.Booking.CreateBooking(ctx, uuid.NewString(), &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    booking.SeatIDs,
	})
	require.NoError(t, err)

	// Repeat cancel is a no-op.
	assert.NoError(t, f.service.Booking.CancelBooking(ctx, booking.ID, "again"))
}

func TestExtendHoldMovesDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	customerID := uuid.NewString()
	showtime := f.createShowtime(t, 2*time.Hour, 50)
	booking := f.createBooking(t, customerID, showtime.ID, 1)

	f.clock.Advance(10 * time.Minute)

	extended, err := f.service.Booking.ExtendHold(ctx, customerID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), extended.HoldExpiresAt)

	// Once lapsed, extension is refused.
	f.clock.Advance(20 * time.Minute)
	_, err = f.service.Booking.ExtendHold(ctx, customerID, booking.ID)
	assert.ErrorIs(t, err, usecase.ErrHoldExpired)
}

func TestExtendHoldRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)
	booking := f.createBooking(t, uuid.NewString(), showtime.ID, 1)

	_, err := f.service.Booking.ExtendHold(ctx, uuid.NewString(), booking.ID)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestAutoCancelExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	showtime := f.createShowtime(t, 2*time.Hour, 50)

	abandoned := f.createBooking(t, uuid.NewString(), showtime.ID, 2)
	paid := f.createBooking(t, uuid.NewString(), showtime.ID, 1)
	_, err := f.service.Booking.ConfirmPayment(ctx, &request.ConfirmPaymentRequest{
		BookingID:  paid.ID,
		PaymentRef: "PAY-OK",
	})
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)

	cancelled, err := f.service.Booking.AutoCancelExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	// Abandoned checkout is cancelled and its seats returned to the pool.
	b, err := f.repos.Booking.FindByID(ctx, uuid.MustParse(abandoned.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, b.Status)

	_, err = f.service.Booking.CreateBooking(ctx, uuid.NewString(), &request.CreateBookingRequest{
		ShowtimeID: showtime.ID,
		SeatIDs:    abandoned.SeatIDs,
	})
	assert.NoError(t, err)

	// The paid booking is untouched, and the sweep is idempotent.
	p, err := f.repos.Booking.FindByID(ctx, uuid.MustParse(paid.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, p.Status)

	cancelled, err = f.service.Booking.AutoCancelExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, cancelled)
}

func TestDeleteBookingHidesFromHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	customerID := uuid.NewString()
	showtime := f.createShowtime(t, 2*time.Hour, 50)
	booking := f.createBooking(t, customerID, showtime.ID, 1)

	require.NoError(t, f.service.Booking.DeleteBooking(ctx, customerID, booking.ID))

	page, err := f.service.Booking.GetCustomerBookings(ctx, customerID, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Zero(t, page.Pagination.Total)

	// Display-only: the booking itself and its seats survive.
	detail, err := f.service.Booking.GetBookingByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, detail.Status)
	assert.Equal(t, 1, f.store.HoldCountByShowtime(uuid.MustParse(showtime.ID)))
}

func TestGetCustomerBookingsPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	customerID := uuid.NewString()
	showtime := f.createShowtime(t, 2*time.Hour, 50)
	for i := 0; i < 5; i++ {
		f.createBooking(t, customerID, showtime.ID, 1)
	}

	page, err := f.service.Booking.GetCustomerBookings(ctx, customerID, &request.PaginatedRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(5), page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
}
