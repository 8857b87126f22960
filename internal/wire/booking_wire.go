package wire

import (
	"cinema-reservation/internal/adaptor"
	"cinema-reservation/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, log *zap.Logger) {
	// ==================== PROTECTED ROUTES (gateway identity) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/bookings - Lock seats and create a booking
		r.Post("/api/bookings", bookingHandler.CreateBooking)

		// GET /api/bookings/{id} - Booking detail
		r.Get("/api/bookings/{id}", bookingHandler.GetBookingByID)

		// POST /api/bookings/{id}/extend - Push the payment hold deadline out
		r.Post("/api/bookings/{id}/extend", bookingHandler.ExtendHold)

		// GET /api/user/bookings - Booking history (customer's own)
		r.Get("/api/user/bookings", bookingHandler.GetCustomerBookings)

		// DELETE /api/user/bookings/{id} - Hide a booking from history
		r.Delete("/api/user/bookings/{id}", bookingHandler.DeleteBooking)
	})

	// ==================== COLLABORATOR ROUTES ====================
	// POST /api/payments/confirm - Settlement callback from the payment service
	r.Post("/api/payments/confirm", bookingHandler.ConfirmPayment)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/bookings", func(r chi.Router) {
		r.Use(middleware.Identity(log))
		r.Use(middleware.Admin(log))

		// PUT /api/admin/bookings/{id}/cancel - Cancel any booking (admin)
		r.Put("/{id}/cancel", bookingHandler.CancelBooking)
	})
}
