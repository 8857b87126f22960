package wire

import (
	"cinema-reservation/internal/adaptor"
	"cinema-reservation/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireShowtime(r chi.Router, showtimeHandler *adaptor.ShowtimeHandler, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/showtimes/{id} - Showtime detail
	r.Get("/api/showtimes/{id}", showtimeHandler.GetShowtimeByID)

	// GET /api/showtimes/{id}/seats - Seat map (free / locked / booked)
	r.Get("/api/showtimes/{id}/seats", showtimeHandler.GetSeatMap)

	// GET /api/movies/{id}/showtimes - Scheduled showtimes for a movie
	r.Get("/api/movies/{id}/showtimes", showtimeHandler.GetShowtimesByMovie)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/showtimes", func(r chi.Router) {
		r.Use(middleware.Identity(log))
		r.Use(middleware.Admin(log))

		// POST /api/admin/showtimes - Schedule a showtime
		r.Post("/", showtimeHandler.CreateShowtime)

		// PUT /api/admin/showtimes/{id} - Reschedule / reprice
		r.Put("/{id}", showtimeHandler.UpdateShowtime)

		// PUT /api/admin/showtimes/{id}/cancel - Cancel with cascades
		r.Put("/{id}/cancel", showtimeHandler.CancelShowtime)
	})
}
