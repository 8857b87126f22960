package adaptor

import (
	"cinema-reservation/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Booking  *BookingHandler
	Showtime *ShowtimeHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:  NewBookingHandler(service.Booking, log),
		Showtime: NewShowtimeHandler(service.Showtime, log),
	}
}
