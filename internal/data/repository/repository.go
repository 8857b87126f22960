package repository

import (
	"cinema-reservation/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Movie    MovieRepository
	Hall     HallRepository
	Showtime ShowtimeRepository
	Booking  BookingRepository
	SeatHold SeatHoldRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Movie:    NewMovieRepository(db, log),
		Hall:     NewHallRepository(db, log),
		Showtime: NewShowtimeRepository(db, log),
		Booking:  NewBookingRepository(db, log),
		SeatHold: NewSeatHoldRepository(db, log),
	}
}
