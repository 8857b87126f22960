package usecase

import (
	"time"

	"cinema-reservation/internal/data/cache"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/events"
	"cinema-reservation/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking  BookingService
	Showtime ShowtimeService
}

// settings carries the knobs shared by the services. The clock is injected
// so lease and sweep behavior is testable without sleeping.
type settings struct {
	now       func() time.Time
	holdLease time.Duration
}

type Option func(*settings)

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithHoldLease(d time.Duration) Option {
	return func(s *settings) { s.holdLease = d }
}

func NewService(
	repo *repository.Repository,
	seatCache *cache.SeatAvailability,
	publisher *events.Publisher,
	config *utils.Config,
	log *zap.Logger,
	opts ...Option,
) *Service {
	cfg := settings{
		now:       time.Now,
		holdLease: 15 * time.Minute,
	}
	if config != nil && config.Booking.HoldLeaseMinutes > 0 {
		cfg.holdLease = time.Duration(config.Booking.HoldLeaseMinutes) * time.Minute
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Service{
		Booking:  NewBookingService(repo, seatCache, publisher, cfg, log),
		Showtime: NewShowtimeService(repo, seatCache, publisher, cfg, log),
	}
}
