package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-reservation/internal/data/cache"
	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/dto/response"
	"cinema-reservation/internal/events"
	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ShowtimeService interface {
	// Admin endpoints
	CreateShowtime(ctx context.Context, req *request.CreateShowtimeRequest) (*response.ShowtimeResponse, error)
	UpdateShowtime(ctx context.Context, showtimeID string, req *request.UpdateShowtimeRequest) (*response.ShowtimeResponse, error)
	CancelShowtime(ctx context.Context, showtimeID string) error

	// Public read surface
	GetShowtimeByID(ctx context.Context, showtimeID string) (*response.ShowtimeResponse, error)
	GetShowtimesByMovie(ctx context.Context, movieID string) ([]*response.ShowtimeResponse, error)
	GetSeatMap(ctx context.Context, showtimeID string) (*response.SeatMapResponse, error)

	// CompleteEnded transitions every scheduled showtime whose end time has
	// passed, completing its paid bookings and purging its holds. Invoked by
	// the reconciliation sweeper; returns the number of showtimes completed.
	CompleteEnded(ctx context.Context) (int, error)
}

type showtimeService struct {
	repo      *repository.Repository
	seatCache *cache.SeatAvailability
	publisher *events.Publisher
	cfg       settings
	log       *zap.Logger
}

func NewShowtimeService(
	repo *repository.Repository,
	seatCache *cache.SeatAvailability,
	publisher *events.Publisher,
	cfg settings,
	log *zap.Logger,
) ShowtimeService {
	return &showtimeService{
		repo:      repo,
		seatCache: seatCache,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With(zap.String("service", "showtime")),
	}
}

func (s *showtimeService) CreateShowtime(ctx context.Context, req *request.CreateShowtimeRequest) (*response.ShowtimeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create showtime validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	movieID, err := uuid.Parse(req.MovieID)
	if err != nil {
		return nil, fmt.Errorf("invalid movie ID format %s: %w", req.MovieID, err)
	}

	hallID, err := uuid.Parse(req.HallID)
	if err != nil {
		return nil, fmt.Errorf("invalid hall ID format %s: %w", req.HallID, err)
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid starts_at %s, expected RFC 3339: %w", req.StartsAt, err)
	}

	movie, err := s.repo.Movie.FindByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("load movie %s: %w", req.MovieID, err)
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %s: %w", req.MovieID, ErrNotFound)
	}

	hall, err := s.repo.Hall.FindByID(ctx, hallID)
	if err != nil {
		return nil, fmt.Errorf("load hall %s: %w", req.HallID, err)
	}
	if hall == nil {
		return nil, fmt.Errorf("hall %s: %w", req.HallID, ErrNotFound)
	}

	endsAt := deriveEndTime(startsAt, movie.DurationInMinutes)
	if endsAt.Before(s.cfg.now()) {
		return nil, fmt.Errorf("showtime ending %s: %w", endsAt.Format(time.RFC3339), ErrInThePast)
	}

	if err := s.validateNoOverlap(ctx, hallID, startsAt, endsAt, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.cfg.now()
	showtime := &entity.Showtime{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		MovieID:  movieID,
		HallID:   hallID,
		ShowDate: startsAt.Truncate(24 * time.Hour),
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Price:    req.Price,
		Status:   entity.ShowtimeStatusScheduled,
	}

	if err := s.repo.Showtime.Create(ctx, showtime); err != nil {
		return nil, fmt.Errorf("create showtime: %w", err)
	}

	s.log.Info("Showtime created",
		zap.String("showtime_id", showtime.ID.String()),
		zap.String("movie_id", req.MovieID),
		zap.String("hall_id", req.HallID),
		zap.Time("starts_at", startsAt),
		zap.Time("ends_at", endsAt),
	)

	resp := response.ShowtimeToResponse(showtime)
	resp.MovieTitle = movie.Title
	resp.HallName = hall.Name
	return &resp, nil
}

func (s *showtimeService) UpdateShowtime(ctx context.Context, showtimeID string, req *request.UpdateShowtimeRequest) (*response.ShowtimeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update showtime validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(showtimeID)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", showtimeID, err)
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid starts_at %s, expected RFC 3339: %w", req.StartsAt, err)
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load showtime %s: %w", showtimeID, err)
	}
	if showtime == nil {
		return nil, fmt.Errorf("showtime %s: %w", showtimeID, ErrNotFound)
	}
	if showtime.Status != entity.ShowtimeStatusScheduled {
		return nil, fmt.Errorf("showtime %s is %s: %w", showtimeID, showtime.Status, ErrInvalidState)
	}

	movie, err := s.repo.Movie.FindByID(ctx, showtime.MovieID)
	if err != nil || movie == nil {
		return nil, fmt.Errorf("load movie %s for showtime %s: %w", showtime.MovieID.String(), showtimeID, err)
	}

	endsAt := deriveEndTime(startsAt, movie.DurationInMinutes)
	if endsAt.Before(s.cfg.now()) {
		return nil, fmt.Errorf("showtime ending %s: %w", endsAt.Format(time.RFC3339), ErrInThePast)
	}

	if err := s.validateNoOverlap(ctx, showtime.HallID, startsAt, endsAt, id); err != nil {
		return nil, err
	}

	showtime.ShowDate = startsAt.Truncate(24 * time.Hour)
	showtime.StartsAt = startsAt
	showtime.EndsAt = endsAt
	showtime.Price = req.Price
	showtime.UpdatedAt = s.cfg.now()

	if err := s.repo.Showtime.Update(ctx, showtime); err != nil {
		return nil, fmt.Errorf("update showtime %s: %w", showtimeID, err)
	}

	s.seatCache.Invalidate(ctx, id)

	s.log.Info("Showtime updated",
		zap.String("showtime_id", showtimeID),
		zap.Time("starts_at", startsAt),
		zap.Time("ends_at", endsAt),
	)

	resp := response.ShowtimeToResponse(showtime)
	resp.MovieTitle = movie.Title
	return &resp, nil
}

func (s *showtimeService) CancelShowtime(ctx context.Context, showtimeID string) error {
	id, err := uuid.Parse(showtimeID)
	if err != nil {
		return fmt.Errorf("invalid showtime ID format %s: %w", showtimeID, err)
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load showtime %s: %w", showtimeID, err)
	}
	if showtime == nil {
		return fmt.Errorf("showtime %s: %w", showtimeID, ErrNotFound)
	}
	if showtime.Status == entity.ShowtimeStatusCancelled {
		return nil
	}
	if showtime.Status != entity.ShowtimeStatusScheduled {
		return fmt.Errorf("showtime %s is %s: %w", showtimeID, showtime.Status, ErrInvalidState)
	}

	// Cascades run before the status flip: if a cascade step fails the
	// showtime stays scheduled and the sweep retries the whole cancellation.
	bookings, err := s.repo.Booking.FindActiveByShowtime(ctx, id)
	if err != nil {
		return fmt.Errorf("find bookings for showtime %s: %w", showtimeID, err)
	}

	cancelledBookings := 0
	for _, booking := range bookings {
		ok, err := s.repo.Booking.CancelIfConfirmed(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("cancel booking %s for showtime %s: %w", booking.ID.String(), showtimeID, err)
		}
		if ok {
			s.publisher.BookingCancelled(ctx, booking, "showtime cancelled")
			cancelledBookings++
		}
	}

	purged, err := s.repo.SeatHold.PurgeByShowtime(ctx, id)
	if err != nil {
		return fmt.Errorf("purge holds for showtime %s: %w", showtimeID, err)
	}

	ok, err := s.repo.Showtime.UpdateStatusIf(ctx, id, entity.ShowtimeStatusScheduled, entity.ShowtimeStatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel showtime %s: %w", showtimeID, err)
	}
	if !ok {
		// Lost the race to a concurrent cancel; cascades are idempotent.
		current, _ := s.repo.Showtime.FindByID(ctx, id)
		if current != nil && current.Status == entity.ShowtimeStatusCancelled {
			return nil
		}
		return fmt.Errorf("showtime %s changed state during cancel: %w", showtimeID, ErrInvalidState)
	}

	s.seatCache.Invalidate(ctx, id)
	s.publisher.ShowtimeCancelled(ctx, showtime)

	s.log.Info("Showtime cancelled",
		zap.String("showtime_id", showtimeID),
		zap.Int("bookings_cancelled", cancelledBookings),
		zap.Int64("holds_purged", purged),
	)

	return nil
}

func (s *showtimeService) GetShowtimeByID(ctx context.Context, showtimeID string) (*response.ShowtimeResponse, error) {
	id, err := uuid.Parse(showtimeID)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", showtimeID, err)
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load showtime %s: %w", showtimeID, err)
	}
	if showtime == nil {
		return nil, fmt.Errorf("showtime %s: %w", showtimeID, ErrNotFound)
	}

	resp := response.ShowtimeToResponse(showtime)
	if movie, _ := s.repo.Movie.FindByID(ctx, showtime.MovieID); movie != nil {
		resp.MovieTitle = movie.Title
	}
	if hall, _ := s.repo.Hall.FindByID(ctx, showtime.HallID); hall != nil {
		resp.HallName = hall.Name
	}

	return &resp, nil
}

func (s *showtimeService) GetShowtimesByMovie(ctx context.Context, movieID string) ([]*response.ShowtimeResponse, error) {
	id, err := uuid.Parse(movieID)
	if err != nil {
		return nil, fmt.Errorf("invalid movie ID format %s: %w", movieID, err)
	}

	movie, err := s.repo.Movie.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load movie %s: %w", movieID, err)
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %s: %w", movieID, ErrNotFound)
	}

	showtimes, err := s.repo.Showtime.FindByMovieID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find showtimes for movie %s: %w", movieID, err)
	}

	responses := make([]*response.ShowtimeResponse, len(showtimes))
	for i, showtime := range showtimes {
		resp := response.ShowtimeToResponse(showtime)
		resp.MovieTitle = movie.Title
		responses[i] = &resp
	}

	return responses, nil
}

func (s *showtimeService) GetSeatMap(ctx context.Context, showtimeID string) (*response.SeatMapResponse, error) {
	id, err := uuid.Parse(showtimeID)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", showtimeID, err)
	}

	if cached, err := s.seatCache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load showtime %s: %w", showtimeID, err)
	}
	if showtime == nil {
		return nil, fmt.Errorf("showtime %s: %w", showtimeID, ErrNotFound)
	}

	hall, err := s.repo.Hall.FindByID(ctx, showtime.HallID)
	if err != nil || hall == nil {
		return nil, fmt.Errorf("load hall %s for showtime %s: %w", showtime.HallID.String(), showtimeID, err)
	}

	holds, err := s.repo.SeatHold.FindActiveByShowtime(ctx, id, s.cfg.now())
	if err != nil {
		return nil, fmt.Errorf("find active holds for showtime %s: %w", showtimeID, err)
	}

	seatMap := &response.SeatMapResponse{
		ShowtimeID:  showtimeID,
		TotalSeats:  hall.TotalSeats,
		Unavailable: make([]response.SeatState, len(holds)),
	}
	for i, hold := range holds {
		seatMap.Unavailable[i] = response.SeatState{
			SeatID: hold.SeatID.String(),
			State:  string(hold.Status),
		}
	}

	if err := s.seatCache.Set(ctx, id, seatMap); err != nil {
		s.log.Warn("Failed to cache seat map", zap.Error(err), zap.String("showtime_id", showtimeID))
	}

	return seatMap, nil
}

func (s *showtimeService) CompleteEnded(ctx context.Context) (int, error) {
	now := s.cfg.now()

	ended, err := s.repo.Showtime.FindEndedScheduled(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find ended showtimes: %w", err)
	}

	completed := 0
	for _, showtime := range ended {
		if err := s.completeShowtime(ctx, showtime); err != nil {
			s.log.Error("Failed to complete showtime",
				zap.Error(err),
				zap.String("showtime_id", showtime.ID.String()),
			)
			continue
		}
		completed++
	}

	return completed, nil
}

// completeShowtime runs the completion cascades, then flips the status.
// Paid bookings become Completed; unpaid ones keep their pending payment
// and are left to the expiry sweep.
func (s *showtimeService) completeShowtime(ctx context.Context, showtime *entity.Showtime) error {
	completedBookings, err := s.repo.Booking.CompletePaidByShowtime(ctx, showtime.ID)
	if err != nil {
		return fmt.Errorf("complete paid bookings: %w", err)
	}

	purged, err := s.repo.SeatHold.PurgeByShowtime(ctx, showtime.ID)
	if err != nil {
		return fmt.Errorf("purge holds: %w", err)
	}

	ok, err := s.repo.Showtime.UpdateStatusIf(ctx, showtime.ID, entity.ShowtimeStatusScheduled, entity.ShowtimeStatusCompleted)
	if err != nil {
		return fmt.Errorf("flip status: %w", err)
	}
	if !ok {
		return nil
	}

	s.seatCache.Invalidate(ctx, showtime.ID)

	s.log.Info("Showtime completed",
		zap.String("showtime_id", showtime.ID.String()),
		zap.Int64("bookings_completed", completedBookings),
		zap.Int64("holds_purged", purged),
	)

	return nil
}

func (s *showtimeService) validateNoOverlap(ctx context.Context, hallID uuid.UUID, startsAt, endsAt time.Time, excludeID uuid.UUID) error {
	overlapping, err := s.repo.Showtime.FindOverlapping(ctx, hallID, startsAt, endsAt, excludeID)
	if err != nil {
		return fmt.Errorf("check overlap in hall %s: %w", hallID.String(), err)
	}
	if len(overlapping) > 0 {
		return fmt.Errorf("hall %s already has %d showtime(s) in [%s, %s): %w",
			hallID.String(), len(overlapping),
			startsAt.Format(time.RFC3339), endsAt.Format(time.RFC3339), ErrOverlap)
	}
	return nil
}

func deriveEndTime(startsAt time.Time, durationMinutes int) time.Time {
	return startsAt.Add(time.Duration(durationMinutes) * time.Minute)
}
