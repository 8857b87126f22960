package usecase

import (
	"context"
	"fmt"

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

type BookingService interface {
	// Customer endpoints (identity header mandatory)
	CreateBooking(ctx context.Context, customerID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetCustomerBookings(ctx context.Context, customerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	DeleteBooking(ctx context.Context, customerID, bookingID string) error
	ExtendHold(ctx context.Context, customerID, bookingID string) (*response.BookingResponse, error)

	// Payment collaborator webhook
	ConfirmPayment(ctx context.Context, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error)

	// Admin / read endpoints
	GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, bookingID, reason string) error

	// AutoCancelExpired cancels every booking whose payment hold deadline has
	// passed while payment is still pending, releasing its seats. Invoked by
	// the reconciliation sweeper; returns the number of bookings cancelled.
	AutoCancelExpired(ctx context.Context) (int, error)
}

type bookingService struct {
	repo      *repository.Repository
	seatCache *cache.SeatAvailability
	publisher *events.Publisher
	cfg       settings
	log       *zap.Logger
}

func NewBookingService(
	repo *repository.Repository,
	seatCache *cache.SeatAvailability,
	publisher *events.Publisher,
	cfg settings,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:      repo,
		seatCache: seatCache,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, customerID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	customerUUID, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer ID format %s: %w", customerID, err)
	}

	showtimeID, err := uuid.Parse(req.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", req.ShowtimeID, err)
	}

	seatIDs := make([]uuid.UUID, len(req.SeatIDs))
	seen := make(map[uuid.UUID]struct{}, len(req.SeatIDs))
	for i, seatIDStr := range req.SeatIDs {
		seatID, err := uuid.Parse(seatIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid seat ID format %s: %w", seatIDStr, err)
		}
		if _, dup := seen[seatID]; dup {
			return nil, fmt.Errorf("duplicate seat %s in request: %w", seatIDStr, ErrInvalidState)
		}
		seen[seatID] = struct{}{}
		seatIDs[i] = seatID
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("load showtime %s: %w", req.ShowtimeID, err)
	}
	if showtime == nil {
		return nil, fmt.Errorf("showtime %s: %w", req.ShowtimeID, ErrNotFound)
	}

	now := s.cfg.now()
	if showtime.Status != entity.ShowtimeStatusScheduled {
		return nil, fmt.Errorf("showtime %s is %s: %w", req.ShowtimeID, showtime.Status, ErrInvalidState)
	}
	if !showtime.StartsAt.After(now) {
		return nil, fmt.Errorf("showtime %s already started: %w", req.ShowtimeID, ErrInvalidState)
	}

	// Lock all requested seats with a lease; acquisition is all-or-nothing
	// so failure here leaves nothing behind.
	expiresAt := now.Add(s.cfg.holdLease)
	holdIDs, err := s.repo.SeatHold.Acquire(ctx, showtimeID, seatIDs, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("acquire seats for showtime %s: %w", req.ShowtimeID, err)
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ReferenceCode: utils.GenerateBookingRef(),
		CustomerID:    customerUUID,
		ShowtimeID:    showtimeID,
		TotalSeats:    len(seatIDs),
		TotalPrice:    showtime.Price * float64(len(seatIDs)),
		Status:        entity.BookingStatusConfirmed,
		PaymentStatus: entity.PaymentStatusPending,
		HoldExpiresAt: expiresAt,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		// Compensate: the locks must not outlive the failed attempt.
		if relErr := s.repo.SeatHold.ReleaseByIDs(ctx, holdIDs); relErr != nil {
			s.log.Error("Failed to release holds after booking create failure",
				zap.Error(relErr),
				zap.String("showtime_id", req.ShowtimeID),
			)
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := s.repo.SeatHold.Commit(ctx, holdIDs, booking.ID, now); err != nil {
		if _, cErr := s.repo.Booking.CancelIfConfirmed(ctx, booking.ID); cErr != nil {
			s.log.Error("Failed to cancel booking after commit failure",
				zap.Error(cErr),
				zap.String("booking_id", booking.ID.String()),
			)
		}
		if relErr := s.repo.SeatHold.ReleaseByIDs(ctx, holdIDs); relErr != nil {
			s.log.Error("Failed to release holds after commit failure",
				zap.Error(relErr),
				zap.String("booking_id", booking.ID.String()),
			)
		}
		return nil, fmt.Errorf("commit seats for booking %s: %w", booking.ID.String(), err)
	}

	s.seatCache.Invalidate(ctx, showtimeID)

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference_code", booking.ReferenceCode),
		zap.String("customer_id", customerID),
		zap.String("showtime_id", req.ShowtimeID),
		zap.Int("seat_count", len(seatIDs)),
		zap.Float64("total_price", booking.TotalPrice),
		zap.Time("hold_expires_at", expiresAt),
	)

	return s.buildBookingResponse(ctx, booking, showtime), nil
}

func (s *bookingService) ConfirmPayment(ctx context.Context, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Confirm payment validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", req.BookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", req.BookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", req.BookingID, ErrNotFound)
	}

	// Idempotent replay: the same settlement reference arriving again
	// returns the already-completed booking.
	if booking.Status == entity.BookingStatusCompleted &&
		booking.PaymentRef != nil && *booking.PaymentRef == req.PaymentRef {
		return s.buildBookingResponse(ctx, booking, nil), nil
	}

	now := s.cfg.now()
	if booking.Status == entity.BookingStatusConfirmed &&
		booking.PaymentStatus == entity.PaymentStatusPending &&
		booking.HoldExpiresAt.Before(now) {
		// Settlement arrived after the hold lapsed; cancel now instead of
		// waiting for the sweep, and reject the payment.
		s.cancelExpired(ctx, booking)
		return nil, fmt.Errorf("booking %s hold lapsed before payment: %w", req.BookingID, ErrHoldExpired)
	}

	ok, err := s.repo.Booking.ConfirmPaymentIfPending(ctx, bookingID, req.PaymentRef)
	if err != nil {
		return nil, fmt.Errorf("confirm payment for booking %s: %w", req.BookingID, err)
	}
	if !ok {
		return nil, fmt.Errorf("booking %s is %s/%s: %w",
			req.BookingID, booking.Status, booking.PaymentStatus, ErrInvalidState)
	}

	booking, err = s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil || booking == nil {
		return nil, fmt.Errorf("reload booking %s after payment: %w", req.BookingID, err)
	}

	s.publisher.BookingConfirmed(ctx, booking)

	s.log.Info("Payment confirmed",
		zap.String("booking_id", req.BookingID),
		zap.String("reference_code", booking.ReferenceCode),
		zap.String("payment_ref", req.PaymentRef),
	)

	return s.buildBookingResponse(ctx, booking, nil), nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID, reason string) error {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}

	ok, err := s.repo.Booking.CancelIfConfirmed(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}
	if !ok {
		// Repeat cancellation is a no-op; anything else is a state violation.
		if booking.Status == entity.BookingStatusCancelled {
			return nil
		}
		return fmt.Errorf("booking %s is %s: %w", bookingID, booking.Status, ErrInvalidState)
	}

	released, err := s.repo.SeatHold.ReleaseByBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("release seats for booking %s: %w", bookingID, err)
	}

	s.seatCache.Invalidate(ctx, booking.ShowtimeID)
	s.publisher.BookingCancelled(ctx, booking, reason)

	s.log.Info("Booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("reference_code", booking.ReferenceCode),
		zap.String("reason", reason),
		zap.Int64("seats_released", released),
	)

	return nil
}

func (s *bookingService) ExtendHold(ctx context.Context, customerID, bookingID string) (*response.BookingResponse, error) {
	customerUUID, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer ID format %s: %w", customerID, err)
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil || booking.CustomerID != customerUUID {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}

	now := s.cfg.now()
	if booking.HoldExpiresAt.Before(now) {
		return nil, fmt.Errorf("booking %s hold already lapsed: %w", bookingID, ErrHoldExpired)
	}

	until := now.Add(s.cfg.holdLease)
	ok, err := s.repo.Booking.ExtendHoldDeadline(ctx, id, until)
	if err != nil {
		return nil, fmt.Errorf("extend hold for booking %s: %w", bookingID, err)
	}
	if !ok {
		return nil, fmt.Errorf("booking %s is %s/%s: %w",
			bookingID, booking.Status, booking.PaymentStatus, ErrInvalidState)
	}

	booking.HoldExpiresAt = until

	s.log.Info("Hold extended",
		zap.String("booking_id", bookingID),
		zap.Time("hold_expires_at", until),
	)

	return s.buildBookingResponse(ctx, booking, nil), nil
}

func (s *bookingService) GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}

	return s.buildBookingResponse(ctx, booking, nil), nil
}

func (s *bookingService) GetCustomerBookings(ctx context.Context, customerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	customerUUID, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer ID format %s: %w", customerID, err)
	}

	bookings, err := s.repo.Booking.FindByCustomerID(ctx, customerUUID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get customer bookings",
			zap.Error(err),
			zap.String("customer_id", customerID),
		)
		return nil, fmt.Errorf("get customer bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, customerUUID)
	if err != nil {
		return nil, fmt.Errorf("count customer bookings: %w", err)
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		bookingResponses[i] = *s.buildBookingResponse(ctx, booking, nil)
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

func (s *bookingService) DeleteBooking(ctx context.Context, customerID, bookingID string) error {
	customerUUID, err := uuid.Parse(customerID)
	if err != nil {
		return fmt.Errorf("invalid customer ID format %s: %w", customerID, err)
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	// Display-only removal: the booking keeps its status and its seats.
	ok, err := s.repo.Booking.SoftDelete(ctx, id, customerUUID)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", bookingID, err)
	}
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}

	s.log.Info("Booking hidden from history",
		zap.String("booking_id", bookingID),
		zap.String("customer_id", customerID),
	)

	return nil
}

func (s *bookingService) AutoCancelExpired(ctx context.Context) (int, error) {
	now := s.cfg.now()

	expired, err := s.repo.Booking.FindExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired bookings: %w", err)
	}

	cancelled := 0
	for _, booking := range expired {
		if s.cancelExpired(ctx, booking) {
			cancelled++
		}
	}

	return cancelled, nil
}

// cancelExpired applies the expiry cancellation to one booking. The guarded
// update makes it safe against a payment racing in between find and cancel.
func (s *bookingService) cancelExpired(ctx context.Context, booking *entity.Booking) bool {
	ok, err := s.repo.Booking.CancelIfConfirmed(ctx, booking.ID)
	if err != nil {
		s.log.Error("Failed to cancel expired booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return false
	}
	if !ok {
		return false
	}

	if _, err := s.repo.SeatHold.ReleaseByBooking(ctx, booking.ID); err != nil {
		s.log.Error("Failed to release seats of expired booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}

	s.seatCache.Invalidate(ctx, booking.ShowtimeID)
	s.publisher.BookingCancelled(ctx, booking, "expired")

	s.log.Info("Expired booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference_code", booking.ReferenceCode),
		zap.Time("hold_expires_at", booking.HoldExpiresAt),
	)

	return true
}

func (s *bookingService) buildBookingResponse(ctx context.Context, booking *entity.Booking, showtime *entity.Showtime) *response.BookingResponse {
	holds, _ := s.repo.SeatHold.FindByBookingID(ctx, booking.ID)
	resp := response.BookingToResponse(booking, holds)

	if showtime == nil {
		showtime, _ = s.repo.Showtime.FindByID(ctx, booking.ShowtimeID)
	}
	if showtime != nil {
		resp.StartsAt = showtime.StartsAt

		if movie, _ := s.repo.Movie.FindByID(ctx, showtime.MovieID); movie != nil {
			resp.MovieTitle = movie.Title
		}
		if hall, _ := s.repo.Hall.FindByID(ctx, showtime.HallID); hall != nil {
			resp.HallName = hall.Name
		}
	}

	return &resp
}
