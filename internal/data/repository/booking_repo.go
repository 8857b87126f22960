package repository

import (
	"context"
	"fmt"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByReference(ctx context.Context, referenceCode string) (*entity.Booking, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)
	SoftDelete(ctx context.Context, id, customerID uuid.UUID) (bool, error)

	// State transitions. Every mutation is guarded by the expected prior
	// status so concurrent sweeps and requests cannot double-apply a
	// cascade; the bool reports whether this caller won the transition.
	CancelIfConfirmed(ctx context.Context, id uuid.UUID) (bool, error)
	ConfirmPaymentIfPending(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error)
	ExtendHoldDeadline(ctx context.Context, id uuid.UUID, until time.Time) (bool, error)
	CompletePaidByShowtime(ctx context.Context, showtimeID uuid.UUID) (int64, error)

	// Sweep and cascade queries.
	FindExpired(ctx context.Context, now time.Time) ([]*entity.Booking, error)
	FindActiveByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, reference_code, customer_id, showtime_id, total_seats, total_price,
		status, payment_status, payment_ref, hold_expires_at, created_at, updated_at, deleted_at`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, reference_code, customer_id, showtime_id, total_seats, total_price,
		                      status, payment_status, payment_ref, hold_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.ReferenceCode,
		booking.CustomerID,
		booking.ShowtimeID,
		booking.TotalSeats,
		booking.TotalPrice,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentRef,
		booking.HoldExpiresAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("reference_code", booking.ReferenceCode),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ReferenceCode, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := r.scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByReference(ctx context.Context, referenceCode string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference_code = $1`

	booking, err := r.scanBooking(r.db.QueryRow(ctx, query, referenceCode))
	if err != nil {
		r.log.Error("Failed to find booking by reference",
			zap.Error(err),
			zap.String("reference_code", referenceCode),
		)
		return nil, fmt.Errorf("find booking by reference %s: %w", referenceCode, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return nil, fmt.Errorf("find bookings by customer ID %s: %w", customerID.String(), err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

func (r *bookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE customer_id = $1 AND deleted_at IS NULL`

	var count int64
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return 0, fmt.Errorf("count bookings by customer ID %s: %w", customerID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) SoftDelete(ctx context.Context, id, customerID uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, customerID)
	if err != nil {
		r.log.Error("Failed to soft delete booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("soft delete booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) CancelIfConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	// A completed payment is never downgraded to failed; refunds are a
	// separate flow outside this core.
	query := `
		UPDATE bookings
		SET status = 'cancelled',
		    payment_status = CASE WHEN payment_status = 'completed' THEN payment_status ELSE 'failed' END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("cancel booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) ConfirmPaymentIfPending(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', payment_status = 'completed', payment_ref = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed' AND payment_status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, paymentRef)
	if err != nil {
		r.log.Error("Failed to confirm booking payment",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("confirm payment for booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) ExtendHoldDeadline(ctx context.Context, id uuid.UUID, until time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET hold_expires_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed' AND payment_status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, until)
	if err != nil {
		r.log.Error("Failed to extend booking hold deadline",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("extend hold deadline for booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) CompletePaidByShowtime(ctx context.Context, showtimeID uuid.UUID) (int64, error) {
	// Unpaid confirmed bookings are deliberately left alone here; the
	// booking sweep cancels them once their hold deadline passes.
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE showtime_id = $1 AND status = 'confirmed' AND payment_status = 'completed'
	`

	result, err := r.db.Exec(ctx, query, showtimeID)
	if err != nil {
		r.log.Error("Failed to complete bookings by showtime",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return 0, fmt.Errorf("complete bookings for showtime %s: %w", showtimeID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *bookingRepository) FindExpired(ctx context.Context, now time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed' AND payment_status = 'pending' AND hold_expires_at < $1
		ORDER BY hold_expires_at
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to find expired bookings", zap.Error(err))
		return nil, fmt.Errorf("find expired bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

func (r *bookingRepository) FindActiveByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE showtime_id = $1 AND status = 'confirmed'
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, showtimeID)
	if err != nil {
		r.log.Error("Failed to find active bookings by showtime",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return nil, fmt.Errorf("find active bookings for showtime %s: %w", showtimeID.String(), err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

func (r *bookingRepository) scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.ReferenceCode,
		&booking.CustomerID,
		&booking.ShowtimeID,
		&booking.TotalSeats,
		&booking.TotalPrice,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.PaymentRef,
		&booking.HoldExpiresAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *bookingRepository) scanBookings(rows pgx.Rows) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		var booking entity.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.ReferenceCode,
			&booking.CustomerID,
			&booking.ShowtimeID,
			&booking.TotalSeats,
			&booking.TotalPrice,
			&booking.Status,
			&booking.PaymentStatus,
			&booking.PaymentRef,
			&booking.HoldExpiresAt,
			&booking.CreatedAt,
			&booking.UpdatedAt,
			&booking.DeletedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, nil
}
