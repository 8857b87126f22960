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

type SeatHoldRepository interface {
	// Acquire creates one locked hold per seat, all-or-nothing. Expired
	// locks count as free and are overwritten in place.
	Acquire(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, now, expiresAt time.Time) ([]uuid.UUID, error)
	// Extend pushes the lease of every still-live lock to the new deadline
	// and returns how many rows moved. Holds that are booked or already
	// expired are skipped, not rolled back.
	Extend(ctx context.Context, holdIDs []uuid.UUID, now, expiresAt time.Time) (int64, error)
	// Commit flips locked holds to booked and attaches the booking. Any
	// hold that is expired or already consumed fails the whole call.
	Commit(ctx context.Context, holdIDs []uuid.UUID, bookingID uuid.UUID, now time.Time) error
	ReleaseByIDs(ctx context.Context, holdIDs []uuid.UUID) error
	ReleaseByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	PurgeByShowtime(ctx context.Context, showtimeID uuid.UUID) (int64, error)

	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.SeatHold, error)
	FindActiveByShowtime(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]*entity.SeatHold, error)

	// Consistency repairs used by the drift sweep.
	ReleaseOrphanedBooked(ctx context.Context) (int64, error)
	CommitLockedForCompletedBookings(ctx context.Context) (int64, error)
}

type seatHoldRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatHoldRepository(db database.PgxIface, log *zap.Logger) SeatHoldRepository {
	return &seatHoldRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat_hold")),
	}
}

// acquireQuery is the single atomic create-or-replace per seat. The unique
// constraint on (showtime_id, seat_id) serializes contention on one seat;
// the DO UPDATE guard only fires for expired locks, so a booked hold or a
// live lock makes the statement affect zero rows.
const acquireQuery = `
	INSERT INTO seat_holds (id, showtime_id, seat_id, status, booking_id, expires_at, created_at, updated_at)
	VALUES ($1, $2, $3, 'locked', NULL, $4, $5, $5)
	ON CONFLICT (showtime_id, seat_id) DO UPDATE
	SET status = 'locked', booking_id = NULL, expires_at = $4, updated_at = $5
	WHERE seat_holds.status = 'locked' AND seat_holds.expires_at < $5
	RETURNING id
`

func (r *seatHoldRepository) Acquire(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, now, expiresAt time.Time) ([]uuid.UUID, error) {
	holdIDs := make([]uuid.UUID, 0, len(seatIDs))

	for _, seatID := range seatIDs {
		var holdID uuid.UUID
		err := r.db.QueryRow(ctx, acquireQuery, uuid.New(), showtimeID, seatID, expiresAt, now).Scan(&holdID)

		if err == pgx.ErrNoRows {
			// Someone else holds this seat. Compensate before surfacing
			// so a losing call never leaves partial locks behind.
			if relErr := r.ReleaseByIDs(ctx, holdIDs); relErr != nil {
				r.log.Error("Failed to release partial holds",
					zap.Error(relErr),
					zap.String("showtime_id", showtimeID.String()),
				)
			}
			return nil, fmt.Errorf("seat %s: %w", seatID.String(), ErrSeatUnavailable)
		}
		if err != nil {
			if relErr := r.ReleaseByIDs(ctx, holdIDs); relErr != nil {
				r.log.Error("Failed to release partial holds",
					zap.Error(relErr),
					zap.String("showtime_id", showtimeID.String()),
				)
			}
			r.log.Error("Failed to acquire seat hold",
				zap.Error(err),
				zap.String("showtime_id", showtimeID.String()),
				zap.String("seat_id", seatID.String()),
			)
			return nil, fmt.Errorf("acquire hold for seat %s: %w", seatID.String(), err)
		}

		holdIDs = append(holdIDs, holdID)
	}

	return holdIDs, nil
}

func (r *seatHoldRepository) Extend(ctx context.Context, holdIDs []uuid.UUID, now, expiresAt time.Time) (int64, error) {
	query := `
		UPDATE seat_holds
		SET expires_at = $2, updated_at = $3
		WHERE id = ANY($1) AND status = 'locked' AND expires_at > $3
	`

	result, err := r.db.Exec(ctx, query, holdIDs, expiresAt, now)
	if err != nil {
		r.log.Error("Failed to extend seat holds",
			zap.Error(err),
			zap.Int("hold_count", len(holdIDs)),
		)
		return 0, fmt.Errorf("extend %d seat holds: %w", len(holdIDs), err)
	}

	if result.RowsAffected() == 0 && len(holdIDs) > 0 {
		return 0, ErrNotLocked
	}
	return result.RowsAffected(), nil
}

func (r *seatHoldRepository) Commit(ctx context.Context, holdIDs []uuid.UUID, bookingID uuid.UUID, now time.Time) error {
	query := `
		UPDATE seat_holds
		SET status = 'booked', booking_id = $2, expires_at = NULL, updated_at = $3
		WHERE id = ANY($1) AND status = 'locked' AND expires_at > $3
	`

	result, err := r.db.Exec(ctx, query, holdIDs, bookingID, now)
	if err != nil {
		r.log.Error("Failed to commit seat holds",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("commit holds for booking %s: %w", bookingID.String(), err)
	}

	if result.RowsAffected() == int64(len(holdIDs)) {
		return nil
	}

	// Work out which guard failed so the caller gets a precise reason.
	// The caller treats either outcome as fatal to the booking attempt.
	rows, err := r.db.Query(ctx,
		`SELECT status FROM seat_holds WHERE id = ANY($1) AND status = 'booked' AND booking_id IS DISTINCT FROM $2`,
		holdIDs, bookingID,
	)
	if err != nil {
		return fmt.Errorf("inspect holds for booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	if rows.Next() {
		return ErrLockAlreadyConsumed
	}
	return ErrLockExpired
}

func (r *seatHoldRepository) ReleaseByIDs(ctx context.Context, holdIDs []uuid.UUID) error {
	if len(holdIDs) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx, `DELETE FROM seat_holds WHERE id = ANY($1)`, holdIDs)
	if err != nil {
		r.log.Error("Failed to release seat holds by IDs",
			zap.Error(err),
			zap.Int("hold_count", len(holdIDs)),
		)
		return fmt.Errorf("release %d seat holds: %w", len(holdIDs), err)
	}

	return nil
}

func (r *seatHoldRepository) ReleaseByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM seat_holds WHERE booking_id = $1`, bookingID)
	if err != nil {
		r.log.Error("Failed to release seat holds by booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return 0, fmt.Errorf("release holds for booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *seatHoldRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM seat_holds WHERE status = 'locked' AND expires_at < $1`, now)
	if err != nil {
		r.log.Error("Failed to purge expired locks", zap.Error(err))
		return 0, fmt.Errorf("purge expired locks: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *seatHoldRepository) PurgeByShowtime(ctx context.Context, showtimeID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM seat_holds WHERE showtime_id = $1`, showtimeID)
	if err != nil {
		r.log.Error("Failed to purge seat holds by showtime",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return 0, fmt.Errorf("purge holds for showtime %s: %w", showtimeID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *seatHoldRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.SeatHold, error) {
	query := `
		SELECT id, showtime_id, seat_id, booking_id, status, expires_at, created_at, updated_at
		FROM seat_holds
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find seat holds by booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find holds by booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	return scanSeatHolds(rows)
}

func (r *seatHoldRepository) FindActiveByShowtime(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]*entity.SeatHold, error) {
	query := `
		SELECT id, showtime_id, seat_id, booking_id, status, expires_at, created_at, updated_at
		FROM seat_holds
		WHERE showtime_id = $1
		  AND (status = 'booked' OR expires_at > $2)
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, showtimeID, now)
	if err != nil {
		r.log.Error("Failed to find active seat holds",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return nil, fmt.Errorf("find active holds for showtime %s: %w", showtimeID.String(), err)
	}
	defer rows.Close()

	return scanSeatHolds(rows)
}

func (r *seatHoldRepository) ReleaseOrphanedBooked(ctx context.Context) (int64, error) {
	// A booked hold whose booking is cancelled (or gone) is drift from a
	// missed release cascade.
	query := `
		DELETE FROM seat_holds sh
		WHERE sh.status = 'booked'
		  AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.id = sh.booking_id AND b.status IN ('confirmed', 'completed')
		  )
	`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		r.log.Error("Failed to release orphaned booked holds", zap.Error(err))
		return 0, fmt.Errorf("release orphaned booked holds: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *seatHoldRepository) CommitLockedForCompletedBookings(ctx context.Context) (int64, error) {
	// The mirror defect: a completed booking should never sit on plain
	// locks. Finish the missed commit.
	query := `
		UPDATE seat_holds sh
		SET status = 'booked', expires_at = NULL, updated_at = NOW()
		FROM bookings b
		WHERE sh.booking_id = b.id
		  AND sh.status = 'locked'
		  AND b.status = 'completed'
	`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		r.log.Error("Failed to commit locks for completed bookings", zap.Error(err))
		return 0, fmt.Errorf("commit locks for completed bookings: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanSeatHolds(rows pgx.Rows) ([]*entity.SeatHold, error) {
	var holds []*entity.SeatHold
	for rows.Next() {
		var hold entity.SeatHold
		err := rows.Scan(
			&hold.ID,
			&hold.ShowtimeID,
			&hold.SeatID,
			&hold.BookingID,
			&hold.Status,
			&hold.ExpiresAt,
			&hold.CreatedAt,
			&hold.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan seat hold row: %w", err)
		}
		holds = append(holds, &hold)
	}

	return holds, nil
}
