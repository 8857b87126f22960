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

type ShowtimeRepository interface {
	Create(ctx context.Context, showtime *entity.Showtime) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error)
	FindByMovieID(ctx context.Context, movieID uuid.UUID) ([]*entity.Showtime, error)
	Update(ctx context.Context, showtime *entity.Showtime) error

	// FindOverlapping returns non-cancelled showtimes in the hall whose
	// [starts_at, ends_at) interval intersects the given one. excludeID
	// skips the showtime being updated.
	FindOverlapping(ctx context.Context, hallID uuid.UUID, startsAt, endsAt time.Time, excludeID uuid.UUID) ([]*entity.Showtime, error)
	// UpdateStatusIf transitions the status only when the current value
	// matches, so overlapping sweeps cannot double-apply cascades.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to entity.ShowtimeStatus) (bool, error)
	FindEndedScheduled(ctx context.Context, now time.Time) ([]*entity.Showtime, error)
}

type showtimeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewShowtimeRepository(db database.PgxIface, log *zap.Logger) ShowtimeRepository {
	return &showtimeRepository{
		db:  db,
		log: log.With(zap.String("repository", "showtime")),
	}
}

const showtimeColumns = `id, movie_id, hall_id, show_date, starts_at, ends_at, price, status, created_at, updated_at`

func (r *showtimeRepository) Create(ctx context.Context, showtime *entity.Showtime) error {
	query := `
		INSERT INTO showtimes (id, movie_id, hall_id, show_date, starts_at, ends_at, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		showtime.ID,
		showtime.MovieID,
		showtime.HallID,
		showtime.ShowDate,
		showtime.StartsAt,
		showtime.EndsAt,
		showtime.Price,
		showtime.Status,
		showtime.CreatedAt,
		showtime.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create showtime",
			zap.Error(err),
			zap.String("movie_id", showtime.MovieID.String()),
			zap.String("hall_id", showtime.HallID.String()),
		)
		return fmt.Errorf("create showtime for movie %s hall %s: %w",
			showtime.MovieID.String(), showtime.HallID.String(), err)
	}

	return nil
}

func (r *showtimeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = $1`

	var showtime entity.Showtime
	err := r.db.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.MovieID,
		&showtime.HallID,
		&showtime.ShowDate,
		&showtime.StartsAt,
		&showtime.EndsAt,
		&showtime.Price,
		&showtime.Status,
		&showtime.CreatedAt,
		&showtime.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find showtime by ID",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
		)
		return nil, fmt.Errorf("find showtime by ID %s: %w", id.String(), err)
	}

	return &showtime, nil
}

func (r *showtimeRepository) FindByMovieID(ctx context.Context, movieID uuid.UUID) ([]*entity.Showtime, error) {
	query := `
		SELECT ` + showtimeColumns + `
		FROM showtimes
		WHERE movie_id = $1 AND status = 'scheduled'
		ORDER BY starts_at
	`

	rows, err := r.db.Query(ctx, query, movieID)
	if err != nil {
		r.log.Error("Failed to find showtimes by movie ID",
			zap.Error(err),
			zap.String("movie_id", movieID.String()),
		)
		return nil, fmt.Errorf("find showtimes by movie ID %s: %w", movieID.String(), err)
	}
	defer rows.Close()

	return r.scanShowtimes(rows)
}

func (r *showtimeRepository) Update(ctx context.Context, showtime *entity.Showtime) error {
	query := `
		UPDATE showtimes
		SET movie_id = $2, hall_id = $3, show_date = $4, starts_at = $5, ends_at = $6, price = $7, updated_at = $8
		WHERE id = $1 AND status = 'scheduled'
	`

	result, err := r.db.Exec(ctx, query,
		showtime.ID,
		showtime.MovieID,
		showtime.HallID,
		showtime.ShowDate,
		showtime.StartsAt,
		showtime.EndsAt,
		showtime.Price,
		showtime.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to update showtime",
			zap.Error(err),
			zap.String("showtime_id", showtime.ID.String()),
		)
		return fmt.Errorf("update showtime %s: %w", showtime.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("showtime %s not found or not scheduled", showtime.ID.String())
	}

	return nil
}

func (r *showtimeRepository) FindOverlapping(ctx context.Context, hallID uuid.UUID, startsAt, endsAt time.Time, excludeID uuid.UUID) ([]*entity.Showtime, error) {
	query := `
		SELECT ` + showtimeColumns + `
		FROM showtimes
		WHERE hall_id = $1
		  AND status != 'cancelled'
		  AND starts_at < $3
		  AND ends_at > $2
		  AND id != $4
		ORDER BY starts_at
	`

	rows, err := r.db.Query(ctx, query, hallID, startsAt, endsAt, excludeID)
	if err != nil {
		r.log.Error("Failed to find overlapping showtimes",
			zap.Error(err),
			zap.String("hall_id", hallID.String()),
			zap.Time("starts_at", startsAt),
			zap.Time("ends_at", endsAt),
		)
		return nil, fmt.Errorf("find overlapping showtimes in hall %s: %w", hallID.String(), err)
	}
	defer rows.Close()

	return r.scanShowtimes(rows)
}

func (r *showtimeRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to entity.ShowtimeStatus) (bool, error) {
	query := `UPDATE showtimes SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update showtime status",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update showtime %s status to %s: %w", id.String(), string(to), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *showtimeRepository) FindEndedScheduled(ctx context.Context, now time.Time) ([]*entity.Showtime, error) {
	query := `
		SELECT ` + showtimeColumns + `
		FROM showtimes
		WHERE status = 'scheduled' AND ends_at <= $1
		ORDER BY ends_at
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to find ended showtimes", zap.Error(err))
		return nil, fmt.Errorf("find ended showtimes: %w", err)
	}
	defer rows.Close()

	return r.scanShowtimes(rows)
}

func (r *showtimeRepository) scanShowtimes(rows pgx.Rows) ([]*entity.Showtime, error) {
	var showtimes []*entity.Showtime
	for rows.Next() {
		var showtime entity.Showtime
		err := rows.Scan(
			&showtime.ID,
			&showtime.MovieID,
			&showtime.HallID,
			&showtime.ShowDate,
			&showtime.StartsAt,
			&showtime.EndsAt,
			&showtime.Price,
			&showtime.Status,
			&showtime.CreatedAt,
			&showtime.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan showtime row", zap.Error(err))
			return nil, fmt.Errorf("scan showtime row: %w", err)
		}
		showtimes = append(showtimes, &showtime)
	}

	return showtimes, nil
}
