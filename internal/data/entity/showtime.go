package entity

import (
	"time"

	"github.com/google/uuid"
)

type ShowtimeStatus string

const (
	ShowtimeStatusScheduled ShowtimeStatus = "scheduled"
	ShowtimeStatusCompleted ShowtimeStatus = "completed"
	ShowtimeStatusCancelled ShowtimeStatus = "cancelled"
)

// Showtime is one screening of a movie in a hall. EndsAt is always derived
// from StartsAt plus the movie's duration, never authored directly.
type Showtime struct {
	BaseNoDelete
	MovieID  uuid.UUID      `db:"movie_id"`
	HallID   uuid.UUID      `db:"hall_id"`
	ShowDate time.Time      `db:"show_date"`
	StartsAt time.Time      `db:"starts_at"`
	EndsAt   time.Time      `db:"ends_at"`
	Price    float64        `db:"price"`
	Status   ShowtimeStatus `db:"status"`
}
