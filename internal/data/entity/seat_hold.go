package entity

import (
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	// HoldStatusLocked is a time-leased claim; the seat is taken until
	// ExpiresAt passes, after which the row counts as free.
	HoldStatusLocked HoldStatus = "locked"
	// HoldStatusBooked is a permanent claim attached to a booking.
	HoldStatusBooked HoldStatus = "booked"
)

// SeatHold is the lock/booked record for one (showtime, seat) pair. The
// database enforces uniqueness on that pair, which is what makes
// double-booking impossible.
type SeatHold struct {
	BaseNoDelete
	ShowtimeID uuid.UUID  `db:"showtime_id"`
	SeatID     uuid.UUID  `db:"seat_id"`
	BookingID  *uuid.UUID `db:"booking_id"`
	Status     HoldStatus `db:"status"`
	ExpiresAt  *time.Time `db:"expires_at"`
}

// ExpiredAt reports whether the hold is a lock whose lease has lapsed at
// the given instant. Booked holds never expire.
func (h *SeatHold) ExpiredAt(now time.Time) bool {
	return h.Status == HoldStatusLocked && h.ExpiresAt != nil && h.ExpiresAt.Before(now)
}
