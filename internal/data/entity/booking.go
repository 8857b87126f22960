package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Booking is a customer's reservation for a showtime. Bookings are never
// deleted, only status-transitioned; DeletedAt hides a booking from the
// customer's own listings without touching the state machine.
type Booking struct {
	Base
	ReferenceCode string        `db:"reference_code"`
	CustomerID    uuid.UUID     `db:"customer_id"`
	ShowtimeID    uuid.UUID     `db:"showtime_id"`
	TotalSeats    int           `db:"total_seats"`
	TotalPrice    float64       `db:"total_price"`
	Status        BookingStatus `db:"status"`
	PaymentStatus PaymentStatus `db:"payment_status"`
	PaymentRef    *string       `db:"payment_ref"`
	// HoldExpiresAt is the payment deadline; an unpaid booking past it is
	// cancelled by the booking sweep.
	HoldExpiresAt time.Time `db:"hold_expires_at"`
}
