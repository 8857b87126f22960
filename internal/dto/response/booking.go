package response

import (
	"time"

	"cinema-reservation/internal/data/entity"
)

type BookingResponse struct {
	ID            string               `json:"id"`
	ReferenceCode string               `json:"reference_code"`
	CustomerID    string               `json:"customer_id"`
	ShowtimeID    string               `json:"showtime_id"`
	MovieTitle    string               `json:"movie_title,omitempty"`
	HallName      string               `json:"hall_name,omitempty"`
	StartsAt      time.Time            `json:"starts_at"`
	TotalSeats    int                  `json:"total_seats"`
	TotalPrice    float64              `json:"total_price"`
	Status        entity.BookingStatus `json:"status"`
	PaymentStatus entity.PaymentStatus `json:"payment_status"`
	PaymentRef    *string              `json:"payment_ref,omitempty"`
	HoldExpiresAt time.Time            `json:"hold_expires_at"`
	SeatIDs       []string             `json:"seat_ids,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// BookingToResponse maps the entity plus its committed seat locks. Showtime
// details are filled by the caller when it already has them loaded.
func BookingToResponse(booking *entity.Booking, holds []*entity.SeatHold) BookingResponse {
	seatIDs := make([]string, len(holds))
	for i, h := range holds {
		seatIDs[i] = h.SeatID.String()
	}

	return BookingResponse{
		ID:            booking.ID.String(),
		ReferenceCode: booking.ReferenceCode,
		CustomerID:    booking.CustomerID.String(),
		ShowtimeID:    booking.ShowtimeID.String(),
		TotalSeats:    booking.TotalSeats,
		TotalPrice:    booking.TotalPrice,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		PaymentRef:    booking.PaymentRef,
		HoldExpiresAt: booking.HoldExpiresAt,
		SeatIDs:       seatIDs,
		CreatedAt:     booking.CreatedAt,
	}
}
