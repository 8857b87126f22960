package request

type CreateBookingRequest struct {
	ShowtimeID string   `json:"showtime_id" validate:"required,uuid4"`
	SeatIDs    []string `json:"seat_ids" validate:"required,min=1,max=10,dive,uuid4"`
}

type ConfirmPaymentRequest struct {
	BookingID  string `json:"booking_id" validate:"required,uuid4"`
	PaymentRef string `json:"payment_ref" validate:"required,min=4,max=64"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=255"`
}
