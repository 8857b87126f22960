package request

type CreateShowtimeRequest struct {
	MovieID  string  `json:"movie_id" validate:"required,uuid4"`
	HallID   string  `json:"hall_id" validate:"required,uuid4"`
	StartsAt string  `json:"starts_at" validate:"required"` // RFC 3339
	Price    float64 `json:"price" validate:"required,min=0"`
}

type UpdateShowtimeRequest struct {
	StartsAt string  `json:"starts_at" validate:"required"` // RFC 3339
	Price    float64 `json:"price" validate:"required,min=0"`
}
