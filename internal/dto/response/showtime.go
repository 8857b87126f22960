package response

import (
	"time"

	"cinema-reservation/internal/data/entity"
)

type ShowtimeResponse struct {
	ID         string                `json:"id"`
	MovieID    string                `json:"movie_id"`
	MovieTitle string                `json:"movie_title,omitempty"`
	HallID     string                `json:"hall_id"`
	HallName   string                `json:"hall_name,omitempty"`
	ShowDate   string                `json:"show_date"`
	StartsAt   time.Time             `json:"starts_at"`
	EndsAt     time.Time             `json:"ends_at"`
	Price      float64               `json:"price"`
	Status     entity.ShowtimeStatus `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
}

func ShowtimeToResponse(showtime *entity.Showtime) ShowtimeResponse {
	return ShowtimeResponse{
		ID:        showtime.ID.String(),
		MovieID:   showtime.MovieID.String(),
		HallID:    showtime.HallID.String(),
		ShowDate:  showtime.ShowDate.Format("2006-01-02"),
		StartsAt:  showtime.StartsAt,
		EndsAt:    showtime.EndsAt,
		Price:     showtime.Price,
		Status:    showtime.Status,
		CreatedAt: showtime.CreatedAt,
	}
}

// SeatState is the per-seat entry in the seat map: "locked" while a live
// lease exists, "booked" once committed.
type SeatState struct {
	SeatID string `json:"seat_id"`
	State  string `json:"state"`
}

type SeatMapResponse struct {
	ShowtimeID  string      `json:"showtime_id"`
	TotalSeats  int         `json:"total_seats"`
	Unavailable []SeatState `json:"unavailable"`
}
