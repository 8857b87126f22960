package adaptor

import (
	"encoding/json"
	"net/http"

	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/usecase"
	"cinema-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ShowtimeHandler struct {
	service usecase.ShowtimeService
	log     *zap.Logger
}

func NewShowtimeHandler(service usecase.ShowtimeService, log *zap.Logger) *ShowtimeHandler {
	return &ShowtimeHandler{
		service: service,
		log:     log.With(zap.String("handler", "showtime")),
	}
}

// CreateShowtime handles POST /api/admin/showtimes (admin only)
func (h *ShowtimeHandler) CreateShowtime(w http.ResponseWriter, r *http.Request) {
	var req request.CreateShowtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	showtime, err := h.service.CreateShowtime(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create showtime")
		return
	}

	utils.ResponseCreated(w, "success", showtime)
}

// UpdateShowtime handles PUT /api/admin/showtimes/{id} (admin only)
func (h *ShowtimeHandler) UpdateShowtime(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "id")
	if showtimeID == "" {
		utils.ResponseBadRequest(w, "Showtime ID is required", nil)
		return
	}

	var req request.UpdateShowtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	showtime, err := h.service.UpdateShowtime(r.Context(), showtimeID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update showtime")
		return
	}

	utils.ResponseSuccess(w, "success", showtime)
}

// CancelShowtime handles PUT /api/admin/showtimes/{id}/cancel (admin only)
func (h *ShowtimeHandler) CancelShowtime(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "id")
	if showtimeID == "" {
		utils.ResponseBadRequest(w, "Showtime ID is required", nil)
		return
	}

	if err := h.service.CancelShowtime(r.Context(), showtimeID); err != nil {
		handleServiceError(w, h.log, err, "cancel showtime")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// GetShowtimeByID handles GET /api/showtimes/{id} (public)
func (h *ShowtimeHandler) GetShowtimeByID(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "id")
	if showtimeID == "" {
		utils.ResponseBadRequest(w, "Showtime ID is required", nil)
		return
	}

	showtime, err := h.service.GetShowtimeByID(r.Context(), showtimeID)
	if err != nil {
		handleServiceError(w, h.log, err, "get showtime by ID")
		return
	}

	utils.ResponseSuccess(w, "success", showtime)
}

// GetShowtimesByMovie handles GET /api/movies/{id}/showtimes (public)
func (h *ShowtimeHandler) GetShowtimesByMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")
	if movieID == "" {
		utils.ResponseBadRequest(w, "Movie ID is required", nil)
		return
	}

	showtimes, err := h.service.GetShowtimesByMovie(r.Context(), movieID)
	if err != nil {
		handleServiceError(w, h.log, err, "get showtimes by movie")
		return
	}

	utils.ResponseSuccess(w, "success", showtimes)
}

// GetSeatMap handles GET /api/showtimes/{id}/seats (public)
func (h *ShowtimeHandler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "id")
	if showtimeID == "" {
		utils.ResponseBadRequest(w, "Showtime ID is required", nil)
		return
	}

	seatMap, err := h.service.GetSeatMap(r.Context(), showtimeID)
	if err != nil {
		handleServiceError(w, h.log, err, "get seat map")
		return
	}

	utils.ResponseSuccess(w, "success", seatMap)
}
