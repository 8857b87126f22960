package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/usecase"
	"cinema-reservation/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps domain errors to HTTP statuses. Seat contention
// and state conflicts are 409, lapsed holds 410, everything unexpected 500.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	errMsg := err.Error()

	switch {
	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, errMsg)

	case errors.Is(err, repository.ErrSeatUnavailable):
		log.Warn(operation+" failed - seat unavailable", zap.Error(err))
		utils.ResponseConflict(w, errMsg)

	case errors.Is(err, usecase.ErrOverlap):
		log.Warn(operation+" failed - schedule overlap", zap.Error(err))
		utils.ResponseConflict(w, errMsg)

	case errors.Is(err, usecase.ErrInvalidState),
		errors.Is(err, repository.ErrLockAlreadyConsumed),
		errors.Is(err, repository.ErrNotLocked):
		log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseConflict(w, errMsg)

	case errors.Is(err, usecase.ErrHoldExpired),
		errors.Is(err, repository.ErrLockExpired):
		log.Warn(operation+" failed - hold expired", zap.Error(err))
		utils.ResponseGone(w, errMsg)

	case errors.Is(err, usecase.ErrInThePast),
		strings.Contains(errMsg, "validation failed"),
		strings.Contains(errMsg, "invalid"):
		log.Warn(operation+" failed - bad request", zap.Error(err))
		utils.ResponseBadRequest(w, errMsg, nil)

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
