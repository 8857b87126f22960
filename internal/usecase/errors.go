package usecase

import "errors"

// Domain errors surfaced to the adaptor layer. Storage-level sentinels
// (repository.ErrSeatUnavailable and friends) pass through wrapped, so
// handlers match everything with errors.Is.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidState = errors.New("invalid state for requested transition")
	ErrHoldExpired  = errors.New("booking hold expired")
	ErrOverlap      = errors.New("showtime overlaps an existing one in the same hall")
	ErrInThePast    = errors.New("showtime would end in the past")
)
