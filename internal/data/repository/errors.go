// Package repository defines sentinel errors shared across repositories so
// higher layers can distinguish contention outcomes from real faults with
// errors.Is. Contention errors are expected under concurrent load and must
// never be logged as failures.
package repository

import "errors"

// ErrSeatUnavailable is returned by Acquire when a seat already carries a
// booked hold or a live lock. Handlers translate it into HTTP 409.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrLockExpired is returned by Commit when a lock's lease lapsed before
// the booking could consume it.
var ErrLockExpired = errors.New("seat lock expired")

// ErrLockAlreadyConsumed is returned by Commit when a hold has already been
// attached to a booking.
var ErrLockAlreadyConsumed = errors.New("seat lock already consumed")

// ErrNotLocked is returned by Extend when none of the referenced holds is
// in the locked state.
var ErrNotLocked = errors.New("seat hold not locked")
