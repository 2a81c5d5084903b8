package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrEventNotFound = errors.New("event not found")

	ErrEventInPast = errors.New("event date is in the past")

	ErrCapacityExceeded = errors.New("event capacity exceeded")

	ErrInvalidSeats = errors.New("requested seats must be positive")

	ErrDuplicateBooking = errors.New("user already holds an active booking for this event")

	ErrLockTimeout = errors.New("timed out waiting for admission lock")

	ErrLockHeld = errors.New("admission lock is held by another request")
)
