package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInFlight is returned when the same actor already has a hold or
	// reservation attempt running for the row.
	ErrInFlight = errors.New("another request for this row is in progress")

	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalid is returned for malformed input such as an empty seat list.
	ErrInvalid = errors.New("invalid request")
)

// SeatConflictError reports the seat that another actor claimed first.  It
// wraps the store error, so errors.Is(err, repository.ErrConflict) holds.
type SeatConflictError struct {
	Op   string // "hold" or "reserve"
	Row  string
	Seat int
	Err  error
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("%s: seat %s-%d is no longer available", e.Op, e.Row, e.Seat)
}

func (e *SeatConflictError) Unwrap() error { return e.Err }
