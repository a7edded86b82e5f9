package service

import (
	"errors"

	"github.com/iliyamo/flight-seat-reservation/internal/repository"
)

var (
	ErrInvalidSeatRequest      = errors.New("flight number, seat id and travel class are required")
	ErrMissingHoldID           = errors.New("booking id is required")
	ErrMissingIdentityDocument = errors.New("passport or id card is required")
	ErrHoldNotPending          = errors.New("hold is not pending")
	ErrPassengerConflict       = errors.New("passenger details conflict with an existing passenger")
	ErrNoExtras                = errors.New("at least one of meal, service or baggage is required")
	ErrBookingCodeExhausted    = errors.New("could not allocate a unique booking code")

	// Storage outcomes surfaced unchanged so callers only need this package.
	ErrSeatAlreadyHeld = repository.ErrSeatAlreadyHeld
	ErrHoldNotFound    = repository.ErrHoldNotFound
)
