// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation service and handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrSeatAlreadyHeld is returned when a live hold already exists for the
// same flight, seat and travel class.  It is derived solely from the
// storage uniqueness constraint.  Handlers translate it into HTTP 409.
var ErrSeatAlreadyHeld = errors.New("seat already held")

// ErrHoldNotFound is returned when no seat hold exists for an id.
var ErrHoldNotFound = errors.New("hold not found")

// ErrPassengerNotFound is returned when no passenger matches a lookup.
var ErrPassengerNotFound = errors.New("passenger not found")

// ErrBookingCodeTaken is returned when a generated booking code collides
// with one already assigned to another hold.
var ErrBookingCodeTaken = errors.New("booking code already assigned")

// ErrAircraftNotFound is returned when the catalog has no such aircraft.
var ErrAircraftNotFound = errors.New("aircraft not found")
