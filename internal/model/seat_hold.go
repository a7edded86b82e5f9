package model

import "time"

// SeatHold represents a seat reservation on a flight.  A hold starts in
// PENDING while the customer pays, becomes CONFIRMED once the payment
// gateway reports success and is CANCELLED when the payment is declined or
// the checkout session expires.  Cancelled rows are retained for audit but
// no longer count as reserved.
//
// Fields:
//  ID           – primary key identifier.
//  FlightNumber – flight the seat belongs to.  Opaque string: the flight
//                 catalog lives in another service and is not referenced
//                 by a foreign key.
//  SeatID       – seat label such as "14C".
//  TravelClass  – cabin class label (ECONOMY, BUSINESS, ...).
//  Status       – PENDING, CONFIRMED or CANCELLED.
//  PassengerID  – passenger attached at confirmation (nil while pending).
//  BookingCode  – 6 character code issued at confirmation.
//  ClerkID      – identifier of the signed-in user in the auth provider.
//  Meal, Service, Baggage – optional ancillary choices.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type SeatHold struct {
	ID           uint64     `json:"booking_id"`
	FlightNumber string     `json:"flight_number"`
	SeatID       string     `json:"seat_id"`
	TravelClass  string     `json:"travel_class"`
	Status       HoldStatus `json:"status"`
	PassengerID  *uint64    `json:"passenger_id,omitempty"`
	BookingCode  *string    `json:"booking_code,omitempty"`
	ClerkID      *string    `json:"clerk_id,omitempty"`
	Meal         *string    `json:"meal,omitempty"`
	Service      *string    `json:"service,omitempty"`
	Baggage      *string    `json:"baggage,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Live reports whether the hold still occupies its seat.
func (h SeatHold) Live() bool {
	return h.Status == HoldPending || h.Status == HoldConfirmed
}

// Extras carries the optional ancillary choices a customer can attach to a
// pending hold.  Nil fields are left untouched.
type Extras struct {
	Meal    *string `json:"meal"`
	Service *string `json:"service"`
	Baggage *string `json:"baggage"`
}
