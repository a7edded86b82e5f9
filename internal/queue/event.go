// Package queue defines the booking events exchanged over the message
// broker together with the publishers and the log consumer.
package queue

// Queue (RabbitMQ) and topic (Kafka) names.
const (
	TopicBookingConfirmed = "booking.confirmed"
	TopicBookingReleased  = "booking.released"
)

// BookingConfirmedEvent is published after a hold is confirmed.  It carries
// enough for downstream consumers to log, notify or issue a ticket without
// querying the reservation database.
type BookingConfirmedEvent struct {
	BookingID    uint64 `json:"booking_id"`
	BookingCode  string `json:"booking_code"`
	PassengerID  uint64 `json:"passenger_id"`
	FlightNumber string `json:"flight_number"`
	SeatID       string `json:"seat_id"`
	TravelClass  string `json:"travel_class"`
	ClerkID      string `json:"clerk_id,omitempty"`
	ConfirmedAt  string `json:"confirmed_at"`
}

// HoldReleasedEvent is published when a pending hold is cancelled, either
// by a declined payment or by the expiry reaper.
type HoldReleasedEvent struct {
	BookingID    uint64 `json:"booking_id"`
	FlightNumber string `json:"flight_number"`
	SeatID       string `json:"seat_id"`
	TravelClass  string `json:"travel_class"`
	Reason       string `json:"reason"`
	ReleasedAt   string `json:"released_at"`
}
