// Package payment verifies payment gateway webhooks and extracts the
// booking metadata attached at checkout.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

// Event types the reservation service reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventCheckoutExpired  = "checkout.session.expired"
)

// SignatureHeader carries the gateway's HMAC signature.
const SignatureHeader = "Stripe-Signature"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidBookingID = errors.New("metadata booking_id is missing or invalid")
)

// Event is a verified webhook event.
type Event struct {
	ID       string
	Type     string
	Metadata map[string]string
}

// Booking is the checkout metadata needed to confirm or release a hold.
type Booking struct {
	BookingID uint64
	IDCard    string
	Passport  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	ClerkID   string
}

// Booking parses the event metadata.  ErrInvalidBookingID is returned when
// booking_id is absent, not a number or zero.
func (e Event) Booking() (Booking, error) {
	m := e.Metadata
	id, err := strconv.ParseUint(strings.TrimSpace(m["booking_id"]), 10, 64)
	if err != nil || id == 0 {
		return Booking{}, ErrInvalidBookingID
	}
	return Booking{
		BookingID: id,
		IDCard:    m["id_card"],
		Passport:  m["passport"],
		FirstName: m["first_name"],
		LastName:  m["last_name"],
		Email:     m["email"],
		Phone:     m["phone"],
		ClerkID:   m["clerkId"],
	}, nil
}

// Verifier checks webhook signatures against the endpoint secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier returns a Verifier using the gateway default tolerance of
// five minutes.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Verify authenticates payload and decodes the event.  Nothing in the
// payload is trusted before this returns nil.
func (v *Verifier) Verify(payload []byte, sigHeader string) (Event, error) {
	if v.secret == "" || sigHeader == "" {
		return Event{}, ErrInvalidSignature
	}
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil && len(ev.Data.Raw) > 0 {
		var obj struct {
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(ev.Data.Raw, &obj); err == nil {
			out.Metadata = obj.Metadata
		}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out, nil
}
