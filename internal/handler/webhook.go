package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/ledger"
	"github.com/iliyamo/flight-seat-reservation/internal/payment"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

const maxWebhookBody = 64 << 10

// staleClaim bounds how long an unfinished dispatch blocks redeliveries of
// its event.
const staleClaim = 2 * time.Minute

// EventVerifier is satisfied by *payment.Verifier.
type EventVerifier interface {
	Verify(payload []byte, sigHeader string) (payment.Event, error)
}

// EventLedger is satisfied by *ledger.Store.
type EventLedger interface {
	Claim(r ledger.Record, staleAfter time.Duration) (ledger.Record, bool, error)
	Complete(eventID, outcome string) error
	Release(eventID string) error
}

// PaymentOutcomes is the part of the reservation service driven by the
// payment gateway.
type PaymentOutcomes interface {
	ConfirmHold(ctx context.Context, in service.ConfirmInput) (service.ConfirmResult, error)
	DeclineHold(ctx context.Context, holdID uint64) error
}

// WebhookHandler receives payment gateway events.  Delivery is at least
// once: an event id is claimed in the ledger before dispatch, so only one
// delivery of an event is dispatched and the others are acknowledged.
type WebhookHandler struct {
	verifier EventVerifier
	ledger   EventLedger
	svc      PaymentOutcomes
	log      logrus.FieldLogger
}

func NewWebhookHandler(v EventVerifier, l EventLedger, svc PaymentOutcomes, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{verifier: v, ledger: l, svc: svc, log: log}
}

// Handle serves POST /api/webhook.
//
//	400  bad signature, missing booking_id
//	413  body larger than 64 KiB
//	200  handled, ignored or duplicate
//	409  the same event is being dispatched by another delivery
//	500  internal error; the claim is released so the gateway retries
func (h *WebhookHandler) Handle(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read body"})
	}
	if len(payload) > maxWebhookBody {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "payload too large"})
	}
	ev, err := h.verifier.Verify(payload, c.Request().Header.Get(payment.SignatureHeader))
	if err != nil {
		h.log.WithError(err).Warn("webhook signature verification failed")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}
	entry := h.log.WithFields(logrus.Fields{"event_id": ev.ID, "event_type": ev.Type})

	if ev.Type != payment.EventPaymentSucceeded && ev.Type != payment.EventCheckoutExpired {
		return c.JSON(http.StatusOK, echo.Map{"received": true, "ignored": true})
	}

	booking, err := ev.Booking()
	if err != nil {
		entry.WithError(err).Warn("webhook event without booking id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	entry = entry.WithField("hold_id", booking.BookingID)

	prior, claimed, err := h.ledger.Claim(ledger.Record{EventID: ev.ID, Type: ev.Type}, staleClaim)
	if err != nil {
		entry.WithError(err).Error("webhook ledger claim failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if !claimed {
		if prior.Outcome == ledger.OutcomeProcessing {
			entry.Info("webhook event already in flight")
			return c.JSON(http.StatusConflict, echo.Map{"error": "event is being processed"})
		}
		entry.Info("duplicate webhook event acknowledged")
		return c.JSON(http.StatusOK, echo.Map{"received": true, "duplicate": true})
	}

	ctx := c.Request().Context()
	outcome := "confirmed"
	switch ev.Type {
	case payment.EventPaymentSucceeded:
		_, err = h.svc.ConfirmHold(ctx, service.ConfirmInput{
			HoldID:    booking.BookingID,
			Passport:  booking.Passport,
			IDCard:    booking.IDCard,
			FirstName: booking.FirstName,
			LastName:  booking.LastName,
			Email:     booking.Email,
			Phone:     booking.Phone,
			ClerkID:   booking.ClerkID,
		})
	case payment.EventCheckoutExpired:
		outcome = "declined"
		err = h.svc.DeclineHold(ctx, booking.BookingID)
	}

	ignored := false
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			entry.WithError(err).Error("webhook dispatch failed")
			if rerr := h.ledger.Release(ev.ID); rerr != nil {
				entry.WithError(rerr).Error("webhook ledger release failed")
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		// a redelivery cannot change these outcomes
		entry.WithError(err).Warn("webhook event ignored")
		outcome, ignored = "ignored: "+err.Error(), true
	}

	if err := h.ledger.Complete(ev.ID, outcome); err != nil {
		entry.WithError(err).Error("webhook ledger write failed")
	}
	entry.WithField("outcome", outcome).Info("webhook event processed")

	resp := echo.Map{"received": true}
	if ignored {
		resp["ignored"] = true
	}
	return c.JSON(http.StatusOK, resp)
}

