package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

// BookingService is the part of the reservation service used over HTTP.
// *service.ReservationService satisfies it.
type BookingService interface {
	CreateHold(ctx context.Context, flightNumber, seatID, travelClass string) (uint64, error)
	ConfirmHold(ctx context.Context, in service.ConfirmInput) (service.ConfirmResult, error)
	DeclineHold(ctx context.Context, holdID uint64) error
	ListReservedSeats(ctx context.Context, flightNumber string) ([]string, error)
	SetExtras(ctx context.Context, holdID uint64, ex model.Extras) error
}

// BookingHandler serves the public /booking routes called by the seat map
// and the checkout flow.
type BookingHandler struct {
	svc BookingService
	log logrus.FieldLogger
}

// NewBookingHandler panics when svc is nil.
func NewBookingHandler(svc BookingService, log logrus.FieldLogger) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc, log: log}
}

// CheckSeat handles GET /booking/check/:seatId/:flight/:seatClass.  It
// places a PENDING hold and returns 201 with the booking id, or 409 when
// the seat is already held.
func (h *BookingHandler) CheckSeat(c echo.Context) error {
	id, err := h.svc.CreateHold(c.Request().Context(), c.Param("flight"), c.Param("seatId"), c.Param("seatClass"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking_id": id})
}

type reservedSeat struct {
	SeatID string `json:"seat_id"`
}

// ReservedSeats handles GET /booking/reserved-seats/:flightId.
func (h *BookingHandler) ReservedSeats(c echo.Context) error {
	seats, err := h.svc.ListReservedSeats(c.Request().Context(), c.Param("flightId"))
	if err != nil {
		return fail(c, h.log, err)
	}
	out := make([]reservedSeat, 0, len(seats))
	for _, s := range seats {
		out = append(out, reservedSeat{SeatID: s})
	}
	return c.JSON(http.StatusOK, out)
}

type successRequest struct {
	BookingID holdID `json:"booking_id"`
	IDCard    string `json:"id_card"`
	Passport  string `json:"passport"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	ClerkID   string `json:"clerkId"`
}

// Success handles POST /booking/success: the payment went through, so
// the hold is confirmed and a booking code issued.
func (h *BookingHandler) Success(c echo.Context) error {
	var body successRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.svc.ConfirmHold(c.Request().Context(), service.ConfirmInput{
		HoldID:    uint64(body.BookingID),
		Passport:  body.Passport,
		IDCard:    body.IDCard,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		Phone:     body.Phone,
		ClerkID:   body.ClerkID,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "booking confirmed",
		"booking_code": res.BookingCode,
		"passenger_id": res.PassengerID,
		"booking_id":   res.BookingID,
	})
}

type declineRequest struct {
	BookingID holdID `json:"booking_id"`
}

// Decline handles POST /booking/decline and releases the held seat.
func (h *BookingHandler) Decline(c echo.Context) error {
	var body declineRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.svc.DeclineHold(c.Request().Context(), uint64(body.BookingID)); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking declined"})
}

type extrasRequest struct {
	BookingID holdID `json:"booking_id"`
	model.Extras
}

// Extras handles POST /booking/extras and stores meal, service and baggage
// choices on a pending hold.
func (h *BookingHandler) Extras(c echo.Context) error {
	var body extrasRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.svc.SetExtras(c.Request().Context(), uint64(body.BookingID), body.Extras); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "extras saved"})
}
