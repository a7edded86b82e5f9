// Package handler contains the echo HTTP handlers of the reservation API.
package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

// holdID decodes a booking id sent either as a JSON number or a string.
type holdID uint64

func (h *holdID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*h = 0
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return errors.New("booking_id must be a positive integer")
	}
	*h = holdID(n)
	return nil
}

// statusFor maps service errors to HTTP status codes.  Unknown errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidSeatRequest),
		errors.Is(err, service.ErrMissingHoldID),
		errors.Is(err, service.ErrMissingIdentityDocument),
		errors.Is(err, service.ErrNoExtras):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrHoldNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSeatAlreadyHeld),
		errors.Is(err, service.ErrHoldNotPending),
		errors.Is(err, service.ErrPassengerConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Internal errors are logged and their
// message is not exposed.
func fail(c echo.Context, log logrus.FieldLogger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// columnLabel converts a zero-based column index to a seat letter: A..Z,
// then AA, AB and so on.
func columnLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []byte
	for {
		res = append([]byte{byte('A' + i%26)}, res...)
		i = i/26 - 1
		if i < 0 {
			return string(res)
		}
	}
}
