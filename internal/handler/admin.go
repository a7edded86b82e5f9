package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// HoldAdmin is the operator view of the reservation service.
type HoldAdmin interface {
	GetHold(ctx context.Context, holdID uint64) (model.SeatHold, error)
	ReapExpired(ctx context.Context, ttl time.Duration) (int64, error)
}

// AdminHandler serves /v1/admin.  Routes are expected behind JWTAuth and
// RequireRole(ADMIN).
type AdminHandler struct {
	svc     HoldAdmin
	holdTTL time.Duration
	log     logrus.FieldLogger
}

func NewAdminHandler(svc HoldAdmin, holdTTL time.Duration, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{svc: svc, holdTTL: holdTTL, log: log}
}

// GetHold handles GET /v1/admin/holds/:id.
func (h *AdminHandler) GetHold(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
	}
	hold, err := h.svc.GetHold(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, hold)
}

// Reap handles POST /v1/admin/holds/reap.  The TTL defaults to HOLD_TTL
// and can be overridden with ?older_than=30m.
func (h *AdminHandler) Reap(c echo.Context) error {
	ttl := h.holdTTL
	if v := c.QueryParam("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid older_than"})
		}
		ttl = d
	}
	if ttl <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold expiry is disabled; pass older_than"})
	}
	n, err := h.svc.ReapExpired(c.Request().Context(), ttl)
	if err != nil {
		return fail(c, h.log, err)
	}
	h.log.WithFields(logrus.Fields{"admin": middleware.Subject(c), "released": n, "older_than": ttl.String()}).
		Info("manual reap")
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}
