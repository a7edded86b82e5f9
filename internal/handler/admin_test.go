package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

type stubAdmin struct{ gotTTL time.Duration }

func (s *stubAdmin) GetHold(_ context.Context, id uint64) (model.SeatHold, error) {
	if id != 42 {
		return model.SeatHold{}, service.ErrHoldNotFound
	}
	return model.SeatHold{ID: 42, FlightNumber: "BA123", SeatID: "14C", TravelClass: "ECONOMY", Status: model.HoldPending}, nil
}

func (s *stubAdmin) ReapExpired(_ context.Context, ttl time.Duration) (int64, error) {
	s.gotTTL = ttl
	return 3, nil
}

func adminServer(svc HoldAdmin, ttl time.Duration) *echo.Echo {
	log, _ := test.NewNullLogger()
	h := NewAdminHandler(svc, ttl, log)
	e := echo.New()
	e.GET("/v1/admin/holds/:id", h.GetHold)
	e.POST("/v1/admin/holds/reap", h.Reap)
	return e
}

func TestAdminGetHold(t *testing.T) {
	e := adminServer(&stubAdmin{}, 0)
	rec := do(e, http.MethodGet, "/v1/admin/holds/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"booking_id":42`)
	assert.Contains(t, rec.Body.String(), `"status":"PENDING"`)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/admin/holds/41", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/admin/holds/0", "").Code)
}

func TestAdminReap(t *testing.T) {
	svc := &stubAdmin{}
	e := adminServer(svc, 0)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/admin/holds/reap", "").Code)

	rec := do(e, http.MethodPost, "/v1/admin/holds/reap?older_than=30m", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"released":3}`, rec.Body.String())
	assert.Equal(t, 30*time.Minute, svc.gotTTL)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/admin/holds/reap?older_than=soon", "").Code)

	e = adminServer(svc, time.Hour)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/admin/holds/reap", "").Code)
	assert.Equal(t, time.Hour, svc.gotTTL)
}
