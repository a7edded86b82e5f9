package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
)

type stubCatalog struct{ err error }

func (s stubCatalog) GetByID(_ context.Context, id uint64) (model.Aircraft, error) {
	if s.err != nil {
		return model.Aircraft{}, s.err
	}
	if id != 1 {
		return model.Aircraft{}, repository.ErrAircraftNotFound
	}
	return model.Aircraft{ID: 1, Model: "A320", Registration: "G-EUUA"}, nil
}

func (s stubCatalog) ListClasses(_ context.Context, id uint64) ([]model.AircraftClass, error) {
	return []model.AircraftClass{
		{ID: 1, AircraftID: id, TravelClass: "BUSINESS", FirstRow: 1, RowCount: 2, ColumnCount: 4},
		{ID: 2, AircraftID: id, TravelClass: "ECONOMY", FirstRow: 3, RowCount: 1, ColumnCount: 6},
	}, nil
}

func catalogServer(c AircraftCatalog) *echo.Echo {
	log, _ := test.NewNullLogger()
	e := echo.New()
	e.GET("/aircraft/:id/layout", NewCatalogHandler(c, log).Layout)
	return e
}

func TestLayout(t *testing.T) {
	e := catalogServer(stubCatalog{})
	rec := do(e, http.MethodGet, "/aircraft/1/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Aircraft model.Aircraft `json:"aircraft"`
		Cabins   []cabinLayout  `json:"cabins"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A320", body.Aircraft.Model)
	require.Len(t, body.Cabins, 2)

	biz := body.Cabins[0]
	assert.Equal(t, []string{"A", "B", "C", "D"}, biz.Columns)
	require.Len(t, biz.Rows, 2)
	assert.Equal(t, []string{"2A", "2B", "2C", "2D"}, biz.Rows[1].Seats)

	eco := body.Cabins[1]
	require.Len(t, eco.Rows, 1)
	assert.Equal(t, uint32(3), eco.Rows[0].Row)
	assert.Equal(t, "3F", eco.Rows[0].Seats[5])
}

func TestLayoutErrors(t *testing.T) {
	e := catalogServer(stubCatalog{})
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/aircraft/x/layout", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/aircraft/2/layout", "").Code)

	e = catalogServer(stubCatalog{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodGet, "/aircraft/1/layout", "").Code)
}
