package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
)

// AircraftCatalog is satisfied by *repository.AircraftRepo.
type AircraftCatalog interface {
	GetByID(ctx context.Context, id uint64) (model.Aircraft, error)
	ListClasses(ctx context.Context, aircraftID uint64) ([]model.AircraftClass, error)
}

// CatalogHandler serves the read-only aircraft seat maps.
type CatalogHandler struct {
	catalog AircraftCatalog
	log     logrus.FieldLogger
}

func NewCatalogHandler(catalog AircraftCatalog, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

type cabinRow struct {
	Row   uint32   `json:"row"`
	Seats []string `json:"seats"`
}

type cabinLayout struct {
	TravelClass string     `json:"travel_class"`
	Columns     []string   `json:"columns"`
	Rows        []cabinRow `json:"rows"`
}

// buildCabin expands a class into its rows; seat ids are the row number
// followed by the column letter, e.g. 14C.
func buildCabin(cls model.AircraftClass) cabinLayout {
	cols := make([]string, cls.ColumnCount)
	for i := range cols {
		cols[i] = columnLabel(i)
	}
	first := cls.FirstRow
	if first == 0 {
		first = 1
	}
	rows := make([]cabinRow, 0, cls.RowCount)
	for r := first; r < first+cls.RowCount; r++ {
		seats := make([]string, len(cols))
		for i, col := range cols {
			seats[i] = strconv.FormatUint(uint64(r), 10) + col
		}
		rows = append(rows, cabinRow{Row: r, Seats: seats})
	}
	return cabinLayout{TravelClass: cls.TravelClass, Columns: cols, Rows: rows}
}

// Layout handles GET /aircraft/:id/layout.
func (h *CatalogHandler) Layout(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid aircraft id"})
	}
	ctx := c.Request().Context()
	ac, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAircraftNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "aircraft not found"})
		}
		return fail(c, h.log, err)
	}
	classes, err := h.catalog.ListClasses(ctx, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	cabins := make([]cabinLayout, 0, len(classes))
	for _, cls := range classes {
		cabins = append(cabins, buildCabin(cls))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"aircraft": ac,
		"cabins":   cabins,
	})
}
