package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flight-seat-reservation/internal/database"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// AircraftRepo reads the aircraft catalog.  The catalog is maintained by
// another service; this repository never writes to it.
type AircraftRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewAircraftRepo constructs an AircraftRepo with the given DB handle.
func NewAircraftRepo(db *sql.DB, dialect database.Dialect) *AircraftRepo {
	return &AircraftRepo{db: db, dialect: dialect}
}

// GetByID returns the aircraft or ErrAircraftNotFound.
func (r *AircraftRepo) GetByID(ctx context.Context, id uint64) (model.Aircraft, error) {
	var a model.Aircraft
	err := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT id, model, registration FROM aircraft WHERE id = ?`), id).
		Scan(&a.ID, &a.Model, &a.Registration)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Aircraft{}, ErrAircraftNotFound
	}
	return a, err
}

// ListClasses returns the cabins of an aircraft ordered front to back.
func (r *AircraftRepo) ListClasses(ctx context.Context, aircraftID uint64) ([]model.AircraftClass, error) {
	const q = `SELECT id, aircraft_id, travel_class, first_row, row_count, column_count
	           FROM aircraft_classes WHERE aircraft_id = ? ORDER BY first_row, id`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), aircraftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AircraftClass
	for rows.Next() {
		var c model.AircraftClass
		if err := rows.Scan(&c.ID, &c.AircraftID, &c.TravelClass, &c.FirstRow, &c.RowCount, &c.ColumnCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
