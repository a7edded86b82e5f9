package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/database"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const holdColumns = `id, flight_number, seat_id, travel_class, status, passenger_id,
	booking_code, clerk_id, meal, service, baggage, created_at, updated_at`

// SeatHoldRepo provides data access to the seat_holds table.  All
// timestamps are written in UTC.  Methods join the transaction carried by
// the context when there is one (see TxManager).
type SeatHoldRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB, dialect database.Dialect) *SeatHoldRepo {
	return &SeatHoldRepo{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHold(row rowScanner) (model.SeatHold, error) {
	var (
		h           model.SeatHold
		status      string
		passengerID sql.NullInt64
		code        sql.NullString
		clerk       sql.NullString
		meal        sql.NullString
		service     sql.NullString
		baggage     sql.NullString
	)
	err := row.Scan(&h.ID, &h.FlightNumber, &h.SeatID, &h.TravelClass, &status, &passengerID,
		&code, &clerk, &meal, &service, &baggage, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return model.SeatHold{}, err
	}
	h.Status = model.HoldStatus(status)
	if passengerID.Valid {
		pid := uint64(passengerID.Int64)
		h.PassengerID = &pid
	}
	h.BookingCode = strPtr(code)
	h.ClerkID = strPtr(clerk)
	h.Meal = strPtr(meal)
	h.Service = strPtr(service)
	h.Baggage = strPtr(baggage)
	return h, nil
}

// Insert creates a PENDING hold in a single conditional insert.  There is
// no prior existence check: the unique key on (flight_number, seat_id,
// travel_class, active) decides, and a violation is reported as
// ErrSeatAlreadyHeld.  On success h.ID, h.Status and the timestamps are
// populated.
func (r *SeatHoldRepo) Insert(ctx context.Context, h *model.SeatHold) error {
	now := time.Now().UTC()
	const q = `INSERT INTO seat_holds (flight_number, seat_id, travel_class, status, active, created_at, updated_at)
	           VALUES (?, ?, ?, ?, TRUE, ?, ?)`
	id, err := r.dialect.InsertReturningID(ctx, conn(ctx, r.db), q,
		h.FlightNumber, h.SeatID, h.TravelClass, string(model.HoldPending), now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSeatAlreadyHeld
		}
		return err
	}
	h.ID = id
	h.Status = model.HoldPending
	h.CreatedAt = now
	h.UpdatedAt = now
	return nil
}

// GetByID loads a hold.  ErrHoldNotFound is returned when it does not exist.
func (r *SeatHoldRepo) GetByID(ctx context.Context, id uint64) (model.SeatHold, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate loads a hold and locks its row until the surrounding
// transaction ends.  Must be called inside TxManager.WithTx.
func (r *SeatHoldRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.SeatHold, error) {
	return r.get(ctx, id, true)
}

func (r *SeatHoldRepo) get(ctx context.Context, id uint64, lock bool) (model.SeatHold, error) {
	q := `SELECT ` + holdColumns + ` FROM seat_holds WHERE id = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	h, err := scanHold(conn(ctx, r.db).QueryRowContext(ctx, r.dialect.Rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SeatHold{}, ErrHoldNotFound
	}
	return h, err
}

// MarkConfirmed sets a hold to CONFIRMED and attaches the passenger,
// booking code and clerk id.  A booking code already used by another hold
// yields ErrBookingCodeTaken.
func (r *SeatHoldRepo) MarkConfirmed(ctx context.Context, id, passengerID uint64, code, clerkID string) error {
	const q = `UPDATE seat_holds
	           SET status = ?, passenger_id = ?, booking_code = ?, clerk_id = ?, updated_at = ?
	           WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, r.dialect.Rebind(q),
		string(model.HoldConfirmed), passengerID, code, nullString(clerkID), time.Now().UTC(), id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrBookingCodeTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrHoldNotFound
	}
	return nil
}

// Cancel moves a PENDING hold to CANCELLED and clears its active flag so
// the seat can be held again.  The row itself is kept.  It reports whether
// a row was changed; holds in any other state are left untouched.
func (r *SeatHoldRepo) Cancel(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE seat_holds SET status = ?, active = NULL, updated_at = ?
	           WHERE id = ? AND status = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, r.dialect.Rebind(q),
		string(model.HoldCancelled), time.Now().UTC(), id, string(model.HoldPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateExtras stores ancillary choices on a PENDING hold.  Nil values keep
// the current column value.  It reports whether a row was changed.
func (r *SeatHoldRepo) UpdateExtras(ctx context.Context, id uint64, ex model.Extras) (bool, error) {
	const q = `UPDATE seat_holds
	           SET meal = COALESCE(?, meal), service = COALESCE(?, service),
	               baggage = COALESCE(?, baggage), updated_at = ?
	           WHERE id = ? AND status = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, r.dialect.Rebind(q),
		ex.Meal, ex.Service, ex.Baggage, time.Now().UTC(), id, string(model.HoldPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReservedSeats returns the distinct seat labels of live holds (PENDING or
// CONFIRMED) on a flight, sorted.  An unknown flight yields an empty slice.
func (r *SeatHoldRepo) ReservedSeats(ctx context.Context, flightNumber string) ([]string, error) {
	const q = `SELECT DISTINCT seat_id FROM seat_holds
	           WHERE flight_number = ? AND active IS NOT NULL
	           ORDER BY seat_id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, r.dialect.Rebind(q), flightNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// BookingCodeExists reports whether any hold already carries code.
func (r *SeatHoldRepo) BookingCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT COUNT(*) FROM seat_holds WHERE booking_code = ?`), code).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LockExpired returns the PENDING holds created before cutoff and locks
// their rows until the surrounding transaction ends.  Must be called
// inside TxManager.WithTx.
func (r *SeatHoldRepo) LockExpired(ctx context.Context, cutoff time.Time) ([]model.SeatHold, error) {
	q := `SELECT ` + holdColumns + ` FROM seat_holds
	      WHERE status = ? AND created_at < ? ORDER BY id FOR UPDATE`
	rows, err := conn(ctx, r.db).QueryContext(ctx, r.dialect.Rebind(q), string(model.HoldPending), cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
