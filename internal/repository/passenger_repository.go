package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/database"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const passengerColumns = `id, first_name, last_name, passport, id_card, email, phone, created_at`

// PassengerRepo provides access to the passenger directory.  Passengers
// are keyed by passport or id card; both columns carry unique keys so
// concurrent confirmations cannot create two rows for one document.
type PassengerRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewPassengerRepo returns a PassengerRepo bound to the given database.
func NewPassengerRepo(db *sql.DB, dialect database.Dialect) *PassengerRepo {
	return &PassengerRepo{db: db, dialect: dialect}
}

func scanPassenger(row rowScanner) (model.Passenger, error) {
	var (
		p        model.Passenger
		passport sql.NullString
		idCard   sql.NullString
		email    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &passport, &idCard, &email, &p.Phone, &p.CreatedAt); err != nil {
		return model.Passenger{}, err
	}
	p.Passport = strPtr(passport)
	p.IDCard = strPtr(idCard)
	p.Email = email.String
	return p, nil
}

// FindByDocument returns the passenger whose id card OR passport matches
// the non-empty fields of doc.  Blank fields never match.  When both
// fields match different rows the id card match wins.
func (r *PassengerRepo) FindByDocument(ctx context.Context, doc model.IdentityDocument) (model.Passenger, error) {
	return r.findByDocument(ctx, doc, false)
}

// FindByDocumentForUpdate is FindByDocument as a locking read.  Under
// MySQL's REPEATABLE READ a plain SELECT keeps reading the transaction's
// first snapshot; a locking read sees the latest committed row, including
// one inserted by a concurrent transaction that made InsertIgnore skip.
func (r *PassengerRepo) FindByDocumentForUpdate(ctx context.Context, doc model.IdentityDocument) (model.Passenger, error) {
	return r.findByDocument(ctx, doc, true)
}

func (r *PassengerRepo) findByDocument(ctx context.Context, doc model.IdentityDocument, lock bool) (model.Passenger, error) {
	doc = doc.Normalize()
	var (
		conds []string
		args  []any
	)
	if doc.IDCard != "" {
		conds = append(conds, "id_card = ?")
		args = append(args, doc.IDCard)
	}
	if doc.Passport != "" {
		conds = append(conds, "passport = ?")
		args = append(args, doc.Passport)
	}
	if len(conds) == 0 {
		return model.Passenger{}, ErrPassengerNotFound
	}
	order := "id"
	if doc.IDCard != "" {
		order = "CASE WHEN id_card = ? THEN 0 ELSE 1 END, id"
		args = append(args, doc.IDCard)
	}
	q := `SELECT ` + passengerColumns + ` FROM passengers WHERE ` +
		strings.Join(conds, " OR ") + ` ORDER BY ` + order + ` LIMIT 1`
	if lock {
		q += ` FOR UPDATE`
	}
	p, err := scanPassenger(conn(ctx, r.db).QueryRowContext(ctx, r.dialect.Rebind(q), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Passenger{}, ErrPassengerNotFound
	}
	return p, err
}

// InsertIgnore inserts p unless it would violate one of the unique keys,
// in which case nothing is written.  A blank email is stored as NULL.
// It reports whether a row was created.
// Callers re-read with FindByDocumentForUpdate afterwards to obtain the
// winning row.
func (r *PassengerRepo) InsertIgnore(ctx context.Context, p *model.Passenger) (bool, error) {
	var passport, idCard string
	if p.Passport != nil {
		passport = strings.ToUpper(strings.TrimSpace(*p.Passport))
	}
	if p.IDCard != nil {
		idCard = strings.ToUpper(strings.TrimSpace(*p.IDCard))
	}
	q := r.dialect.InsertIgnore(`INSERT INTO passengers (first_name, last_name, passport, id_card, email, phone, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`)
	res, err := conn(ctx, r.db).ExecContext(ctx, r.dialect.Rebind(q),
		strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName),
		nullString(passport), nullString(idCard),
		nullString(strings.ToLower(strings.TrimSpace(p.Email))), strings.TrimSpace(p.Phone),
		time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID fetches a passenger by id.
func (r *PassengerRepo) GetByID(ctx context.Context, id uint64) (model.Passenger, error) {
	q := `SELECT ` + passengerColumns + ` FROM passengers WHERE id = ?`
	p, err := scanPassenger(conn(ctx, r.db).QueryRowContext(ctx, r.dialect.Rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Passenger{}, ErrPassengerNotFound
	}
	return p, err
}
