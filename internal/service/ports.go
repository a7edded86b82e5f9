package service

import (
	"context"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// HoldRepository is the storage the reservation service needs for holds.
// It is satisfied by *repository.SeatHoldRepo.
type HoldRepository interface {
	Insert(ctx context.Context, h *model.SeatHold) error
	GetByID(ctx context.Context, id uint64) (model.SeatHold, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.SeatHold, error)
	MarkConfirmed(ctx context.Context, id, passengerID uint64, code, clerkID string) error
	Cancel(ctx context.Context, id uint64) (bool, error)
	UpdateExtras(ctx context.Context, id uint64, ex model.Extras) (bool, error)
	ReservedSeats(ctx context.Context, flightNumber string) ([]string, error)
	BookingCodeExists(ctx context.Context, code string) (bool, error)
	LockExpired(ctx context.Context, cutoff time.Time) ([]model.SeatHold, error)
}

// PassengerRepository is satisfied by *repository.PassengerRepo.
type PassengerRepository interface {
	FindByDocument(ctx context.Context, doc model.IdentityDocument) (model.Passenger, error)
	FindByDocumentForUpdate(ctx context.Context, doc model.IdentityDocument) (model.Passenger, error)
	InsertIgnore(ctx context.Context, p *model.Passenger) (bool, error)
	GetByID(ctx context.Context, id uint64) (model.Passenger, error)
}

// Transactor runs fn in a single transaction.  Satisfied by
// *repository.TxManager.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
