// Package service implements the seat reservation lifecycle: holding a
// seat, confirming it once payment succeeds and releasing it when payment
// is declined or the hold expires.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
)

const publishTimeout = 5 * time.Second

// ReservationService owns the state machine of seat holds.  All
// dependencies are passed in explicitly; there is no package level state.
type ReservationService struct {
	holds      HoldRepository
	passengers PassengerRepository
	tx         Transactor
	events     queue.Publisher
	log        logrus.FieldLogger
	now        func() time.Time
	newCode    func() (string, error)
}

// Option customises a ReservationService.
type Option func(*ReservationService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ReservationService) { s.now = now }
}

// WithCodeGenerator overrides NewBookingCode.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *ReservationService) { s.newCode = gen }
}

// NewReservationService wires the service.  A nil publisher disables
// events.
func NewReservationService(holds HoldRepository, passengers PassengerRepository, tx Transactor,
	events queue.Publisher, log logrus.FieldLogger, opts ...Option) *ReservationService {
	if events == nil {
		events = queue.Nop{}
	}
	s := &ReservationService{
		holds:      holds,
		passengers: passengers,
		tx:         tx,
		events:     events,
		log:        log,
		now:        time.Now,
		newCode:    NewBookingCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateHold places a PENDING hold on a seat and returns its id.  The seat
// and class are upper-cased.  A live hold on the same seat yields
// ErrSeatAlreadyHeld.
func (s *ReservationService) CreateHold(ctx context.Context, flightNumber, seatID, travelClass string) (uint64, error) {
	h := model.SeatHold{
		FlightNumber: strings.TrimSpace(flightNumber),
		SeatID:       strings.ToUpper(strings.TrimSpace(seatID)),
		TravelClass:  strings.ToUpper(strings.TrimSpace(travelClass)),
	}
	if h.FlightNumber == "" || h.SeatID == "" || h.TravelClass == "" ||
		len(h.FlightNumber) > 32 || len(h.SeatID) > 8 || len(h.TravelClass) > 32 {
		return 0, ErrInvalidSeatRequest
	}
	if err := s.holds.Insert(ctx, &h); err != nil {
		if errors.Is(err, repository.ErrSeatAlreadyHeld) {
			return 0, ErrSeatAlreadyHeld
		}
		return 0, fmt.Errorf("insert hold: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"hold_id": h.ID,
		"flight":  h.FlightNumber,
		"seat":    h.SeatID,
		"class":   h.TravelClass,
	}).Info("seat held")
	return h.ID, nil
}

// ConfirmInput is the payload of a successful payment.
type ConfirmInput struct {
	HoldID    uint64
	Passport  string
	IDCard    string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	ClerkID   string
}

// ConfirmResult is returned by ConfirmHold.
type ConfirmResult struct {
	BookingID   uint64 `json:"booking_id"`
	BookingCode string `json:"booking_code"`
	PassengerID uint64 `json:"passenger_id"`
}

// ConfirmHold resolves or creates the passenger and marks the hold
// CONFIRMED with a fresh booking code, all in one transaction.  Confirming
// an already CONFIRMED hold is accepted and issues a new code.  Without an
// identity document the hold is left untouched.
func (s *ReservationService) ConfirmHold(ctx context.Context, in ConfirmInput) (ConfirmResult, error) {
	if in.HoldID == 0 {
		return ConfirmResult{}, ErrMissingHoldID
	}
	doc := model.IdentityDocument{Passport: in.Passport, IDCard: in.IDCard}.Normalize()
	if doc.Empty() {
		return ConfirmResult{}, ErrMissingIdentityDocument
	}

	var (
		res  ConfirmResult
		hold model.SeatHold
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		hold, err = s.holds.GetByIDForUpdate(ctx, in.HoldID)
		if err != nil {
			return err
		}
		if !model.CanTransition(hold.Status, model.HoldConfirmed) {
			return ErrHoldNotPending
		}

		p, err := s.resolvePassenger(ctx, doc, in)
		if err != nil {
			return err
		}
		code, err := s.allocateBookingCode(ctx)
		if err != nil {
			return err
		}
		if err := s.holds.MarkConfirmed(ctx, hold.ID, p.ID, code, strings.TrimSpace(in.ClerkID)); err != nil {
			return fmt.Errorf("mark confirmed: %w", err)
		}
		res = ConfirmResult{BookingID: hold.ID, BookingCode: code, PassengerID: p.ID}
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"hold_id":      res.BookingID,
		"passenger_id": res.PassengerID,
		"booking_code": res.BookingCode,
	})
	if hold.Status == model.HoldConfirmed {
		entry.Warn("confirmed hold re-confirmed; new booking code issued")
	} else {
		entry.Info("hold confirmed")
	}

	s.publish(ctx, queue.TopicBookingConfirmed, res.BookingID, queue.BookingConfirmedEvent{
		BookingID:    res.BookingID,
		BookingCode:  res.BookingCode,
		PassengerID:  res.PassengerID,
		FlightNumber: hold.FlightNumber,
		SeatID:       hold.SeatID,
		TravelClass:  hold.TravelClass,
		ClerkID:      strings.TrimSpace(in.ClerkID),
		ConfirmedAt:  s.now().UTC().Format(time.RFC3339),
	})
	return res, nil
}

// resolvePassenger finds the passenger holding doc or creates one.  Two
// confirmations racing for the same document both end up with the row
// that won the insert.
func (s *ReservationService) resolvePassenger(ctx context.Context, doc model.IdentityDocument, in ConfirmInput) (model.Passenger, error) {
	p, err := s.passengers.FindByDocument(ctx, doc)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrPassengerNotFound) {
		return model.Passenger{}, fmt.Errorf("find passenger: %w", err)
	}

	np := model.Passenger{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
	}
	if doc.Passport != "" {
		np.Passport = &doc.Passport
	}
	if doc.IDCard != "" {
		np.IDCard = &doc.IDCard
	}
	if _, err := s.passengers.InsertIgnore(ctx, &np); err != nil {
		return model.Passenger{}, fmt.Errorf("insert passenger: %w", err)
	}
	// locking read: a row committed by a concurrent confirmation after
	// the first lookup must be visible here
	p, err = s.passengers.FindByDocumentForUpdate(ctx, doc)
	if errors.Is(err, repository.ErrPassengerNotFound) {
		// the insert was ignored but no row holds doc: the email belongs
		// to a passenger with a different document.
		return model.Passenger{}, ErrPassengerConflict
	}
	if err != nil {
		return model.Passenger{}, fmt.Errorf("find passenger: %w", err)
	}
	return p, nil
}

func (s *ReservationService) allocateBookingCode(ctx context.Context) (string, error) {
	for i := 0; i < bookingCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("generate booking code: %w", err)
		}
		taken, err := s.holds.BookingCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check booking code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrBookingCodeExhausted
}

// DeclineHold releases a PENDING hold.  Declining an already CANCELLED
// hold succeeds without effect; a CONFIRMED hold cannot be declined.
func (s *ReservationService) DeclineHold(ctx context.Context, holdID uint64) error {
	if holdID == 0 {
		return ErrMissingHoldID
	}
	var (
		hold     model.SeatHold
		released bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		hold, err = s.holds.GetByIDForUpdate(ctx, holdID)
		if err != nil {
			return err
		}
		switch hold.Status {
		case model.HoldCancelled:
			return nil
		case model.HoldConfirmed:
			return ErrHoldNotPending
		}
		released, err = s.holds.Cancel(ctx, holdID)
		if err != nil {
			return fmt.Errorf("cancel hold: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !released {
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"hold_id": hold.ID,
		"flight":  hold.FlightNumber,
		"seat":    hold.SeatID,
	}).Info("hold released")
	s.publish(ctx, queue.TopicBookingReleased, hold.ID, queue.HoldReleasedEvent{
		BookingID:    hold.ID,
		FlightNumber: hold.FlightNumber,
		SeatID:       hold.SeatID,
		TravelClass:  hold.TravelClass,
		Reason:       "declined",
		ReleasedAt:   s.now().UTC().Format(time.RFC3339),
	})
	return nil
}

// ListReservedSeats returns the seats of a flight held by PENDING or
// CONFIRMED holds.  Unknown flights yield an empty list.
func (s *ReservationService) ListReservedSeats(ctx context.Context, flightNumber string) ([]string, error) {
	flightNumber = strings.TrimSpace(flightNumber)
	if flightNumber == "" {
		return []string{}, nil
	}
	seats, err := s.holds.ReservedSeats(ctx, flightNumber)
	if err != nil {
		return nil, fmt.Errorf("reserved seats: %w", err)
	}
	return seats, nil
}

// SetExtras records ancillary choices on a PENDING hold.
func (s *ReservationService) SetExtras(ctx context.Context, holdID uint64, ex model.Extras) error {
	if holdID == 0 {
		return ErrMissingHoldID
	}
	ex = trimExtras(ex)
	if ex.Meal == nil && ex.Service == nil && ex.Baggage == nil {
		return ErrNoExtras
	}
	ok, err := s.holds.UpdateExtras(ctx, holdID, ex)
	if err != nil {
		return fmt.Errorf("update extras: %w", err)
	}
	if ok {
		return nil
	}
	if _, err := s.holds.GetByID(ctx, holdID); err != nil {
		return err
	}
	return ErrHoldNotPending
}

func trimExtras(ex model.Extras) model.Extras {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if v == "" {
			return nil
		}
		return &v
	}
	return model.Extras{Meal: trim(ex.Meal), Service: trim(ex.Service), Baggage: trim(ex.Baggage)}
}

// GetHold returns a hold by id.
func (s *ReservationService) GetHold(ctx context.Context, holdID uint64) (model.SeatHold, error) {
	if holdID == 0 {
		return model.SeatHold{}, ErrMissingHoldID
	}
	return s.holds.GetByID(ctx, holdID)
}

// ReapExpired cancels PENDING holds older than ttl, publishes a
// booking.released event for each and returns how many were released.  A
// non-positive ttl disables reaping.
func (s *ReservationService) ReapExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-ttl)
	var released []model.SeatHold
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		expired, err := s.holds.LockExpired(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("lock expired holds: %w", err)
		}
		for _, h := range expired {
			ok, err := s.holds.Cancel(ctx, h.ID)
			if err != nil {
				return fmt.Errorf("cancel hold %d: %w", h.ID, err)
			}
			if ok {
				released = append(released, h)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(released) == 0 {
		return 0, nil
	}

	s.log.WithFields(logrus.Fields{"released": len(released), "cutoff": cutoff.UTC()}).Info("expired holds released")
	at := s.now().UTC().Format(time.RFC3339)
	for _, h := range released {
		s.publish(ctx, queue.TopicBookingReleased, h.ID, queue.HoldReleasedEvent{
			BookingID:    h.ID,
			FlightNumber: h.FlightNumber,
			SeatID:       h.SeatID,
			TravelClass:  h.TravelClass,
			Reason:       "expired",
			ReleasedAt:   at,
		})
	}
	return int64(len(released)), nil
}

// publish sends an event after the transaction committed.  Failures are
// logged and never reach the caller.
func (s *ReservationService) publish(ctx context.Context, topic string, holdID uint64, payload any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, topic, strconv.FormatUint(holdID, 10), payload); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"topic": topic, "hold_id": holdID}).Warn("publish event failed")
	}
}
