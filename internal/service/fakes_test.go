package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
)

// memStore mimics the SQL schema: one live hold per seat, unique booking
// codes and unique passenger documents and email.
type memStore struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	nextHold   uint64
	nextPax    uint64
	holds      map[uint64]*model.SeatHold
	passengers map[uint64]*model.Passenger
}

func newMemStore() *memStore {
	return &memStore{holds: map[uint64]*model.SeatHold{}, passengers: map[uint64]*model.Passenger{}}
}

// WithTx serialises transactions, standing in for the row lock taken by
// GetByIDForUpdate.
func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx)
}

type memHolds struct{ *memStore }

func (m memHolds) Insert(_ context.Context, h *model.SeatHold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.holds {
		if x.Live() && x.FlightNumber == h.FlightNumber && x.SeatID == h.SeatID && x.TravelClass == h.TravelClass {
			return repository.ErrSeatAlreadyHeld
		}
	}
	m.nextHold++
	now := time.Now().UTC()
	c := *h
	c.ID, c.Status, c.CreatedAt, c.UpdatedAt = m.nextHold, model.HoldPending, now, now
	m.holds[c.ID] = &c
	*h = c
	return nil
}

func (m memHolds) GetByID(_ context.Context, id uint64) (model.SeatHold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return model.SeatHold{}, repository.ErrHoldNotFound
	}
	return *h, nil
}

func (m memHolds) GetByIDForUpdate(ctx context.Context, id uint64) (model.SeatHold, error) {
	return m.GetByID(ctx, id)
}

func (m memHolds) MarkConfirmed(_ context.Context, id, passengerID uint64, code, clerkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return repository.ErrHoldNotFound
	}
	for _, x := range m.holds {
		if x.ID != id && x.BookingCode != nil && *x.BookingCode == code {
			return repository.ErrBookingCodeTaken
		}
	}
	h.Status = model.HoldConfirmed
	h.PassengerID = &passengerID
	h.BookingCode = &code
	if clerkID != "" {
		h.ClerkID = &clerkID
	}
	return nil
}

func (m memHolds) Cancel(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok || h.Status != model.HoldPending {
		return false, nil
	}
	h.Status = model.HoldCancelled
	return true, nil
}

func (m memHolds) UpdateExtras(_ context.Context, id uint64, ex model.Extras) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok || h.Status != model.HoldPending {
		return false, nil
	}
	if ex.Meal != nil {
		h.Meal = ex.Meal
	}
	if ex.Service != nil {
		h.Service = ex.Service
	}
	if ex.Baggage != nil {
		h.Baggage = ex.Baggage
	}
	return true, nil
}

func (m memHolds) ReservedSeats(_ context.Context, flight string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, h := range m.holds {
		if h.Live() && h.FlightNumber == flight && !seen[h.SeatID] {
			seen[h.SeatID] = true
			out = append(out, h.SeatID)
		}
	}
	return out, nil
}

func (m memHolds) BookingCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.holds {
		if h.BookingCode != nil && *h.BookingCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m memHolds) LockExpired(_ context.Context, cutoff time.Time) ([]model.SeatHold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SeatHold
	for _, h := range m.holds {
		if h.Status == model.HoldPending && h.CreatedAt.Before(cutoff) {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memPassengers struct{ *memStore }

func eq(p *string, v string) bool { return p != nil && v != "" && *p == v }

func (m memPassengers) FindByDocument(_ context.Context, doc model.IdentityDocument) (model.Passenger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc = doc.Normalize()
	for _, p := range m.passengers {
		if eq(p.IDCard, doc.IDCard) || eq(p.Passport, doc.Passport) {
			return *p, nil
		}
	}
	return model.Passenger{}, repository.ErrPassengerNotFound
}

func (m memPassengers) FindByDocumentForUpdate(ctx context.Context, doc model.IdentityDocument) (model.Passenger, error) {
	return m.FindByDocument(ctx, doc)
}

func (m memPassengers) InsertIgnore(_ context.Context, p *model.Passenger) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.passengers {
		if (p.Passport != nil && eq(x.Passport, *p.Passport)) ||
			(p.IDCard != nil && eq(x.IDCard, *p.IDCard)) ||
			(p.Email != "" && x.Email == p.Email) {
			return false, nil
		}
	}
	m.nextPax++
	c := *p
	c.ID = m.nextPax
	m.passengers[c.ID] = &c
	return true, nil
}

func (m memPassengers) GetByID(_ context.Context, id uint64) (model.Passenger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passengers[id]
	if !ok {
		return model.Passenger{}, repository.ErrPassengerNotFound
	}
	return *p, nil
}

type published struct {
	topic   string
	key     string
	payload any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic, key, payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.topic)
	}
	return out
}

var errBroker = errors.New("broker down")

// passThroughTx runs fn without serialising, so confirmations interleave.
type passThroughTx struct{}

func (passThroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// snapshotPassengers reads like a REPEATABLE READ transaction: plain
// lookups only see passengers that existed at the first lookup, while
// locking reads see every committed row.  beforeInsert runs once, between
// the first lookup and InsertIgnore.
type snapshotPassengers struct {
	memPassengers
	beforeInsert func()
	taken        bool
	snapshot     uint64
}

func (s *snapshotPassengers) FindByDocument(ctx context.Context, doc model.IdentityDocument) (model.Passenger, error) {
	if !s.taken {
		s.mu.Lock()
		s.snapshot = s.nextPax
		s.mu.Unlock()
		s.taken = true
	}
	p, err := s.memPassengers.FindByDocument(ctx, doc)
	if err == nil && p.ID > s.snapshot {
		return model.Passenger{}, repository.ErrPassengerNotFound
	}
	return p, err
}

func (s *snapshotPassengers) InsertIgnore(ctx context.Context, p *model.Passenger) (bool, error) {
	if s.beforeInsert != nil {
		run := s.beforeInsert
		s.beforeInsert = nil
		run()
	}
	return s.memPassengers.InsertIgnore(ctx, p)
}
