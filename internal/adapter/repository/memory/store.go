// Package memory is an in-process store used for local runs and tests.
// Transactions are serialized and rolled back by restoring a snapshot.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

type txKey struct{}

type state struct {
	reservations map[uuid.UUID]domain.Reservation
	units        map[uuid.UUID]domain.UnitStatus
	trackers     map[uuid.UUID]*domain.FinancingTracker
	transfers    map[uuid.UUID]*domain.TitleTransfer
}

func newState() state {
	return state{
		reservations: map[uuid.UUID]domain.Reservation{},
		units:        map[uuid.UUID]domain.UnitStatus{},
		trackers:     map[uuid.UUID]*domain.FinancingTracker{},
		transfers:    map[uuid.UUID]*domain.TitleTransfer{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.units {
		c.units[k] = v
	}
	for k, v := range s.trackers {
		c.trackers[k] = v.Clone()
	}
	for k, v := range s.transfers {
		c.transfers[k] = copyTransfer(v)
	}
	return c
}

// Store holds every entity the engine reads or writes
type Store struct {
	txMu sync.Mutex // held for the whole of a transaction
	mu   sync.RWMutex
	data state

	users     map[uuid.UUID]domain.User
	userOrder []uuid.UUID
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		data:  newState(),
		users: map[uuid.UUID]domain.User{},
	}
}

// WithinTx runs fn with exclusive access to the store. Any error restores the
// state seen when the transaction began. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	before := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.data = before
		s.mu.Unlock()
		return err
	}
	return nil
}

// AddReservation inserts or replaces a reservation
func (s *Store) AddReservation(r domain.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreditStatus == "" {
		r.CreditStatus = domain.CreditStatusPending
	}
	s.data.reservations[r.ID] = r
}

// AddUnit inserts or replaces a unit
func (s *Store) AddUnit(id uuid.UUID, status domain.UnitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.units[id] = status
}

// UnitStatus returns a unit's status
func (s *Store) UnitStatus(id uuid.UUID) (domain.UnitStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data.units[id]
	return st, ok
}

// AddUser inserts or replaces a user
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; !exists {
		s.userOrder = append(s.userOrder, u.ID)
	}
	s.users[u.ID] = u
}

// Trackers returns the financing tracker repository
func (s *Store) Trackers() *TrackerRepository { return &TrackerRepository{s: s} }

// Transfers returns the title transfer repository
func (s *Store) Transfers() *TitleTransferRepository { return &TitleTransferRepository{s: s} }

// Reservations returns the reservation repository
func (s *Store) Reservations() *ReservationRepository { return &ReservationRepository{s: s} }

// Units returns the unit repository
func (s *Store) Units() *UnitRepository { return &UnitRepository{s: s} }

// Directory returns the user directory
func (s *Store) Directory() *Directory { return &Directory{s: s} }

func copyTransfer(t *domain.TitleTransfer) *domain.TitleTransfer {
	c := *t
	if t.ScheduledDate != nil {
		d := *t.ScheduledDate
		c.ScheduledDate = &d
	}
	if t.CompletedDate != nil {
		d := *t.CompletedDate
		c.CompletedDate = &d
	}
	return &c
}
