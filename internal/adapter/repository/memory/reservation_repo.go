package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// ReservationRepository implements domain.ReservationRepository over a Store
type ReservationRepository struct {
	s *Store
}

// GetByID retrieves a reservation by its ID
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res, ok := r.s.data.reservations[id]
	if !ok {
		return nil, domain.NotFoundError("reservation", id)
	}
	return &res, nil
}

// GetByIDForUpdate retrieves a reservation; the transaction mutex is the row lock
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.GetByID(ctx, id)
}

// UpdateCreditStatus sets the reservation's credit status
func (r *ReservationRepository) UpdateCreditStatus(ctx context.Context, id uuid.UUID, status domain.CreditStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.data.reservations[id]
	if !ok {
		return domain.NotFoundError("reservation", id)
	}
	res.CreditStatus = status
	r.s.data.reservations[id] = res
	return nil
}

// CountByCreditStatus counts reservations by credit status
func (r *ReservationRepository) CountByCreditStatus(ctx context.Context) (map[domain.CreditStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[domain.CreditStatus]int{}
	for _, res := range r.s.data.reservations {
		counts[res.CreditStatus]++
	}
	return counts, nil
}

// UnitRepository implements domain.UnitRepository over a Store
type UnitRepository struct {
	s *Store
}

// MarkSold sets the unit's status to sold
func (r *UnitRepository) MarkSold(ctx context.Context, unitID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.units[unitID]; !ok {
		return domain.NotFoundError("unit", unitID)
	}
	r.s.data.units[unitID] = domain.UnitStatusSold
	return nil
}
