package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// TitleTransferRepository implements domain.TitleTransferRepository over a Store
type TitleTransferRepository struct {
	s *Store
}

// Create inserts a new transfer
func (r *TitleTransferRepository) Create(ctx context.Context, transfer *domain.TitleTransfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.data.transfers {
		if t.ReservationID == transfer.ReservationID {
			return domain.NewError(domain.ErrCodeAlreadyExists, "reservation %s already has a title transfer", transfer.ReservationID)
		}
	}
	r.s.data.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

// GetByID retrieves a transfer by its ID
func (r *TitleTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TitleTransfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.data.transfers[id]
	if !ok {
		return nil, domain.NotFoundError("title transfer", id)
	}
	return copyTransfer(t), nil
}

// GetByIDForUpdate retrieves a transfer; the transaction mutex is the row lock
func (r *TitleTransferRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.TitleTransfer, error) {
	return r.GetByID(ctx, id)
}

// GetByReservationID retrieves the transfer of a reservation
func (r *TitleTransferRepository) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*domain.TitleTransfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.data.transfers {
		if t.ReservationID == reservationID {
			return copyTransfer(t), nil
		}
	}
	return nil, domain.NotFoundError("title transfer for reservation", reservationID)
}

// Update replaces the stored transfer
func (r *TitleTransferRepository) Update(ctx context.Context, transfer *domain.TitleTransfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.transfers[transfer.ID]; !ok {
		return domain.NotFoundError("title transfer", transfer.ID)
	}
	r.s.data.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

// CountByStatus counts transfers by status
func (r *TitleTransferRepository) CountByStatus(ctx context.Context) (map[domain.TitleTransferStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[domain.TitleTransferStatus]int{}
	for _, t := range r.s.data.transfers {
		counts[t.Status]++
	}
	return counts, nil
}
