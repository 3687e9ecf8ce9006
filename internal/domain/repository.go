package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transactor runs a unit of work atomically against the store.
// Repositories called with the ctx passed to fn take part in the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TrackerRepository defines the interface for financing tracker persistence operations
type TrackerRepository interface {
	// Create inserts a new tracker with its five stages.
	// Returns an ALREADY_EXISTS error if the reservation already has a tracker.
	Create(ctx context.Context, tracker *FinancingTracker) error

	// GetByID retrieves a tracker by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*FinancingTracker, error)

	// GetByIDForUpdate retrieves a tracker and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*FinancingTracker, error)

	// GetByReservationID retrieves the tracker of a reservation
	GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*FinancingTracker, error)

	// Update persists the tracker's status, stage and captured data changes
	Update(ctx context.Context, tracker *FinancingTracker) error

	// ListWithExpiredStages returns in-progress trackers having an open stage
	// whose deadline is before now
	ListWithExpiredStages(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// StageBreakdown counts stage statuses across all trackers
	StageBreakdown(ctx context.Context) (StageBreakdown, error)

	// CountByOverallStatus counts trackers by overall status
	CountByOverallStatus(ctx context.Context) (map[OverallStatus]int, error)
}

// TitleTransferRepository defines the interface for title transfer persistence operations
type TitleTransferRepository interface {
	// Create inserts a new transfer.
	// Returns an ALREADY_EXISTS error if the reservation already has a transfer.
	Create(ctx context.Context, transfer *TitleTransfer) error

	// GetByID retrieves a transfer by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*TitleTransfer, error)

	// GetByIDForUpdate retrieves a transfer and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*TitleTransfer, error)

	// GetByReservationID retrieves the transfer of a reservation
	GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*TitleTransfer, error)

	// Update persists status, schedule and completion changes
	Update(ctx context.Context, transfer *TitleTransfer) error

	// CountByStatus counts transfers by status
	CountByStatus(ctx context.Context) (map[TitleTransferStatus]int, error)
}

// ReservationRepository is the engine's view of the external reservation store
type ReservationRepository interface {
	// GetByID retrieves a reservation by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// GetByIDForUpdate retrieves a reservation and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// UpdateCreditStatus sets the reservation's credit status
	UpdateCreditStatus(ctx context.Context, id uuid.UUID, status CreditStatus) error

	// CountByCreditStatus counts reservations by credit status
	CountByCreditStatus(ctx context.Context) (map[CreditStatus]int, error)
}

// UnitRepository is the engine's view of the external unit store
type UnitRepository interface {
	// MarkSold sets the unit's status to sold
	MarkSold(ctx context.Context, unitID uuid.UUID) error
}
