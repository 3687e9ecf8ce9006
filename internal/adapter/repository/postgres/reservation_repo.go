package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// reservationRepository implements domain.ReservationRepository
type reservationRepository struct {
	db *DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *DB) domain.ReservationRepository {
	return &reservationRepository{db: db}
}

const selectReservation = `
	SELECT id, unit_id, marketer_id, status, purchase_mechanism, is_supported_bank, credit_status
	FROM reservations
	WHERE id = $1
`

// GetByID retrieves a reservation by its ID
func (r *reservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.get(ctx, selectReservation, id)
}

// GetByIDForUpdate retrieves a reservation and locks its row
func (r *reservationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.get(ctx, selectReservation+` FOR UPDATE`, id)
}

func (r *reservationRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Reservation, error) {
	var (
		res                          domain.Reservation
		status, mechanism, creditStr string
	)

	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&res.ID,
		&res.UnitID,
		&res.MarketerID,
		&status,
		&mechanism,
		&res.IsSupportedBank,
		&creditStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("reservation", id)
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	res.Status = domain.ReservationStatus(status)
	res.PurchaseMechanism = domain.PurchaseMechanism(mechanism)
	res.CreditStatus = domain.CreditStatus(creditStr)

	return &res, nil
}

// UpdateCreditStatus sets the reservation's credit status
func (r *reservationRepository) UpdateCreditStatus(ctx context.Context, id uuid.UUID, status domain.CreditStatus) error {
	query := `UPDATE reservations SET credit_status = $2 WHERE id = $1`

	result, err := r.db.conn(ctx).ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update reservation credit status: %w", err)
	}

	return expectOneRow(result, "reservation", id)
}

// CountByCreditStatus counts reservations by credit status
func (r *reservationRepository) CountByCreditStatus(ctx context.Context) (map[domain.CreditStatus]int, error) {
	query := `SELECT credit_status, COUNT(*) FROM reservations GROUP BY credit_status`

	counts := map[domain.CreditStatus]int{}
	err := scanCounts(ctx, r.db.conn(ctx), query, func(status string, n int) {
		counts[domain.CreditStatus(status)] = n
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}
	return counts, nil
}

// unitRepository implements domain.UnitRepository
type unitRepository struct {
	db *DB
}

// NewUnitRepository creates a new unit repository
func NewUnitRepository(db *DB) domain.UnitRepository {
	return &unitRepository{db: db}
}

// MarkSold sets the unit's status to sold
func (r *unitRepository) MarkSold(ctx context.Context, unitID uuid.UUID) error {
	query := `UPDATE units SET status = 'sold' WHERE id = $1`

	result, err := r.db.conn(ctx).ExecContext(ctx, query, unitID)
	if err != nil {
		return fmt.Errorf("failed to mark unit sold: %w", err)
	}

	return expectOneRow(result, "unit", unitID)
}
