package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// titleTransferRepository implements domain.TitleTransferRepository
type titleTransferRepository struct {
	db *DB
}

// NewTitleTransferRepository creates a new title transfer repository
func NewTitleTransferRepository(db *DB) domain.TitleTransferRepository {
	return &titleTransferRepository{db: db}
}

const selectTransfer = `
	SELECT id, reservation_id, processed_by, status, scheduled_date, completed_date, notes, created_at, updated_at
	FROM title_transfers
`

// Create inserts a new transfer
func (r *titleTransferRepository) Create(ctx context.Context, t *domain.TitleTransfer) error {
	query := `
		INSERT INTO title_transfers (id, reservation_id, processed_by, status, scheduled_date, completed_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		t.ID,
		t.ReservationID,
		t.ProcessedBy,
		string(t.Status),
		nullTime(t.ScheduledDate),
		nullTime(t.CompletedDate),
		t.Notes,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrCodeAlreadyExists, "reservation %s already has a title transfer", t.ReservationID)
		}
		return fmt.Errorf("failed to create title transfer: %w", err)
	}

	return nil
}

// GetByID retrieves a transfer by its ID
func (r *titleTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TitleTransfer, error) {
	return r.get(ctx, selectTransfer+` WHERE id = $1`, id, "title transfer")
}

// GetByIDForUpdate retrieves a transfer and locks its row
func (r *titleTransferRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.TitleTransfer, error) {
	return r.get(ctx, selectTransfer+` WHERE id = $1 FOR UPDATE`, id, "title transfer")
}

// GetByReservationID retrieves the transfer of a reservation
func (r *titleTransferRepository) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*domain.TitleTransfer, error) {
	return r.get(ctx, selectTransfer+` WHERE reservation_id = $1`, reservationID, "title transfer for reservation")
}

func (r *titleTransferRepository) get(ctx context.Context, query string, id uuid.UUID, entity string) (*domain.TitleTransfer, error) {
	var (
		t             domain.TitleTransfer
		status        string
		scheduledDate sql.NullTime
		completedDate sql.NullTime
	)

	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.ReservationID,
		&t.ProcessedBy,
		&status,
		&scheduledDate,
		&completedDate,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError(entity, id)
		}
		return nil, fmt.Errorf("failed to get title transfer: %w", err)
	}

	t.Status = domain.TitleTransferStatus(status)
	t.ScheduledDate = timePtr(scheduledDate)
	t.CompletedDate = timePtr(completedDate)

	return &t, nil
}

// Update persists status, schedule and completion changes
func (r *titleTransferRepository) Update(ctx context.Context, t *domain.TitleTransfer) error {
	query := `
		UPDATE title_transfers
		SET status = $2, scheduled_date = $3, completed_date = $4, notes = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		t.ID,
		string(t.Status),
		nullTime(t.ScheduledDate),
		nullTime(t.CompletedDate),
		t.Notes,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update title transfer: %w", err)
	}

	return expectOneRow(result, "title transfer", t.ID)
}

// CountByStatus counts transfers by status
func (r *titleTransferRepository) CountByStatus(ctx context.Context) (map[domain.TitleTransferStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM title_transfers GROUP BY status`

	counts := map[domain.TitleTransferStatus]int{}
	err := scanCounts(ctx, r.db.conn(ctx), query, func(status string, n int) {
		counts[domain.TitleTransferStatus(status)] = n
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count title transfers: %w", err)
	}
	return counts, nil
}
