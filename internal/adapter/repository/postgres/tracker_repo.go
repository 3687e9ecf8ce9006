package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// trackerRepository implements domain.TrackerRepository
type trackerRepository struct {
	db *DB
}

// NewTrackerRepository creates a new financing tracker repository
func NewTrackerRepository(db *DB) domain.TrackerRepository {
	return &trackerRepository{db: db}
}

const selectTracker = `
	SELECT id, reservation_id, assigned_to, is_supported_bank, overall_status,
	       rejection_reason, stage_data, completed_at, created_at, updated_at
	FROM financing_trackers
`

// Create inserts the tracker row and its five stage rows
func (r *trackerRepository) Create(ctx context.Context, tracker *domain.FinancingTracker) error {
	stageData, err := json.Marshal(tracker.StageData)
	if err != nil {
		return fmt.Errorf("failed to encode stage data: %w", err)
	}

	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		insertTracker := `
			INSERT INTO financing_trackers (id, reservation_id, assigned_to, is_supported_bank, overall_status,
				rejection_reason, stage_data, completed_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		_, err := r.db.conn(ctx).ExecContext(ctx, insertTracker,
			tracker.ID,
			tracker.ReservationID,
			tracker.AssignedTo,
			tracker.IsSupportedBank,
			string(tracker.OverallStatus),
			nullString(tracker.RejectionReason),
			stageData,
			nullTime(tracker.CompletedAt),
			tracker.CreatedAt,
			tracker.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewError(domain.ErrCodeAlreadyExists, "reservation %s already has a financing tracker", tracker.ReservationID)
			}
			return fmt.Errorf("failed to insert financing tracker: %w", err)
		}

		insertStage := `
			INSERT INTO financing_stages (tracker_id, stage, status, deadline, completed_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		for i, st := range tracker.Stages {
			_, err := r.db.conn(ctx).ExecContext(ctx, insertStage,
				tracker.ID,
				i+1,
				string(st.Status),
				nullTime(st.Deadline),
				nullTime(st.CompletedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert financing stage %d: %w", i+1, err)
			}
		}

		return nil
	})
}

// GetByID retrieves a tracker by its ID
func (r *trackerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FinancingTracker, error) {
	return r.get(ctx, selectTracker+` WHERE id = $1`, id, "financing tracker")
}

// GetByIDForUpdate retrieves a tracker and locks its row. Stage rows are only
// written through the tracker, so the tracker lock covers them.
func (r *trackerRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.FinancingTracker, error) {
	return r.get(ctx, selectTracker+` WHERE id = $1 FOR UPDATE`, id, "financing tracker")
}

// GetByReservationID retrieves the tracker of a reservation
func (r *trackerRepository) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*domain.FinancingTracker, error) {
	return r.get(ctx, selectTracker+` WHERE reservation_id = $1`, reservationID, "financing tracker for reservation")
}

func (r *trackerRepository) get(ctx context.Context, query string, id uuid.UUID, entity string) (*domain.FinancingTracker, error) {
	var (
		t           domain.FinancingTracker
		overall     string
		rejection   sql.NullString
		stageData   []byte
		completedAt sql.NullTime
	)

	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.ReservationID,
		&t.AssignedTo,
		&t.IsSupportedBank,
		&overall,
		&rejection,
		&stageData,
		&completedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError(entity, id)
		}
		return nil, fmt.Errorf("failed to get financing tracker: %w", err)
	}

	t.OverallStatus = domain.OverallStatus(overall)
	t.RejectionReason = rejection.String
	t.CompletedAt = timePtr(completedAt)

	t.StageData = map[int]domain.StageFields{}
	if len(stageData) > 0 {
		if err := json.Unmarshal(stageData, &t.StageData); err != nil {
			return nil, fmt.Errorf("failed to decode stage data: %w", err)
		}
	}

	if err := r.loadStages(ctx, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *trackerRepository) loadStages(ctx context.Context, t *domain.FinancingTracker) error {
	query := `
		SELECT stage, status, deadline, completed_at
		FROM financing_stages
		WHERE tracker_id = $1
		ORDER BY stage
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, t.ID)
	if err != nil {
		return fmt.Errorf("failed to query financing stages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stage       int
			status      string
			deadline    sql.NullTime
			completedAt sql.NullTime
		)
		if err := rows.Scan(&stage, &status, &deadline, &completedAt); err != nil {
			return fmt.Errorf("failed to scan financing stage: %w", err)
		}
		if stage < 1 || stage > domain.StageCount {
			return fmt.Errorf("financing tracker %s has invalid stage %d", t.ID, stage)
		}
		t.Stages[stage-1] = domain.StageState{
			Status:      domain.StageStatus(status),
			Deadline:    timePtr(deadline),
			CompletedAt: timePtr(completedAt),
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating financing stages: %w", err)
	}

	return nil
}

// Update persists the tracker row and all five stage rows
func (r *trackerRepository) Update(ctx context.Context, tracker *domain.FinancingTracker) error {
	stageData, err := json.Marshal(tracker.StageData)
	if err != nil {
		return fmt.Errorf("failed to encode stage data: %w", err)
	}

	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		updateTracker := `
			UPDATE financing_trackers
			SET overall_status = $2, rejection_reason = $3, stage_data = $4, completed_at = $5, updated_at = $6
			WHERE id = $1
		`
		result, err := r.db.conn(ctx).ExecContext(ctx, updateTracker,
			tracker.ID,
			string(tracker.OverallStatus),
			nullString(tracker.RejectionReason),
			stageData,
			nullTime(tracker.CompletedAt),
			tracker.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update financing tracker: %w", err)
		}
		if err := expectOneRow(result, "financing tracker", tracker.ID); err != nil {
			return err
		}

		updateStage := `
			UPDATE financing_stages
			SET status = $3, deadline = $4, completed_at = $5
			WHERE tracker_id = $1 AND stage = $2
		`
		for i, st := range tracker.Stages {
			_, err := r.db.conn(ctx).ExecContext(ctx, updateStage,
				tracker.ID,
				i+1,
				string(st.Status),
				nullTime(st.Deadline),
				nullTime(st.CompletedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to update financing stage %d: %w", i+1, err)
			}
		}

		return nil
	})
}

// ListWithExpiredStages returns in-progress trackers with an open stage past its deadline, oldest first
func (r *trackerRepository) ListWithExpiredStages(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT t.id
		FROM financing_trackers t
		WHERE t.overall_status = 'in_progress'
		  AND EXISTS (
			SELECT 1 FROM financing_stages s
			WHERE s.tracker_id = t.id
			  AND s.status IN ('pending', 'in_progress')
			  AND s.deadline < $1
		  )
		ORDER BY t.created_at
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query trackers with expired stages: %w", err)
	}

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trackers with expired stages: %w", err)
	}
	return ids, nil
}

// StageBreakdown counts stage statuses across all trackers
func (r *trackerRepository) StageBreakdown(ctx context.Context) (domain.StageBreakdown, error) {
	var b domain.StageBreakdown

	query := `
		SELECT stage, status, COUNT(*)
		FROM financing_stages
		GROUP BY stage, status
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return b, fmt.Errorf("failed to query stage breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stage  int
			status string
			count  int
		)
		if err := rows.Scan(&stage, &status, &count); err != nil {
			return b, fmt.Errorf("failed to scan stage breakdown: %w", err)
		}
		if stage < 1 || stage > domain.StageCount {
			continue
		}
		b[stage-1].Add(domain.StageStatus(status), count)
	}

	if err := rows.Err(); err != nil {
		return b, fmt.Errorf("error iterating stage breakdown: %w", err)
	}

	return b, nil
}

// CountByOverallStatus counts trackers by overall status
func (r *trackerRepository) CountByOverallStatus(ctx context.Context) (map[domain.OverallStatus]int, error) {
	query := `SELECT overall_status, COUNT(*) FROM financing_trackers GROUP BY overall_status`

	counts := map[domain.OverallStatus]int{}
	err := scanCounts(ctx, r.db.conn(ctx), query, func(status string, n int) {
		counts[domain.OverallStatus(status)] = n
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count trackers: %w", err)
	}
	return counts, nil
}
