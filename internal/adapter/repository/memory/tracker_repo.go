package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// TrackerRepository implements domain.TrackerRepository over a Store
type TrackerRepository struct {
	s *Store
}

// Create inserts a new tracker
func (r *TrackerRepository) Create(ctx context.Context, tracker *domain.FinancingTracker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.data.trackers {
		if t.ReservationID == tracker.ReservationID {
			return domain.NewError(domain.ErrCodeAlreadyExists, "reservation %s already has a financing tracker", tracker.ReservationID)
		}
	}
	r.s.data.trackers[tracker.ID] = tracker.Clone()
	return nil
}

// GetByID retrieves a tracker by its ID
func (r *TrackerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FinancingTracker, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.data.trackers[id]
	if !ok {
		return nil, domain.NotFoundError("financing tracker", id)
	}
	return t.Clone(), nil
}

// GetByIDForUpdate retrieves a tracker; the transaction mutex is the row lock
func (r *TrackerRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.FinancingTracker, error) {
	return r.GetByID(ctx, id)
}

// GetByReservationID retrieves the tracker of a reservation
func (r *TrackerRepository) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*domain.FinancingTracker, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.data.trackers {
		if t.ReservationID == reservationID {
			return t.Clone(), nil
		}
	}
	return nil, domain.NotFoundError("financing tracker for reservation", reservationID)
}

// Update replaces the stored tracker
func (r *TrackerRepository) Update(ctx context.Context, tracker *domain.FinancingTracker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.trackers[tracker.ID]; !ok {
		return domain.NotFoundError("financing tracker", tracker.ID)
	}
	r.s.data.trackers[tracker.ID] = tracker.Clone()
	return nil
}

// ListWithExpiredStages returns in-progress trackers with an open stage past its deadline, oldest first
func (r *TrackerRepository) ListWithExpiredStages(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var expired []*domain.FinancingTracker
	for _, t := range r.s.data.trackers {
		if t.OverallStatus != domain.OverallStatusInProgress {
			continue
		}
		for _, st := range t.Stages {
			if st.Status.IsOpen() && st.Deadline != nil && st.Deadline.Before(now) {
				expired = append(expired, t)
				break
			}
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].CreatedAt.Before(expired[j].CreatedAt)
	})

	ids := make([]uuid.UUID, 0, len(expired))
	for _, t := range expired {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// StageBreakdown counts stage statuses across all trackers
func (r *TrackerRepository) StageBreakdown(ctx context.Context) (domain.StageBreakdown, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var b domain.StageBreakdown
	for _, t := range r.s.data.trackers {
		for i, st := range t.Stages {
			b[i].Add(st.Status, 1)
		}
	}
	return b, nil
}

// CountByOverallStatus counts trackers by overall status
func (r *TrackerRepository) CountByOverallStatus(ctx context.Context) (map[domain.OverallStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[domain.OverallStatus]int{}
	for _, t := range r.s.data.trackers {
		counts[t.OverallStatus]++
	}
	return counts, nil
}
