// Package reconciliation flags financing stages that ran past their deadline.
package reconciliation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/simaogato/finflow-backend/internal/metrics"
	"github.com/simaogato/finflow-backend/internal/usecase/notify"
)

// Sweeper marks expired open stages overdue
type Sweeper struct {
	Transactor  domain.Transactor
	TrackerRepo domain.TrackerRepository
	Targets     domain.NotificationTargetResolver
	Notifier    domain.Notifier
	Dashboard   domain.DashboardInvalidator // optional
	Log         logger.Logger
	Now         func() time.Time
}

// NewSweeper creates a new Sweeper instance
func NewSweeper(
	transactor domain.Transactor,
	trackerRepo domain.TrackerRepository,
	targets domain.NotificationTargetResolver,
	notifier domain.Notifier,
	dashboard domain.DashboardInvalidator,
	log logger.Logger,
) *Sweeper {
	return &Sweeper{
		Transactor:  transactor,
		TrackerRepo: trackerRepo,
		Targets:     targets,
		Notifier:    notifier,
		Dashboard:   dashboard,
		Log:         log.WithFields(logger.Fields{"component": "reconciliation"}),
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one sweep and returns the number of stages marked overdue.
// Logic:
//  1. List in-progress trackers with an open stage past its deadline
//  2. Per tracker, in its own transaction: lock, MarkOverdue, persist
//  3. After each commit, notify the assigned user and the credit managers once per flipped stage
//
// A failing tracker is logged and skipped. Only the listing error aborts the run.
// Running twice is harmless: overdue and completed stages are never flipped again.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	now := s.Now()

	ids, err := s.TrackerRepo.ListWithExpiredStages(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list trackers with expired stages: %w", err)
	}

	marked := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return marked, err
		}

		tracker, flipped, err := s.markTracker(ctx, id, now)
		if err != nil {
			metrics.SweepTrackerFailures.Inc()
			s.Log.Error("failed to mark tracker stages overdue", logger.Fields{
				"trackerId": id.String(),
				"error":     err,
			})
			continue
		}
		if len(flipped) == 0 {
			continue
		}

		marked += len(flipped)
		metrics.SweepStagesMarked.Add(float64(len(flipped)))
		for _, stage := range flipped {
			metrics.StageTransitions.WithLabelValues(strconv.Itoa(stage), string(domain.StageStatusOverdue)).Inc()
		}
		s.Log.Info("stages marked overdue", logger.Fields{
			"trackerId": id.String(),
			"stages":    flipped,
		})
		s.notifyOverdue(ctx, tracker, flipped)
	}

	if marked > 0 && s.Dashboard != nil {
		if err := s.Dashboard.Invalidate(ctx); err != nil {
			s.Log.Warn("dashboard cache invalidation failed", logger.Fields{"error": err})
		}
	}

	return marked, nil
}

func (s *Sweeper) markTracker(ctx context.Context, id uuid.UUID, now time.Time) (*domain.FinancingTracker, []int, error) {
	var (
		tracker *domain.FinancingTracker
		flipped []int
	)
	err := s.Transactor.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.TrackerRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// re-checked under the lock: a completion may have landed since the listing
		flipped = t.MarkOverdue(now)
		if len(flipped) == 0 {
			return nil
		}
		tracker = t
		return s.TrackerRepo.Update(ctx, t)
	})
	if err != nil {
		return nil, nil, err
	}
	return tracker, flipped, nil
}

func (s *Sweeper) notifyOverdue(ctx context.Context, t *domain.FinancingTracker, stages []int) {
	assigned, assignedErr := s.Targets.ResolveAssigned(ctx, t.ID)
	managers, err := s.Targets.ResolveDepartmentManagers(ctx, domain.DepartmentCredit)
	recipients := notify.NewRecipients(s.Log).
		Add(assigned, assignedErr, "assigned user").
		AddAll(managers, err, "credit managers").
		IDs()

	for _, stage := range stages {
		deadline := ""
		if d := t.Stage(stage).Deadline; d != nil {
			deadline = d.Format(time.RFC3339)
		}
		notify.Broadcast(ctx, s.Notifier, s.Log, recipients, notify.Message{
			Text:      fmt.Sprintf("Financing stage %d for reservation %s is overdue (deadline %s)", stage, t.ReservationID, deadline),
			EventType: domain.EventFinancingStageOverdue,
			Context: map[string]string{
				"trackerId":     t.ID.String(),
				"reservationId": t.ReservationID.String(),
				"stage":         strconv.Itoa(stage),
			},
		})
	}
}
