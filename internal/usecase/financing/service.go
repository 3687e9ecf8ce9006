package financing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/simaogato/finflow-backend/internal/metrics"
	"github.com/simaogato/finflow-backend/internal/usecase/notify"
)

// AdvanceAction tells what AdvanceOrInitialize did
type AdvanceAction string

const (
	ActionInitialized AdvanceAction = "initialized"
	ActionAdvanced    AdvanceAction = "advanced"
)

// AdvanceResult is the outcome of AdvanceOrInitialize
type AdvanceResult struct {
	Action  AdvanceAction
	Tracker *domain.FinancingTracker
	Stage   int // completed stage, 0 when the tracker was just initialized
}

// Service handles the financing stage progression of reservations
type Service struct {
	Transactor      domain.Transactor
	TrackerRepo     domain.TrackerRepository
	ReservationRepo domain.ReservationRepository
	Targets         domain.NotificationTargetResolver
	Notifier        domain.Notifier
	Dashboard       domain.DashboardInvalidator // optional
	Log             logger.Logger
	Now             func() time.Time
}

// NewService creates a new financing Service instance
func NewService(
	transactor domain.Transactor,
	trackerRepo domain.TrackerRepository,
	reservationRepo domain.ReservationRepository,
	targets domain.NotificationTargetResolver,
	notifier domain.Notifier,
	dashboard domain.DashboardInvalidator,
	log logger.Logger,
) *Service {
	return &Service{
		Transactor:      transactor,
		TrackerRepo:     trackerRepo,
		ReservationRepo: reservationRepo,
		Targets:         targets,
		Notifier:        notifier,
		Dashboard:       dashboard,
		Log:             log.WithFields(logger.Fields{"component": "financing"}),
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// Initialize creates the financing tracker of a reservation
// Logic:
//  1. Lock the reservation; it must exist
//  2. Fail with ALREADY_EXISTS if the reservation has a tracker
//  3. Build the tracker (reservation must be confirmed and bank financed) with stage 1 open
//  4. Persist it and set the reservation's credit status to in_progress
func (s *Service) Initialize(ctx context.Context, reservationID, assignedTo uuid.UUID) (*domain.FinancingTracker, error) {
	if assignedTo == uuid.Nil {
		return nil, domain.NewError(domain.ErrCodeInvalidInput, "assigned user is required")
	}

	var tracker *domain.FinancingTracker
	err := s.Transactor.WithinTx(ctx, func(ctx context.Context) error {
		reservation, err := s.ReservationRepo.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}

		if _, err := s.TrackerRepo.GetByReservationID(ctx, reservationID); err == nil {
			return domain.NewError(domain.ErrCodeAlreadyExists, "reservation %s already has a financing tracker", reservationID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		tracker, err = domain.NewFinancingTracker(reservation, assignedTo, s.Now())
		if err != nil {
			return err
		}
		if err := s.TrackerRepo.Create(ctx, tracker); err != nil {
			return err
		}
		return s.ReservationRepo.UpdateCreditStatus(ctx, reservationID, domain.CreditStatusInProgress)
	})
	if err != nil {
		return nil, err
	}

	metrics.StageTransitions.WithLabelValues("1", string(domain.StageStatusInProgress)).Inc()
	s.Log.Info("financing tracker initialized", logger.Fields{
		"trackerId":     tracker.ID.String(),
		"reservationId": reservationID.String(),
		"assignedTo":    assignedTo.String(),
		"supportedBank": tracker.IsSupportedBank,
	})
	s.invalidateDashboard(ctx)

	return tracker, nil
}

// CompleteStage completes a financing stage and opens the next one
// Logic:
//  1. Lock the tracker and apply the stage completion (order, terminal and schema checks)
//  2. Persist; when stage 5 closes the tracker, move the reservation to title_transfer
//  3. After commit, notify the assigned user (stages 1-4) or the credit department (stage 5)
func (s *Service) CompleteStage(ctx context.Context, trackerID uuid.UUID, stage int, input domain.StageInput, actor uuid.UUID) (*domain.FinancingTracker, error) {
	var tracker *domain.FinancingTracker
	err := s.Transactor.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.TrackerRepo.GetByIDForUpdate(ctx, trackerID)
		if err != nil {
			return err
		}
		if err := t.CompleteStage(stage, input.Fields(), s.Now()); err != nil {
			return err
		}
		if err := s.TrackerRepo.Update(ctx, t); err != nil {
			return err
		}
		if t.OverallStatus == domain.OverallStatusCompleted {
			if err := s.ReservationRepo.UpdateCreditStatus(ctx, t.ReservationID, domain.CreditStatusTitleTransfer); err != nil {
				return err
			}
		}
		tracker = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.StageTransitions.WithLabelValues(strconv.Itoa(stage), string(domain.StageStatusCompleted)).Inc()
	s.Log.Info("financing stage completed", logger.Fields{
		"trackerId": trackerID.String(),
		"stage":     stage,
		"actor":     actor.String(),
	})

	if tracker.OverallStatus == domain.OverallStatusCompleted {
		metrics.FinancingOutcomes.WithLabelValues(string(domain.OverallStatusCompleted)).Inc()
		s.notifyFinancingCompleted(ctx, tracker)
	} else {
		s.notifyStageCompleted(ctx, tracker, stage, actor)
	}
	s.invalidateDashboard(ctx)

	return tracker, nil
}

// Reject closes the financing case as rejected and informs the marketer
func (s *Service) Reject(ctx context.Context, trackerID uuid.UUID, reason string, actor uuid.UUID) (*domain.FinancingTracker, error) {
	var tracker *domain.FinancingTracker
	err := s.Transactor.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.TrackerRepo.GetByIDForUpdate(ctx, trackerID)
		if err != nil {
			return err
		}
		if err := t.Reject(reason, s.Now()); err != nil {
			return err
		}
		if err := s.TrackerRepo.Update(ctx, t); err != nil {
			return err
		}
		if err := s.ReservationRepo.UpdateCreditStatus(ctx, t.ReservationID, domain.CreditStatusRejected); err != nil {
			return err
		}
		tracker = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.FinancingOutcomes.WithLabelValues(string(domain.OverallStatusRejected)).Inc()
	s.Log.Info("financing rejected", logger.Fields{
		"trackerId": trackerID.String(),
		"actor":     actor.String(),
		"reason":    tracker.RejectionReason,
	})

	marketer, err := s.Targets.ResolveMarketer(ctx, tracker.ReservationID)
	recipients := notify.NewRecipients(s.Log).Add(marketer, err, "marketer")
	notify.Broadcast(ctx, s.Notifier, s.Log, recipients.IDs(), notify.Message{
		Text:      fmt.Sprintf("Bank financing for reservation %s was rejected: %s", tracker.ReservationID, tracker.RejectionReason),
		EventType: domain.EventFinancingRejected,
		Context:   trackerContext(tracker),
	})
	s.invalidateDashboard(ctx)

	return tracker, nil
}

// AdvanceOrInitialize initializes the reservation's tracker if it has none,
// otherwise completes its current stage. The actor becomes the assigned user
// of a newly created tracker.
func (s *Service) AdvanceOrInitialize(ctx context.Context, reservationID uuid.UUID, input domain.StageInput, actor uuid.UUID) (*AdvanceResult, error) {
	existing, err := s.TrackerRepo.GetByReservationID(ctx, reservationID)
	if errors.Is(err, domain.ErrNotFound) {
		tracker, err := s.Initialize(ctx, reservationID, actor)
		if err != nil {
			return nil, err
		}
		return &AdvanceResult{Action: ActionInitialized, Tracker: tracker}, nil
	}
	if err != nil {
		return nil, err
	}

	if existing.OverallStatus != domain.OverallStatusInProgress {
		return nil, domain.NewError(domain.ErrCodeAllStagesCompleted, "financing tracker %s is %s", existing.ID, existing.OverallStatus)
	}

	stage := existing.CurrentStage()
	tracker, err := s.CompleteStage(ctx, existing.ID, stage, input, actor)
	if err != nil {
		return nil, err
	}
	return &AdvanceResult{Action: ActionAdvanced, Tracker: tracker, Stage: stage}, nil
}

// Get retrieves a tracker by its ID
func (s *Service) Get(ctx context.Context, trackerID uuid.UUID) (*domain.FinancingTracker, error) {
	return s.TrackerRepo.GetByID(ctx, trackerID)
}

// GetByReservation retrieves the tracker of a reservation
func (s *Service) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.FinancingTracker, error) {
	return s.TrackerRepo.GetByReservationID(ctx, reservationID)
}

func (s *Service) notifyStageCompleted(ctx context.Context, t *domain.FinancingTracker, stage int, actor uuid.UUID) {
	if t.AssignedTo == actor {
		return
	}
	next := t.Stage(stage + 1)
	text := fmt.Sprintf("Financing stage %d completed for reservation %s; stage %d is now open", stage, t.ReservationID, stage+1)
	if next.Deadline != nil {
		text += " and due by " + next.Deadline.Format(time.RFC3339)
	}

	notify.Broadcast(ctx, s.Notifier, s.Log, []uuid.UUID{t.AssignedTo}, notify.Message{
		Text:      text,
		EventType: domain.EventFinancingStageCompleted,
		Context:   stageContext(t, stage),
	})
}

func (s *Service) notifyFinancingCompleted(ctx context.Context, t *domain.FinancingTracker) {
	members, err := s.Targets.ResolveDepartmentMembers(ctx, domain.DepartmentCredit)
	recipients := notify.NewRecipients(s.Log).AddAll(members, err, "credit department")

	notify.Broadcast(ctx, s.Notifier, s.Log, recipients.IDs(), notify.Message{
		Text:      fmt.Sprintf("Bank financing completed for reservation %s; it is ready for title transfer", t.ReservationID),
		EventType: domain.EventFinancingCompleted,
		Context:   trackerContext(t),
	})
}

func (s *Service) invalidateDashboard(ctx context.Context) {
	if s.Dashboard == nil {
		return
	}
	if err := s.Dashboard.Invalidate(ctx); err != nil {
		s.Log.Warn("dashboard cache invalidation failed", logger.Fields{"error": err})
	}
}

func trackerContext(t *domain.FinancingTracker) map[string]string {
	return map[string]string{
		"trackerId":     t.ID.String(),
		"reservationId": t.ReservationID.String(),
	}
}

func stageContext(t *domain.FinancingTracker, stage int) map[string]string {
	c := trackerContext(t)
	c["stage"] = strconv.Itoa(stage)
	return c
}
