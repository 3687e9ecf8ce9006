package titletransfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/simaogato/finflow-backend/internal/metrics"
	"github.com/simaogato/finflow-backend/internal/usecase/notify"
)

// Service handles the title transfer handoff that follows financing
type Service struct {
	Transactor      domain.Transactor
	TransferRepo    domain.TitleTransferRepository
	TrackerRepo     domain.TrackerRepository
	ReservationRepo domain.ReservationRepository
	UnitRepo        domain.UnitRepository
	Targets         domain.NotificationTargetResolver
	Notifier        domain.Notifier
	Dashboard       domain.DashboardInvalidator // optional
	Log             logger.Logger
	Now             func() time.Time
}

// NewService creates a new title transfer Service instance
func NewService(
	transactor domain.Transactor,
	transferRepo domain.TitleTransferRepository,
	trackerRepo domain.TrackerRepository,
	reservationRepo domain.ReservationRepository,
	unitRepo domain.UnitRepository,
	targets domain.NotificationTargetResolver,
	notifier domain.Notifier,
	dashboard domain.DashboardInvalidator,
	log logger.Logger,
) *Service {
	return &Service{
		Transactor:      transactor,
		TransferRepo:    transferRepo,
		TrackerRepo:     trackerRepo,
		ReservationRepo: reservationRepo,
		UnitRepo:        unitRepo,
		Targets:         targets,
		Notifier:        notifier,
		Dashboard:       dashboard,
		Log:             log.WithFields(logger.Fields{"component": "title_transfer"}),
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// Initialize opens the title transfer of a reservation
// Logic:
//  1. Lock the reservation; it must be confirmed
//  2. Bank-financed reservations need a completed financing tracker (FINANCING_INCOMPLETE);
//     cash purchases go straight to title transfer
//  3. Fail with ALREADY_EXISTS if a transfer exists
//  4. Create the transfer in preparation and set credit status title_transfer
func (s *Service) Initialize(ctx context.Context, reservationID, processedBy uuid.UUID) (*domain.TitleTransfer, error) {
	if processedBy == uuid.Nil {
		return nil, domain.NewError(domain.ErrCodeInvalidInput, "processing user is required")
	}

	var transfer *domain.TitleTransfer
	err := s.Transactor.WithinTx(ctx, func(ctx context.Context) error {
		reservation, err := s.ReservationRepo.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation.Status != domain.ReservationStatusConfirmed {
			return domain.NewError(domain.ErrCodeInvalidState, "reservation %s is %s, not confirmed", reservationID, reservation.Status)
		}

		if reservation.IsBankFinanced() {
			if err := s.checkFinancingCompleted(ctx, reservationID); err != nil {
				return err
			}
		}

		if _, err := s.TransferRepo.GetByReservationID(ctx, reservationID); err == nil {
			return domain.NewError(domain.ErrCodeAlreadyExists, "reservation %s already has a title transfer", reservationID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		transfer = domain.NewTitleTransfer(reservationID, processedBy, s.Now())
		if err := s.TransferRepo.Create(ctx, transfer); err != nil {
			return err
		}
		return s.ReservationRepo.UpdateCreditStatus(ctx, reservationID, domain.CreditStatusTitleTransfer)
	})
	if err != nil {
		return nil, err
	}

	metrics.TitleTransferTransitions.WithLabelValues(string(transfer.Status)).Inc()
	s.Log.Info("title transfer initialized", logger.Fields{
		"transferId":    transfer.ID.String(),
		"reservationId": reservationID.String(),
		"processedBy":   processedBy.String(),
	})
	s.invalidateDashboard(ctx)

	return transfer, nil
}

// Schedule books the transfer appointment and informs the marketer
func (s *Service) Schedule(ctx context.Context, transferID uuid.UUID, date time.Time, notes string) (*domain.TitleTransfer, error) {
	transfer, err := s.mutate(ctx, transferID, func(t *domain.TitleTransfer) error {
		return t.Schedule(date, notes, s.Now())
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("title transfer scheduled", logger.Fields{
		"transferId":    transferID.String(),
		"scheduledDate": date.Format(time.RFC3339),
	})

	marketer, err := s.Targets.ResolveMarketer(ctx, transfer.ReservationID)
	recipients := notify.NewRecipients(s.Log).Add(marketer, err, "marketer")
	notify.Broadcast(ctx, s.Notifier, s.Log, recipients.IDs(), notify.Message{
		Text:      fmt.Sprintf("Title transfer for reservation %s is scheduled on %s", transfer.ReservationID, date.Format("2006-01-02 15:04")),
		EventType: domain.EventTitleTransferScheduled,
		Context:   transferContext(transfer),
	})
	s.invalidateDashboard(ctx)

	return transfer, nil
}

// Unschedule cancels the appointment and returns the transfer to preparation
func (s *Service) Unschedule(ctx context.Context, transferID uuid.UUID) (*domain.TitleTransfer, error) {
	transfer, err := s.mutate(ctx, transferID, func(t *domain.TitleTransfer) error {
		return t.Unschedule(s.Now())
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("title transfer unscheduled", logger.Fields{"transferId": transferID.String()})
	s.invalidateDashboard(ctx)

	return transfer, nil
}

// Complete finishes the transfer
// Logic:
//  1. Lock the transfer and complete it (completed date is today)
//  2. Set the reservation's credit status and its unit's status to sold
//  3. After commit, notify the marketer, the credit department and accounting
func (s *Service) Complete(ctx context.Context, transferID uuid.UUID, actor uuid.UUID) (*domain.TitleTransfer, error) {
	transfer, err := s.mutate(ctx, transferID, func(t *domain.TitleTransfer) error {
		return t.Complete(s.Now())
	}, func(ctx context.Context, t *domain.TitleTransfer) error {
		reservation, err := s.ReservationRepo.GetByIDForUpdate(ctx, t.ReservationID)
		if err != nil {
			return err
		}
		if err := s.ReservationRepo.UpdateCreditStatus(ctx, reservation.ID, domain.CreditStatusSold); err != nil {
			return err
		}
		return s.UnitRepo.MarkSold(ctx, reservation.UnitID)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("title transfer completed", logger.Fields{
		"transferId":    transferID.String(),
		"reservationId": transfer.ReservationID.String(),
		"actor":         actor.String(),
	})

	marketer, mErr := s.Targets.ResolveMarketer(ctx, transfer.ReservationID)
	credit, cErr := s.Targets.ResolveDepartmentMembers(ctx, domain.DepartmentCredit)
	accounting, aErr := s.Targets.ResolveDepartmentMembers(ctx, domain.DepartmentAccounting)
	recipients := notify.NewRecipients(s.Log).
		Add(marketer, mErr, "marketer").
		AddAll(credit, cErr, "credit department").
		AddAll(accounting, aErr, "accounting department")

	notify.Broadcast(ctx, s.Notifier, s.Log, recipients.IDs(), notify.Message{
		Text:      fmt.Sprintf("Title transfer completed for reservation %s; the unit is sold", transfer.ReservationID),
		EventType: domain.EventTitleTransferCompleted,
		Context:   transferContext(transfer),
	})
	s.invalidateDashboard(ctx)

	return transfer, nil
}

// Get retrieves a transfer by its ID
func (s *Service) Get(ctx context.Context, transferID uuid.UUID) (*domain.TitleTransfer, error) {
	return s.TransferRepo.GetByID(ctx, transferID)
}

// GetByReservation retrieves the transfer of a reservation
func (s *Service) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.TitleTransfer, error) {
	return s.TransferRepo.GetByReservationID(ctx, reservationID)
}

// mutate locks a transfer, applies change, persists it and runs the optional
// follow-up writes in the same transaction.
func (s *Service) mutate(
	ctx context.Context,
	transferID uuid.UUID,
	change func(t *domain.TitleTransfer) error,
	followUps ...func(ctx context.Context, t *domain.TitleTransfer) error,
) (*domain.TitleTransfer, error) {
	var transfer *domain.TitleTransfer
	err := s.Transactor.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.TransferRepo.GetByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if err := change(t); err != nil {
			return err
		}
		if err := s.TransferRepo.Update(ctx, t); err != nil {
			return err
		}
		for _, f := range followUps {
			if err := f(ctx, t); err != nil {
				return err
			}
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TitleTransferTransitions.WithLabelValues(string(transfer.Status)).Inc()
	return transfer, nil
}

func (s *Service) checkFinancingCompleted(ctx context.Context, reservationID uuid.UUID) error {
	tracker, err := s.TrackerRepo.GetByReservationID(ctx, reservationID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrCodeFinancingIncomplete, "reservation %s has no financing tracker", reservationID)
	}
	if err != nil {
		return err
	}
	if tracker.OverallStatus != domain.OverallStatusCompleted {
		return domain.NewError(domain.ErrCodeFinancingIncomplete, "financing for reservation %s is %s", reservationID, tracker.OverallStatus)
	}
	return nil
}

func (s *Service) invalidateDashboard(ctx context.Context) {
	if s.Dashboard == nil {
		return
	}
	if err := s.Dashboard.Invalidate(ctx); err != nil {
		s.Log.Warn("dashboard cache invalidation failed", logger.Fields{"error": err})
	}
}

func transferContext(t *domain.TitleTransfer) map[string]string {
	return map[string]string{
		"transferId":    t.ID.String(),
		"reservationId": t.ReservationID.String(),
	}
}
