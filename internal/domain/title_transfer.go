package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TitleTransferStatus represents the handoff phase after financing
type TitleTransferStatus string

const (
	TitleTransferPending     TitleTransferStatus = "pending"
	TitleTransferPreparation TitleTransferStatus = "preparation"
	TitleTransferScheduled   TitleTransferStatus = "scheduled"
	TitleTransferCompleted   TitleTransferStatus = "completed"
)

// TitleTransfer is the ownership handoff of one reservation
type TitleTransfer struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	ProcessedBy   uuid.UUID
	Status        TitleTransferStatus
	ScheduledDate *time.Time // NOT NULL only while scheduled
	CompletedDate *time.Time
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTitleTransfer starts a transfer in the preparation phase
func NewTitleTransfer(reservationID, processedBy uuid.UUID, now time.Time) *TitleTransfer {
	return &TitleTransfer{
		ID:            uuid.New(),
		ReservationID: reservationID,
		ProcessedBy:   processedBy,
		Status:        TitleTransferPreparation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Schedule books the transfer appointment. Rescheduling a scheduled transfer is allowed.
func (t *TitleTransfer) Schedule(date time.Time, notes string, now time.Time) error {
	if t.Status == TitleTransferCompleted {
		return NewError(ErrCodeAlreadyTerminal, "title transfer %s is already completed", t.ID)
	}
	if date.IsZero() {
		return NewError(ErrCodeInvalidInput, "scheduled date is required")
	}

	d := date
	t.Status = TitleTransferScheduled
	t.ScheduledDate = &d
	t.Notes = strings.TrimSpace(notes)
	t.UpdatedAt = now
	return nil
}

// Unschedule cancels the appointment and returns the transfer to preparation
func (t *TitleTransfer) Unschedule(now time.Time) error {
	if t.Status == TitleTransferCompleted {
		return NewError(ErrCodeAlreadyTerminal, "title transfer %s is already completed", t.ID)
	}
	if t.Status != TitleTransferScheduled {
		return NewError(ErrCodeNotScheduled, "title transfer %s is %s", t.ID, t.Status)
	}

	t.Status = TitleTransferPreparation
	t.ScheduledDate = nil
	t.Notes = ""
	t.UpdatedAt = now
	return nil
}

// Complete finishes the transfer; completedDate is the calendar day of now
func (t *TitleTransfer) Complete(now time.Time) error {
	if t.Status == TitleTransferCompleted {
		return NewError(ErrCodeAlreadyTerminal, "title transfer %s is already completed", t.ID)
	}

	today := truncateToDay(now)
	t.Status = TitleTransferCompleted
	t.CompletedDate = &today
	t.ScheduledDate = nil
	t.UpdatedAt = now
	return nil
}

// Validate checks the transfer's structural invariants
func (t *TitleTransfer) Validate() error {
	switch t.Status {
	case TitleTransferPending, TitleTransferPreparation, TitleTransferScheduled, TitleTransferCompleted:
	default:
		return NewError(ErrCodeInvalidState, "unknown title transfer status %q", t.Status)
	}
	if t.Status == TitleTransferScheduled && t.ScheduledDate == nil {
		return NewError(ErrCodeInvalidState, "scheduled title transfer must have a date")
	}
	if t.Status != TitleTransferScheduled && t.ScheduledDate != nil {
		return NewError(ErrCodeInvalidState, "only scheduled title transfers carry a date")
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
