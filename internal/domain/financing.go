package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StageStatus represents the status of a single financing stage
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusOverdue    StageStatus = "overdue"
)

// IsOpen reports whether the stage is still awaiting completion and can run late
func (s StageStatus) IsOpen() bool {
	return s == StageStatusPending || s == StageStatusInProgress
}

// OverallStatus represents the status of the whole financing case
type OverallStatus string

const (
	OverallStatusInProgress OverallStatus = "in_progress"
	OverallStatusCompleted  OverallStatus = "completed"
	OverallStatusRejected   OverallStatus = "rejected"
)

// StageState is the progress record of one stage
type StageState struct {
	Status      StageStatus
	Deadline    *time.Time // NULL until the stage is opened
	CompletedAt *time.Time // NULL until the stage is completed
}

// FinancingTracker tracks the five bank-financing stages of one reservation
type FinancingTracker struct {
	ID              uuid.UUID
	ReservationID   uuid.UUID
	AssignedTo      uuid.UUID
	IsSupportedBank bool // snapshot taken at initialization
	Stages          [StageCount]StageState
	StageData       map[int]StageFields
	OverallStatus   OverallStatus
	RejectionReason string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewFinancingTracker opens stage 1 for a confirmed, bank-financed reservation
func NewFinancingTracker(reservation *Reservation, assignedTo uuid.UUID, now time.Time) (*FinancingTracker, error) {
	if reservation.Status != ReservationStatusConfirmed {
		return nil, NewError(ErrCodeInvalidState, "reservation %s is %s, not confirmed", reservation.ID, reservation.Status)
	}
	if !reservation.IsBankFinanced() {
		return nil, NewError(ErrCodeInvalidState, "reservation %s is not bank financed", reservation.ID)
	}

	t := &FinancingTracker{
		ID:              uuid.New(),
		ReservationID:   reservation.ID,
		AssignedTo:      assignedTo,
		IsSupportedBank: reservation.IsSupportedBank,
		StageData:       map[int]StageFields{},
		OverallStatus:   OverallStatusInProgress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range t.Stages {
		t.Stages[i].Status = StageStatusPending
	}
	t.openStage(1, now)

	return t, nil
}

// Stage returns the state of stage n (1-based)
func (t *FinancingTracker) Stage(n int) StageState {
	return t.Stages[n-1]
}

// IsTerminal reports whether the tracker no longer accepts transitions
func (t *FinancingTracker) IsTerminal() bool {
	return t.OverallStatus == OverallStatusCompleted || t.OverallStatus == OverallStatusRejected
}

// CurrentStage returns the lowest stage not yet completed, or 0 when all are completed
func (t *FinancingTracker) CurrentStage() int {
	for i, s := range t.Stages {
		if s.Status != StageStatusCompleted {
			return i + 1
		}
	}
	return 0
}

// CompleteStage completes stage n and opens the next one.
// Logic:
//  1. Reject terminal trackers and stages outside 1..5
//  2. Every lower stage must be completed and stage n must not be (OutOfOrder)
//  3. Validate the captured data against the stage schema
//  4. Mark completed, capture data, open stage n+1 or close the tracker
//
// An overdue stage completes like any open stage.
func (t *FinancingTracker) CompleteStage(n int, fields StageFields, now time.Time) error {
	if n < 1 || n > StageCount {
		return NewError(ErrCodeInvalidInput, "stage %d is outside 1..%d", n, StageCount)
	}
	if t.IsTerminal() {
		return NewError(ErrCodeAlreadyTerminal, "financing tracker %s is %s", t.ID, t.OverallStatus)
	}
	for i := 1; i < n; i++ {
		if t.Stage(i).Status != StageStatusCompleted {
			return NewError(ErrCodeOutOfOrder, "stage %d cannot be completed before stage %d", n, i)
		}
	}
	if t.Stage(n).Status == StageStatusCompleted {
		return NewError(ErrCodeOutOfOrder, "stage %d is already completed", n)
	}
	if err := ValidateStageFields(n, fields); err != nil {
		return err
	}

	completedAt := now
	t.Stages[n-1].Status = StageStatusCompleted
	t.Stages[n-1].CompletedAt = &completedAt
	if len(fields) > 0 {
		if t.StageData == nil {
			t.StageData = map[int]StageFields{}
		}
		captured := make(StageFields, len(fields))
		for k, v := range fields {
			captured[k] = v
		}
		t.StageData[n] = captured
	}

	if n < StageCount {
		t.openStage(n+1, now)
	} else {
		t.OverallStatus = OverallStatusCompleted
		t.CompletedAt = &completedAt
	}
	t.UpdatedAt = now

	return nil
}

// Reject closes the case as rejected. Terminal.
func (t *FinancingTracker) Reject(reason string, now time.Time) error {
	if t.IsTerminal() {
		return NewError(ErrCodeAlreadyTerminal, "financing tracker %s is %s", t.ID, t.OverallStatus)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewError(ErrCodeInvalidInput, "rejection reason is required")
	}

	t.OverallStatus = OverallStatusRejected
	t.RejectionReason = reason
	t.UpdatedAt = now
	return nil
}

// MarkOverdue flags every open stage whose deadline has passed and returns
// the flipped stage numbers. Already overdue or completed stages are left alone.
func (t *FinancingTracker) MarkOverdue(now time.Time) []int {
	if t.OverallStatus != OverallStatusInProgress {
		return nil
	}

	var flipped []int
	for i := range t.Stages {
		s := &t.Stages[i]
		if s.Status.IsOpen() && s.Deadline != nil && s.Deadline.Before(now) {
			s.Status = StageStatusOverdue
			flipped = append(flipped, i+1)
		}
	}
	if len(flipped) > 0 {
		t.UpdatedAt = now
	}
	return flipped
}

// Validate checks the tracker's structural invariants
func (t *FinancingTracker) Validate() error {
	switch t.OverallStatus {
	case OverallStatusInProgress, OverallStatusCompleted, OverallStatusRejected:
	default:
		return fmt.Errorf("unknown overall status %q", t.OverallStatus)
	}

	for i := 1; i < StageCount; i++ {
		if t.Stage(i+1).Status == StageStatusCompleted && t.Stage(i).Status != StageStatusCompleted {
			return fmt.Errorf("stage %d completed while stage %d is %s", i+1, i, t.Stage(i).Status)
		}
		if t.Stage(i+1).Status == StageStatusInProgress && t.Stage(i).Status != StageStatusCompleted {
			return fmt.Errorf("stage %d in progress while stage %d is %s", i+1, i, t.Stage(i).Status)
		}
	}

	stage5Done := t.Stage(StageCount).Status == StageStatusCompleted
	if stage5Done != (t.OverallStatus == OverallStatusCompleted) {
		return errors.New("overall status must be completed exactly when stage 5 is completed")
	}
	if t.OverallStatus == OverallStatusRejected && t.RejectionReason == "" {
		return errors.New("rejected tracker must carry a rejection reason")
	}

	return nil
}

// CapturedField returns the most recently captured value for key across all stages
func (t *FinancingTracker) CapturedField(key string) (string, bool) {
	for n := StageCount; n >= 1; n-- {
		if v, ok := t.StageData[n][key]; ok {
			return v, true
		}
	}
	return "", false
}

// BankName returns the bank captured at stage 1
func (t *FinancingTracker) BankName() string {
	v, _ := t.CapturedField(FieldBankName)
	return v
}

// ClientSalary returns the declared salary, false when none was captured
func (t *FinancingTracker) ClientSalary() (decimal.Decimal, bool) {
	v, ok := t.CapturedField(FieldClientSalary)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// EmploymentType returns the client's employment type captured at stage 1
func (t *FinancingTracker) EmploymentType() EmploymentType {
	v, _ := t.CapturedField(FieldEmploymentType)
	return EmploymentType(v)
}

// AppraiserName returns the appraiser captured at stage 4
func (t *FinancingTracker) AppraiserName() string {
	v, _ := t.CapturedField(FieldAppraiserName)
	return v
}

func (t *FinancingTracker) openStage(n int, now time.Time) {
	deadline := now.Add(DeadlineHours(n, t.IsSupportedBank))
	t.Stages[n-1].Status = StageStatusInProgress
	t.Stages[n-1].Deadline = &deadline
}

// Clone returns a deep copy so callers never share stage pointers or maps
func (t *FinancingTracker) Clone() *FinancingTracker {
	c := *t
	for i, s := range t.Stages {
		c.Stages[i] = StageState{Status: s.Status, Deadline: copyTime(s.Deadline), CompletedAt: copyTime(s.CompletedAt)}
	}
	c.CompletedAt = copyTime(t.CompletedAt)
	c.StageData = make(map[int]StageFields, len(t.StageData))
	for n, f := range t.StageData {
		cf := make(StageFields, len(f))
		for k, v := range f {
			cf[k] = v
		}
		c.StageData[n] = cf
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
