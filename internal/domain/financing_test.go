package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func bankReservation(supported bool) *Reservation {
	return &Reservation{
		ID:                uuid.New(),
		UnitID:            uuid.New(),
		MarketerID:        uuid.New(),
		Status:            ReservationStatusConfirmed,
		PurchaseMechanism: PurchaseMechanismBankFinancing,
		IsSupportedBank:   supported,
		CreditStatus:      CreditStatusPending,
	}
}

// stageFields returns the minimal valid data for a stage
func stageFields(n int) StageFields {
	switch n {
	case 1:
		return StageFields{FieldBankName: "Riyad Bank"}
	case 4:
		return StageFields{FieldAppraiserName: "Taqeem Appraisals"}
	default:
		return nil
	}
}

func newTracker(t *testing.T, supported bool) *FinancingTracker {
	t.Helper()
	tr, err := NewFinancingTracker(bankReservation(supported), uuid.New(), t0)
	require.NoError(t, err)
	return tr
}

func TestNewFinancingTracker(t *testing.T) {
	tr := newTracker(t, false)

	assert.Equal(t, OverallStatusInProgress, tr.OverallStatus)
	assert.Equal(t, StageStatusInProgress, tr.Stage(1).Status)
	require.NotNil(t, tr.Stage(1).Deadline)
	assert.Equal(t, t0.Add(48*time.Hour), *tr.Stage(1).Deadline)
	for n := 2; n <= StageCount; n++ {
		assert.Equal(t, StageStatusPending, tr.Stage(n).Status)
		assert.Nil(t, tr.Stage(n).Deadline)
	}
	assert.Equal(t, 1, tr.CurrentStage())
	assert.NoError(t, tr.Validate())
}

func TestNewFinancingTracker_RejectsIneligibleReservations(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Reservation)
	}{
		{name: "not confirmed", modify: func(r *Reservation) { r.Status = ReservationStatusPending }},
		{name: "cancelled", modify: func(r *Reservation) { r.Status = ReservationStatusCancelled }},
		{name: "cash purchase", modify: func(r *Reservation) { r.PurchaseMechanism = PurchaseMechanismCash }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bankReservation(false)
			tt.modify(r)

			tr, err := NewFinancingTracker(r, uuid.New(), t0)
			assert.Nil(t, tr)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestFinancingTracker_CompleteStage_FullProgression(t *testing.T) {
	tr := newTracker(t, true)

	now := t0
	for n := 1; n <= StageCount; n++ {
		now = now.Add(time.Hour)
		require.NoError(t, tr.CompleteStage(n, stageFields(n), now), "stage %d", n)
		assert.Equal(t, StageStatusCompleted, tr.Stage(n).Status)
		assert.Equal(t, now, *tr.Stage(n).CompletedAt)

		if n < StageCount {
			assert.Equal(t, StageStatusInProgress, tr.Stage(n+1).Status)
			assert.Equal(t, now.Add(DeadlineHours(n+1, true)), *tr.Stage(n+1).Deadline)
			assert.Equal(t, OverallStatusInProgress, tr.OverallStatus)
		}
		require.NoError(t, tr.Validate())
	}

	assert.Equal(t, OverallStatusCompleted, tr.OverallStatus)
	require.NotNil(t, tr.CompletedAt)
	assert.Equal(t, now, *tr.CompletedAt)
	assert.Equal(t, 0, tr.CurrentStage())
	assert.Equal(t, "Riyad Bank", tr.BankName())
	assert.Equal(t, "Taqeem Appraisals", tr.AppraiserName())
}

func TestFinancingTracker_CompleteStage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(tr *FinancingTracker)
		stage    int
		fields   StageFields
		wantCode ErrorCode
	}{
		{name: "skipping a stage", stage: 2, wantCode: ErrCodeOutOfOrder},
		{name: "jumping to the last stage", stage: 5, wantCode: ErrCodeOutOfOrder},
		{
			name: "completing a completed stage",
			setup: func(tr *FinancingTracker) {
				_ = tr.CompleteStage(1, stageFields(1), t0)
			},
			stage:    1,
			fields:   stageFields(1),
			wantCode: ErrCodeOutOfOrder,
		},
		{name: "stage zero", stage: 0, wantCode: ErrCodeInvalidInput},
		{name: "stage six", stage: 6, wantCode: ErrCodeInvalidInput},
		{name: "missing bank name", stage: 1, fields: StageFields{}, wantCode: ErrCodeInvalidInput},
		{
			name: "rejected tracker",
			setup: func(tr *FinancingTracker) {
				_ = tr.Reject("salary too low", t0)
			},
			stage:    1,
			fields:   stageFields(1),
			wantCode: ErrCodeAlreadyTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker(t, false)
			if tt.setup != nil {
				tt.setup(tr)
			}
			before := tr.Clone()

			err := tr.CompleteStage(tt.stage, tt.fields, t0.Add(time.Hour))
			assert.Equal(t, tt.wantCode, CodeOf(err))
			assert.Equal(t, before.Stages, tr.Stages, "failed completion must not change stages")
		})
	}
}

func TestFinancingTracker_CompleteStage_OverdueStageCompletes(t *testing.T) {
	tr := newTracker(t, false)
	assert.Equal(t, []int{1}, tr.MarkOverdue(t0.Add(49*time.Hour)))

	now := t0.Add(50 * time.Hour)
	require.NoError(t, tr.CompleteStage(1, stageFields(1), now))
	assert.Equal(t, StageStatusCompleted, tr.Stage(1).Status)
	assert.Equal(t, StageStatusInProgress, tr.Stage(2).Status)
	assert.Equal(t, now.Add(72*time.Hour), *tr.Stage(2).Deadline)
}

func TestFinancingTracker_CompleteStage_CapturesData(t *testing.T) {
	tr := newTracker(t, false)
	salary := decimal.RequireFromString("18500.50")
	in := StageInput{
		BankName:       " Al Rajhi ",
		ClientSalary:   &salary,
		EmploymentType: EmploymentGovernment,
		Notes:          "first application",
	}

	require.NoError(t, tr.CompleteStage(1, in.Fields(), t0))

	assert.Equal(t, "Al Rajhi", tr.BankName())
	got, ok := tr.ClientSalary()
	require.True(t, ok)
	assert.True(t, salary.Equal(got))
	assert.Equal(t, EmploymentGovernment, tr.EmploymentType())
	assert.Equal(t, "first application", tr.StageData[1][FieldNotes])

	_, ok = newTracker(t, false).ClientSalary()
	assert.False(t, ok)
}

func TestFinancingTracker_Reject(t *testing.T) {
	tr := newTracker(t, false)

	err := tr.Reject("   ", t0)
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(err))
	assert.Equal(t, OverallStatusInProgress, tr.OverallStatus)

	require.NoError(t, tr.Reject(" DBR above limit ", t0))
	assert.Equal(t, OverallStatusRejected, tr.OverallStatus)
	assert.Equal(t, "DBR above limit", tr.RejectionReason)
	assert.True(t, tr.IsTerminal())
	assert.NoError(t, tr.Validate())

	assert.ErrorIs(t, tr.Reject("again", t0), ErrAlreadyTerminal)
}

func TestFinancingTracker_Reject_CompletedIsTerminal(t *testing.T) {
	tr := newTracker(t, false)
	for n := 1; n <= StageCount; n++ {
		require.NoError(t, tr.CompleteStage(n, stageFields(n), t0))
	}

	assert.ErrorIs(t, tr.Reject("too late", t0), ErrAlreadyTerminal)
	assert.Equal(t, OverallStatusCompleted, tr.OverallStatus)
}

func TestFinancingTracker_MarkOverdue(t *testing.T) {
	tr := newTracker(t, false)

	assert.Empty(t, tr.MarkOverdue(t0.Add(48*time.Hour)), "deadline itself is not past")
	assert.Equal(t, []int{1}, tr.MarkOverdue(t0.Add(48*time.Hour+time.Second)))
	assert.Equal(t, StageStatusOverdue, tr.Stage(1).Status)

	assert.Empty(t, tr.MarkOverdue(t0.Add(100*time.Hour)), "second sweep flips nothing")
	assert.Equal(t, StageStatusPending, tr.Stage(2).Status, "unopened stages have no deadline")
}

func TestFinancingTracker_MarkOverdue_SkipsTerminal(t *testing.T) {
	tr := newTracker(t, false)
	require.NoError(t, tr.Reject("withdrawn", t0))

	assert.Empty(t, tr.MarkOverdue(t0.Add(1000*time.Hour)))
	assert.Equal(t, StageStatusInProgress, tr.Stage(1).Status)
}

func TestFinancingTracker_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(tr *FinancingTracker)
		wantErr bool
	}{
		{name: "fresh tracker", modify: func(tr *FinancingTracker) {}},
		{
			name:    "stage 2 completed before stage 1",
			modify:  func(tr *FinancingTracker) { tr.Stages[1].Status = StageStatusCompleted },
			wantErr: true,
		},
		{
			name:    "two stages in progress",
			modify:  func(tr *FinancingTracker) { tr.Stages[1].Status = StageStatusInProgress },
			wantErr: true,
		},
		{
			name:    "completed without stage 5",
			modify:  func(tr *FinancingTracker) { tr.OverallStatus = OverallStatusCompleted },
			wantErr: true,
		},
		{
			name:    "rejected without reason",
			modify:  func(tr *FinancingTracker) { tr.OverallStatus = OverallStatusRejected },
			wantErr: true,
		},
		{
			name:    "unknown status",
			modify:  func(tr *FinancingTracker) { tr.OverallStatus = "paused" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker(t, false)
			tt.modify(tr)

			err := tr.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFinancingTracker_Clone(t *testing.T) {
	tr := newTracker(t, false)
	require.NoError(t, tr.CompleteStage(1, stageFields(1), t0))

	c := tr.Clone()
	c.StageData[1][FieldBankName] = "changed"
	*c.Stages[1].Deadline = t0.Add(-time.Hour)

	assert.Equal(t, "Riyad Bank", tr.BankName())
	assert.NotEqual(t, *tr.Stage(2).Deadline, *c.Stage(2).Deadline)
}
