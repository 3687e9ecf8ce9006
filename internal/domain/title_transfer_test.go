package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleTransfer_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	tt := NewTitleTransfer(uuid.New(), uuid.New(), now)

	assert.Equal(t, TitleTransferPreparation, tt.Status)
	assert.Nil(t, tt.ScheduledDate)
	require.NoError(t, tt.Validate())

	date := now.Add(72 * time.Hour)
	require.NoError(t, tt.Schedule(date, "  notary office, bring IDs ", now))
	assert.Equal(t, TitleTransferScheduled, tt.Status)
	assert.Equal(t, date, *tt.ScheduledDate)
	assert.Equal(t, "notary office, bring IDs", tt.Notes)
	require.NoError(t, tt.Validate())

	later := date.Add(24 * time.Hour)
	require.NoError(t, tt.Schedule(later, "moved", now), "rescheduling is allowed")
	assert.Equal(t, later, *tt.ScheduledDate)

	require.NoError(t, tt.Unschedule(now))
	assert.Equal(t, TitleTransferPreparation, tt.Status)
	assert.Nil(t, tt.ScheduledDate)
	assert.Empty(t, tt.Notes)

	err := tt.Unschedule(now)
	assert.ErrorIs(t, err, ErrNotScheduled)

	require.NoError(t, tt.Schedule(date, "", now))
	require.NoError(t, tt.Complete(now))
	assert.Equal(t, TitleTransferCompleted, tt.Status)
	assert.Nil(t, tt.ScheduledDate)
	require.NotNil(t, tt.CompletedDate)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *tt.CompletedDate)
	require.NoError(t, tt.Validate())
}

func TestTitleTransfer_CompletedIsTerminal(t *testing.T) {
	now := time.Now().UTC()
	tt := NewTitleTransfer(uuid.New(), uuid.New(), now)
	require.NoError(t, tt.Complete(now))

	assert.ErrorIs(t, tt.Schedule(now.Add(time.Hour), "", now), ErrAlreadyTerminal)
	assert.ErrorIs(t, tt.Unschedule(now), ErrAlreadyTerminal)
	assert.ErrorIs(t, tt.Complete(now), ErrAlreadyTerminal)
}

func TestTitleTransfer_ScheduleRequiresDate(t *testing.T) {
	now := time.Now().UTC()
	tt := NewTitleTransfer(uuid.New(), uuid.New(), now)

	err := tt.Schedule(time.Time{}, "", now)
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(err))
	assert.Equal(t, TitleTransferPreparation, tt.Status)
}

func TestTitleTransfer_Validate(t *testing.T) {
	date := time.Now().UTC()

	tests := []struct {
		name     string
		transfer TitleTransfer
		wantErr  bool
	}{
		{name: "preparation without date", transfer: TitleTransfer{Status: TitleTransferPreparation}},
		{name: "scheduled with date", transfer: TitleTransfer{Status: TitleTransferScheduled, ScheduledDate: &date}},
		{name: "scheduled without date", transfer: TitleTransfer{Status: TitleTransferScheduled}, wantErr: true},
		{name: "completed with scheduled date", transfer: TitleTransfer{Status: TitleTransferCompleted, ScheduledDate: &date}, wantErr: true},
		{name: "unknown status", transfer: TitleTransfer{Status: "archived"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.transfer.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
