package domain

import (
	"context"
	"time"
)

// StageCounts counts trackers per status for one stage
type StageCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}

// Add increments the counter matching status
func (c *StageCounts) Add(status StageStatus, n int) {
	switch status {
	case StageStatusPending:
		c.Pending += n
	case StageStatusInProgress:
		c.InProgress += n
	case StageStatusCompleted:
		c.Completed += n
	case StageStatusOverdue:
		c.Overdue += n
	}
}

// StageBreakdown holds StageCounts for stages 1..5, index 0 is stage 1
type StageBreakdown [StageCount]StageCounts

// TitleTransferBreakdown counts title transfers per phase
type TitleTransferBreakdown struct {
	Preparation int `json:"preparation"`
	Scheduled   int `json:"scheduled"`
	Completed   int `json:"completed"`
}

// KPIs are the headline dashboard numbers
type KPIs struct {
	InProgress     int `json:"in_progress"`
	Rejected       int `json:"rejected"`
	TitleTransfer  int `json:"title_transfer"`
	Sold           int `json:"sold"`
	OverdueStages  int `json:"overdue_stages"`
	ActiveTrackers int `json:"active_trackers"`
}

// DashboardSnapshot is the cached read model served to the dashboard
type DashboardSnapshot struct {
	KPIs                   KPIs                   `json:"kpis"`
	StageBreakdown         StageBreakdown         `json:"stage_breakdown"`
	TitleTransferBreakdown TitleTransferBreakdown `json:"title_transfer_breakdown"`
	GeneratedAt            time.Time              `json:"generated_at"`
}

// DashboardInvalidator drops cached dashboard data after a state change
type DashboardInvalidator interface {
	Invalidate(ctx context.Context) error
}

// SnapshotCache stores the dashboard snapshot for a bounded time
type SnapshotCache interface {
	// Get returns the cached snapshot; ok is false on a miss
	Get(ctx context.Context) (snapshot *DashboardSnapshot, ok bool, err error)

	// Set stores the snapshot for ttl
	Set(ctx context.Context, snapshot *DashboardSnapshot, ttl time.Duration) error

	// Invalidate drops the cached snapshot
	Invalidate(ctx context.Context) error
}
