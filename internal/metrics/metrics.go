// Package metrics declares the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_stage_transitions_total",
			Help: "Financing stage transitions by stage and resulting status",
		},
		[]string{"stage", "status"},
	)

	FinancingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_outcomes_total",
			Help: "Financing trackers reaching a terminal status",
		},
		[]string{"status"},
	)

	TitleTransferTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "title_transfer_transitions_total",
			Help: "Title transfer transitions by resulting status",
		},
		[]string{"status"},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_sweep_runs_total",
			Help: "Reconciliation sweep runs by result",
		},
		[]string{"result"},
	)

	SweepStagesMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliation_sweep_stages_overdue_total",
			Help: "Stages flagged overdue by the reconciliation sweep",
		},
	)

	SweepTrackerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliation_sweep_tracker_failures_total",
			Help: "Trackers the sweep failed to update",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconciliation_sweep_duration_seconds",
			Help:    "Duration of a reconciliation sweep run",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notification dispatch failures by event type",
		},
		[]string{"event_type"},
	)

	DashboardCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_requests_total",
			Help: "Dashboard snapshot cache lookups by result",
		},
		[]string{"result"},
	)
)
