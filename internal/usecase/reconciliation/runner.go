package reconciliation

import (
	"context"
	"time"

	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/simaogato/finflow-backend/internal/metrics"
)

// SweepFunc performs one sweep and returns the number of stages marked
type SweepFunc func(ctx context.Context) (int, error)

// Runner drives a sweep on a fixed interval
type Runner struct {
	Sweep      SweepFunc
	Interval   time.Duration
	RunOnStart bool
	Log        logger.Logger
}

// NewRunner creates a Runner for the given sweeper
func NewRunner(sweeper *Sweeper, interval time.Duration, runOnStart bool, log logger.Logger) *Runner {
	return &Runner{
		Sweep:      sweeper.Run,
		Interval:   interval,
		RunOnStart: runOnStart,
		Log:        log.WithFields(logger.Fields{"component": "reconciliation_runner"}),
	}
}

// Start blocks, sweeping every Interval until ctx is cancelled
func (r *Runner) Start(ctx context.Context) {
	r.Log.Info("reconciliation runner started", logger.Fields{
		"interval":   r.Interval.String(),
		"runOnStart": r.RunOnStart,
	})

	if r.RunOnStart {
		r.runOnce(ctx)
	}

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Log.Info("reconciliation runner stopped", nil)
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	start := time.Now()
	marked, err := r.Sweep(ctx)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.SweepRuns.WithLabelValues("error").Inc()
		r.Log.Error("reconciliation sweep failed", logger.Fields{"error": err})
		return
	}

	metrics.SweepRuns.WithLabelValues("success").Inc()
	r.Log.Debug("reconciliation sweep finished", logger.Fields{
		"stagesMarked": marked,
		"duration":     time.Since(start).String(),
	})
}
