package reconciliation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestRunner_SweepsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	runner := &Runner{
		Sweep: func(ctx context.Context) (int, error) {
			n := calls.Add(1)
			if n == 2 {
				return 0, errors.New("database unavailable")
			}
			return 1, nil
		},
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
		Log:        logger.NewTestLogger(t),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"a failed sweep must not stop the runner")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunner_RunOnStart(t *testing.T) {
	var calls atomic.Int32
	runner := &Runner{
		Sweep: func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 0, nil
		},
		Interval:   time.Hour,
		RunOnStart: true,
		Log:        logger.NewNoOp(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, int32(1), calls.Load())
}
