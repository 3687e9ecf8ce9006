package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *domain.DashboardSnapshot {
	s := &domain.DashboardSnapshot{
		KPIs: domain.KPIs{InProgress: 3, Rejected: 1, TitleTransfer: 2, Sold: 5, OverdueStages: 1, ActiveTrackers: 3},
		TitleTransferBreakdown: domain.TitleTransferBreakdown{Preparation: 1, Scheduled: 1, Completed: 5},
		GeneratedAt:            time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
	}
	s.StageBreakdown[0] = domain.StageCounts{Completed: 8, Overdue: 1}
	s.StageBreakdown[1] = domain.StageCounts{InProgress: 2}
	return s
}

func TestRedisSnapshotCache_RoundTripAndExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisSnapshotCache(client)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache must miss")

	want := testSnapshot()
	require.NoError(t, c.Set(ctx, want, time.Minute))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.KPIs, got.KPIs)
	assert.Equal(t, want.StageBreakdown, got.StageBreakdown)
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))
	assert.Equal(t, time.Minute, mr.TTL(SnapshotKey))

	mr.FastForward(61 * time.Second)
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "expired snapshot must miss")
}

func TestRedisSnapshotCache_Invalidate(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisSnapshotCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testSnapshot(), time.Minute))
	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists(SnapshotKey))
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSnapshotCache_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("read failure is reported", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet(SnapshotKey).SetErr(errors.New("connection refused"))

		_, ok, err := NewRedisSnapshotCache(client).Get(ctx)

		assert.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt payload is reported", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet(SnapshotKey).SetVal("{not json")

		_, ok, err := NewRedisSnapshotCache(client).Get(ctx)

		assert.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write uses the ttl", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		snapshot := testSnapshot()
		data, err := json.Marshal(snapshot)
		require.NoError(t, err)
		mock.ExpectSet(SnapshotKey, data, 30*time.Second).SetVal("OK")

		assert.NoError(t, NewRedisSnapshotCache(client).Set(ctx, snapshot, 30*time.Second))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMemorySnapshotCache(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	c := NewMemorySnapshotCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, _ := c.Get(ctx)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, testSnapshot(), time.Minute))
	got, ok, _ := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 5, got.KPIs.Sold)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok, "snapshot expires at ttl")

	require.NoError(t, c.Set(ctx, testSnapshot(), time.Minute))
	require.NoError(t, c.Invalidate(ctx))
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok)
}
