package cache

import (
	"context"
	"sync"
	"time"

	"github.com/simaogato/finflow-backend/internal/domain"
)

// MemorySnapshotCache keeps the snapshot in process
type MemorySnapshotCache struct {
	mu        sync.Mutex
	snapshot  *domain.DashboardSnapshot
	expiresAt time.Time
	now       func() time.Time
}

// NewMemorySnapshotCache creates an empty in-process cache
func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{now: time.Now}
}

// Get returns the snapshot while it has not expired
func (c *MemorySnapshotCache) Get(ctx context.Context) (*domain.DashboardSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	s := *c.snapshot
	return &s, true, nil
}

// Set stores the snapshot for ttl
func (c *MemorySnapshotCache) Set(ctx context.Context, snapshot *domain.DashboardSnapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := *snapshot
	c.snapshot = &s
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// Invalidate drops the snapshot
func (c *MemorySnapshotCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	return nil
}
