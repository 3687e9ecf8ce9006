package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/simaogato/finflow-backend/internal/domain"
	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/simaogato/finflow-backend/internal/metrics"
)

// DefaultCacheTTL bounds how stale a served snapshot can be
const DefaultCacheTTL = 60 * time.Second

// Service builds the financing dashboard read model
type Service struct {
	TrackerRepo     domain.TrackerRepository
	TransferRepo    domain.TitleTransferRepository
	ReservationRepo domain.ReservationRepository
	Cache           domain.SnapshotCache // optional
	TTL             time.Duration
	Log             logger.Logger
	Now             func() time.Time

	// generation counts invalidations; a snapshot computed across one is not cached
	generation atomic.Uint64
}

// NewService creates a new dashboard Service instance
func NewService(
	trackerRepo domain.TrackerRepository,
	transferRepo domain.TitleTransferRepository,
	reservationRepo domain.ReservationRepository,
	cache domain.SnapshotCache,
	ttl time.Duration,
	log logger.Logger,
) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		TrackerRepo:     trackerRepo,
		TransferRepo:    transferRepo,
		ReservationRepo: reservationRepo,
		Cache:           cache,
		TTL:             ttl,
		Log:             log.WithFields(logger.Fields{"component": "dashboard"}),
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot returns the dashboard, served from cache when fresh
// Logic:
//  1. Return the cached snapshot on a hit
//  2. On a miss (or a cache error) compute from the repositories
//  3. Store the fresh snapshot for TTL, unless an invalidation landed while computing
//
// The generation check covers invalidations made through this Service. Another
// process invalidating the shared cache between compute and Set can still leave
// a stale snapshot cached for up to TTL.
func (s *Service) Snapshot(ctx context.Context) (*domain.DashboardSnapshot, error) {
	gen := s.generation.Load()

	if s.Cache != nil {
		cached, ok, err := s.Cache.Get(ctx)
		switch {
		case err != nil:
			metrics.DashboardCacheResults.WithLabelValues("error").Inc()
			s.Log.Warn("dashboard cache read failed", logger.Fields{"error": err})
		case ok:
			metrics.DashboardCacheResults.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.DashboardCacheResults.WithLabelValues("miss").Inc()
		}
	}

	snapshot, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if s.generation.Load() != gen {
			s.Log.Debug("dashboard invalidated while computing; not caching", nil)
			return snapshot, nil
		}
		if err := s.Cache.Set(ctx, snapshot, s.TTL); err != nil {
			s.Log.Warn("dashboard cache write failed", logger.Fields{"error": err})
		}
	}

	return snapshot, nil
}

// Refresh drops the cached snapshot and recomputes it
func (s *Service) Refresh(ctx context.Context) (*domain.DashboardSnapshot, error) {
	if err := s.Invalidate(ctx); err != nil {
		s.Log.Warn("dashboard cache invalidation failed", logger.Fields{"error": err})
	}
	return s.Snapshot(ctx)
}

// Invalidate drops the cached snapshot so the next read recomputes it
func (s *Service) Invalidate(ctx context.Context) error {
	s.generation.Add(1)
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Invalidate(ctx)
}

// compute aggregates the snapshot from storage
// Logic:
//   - KPIs come from the reservations' credit statuses
//   - Stage breakdown counts every tracker's five stage statuses
//   - OverdueStages sums the overdue column of the breakdown
func (s *Service) compute(ctx context.Context) (*domain.DashboardSnapshot, error) {
	byCredit, err := s.ReservationRepo.CountByCreditStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations by credit status: %w", err)
	}

	breakdown, err := s.TrackerRepo.StageBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stage breakdown: %w", err)
	}

	byOverall, err := s.TrackerRepo.CountByOverallStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count trackers by overall status: %w", err)
	}

	byTransfer, err := s.TransferRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count title transfers by status: %w", err)
	}

	overdue := 0
	for _, c := range breakdown {
		overdue += c.Overdue
	}

	return &domain.DashboardSnapshot{
		KPIs: domain.KPIs{
			InProgress:     byCredit[domain.CreditStatusInProgress],
			Rejected:       byCredit[domain.CreditStatusRejected],
			TitleTransfer:  byCredit[domain.CreditStatusTitleTransfer],
			Sold:           byCredit[domain.CreditStatusSold],
			OverdueStages:  overdue,
			ActiveTrackers: byOverall[domain.OverallStatusInProgress],
		},
		StageBreakdown: breakdown,
		TitleTransferBreakdown: domain.TitleTransferBreakdown{
			Preparation: byTransfer[domain.TitleTransferPreparation],
			Scheduled:   byTransfer[domain.TitleTransferScheduled],
			Completed:   byTransfer[domain.TitleTransferCompleted],
		},
		GeneratedAt: s.Now(),
	}, nil
}
