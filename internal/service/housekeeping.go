package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/quokkahq/tokenforge/internal/store"
	"github.com/quokkahq/tokenforge/pkg/httpx"
)

// HousekeepingService periodically removes dead token records and prunes
// idle rate-limit buckets to prevent unbounded growth of either.
type HousekeepingService struct {
	Store    store.Store
	Limiter  *httpx.RateLimiter
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, limiter *httpx.RateLimiter, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Limiter:  limiter,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs one housekeeping pass. The two steps are independent; a
// failure in one does not stop the other.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Info("starting housekeeping cleanup")

	deleted, err := s.Store.Tokens().DeleteExpiredOrRevoked(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired or revoked tokens", "error", err)
	} else {
		s.Logger.Debug("deleted dead token records", "count", deleted)
	}

	var pruned int
	if s.Limiter != nil {
		pruned = s.Limiter.PruneIdle()
		s.Logger.Debug("pruned idle rate-limit buckets", "count", pruned)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"tokens_deleted", deleted,
		"buckets_pruned", pruned,
	)
}
