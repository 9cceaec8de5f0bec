// Package scheduler owns the long-lived background loops: periodic cleanup
// of expired cache entries and stale rate-limiter state.
package scheduler

import (
	"context"
	"time"

	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/syncer"
)

const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically drops expired page-cache entries and empty
// rate-limiter windows so memory stays bounded between requests.
type Sweeper struct {
	coordinator *syncer.Coordinator
	logger      logger.Logger
	interval    time.Duration
	stopCh      chan struct{}
}

// NewSweeper creates a sweeper over the coordinator's caches.
func NewSweeper(c *syncer.Coordinator, log logger.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		coordinator: c,
		logger:      log,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) sweep() {
	cacheRemoved, limiterRemoved := s.coordinator.Sweep()

	if cacheRemoved > 0 || limiterRemoved > 0 {
		s.logger.Info("sweep completed",
			logger.Int("cache_entries_removed", cacheRemoved),
			logger.Int("limiter_identities_removed", limiterRemoved))
	} else {
		s.logger.Debug("nothing to sweep")
	}
}
