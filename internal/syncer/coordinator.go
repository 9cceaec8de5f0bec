// Package syncer orchestrates upstream synchronization behind a page cache,
// a per-identity rate limiter and a single-flight guard.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nsmith5/marksync/internal/cache"
	"github.com/nsmith5/marksync/internal/domain"
	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/ratelimit"
	redisstore "github.com/nsmith5/marksync/internal/store/redis"
)

const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 100
	DefaultRateMaxRequests = 30
	DefaultRateWindow      = time.Minute
)

// Fetcher retrieves the complete upstream record set in one pass.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]domain.BookmarkRecord, error)
}

// SnapshotStore persists the working set across restarts. Optional.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap redisstore.Snapshot) error
	LoadSnapshot(ctx context.Context) (*redisstore.Snapshot, error)
	DeleteSnapshot(ctx context.Context) error
}

// Config tunes caching and rate limiting.
type Config struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	RateMaxRequests int
	RateWindow      time.Duration
}

// PageResult is one page of the working set plus pagination metadata.
type PageResult struct {
	Data        []domain.BookmarkRecord
	TotalCount  int
	TotalPages  int
	CurrentPage int
	HasMore     bool
	FromCache   bool
}

// Coordinator owns the server-side sync state: the page cache, the sliding
// window rate limiter and the single-flight flag guaranteeing at most one
// in-flight upstream fetch.
type Coordinator struct {
	fetcher Fetcher
	pages   *cache.Cache[PageResult]
	limiter *ratelimit.Limiter
	store   SnapshotStore // nil = snapshot persistence disabled
	logger  logger.Logger
	ttl     time.Duration
	now     func() time.Time

	mu           sync.Mutex
	records      []domain.BookmarkRecord
	lastSyncTime time.Time
	isSyncing    bool
}

// New creates a coordinator. store may be nil.
func New(fetcher Fetcher, store SnapshotStore, cfg Config, log logger.Logger) *Coordinator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = DefaultCacheMaxEntries
	}
	if cfg.RateMaxRequests <= 0 {
		cfg.RateMaxRequests = DefaultRateMaxRequests
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = DefaultRateWindow
	}
	return &Coordinator{
		fetcher: fetcher,
		pages:   cache.New[PageResult](cfg.CacheTTL, cfg.CacheMaxEntries),
		limiter: ratelimit.New(ratelimit.Config{MaxRequests: cfg.RateMaxRequests, Window: cfg.RateWindow}),
		store:   store,
		logger:  log,
		ttl:     cfg.CacheTTL,
		now:     time.Now,
	}
}

// GetBookmarks serves one page of the working set for the given client
// identity.
//
// Order of checks: rate limit first (a rejected request does no other work),
// then the page cache, then the working-set freshness shortcut, and only then
// an upstream fetch guarded by the single-flight flag. forceRefresh bypasses
// both cache layers but not the rate limiter.
func (c *Coordinator) GetBookmarks(ctx context.Context, identity string, page, pageSize int, forceRefresh bool) (*PageResult, error) {
	if ok, retryAfter := c.limiter.Allow(identity); !ok {
		c.logger.Warn("rate limited",
			logger.String("identity", identity),
			logger.Duration("retry_after", retryAfter))
		return nil, domain.NewError(domain.KindRateLimited,
			fmt.Sprintf("identity %s exceeded the request window", identity))
	}

	key := pageKey(page, pageSize)

	if !forceRefresh {
		if result, ok := c.pages.Get(key); ok {
			result.FromCache = true
			return &result, nil
		}
		// The page cache missed but the working set itself may still be
		// fresh; slice it instead of refetching the whole store.
		if result, ok := c.sliceFresh(page, pageSize); ok {
			c.pages.Set(key, *result)
			result.FromCache = true
			return result, nil
		}
	}

	if !c.beginSync() {
		return nil, domain.NewError(domain.KindSyncInProgress, "an upstream fetch is already running")
	}
	defer c.endSync()

	start := c.now()
	records, err := c.fetcher.FetchAll(ctx)
	if err != nil {
		c.logger.Error("upstream fetch failed",
			logger.String("kind", string(domain.KindOf(err))),
			logger.Error(err))
		return nil, err
	}

	c.mu.Lock()
	c.records = records
	c.lastSyncTime = c.now()
	c.mu.Unlock()

	c.logger.Info("sync completed",
		logger.Int("records", len(records)),
		logger.Duration("duration", c.now().Sub(start)))

	c.saveSnapshot(ctx, records)

	result := slicePage(records, page, pageSize)
	c.pages.Set(key, result)
	return &result, nil
}

// Seed installs a previously persisted working set, typically at startup.
func (c *Coordinator) Seed(snap redisstore.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = snap.Records
	c.lastSyncTime = snap.SyncedAt
}

// ClearCache drops the page cache, marks the working set stale and discards
// the persisted snapshot, so the next request goes upstream and a restart
// cannot re-seed from discarded data.
func (c *Coordinator) ClearCache(ctx context.Context) {
	c.pages.Clear()
	c.mu.Lock()
	c.lastSyncTime = time.Time{}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DeleteSnapshot(ctx); err != nil {
			c.logger.Warn("failed to delete snapshot", logger.Error(err))
		}
	}
}

// Sweep drops expired cache entries and idle rate-limit windows.
// Called by the background sweeper.
func (c *Coordinator) Sweep() (cacheRemoved, limiterRemoved int) {
	return c.pages.Sweep(), c.limiter.Sweep()
}

// LastSyncTime returns when the working set was last replaced.
func (c *Coordinator) LastSyncTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSyncTime
}

// CacheSize returns the number of cached pages.
func (c *Coordinator) CacheSize() int {
	return c.pages.Len()
}

// beginSync atomically checks and sets the single-flight flag.
func (c *Coordinator) beginSync() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isSyncing {
		return false
	}
	c.isSyncing = true
	return true
}

func (c *Coordinator) endSync() {
	c.mu.Lock()
	c.isSyncing = false
	c.mu.Unlock()
}

// sliceFresh serves a page from the in-memory working set when it is still
// within the TTL.
func (c *Coordinator) sliceFresh(page, pageSize int) (*PageResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSyncTime.IsZero() || c.now().Sub(c.lastSyncTime) >= c.ttl {
		return nil, false
	}
	result := slicePage(c.records, page, pageSize)
	return &result, true
}

func (c *Coordinator) saveSnapshot(ctx context.Context, records []domain.BookmarkRecord) {
	if c.store == nil {
		return
	}
	snap := redisstore.Snapshot{Records: records, SyncedAt: c.LastSyncTime()}
	if err := c.store.SaveSnapshot(ctx, snap); err != nil {
		// Snapshot persistence is best effort; memory is the primary source.
		c.logger.Warn("failed to save snapshot", logger.Error(err))
	}
}

func pageKey(page, pageSize int) string {
	return fmt.Sprintf("page=%d:size=%d", page, pageSize)
}

func slicePage(records []domain.BookmarkRecord, page, pageSize int) PageResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	data := make([]domain.BookmarkRecord, end-start)
	copy(data, records[start:end])

	return PageResult{
		Data:        data,
		TotalCount:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		HasMore:     page < totalPages,
	}
}
