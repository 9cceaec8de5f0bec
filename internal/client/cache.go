package client

import (
	"fmt"
	"time"

	"github.com/nsmith5/marksync/internal/cache"
)

const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheMaxSize = 50
)

// ResponseCache caches decoded bookmark pages by request identity, with the
// same TTL-expiry and FIFO-eviction rules as the server-side page cache.
type ResponseCache struct {
	*cache.Cache[BookmarkPage]
}

// NewResponseCache creates a response cache. Non-positive arguments fall back
// to defaults.
func NewResponseCache(ttl time.Duration, maxSize int) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}
	return &ResponseCache{Cache: cache.New[BookmarkPage](ttl, maxSize)}
}

// PageKey is the request identity for one bookmark page.
func PageKey(page, pageSize int) string {
	return fmt.Sprintf("bookmarks:page=%d:size=%d", page, pageSize)
}
