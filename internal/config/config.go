package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	SiteTitle string // shown in the /api/config payload

	// Upstream record store
	UpstreamBaseURL    string        // ex: https://api.notion.com
	UpstreamToken      string        // integration token, sent as a Bearer header
	UpstreamStoreID    string        // database identifier to query
	UpstreamAPIVersion string        // wire protocol version header
	UpstreamPageSize   int           // records requested per page (max 100)
	UpstreamPageDelay  time.Duration // pause between successive page requests
	UpstreamMaxPages   int           // hard ceiling on pages per sync (0 = default)
	AliasFile          string        // optional YAML file overriding field aliases

	// API pagination
	APIPageSize int // default page size when a client omits limit

	// Server-side page cache
	PageCacheTTL     time.Duration // how long a cached page stays fresh
	PageCacheMaxSize int           // FIFO eviction beyond this many pages

	// Per-client rate limiting
	RateLimitMax    int           // requests allowed per window
	RateLimitWindow time.Duration // sliding window size
	SweepInterval   time.Duration // background cleanup of caches and limiter state

	// Redis snapshot store (optional, empty addr disables it)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between connect retries
	RedisPingTimeout    time.Duration
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries (grows exponentially)
	SnapshotTTL         time.Duration // how long a warm-start snapshot survives

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKSYNC_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKSYNC_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARKSYNC_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKSYNC_PRETTY_LOG", true),

		SiteTitle: getenv("MARKSYNC_SITE_TITLE", "Bookmarks"),

		// Upstream store
		UpstreamBaseURL:    getenv("MARKSYNC_UPSTREAM_BASE_URL", "https://api.notion.com"),
		UpstreamToken:      requireEnv("MARKSYNC_UPSTREAM_TOKEN"),
		UpstreamStoreID:    requireEnv("MARKSYNC_UPSTREAM_STORE_ID"),
		UpstreamAPIVersion: getenv("MARKSYNC_UPSTREAM_API_VERSION", "2022-06-28"),
		UpstreamPageSize:   getenvInt("MARKSYNC_UPSTREAM_PAGE_SIZE", 100),
		UpstreamPageDelay:  mustDuration("MARKSYNC_UPSTREAM_PAGE_DELAY", 350*time.Millisecond),
		UpstreamMaxPages:   getenvInt("MARKSYNC_UPSTREAM_MAX_PAGES", 50),
		AliasFile:          getenv("MARKSYNC_UPSTREAM_ALIAS_FILE", ""), // Optional, empty = built-in aliases only

		// API pagination
		APIPageSize: getenvInt("MARKSYNC_API_PAGE_SIZE", 50),

		// Page cache
		PageCacheTTL:     mustDuration("MARKSYNC_PAGE_CACHE_TTL", 5*time.Minute),
		PageCacheMaxSize: getenvInt("MARKSYNC_PAGE_CACHE_MAX_SIZE", 100),

		// Rate limiting
		RateLimitMax:    getenvInt("MARKSYNC_RATE_LIMIT_MAX", 30),
		RateLimitWindow: mustDuration("MARKSYNC_RATE_LIMIT_WINDOW", time.Minute),
		SweepInterval:   mustDuration("MARKSYNC_SWEEP_INTERVAL", 5*time.Minute),

		// Redis settings
		RedisAddr:           getenv("MARKSYNC_REDIS_ADDR", ""), // Optional, empty = snapshots disabled
		RedisUser:           getenv("MARKSYNC_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("MARKSYNC_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MARKSYNC_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		SnapshotTTL:         mustDuration("MARKSYNC_SNAPSHOT_TTL", 48*time.Hour),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MARKSYNC_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("MARKSYNC_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MARKSYNC_TRUST_PROXY", true),
	}

	if cfg.UpstreamPageSize < 1 || cfg.UpstreamPageSize > 100 {
		panic(fmt.Sprintf("❌ FATAL: MARKSYNC_UPSTREAM_PAGE_SIZE must be between 1 and 100, got %d", cfg.UpstreamPageSize))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.UpstreamToken = "***REDACTED***"
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
