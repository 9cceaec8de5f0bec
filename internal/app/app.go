package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nsmith5/marksync/internal/config"
	"github.com/nsmith5/marksync/internal/httpserver"
	"github.com/nsmith5/marksync/internal/httpserver/deps"
	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/redis"
	"github.com/nsmith5/marksync/internal/scheduler"
	redisstore "github.com/nsmith5/marksync/internal/store/redis"
	"github.com/nsmith5/marksync/internal/syncer"
	"github.com/nsmith5/marksync/internal/upstream"
	"github.com/nsmith5/marksync/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	coordinator *syncer.Coordinator
	sweeper     *scheduler.Sweeper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: without it the process runs, it just starts cold.
	var redisClient *goredis.Client
	var snapshotStore syncer.SnapshotStore
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		snapshotStore = redisstore.NewStore(client, cfg.SnapshotTTL)
	} else {
		loggerClient.Info("Redis not configured, snapshot persistence disabled")
	}

	// Field aliases: built-in table, optionally extended from a YAML file.
	aliases := upstream.DefaultAliases()
	if cfg.AliasFile != "" {
		loaded, err := upstream.LoadAliasFile(cfg.AliasFile, aliases)
		if err != nil {
			loggerClient.Errorf("Failed to load alias file %s: %v", cfg.AliasFile, err)
			os.Exit(1)
		}
		aliases = loaded
		loggerClient.Info("field alias overrides loaded",
			logger.String("file", cfg.AliasFile))
	}

	fetcher := upstream.NewFetcher(upstream.Config{
		BaseURL:    cfg.UpstreamBaseURL,
		Token:      cfg.UpstreamToken,
		StoreID:    cfg.UpstreamStoreID,
		APIVersion: cfg.UpstreamAPIVersion,
		PageSize:   cfg.UpstreamPageSize,
		PageDelay:  cfg.UpstreamPageDelay,
		MaxPages:   cfg.UpstreamMaxPages,
	}, aliases, nil, loggerClient)

	coordinator := syncer.New(fetcher, snapshotStore, syncer.Config{
		CacheTTL:        cfg.PageCacheTTL,
		CacheMaxEntries: cfg.PageCacheMaxSize,
		RateMaxRequests: cfg.RateLimitMax,
		RateWindow:      cfg.RateLimitWindow,
	}, loggerClient)

	// Warm start: seed the working set from the last persisted sync.
	if snapshotStore != nil {
		snap, err := snapshotStore.LoadSnapshot(context.Background())
		switch {
		case err != nil:
			loggerClient.Warn("failed to load snapshot, starting cold",
				logger.Error(err))
		case snap != nil:
			coordinator.Seed(*snap)
			loggerClient.Info("working set seeded from snapshot",
				logger.Int("records", len(snap.Records)),
				logger.Time("synced_at", snap.SyncedAt))
		default:
			loggerClient.Info("no snapshot found, starting cold")
		}
	}

	sweeper := scheduler.NewSweeper(coordinator, loggerClient, cfg.SweepInterval)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Coordinator:  coordinator,
		SiteTitle:    cfg.SiteTitle,
		PageSize:     cfg.APIPageSize,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		coordinator: coordinator,
		sweeper:     sweeper,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting marksync v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("marksync %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.sweeper.Start(ctx)
	a.logger.Info("cache sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ marksync stopped cleanly")
	return nil
}
