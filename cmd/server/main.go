package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/pixel-tracker/internal/api"
	"github.com/ignite/pixel-tracker/internal/botdetect"
	"github.com/ignite/pixel-tracker/internal/config"
	"github.com/ignite/pixel-tracker/internal/pkg/distlock"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
	"github.com/ignite/pixel-tracker/internal/repository/sqlstore"
	"github.com/ignite/pixel-tracker/internal/service/activity"
	"github.com/ignite/pixel-tracker/internal/service/pixel"
	"github.com/ignite/pixel-tracker/internal/service/recorder"
	"github.com/ignite/pixel-tracker/internal/tracking"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default config/config.yaml if present)")
	flag.Parse()

	cfg, err := config.LoadFromEnv(config.ResolvePath(*configPath))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		RedactPII: cfg.Logging.RedactPII,
	})

	if err := run(cfg); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:       cfg.Store.Driver,
		SQLitePath:   cfg.Store.SQLitePath,
		DatabaseURL:  cfg.Store.DatabaseURL,
		MaxOpenConns: cfg.Store.MaxOpenConns,
	})
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store opened", "driver", string(store.Dialect()))

	redisClient := connectRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.Store.AutoMigrate {
		lock := distlock.NewLock(redisClient, store.DB(), string(store.Dialect()), sqlstore.MigrationLockKey, 2*time.Minute)
		migrateCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		results, err := store.Migrate(migrateCtx, lock)
		cancel()
		if err != nil {
			return err
		}
		version, _ := store.SchemaVersion(ctx)
		logger.Info("schema migrated", "applied", len(results), "version", version)
	}

	classifier, err := newClassifier(cfg.Tracking.BotRulesPath)
	if err != nil {
		return err
	}

	trusted, err := tracking.ParseTrustedProxies(cfg.Tracking.TrustedProxies)
	if err != nil {
		return err
	}

	var notifier recorder.Notifier
	var publisher *tracking.Publisher
	if cfg.Events.Enabled() {
		publisher, err = tracking.NewSQSPublisher(ctx, cfg.Events.SQSQueueURL, cfg.Events.AWSRegion)
		if err != nil {
			return err
		}
		notifier = publisher
		logger.Info("open notifications enabled", "queue", cfg.Events.SQSQueueURL)
	}

	pixels := pixel.NewService(store, cfg.Server.BaseURL())
	rec := recorder.NewService(store, classifier, notifier)
	reporter := activity.NewService(store, activity.Limits{
		Default: cfg.API.DefaultLimit,
		Max:     cfg.API.MaxLimit,
	})

	server := api.NewServer(
		api.NewHandlers(pixels, reporter),
		tracking.NewHandler(rec, cfg.Tracking.WriteTimeout(), trusted...),
		api.RouteOptions{
			APIKey:             cfg.Auth.APIKey,
			CORSAllowedOrigins: cfg.API.CORSAllowedOrigins,
			RateLimitPerMinute: cfg.API.RateLimitPerMinute,
		},
		api.ServerOptions{
			Addr:         cfg.Server.Addr(),
			ReadTimeout:  cfg.Server.ReadTimeout(),
			WriteTimeout: cfg.Server.WriteTimeout(),
			IdleTimeout:  cfg.Server.IdleTimeout(),
		},
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pixel tracker listening", "addr", cfg.Server.Addr(), "public_base_url", cfg.Server.BaseURL())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(shutdownCtx); err != nil {
			logger.Warn("open notifications not drained", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func newClassifier(rulesPath string) (*botdetect.Classifier, error) {
	if rulesPath == "" {
		return botdetect.NewDefault(), nil
	}
	rules, err := botdetect.LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	logger.Info("bot rules loaded", "path", rulesPath,
		"user_agents", len(rules.UserAgents), "ip_prefixes", len(rules.IPPrefixes))
	return botdetect.New(rules), nil
}

// connectRedis returns nil when url is empty or unreachable; the migration
// lock then falls back to the store.
func connectRedis(ctx context.Context, url string) *redis.Client {
	client, err := distlock.ConnectRedis(ctx, url)
	if err != nil {
		logger.Warn("redis unreachable, using store-backed migration lock", "error", err)
		return nil
	}
	if client != nil {
		logger.Info("redis connected")
	}
	return client
}
