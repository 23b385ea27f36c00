package cli

import (
	"context"
	"time"

	"github.com/ignite/pixel-tracker/internal/botdetect"
	"github.com/ignite/pixel-tracker/internal/config"
	"github.com/ignite/pixel-tracker/internal/pkg/distlock"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
	"github.com/ignite/pixel-tracker/internal/repository/sqlstore"
	"github.com/ignite/pixel-tracker/internal/service/activity"
	"github.com/ignite/pixel-tracker/internal/service/pixel"
)

// env is the store and services one command runs against.
type env struct {
	store    *sqlstore.Store
	pixels   *pixel.Service
	reporter *activity.Service
}

func (e *env) Close() error { return e.store.Close() }

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.LoadFromEnv(config.ResolvePath(opts.ConfigPath))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.SQLitePath = opts.Database
	}
	return cfg, nil
}

func openEnv(ctx context.Context, opts *RootOptions) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	st, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:       cfg.Store.Driver,
		SQLitePath:   cfg.Store.SQLitePath,
		DatabaseURL:  cfg.Store.DatabaseURL,
		MaxOpenConns: 2,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	if cfg.Store.AutoMigrate {
		redisClient, err := distlock.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unreachable, using store-backed migration lock", "error", err)
		}
		lock := distlock.NewLock(redisClient, st.DB(), string(st.Dialect()), sqlstore.MigrationLockKey, time.Minute)
		_, err = st.Migrate(ctx, lock)
		if redisClient != nil {
			redisClient.Close()
		}
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitFailure, "failed to migrate database", err)
		}
	}

	return &env{
		store:  st,
		pixels: pixel.NewService(st, cfg.Server.BaseURL()),
		reporter: activity.NewService(st, activity.Limits{
			Default: cfg.API.DefaultLimit,
			Max:     cfg.API.MaxLimit,
		}),
	}, nil
}

// loadClassifier returns the classifier for rulesPath, falling back to the
// configured rules file and then the built-in rules.
func loadClassifier(opts *RootOptions, rulesPath string) (*botdetect.Classifier, error) {
	if rulesPath == "" {
		cfg, err := loadConfig(opts)
		if err != nil {
			return nil, err
		}
		rulesPath = cfg.Tracking.BotRulesPath
	}
	if rulesPath == "" {
		return botdetect.NewDefault(), nil
	}
	rules, err := botdetect.LoadRules(rulesPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load bot rules", err)
	}
	return botdetect.New(rules), nil
}
