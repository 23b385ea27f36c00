package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ignite/pixel-tracker/internal/config"
	"github.com/ignite/pixel-tracker/internal/pkg/distlock"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
	"github.com/ignite/pixel-tracker/internal/repository/sqlstore"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default config/config.yaml if present)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	status := flag.Bool("status", false, "list migrations and whether they are applied")
	version := flag.Bool("version", false, "print the current schema version")
	flag.Parse()

	cfg, err := config.LoadFromEnv(config.ResolvePath(*configPath))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: "console", RedactPII: true})
	if *dbPath != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.SQLitePath = *dbPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:      cfg.Store.Driver,
		SQLitePath:  cfg.Store.SQLitePath,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
	if err != nil {
		logger.Error("connect", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *version:
		v, err := store.SchemaVersion(ctx)
		if err != nil {
			logger.Error("schema version", "error", err)
			os.Exit(1)
		}
		fmt.Println(v)

	case *status:
		statuses, err := store.MigrationStatus(ctx)
		if err != nil {
			logger.Error("migration status", "error", err)
			os.Exit(1)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		tw.Flush()

	default:
		redisClient, err := distlock.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unreachable, using store-backed migration lock", "error", err)
		}
		if redisClient != nil {
			defer redisClient.Close()
		}
		lock := distlock.NewLock(redisClient, store.DB(), string(store.Dialect()), sqlstore.MigrationLockKey, 5*time.Minute)
		results, err := store.Migrate(ctx, lock)
		for _, r := range results {
			fmt.Printf("  %s ... %s (%s)\n", r.Source.Path, outcome(r.Error), r.Duration.Round(time.Millisecond))
		}
		if err != nil {
			logger.Error("migrate", "error", err)
			os.Exit(1)
		}
		v, _ := store.SchemaVersion(ctx)
		fmt.Printf("Done: %d applied, schema version %d\n", len(results), v)
	}
}

func outcome(err error) string {
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK"
}
