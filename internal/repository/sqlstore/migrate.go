package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/ignite/pixel-tracker/internal/pkg/distlock"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// MigrationLockKey names the lock that serialises migrations across replicas.
const MigrationLockKey = "migrate"

func (s *Store) provider() (*goose.Provider, error) {
	dir, dialect := "migrations/sqlite", database.DialectSQLite3
	if s.dialect == DialectPostgres {
		dir, dialect = "migrations/postgres", database.DialectPostgres
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	p, err := goose.NewProvider(dialect, s.db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Migrate applies every pending migration. When lock is non-nil it is held
// for the duration so concurrent replicas migrate one at a time.
func (s *Store) Migrate(ctx context.Context, lock distlock.DistLock) ([]*goose.MigrationResult, error) {
	if lock != nil {
		if err := distlock.AcquireWait(ctx, lock, 500*time.Millisecond); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release migration lock", "error", err)
			}
		}()
	}

	p, err := s.provider()
	if err != nil {
		return nil, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return results, fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
	}
	return results, nil
}

// MigrationStatus lists every known migration and whether it is applied.
func (s *Store) MigrationStatus(ctx context.Context) ([]*goose.MigrationStatus, error) {
	p, err := s.provider()
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	p, err := s.provider()
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}
