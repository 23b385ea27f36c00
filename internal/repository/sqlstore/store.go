package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// Dialect names a supported database/sql driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// sqliteParams enables WAL so readers never block on the writer, waits on
// lock contention instead of failing, and enforces the open_events foreign key.
const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_synchronous=NORMAL"

// Config selects and tunes the backing database.
type Config struct {
	Driver       string
	SQLitePath   string
	DatabaseURL  string
	MaxOpenConns int
}

// Store implements the repositories of the pixel, recorder and activity
// services on database/sql. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

// Open connects to the configured database and verifies the connection. It
// does not migrate; call Migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect := DialectSQLite
	dsn := ""
	switch cfg.Driver {
	case "postgres", "postgresql":
		dialect = DialectPostgres
		dsn = cfg.DatabaseURL
		if dsn == "" {
			return nil, errors.New("open store: postgres driver requires a database url")
		}
	case "", "sqlite", "sqlite3":
		path := cfg.SQLitePath
		if path == "" {
			path = "data/pixel-tracker.db"
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("open store: create data dir: %w", err)
			}
		}
		dsn = path + "?" + sqliteParams
	default:
		return nil, fmt.Errorf("open store: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: ping: %w", err)
	}
	return New(db, dialect), nil
}

// New wraps an existing handle. Used by Open and by tests with sqlmock.
func New(db *sql.DB, dialect Dialect) *Store {
	var ph sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		ph = sq.Dollar
	}
	return &Store{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(ph),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports which driver the store runs on.
func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// readTxOptions returns options for a consistent read-only snapshot. SQLite
// transactions in WAL mode already read from one snapshot and the driver
// rejects isolation levels, so it gets the defaults.
func (s *Store) readTxOptions() *sql.TxOptions {
	if s.dialect == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23503"
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// nullTime scans a nullable timestamp. SQLite has no declared type for an
// aggregate over a DATETIME column, so go-sqlite3 hands back the stored text
// and it is parsed with the driver's own layouts.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}

	text = strings.TrimSuffix(text, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognized value %q", text)
}

func (n nullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
