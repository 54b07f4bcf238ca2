package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	sqlGet = `SELECT value, expires_at FROM cache_entries WHERE key = ?`
	sqlSet = `INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`
	sqlDelete = `DELETE FROM cache_entries WHERE key = ?`
	sqlEvict  = `DELETE FROM cache_entries WHERE expires_at > 0 AND expires_at <= ?`
)

// SQLite is a Store backed by an embedded SQLite database in WAL mode.
// Several processes on one host can share the same database file.
// Expiry is stored as Unix nanoseconds; 0 means no expiry.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLite opens (or creates) the database at dbPath and applies pending
// schema migrations. Use ":memory:" for tests.
func NewSQLite(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening token cache database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serialises
	// writers inside this process.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, logger: logger, now: time.Now}, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("cache: %s: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("cache: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("cache: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("cache: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		exp   int64
	)

	err := s.db.QueryRowContext(ctx, sqlGet, key).Scan(&value, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("cache: get %q: %w", key, err)
	}

	if exp > 0 && s.now().UnixNano() >= exp {
		return "", false, nil
	}

	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if _, err := s.db.ExecContext(ctx, sqlSet, key, value, s.deadline(ttl)); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}

	return nil
}

// SetMany writes all entries in one transaction.
func (s *SQLite) SetMany(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: begin: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, sqlSet, e.Key, e.Value, s.deadline(e.TTL)); err != nil {
			return fmt.Errorf("cache: set %q: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: commit: %w", err)
	}

	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, sqlDelete, key); err != nil {
		return fmt.Errorf("cache: delete %q: %w", key, err)
	}

	return nil
}

func (s *SQLite) EvictExpired(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, sqlEvict, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("cache: evict: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("evicted expired cache entries", slog.Int64("count", n))
	}

	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) deadline(ttl time.Duration) int64 {
	d := expiresAt(s.now(), ttl)
	if d.IsZero() {
		return 0
	}

	return d.UnixNano()
}
