// Package store persists incidents, fitted surfaces, count matrices and
// backtest runs in a sqlite database whose schema is managed by
// golang-migrate. Surfaces and matrices are stored as opaque gob+gzip
// blobs keyed by name.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a named record does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the sqlite connection.
type Store struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := OpenNoMigrate(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenNoMigrate opens the database without touching its schema. The
// migrate subcommand uses it.
func OpenNoMigrate(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return &Store{DB: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used for created_at timestamps.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// MigrateUp applies all pending migrations.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (s *Store) MigrateDown() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied version and dirty flag. A database
// with no migrations reports 0, false.
func (s *Store) MigrateVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrate builds a migrate instance over the embedded migrations. The
// instance is not closed because that would close the shared connection.
func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }
