package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema for the attendance mirror
type Migrator struct {
	m  *migrate.Migrate
	db *sql.DB // owned when opened from a URL
}

// OpenMigrator connects to dsn and prepares a migrator; Close releases the connection
func OpenMigrator(ctx context.Context, dsn string) (*Migrator, error) {
	name, err := DatabaseName(dsn)
	if err != nil {
		return nil, err
	}

	db, err := OpenSQL(ctx, dsn)
	if err != nil {
		return nil, err
	}

	m, err := NewMigrator(db, name)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	m.db = db
	return m, nil
}

func NewMigrator(db *sql.DB, dbName string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		DatabaseName:    dbName,
		MigrationsTable: "chamada_schema_migrations",
	})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("migrator for %s: %w", dbName, err)
	}

	return &Migrator{m: m}, nil
}

// WithLogger routes golang-migrate's progress lines to logger at Debug
func (m *Migrator) WithLogger(logger *slog.Logger) *Migrator {
	m.m.Log = migrateLog{logger: logger.With("component", "migrate")}
	return m
}

// Up applies every pending migration and reports whether anything ran
func (m *Migrator) Up() (bool, error) {
	switch err := m.m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("apply migrations: %w", err)
	}
	return true, nil
}

// Down rolls back the last migration
func (m *Migrator) Down() error {
	return m.Steps(-1)
}

// Steps moves n migrations forward, or back when n is negative
func (m *Migrator) Steps(n int) error {
	if n == 0 {
		return nil
	}
	if err := m.m.Steps(n); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate %+d steps: %w", n, err)
	}
	return nil
}

// Version returns the applied schema version; 0 when none has run
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("schema version: %w", err)
	}
	return version, dirty, nil
}

// Force marks version as applied and clean without running anything.
// -1 means no migration.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force schema version %d: %w", version, err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if m.db != nil {
		_ = m.db.Close()
	}
	return errors.Join(srcErr, dbErr)
}

// migrateLog adapts slog to migrate.Logger
type migrateLog struct {
	logger *slog.Logger
}

func (l migrateLog) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLog) Verbose() bool {
	return false
}
