// Package postgres stores destination tables in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the postgres:// driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/storage"
	"github.com/JakeFAU/bag-trend-collector/internal/storage/postgres/migrations"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
	Close()
}

// TableStore implements collector.TableStore over a pgx pool.
type TableStore struct {
	pool pool
}

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*TableStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &TableStore{pool: p}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*TableStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &TableStore{pool: p}, nil
}

// Clear truncates the table. A table that does not exist yet is left alone.
func (s *TableStore) Clear(ctx context.Context, table collector.Table) error {
	if err := storage.ValidateTable(table); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, "TRUNCATE TABLE "+pgx.Identifier{table.Name}.Sanitize()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return nil
		}
		return fmt.Errorf("truncate %s: %w", table.Name, err)
	}
	return nil
}

// Append copies rows into the table.
func (s *TableStore) Append(ctx context.Context, table collector.Table, rows []collector.Row) error {
	if err := storage.ValidateTable(table); err != nil {
		return err
	}
	if err := storage.ValidateRows(table, rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	src := make([][]any, len(rows))
	for i, r := range rows {
		src[i] = []any(r)
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table.Name}, table.Header(), pgx.CopyFromRows(src))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table.Name, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", table.Name, n, len(rows))
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *TableStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// RunMigrations applies every embedded migration to the database at dsn.
func RunMigrations(dsn string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
