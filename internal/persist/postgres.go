package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/l1jgo/worldsave/internal/config"
	"go.uber.org/zap"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies all pending PostgreSQL migrations.
func RunMigrations(ctx context.Context, db *DB) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()
	return runMigrations(ctx, sqlDB, "postgres", "migrations/postgres")
}

// PostgresStore keeps slots in the save_slots table.
type PostgresStore struct {
	db *DB
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	var ok bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM save_slots WHERE name = $1)`, name,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check slot %q: %w", name, err)
	}
	return ok, nil
}

func (s *PostgresStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO save_slots (name, data, size, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (name) DO UPDATE
		 SET data = EXCLUDED.data, size = EXCLUDED.size, updated_at = EXCLUDED.updated_at`,
		name, data, len(data),
	)
	if err != nil {
		return fmt.Errorf("write slot %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT data FROM save_slots WHERE name = $1`, name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("read slot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", name, err)
	}
	return data, nil
}

func (s *PostgresStore) List(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT name FROM save_slots`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return filterNames(names, pattern)
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM save_slots WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete slot %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
