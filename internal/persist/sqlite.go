package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps slots in the save_slots table of a SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the embedded migrations.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := "file:" + clean + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := runMigrations(ctx, db, "sqlite3", "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("sqlite store ready", zap.String("path", clean))
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM save_slots WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check slot %q: %w", name, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO save_slots (name, data, size, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE
		 SET data = excluded.data, size = excluded.size, updated_at = excluded.updated_at`,
		name, data, len(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write slot %q: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM save_slots WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read slot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", name, err)
	}
	return data, nil
}

func (s *SQLiteStore) List(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM save_slots`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return filterNames(names, pattern)
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM save_slots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete slot %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
