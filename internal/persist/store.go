// Package persist stores encoded save slots. Three backends share one
// interface: plain files, SQLite and PostgreSQL.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/l1jgo/worldsave/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a slot has never been written.
	ErrNotFound = errors.New("persist: save slot not found")
	// ErrInvalidName rejects slot names that cannot be stored safely.
	ErrInvalidName = errors.New("persist: invalid save slot name")
)

// Store is slot storage keyed by name.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	// List returns slot names matching a glob pattern, sorted. An empty
	// pattern matches everything.
	List(ctx context.Context, pattern string) ([]string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// ValidateName accepts non-empty names without path separators or a
// leading dot.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	return nil
}

// Open builds the store selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case "file":
		s, err := NewFileStore(cfg.Storage.Dir, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		db, err := NewDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgresStore(db), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// filterNames keeps the names matching pattern and sorts them.
func filterNames(names []string, pattern string) ([]string, error) {
	out := make([]string, 0, len(names))
	if pattern == "" {
		out = append(out, names...)
	} else {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, n := range names {
			if g.Match(n) {
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
