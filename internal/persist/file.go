package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const slotExt = ".dat"

// FileStore keeps one file per slot in a directory. Writes go to a temp
// file that is renamed over the slot, so a slot is either the old or the
// new blob.
type FileStore struct {
	dir string
	log *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir %s: %w", dir, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{dir: dir, log: log, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+slotExt)
}

// lock serialises writers of one slot.
func (s *FileStore) lock(name string) func() {
	s.mu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := ValidateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat slot %q: %w", name, err)
	}
	return true, nil
}

func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	defer s.lock(name)()

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write slot %q: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write slot %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync slot %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close slot %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit slot %q: %w", name, err)
	}
	s.log.Debug("slot written", zap.String("slot", name), zap.Int("bytes", len(data)))
	return nil
}

func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read slot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", name, err)
	}
	return data, nil
}

func (s *FileStore) List(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, slotExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, slotExt))
	}
	return filterNames(names, pattern)
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	defer s.lock(name)()
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete slot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
