package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/l1jgo/worldsave/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	ok, err := s.Exists(ctx, "slot1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read(ctx, "slot1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, "slot1", []byte("first")))
	require.NoError(t, s.Write(ctx, "slot1", []byte("second")))
	require.NoError(t, s.Write(ctx, "slot2", []byte{0, 1, 2}))
	require.NoError(t, s.Write(ctx, "auto", []byte("a")))

	ok, err = s.Exists(ctx, "slot1")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Read(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"auto", "slot1", "slot2"}, all)

	slots, err := s.List(ctx, "slot*")
	require.NoError(t, err)
	assert.Equal(t, []string{"slot1", "slot2"}, slots)

	require.NoError(t, s.Delete(ctx, "slot2"))
	assert.ErrorIs(t, s.Delete(ctx, "slot2"), ErrNotFound)
	_, err = s.Read(ctx, "slot2")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, bad := range []string{"", "../x", `a\b`, ".hidden"} {
		assert.ErrorIs(t, s.Write(ctx, bad, nil), ErrInvalidName, "name %q", bad)
		_, err := s.Read(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", bad)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	testStoreContract(t, s)
}

func TestFileStore_IgnoresTempAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), "keep", []byte("x")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".keep.123"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)
}

func TestFileStore_ConcurrentWritesSameSlot(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Write(context.Background(), "slot", []byte(fmt.Sprintf("payload-%d", i))))
		}(i)
	}
	wg.Wait()

	data, err := s.Read(context.Background(), "slot")
	require.NoError(t, err)
	assert.Regexp(t, `^payload-\d$`, string(data))
}

func TestFileStore_CanceledContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Write(ctx, "slot", nil), context.Canceled)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "slots.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	testStoreContract(t, s)
}

func TestSQLiteStore_ReopenKeepsSlots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")
	s, err := OpenSQLite(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), "slot", []byte("kept")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(context.Background(), path, nil)
	require.NoError(t, err)
	defer s.Close()
	data, err := s.Read(context.Background(), "slot")
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), data)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("WORLDSAVE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("WORLDSAVE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db))
	_, err = db.Pool.Exec(ctx, `TRUNCATE save_slots`)
	require.NoError(t, err)

	s := NewPostgresStore(db)
	defer s.Close()
	testStoreContract(t, s)
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{Backend: "file", Dir: dir}}
	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	cfg.Storage = config.StorageConfig{Backend: "sqlite", SQLitePath: filepath.Join(dir, "s.db")}
	s, err = Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	cfg.Storage.Backend = "tape"
	_, err = Open(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("slot-1"))
	assert.NoError(t, ValidateName("Autosave 2"))
	assert.ErrorIs(t, ValidateName("a/b"), ErrInvalidName)
	assert.ErrorIs(t, ValidateName(".."), ErrInvalidName)
}
