package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/novel-engine/internal/config"
	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	r, err := NewRedisStorage("redis://"+mr.Addr(), testLogger())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	return r, mr
}

// exerciseStorage runs the behaviour every backend shares.
func exerciseStorage(t *testing.T, s storage.Storage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	data, err := s.Get(ctx, "novel:save:0")
	require.NoError(t, err)
	assert.Nil(t, data, "missing key returns nil")

	require.NoError(t, s.Put(ctx, "novel:save:0", []byte(`{"slot":0}`)))
	require.NoError(t, s.Put(ctx, "novel:save:2", []byte(`{"slot":2}`)))
	require.NoError(t, s.Put(ctx, "novel:settings", []byte(`{"volume":0.5}`)))
	require.NoError(t, s.Put(ctx, "novel:save:0", []byte(`{"slot":0,"v":2}`)))

	data, err = s.Get(ctx, "novel:save:0")
	require.NoError(t, err)
	assert.JSONEq(t, `{"slot":0,"v":2}`, string(data))

	keys, err := s.Keys(ctx, "novel:save:")
	require.NoError(t, err)
	assert.Equal(t, []string{"novel:save:0", "novel:save:2"}, keys)

	require.NoError(t, s.Delete(ctx, "novel:save:0"))
	require.NoError(t, s.Delete(ctx, "novel:save:0"))
	data, err = s.Get(ctx, "novel:save:0")
	require.NoError(t, err)
	assert.Nil(t, data)

	keys, err = s.Keys(ctx, "novel:")
	require.NoError(t, err)
	assert.Equal(t, []string{"novel:save:2", "novel:settings"}, keys)
}

func TestRedisStorage(t *testing.T) {
	r, mr := setupTestRedis(t)
	defer mr.Close()
	defer r.Close()

	exerciseStorage(t, r)

	// Records never expire.
	mr.FastForward(48 * time.Hour)
	data, err := r.Get(context.Background(), "novel:save:2")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	r, mr := setupTestRedis(t)
	defer r.Close()

	require.NoError(t, r.WaitForConnection(context.Background(), 3, time.Millisecond))

	mr.Close()
	err := r.WaitForConnection(context.Background(), 2, time.Millisecond)
	assert.Error(t, err)
}

func TestFileStorage(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			f, err := NewFileStorage(t.TempDir(), compress, testLogger())
			require.NoError(t, err)
			exerciseStorage(t, f)
		})
	}
}

func TestFileStorage_SwitchingCompression(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	plain, err := NewFileStorage(dir, false, testLogger())
	require.NoError(t, err)
	require.NoError(t, plain.Put(ctx, "save:1", []byte(`{"a":1}`)))

	packed, err := NewFileStorage(dir, true, testLogger())
	require.NoError(t, err)
	data, err := packed.Get(ctx, "save:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data), "compressed storage reads plain records")

	require.NoError(t, packed.Put(ctx, "save:1", []byte(`{"a":2}`)))
	_, err = os.Stat(filepath.Join(dir, "save:1.json"))
	assert.True(t, os.IsNotExist(err), "stale plain record removed")

	data, err = plain.Get(ctx, "save:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data), "plain storage reads compressed records")

	keys, err := plain.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"save:1"}, keys)
}

func TestFileStorage_KeysAreEscaped(t *testing.T) {
	f, err := NewFileStorage(t.TempDir(), false, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, "../escape/attempt", []byte("{}")))
	keys, err := f.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"../escape/attempt"}, keys)
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "db", "novel.db"), testLogger())
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}

func TestSQLiteStorage_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStorage(context.Background(), " ", testLogger())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, &config.Config{StorageBackend: config.BackendMemory}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &storage.MockStorage{}, s)

	s, err = New(ctx, &config.Config{StorageBackend: config.BackendFile, DataDir: t.TempDir()}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	s, err = New(ctx, &config.Config{StorageBackend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, s)
	s.Close()

	mr := miniredis.RunT(t)
	s, err = New(ctx, &config.Config{StorageBackend: config.BackendRedis, RedisURL: mr.Addr()}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &RedisStorage{}, s)
	s.Close()

	_, err = New(ctx, &config.Config{StorageBackend: "tape"}, testLogger())
	assert.Error(t, err)
}

func TestNew_RedisUnavailable(t *testing.T) {
	retries, delay := redisConnectRetries, redisRetryDelay
	redisConnectRetries, redisRetryDelay = 2, 10*time.Millisecond
	t.Cleanup(func() { redisConnectRetries, redisRetryDelay = retries, delay })

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), &config.Config{StorageBackend: config.BackendRedis, RedisURL: addr}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not become available after 2 attempts")
}
