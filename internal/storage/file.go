package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/klauspost/compress/zstd"
)

const (
	plainExt = ".json"
	zstdExt  = ".json.zst"
)

// FileStorage keeps one file per key under a directory. With compression
// enabled records are written zstd-compressed; both forms are readable.
type FileStorage struct {
	dir      string
	compress bool
	logger   *slog.Logger
}

// Ensure FileStorage implements Storage interface
var _ storage.Storage = (*FileStorage)(nil)

// NewFileStorage creates dir if needed.
func NewFileStorage(dir string, compress bool, logger *slog.Logger) (*FileStorage, error) {
	if dir == "" {
		dir = "./saves"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStorage{dir: dir, compress: compress, logger: logger}, nil
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("data dir unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error { return nil }

func (f *FileStorage) path(key, ext string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+ext)
}

func (f *FileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Prefer the form this storage writes, fall back to the other.
	exts := []string{plainExt, zstdExt}
	if f.compress {
		exts = []string{zstdExt, plainExt}
	}
	for _, ext := range exts {
		data, err := os.ReadFile(f.path(key, ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			f.logger.Error("Failed to read record", "key", key, "error", err)
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ext == zstdExt {
			return decompress(data)
		}
		return data, nil
	}
	return nil, nil
}

func (f *FileStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ext, stale := plainExt, zstdExt
	if f.compress {
		ext, stale = zstdExt, plainExt
		var err error
		if data, err = compress(data); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key, ext)); err != nil {
		f.logger.Error("Failed to save record", "key", key, "error", err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := os.Remove(f.path(key, stale)); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Warn("Failed to remove stale record", "key", key, "error", err)
	}
	return nil
}

func (f *FileStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ext := range []string{plainExt, zstdExt} {
		if err := os.Remove(f.path(key, ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

func (f *FileStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		var base string
		switch {
		case strings.HasSuffix(name, zstdExt):
			base = strings.TrimSuffix(name, zstdExt)
		case strings.HasSuffix(name, plainExt):
			base = strings.TrimSuffix(name, plainExt)
		default:
			continue
		}
		key, err := url.PathUnescape(base)
		if err != nil {
			f.logger.Warn("Skipping file with invalid key", "file", name)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to compress record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress record: %w", err)
	}
	return out, nil
}
