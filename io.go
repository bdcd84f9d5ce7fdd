// File: confschema/io.go
package confschema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the polling interval while waiting for a save lock.
const lockRetryDelay = 50 * time.Millisecond

// ReadFile loads the persisted document at path. The format is detected from
// the extension unless WithFormat is given. A missing file returns
// ErrConfigNotFound; callers decide whether that is fatal.
func ReadFile(path string, schema *Schema, opts ...PersistOption) (*FileLayer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	base := []PersistOption{WithFormat(FormatFromPath(path)), WithFileName(path)}
	return Load(data, schema, append(base, opts...)...)
}

// SaveFile dumps cfg and writes it to path.
func SaveFile(ctx context.Context, path string, cfg *Config, mode DumpMode, opts ...PersistOption) error {
	base := []PersistOption{WithFormat(FormatFromPath(path)), WithFileName(path)}
	data, err := Dump(cfg, cfg.Schema(), mode, append(base, opts...)...)
	if err != nil {
		return err
	}
	return WriteFile(ctx, path, data)
}

// WriteFile replaces path atomically while holding an advisory lock on a
// sibling ".lock" file, so concurrent savers never interleave.
func WriteFile(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock config file '%s': %w", path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock config file '%s'", path)
	}
	defer lock.Unlock()

	return atomicWriteFile(path, data)
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
