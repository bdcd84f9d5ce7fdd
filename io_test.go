// FILE: confschema/io_test.go
package confschema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadFile tests reading documents from disk
func TestReadFile(t *testing.T) {
	schema := newTestSchema(t)
	dir := t.TempDir()

	t.Run("Missing", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(dir, "absent.toml"), schema)
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("FormatFromExtension", func(t *testing.T) {
		path := filepath.Join(dir, "app.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0644))

		layer, err := ReadFile(path, schema)
		require.NoError(t, err)
		assert.Equal(t, path, layer.File())
		port, _ := layer.Lookup("server.port")
		assert.Equal(t, 7000, port)
	})

	t.Run("ErrorNamesFile", func(t *testing.T) {
		path := filepath.Join(dir, "broken.toml")
		require.NoError(t, os.WriteFile(path, []byte("server = 1\n"), 0644))

		_, err := ReadFile(path, schema)
		assert.ErrorIs(t, err, ErrFileFormat)
		assert.Contains(t, err.Error(), path)
	})
}

// TestSaveFile tests writing configurations back to disk
func TestSaveFile(t *testing.T) {
	schema := newTestSchema(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.toml")

	cfg := mustResolve(t, schema, "")
	require.NoError(t, cfg.Set("server.port", 6000))
	require.NoError(t, SaveFile(ctx, path, cfg, DumpDiff))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port = 6000")

	layer, err := ReadFile(path, schema)
	require.NoError(t, err)
	again := mustResolve(t, schema, "", layer)
	port, _ := again.Int64("server.port")
	assert.Equal(t, int64(6000), port)

	t.Run("NoTempFilesLeft", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})

	t.Run("JSONByExtension", func(t *testing.T) {
		jsonPath := filepath.Join(t.TempDir(), "app.json")
		require.NoError(t, SaveFile(ctx, jsonPath, cfg, DumpDiff))
		data, err := os.ReadFile(jsonPath)
		require.NoError(t, err)
		assert.JSONEq(t, `{"server": {"port": 6000}}`, string(data))
	})
}

// TestWriteFileLocking tests that a held lock blocks writers until released
func TestWriteFileLocking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.toml")

	t.Run("ContextCanceledWhileLocked", func(t *testing.T) {
		held := flock.New(path + ".lock")
		locked, err := held.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		defer held.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()
		err = WriteFile(ctx, path, []byte("retries = 1\n"))
		assert.Error(t, err)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				data := []byte(fmt.Sprintf("retries = %d\n", i))
				assert.NoError(t, WriteFile(context.Background(), path, data))
			}()
		}
		wg.Wait()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Regexp(t, `^retries = \d\n$`, string(data))
	})
}
