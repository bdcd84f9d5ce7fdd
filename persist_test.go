// FILE: confschema/persist_test.go
package confschema

import (
	"bytes"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodedPaths decodes a dumped document and returns its flattened keys.
func decodedPaths(t *testing.T, data []byte, format Format) map[string]any {
	t.Helper()
	doc, err := decodeDocument(data, format)
	require.NoError(t, err, string(data))
	return flattenMap(doc, "")
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// TestLoad tests parsing persisted documents into a file layer
func TestLoad(t *testing.T) {
	schema := newTestSchema(t)

	t.Run("Values", func(t *testing.T) {
		layer, err := Load([]byte(`
retries = 5

[server]
port = 9000
tags = ["x", "y"]
ratio = 0.25
`), schema)
		require.NoError(t, err)
		assert.Equal(t, SourceFile, layer.Source())
		assert.Equal(t, []string{"retries", "server.port", "server.ratio", "server.tags"}, layer.Paths())
		port, _ := layer.Lookup("server.port")
		assert.Equal(t, int64(9000), port)
		assert.Empty(t, layer.Warnings())

		cfg := mustResolve(t, schema, "", layer)
		tags, _ := cfg.Strings("server.tags")
		assert.Equal(t, []string{"x", "y"}, tags)
	})

	t.Run("Empty", func(t *testing.T) {
		for _, format := range []Format{FormatTOML, FormatYAML, FormatJSON} {
			layer, err := Load([]byte("  \n"), schema, WithFormat(format))
			require.NoError(t, err, format)
			assert.Empty(t, layer.Paths())
		}
	})

	t.Run("UnrecognizedKeys", func(t *testing.T) {
		logger, logs := captureLogger()
		layer, err := Load([]byte(`
extra = 1

[server]
weird = "w"

[plugins.cache]
on = true
`), schema, WithLogger(logger), WithFileName("app.toml"))
		require.NoError(t, err)

		var paths []string
		for _, w := range layer.Warnings() {
			paths = append(paths, w.Path)
		}
		assert.Equal(t, []string{"extra", "plugins", "server.weird"}, paths)
		assert.Equal(t, map[string]any{
			"extra":   int64(1),
			"plugins": map[string]any{"cache": map[string]any{"on": true}},
			"server":  map[string]any{"weird": "w"},
		}, layer.Unrecognized())
		assert.Empty(t, layer.Paths())
		assert.Equal(t, "app.toml", layer.File())

		assert.Contains(t, logs.String(), "Unrecognized configuration key")
		assert.Contains(t, logs.String(), "path=server.weird")
		assert.Contains(t, logs.String(), "file=app.toml")
	})

	t.Run("FileExcludedEntriesIgnored", func(t *testing.T) {
		logger, logs := captureLogger()
		layer, err := Load([]byte("[secret]\ntoken = \"t\"\n[build]\nclean = true\n"), schema, WithLogger(logger))
		require.NoError(t, err)
		assert.Empty(t, layer.Paths())
		assert.Empty(t, layer.Warnings())
		assert.Contains(t, logs.String(), "level=DEBUG")
		assert.Contains(t, logs.String(), "path=secret.token")
	})

	t.Run("FormatErrors", func(t *testing.T) {
		tests := []struct {
			name     string
			data     string
			format   Format
			wantPath string
		}{
			{"InvalidTOML", "retries = = 5", FormatTOML, ""},
			{"ScalarForSection", "server = 5", FormatTOML, "server"},
			{"TableForEntry", "[retries]\nx = 1", FormatTOML, "retries"},
			{"InvalidYAML", "server: [", FormatYAML, ""},
			{"YAMLTopLevelList", "- a\n- b\n", FormatYAML, ""},
			{"JSONTopLevelList", "[1, 2]", FormatJSON, ""},
			{"NestedTableForEntry", `{"server": {"port": {"x": 1}}}`, FormatJSON, "server.port"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Load([]byte(tt.data), schema, WithFormat(tt.format))
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrFileFormat)
				var fe *FileFormatError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, tt.wantPath, fe.Path)
			})
		}
	})

	t.Run("BadValueFailsAtResolve", func(t *testing.T) {
		layer, err := Load([]byte("[server]\nport = \"eighty\"\n"), schema)
		require.NoError(t, err)
		_, err = Resolve(schema, []Layer{layer}, "")
		var ce *CoercionError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, SourceFile, ce.Source)
	})
}

// TestDump tests serialization of resolved configurations
func TestDump(t *testing.T) {
	schema := newTestSchema(t)

	t.Run("DiffIsMinimal", func(t *testing.T) {
		cfg := mustResolve(t, schema, "", NewMapLayer(SourceEnv, map[string]any{
			"retries":     "5",
			"server.host": "localhost", // equals default
			"server.mode": "prod",
		}))
		data, err := Dump(cfg, schema, DumpDiff)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"retries":     int64(5),
			"server.mode": "prod",
		}, decodedPaths(t, data, FormatTOML))
	})

	t.Run("DefaultsDumpEmpty", func(t *testing.T) {
		cfg := mustResolve(t, schema, "")
		data, err := Dump(cfg, schema, DumpDiff)
		require.NoError(t, err)
		assert.Empty(t, decodedPaths(t, data, FormatTOML))
	})

	t.Run("FullExcludesFileExcluded", func(t *testing.T) {
		cfg := mustResolve(t, schema, "build")
		require.NoError(t, cfg.Set("secret.token", "t"))
		require.NoError(t, cfg.Set("build.clean", true))
		data, err := Dump(cfg, schema, DumpFull)
		require.NoError(t, err)

		paths := decodedPaths(t, data, FormatTOML)
		assert.Equal(t, []string{
			"build.jobs", "build.levels",
			"debug", "retries",
			"server.host", "server.mode", "server.port", "server.ratio", "server.tags",
		}, slices.Sorted(maps.Keys(paths)))
	})

	t.Run("OnlySources", func(t *testing.T) {
		cfg := mustResolve(t, schema, "",
			NewMapLayer(SourceFile, map[string]any{"retries": int64(5)}),
			NewMapLayer(SourceEnv, map[string]any{"server.port": "9000"}),
		)
		data, err := Dump(cfg, schema, DumpFull, OnlySources(SourceFile))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"retries": int64(5)}, decodedPaths(t, data, FormatTOML))
	})

	t.Run("OnlySourcesKeepsFileValue", func(t *testing.T) {
		file, err := Load([]byte("retries = 5\n[server]\nhost = \"h\"\n"), schema)
		require.NoError(t, err)
		cli := NewMapLayer(SourceCLI, map[string]any{"retries": "10", "server.port": "1"})
		cfg := mustResolve(t, schema, "", file, cli)
		retries, _ := cfg.Int64("retries")
		assert.Equal(t, int64(10), retries)

		data, err := Dump(cfg, schema, DumpDiff, OnlySources(SourceFile, SourceUser))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"retries":     int64(5),
			"server.host": "h",
		}, decodedPaths(t, data, FormatTOML))

		// Without SourceFile the file value has no claim either.
		data, err = Dump(cfg, schema, DumpDiff, OnlySources(SourceUser))
		require.NoError(t, err)
		assert.Empty(t, decodedPaths(t, data, FormatTOML))
	})

	t.Run("ModeNames", func(t *testing.T) {
		assert.Equal(t, "diff", DumpDiff.String())
		assert.Equal(t, "full", DumpFull.String())
		assert.Equal(t, "DumpMode(7)", DumpMode(7).String())
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		cfg := mustResolve(t, schema, "")
		_, err := Dump(cfg, schema, DumpDiff, WithFormat("ini"))
		assert.Error(t, err)
	})
}

// TestRoundTrip tests that dumping and reloading reproduces the configuration
func TestRoundTrip(t *testing.T) {
	schema := newTestSchema(t)
	env := NewMapLayer(SourceEnv, map[string]any{
		"retries":      "7",
		"debug":        "true",
		"server.tags":  "p,q",
		"server.ratio": "0.125",
		"server.mode":  "prod",
		"build.jobs":   "6",
		"build.levels": "3 1",
	})

	for _, format := range []Format{FormatTOML, FormatYAML, FormatJSON} {
		for _, mode := range []DumpMode{DumpDiff, DumpFull} {
			t.Run(string(format)+"_"+mode.String(), func(t *testing.T) {
				cfg := mustResolve(t, schema, "build", env)
				data, err := Dump(cfg, schema, mode, WithFormat(format))
				require.NoError(t, err)

				layer, err := Load(data, schema, WithFormat(format))
				require.NoError(t, err, string(data))
				assert.Empty(t, layer.Warnings())

				again := mustResolve(t, schema, "build", layer)
				assert.Equal(t, cfg.Values(), again.Values())
			})
		}
	}
}

// TestPreservation tests that foreign keys and inactive values survive a save
func TestPreservation(t *testing.T) {
	schema := newTestSchema(t)
	layer, err := Load([]byte(`
extra = "keep me"

[server]
port = 9000
weird = 1

[deploy]
target = "prod"

[build]
jobs = 4
`), schema)
	require.NoError(t, err)

	// Resolved for "deploy": build.jobs is inactive but must not be lost.
	cfg := mustResolve(t, schema, "deploy", layer)
	_, ok := cfg.Get("build.jobs")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"extra": "keep me", "server": map[string]any{"weird": int64(1)}}, cfg.Foreign())

	require.NoError(t, cfg.Set("deploy.target", "canary"))
	data, err := Dump(cfg, schema, DumpDiff)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"extra":         "keep me",
		"server.port":   int64(9000),
		"server.weird":  int64(1),
		"deploy.target": "canary",
		"build.jobs":    int64(4),
	}, decodedPaths(t, data, FormatTOML))

	t.Run("ResetKeepsForeign", func(t *testing.T) {
		reset := cfg.Clone()
		reset.ResetAll()
		data, err := Dump(reset, schema, DumpDiff)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"extra":        "keep me",
			"server.weird": int64(1),
			"build.jobs":   int64(4),
		}, decodedPaths(t, data, FormatTOML))
	})
}

// TestForeignKeyShape tests that unknown keys are written back with the
// exact key structure they were read with
func TestForeignKeyShape(t *testing.T) {
	schema := newTestSchema(t)

	t.Run("QuotedDottedKey", func(t *testing.T) {
		layer, err := Load([]byte("[future]\n\"a.b\" = 1\n"), schema)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"future": map[string]any{"a.b": int64(1)}}, layer.Unrecognized())

		cfg := mustResolve(t, schema, "", layer)
		data, err := Dump(cfg, schema, DumpDiff)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[future]")
		assert.Contains(t, string(data), `"a.b" = 1`)
		assert.NotContains(t, string(data), "[future.a]")

		again, err := Load(data, schema)
		require.NoError(t, err)
		assert.Equal(t, layer.Unrecognized(), again.Unrecognized())
	})

	t.Run("DottedKeyInKnownSection", func(t *testing.T) {
		layer, err := Load([]byte("[server]\nport = 9000\n\"x.y\" = 2\n"), schema)
		require.NoError(t, err)
		require.Len(t, layer.Warnings(), 1)
		assert.Equal(t, "server.x.y", layer.Warnings()[0].Path)

		cfg := mustResolve(t, schema, "", layer)
		assert.Equal(t, map[string]any{"server": map[string]any{"x.y": int64(2)}}, cfg.Foreign())
		data, err := Dump(cfg, schema, DumpDiff)
		require.NoError(t, err)
		again, err := Load(data, schema)
		require.NoError(t, err, string(data))
		assert.Equal(t, layer.Unrecognized(), again.Unrecognized())
		port, _ := again.Lookup("server.port")
		assert.Equal(t, int64(9000), port)
	})

	t.Run("EmptyTable", func(t *testing.T) {
		layer, err := Load([]byte("[future]\n"), schema)
		require.NoError(t, err)
		cfg := mustResolve(t, schema, "", layer)
		assert.Equal(t, map[string]any{"future": map[string]any{}}, cfg.Foreign())

		data, err := Dump(cfg, schema, DumpDiff)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[future]")
	})

	t.Run("LaterFileWins", func(t *testing.T) {
		first, err := Load([]byte("[future]\nx = 1\ny = 1\n"), schema)
		require.NoError(t, err)
		second, err := Load([]byte("[future]\ny = 2\n"), schema)
		require.NoError(t, err)
		cfg := mustResolve(t, schema, "", first, second)
		assert.Equal(t, map[string]any{"future": map[string]any{"x": int64(1), "y": int64(2)}}, cfg.Foreign())
		assert.Contains(t, cfg.Debug(), "future.y: 2")
	})
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("c.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("c.json"))
	assert.Equal(t, FormatTOML, FormatFromPath("c.toml"))
	assert.Equal(t, FormatTOML, FormatFromPath("noext"))
}
