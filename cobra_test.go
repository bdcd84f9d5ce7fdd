// FILE: confschema/cobra_test.go
package confschema

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	called     bool
	subcommand string
	layer      Layer
	args       []string
}

func newTestCommandLine(t *testing.T, schema *Schema) (*cobra.Command, *captured, *bytes.Buffer) {
	t.Helper()
	tree, err := DeriveArguments(schema, "")
	require.NoError(t, err)

	got := &captured{}
	root := NewCommandLine("tool", tree, func(_ *cobra.Command, sub string, cli Layer, args []string) error {
		got.called = true
		got.subcommand = sub
		got.layer = cli
		got.args = args
		return nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	return root, got, &out
}

// TestCommandLineExecution tests that only passed options reach the CLI layer
func TestCommandLineExecution(t *testing.T) {
	schema := newTestSchema(t)

	t.Run("RootOptions", func(t *testing.T) {
		root, got, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{"-d", "--server-port", "9000"})
		require.NoError(t, root.Execute())

		require.True(t, got.called)
		assert.Equal(t, "", got.subcommand)
		assert.ElementsMatch(t, []string{"debug", "server.port"}, got.layer.Paths())

		cfg := mustResolve(t, schema, "", got.layer)
		debug, _ := cfg.Bool("debug")
		port, _ := cfg.Int64("server.port")
		assert.True(t, debug)
		assert.Equal(t, int64(9000), port)
		source, _ := cfg.Source("server.host")
		assert.Equal(t, SourceDefault, source)
	})

	t.Run("NoOptionsLeavesLayerEmpty", func(t *testing.T) {
		root, got, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{})
		require.NoError(t, root.Execute())
		require.True(t, got.called)
		assert.Empty(t, got.layer.Paths())
	})

	t.Run("Negation", func(t *testing.T) {
		root, got, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{"--no-debug"})
		require.NoError(t, root.Execute())

		cfg := mustResolve(t, schema, "",
			NewMapLayer(SourceEnv, map[string]any{"debug": "true"}),
			got.layer,
		)
		debug, _ := cfg.Bool("debug")
		assert.False(t, debug)
	})

	t.Run("Conflict", func(t *testing.T) {
		root, _, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{"--debug", "--no-debug"})
		assert.ErrorIs(t, root.Execute(), ErrCLIParse)
	})

	t.Run("RepeatedMulti", func(t *testing.T) {
		root, got, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{"--server-tags", "x,y", "--server-tags", "z"})
		require.NoError(t, root.Execute())

		cfg := mustResolve(t, schema, "", got.layer)
		tags, _ := cfg.Strings("server.tags")
		assert.Equal(t, []string{"x", "y", "z"}, tags)
	})

	t.Run("Subcommand", func(t *testing.T) {
		root, got, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{"build", "--build-jobs", "8", "-p", "81", "extra"})
		require.NoError(t, root.Execute())

		assert.Equal(t, "build", got.subcommand)
		assert.Equal(t, []string{"extra"}, got.args)
		cfg := mustResolve(t, schema, got.subcommand, got.layer)
		jobs, _ := cfg.Int64("build.jobs")
		port, _ := cfg.Int64("server.port")
		assert.Equal(t, int64(8), jobs)
		assert.Equal(t, int64(81), port)
	})

	t.Run("OptionOfOtherSubcommand", func(t *testing.T) {
		root, got, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{"deploy", "--build-jobs", "8"})
		assert.Error(t, root.Execute())
		assert.False(t, got.called)
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		root, got, _ := newTestCommandLine(t, schema)
		root.SetArgs([]string{"publish"})
		assert.Error(t, root.Execute())
		assert.False(t, got.called)
	})
}

// TestCommandLineHelp tests the grouped help layout
func TestCommandLineHelp(t *testing.T) {
	schema := newTestSchema(t)

	t.Run("Root", func(t *testing.T) {
		root, got, out := newTestCommandLine(t, schema)
		root.SetArgs([]string{"--help"})
		require.NoError(t, root.Execute())
		assert.False(t, got.called)

		help := out.String()
		assert.Contains(t, help, "Usage:\n  tool [command] [flags]")
		assert.Contains(t, help, "Available Commands:")
		assert.Contains(t, help, "build")
		assert.Contains(t, help, "deploy things")
		assert.Contains(t, help, "\nOptions:\n")
		assert.Contains(t, help, "\nServer options:\n")
		assert.Contains(t, help, "--server-port int")
		assert.Contains(t, help, "listen port (default: 8080)")
		assert.Contains(t, help, "--no-debug")
		assert.Contains(t, help, "\nGeneral:\n")
		assert.NotContains(t, help, "--build-jobs")
	})

	t.Run("Subcommand", func(t *testing.T) {
		root, _, out := newTestCommandLine(t, schema)
		root.SetArgs([]string{"build", "-h"})
		require.NoError(t, root.Execute())

		help := out.String()
		assert.Contains(t, help, "build things")
		assert.Contains(t, help, "Usage:\n  tool build [flags]")
		assert.Contains(t, help, "\nBuild options:\n")
		assert.Contains(t, help, "--build-jobs int")
		assert.Contains(t, help, "--build-levels ints")
	})
}

// TestWriteCompletionFiles tests that all three shell scripts are written
func TestWriteCompletionFiles(t *testing.T) {
	schema := newTestSchema(t)
	root, _, _ := newTestCommandLine(t, schema)
	dir := t.TempDir()

	require.NoError(t, WriteCompletionFiles(context.Background(), root, dir))
	for _, path := range []string{
		filepath.Join(dir, "bash", "tool.sh"),
		filepath.Join(dir, "zsh", "_tool"),
		filepath.Join(dir, "fish", "tool.fish"),
	} {
		data, err := os.ReadFile(path)
		require.NoError(t, err, path)
		assert.Contains(t, string(data), "tool")
	}
}
