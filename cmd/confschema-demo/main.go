// Command confschema-demo shows a schema-driven CLI: options resolved from
// defaults, a discovered config file, CONFSCHEMA_DEMO_* variables and flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	cs "confschema"

	"github.com/spf13/cobra"
)

const envPrefix = "CONFSCHEMA_DEMO_"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	schema, err := newSchema()
	if err != nil {
		return err
	}
	tree, err := cs.DeriveArguments(schema, "")
	if err != nil {
		return err
	}

	app := &app{schema: schema, args: args}
	root := cs.NewCommandLine(appName, tree, app.handle)
	root.Short = "Schema-driven configuration demo"
	app.root = root
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type app struct {
	schema *cs.Schema
	root   *cobra.Command
	args   []string
}

func (a *app) builder(subcommand string, cli cs.Layer) *cs.Builder {
	b := cs.NewBuilder(a.schema).
		WithFileDiscovery(cs.DefaultDiscoveryOptions(appName)).
		WithArgs(a.args).
		WithEnvPrefix(envPrefix).
		WithCLI(cli).
		WithSubcommand(subcommand)
	// -c is not seen by discovery, which only knows the long flag.
	if path, ok := cli.Lookup("config_file"); ok {
		b.WithFile(fmt.Sprint(path))
	}
	return b
}

func (a *app) handle(cmd *cobra.Command, subcommand string, cli cs.Layer, _ []string) error {
	b := a.builder(subcommand, cli)
	cfg, buildErr := b.Build()
	if buildErr != nil && !errors.Is(buildErr, cs.ErrConfigNotFound) {
		return buildErr
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if buildErr != nil {
		logger.Debug("No config file found, using defaults", "path", b.File())
	}
	if layer := b.FileLayer(); layer != nil {
		logger.Debug("Config file loaded", "path", layer.File(), "unrecognized", len(layer.Warnings()))
	}

	ctx := cmd.Context()
	switch subcommand {
	case "", "show":
		color, _ := cfg.String("core.color")
		renderConfig(cmd.OutOrStdout(), cfg, useStyledOutput(color, os.Stdout))
		return nil
	case "build":
		return a.build(ctx, cfg)
	case "serve":
		return a.serve(ctx, cfg)
	case "config":
		return a.config(ctx, cfg, b.File())
	default:
		return fmt.Errorf("%w: %q", cs.ErrUnknownSubcommand, subcommand)
	}
}

func newLogger(cfg *cs.Config) (*slog.Logger, error) {
	levelName, err := cfg.String("core.log_level")
	if err != nil {
		return nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelName))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	if verbose, _ := cfg.Bool("core.verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

type buildSettings struct {
	Jobs    int      `toml:"jobs"`
	Targets []string `toml:"targets"`
	Profile string   `toml:"profile"`
	Timeout float64  `toml:"timeout"`
}

func (a *app) build(_ context.Context, cfg *cs.Config) error {
	var settings buildSettings
	if err := cfg.Scan("build", &settings); err != nil {
		return err
	}
	slog.Info("Building",
		"targets", settings.Targets,
		"jobs", settings.Jobs,
		"profile", settings.Profile,
		"timeout_seconds", settings.Timeout)
	return nil
}

func (a *app) serve(_ context.Context, cfg *cs.Config) error {
	host, err := cfg.String("serve.host")
	if err != nil {
		return err
	}
	port, err := cfg.Int("serve.port")
	if err != nil {
		return err
	}
	tls, err := cfg.Bool("serve.tls.enabled")
	if err != nil {
		return err
	}
	if tls {
		cert, _ := cfg.String("serve.tls.cert")
		key, _ := cfg.String("serve.tls.key")
		if cert == "" || key == "" {
			return errors.New("serve.tls.enabled requires serve.tls.cert and serve.tls.key")
		}
	}
	root, _ := cfg.String("serve.root")
	slog.Info("Serving", "address", fmt.Sprintf("%s:%d", host, port), "root", root, "tls", tls)
	return nil
}

func (a *app) config(ctx context.Context, cfg *cs.Config, path string) error {
	create, _ := cfg.Bool("config.create")
	update, _ := cfg.Bool("config.update")
	edit, _ := cfg.Bool("config.edit")
	completions, _ := cfg.String("config.completions")

	if (create || update || edit) && path == "" {
		return errors.New("no config file location; pass --config")
	}

	if create || update {
		if err := a.writeConfig(ctx, path, update); err != nil {
			return err
		}
		slog.Info("Config file written", "path", path, "update", update)
	}

	if completions != "" {
		if err := cs.WriteCompletionFiles(ctx, a.root, completions); err != nil {
			return err
		}
		slog.Info("Completion scripts written", "dir", completions)
	}

	if edit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := a.writeConfig(ctx, path, false); err != nil {
				return err
			}
		}
		editor, _ := cfg.String("config.editor")
		cmd := exec.CommandContext(ctx, editor, path)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("editor %q failed: %w", editor, err)
		}
	}
	return nil
}

// writeConfig writes every file entry of every sub-command. With update the
// values already in the file are kept; otherwise defaults are written. Keys
// the schema does not know survive either way.
func (a *app) writeConfig(ctx context.Context, path string, update bool) error {
	var layers []cs.Layer
	layer, err := cs.ReadFile(path, a.schema)
	switch {
	case err == nil:
		layers = append(layers, layer)
	case !errors.Is(err, cs.ErrConfigNotFound):
		return err
	}

	full, err := cs.ResolveAll(a.schema, layers)
	if err != nil {
		return err
	}
	if !update {
		full.ResetAll()
	}
	return cs.SaveFile(ctx, path, full, cs.DumpFull)
}
