// File: confschema/builder.go
package confschema

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// ValidatorFunc defines the signature for a function that can validate a Config instance.
// It receives the fully resolved *Config and should return an error if validation fails.
type ValidatorFunc func(c *Config) error

// Builder provides a fluent interface for assembling the standard layers
// (defaults, file, environment, command line) and resolving them.
type Builder struct {
	schema     *Schema
	sources    []Source
	env        EnvOptions
	envVars    map[string]string
	file       string
	format     Format
	discovery  *FileDiscoveryOptions
	args       []string
	cli        Layer
	extra      []Layer
	subcommand string
	logger     *slog.Logger
	validators []ValidatorFunc
	err        error

	fileLayer *FileLayer
}

// NewBuilder creates a new configuration builder for schema
func NewBuilder(schema *Schema) *Builder {
	b := &Builder{
		schema:  schema,
		sources: slices.Clone(DefaultSources),
		args:    os.Args[1:],
	}
	if schema == nil {
		b.err = &SchemaError{Reason: "builder needs a schema"}
	}
	return b
}

// WithEnvPrefix sets the environment variable prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.env.Prefix = prefix
	return b
}

// WithEnvTransform sets a custom environment variable transformer
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.env.Transform = fn
	return b
}

// WithEnvWhitelist limits which paths are checked for env vars
func (b *Builder) WithEnvWhitelist(paths ...string) *Builder {
	if b.env.Whitelist == nil {
		b.env.Whitelist = make(map[string]bool)
	}
	for _, path := range paths {
		b.env.Whitelist[path] = true
	}
	return b
}

// WithEnv replaces the process environment as the source of env values
func (b *Builder) WithEnv(env map[string]string) *Builder {
	b.envVars = env
	return b
}

// WithFile sets the configuration file path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithFormat forces the file format instead of detecting it from the extension
func (b *Builder) WithFormat(f Format) *Builder {
	b.format = f
	return b
}

// WithFileDiscovery enables automatic config file discovery when no file
// was set explicitly
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	b.discovery = &opts
	return b
}

// WithArgs sets the command-line arguments inspected by file discovery
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithCLI sets the layer built from parsed command-line options
func (b *Builder) WithCLI(layer Layer) *Builder {
	b.cli = layer
	return b
}

// WithLayer adds a layer above all standard sources. Later calls take
// precedence over earlier ones.
func (b *Builder) WithLayer(layer Layer) *Builder {
	if layer != nil {
		b.extra = append(b.extra, layer)
	}
	return b
}

// WithSources sets the precedence order for configuration sources,
// highest priority first. Sources left out are not read.
func (b *Builder) WithSources(sources ...Source) *Builder {
	for _, s := range sources {
		switch s {
		case SourceDefault, SourceFile, SourceEnv, SourceCLI:
		default:
			b.err = fmt.Errorf("unsupported source %q in precedence order", s)
		}
	}
	b.sources = sources
	return b
}

// WithSubcommand selects the active sub-command
func (b *Builder) WithSubcommand(name string) *Builder {
	b.subcommand = name
	return b
}

// WithLogger sets the logger handed to the persistor
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// File returns the configuration file path, after discovery if enabled
func (b *Builder) File() string {
	if b.file == "" && b.discovery != nil {
		b.file = Discover(*b.discovery, b.args)
	}
	return b.file
}

// FileLayer returns the layer read from the configuration file by the last
// Build, or nil if no file was read.
func (b *Builder) FileLayer() *FileLayer {
	return b.fileLayer
}

// Build resolves the configuration. A missing file is not fatal: the Config
// is returned together with ErrConfigNotFound.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	b.fileLayer = nil
	var loadErr error
	layers := make([]Layer, 0, len(b.sources)+len(b.extra))
	// b.sources is highest first; resolve wants ascending order.
	for _, source := range slices.Backward(b.sources) {
		switch source {
		case SourceDefault:
			layers = append(layers, NewDefaultsLayer(b.schema, b.subcommand))
		case SourceFile:
			layer, err := b.readFile()
			if err != nil {
				if !errors.Is(err, ErrConfigNotFound) {
					return nil, err
				}
				loadErr = err
				continue
			}
			if layer != nil {
				layers = append(layers, layer)
			}
		case SourceEnv:
			env := b.envVars
			if env == nil {
				env = Environ()
			}
			layers = append(layers, NewEnvLayer(b.schema, env, b.env))
		case SourceCLI:
			if b.cli != nil {
				layers = append(layers, b.cli)
			}
		}
	}
	layers = append(layers, b.extra...)

	cfg, err := Resolve(b.schema, layers, b.subcommand)
	if err != nil {
		return nil, err
	}

	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	// ErrConfigNotFound or nil
	return cfg, loadErr
}

func (b *Builder) readFile() (*FileLayer, error) {
	path := b.File()
	if path == "" {
		return nil, nil
	}
	var opts []PersistOption
	if b.format != "" {
		opts = append(opts, WithFormat(b.format))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	layer, err := ReadFile(path, b.schema, opts...)
	if err != nil {
		return nil, err
	}
	b.fileLayer = layer
	return layer, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		// Ignore ErrConfigNotFound as it is not a fatal error for MustBuild.
		// The application can proceed with defaults/env vars.
		if !errors.Is(err, ErrConfigNotFound) {
			panic(fmt.Sprintf("config build failed: %v", err))
		}
	}
	return cfg
}

// BuildAndScan builds and decodes the section at basePath into target
func (b *Builder) BuildAndScan(basePath string, target any) error {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return err
	}

	if err := cfg.Scan(basePath, target); err != nil {
		return fmt.Errorf("failed to scan final config into target: %w", err)
	}

	// ErrConfigNotFound or nil
	return err
}
