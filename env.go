// File: confschema/env.go
package confschema

import (
	"os"
	"strings"
)

// EnvTransformFunc converts a configuration path to an environment variable name
type EnvTransformFunc func(path string) string

// EnvOptions configures how entries map to environment variables.
type EnvOptions struct {
	// Prefix is prepended to derived variable names.
	// Example: "MYAPP_" maps "server.port" to "MYAPP_SERVER_PORT"
	Prefix string

	// Transform customizes how paths map to variable names.
	// If nil, dots and dashes become underscores and the result is uppercased.
	Transform EnvTransformFunc

	// Whitelist limits which paths are read (nil = all)
	Whitelist map[string]bool
}

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.NewReplacer(".", "_", "-", "_").Replace(path)
		return prefix + strings.ToUpper(env)
	}
}

// envName returns the variable an entry is read from. An explicit EnvKey
// bypasses both prefix and transform.
func (o EnvOptions) envName(ref EntryRef) string {
	if ref.Entry.EnvKey != "" {
		return ref.Entry.EnvKey
	}
	transform := o.Transform
	if transform == nil {
		transform = defaultEnvTransform(o.Prefix)
	}
	return transform(ref.Path)
}

// NewEnvLayer builds a layer from the variables in env that match schema
// entries. Values stay textual; the resolver coerces them.
func NewEnvLayer(schema *Schema, env map[string]string, opts EnvOptions) *MapLayer {
	values := make(map[string]any)
	for _, ref := range schema.entries {
		if opts.Whitelist != nil && !opts.Whitelist[ref.Path] {
			continue
		}
		name := opts.envName(ref)
		if name == "" {
			continue
		}
		if value, ok := env[name]; ok {
			values[ref.Path] = value
		}
	}
	return NewMapLayer(SourceEnv, values)
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return env
}

// EnvKeys returns path -> variable name for every entry the options would
// read, whether or not the variable is set.
func EnvKeys(schema *Schema, opts EnvOptions) map[string]string {
	keys := make(map[string]string)
	for _, ref := range schema.entries {
		if opts.Whitelist != nil && !opts.Whitelist[ref.Path] {
			continue
		}
		if name := opts.envName(ref); name != "" {
			keys[ref.Path] = name
		}
	}
	return keys
}

// DiscoverEnv returns path -> variable name for the variables present in env.
func DiscoverEnv(schema *Schema, env map[string]string, opts EnvOptions) map[string]string {
	found := make(map[string]string)
	for path, name := range EnvKeys(schema, opts) {
		if _, ok := env[name]; ok {
			found[path] = name
		}
	}
	return found
}
