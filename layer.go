// FILE: confschema/layer.go
package confschema

import (
	"maps"
	"slices"
)

// Source identifies where a configuration value came from.
type Source string

const (
	// SourceDefault represents the schema default values
	SourceDefault Source = "default"
	// SourceFile represents values loaded from a configuration file
	SourceFile Source = "file"
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceCLI represents values parsed from command-line arguments
	SourceCLI Source = "cli"
	// SourceUser represents values set in memory through Config.Set
	SourceUser Source = "user"
)

// DefaultSources is the standard precedence order, highest first.
var DefaultSources = []Source{SourceCLI, SourceEnv, SourceFile, SourceDefault}

// Layer is a partial mapping from dotted entry paths to raw values.
// Raw values are either text or decoder-native values (bool, int64, float64,
// string, []any) and are coerced by the resolver.
type Layer interface {
	Source() Source
	// Lookup returns the raw value stored for path, if any.
	Lookup(path string) (any, bool)
	// Paths lists the defined paths in sorted order.
	Paths() []string
}

// MapLayer is a Layer backed by a flat path -> raw value map.
type MapLayer struct {
	source Source
	values map[string]any
}

// NewMapLayer copies values into a new layer tagged with source.
func NewMapLayer(source Source, values map[string]any) *MapLayer {
	l := &MapLayer{source: source, values: make(map[string]any, len(values))}
	for path, v := range values {
		l.values[path] = cloneValue(v)
	}
	return l
}

func (l *MapLayer) Source() Source {
	return l.source
}

func (l *MapLayer) Lookup(path string) (any, bool) {
	v, ok := l.values[path]
	return v, ok
}

func (l *MapLayer) Paths() []string {
	return slices.Sorted(maps.Keys(l.values))
}

// Len returns the number of defined paths.
func (l *MapLayer) Len() int {
	return len(l.values)
}

// NewDefaultsLayer exposes every schema default as a layer, with the
// default overrides of subcommand applied. The resolver falls back to
// defaults on its own; this layer is useful for explicit precedence lists
// and for dumping defaults.
func NewDefaultsLayer(schema *Schema, subcommand string) *MapLayer {
	values := make(map[string]any, len(schema.entries))
	for _, ref := range schema.entries {
		values[ref.Path] = schema.defaultFor(ref, subcommand)
	}
	return NewMapLayer(SourceDefault, values)
}
