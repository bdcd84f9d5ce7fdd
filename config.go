// FILE: confschema/config.go
package confschema

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Config is a fully resolved configuration: one typed value and its
// provenance for every entry active under the selected sub-command.
//
// A Config returned by Resolve is treated as a snapshot. Clone it before
// calling Set or Reset to keep the original untouched. Config is not safe for
// concurrent mutation; reloading means running Resolve again.
type Config struct {
	schema     *Schema
	subcommand string
	values     map[string]any
	sources    map[string]Source
	// defaults holds the effective default of each active entry, sub-command
	// overrides applied.
	defaults map[string]any
	// stored holds the raw file value of active entries a file defines.
	stored map[string]any

	// retained holds raw file values for entries outside the active set.
	retained map[string]any
	// foreign holds file keys unknown to the schema, nested as in the file.
	foreign map[string]any
}

func newConfig(schema *Schema, subcommand string) *Config {
	return &Config{
		schema:     schema,
		subcommand: subcommand,
		values:     make(map[string]any),
		sources:    make(map[string]Source),
		defaults:   make(map[string]any),
		stored:     make(map[string]any),
		retained:   make(map[string]any),
		foreign:    make(map[string]any),
	}
}

// Schema returns the schema the configuration was resolved against.
func (c *Config) Schema() *Schema {
	return c.schema
}

// Subcommand returns the sub-command the configuration was resolved for.
func (c *Config) Subcommand() string {
	return c.subcommand
}

// Get returns the native value at path. Entries outside the active set are
// reported as missing.
func (c *Config) Get(path string) (any, bool) {
	v, ok := c.values[path]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Source returns the layer that supplied the value at path.
func (c *Config) Source(path string) (Source, bool) {
	s, ok := c.sources[path]
	return s, ok
}

// Paths returns the resolved paths in schema order.
func (c *Config) Paths() []string {
	paths := make([]string, 0, len(c.values))
	for _, ref := range c.schema.entries {
		if _, ok := c.values[ref.Path]; ok {
			paths = append(paths, ref.Path)
		}
	}
	return paths
}

// Values returns a flat copy of all resolved values.
func (c *Config) Values() map[string]any {
	return cloneMap(c.values)
}

// IsDefault reports whether the value at path equals its default under the
// selected sub-command.
func (c *Config) IsDefault(path string) bool {
	v, ok := c.values[path]
	if !ok {
		return false
	}
	return valuesEqual(v, c.defaults[path])
}

// Default returns the effective default of an active entry.
func (c *Config) Default(path string) (any, bool) {
	v, ok := c.defaults[path]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Foreign returns the nested file keys the schema does not know about.
func (c *Config) Foreign() map[string]any {
	return cloneMap(c.foreign)
}

// Set coerces value for the entry at path and records it with SourceUser
// provenance.
func (c *Config) Set(path string, value any) error {
	ref, ok := c.activeRef(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	v, err := coerceValue(ref.Entry, value)
	if err != nil {
		return newCoercionError(ref, SourceUser, value, err)
	}
	c.values[path] = v
	c.sources[path] = SourceUser
	return nil
}

// Reset restores the default for path.
func (c *Config) Reset(path string) error {
	if _, ok := c.activeRef(path); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	c.values[path] = cloneValue(c.defaults[path])
	c.sources[path] = SourceDefault
	return nil
}

// ResetAll restores every active entry to its default. Retained and foreign
// file values are kept.
func (c *Config) ResetAll() {
	for path := range c.values {
		c.values[path] = cloneValue(c.defaults[path])
		c.sources[path] = SourceDefault
	}
}

func (c *Config) activeRef(path string) (EntryRef, bool) {
	if _, ok := c.values[path]; !ok {
		return EntryRef{}, false
	}
	return c.schema.Ref(path)
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := newConfig(c.schema, c.subcommand)
	clone.values = cloneMap(c.values)
	maps.Copy(clone.sources, c.sources)
	clone.defaults = cloneMap(c.defaults)
	clone.stored = cloneMap(c.stored)
	clone.retained = cloneMap(c.retained)
	clone.foreign = cloneMap(c.foreign)
	return clone
}

// Debug returns a formatted string showing all configuration values and their sources
func (c *Config) Debug() string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	if c.subcommand != "" {
		fmt.Fprintf(&b, "Sub-command: %s\n", c.subcommand)
	}
	b.WriteString("Current values:\n")
	for _, path := range c.Paths() {
		fmt.Fprintf(&b, "  %s:\n", path)
		fmt.Fprintf(&b, "    Current: %v\n", c.values[path])
		fmt.Fprintf(&b, "    Default: %v\n", c.defaults[path])
		fmt.Fprintf(&b, "    Source: %s\n", c.sources[path])
	}
	if len(c.retained) > 0 {
		b.WriteString("Retained (inactive) values:\n")
		for _, path := range slices.Sorted(maps.Keys(c.retained)) {
			fmt.Fprintf(&b, "  %s: %v\n", path, c.retained[path])
		}
	}
	if len(c.foreign) > 0 {
		b.WriteString("Unrecognized values:\n")
		flat := flattenMap(c.foreign, "")
		for _, path := range slices.Sorted(maps.Keys(flat)) {
			fmt.Fprintf(&b, "  %s: %v\n", path, flat[path])
		}
	}
	return b.String()
}
