// FILE: confschema/resolve.go
package confschema

import (
	"reflect"
	"slices"
)

// Resolve merges layers, given in ascending precedence, into a Config for
// the selected sub-command ("" for none). For every active entry the last
// layer defining it wins and its raw value is coerced; entries no layer
// defines take the default, which the sub-command may override. The first coercion failure aborts the
// whole resolution with a *CoercionError.
//
// Entries outside the active set are absent from the result. Values that
// file layers hold for them, and file keys unknown to the schema, are kept
// opaquely on the Config so that Dump writes them back unchanged.
func Resolve(schema *Schema, layers []Layer, subcommand string) (*Config, error) {
	active, err := schema.ActiveEntries(subcommand)
	if err != nil {
		return nil, err
	}
	defaultOf := func(ref EntryRef) any { return schema.defaultFor(ref, subcommand) }
	return resolveEntries(schema, active, layers, subcommand, defaultOf, func(path string) bool {
		return schema.IsActive(path, subcommand)
	})
}

// ResolveAll resolves every entry of the schema regardless of sub-command.
// It serves tools that rewrite the whole file, such as a config creation
// command; regular runs should use Resolve. Sub-command default overrides do
// not apply.
func ResolveAll(schema *Schema, layers []Layer) (*Config, error) {
	defaultOf := func(ref EntryRef) any { return cloneValue(ref.Entry.Default) }
	return resolveEntries(schema, schema.Entries(), layers, "", defaultOf, func(string) bool { return true })
}

func resolveEntries(schema *Schema, active []EntryRef, layers []Layer, subcommand string, defaultOf func(EntryRef) any, isActive func(string) bool) (*Config, error) {
	cfg := newConfig(schema, subcommand)
	for _, ref := range active {
		def := defaultOf(ref)
		value, source, err := resolveEntry(ref, def, layers)
		if err != nil {
			return nil, err
		}
		cfg.values[ref.Path] = value
		cfg.sources[ref.Path] = source
		cfg.defaults[ref.Path] = def
	}

	for _, layer := range layers {
		if isNilLayer(layer) {
			continue
		}
		file, ok := layer.(*FileLayer)
		if !ok {
			continue
		}
		for _, path := range file.Paths() {
			raw, _ := file.Lookup(path)
			if isActive(path) {
				cfg.stored[path] = cloneValue(raw)
				continue
			}
			cfg.retained[path] = cloneValue(raw)
		}
		mergeTree(cfg.foreign, file.unrecognized)
	}
	return cfg, nil
}

// isNilLayer reports a nil interface or an interface holding a nil pointer.
func isNilLayer(layer Layer) bool {
	if layer == nil {
		return true
	}
	v := reflect.ValueOf(layer)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// ResolveOrdered is Resolve with layers given highest precedence first,
// the order used by Builder.WithSources.
func ResolveOrdered(schema *Schema, layers []Layer, subcommand string) (*Config, error) {
	ascending := slices.Clone(layers)
	slices.Reverse(ascending)
	return Resolve(schema, ascending, subcommand)
}

func resolveEntry(ref EntryRef, def any, layers []Layer) (any, Source, error) {
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		if isNilLayer(layer) {
			continue
		}
		raw, ok := layer.Lookup(ref.Path)
		if !ok {
			continue
		}
		value, err := coerceValue(ref.Entry, raw)
		if err != nil {
			return nil, "", newCoercionError(ref, layer.Source(), raw, err)
		}
		return value, layer.Source(), nil
	}
	return cloneValue(def), SourceDefault, nil
}

func newCoercionError(ref EntryRef, source Source, raw any, err error) *CoercionError {
	ce := &CoercionError{
		Path:     ref.Path,
		Source:   source,
		Value:    raw,
		Expected: ref.Entry.expected(),
		Err:      err,
	}
	if ref.Entry.hasChoices() {
		ce.Choices = slices.Clone(ref.Entry.Choices)
	}
	return ce
}
