// FILE: confschema/persist.go
package confschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects the persisted document syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DumpMode selects which entries Dump writes.
type DumpMode int

const (
	// DumpDiff writes only values that differ from their default.
	DumpDiff DumpMode = iota
	// DumpFull writes every file entry.
	DumpFull
)

func (m DumpMode) String() string {
	switch m {
	case DumpDiff:
		return "diff"
	case DumpFull:
		return "full"
	default:
		return fmt.Sprintf("DumpMode(%d)", int(m))
	}
}

type persistOptions struct {
	format  Format
	logger  *slog.Logger
	file    string
	sources []Source
}

// PersistOption configures Load, Dump and the file helpers.
type PersistOption func(*persistOptions)

// WithFormat sets the document syntax. TOML is the default; file helpers
// detect it from the extension unless set explicitly.
func WithFormat(f Format) PersistOption {
	return func(o *persistOptions) { o.format = f }
}

// WithLogger sets the logger used for unrecognized and ignored keys.
func WithLogger(l *slog.Logger) PersistOption {
	return func(o *persistOptions) { o.logger = l }
}

// WithFileName names the document in errors and log records.
func WithFileName(name string) PersistOption {
	return func(o *persistOptions) { o.file = name }
}

// OnlySources restricts Dump to values supplied by the given sources. When
// the winning value of an entry comes from an excluded source but a file
// defined the entry and SourceFile is allowed, the file value is written.
// Retained and unrecognized file values are always written back.
func OnlySources(sources ...Source) PersistOption {
	return func(o *persistOptions) { o.sources = append(o.sources, sources...) }
}

func buildPersistOptions(opts []PersistOption) persistOptions {
	o := persistOptions{format: FormatTOML}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// FormatFromPath detects the document format from a file extension and
// falls back to TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

// FileLayer is the layer parsed from a persisted document. Besides the
// entry values it keeps every key the schema does not know about.
type FileLayer struct {
	file         string
	values       map[string]any
	unrecognized map[string]any
	warnings     []UnrecognizedKeyWarning
}

func (l *FileLayer) Source() Source {
	return SourceFile
}

func (l *FileLayer) Lookup(path string) (any, bool) {
	v, ok := l.values[path]
	return v, ok
}

func (l *FileLayer) Paths() []string {
	return slices.Sorted(maps.Keys(l.values))
}

// File returns the document name, if known.
func (l *FileLayer) File() string {
	return l.file
}

// Unrecognized returns the nested keys that match nothing in the schema.
func (l *FileLayer) Unrecognized() map[string]any {
	return cloneMap(l.unrecognized)
}

// Warnings returns one warning per unrecognized key, in document order of
// their sorted paths.
func (l *FileLayer) Warnings() []UnrecognizedKeyWarning {
	return slices.Clone(l.warnings)
}

// Load parses a persisted document into a layer. Keys naming schema entries
// become raw layer values; keys naming nothing are preserved and reported as
// UnrecognizedKeyWarning. Entries excluded from files are ignored. A
// malformed document, or a scalar where the schema has a section, yields a
// *FileFormatError.
func Load(data []byte, schema *Schema, opts ...PersistOption) (*FileLayer, error) {
	o := buildPersistOptions(opts)
	doc, err := decodeDocument(data, o.format)
	if err != nil {
		return nil, &FileFormatError{File: o.file, Message: fmt.Sprintf("invalid %s document", o.format), Err: err}
	}

	layer := &FileLayer{
		file:         o.file,
		values:       make(map[string]any),
		unrecognized: make(map[string]any),
	}
	if err := layer.read(schema, schema.root, nil, doc, o); err != nil {
		return nil, err
	}
	return layer, nil
}

// read walks doc alongside sec. Section names never contain dots, so segs
// always joins back to a schema path; an unknown key keeps its own segment
// even when it contains dots.
func (l *FileLayer) read(schema *Schema, sec *Section, segs []string, doc map[string]any, o persistOptions) error {
	for _, key := range slices.Sorted(maps.Keys(doc)) {
		value := doc[key]
		keySegs := slices.Concat(segs, []string{key})
		path := strings.Join(keySegs, ".")

		if child, ok := sec.Child(key); ok {
			table, isTable := value.(map[string]any)
			if !isTable {
				return &FileFormatError{File: o.file, Path: path, Message: fmt.Sprintf("expected a table for section, found %T", value)}
			}
			if err := l.read(schema, child, keySegs, table, o); err != nil {
				return err
			}
			continue
		}

		if entry, ok := sec.Entry(key); ok {
			if _, isTable := value.(map[string]any); isTable {
				return &FileFormatError{File: o.file, Path: path, Message: "expected a value, found a table"}
			}
			if !entry.InFile {
				o.logger.Debug("Ignoring configuration key excluded from files", "path", path, "file", o.file)
				continue
			}
			l.values[path] = value
			continue
		}

		setNestedSegments(l.unrecognized, keySegs, cloneValue(value))
		l.warnings = append(l.warnings, UnrecognizedKeyWarning{Path: path, Value: value})
		o.logger.Warn("Unrecognized configuration key", "path", path, "file", o.file)
	}
	return nil
}

func decodeDocument(data []byte, format Format) (map[string]any, error) {
	doc := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	switch format {
	case FormatTOML, "":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		normalized, ok := normalizeYAML(raw).(map[string]any)
		if !ok {
			if raw == nil {
				return doc, nil
			}
			return nil, fmt.Errorf("top level is %T, not a mapping", raw)
		}
		doc = normalized
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return doc, nil
}

// normalizeYAML turns the map[any]any that yaml.v3 produces for non-string
// keys into map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeYAML(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeYAML(item)
		}
		return t
	default:
		return v
	}
}

// Dump serializes cfg as a partial-override document. Only entries stored in
// files are written: in DumpDiff mode those whose value differs from the
// default, in DumpFull mode all of them. Values a file held for inactive
// entries and keys unknown to the schema are written back unchanged.
func Dump(cfg *Config, schema *Schema, mode DumpMode, opts ...PersistOption) ([]byte, error) {
	o := buildPersistOptions(opts)
	nested := cloneMap(cfg.foreign)
	if nested == nil {
		nested = make(map[string]any)
	}

	for path, raw := range cfg.retained {
		if e, ok := schema.Entry(path); ok && !e.InFile {
			continue
		}
		setNestedValue(nested, path, cloneValue(raw))
	}

	for _, ref := range schema.entries {
		if !ref.Entry.InFile {
			continue
		}
		value, ok := cfg.values[ref.Path]
		if !ok {
			continue
		}
		if len(o.sources) > 0 && !slices.Contains(o.sources, cfg.sources[ref.Path]) {
			value, ok = storedValue(cfg, ref, o.sources)
			if !ok {
				continue
			}
		}
		if mode == DumpDiff && valuesEqual(value, cfg.defaults[ref.Path]) {
			continue
		}
		setNestedValue(nested, ref.Path, cloneValue(value))
	}

	return encodeDocument(nested, o.format)
}

// storedValue returns the file value of an entry whose winning source was
// filtered out. A value that no longer coerces is written back raw.
func storedValue(cfg *Config, ref EntryRef, sources []Source) (any, bool) {
	if !slices.Contains(sources, SourceFile) {
		return nil, false
	}
	raw, ok := cfg.stored[ref.Path]
	if !ok {
		return nil, false
	}
	if value, err := coerceValue(ref.Entry, raw); err == nil {
		return value, true
	}
	return raw, true
}

func encodeDocument(nested map[string]any, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatTOML, "":
		if err := toml.NewEncoder(&buf).Encode(nested); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to TOML: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(nested); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to YAML: %w", err)
		}
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(nested); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return buf.Bytes(), nil
}
