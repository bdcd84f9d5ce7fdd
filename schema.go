// FILE: confschema/schema.go
package confschema

import (
	"fmt"
	"slices"
	"strings"
)

// CLISeparator replaces dots when a long option name is derived from a path.
const CLISeparator = "-"

// reservedCommands cannot be used as sub-command names since the command
// line adapter installs them itself.
var reservedCommands = []string{"help", "completion"}

// Subcommand claims a set of sections that are only active, and only exposed
// on the command line, when the sub-command is selected.
//
// A Subcommand with an empty Name describes the bare invocation: its
// sections are active only when no sub-command is given, and its Help
// becomes the root command description.
type Subcommand struct {
	Name     string
	Help     string
	Sections []string // dotted section paths
	// Defaults overrides schema defaults, keyed by entry path, while the
	// sub-command is selected. Layers still take precedence over them.
	Defaults map[string]any
}

// EntryRef locates an entry inside a schema.
type EntryRef struct {
	Path    string // full dotted path, e.g. "server.tls.cert"
	Section string // dotted path of the owning section, "" for root
	Entry   Entry
	// Owners lists the sub-commands the entry is exclusive to. Empty means
	// the entry is global and always active.
	Owners []string
}

// Global reports whether the entry is active regardless of sub-command.
func (r EntryRef) Global() bool {
	return len(r.Owners) == 0
}

// Schema is the validated, read-only tree of sections and entries plus the
// sub-command partitioning. It may be shared by concurrent readers.
type Schema struct {
	root        *Section
	subcommands []Subcommand
	bare        *Subcommand
	entries     []EntryRef
	entryIndex  map[string]int
	sections    map[string]*Section
	owners      map[string][]string // section path -> claiming sub-commands
}

// NewSchema validates the tree rooted at root and the sub-command table.
// Any violation is reported as a *SchemaError naming the offending path.
func NewSchema(root *Section, subcommands ...Subcommand) (*Schema, error) {
	if root == nil {
		return nil, &SchemaError{Reason: "root section is nil"}
	}
	s := &Schema{
		root:       cloneSection(root),
		entryIndex: make(map[string]int),
		sections:   make(map[string]*Section),
		owners:     make(map[string][]string),
	}
	s.root.Name = ""

	if err := s.indexSection(s.root, ""); err != nil {
		return nil, err
	}
	if err := s.indexSubcommands(subcommands); err != nil {
		return nil, err
	}
	for i := range s.entries {
		s.entries[i].Owners = s.ownersOf(s.entries[i].Section)
	}
	if err := s.checkSubcommandDefaults(); err != nil {
		return nil, err
	}
	if err := s.checkCLINames(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for schemas
// declared as package-level values.
func MustSchema(root *Section, subcommands ...Subcommand) *Schema {
	s, err := NewSchema(root, subcommands...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) indexSection(sec *Section, path string) error {
	s.sections[path] = sec
	seen := make(map[string]bool)
	sec.entries = sec.entries[:0]
	for i, m := range sec.members {
		var name string
		switch v := m.(type) {
		case Entry:
			name = v.Name
		case *Section:
			name = v.Name
		}
		full := joinPath(path, name)
		if !isValidKeySegment(name) {
			return &SchemaError{Path: full, Reason: fmt.Sprintf("invalid name %q", name)}
		}
		if seen[name] {
			return &SchemaError{Path: full, Reason: "path collision"}
		}
		seen[name] = true

		switch v := m.(type) {
		case Entry:
			normalized, err := validateEntry(full, v)
			if err != nil {
				return err
			}
			s.entryIndex[full] = len(s.entries)
			s.entries = append(s.entries, EntryRef{Path: full, Section: path, Entry: normalized})
			sec.members[i] = normalized
			sec.entries = append(sec.entries, normalized)
		case *Section:
			if err := s.indexSection(v, full); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateEntry(path string, e Entry) (Entry, error) {
	switch e.Type {
	case TypeBool, TypeInt, TypeFloat, TypeString, TypePath:
	case TypeChoice:
		if err := validateChoices(path, e.Choices); err != nil {
			return e, err
		}
	case TypeList:
		switch e.Elem {
		case TypeBool, TypeInt, TypeFloat, TypeString, TypePath:
		case TypeChoice:
			if err := validateChoices(path, e.Choices); err != nil {
				return e, err
			}
		default:
			return e, &SchemaError{Path: path, Reason: fmt.Sprintf("list element type %s is not a scalar", e.Elem)}
		}
	default:
		return e, &SchemaError{Path: path, Reason: fmt.Sprintf("unknown value type %d", int(e.Type))}
	}

	if e.Short != "" && !isValidShortName(e.Short) {
		return e, &SchemaError{Path: path, Reason: fmt.Sprintf("invalid short option %q", e.Short)}
	}
	if e.Long != "" && !isValidLongName(e.Long) {
		return e, &SchemaError{Path: path, Reason: fmt.Sprintf("invalid long option %q", e.Long)}
	}

	if e.Type == TypeList && e.Default == nil {
		e.Default = newTypedSlice(e.Elem, 0)
	}
	def, err := coerceValue(e, e.Default)
	if err != nil {
		return e, &SchemaError{Path: path, Reason: fmt.Sprintf("default %#v does not satisfy %s: %v", e.Default, e.expected(), err)}
	}
	e.Default = def
	e.Choices = slices.Clone(e.Choices)
	return e, nil
}

func validateChoices(path string, choices []string) error {
	if len(choices) == 0 {
		return &SchemaError{Path: path, Reason: "choice entry declares no choices"}
	}
	seen := make(map[string]bool, len(choices))
	for _, c := range choices {
		if seen[c] {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("duplicated choice %q", c)}
		}
		seen[c] = true
	}
	return nil
}

func (s *Schema) indexSubcommands(subcommands []Subcommand) error {
	seen := make(map[string]bool)
	for _, sub := range subcommands {
		if sub.Name == "" {
			if s.bare != nil {
				return &SchemaError{Reason: "bare command declared twice"}
			}
		} else if !isValidKeySegment(sub.Name) {
			return &SchemaError{Path: sub.Name, Reason: "invalid sub-command name"}
		}
		if slices.Contains(reservedCommands, sub.Name) {
			return &SchemaError{Path: sub.Name, Reason: "reserved sub-command name"}
		}
		if seen[sub.Name] {
			return &SchemaError{Path: sub.Name, Reason: "duplicated sub-command"}
		}
		seen[sub.Name] = true

		claimed := make([]string, 0, len(sub.Sections))
		for _, path := range sub.Sections {
			if path == "" {
				return &SchemaError{Path: sub.Name, Reason: "sub-command cannot claim the root section"}
			}
			if _, ok := s.sections[path]; !ok {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("section claimed by sub-command %q does not exist", sub.Name)}
			}
			if !slices.Contains(claimed, path) {
				claimed = append(claimed, path)
				s.owners[path] = append(s.owners[path], sub.Name)
			}
		}
		indexed := Subcommand{Name: sub.Name, Help: sub.Help, Sections: claimed, Defaults: cloneMap(sub.Defaults)}
		if sub.Name == "" {
			s.bare = &indexed
			continue
		}
		s.subcommands = append(s.subcommands, indexed)
	}
	return nil
}

// checkSubcommandDefaults coerces every sub-command default in place. A
// default must name an entry that is active under its sub-command.
func (s *Schema) checkSubcommandDefaults() error {
	subs := slices.Clone(s.subcommands)
	if s.bare != nil {
		subs = append(subs, *s.bare)
	}
	for _, sub := range subs {
		for path, raw := range sub.Defaults {
			i, ok := s.entryIndex[path]
			if !ok {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("default of sub-command %q names no entry", sub.Name)}
			}
			ref := s.entries[i]
			if !ref.activeFor(sub.Name) {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("default of sub-command %q names an entry it cannot see", sub.Name)}
			}
			value, err := coerceValue(ref.Entry, raw)
			if err != nil {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("default %#v of sub-command %q does not satisfy %s: %v", raw, sub.Name, ref.Entry.expected(), err)}
			}
			sub.Defaults[path] = value
		}
	}
	return nil
}

// defaultFor returns the default of ref under subcommand: the sub-command
// override if any, else the schema default.
func (s *Schema) defaultFor(ref EntryRef, subcommand string) any {
	sub, ok := s.lookupSubcommand(subcommand)
	if ok {
		if v, ok := sub.Defaults[ref.Path]; ok {
			return cloneValue(v)
		}
	}
	return cloneValue(ref.Entry.Default)
}

func (s *Schema) lookupSubcommand(name string) (*Subcommand, bool) {
	if name == "" {
		return s.bare, s.bare != nil
	}
	for i := range s.subcommands {
		if s.subcommands[i].Name == name {
			return &s.subcommands[i], true
		}
	}
	return nil, false
}

// ownersOf returns the sub-commands claiming the nearest claimed ancestor
// (or the section itself). Nil means global.
func (s *Schema) ownersOf(sectionPath string) []string {
	path := sectionPath
	for {
		if owners, ok := s.owners[path]; ok {
			return owners
		}
		if path == "" {
			return nil
		}
		path, _ = splitPath(path)
	}
}

// checkCLINames rejects colliding short or long names inside every set of
// entries that can be visible at the same time.
func (s *Schema) checkCLINames() error {
	visible := append([]string{""}, s.SubcommandNames()...)
	for _, sub := range visible {
		taken := map[string]string{"--help": "<help>", "-h": "<help>"}
		claim := func(name, path string) error {
			if other, ok := taken[name]; ok {
				where := "the root command"
				if sub != "" {
					where = fmt.Sprintf("sub-command %q", sub)
				}
				return &SchemaError{Path: path, Reason: fmt.Sprintf("CLI name %s collides with %s under %s", name, other, where)}
			}
			taken[name] = path
			return nil
		}
		for _, ref := range s.entries {
			if !ref.Entry.InCLI || !ref.activeFor(sub) {
				continue
			}
			long := longName(ref)
			if err := claim("--"+long, ref.Path); err != nil {
				return err
			}
			if ref.Entry.Type == TypeBool {
				if err := claim("--"+negationPrefix+long, ref.Path); err != nil {
					return err
				}
			}
			if ref.Entry.Short != "" {
				if err := claim("-"+ref.Entry.Short, ref.Path); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// activeFor reports visibility under subcommand, "" being the bare command.
func (r EntryRef) activeFor(subcommand string) bool {
	return r.Global() || slices.Contains(r.Owners, subcommand)
}

func (r EntryRef) clone() EntryRef {
	r.Entry = cloneEntry(r.Entry)
	r.Owners = slices.Clone(r.Owners)
	return r
}

// Entries returns every entry of the schema in declaration order.
func (s *Schema) Entries() []EntryRef {
	out := make([]EntryRef, len(s.entries))
	for i, ref := range s.entries {
		out[i] = ref.clone()
	}
	return out
}

// ActiveEntries returns the entries visible under a sub-command: the global
// ones plus those of the sub-command's sections. An empty name selects the
// bare invocation: the global entries plus any sections claimed for it.
func (s *Schema) ActiveEntries(subcommand string) ([]EntryRef, error) {
	if subcommand != "" {
		if _, ok := s.Subcommand(subcommand); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubcommand, subcommand)
		}
	}
	var out []EntryRef
	for _, ref := range s.entries {
		if ref.activeFor(subcommand) {
			out = append(out, ref.clone())
		}
	}
	return out, nil
}

// IsActive reports whether the entry at path is visible under subcommand.
func (s *Schema) IsActive(path, subcommand string) bool {
	i, ok := s.entryIndex[path]
	return ok && s.entries[i].activeFor(subcommand)
}

// Ref returns the located entry at a dotted path.
func (s *Schema) Ref(path string) (EntryRef, bool) {
	i, ok := s.entryIndex[path]
	if !ok {
		return EntryRef{}, false
	}
	return s.entries[i].clone(), true
}

// Entry returns the entry at a dotted path.
func (s *Schema) Entry(path string) (Entry, bool) {
	ref, ok := s.Ref(path)
	return ref.Entry, ok
}

// Section returns a copy of the section at a dotted path. The root is at "".
// Changing the copy does not affect the schema.
func (s *Schema) Section(path string) (*Section, bool) {
	sec, ok := s.sections[path]
	if !ok {
		return nil, false
	}
	return cloneSection(sec), true
}

// Root returns a copy of the root section.
func (s *Schema) Root() *Section {
	return cloneSection(s.root)
}

// SectionOwners returns the sub-commands a section is exclusive to.
func (s *Schema) SectionOwners(path string) []string {
	return slices.Clone(s.ownersOf(path))
}

// Subcommand returns the sub-command definition with the given name. The
// empty name returns the bare command definition, if declared.
func (s *Schema) Subcommand(name string) (Subcommand, bool) {
	sub, ok := s.lookupSubcommand(name)
	if !ok {
		return Subcommand{}, false
	}
	return sub.clone(), true
}

// Subcommands returns the named sub-commands in declaration order.
func (s *Schema) Subcommands() []Subcommand {
	out := make([]Subcommand, len(s.subcommands))
	for i, sub := range s.subcommands {
		out[i] = sub.clone()
	}
	return out
}

func (sub Subcommand) clone() Subcommand {
	sub.Sections = slices.Clone(sub.Sections)
	sub.Defaults = cloneMap(sub.Defaults)
	return sub
}

// SubcommandNames returns the sub-command names in declaration order.
func (s *Schema) SubcommandNames() []string {
	names := make([]string, len(s.subcommands))
	for i, sub := range s.subcommands {
		names[i] = sub.Name
	}
	return names
}

// longName returns the explicit long option or the path-derived one.
func longName(ref EntryRef) string {
	if ref.Entry.Long != "" {
		return ref.Entry.Long
	}
	return strings.ReplaceAll(ref.Path, ".", CLISeparator)
}

func cloneEntry(e Entry) Entry {
	e.Choices = slices.Clone(e.Choices)
	e.Default = cloneValue(e.Default)
	return e
}

func cloneSection(src *Section) *Section {
	dst := &Section{Name: src.Name, Help: src.Help}
	for _, m := range src.members {
		switch v := m.(type) {
		case Entry:
			v = cloneEntry(v)
			dst.entries = append(dst.entries, v)
			dst.members = append(dst.members, v)
		case *Section:
			c := cloneSection(v)
			dst.sections = append(dst.sections, c)
			dst.members = append(dst.members, c)
		}
	}
	return dst
}
