// FILE: confschema/section.go
package confschema

import "strings"

// Member is anything a section can hold: an Entry or a nested *Section.
type Member interface {
	member()
}

// Section is an ordered group of entries and nested sections. It is the unit
// of persistence (one table in the file) and of CLI help grouping.
type Section struct {
	Name string
	Help string

	entries  []Entry
	sections []*Section
	members  []Member // declaration order, validated by NewSchema
}

func (*Section) member() {}

// NewSection builds a section from its members in declaration order.
func NewSection(name string, members ...Member) *Section {
	s := &Section{Name: name}
	for _, m := range members {
		if m == nil {
			continue
		}
		s.members = append(s.members, m)
		switch v := m.(type) {
		case Entry:
			s.entries = append(s.entries, v)
		case *Section:
			s.sections = append(s.sections, v)
		}
	}
	return s
}

// Root builds the unnamed top-level section of a schema.
func Root(members ...Member) *Section {
	return NewSection("", members...)
}

// Describe sets the section help text and returns the section.
func (s *Section) Describe(help string) *Section {
	s.Help = help
	return s
}

// Entries returns a copy of the section's own entries.
func (s *Section) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Sections returns the nested sections in declaration order.
func (s *Section) Sections() []*Section {
	return append([]*Section(nil), s.sections...)
}

// Entry returns the direct entry with the given name.
func (s *Section) Entry(name string) (Entry, bool) {
	for _, e := range s.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Child returns the direct nested section with the given name.
func (s *Section) Child(name string) (*Section, bool) {
	for _, c := range s.sections {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Lookup walks a dotted section path relative to s.
func (s *Section) Lookup(path string) (*Section, bool) {
	if path == "" {
		return s, true
	}
	current := s
	for _, segment := range strings.Split(path, ".") {
		next, ok := current.Child(segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// splitPath returns the section path and entry name of a dotted entry path.
func splitPath(path string) (string, string) {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}
