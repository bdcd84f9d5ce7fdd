// FILE: confschema/entry.go
package confschema

// ValueType is the closed set of types an entry can hold.
type ValueType int

const (
	TypeBool ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypePath
	TypeChoice
	TypeList
)

// String returns the name used in help text and error messages.
func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypePath:
		return "path"
	case TypeChoice:
		return "choice"
	case TypeList:
		return "list"
	default:
		return "unknown"
	}
}

// DefaultSeparator splits textual list values from files and environment.
const DefaultSeparator = ","

// Entry describes one configurable value.
//
// Native value representations: bool, int64, float64, string (for string,
// path and choice entries) and []bool, []int64, []float64, []string for lists.
type Entry struct {
	Name    string
	Type    ValueType
	Elem    ValueType // element type, lists only
	Default any
	Choices []string // allowed values for choice entries and choice lists

	// Separator splits textual list values. An empty separator splits on
	// whitespace.
	Separator string

	Short  string // single-character CLI alias
	Long   string // CLI long name, derived from the path when empty
	EnvKey string // environment key, derived from the path when empty
	Help   string

	InCLI  bool
	InFile bool
}

func (Entry) member() {}

// EntryOption customizes an entry built by one of the typed constructors.
type EntryOption func(*Entry)

// Help sets the help text.
func Help(text string) EntryOption {
	return func(e *Entry) { e.Help = text }
}

// Short sets a one-character CLI alias.
func Short(name string) EntryOption {
	return func(e *Entry) { e.Short = name }
}

// Long sets an explicit CLI long option name.
func Long(name string) EntryOption {
	return func(e *Entry) { e.Long = name }
}

// EnvKey sets an explicit environment key, bypassing prefix and transform.
func EnvKey(key string) EntryOption {
	return func(e *Entry) { e.EnvKey = key }
}

// Separator sets the list separator for textual values.
func Separator(sep string) EntryOption {
	return func(e *Entry) { e.Separator = sep }
}

// ElemChoices restricts the elements of a list of choices.
func ElemChoices(choices ...string) EntryOption {
	return func(e *Entry) { e.Choices = append([]string(nil), choices...) }
}

// NoCLI excludes the entry from the command line.
func NoCLI() EntryOption {
	return func(e *Entry) { e.InCLI = false }
}

// NoFile excludes the entry from the persisted file.
func NoFile() EntryOption {
	return func(e *Entry) { e.InFile = false }
}

func newEntry(name string, typ ValueType, def any, opts []EntryOption) Entry {
	e := Entry{
		Name:      name,
		Type:      typ,
		Default:   def,
		Separator: DefaultSeparator,
		InCLI:     true,
		InFile:    true,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Bool declares a boolean entry. On the command line it becomes a
// --name / --no-name switch pair.
func Bool(name string, def bool, opts ...EntryOption) Entry {
	return newEntry(name, TypeBool, def, opts)
}

// Flag declares a command-line only switch that defaults to false and is
// never persisted.
func Flag(name, help string, opts ...EntryOption) Entry {
	opts = append([]EntryOption{Help(help), NoFile()}, opts...)
	return newEntry(name, TypeBool, false, opts)
}

func Int(name string, def int64, opts ...EntryOption) Entry {
	return newEntry(name, TypeInt, def, opts)
}

func Float(name string, def float64, opts ...EntryOption) Entry {
	return newEntry(name, TypeFloat, def, opts)
}

func String(name, def string, opts ...EntryOption) Entry {
	return newEntry(name, TypeString, def, opts)
}

// Path declares a filesystem path entry. Values are kept verbatim.
func Path(name, def string, opts ...EntryOption) Entry {
	return newEntry(name, TypePath, def, opts)
}

// Choice declares an entry restricted to a fixed set of strings.
func Choice(name, def string, choices []string, opts ...EntryOption) Entry {
	e := newEntry(name, TypeChoice, def, opts)
	e.Choices = append([]string(nil), choices...)
	return e
}

// List declares a sequence of scalars of type elem. def must be a slice
// (or nil for an empty list).
func List(name string, elem ValueType, def any, opts ...EntryOption) Entry {
	e := newEntry(name, TypeList, def, opts)
	e.Elem = elem
	return e
}

// expected describes the entry type for error messages.
func (e Entry) expected() string {
	if e.Type == TypeList {
		return "list of " + e.Elem.String()
	}
	return e.Type.String()
}

func (e Entry) hasChoices() bool {
	return e.Type == TypeChoice || (e.Type == TypeList && e.Elem == TypeChoice)
}
