// FILE: confschema/cli.go
package confschema

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ArgKind tells the argument parser how an option consumes tokens.
type ArgKind int

const (
	// ArgSwitch takes no value; bool entries get a --x / --no-x pair.
	ArgSwitch ArgKind = iota
	// ArgValue takes exactly one value.
	ArgValue
	// ArgMulti may be repeated; every occurrence adds one or more values.
	ArgMulti
)

func (k ArgKind) String() string {
	switch k {
	case ArgSwitch:
		return "switch"
	case ArgValue:
		return "value"
	case ArgMulti:
		return "multi"
	default:
		return "unknown"
	}
}

const negationPrefix = "no-"

// ArgSpec describes one command-line option derived from an entry.
type ArgSpec struct {
	Path     string // entry path the option feeds
	Long     string // long option name without dashes
	Short    string // one-character alias, may be empty
	Negation string // disabling option name for switches, e.g. "no-verbose"
	Kind     ArgKind
	Type     ValueType
	Elem     ValueType
	Choices  []string
	Default  any
	// Separator splits every occurrence of a multi option.
	Separator string
	// Help is the entry help decorated with default and choices.
	Help string
}

// ArgGroup collects the options of one section for grouped help output.
type ArgGroup struct {
	Path  string // section path, "" for root
	Title string
	Args  []ArgSpec
}

// CommandSpec is one node of the argument tree: the root command or a
// sub-command, with the options visible under it.
type CommandSpec struct {
	Name   string // "" for the root command
	Help   string
	Groups []ArgGroup

	byName map[string]argName
}

// argName resolves an option name to its spec.
type argName struct {
	spec    ArgSpec
	negated bool
}

// ArgSpecTree is the derived command-line surface of a schema.
type ArgSpecTree struct {
	// Root is nil when the tree was derived for a single sub-command.
	Root        *CommandSpec
	Subcommands []*CommandSpec
}

// Command returns the node for name, "" being the root command.
func (t *ArgSpecTree) Command(name string) (*CommandSpec, bool) {
	if name == "" {
		return t.Root, t.Root != nil
	}
	for _, c := range t.Subcommands {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Args returns every option of the command in group order.
func (c *CommandSpec) Args() []ArgSpec {
	var out []ArgSpec
	for _, g := range c.Groups {
		out = append(out, g.Args...)
	}
	return out
}

// Arg returns the option with the given long or negation name.
func (c *CommandSpec) Arg(name string) (ArgSpec, bool) {
	n, ok := c.byName[name]
	return n.spec, ok
}

// DeriveArguments builds the argument tree for a schema. With an empty
// active name the tree holds the root command (global entries) and one node
// per sub-command (global entries plus the sub-command's own). With a
// sub-command name only that node is built.
func DeriveArguments(schema *Schema, active string) (*ArgSpecTree, error) {
	tree := &ArgSpecTree{}
	if active != "" {
		sub, ok := schema.Subcommand(active)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubcommand, active)
		}
		cmd, err := deriveCommand(schema, sub.Name, sub.Help)
		if err != nil {
			return nil, err
		}
		tree.Subcommands = append(tree.Subcommands, cmd)
		return tree, nil
	}

	var rootHelp string
	if schema.bare != nil {
		rootHelp = schema.bare.Help
	}
	root, err := deriveCommand(schema, "", rootHelp)
	if err != nil {
		return nil, err
	}
	tree.Root = root
	for _, sub := range schema.subcommands {
		cmd, err := deriveCommand(schema, sub.Name, sub.Help)
		if err != nil {
			return nil, err
		}
		tree.Subcommands = append(tree.Subcommands, cmd)
	}
	return tree, nil
}

func deriveCommand(schema *Schema, name, help string) (*CommandSpec, error) {
	refs, err := schema.ActiveEntries(name)
	if err != nil {
		return nil, err
	}
	cmd := &CommandSpec{Name: name, Help: help, byName: make(map[string]argName)}
	groupIndex := make(map[string]int)
	for _, ref := range refs {
		if !ref.Entry.InCLI {
			continue
		}
		ref.Entry.Default = schema.defaultFor(ref, name)
		spec := deriveArg(ref)
		i, ok := groupIndex[ref.Section]
		if !ok {
			i = len(cmd.Groups)
			groupIndex[ref.Section] = i
			cmd.Groups = append(cmd.Groups, ArgGroup{Path: ref.Section, Title: groupTitle(schema, ref.Section)})
		}
		cmd.Groups[i].Args = append(cmd.Groups[i].Args, spec)
		cmd.byName[spec.Long] = argName{spec: spec}
		if spec.Negation != "" {
			cmd.byName[spec.Negation] = argName{spec: spec, negated: true}
		}
	}
	return cmd, nil
}

func deriveArg(ref EntryRef) ArgSpec {
	e := ref.Entry
	spec := ArgSpec{
		Path:      ref.Path,
		Long:      longName(ref),
		Short:     e.Short,
		Type:      e.Type,
		Elem:      e.Elem,
		Choices:   slices.Clone(e.Choices),
		Default:   cloneValue(e.Default),
		Separator: e.Separator,
		Help:      argHelp(e),
	}
	switch e.Type {
	case TypeBool:
		spec.Kind = ArgSwitch
		spec.Negation = negationPrefix + spec.Long
	case TypeList:
		spec.Kind = ArgMulti
	default:
		spec.Kind = ArgValue
	}
	return spec
}

// groupTitle prefers the section help and falls back to a title-cased path.
func groupTitle(schema *Schema, path string) string {
	if sec, ok := schema.sections[path]; ok && sec.Help != "" {
		return sec.Help
	}
	if path == "" {
		return "Options"
	}
	words := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(path)
	return cases.Title(language.English).String(words) + " options"
}

// argHelp renders help text with the default value and allowed choices.
func argHelp(e Entry) string {
	var parts []string
	if e.Help != "" {
		parts = append(parts, e.Help)
	}
	parts = append(parts, fmt.Sprintf("(default: %s)", displayDefault(e)))
	if e.hasChoices() {
		parts = append(parts, "{"+strings.Join(e.Choices, ",")+"}")
	}
	return strings.Join(parts, " ")
}

func displayDefault(e Entry) string {
	switch v := e.Default.(type) {
	case string:
		if v == "" {
			return `""`
		}
	}
	if e.Type == TypeList && reflect.ValueOf(e.Default).Len() == 0 {
		return "[]"
	}
	return formatValue(e, e.Default)
}

// ParsedToLayer converts parsed option values, keyed by long or negation
// name, into a CLI layer. Only the options present in values end up in the
// layer, so options the user did not pass never mask lower layers.
//
// Switch values may be bool or text; a negation with a true value sets
// false. Multi values may be a string or a []string of occurrences; every
// occurrence is split by the entry separator.
func (c *CommandSpec) ParsedToLayer(values map[string]any) (Layer, error) {
	out := make(map[string]any, len(values))
	given := make(map[string]string, len(values))
	for _, name := range slices.Sorted(maps.Keys(values)) {
		raw := values[name]
		arg, ok := c.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown option --%s", ErrCLIParse, name)
		}
		path := arg.spec.Path
		if other, dup := given[path]; dup {
			return nil, fmt.Errorf("%w: options --%s and --%s both set %q", ErrCLIParse, other, name, path)
		}
		given[path] = name

		switch {
		case arg.negated:
			on, err := coerceBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: --%s: %v", ErrCLIParse, name, err)
			}
			out[path] = !on.(bool)
		case arg.spec.Kind == ArgMulti:
			out[path] = joinOccurrences(arg.spec, raw)
		default:
			out[path] = raw
		}
	}
	return NewMapLayer(SourceCLI, out), nil
}

// joinOccurrences flattens repeated occurrences of a multi option into one
// native list of text items.
func joinOccurrences(spec ArgSpec, raw any) any {
	var occurrences []string
	switch v := raw.(type) {
	case string:
		occurrences = []string{v}
	case []string:
		occurrences = v
	default:
		return raw
	}
	items := []string{}
	for _, occ := range occurrences {
		items = append(items, splitList(occ, spec.Separator)...)
	}
	return items
}
