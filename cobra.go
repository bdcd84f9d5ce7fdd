// FILE: confschema/cobra.go
package confschema

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RunFunc receives the selected sub-command ("" for the root command), the
// CLI layer built from the options the user actually passed, and the
// remaining positional arguments.
type RunFunc func(cmd *cobra.Command, subcommand string, cli Layer, args []string) error

// NewCommandLine builds a cobra command tree from a derived argument tree.
// Option values stay textual; coercion happens in Resolve. Shell completion
// scripts come from cobra's built-in completion command.
func NewCommandLine(name string, tree *ArgSpecTree, run RunFunc) *cobra.Command {
	var root *cobra.Command
	if tree.Root != nil {
		root = newCobraCommand(name, tree.Root, run)
		root.Args = nil
	} else {
		root = &cobra.Command{Use: name}
		root.SetHelpFunc(groupedHelp(nil))
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	for _, spec := range tree.Subcommands {
		root.AddCommand(newCobraCommand(spec.Name, spec, run))
	}
	return root
}

func newCobraCommand(use string, spec *CommandSpec, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: spec.Help,
		Args:  cobra.ArbitraryArgs,
	}
	fs := cmd.Flags()
	fs.SortFlags = false
	for _, arg := range spec.Args() {
		addFlag(fs, arg)
	}
	cmd.SetHelpFunc(groupedHelp(spec))
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		layer, err := spec.ParsedToLayer(changedValues(cmd.Flags(), spec))
		if err != nil {
			return err
		}
		if run == nil {
			return nil
		}
		return run(cmd, spec.Name, layer, args)
	}
	return cmd
}

func addFlag(fs *pflag.FlagSet, arg ArgSpec) {
	switch arg.Kind {
	case ArgSwitch:
		fs.BoolP(arg.Long, arg.Short, false, arg.Help)
		fs.Bool(arg.Negation, false, "disable --"+arg.Long)
	case ArgMulti:
		fs.VarP(&multiValue{typ: arg.Elem.String() + "s"}, arg.Long, arg.Short, arg.Help)
	default:
		fs.VarP(&textValue{typ: arg.Type.String()}, arg.Long, arg.Short, arg.Help)
	}
}

// changedValues collects the options the user passed, keyed by flag name.
// Flags left untouched are absent, not default-valued.
func changedValues(fs *pflag.FlagSet, spec *CommandSpec) map[string]any {
	values := make(map[string]any)
	fs.Visit(func(f *pflag.Flag) {
		if _, ok := spec.byName[f.Name]; !ok {
			return
		}
		switch v := f.Value.(type) {
		case *multiValue:
			values[f.Name] = append([]string(nil), v.items...)
		default:
			values[f.Name] = f.Value.String()
		}
	})
	return values
}

// textValue keeps the last value given to a single-valued option.
type textValue struct {
	typ   string
	value string
}

func (v *textValue) String() string { return v.value }

func (v *textValue) Set(s string) error {
	v.value = s
	return nil
}

func (v *textValue) Type() string { return v.typ }

// multiValue records every occurrence of a repeatable option.
type multiValue struct {
	typ   string
	items []string
}

func (v *multiValue) String() string { return strings.Join(v.items, " ") }

func (v *multiValue) Set(s string) error {
	v.items = append(v.items, s)
	return nil
}

func (v *multiValue) Type() string { return v.typ }

// WriteCompletionFiles writes bash, zsh and fish completion scripts for root
// under dir/bash, dir/zsh and dir/fish.
func WriteCompletionFiles(ctx context.Context, root *cobra.Command, dir string) error {
	name := root.Name()
	scripts := []struct {
		path string
		gen  func(*bytes.Buffer) error
	}{
		{filepath.Join(dir, "bash", name+".sh"), func(b *bytes.Buffer) error { return root.GenBashCompletionV2(b, true) }},
		{filepath.Join(dir, "zsh", "_"+name), func(b *bytes.Buffer) error { return root.GenZshCompletion(b) }},
		{filepath.Join(dir, "fish", name+".fish"), func(b *bytes.Buffer) error { return root.GenFishCompletion(b, true) }},
	}
	for _, script := range scripts {
		var buf bytes.Buffer
		if err := script.gen(&buf); err != nil {
			return fmt.Errorf("failed to generate %s: %w", script.path, err)
		}
		if err := WriteFile(ctx, script.path, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
