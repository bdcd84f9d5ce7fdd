// FILE: confschema/help.go
package confschema

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// groupedHelp prints one flag block per section instead of cobra's single
// flat list.
func groupedHelp(spec *CommandSpec) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		writeHelp(cmd.OutOrStdout(), cmd, spec)
	}
}

func writeHelp(w io.Writer, cmd *cobra.Command, spec *CommandSpec) {
	if cmd.Short != "" {
		fmt.Fprintf(w, "%s\n\n", cmd.Short)
	}
	fmt.Fprintf(w, "Usage:\n  %s", cmd.CommandPath())
	if cmd.HasAvailableSubCommands() {
		fmt.Fprint(w, " [command]")
	}
	if cmd.HasAvailableFlags() {
		fmt.Fprint(w, " [flags]")
	}
	fmt.Fprint(w, "\n")

	if cmd.HasAvailableSubCommands() {
		fmt.Fprint(w, "\nAvailable Commands:\n")
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() && sub.Name() != "help" {
				continue
			}
			fmt.Fprintf(w, "  %-*s %s\n", cmd.NamePadding(), sub.Name(), sub.Short)
		}
	}

	flags := cmd.Flags()
	if spec != nil {
		for _, group := range spec.Groups {
			block := pflag.NewFlagSet(group.Title, pflag.ContinueOnError)
			block.SortFlags = false
			for _, arg := range group.Args {
				if f := flags.Lookup(arg.Long); f != nil {
					block.AddFlag(f)
				}
				if arg.Negation != "" {
					if f := flags.Lookup(arg.Negation); f != nil {
						block.AddFlag(f)
					}
				}
			}
			fmt.Fprintf(w, "\n%s:\n%s", group.Title, block.FlagUsages())
		}
	}
	if f := flags.Lookup("help"); f != nil {
		block := pflag.NewFlagSet("help", pflag.ContinueOnError)
		block.AddFlag(f)
		fmt.Fprintf(w, "\nGeneral:\n%s", block.FlagUsages())
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\nUse \"%s [command] --help\" for more information about a command.\n", strings.TrimSpace(cmd.CommandPath()))
	}
}
