package main

import (
	cs "confschema"
)

const appName = "confschema-demo"

// newSchema declares every option of the demo program.
func newSchema() (*cs.Schema, error) {
	root := cs.Root(
		cs.Path("config_file", "", cs.Long("config"), cs.Short("c"), cs.NoFile(), cs.Help("configuration file to read and write")),
		cs.NewSection("core",
			cs.Choice("log_level", "info", []string{"debug", "info", "warn", "error"}, cs.Help("minimum log level")),
			cs.Bool("verbose", false, cs.Short("v"), cs.Long("verbose"), cs.Help("shorthand for debug logging")),
			cs.Choice("color", "auto", []string{"auto", "always", "never"}, cs.Help("table output styling")),
		).Describe("Core options"),
		cs.NewSection("build",
			cs.Int("jobs", 4, cs.Short("j"), cs.Help("parallel build jobs")),
			cs.List("targets", cs.TypeString, []string{"all"}, cs.Help("targets to build")),
			cs.Choice("profile", "debug", []string{"debug", "release"}, cs.Help("build profile")),
			cs.Float("timeout", 300, cs.Help("build timeout in seconds")),
		).Describe("Build options"),
		cs.NewSection("serve",
			cs.String("host", "127.0.0.1", cs.Help("listen address")),
			cs.Int("port", 8080, cs.Short("p"), cs.Help("listen port")),
			cs.Path("root", "./public", cs.Help("directory to serve")),
			cs.NewSection("tls",
				cs.Bool("enabled", false, cs.Help("serve over TLS")),
				cs.Path("cert", "", cs.Help("certificate file")),
				cs.Path("key", "", cs.Help("private key file")),
			),
		).Describe("Serve options"),
		cs.NewSection("config",
			cs.Flag("create", "write a config file holding the defaults"),
			cs.Flag("update", "write a config file keeping its values and adding missing entries"),
			cs.Flag("edit", "open the config file in the editor"),
			cs.Path("completions", "", cs.NoFile(), cs.Help("write shell completion scripts into this directory")),
			cs.String("editor", "vim", cs.Help("text editor")),
		).Describe("Config file options"),
	)

	return cs.NewSchema(root,
		cs.Subcommand{Name: "show", Help: "print the resolved configuration"},
		cs.Subcommand{Name: "build", Help: "pretend to build", Sections: []string{"build"}},
		cs.Subcommand{Name: "serve", Help: "pretend to serve", Sections: []string{"serve"},
			Defaults: map[string]any{"core.log_level": "warn"}},
		cs.Subcommand{Name: "config", Help: "manage the config file", Sections: []string{"config"}},
	)
}
