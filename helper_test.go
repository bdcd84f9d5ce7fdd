// FILE: confschema/helper_test.go
package confschema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestSchema builds the schema shared by most tests: global root and
// server entries, a build section for the "build" sub-command, a deploy
// section for "deploy", and a secret section kept out of files.
func newTestSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := NewSchema(Root(
		Int("retries", 3, Long("retries"), Help("retry count")),
		Bool("debug", false, Short("d")),
		NewSection("server",
			String("host", "localhost"),
			Int("port", 8080, Short("p"), Help("listen port")),
			List("tags", TypeString, []string{"a"}),
			Choice("mode", "dev", []string{"dev", "prod"}),
			Float("ratio", 0.5),
		).Describe("Server options"),
		NewSection("build",
			Int("jobs", 2),
			Flag("clean", "remove outputs first"),
			List("levels", TypeInt, nil, Separator("")),
		),
		NewSection("deploy",
			String("target", "staging"),
			Path("key", "", NoCLI()),
		),
		NewSection("secret",
			String("token", "", NoFile()),
		),
	),
		Subcommand{Name: "build", Help: "build things", Sections: []string{"build"}},
		Subcommand{Name: "deploy", Help: "deploy things", Sections: []string{"deploy"}},
	)
	require.NoError(t, err)
	return schema
}

// mustResolve resolves layers for subcommand and fails the test on error.
func mustResolve(t *testing.T, schema *Schema, subcommand string, layers ...Layer) *Config {
	t.Helper()
	cfg, err := Resolve(schema, layers, subcommand)
	require.NoError(t, err)
	return cfg
}
