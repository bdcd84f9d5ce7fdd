// FILE: confschema/doc.go

// Package confschema is a declarative configuration manager. A program
// describes its options once, as a typed schema of nested sections, and the
// package derives everything else from it: value resolution across sources,
// the command-line surface including sub-commands, and the persisted file.
//
// Features:
//   - Closed set of value types (bool, int, float, string, path, choice, list)
//     with one strict coercion routine each
//   - Layered resolution with provenance tracking per value
//   - Sub-commands that gate which sections are active and exposed
//   - Command-line derivation with grouped help and shell completion (cobra)
//   - Partial-override files in TOML, YAML or JSON that keep unknown keys
//   - Struct decoding of any section via mapstructure
//   - Builder pattern for easy initialization
//
// Quick Start:
//
//	schema := confschema.MustSchema(confschema.Root(
//	    confschema.NewSection("server",
//	        confschema.String("host", "localhost", confschema.Help("bind address")),
//	        confschema.Int("port", 8080, confschema.Short("p")),
//	    ),
//	    confschema.Int("retries", 3),
//	))
//
//	cfg, err := confschema.NewBuilder(schema).
//	    WithEnvPrefix("MYAPP_").
//	    WithFile("config.toml").
//	    Build()
//	if err != nil && !errors.Is(err, confschema.ErrConfigNotFound) {
//	    log.Fatal(err)
//	}
//
//	port, _ := cfg.Int64("server.port")
//
// Default Precedence (highest to lowest):
//  1. Command-line arguments (--server-port=9090)
//  2. Environment variables (MYAPP_SERVER_PORT=9090)
//  3. Configuration file (config.toml)
//  4. Default values
//
// Lower-level pieces are usable on their own: NewSchema, Resolve with an
// explicit ascending layer list, DeriveArguments and ParsedToLayer for any
// argument parser, and Load/Dump for persisted documents.
//
// Concurrency:
// A Schema is immutable once built and may be shared freely. A Config is a
// plain value owned by one goroutine; Clone it before mutating a shared one.
package confschema
