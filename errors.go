// FILE: confschema/errors.go
package confschema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below match their sentinel with errors.Is.
var (
	ErrSchema            = errors.New("invalid schema")
	ErrCoercion          = errors.New("invalid configuration value")
	ErrFileFormat        = errors.New("malformed configuration file")
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrUnknownSubcommand = errors.New("unknown sub-command")
	ErrUnknownPath       = errors.New("path not in schema")
	ErrCLIParse          = errors.New("failed to parse command-line arguments")
)

// SchemaError reports a programming mistake in a schema definition.
// It is raised by NewSchema and is always fatal.
type SchemaError struct {
	// Path is the dotted path of the offending section or entry.
	Path string
	// Reason describes the violation.
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema error: %s", e.Reason)
	}
	return fmt.Sprintf("schema error at %q: %s", e.Path, e.Reason)
}

// Is implements error matching against ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// CoercionError reports a raw value that could not be converted to the type
// declared by its entry.
type CoercionError struct {
	// Path is the dotted entry path.
	Path string
	// Source is the layer that supplied the value.
	Source Source
	// Value is the offending raw value.
	Value any
	// Expected names the declared type.
	Expected string
	// Choices lists the allowed values for choice entries.
	Choices []string
	// Err is the underlying parse error, if any.
	Err error
}

func (e *CoercionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid value %#v for %q", e.Value, e.Path)
	if e.Source != "" {
		fmt.Fprintf(&b, " from %s", e.Source)
	}
	fmt.Fprintf(&b, ": expected %s", e.Expected)
	if len(e.Choices) > 0 {
		fmt.Fprintf(&b, " (one of: %s)", strings.Join(e.Choices, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *CoercionError) Unwrap() error {
	return e.Err
}

// Is implements error matching against ErrCoercion.
func (e *CoercionError) Is(target error) bool {
	return target == ErrCoercion
}

// FileFormatError reports a persisted document that is not well-formed or
// does not have the nested shape of the schema.
type FileFormatError struct {
	// File is the file name when known, otherwise empty.
	File string
	// Path is the offending key path inside the document, if any.
	Path string
	// Message describes the problem.
	Message string
	// Err is the underlying decoder error.
	Err error
}

func (e *FileFormatError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.File != "" && e.Path != "":
		return fmt.Sprintf("config file '%s': key %q: %s", e.File, e.Path, msg)
	case e.File != "":
		return fmt.Sprintf("config file '%s': %s", e.File, msg)
	case e.Path != "":
		return fmt.Sprintf("config document: key %q: %s", e.Path, msg)
	default:
		return fmt.Sprintf("config document: %s", msg)
	}
}

// Unwrap returns the underlying error.
func (e *FileFormatError) Unwrap() error {
	return e.Err
}

// Is implements error matching against ErrFileFormat.
func (e *FileFormatError) Is(target error) bool {
	return target == ErrFileFormat
}

// UnrecognizedKeyWarning is a non-fatal report of a key in a persisted
// document that matches nothing in the schema. The key is kept, not dropped.
type UnrecognizedKeyWarning struct {
	Path  string
	Value any
}

func (w UnrecognizedKeyWarning) Error() string {
	return fmt.Sprintf("unrecognized configuration key %q", w.Path)
}
