// Package errors defines the file-level errors raised while loading the
// release service configuration and the content-type schema file.
package errors

import (
	"fmt"
)

// ParseError reports a file that could not be read or decoded. Line is set
// when the decoder reported one.
type ParseError struct {
	Kind    string
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError for a file of the given kind, such as
// "config" or "schema".
func NewParseError(kind, path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Kind: kind, Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	prefix := "parse error"
	if e.Kind != "" {
		prefix = e.Kind + " parse error"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %s", prefix, e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError reports a decoded document that breaks a rule. Field is a
// dotted path such as "storage.path" or "contentTypes[2].attributes[0].target".
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
