// Package errs defines the typed errors raised while building a harness.
//
// Every failure in the build pipeline is an *Error carrying a Kind plus the
// context needed to locate the problem in the input files (designator,
// field, row path, offending token, file path). Callers test for a kind with
// errors.Is against the package sentinels or with the IsX helpers.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes build errors.
type Kind string

const (
	// KindInvalidNumberFormat indicates a numeric literal that does not parse.
	KindInvalidNumberFormat Kind = "INVALID_NUMBER_FORMAT"

	// KindComponentValidation indicates a schema or list-length violation on a component.
	KindComponentValidation Kind = "COMPONENT_VALIDATION"

	// KindMultipleSeparator indicates a connection token with more than one separator.
	KindMultipleSeparator Kind = "MULTIPLE_SEPARATOR"

	// KindUnknownTemplateDesignator indicates a connection referencing an undeclared designator.
	KindUnknownTemplateDesignator Kind = "UNKNOWN_TEMPLATE_DESIGNATOR"

	// KindDuplicateDesignator indicates a designator declared twice.
	KindDuplicateDesignator Kind = "DUPLICATE_DESIGNATOR"

	// KindColorPaddingUnsupported indicates a multicolor with a length outside {1, 2, 3}.
	KindColorPaddingUnsupported Kind = "COLOR_PADDING_UNSUPPORTED"

	// KindUnsupportedLoopSide indicates a loop that cannot be placed on a connector side.
	KindUnsupportedLoopSide Kind = "UNSUPPORTED_LOOP_SIDE"

	// KindFileResolution indicates an input file that was not found on any search path.
	KindFileResolution Kind = "FILE_RESOLUTION"

	// KindUnitMismatch indicates arithmetic between quantities with different units.
	KindUnitMismatch Kind = "UNIT_MISMATCH"

	// KindSchemaViolation indicates a document whose shape does not match the schema.
	KindSchemaViolation Kind = "SCHEMA_VIOLATION"

	// KindTooling is the catch-all for tooling-layer problems such as a
	// corrupt quantity multiplier file.
	KindTooling Kind = "FILARE_TOOLS"
)

// Sentinels for errors.Is matching. Only the Kind is compared.
var (
	ErrInvalidNumberFormat       = &Error{Kind: KindInvalidNumberFormat}
	ErrComponentValidation       = &Error{Kind: KindComponentValidation}
	ErrMultipleSeparator         = &Error{Kind: KindMultipleSeparator}
	ErrUnknownTemplateDesignator = &Error{Kind: KindUnknownTemplateDesignator}
	ErrDuplicateDesignator       = &Error{Kind: KindDuplicateDesignator}
	ErrColorPaddingUnsupported   = &Error{Kind: KindColorPaddingUnsupported}
	ErrUnsupportedLoopSide       = &Error{Kind: KindUnsupportedLoopSide}
	ErrFileResolution            = &Error{Kind: KindFileResolution}
	ErrUnitMismatch              = &Error{Kind: KindUnitMismatch}
	ErrSchemaViolation           = &Error{Kind: KindSchemaViolation}
	ErrTooling                   = &Error{Kind: KindTooling}
)

// Error is a build error with structured context.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description. It already contains the
	// context fields below where they help locate the problem.
	Message string

	// Designator names the connector or cable involved, if any.
	Designator string

	// Field names the offending component field, if any.
	Field string

	// Path is a location in the input: "connections[3]" or a file path.
	Path string

	// Token is the offending input text.
	Token string

	// SearchPaths lists every location tried when resolving a file.
	SearchPaths []string

	// KnownConnectors and KnownCables enumerate the valid designators.
	KnownConnectors []string
	KnownCables     []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a problem with the input documents,
// as opposed to an I/O or tooling failure.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case "", KindFileResolution, KindTooling:
		return false
	}
	return true
}

// InvalidNumber creates an InvalidNumberFormat error for text.
func InvalidNumber(text string) *Error {
	return &Error{
		Kind:    KindInvalidNumberFormat,
		Message: fmt.Sprintf("invalid number format: %q", text),
		Token:   text,
	}
}

// Component creates a ComponentValidation error for designator and field.
func Component(designator, field, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case designator != "" && field != "":
		msg = fmt.Sprintf("%s.%s: %s", designator, field, msg)
	case designator != "":
		msg = fmt.Sprintf("%s: %s", designator, msg)
	case field != "":
		msg = fmt.Sprintf("%s: %s", field, msg)
	}
	return &Error{
		Kind:       KindComponentValidation,
		Message:    msg,
		Designator: designator,
		Field:      field,
	}
}

// MultipleSeparator creates an error for a token containing more than one separator.
func MultipleSeparator(path, token, sep string) *Error {
	msg := fmt.Sprintf("token %q contains more than one separator %q", token, sep)
	if path != "" {
		msg = path + ": " + msg
	}
	return &Error{
		Kind:    KindMultipleSeparator,
		Message: msg,
		Path:    path,
		Token:   token,
	}
}

// UnknownDesignator creates an UnknownTemplateDesignator error listing the
// known connectors and cables.
func UnknownDesignator(path, name string, connectors, cables []string) *Error {
	return &Error{
		Kind: KindUnknownTemplateDesignator,
		Message: fmt.Sprintf("%s: unknown designator %q; known connectors: %s; known cables: %s",
			path, name, listOrNone(connectors), listOrNone(cables)),
		Designator:      name,
		Path:            path,
		KnownConnectors: connectors,
		KnownCables:     cables,
	}
}

// DuplicateDesignator creates an error for a designator declared more than once.
func DuplicateDesignator(designator, where string) *Error {
	return &Error{
		Kind:       KindDuplicateDesignator,
		Message:    fmt.Sprintf("designator %q is declared more than once (%s)", designator, where),
		Designator: designator,
	}
}

// ColorPadding creates an error for a multicolor that cannot be padded.
func ColorPadding(colors string, n int) *Error {
	return &Error{
		Kind:    KindColorPaddingUnsupported,
		Message: fmt.Sprintf("color padding supports 1 to 3 colors, %q has %d", colors, n),
		Token:   colors,
	}
}

// UnsupportedLoopSide creates an error for a loop that has no usable side.
func UnsupportedLoopSide(designator, format string, args ...any) *Error {
	return &Error{
		Kind:       KindUnsupportedLoopSide,
		Message:    fmt.Sprintf("%s: %s", designator, fmt.Sprintf(format, args...)),
		Designator: designator,
	}
}

// FileNotFound creates a FileResolution error naming every path tried.
func FileNotFound(name string, tried []string) *Error {
	return &Error{
		Kind:        KindFileResolution,
		Message:     fmt.Sprintf("file %q not found; searched: %s", name, strings.Join(tried, ", ")),
		Path:        name,
		SearchPaths: tried,
	}
}

// UnitMismatch creates an error for arithmetic across units.
func UnitMismatch(left, right string) *Error {
	return &Error{
		Kind:    KindUnitMismatch,
		Message: fmt.Sprintf("cannot combine quantities with units %q and %q", left, right),
	}
}

// Schema creates a SchemaViolation error.
func Schema(path string, err error) *Error {
	return &Error{
		Kind:    KindSchemaViolation,
		Message: fmt.Sprintf("%s does not match the document schema", path),
		Path:    path,
		Err:     err,
	}
}

// Tooling creates a tooling-layer error about path.
func Tooling(path, format string, args ...any) *Error {
	return &Error{
		Kind:    KindTooling,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
