// Package errors provides standardized error types and helpers for sentence ingestion.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfRange indicates a constraint references a position outside the sentence
	ErrOutOfRange = errors.New("out of range")
	// ErrInvalidShape indicates an annotation covers the wrong number of tokens
	ErrInvalidShape = errors.New("invalid shape")
	// ErrConfiguration indicates the input requires an option that is not configured
	ErrConfiguration = errors.New("configuration error")
)

// Error kinds reported by Kind.
const (
	KindRange         = "constraint_range"
	KindShape         = "constraint_shape"
	KindConfiguration = "configuration"
	KindParse         = "parse"
	KindValidation    = "validation"
	KindNotFound      = "not_found"
	KindIO            = "io"
	KindInternal      = "internal"
)

// ConstraintRangeError reports a constraint that points at a boundary or
// position at or beyond the end of the sentence.
type ConstraintRangeError struct {
	Constraint string // Constraint kind (e.g., "wall")
	Position   int    // Offending boundary or token index
	Size       int    // Sentence length in tokens
}

func (e *ConstraintRangeError) Error() string {
	return fmt.Sprintf("%s at %d is outside the sentence (%d tokens)", e.Constraint, e.Position, e.Size)
}

func (e *ConstraintRangeError) Unwrap() error {
	return ErrOutOfRange
}

// ConstraintShapeError reports an annotation whose span does not have the
// length its tag requires.
type ConstraintShapeError struct {
	Tag    string // Annotation tag
	Start  int    // First token of the span
	Length int    // Actual span length
	Want   int    // Required span length
}

func (e *ConstraintShapeError) Error() string {
	return fmt.Sprintf("%s at %d must cover %d word(s), covers %d", e.Tag, e.Start, e.Want, e.Length)
}

func (e *ConstraintShapeError) Unwrap() error {
	return ErrInvalidShape
}

// ConfigurationError reports input that needs an option which is not set.
type ConfigurationError struct {
	Option  string // Option name (e.g., "placeholder_factor_slot")
	Message string // Human-readable error message
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing option %s: %s", e.Option, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "factor", "run")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing error
type ParseError struct {
	Format  string // Format being parsed (e.g., "markup", "token", "config")
	Input   string // Offending input, if short enough to be useful
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("failed to parse %s %q: %s", e.Format, e.Input, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Helper functions for creating common errors

// NewConstraintRange creates a ConstraintRangeError
func NewConstraintRange(constraint string, position, size int) *ConstraintRangeError {
	return &ConstraintRangeError{
		Constraint: constraint,
		Position:   position,
		Size:       size,
	}
}

// NewConstraintShape creates a ConstraintShapeError
func NewConstraintShape(tag string, start, length, want int) *ConstraintShapeError {
	return &ConstraintShapeError{
		Tag:    tag,
		Start:  start,
		Length: length,
		Want:   want,
	}
}

// NewConfiguration creates a ConfigurationError
func NewConfiguration(option, message string) *ConfigurationError {
	return &ConfigurationError{
		Option:  option,
		Message: message,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, input, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Input:   input,
		Message: message,
	}
}

// Kind classifies err into one of the Kind* constants. It is used as a
// low-cardinality label for logs and metrics.
func Kind(err error) string {
	var (
		rangeErr  *ConstraintRangeError
		shapeErr  *ConstraintShapeError
		configErr *ConfigurationError
		parseErr  *ParseError
		valErr    *ValidationError
		nfErr     *NotFoundError
		ioErr     *IOError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rangeErr):
		return KindRange
	case errors.As(err, &shapeErr):
		return KindShape
	case errors.As(err, &configErr):
		return KindConfiguration
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &nfErr):
		return KindNotFound
	case errors.As(err, &ioErr):
		return KindIO
	}
	return KindInternal
}

// IsInputError reports whether err rejects the input itself rather than
// indicating a system fault.
func IsInputError(err error) bool {
	switch Kind(err) {
	case KindRange, KindShape, KindConfiguration, KindParse, KindValidation:
		return true
	}
	return false
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
