package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrMalformedVocabulary = errors.New("malformed vocabulary file")
	ErrChecksumMismatch    = errors.New("checksum mismatch: file may be corrupted")
	ErrMissingChecksum     = errors.New("checksum line missing")
	ErrInvalidMagic        = errors.New("invalid magic line")
	ErrUnsupportedVersion  = errors.New("unsupported format version")
	ErrLineTooLong         = errors.New("line exceeds maximum length")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Line    int    // 1-based line number, 0 when not tied to a line
	Type    string // Type of error (e.g., "syntax", "merge", "checksum")
	Details string // Additional details
	Err     error  // Underlying sentinel, if any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Type, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap returns the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// malformed wraps a ValidationError so callers can match both
// ErrMalformedVocabulary and the specific cause.
func malformed(line int, typ string, cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrMalformedVocabulary, &ValidationError{
		Line:    line,
		Type:    typ,
		Details: fmt.Sprintf(format, args...),
		Err:     cause,
	})
}
