package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies content-provider failures. The orchestrator's
// automatic scan treats PrerequisiteMissing as skippable and everything
// else as fatal; the split is carried in the type, never inferred from
// message text.
type ErrorKind int

const (
	// PrerequisiteMissing means the phase's upstream data does not exist
	// yet (no ideas submitted, no voted clusters). Automatic advancement
	// skips past it; explicit navigation surfaces it to the organizer.
	PrerequisiteMissing ErrorKind = iota

	// GenerationFailed is an internal content-generation failure.
	GenerationFailed

	// ValidationFailed means the generated payload did not satisfy the
	// phase type's required-keys schema.
	ValidationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case PrerequisiteMissing:
		return "prerequisite_missing"
	case GenerationFailed:
		return "generation_failed"
	case ValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by content providers.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int // Suggested HTTP status for API callers.
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Prerequisite builds a skippable missing-data error.
func Prerequisite(format string, args ...any) *Error {
	return &Error{
		Kind:       PrerequisiteMissing,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: http.StatusConflict,
	}
}

// Generation wraps an internal generation failure.
func Generation(err error, format string, args ...any) *Error {
	return &Error{
		Kind:       GenerationFailed,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// Validation builds a payload-schema failure.
func Validation(format string, args ...any) *Error {
	return &Error{
		Kind:       ValidationFailed,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: http.StatusInternalServerError,
	}
}

// IsPrerequisite reports whether err is a skippable missing-data failure.
func IsPrerequisite(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == PrerequisiteMissing
}
