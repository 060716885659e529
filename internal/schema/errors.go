package schema

import (
	"errors"
	"fmt"
)

// Inference failure classes. Errors returned by Infer, InferAt and Suggest
// wrap exactly one of these; test with errors.Is.
var (
	// ErrInvalidInput means a Mapping was required but something else was given.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfiguration means the level or the options are out of range.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnsupportedType means a scalar's runtime type has no schema mapping.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrRecursionLimitExceeded means the sample nests deeper than the recursion limit.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
)

// InferenceError describes where inference failed.
type InferenceError struct {
	Path   string // dotted field path, "[]" marks an array element; empty at the root
	Err    error  // one of the Err* sentinels
	Detail string
}

func (e *InferenceError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (at %q)", e.Path)
	}
	return msg
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func newError(err error, path, format string, args ...any) *InferenceError {
	return &InferenceError{Path: path, Err: err, Detail: fmt.Sprintf(format, args...)}
}
