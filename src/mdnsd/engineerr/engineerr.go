// Package engineerr defines the error taxonomy returned by the control
// interface of the mDNS engine.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies the way an operation failed.
type Kind int

const (
	// InvalidArgument means a caller-supplied argument was missing,
	// malformed, too long, or contradicted another argument.
	InvalidArgument Kind = iota

	// InvalidState means the engine (or the object an operation targeted)
	// is not in a state the operation can be applied to: not initialized,
	// interface not found, service not found.
	InvalidState

	// OutOfMemory means an allocation failed. Any partial work for the
	// operation that produced this error has already been rolled back.
	OutOfMemory

	// NotFound means a lookup produced no result.
	NotFound

	// Transient means the operation could not complete right now but may
	// succeed if retried, e.g. the action queue is full.
	Transient
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case InvalidState:
		return "invalid state"
	case OutOfMemory:
		return "out of memory"
	case NotFound:
		return "not found"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is an error annotated with a Kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New returns a new *Error of the given kind.
func New(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err (or one of the errors it wraps) is an *Error of
// kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
