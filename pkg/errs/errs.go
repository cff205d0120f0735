// Package errs defines the fatal (and one non-fatal) error kinds a run of
// the extraction pipeline can end with, per the error handling design: a
// stable sentinel identity callers can errors.Is against, wrapped around a
// formatted message and an optional cause.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProfileDeclaration: illegal class name, too many classes,
	// too many excludable combinations, or a class used but not declared.
	// Reported before ingestion starts.
	ErrInvalidProfileDeclaration = errors.New("invalid profile declaration")

	// ErrInputExhaustedEmpty: no edges survived parsing.
	ErrInputExhaustedEmpty = errors.New("input exhausted: no edges produced")

	// ErrNoSnappableEdges: the spatial-index builder found no
	// start-point-eligible segments.
	ErrNoSnappableEdges = errors.New("no snappable edges")

	// ErrInconsistentInput: graph/coordinate-array sizes disagree, or a
	// segment's forward/reverse ids are out of range.
	ErrInconsistentInput = errors.New("inconsistent input")

	// ErrProfileRuntime: surfaced from the profile collaborator.
	ErrProfileRuntime = errors.New("profile runtime error")

	// ErrUnknownExcludableClass is a warning, not fatal: logged and
	// ignored by callers that choose to.
	ErrUnknownExcludableClass = errors.New("unknown excludable class")
)

// Error wraps a sentinel code with a formatted message and an optional
// underlying cause, so both errors.Is(err, code) and %w-unwrapping work.
type Error struct {
	orig error
	msg  string
	code error
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Error() string {
	if e.code != nil {
		return fmt.Sprintf("%s: %s", e.code, e.msg)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	if e.orig != nil {
		return e.orig
	}
	return e.code
}

func (e *Error) Is(target error) bool {
	return e.code != nil && errors.Is(e.code, target)
}

func (e *Error) Code() error {
	return e.code
}
