// Package ewferr implements the error model described by the EWF engine
// design: a small set of named error kinds, and a context stack of
// (domain, function, message) frames pushed by each layer a failure
// propagates through. ChecksumMismatch is intentionally never constructed
// here for a read path failure — callers record it locally instead.
package ewferr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind names the class of failure, independent of where it occurred.
type Kind string

const (
	InvalidArgument  Kind = "invalid_argument"
	InvalidFormat    Kind = "invalid_format"
	Io               Kind = "io"
	ChecksumMismatch Kind = "checksum_mismatch"
	SequenceViolation Kind = "sequence_violation"
	ResourceExhausted Kind = "resource_exhausted"
	Aborted          Kind = "aborted"
	NotFound         Kind = "not_found"
)

// Frame is one layer's worth of context attached to a propagating error.
type Frame struct {
	Domain   string
	Function string
	Message  string
}

// Error is a Kind plus the stack of frames pushed while propagating, plus
// the original cause (preserved for errors.Is/As via Unwrap).
type Error struct {
	Kind   Kind
	Frames []Frame
	cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Kind)
	for i := len(e.Frames) - 1; i >= 0; i-- {
		f := e.Frames[i]
		fmt.Fprintf(&b, ": %s.%s: %s", f.Domain, f.Function, f.Message)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %s", e.cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a new Error of the given kind, with one initial frame.
func New(kind Kind, domain, function, message string) *Error {
	return &Error{
		Kind:   kind,
		Frames: []Frame{{Domain: domain, Function: function, Message: message}},
		cause:  errors.New(message),
	}
}

// Wrap attaches a new frame to err. If err is already an *Error, the frame
// is pushed onto its existing stack and its Kind is preserved unless a
// different non-empty kind is supplied. Otherwise err becomes the cause of
// a freshly created *Error carrying the given kind.
func Wrap(err error, kind Kind, domain, function, message string) *Error {
	if err == nil {
		return nil
	}
	frame := Frame{Domain: domain, Function: function, Message: message}
	var existing *Error
	if errors.As(err, &existing) {
		frames := make([]Frame, len(existing.Frames), len(existing.Frames)+1)
		copy(frames, existing.Frames)
		frames = append(frames, frame)
		k := existing.Kind
		if kind != "" {
			k = kind
		}
		return &Error{Kind: k, Frames: frames, cause: existing.cause}
	}
	return &Error{
		Kind:   kind,
		Frames: []Frame{frame},
		cause:  errors.WithStack(err),
	}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
