// Package hosterr carries spec.md §7's error taxonomy alongside the plain
// sentinel errors every package already returns, so internal/api can map
// any error it receives to a wire reply code without every call site
// needing to construct a typed error. Grounded on the teacher's
// pkg/db.ErrorType / GetSQLErrorCode split: a small named-kind enum plus
// a classifier function, rather than a typed error hierarchy.
package hosterr

import (
	"errors"
	"fmt"
)

// Kind is one of spec.md §7's semantic error kinds.
type Kind int

const (
	Unknown Kind = iota
	PreconditionViolated
	NotFound
	PermissionDenied
	WrongGameState
	SlotNotAvailable
	SlotEmpty
	InvalidValue
	Transient
)

func (k Kind) String() string {
	switch k {
	case PreconditionViolated:
		return "PreconditionViolated"
	case NotFound:
		return "NotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case WrongGameState:
		return "WrongGameState"
	case SlotNotAvailable:
		return "SlotNotAvailable"
	case SlotEmpty:
		return "SlotEmpty"
	case InvalidValue:
		return "InvalidValue"
	case Transient:
		return "Transient"
	default:
		return "Unknown"
	}
}

// kindedError pairs a sentinel error with the kind it belongs to, so
// Classify can recover the kind via errors.Is/errors.As without the
// caller ever seeing this type directly.
type kindedError struct {
	kind Kind
	err  error
}

func (e *kindedError) Error() string { return e.err.Error() }
func (e *kindedError) Unwrap() error { return e.err }

// New builds an error of the given kind wrapping a formatted message,
// usable anywhere the teacher's code would write a plain
// fmt.Errorf(...) sentinel.
func New(kind Kind, format string, args ...interface{}) error {
	return &kindedError{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to an existing sentinel error, used when a
// package already defines package-level var Err... sentinels and only
// needs to tag them with a wire kind once, close to where they're
// declared.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: kind, err: err}
}

// Classify recovers the Kind attached to err via New/Wrap, walking the
// error chain with errors.As. Returns Unknown for any error that never
// passed through this package, which callers should treat as an
// unexpected internal failure rather than a taxonomy member.
func Classify(err error) Kind {
	var ke *kindedError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return Unknown
}
