// Package syncerr classifies failures of the sync engine so callers can
// decide between failing a request, reporting a per-change error, or
// surfacing a conflict.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind is a string code so it serializes naturally into API responses.
type Kind string

const (
	// KindConfiguration is a deployment fault, e.g. an unknown entity type.
	// It is never retried.
	KindConfiguration Kind = "INVALID_CONFIGURATION"

	// KindVersionConflict is an optimistic concurrency mismatch.
	KindVersionConflict Kind = "VERSION_CONFLICT"

	// KindTransientStorage is a failure talking to the backing store. The
	// caller may retry the affected change on a later sync.
	KindTransientStorage Kind = "DATABASE_ERROR"

	KindNotFound     Kind = "NOT_FOUND"
	KindInvalidInput Kind = "INVALID_INPUT"
	KindUnknown      Kind = "UNKNOWN"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configuration(op string, err error) *Error {
	return New(KindConfiguration, op, err)
}

func Storage(op string, err error) *Error {
	return New(KindTransientStorage, op, err)
}

func InvalidInput(op string, err error) *Error {
	return New(KindInvalidInput, op, err)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
