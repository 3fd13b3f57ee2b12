// Package searchErrors holds the failure kinds reported by the knowledge-base
// search engine and its collaborators.
//
// Every error returned by the engine matches exactly one kind via errors.Is.
// "Nothing found above threshold" is a successful empty result and never one of these.
package searchErrors

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter rejects a call before any work is done.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmbedding means the embedding provider failed; no partial results or writes.
	ErrEmbedding = errors.New("embedding error")
	// ErrStoreUnavailable means the chunk store could not be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDimensionMismatch flags vectors whose length does not match.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrCancelled         = errors.New("cancelled")
)

var kinds = []error{ErrInvalidParameter, ErrEmbedding, ErrStoreUnavailable, ErrDimensionMismatch, ErrCancelled}

type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap tags err with kind. Context cancellation and deadlines always become ErrCancelled,
// and an error that already carries a kind keeps it.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = ErrCancelled
	} else if existing := KindOf(err); existing != nil {
		kind = existing
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds an error of the given kind with a formatted message.
func New(kind error, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// FromContext returns an ErrCancelled error when ctx is done, nil otherwise.
func FromContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: ErrCancelled, Op: op, Err: err}
	}
	return nil
}

// KindOf returns the sentinel carried by err, or nil when it has none.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsRetryable reports whether a caller may retry the failed operation unchanged.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrStoreUnavailable, ErrEmbedding, ErrCancelled:
		return true
	default:
		return false
	}
}
