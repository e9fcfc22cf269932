// Package oracle defines the contract for the external categorical-tagging
// capability the triage engine depends on, and the failure taxonomy callers
// use to decide whether a failed call may be retried.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// Oracle turns a prompt into a single-line tag response. Implementations
// own their transport timeouts; callers own retry policy.
type Oracle interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// Kind discriminates oracle failures for retry decisions.
type Kind string

const (
	// Retryable failure classes.
	KindRateLimited Kind = "rate_limited"
	KindUnavailable Kind = "unavailable"

	// Fatal failure classes, surfaced immediately without retry.
	KindPermissionDenied Kind = "permission_denied"
	KindMalformedRequest Kind = "malformed_request"
	KindUnknown          Kind = "unknown"
)

// Error is a classified oracle failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a failure kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to KindUnknown for
// errors that did not come from an oracle implementation.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnknown
}

// Retryable reports whether err is a transient failure worth retrying.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}
