// Package apperr defines the error-kind taxonomy shared across
// CommandCenter's components. Components return plain Go errors wrapped
// with a Kind via New/Wrap; callers (chiefly pkg/api) use KindOf to map
// an error to a transport-level status without re-deriving the taxonomy.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy (spec §7). It is a
// closed set — new kinds require a matching entry in every switch over
// Kind in this repository.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindUpstreamTransient Kind = "upstream_transient"
	KindUpstreamPermanent Kind = "upstream_permanent"
	KindRateLimited       Kind = "rate_limited"
	KindDeadlineExceeded  Kind = "deadline_exceeded"
	KindPartialSync       Kind = "partial_sync"
	KindInternal          Kind = "internal"
)

// Error pairs a Kind with a message and optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error wrapping cause. If cause is nil, Wrap returns nil
// so callers can write `return apperr.Wrap(KindInternal, "...", err)`
// unconditionally after an `if err != nil` check without a second check.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WrapContext wraps cause like Wrap, except a cause rooted in the
// request context expiring or being cancelled is always classified
// KindDeadlineExceeded regardless of the requested kind. Call this at
// the point an upstream call (LLM completion, tool invocation) returns
// its error, so a query that outlives Orchestrator's queryDeadline
// surfaces as a deadline, not a generic upstream failure (spec §7/§8).
func WrapContext(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		kind = KindDeadlineExceeded
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err
// is not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Sentinel errors for common not-found cases, matched with errors.Is.
var (
	ErrConversationNotFound = New(KindNotFound, "conversation not found")
	ErrDocumentNotFound     = New(KindNotFound, "document not found")
	ErrMessageNotFound      = New(KindNotFound, "message not found")
)
