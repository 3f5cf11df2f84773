// Package errs defines the typed error kinds handlers, stores, and the
// indexer runtime use to decide what to do with a failure — retry, skip, or
// treat the block as failed — without string-matching error messages, the
// way the teacher wraps dial/filter/unpack errors with a prefix but lets
// callers act only on the wrapped cause via errors.Is/As.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error as either a bug in caller input/state (Domain)
// or a transient/external condition (Infra). The router and runtime branch
// on this to decide whether a block retries.
type Kind string

const (
	// Domain kinds: the input or state itself is invalid; retrying the
	// same block will not help.
	KindPositionNotFound Kind = "position_not_found"
	KindInvalidLevel     Kind = "invalid_level"
	KindInvalidAddress   Kind = "invalid_address"
	KindInvalidAmount    Kind = "invalid_amount"
	KindRoundNotFound    Kind = "round_not_found"
	KindBetNotFound      Kind = "bet_not_found"
	KindAlreadyFinalized Kind = "already_finalized"
	KindReorgTooDeep     Kind = "reorg_too_deep"

	// Infra kinds: external or transient; the runtime's block loop may
	// retry after a backoff.
	KindDatabase            Kind = "database"
	KindRPC                 Kind = "rpc"
	KindTimeout             Kind = "timeout"
	KindSerialization       Kind = "serialization"
	KindEventDecoding       Kind = "event_decoding"
	KindStreaming           Kind = "streaming"
	KindCursorLimitExceeded Kind = "cursor_limit_exceeded"
	KindLogLimitExceeded    Kind = "log_limit_exceeded"
	KindMethodNotSupported  Kind = "method_not_supported"
)

var domainKinds = map[Kind]bool{
	KindPositionNotFound: true,
	KindInvalidLevel:     true,
	KindInvalidAddress:   true,
	KindInvalidAmount:    true,
	KindRoundNotFound:    true,
	KindBetNotFound:      true,
	KindAlreadyFinalized: true,
	KindReorgTooDeep:     true,
}

// IsDomain reports whether k is a domain (non-retryable) kind.
func (k Kind) IsDomain() bool { return domainKinds[k] }

// IsInfra reports whether k is an infra (potentially retryable) kind.
func (k Kind) IsInfra() bool { return !domainKinds[k] }

// Error is a typed, wrapped error carrying a Kind alongside the usual
// chain. Construct with New or Wrap; inspect with Is/As or KindOf.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's kind.
func (e *Error) Kind() Kind { return e.kind }

// New constructs a kinded error with no inner cause.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Wrap constructs a kinded error wrapping an inner cause, the way the
// teacher wraps dial/filter/unpack failures with fmt.Errorf("%w").
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, err: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}

// Is reports whether err is, or wraps, an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

var (
	ErrPositionNotFound = New(KindPositionNotFound, "position not found")
	ErrRoundNotFound    = New(KindRoundNotFound, "round not found")
	ErrAlreadyFinalized = New(KindAlreadyFinalized, "scan already finalized")
	ErrReorgTooDeep     = New(KindReorgTooDeep, "reorg exceeds max depth")
)
