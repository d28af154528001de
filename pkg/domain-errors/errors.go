// Package domainerrors carries the typed, operational error taxonomy surfaced by
// the sponsorship core. Services return *Error values; transport adapters render
// Code and Message and never the wrapped cause.
package domainerrors

import (
	"context"
	"errors"
	"fmt"
)

// Code identifies an expected failure class. Values are stable and rendered
// verbatim to callers.
type Code string

const (
	// Period lifecycle
	CodeConflict     Code = "conflict"
	CodeExpired      Code = "expired"
	CodeInvalidState Code = "invalid_state"

	// Sponsorship ledger
	CodeNoActivePeriod   Code = "no_active_period"
	CodeAlreadySponsored Code = "already_sponsored"
	CodePeriodClosed     Code = "period_closed"

	// Roll import
	CodeChecksumMismatch Code = "checksum_mismatch"
	CodeEncoding         Code = "encoding_error"
	CodeImportInProgress Code = "import_in_progress"

	// Cache coordination
	CodeCacheUnavailable Code = "cache_unavailable"

	// Generic
	CodeNotFound     Code = "not_found"
	CodeValidation   Code = "validation_error"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeInvariant    Code = "invariant_violation"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to the end user;
// Err holds the underlying cause for logs only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and user-facing message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost domain error, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost domain error in err's chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Classify returns err unchanged when it already carries a code. Otherwise it
// wraps err as CodeTimeout for context expiry and CodeInternal for anything else.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(err, CodeTimeout, "operation timed out")
	}
	return Wrap(err, CodeInternal, message)
}
