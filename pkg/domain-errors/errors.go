// Package domainerrors provides code-tagged errors for domain and service
// layers. Stores return infrastructure sentinels (pkg/platform/sentinel);
// services translate them into these errors so transport layers can map each
// failure kind to a stable, distinguishable response.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Transport layers map codes to statuses;
// messages carry the human-readable detail.
type Code string

const (
	// CodeValidation marks a well-formed request whose content violates a
	// domain rule (empty name, holder equal to issuer).
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed input rejected at a trust boundary
	// (bad address, wrong hash length).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks an unparseable or structurally broken request.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a caller lacking the role or relationship the
	// operation requires.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an operation not permitted for the target's role,
	// such as revoking the super admin.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state-conflict: the requested transition
	// contradicts current state (already registered, already revoked).
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a broken aggregate invariant detected by
	// a model constructor or transition guard.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks a transaction aborted by deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected infrastructure failure.
	CodeInternal Code = "internal_error"
)

// Error is a code-tagged error, optionally wrapping a cause.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/errors.As.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes the cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the classification of the error.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the human-readable detail without the cause.
func (e *Error) Message() string {
	return e.message
}

// HasCode reports whether err (or anything it wraps) is a domain error
// carrying the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}

// Is is a readability alias for HasCode, used at call sites that branch on a
// single code.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
