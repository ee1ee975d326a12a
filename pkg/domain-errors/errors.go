// Package domainerrors defines the error vocabulary shared by all feature
// packages. Services attach a Code to every error they surface so transports
// can translate failures without inspecting message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and for HTTP translation.
type Code string

const (
	// CodeInternal covers unexpected failures with no better classification.
	CodeInternal Code = "internal"

	// CodeNotFound signals a missing record. Stores return it so services can
	// drive create-on-first-use without string matching.
	CodeNotFound Code = "not_found"

	// CodeValidation signals a request that failed domain validation.
	CodeValidation Code = "validation"

	// CodeBadRequest signals a malformed request body or parameter.
	CodeBadRequest Code = "bad_request"

	// CodeInvalidInput signals a value rejected at a trust boundary
	// (e.g. a malformed or nil UUID).
	CodeInvalidInput Code = "invalid_input"

	// CodePermissionDenied signals the moderation gate rejected the action.
	// Deliberately identical for "not signed in" and "signed in without the
	// required role" so callers learn nothing from the distinction.
	CodePermissionDenied Code = "permission_denied"

	// CodeConflict signals an illegal status transition or a lost race:
	// the row's current status no longer matches what the caller assumed.
	CodeConflict Code = "conflict"

	// CodeStaleSession signals that the acting identity no longer matches the
	// auth provider's view of the session. The user must re-authenticate;
	// the operation is never retried automatically.
	CodeStaleSession Code = "stale_session"

	// CodeAuthUnavailable signals the auth provider itself was unreachable.
	// The caller's authentication state is unknown and a retry is expected.
	CodeAuthUnavailable Code = "auth_unavailable"

	// CodeUpstream signals an object-storage, payment, or database failure
	// unrelated to authorization or listing state.
	CodeUpstream Code = "upstream"

	// CodeTimeout signals an external call exceeded its bounded deadline.
	CodeTimeout Code = "timeout"
)

// Error is the concrete error carried between layers. Wrapping preserves the
// cause chain for errors.Is / errors.As.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that never passed through this package.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// Is re-exports errors.Is so call sites using this package alias don't need a
// second import for simple sentinel checks.
func Is(err, target error) bool { return errors.Is(err, target) }
