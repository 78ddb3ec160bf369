// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-facing error kind carried on the wire.
// Values are stable for wire compatibility; add sparingly
type ErrorCode string

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = "INTERNAL_SERVER_ERROR"

	// ErrorCodePanic is for panics recovered by middleware
	ErrorCodePanic ErrorCode = "PANIC"

	// ErrorCodeUnavailable is for transient errors where retry may succeed
	ErrorCodeUnavailable ErrorCode = "UNAVAILABLE"

	// ErrorCodeDB is for general database errors
	ErrorCodeDB ErrorCode = "DB_ERROR"

	// ErrorCodeJSON is for JSON parsing errors
	ErrorCodeJSON ErrorCode = "INVALID_JSON"

	// ErrorCodeValidation is for input validation failures
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrorCodeDuplicateKey is for unique violations without a more specific kind
	ErrorCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrorCodeConflict is for generic editing conflicts beyond duplicate key
	ErrorCodeConflict ErrorCode = "CONFLICT"
)

// Input kinds: a referenced entity does not exist
const (
	ErrorCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrorCodeHabitNotFound  ErrorCode = "HABIT_NOT_FOUND"
	ErrorCodeRewardNotFound ErrorCode = "REWARD_NOT_FOUND"
	ErrorCodeLogNotFound    ErrorCode = "LOG_NOT_FOUND"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
)

// Authorisation kinds
const (
	ErrorCodeNotOwner         ErrorCode = "NOT_OWNER"
	ErrorCodeUserInactive     ErrorCode = "USER_INACTIVE"
	ErrorCodeMissingToken     ErrorCode = "MISSING_TOKEN"
	ErrorCodeInvalidToken     ErrorCode = "INVALID_TOKEN"
	ErrorCodeTokenExpired     ErrorCode = "TOKEN_EXPIRED"
	ErrorCodeInvalidTokenType ErrorCode = "INVALID_TOKEN_TYPE"
	ErrorCodeInvalidAPIKey    ErrorCode = "INVALID_API_KEY"
	ErrorCodeAuthRequired     ErrorCode = "AUTH_REQUIRED"
)

// Conflict kinds
const (
	ErrorCodeAlreadyCompleted ErrorCode = "ALREADY_COMPLETED"
	ErrorCodeHabitExists      ErrorCode = "HABIT_EXISTS"
	ErrorCodeRewardExists     ErrorCode = "REWARD_EXISTS"
	ErrorCodeHasProgress      ErrorCode = "HAS_PROGRESS"
	ErrorCodeNothingToRevert  ErrorCode = "NOTHING_TO_REVERT"
	ErrorCodeAlreadyClaimed   ErrorCode = "ALREADY_CLAIMED"
)

// Validation kinds specific to the habit domain
const (
	ErrorCodeInvalidWeekdays     ErrorCode = "INVALID_WEEKDAYS"
	ErrorCodeInvalidStatus       ErrorCode = "INVALID_STATUS"
	ErrorCodeFutureDate          ErrorCode = "FUTURE_DATE"
	ErrorCodeTooOld              ErrorCode = "TOO_OLD"
	ErrorCodeBeforeHabitCreation ErrorCode = "BEFORE_HABIT_CREATION"
	ErrorCodeNotAchieved         ErrorCode = "NOT_ACHIEVED"
)

// Rate / security kinds
const (
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorCodeInvalidCode     ErrorCode = "INVALID_CODE"
	ErrorCodeDeprecatedLogin ErrorCode = "DEPRECATED_LOGIN"
)

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound, ErrorCodeUserNotFound, ErrorCodeHabitNotFound,
		ErrorCodeRewardNotFound, ErrorCodeLogNotFound:
		return http.StatusNotFound
	case ErrorCodeNotOwner, ErrorCodeUserInactive:
		return http.StatusForbidden
	case ErrorCodeMissingToken, ErrorCodeInvalidToken, ErrorCodeTokenExpired,
		ErrorCodeInvalidTokenType, ErrorCodeInvalidAPIKey, ErrorCodeAuthRequired,
		ErrorCodeInvalidCode:
		return http.StatusUnauthorized
	case ErrorCodeAlreadyCompleted, ErrorCodeHabitExists, ErrorCodeRewardExists,
		ErrorCodeHasProgress, ErrorCodeNothingToRevert, ErrorCodeAlreadyClaimed,
		ErrorCodeDuplicateKey, ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeInvalidWeekdays, ErrorCodeInvalidStatus, ErrorCodeFutureDate,
		ErrorCodeTooOld, ErrorCodeBeforeHabitCreation, ErrorCodeNotAchieved,
		ErrorCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrorCodeJSON:
		return http.StatusBadRequest
	case ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrorCodeDeprecatedLogin:
		return http.StatusGone
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeDB, ErrorCodePanic, ErrorCodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// field is optional (for validation); op is optional operation tag
// orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
	// status, when set, overrides the code's default HTTP mapping for
	// surfaces whose contract differs from the global table
	status int
}

// Wire is the JSON-serializable form returned inside the API error envelope
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// ToWire converts an *Error to a Wire payload
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom converts any error into a Wire payload with best-effort mapping
// If err is nil, returns the zero-value Wire (no error)
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error, honoring a
// per-error override set via WithStatus
func HTTPStatus(err error) int {
	if e, ok := As(err); ok && e.status != 0 {
		return e.status
	}
	return HTTPStatusCode(CodeOf(err))
}

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// WithStatus overrides the HTTP status mapping for this error while keeping
// its code (copy-on-write). If err isn't *Error, returns err unchanged
func WithStatus(err error, status int) error {
	if e, ok := As(err); ok {
		c := *e
		c.status = status
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// Validationf returns a validation error
func Validationf(format string, a ...any) error { return Newf(ErrorCodeValidation, format, a...) }

// DuplicateKeyf returns a duplicate key error
func DuplicateKeyf(format string, a ...any) error { return Newf(ErrorCodeDuplicateKey, format, a...) }

// DBf returns a general database error
func DBf(format string, a ...any) error { return Newf(ErrorCodeDB, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unauthorizedf returns an auth-required error
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeAuthRequired, format, a...) }

// NotOwnerf returns an ownership error
func NotOwnerf(format string, a ...any) error { return Newf(ErrorCodeNotOwner, format, a...) }

// Conflictf returns a conflict error
func Conflictf(format string, a ...any) error { return Newf(ErrorCodeConflict, format, a...) }

// RateLimitedf returns a rate limited error
func RateLimitedf(format string, a ...any) error { return Newf(ErrorCodeRateLimited, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// HTTP bundles status + wire in one shot (nice for handlers)
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// Retry semantics

// Retryable reports whether the error is retryable. Delegates to backend-specific logic.
// Currently backed by Postgres helpers in pg.go (IsRetryable), and can be extended.
func Retryable(err error) bool { return IsRetryable(err) }
