package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can render it and decide whether to retry.
type Kind string

const (
	KindDuplicateTransaction Kind = "duplicate_transaction"
	KindValidationFailed     Kind = "validation_failed"
	KindInsufficientBalance  Kind = "insufficient_balance"
	KindDailyLimitExceeded   Kind = "daily_limit_exceeded"
	KindUserBlocked          Kind = "user_blocked"
	KindNotFound             Kind = "not_found"
	KindNotPending           Kind = "not_pending"
	KindUnknownTier          Kind = "unknown_tier"
	KindUnauthorized         Kind = "unauthorized"
	KindForbidden            Kind = "forbidden"
	KindBackendUnavailable   Kind = "backend_unavailable"
)

// Error is a business or transport failure carrying a kind and a user facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrDuplicateTransaction = &Error{Kind: KindDuplicateTransaction, Message: "transaction id already used"}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed, Message: "validation failed"}
	ErrInsufficientBalance  = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrDailyLimitExceeded   = &Error{Kind: KindDailyLimitExceeded, Message: "daily withdrawal limit reached"}
	ErrUserBlocked          = &Error{Kind: KindUserBlocked, Message: "user is blocked"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNotPending           = &Error{Kind: KindNotPending, Message: "payment request is not pending"}
	ErrUnknownTier          = &Error{Kind: KindUnknownTier, Message: "unknown reward tier"}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden            = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrBackendUnavailable   = &Error{Kind: KindBackendUnavailable, Message: "backend unavailable"}
)

// New builds an error of the given kind with a specific message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation is shorthand for a ValidationFailed error.
func Validation(format string, args ...any) *Error {
	return New(KindValidationFailed, format, args...)
}

// Backend wraps an infrastructure failure so it can be told apart from business errors.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindBackendUnavailable, Message: op, Err: err}
}

// KindOf extracts the kind of err, defaulting to BackendUnavailable for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindBackendUnavailable
}

// Retryable reports whether the caller may retry the operation.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindBackendUnavailable
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindDuplicateTransaction, KindNotPending:
		return http.StatusConflict
	case KindValidationFailed, KindUnknownTier:
		return http.StatusBadRequest
	case KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	case KindDailyLimitExceeded:
		return http.StatusTooManyRequests
	case KindUserBlocked, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusServiceUnavailable
	}
}
