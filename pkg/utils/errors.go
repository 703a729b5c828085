package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an error for transport mapping
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindState
	KindUnauthorized
	KindUpstream
	KindPersistence
)

// HTTPStatus returns the status code a handler answers with for this kind
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstream:
		return "upstream_unavailable"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// AppError application error structure
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind and message so wrapped copies still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// NewError create new application error
func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WrapError wraps a cause with kind and message
func WrapError(err error, kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Validationf builds a validation error
func Validationf(format string, args ...interface{}) *AppError {
	return NewError(KindValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error
func NotFoundf(format string, args ...interface{}) *AppError {
	return NewError(KindNotFound, fmt.Sprintf(format, args...))
}

// Persistence wraps a local storage failure
func Persistence(err error, message string) *AppError {
	return WrapError(err, KindPersistence, message)
}

// Upstream wraps a peer-service failure
func Upstream(err error, message string) *AppError {
	return WrapError(err, KindUpstream, message)
}

// Predefined errors
var (
	ErrInvalidParam = NewError(KindValidation, "invalid parameter")
	ErrUnauthorized = NewError(KindUnauthorized, "unauthorized")

	ErrProductNotFound   = NewError(KindNotFound, "product not found")
	ErrInsufficientStock = NewError(KindValidation, "insufficient stock")

	ErrUserNotFound   = NewError(KindNotFound, "user not found")
	ErrUsernameTaken  = NewError(KindConflict, "username already exists")
	ErrEmailTaken     = NewError(KindConflict, "email already exists")
	ErrSignupBusy     = NewError(KindConflict, "username is being registered, try again")
	ErrAccountLocked  = NewError(KindUnauthorized, "account temporarily locked")
	ErrBadCredentials = NewError(KindUnauthorized, "invalid username or password")

	ErrOrderNotFound    = NewError(KindNotFound, "order not found")
	ErrInvalidStatus    = NewError(KindValidation, "invalid status")
	ErrCancelNotAllowed = NewError(KindState, "cannot cancel order that has been shipped or delivered")
	ErrReopenNotAllowed = NewError(KindState, "cannot change status of a cancelled order")

	ErrPaymentNotFound     = NewError(KindNotFound, "payment not found")
	ErrPaymentNotCompleted = NewError(KindState, "can only refund completed payments")
	ErrPaymentExists       = NewError(KindConflict, "order already has a completed payment")

	ErrNotificationNotFound = NewError(KindNotFound, "notification not found")
	ErrRecipientUnresolved  = NewError(KindNotFound, "user not found and no email provided")
	ErrNotRetryable         = NewError(KindState, "can only retry failed notifications")
	ErrRetryLimitExceeded   = NewError(KindState, "maximum retry attempts exceeded")

	ErrUpstreamUnavailable = NewError(KindUpstream, "upstream service unavailable")
)

// KindOf returns the kind of the first AppError in the chain
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
