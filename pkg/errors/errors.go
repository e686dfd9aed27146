package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors covering the ledger failure taxonomy.
var (
	// Validation: malformed or out-of-range input.
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")

	// Not found: referenced token id or session index was never allocated.
	ErrNotFound = New("NOT_FOUND", http.StatusNotFound, "resource not found")

	// Authorization: caller lacks the required role for the target record.
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")

	// State: operation invalid for the record's current state.
	ErrTutorInactive    = New("TUTOR_INACTIVE", http.StatusConflict, "tutor is not active")
	ErrAlreadyCompleted = New("ALREADY_COMPLETED", http.StatusConflict, "session already completed")
	ErrConflict         = New("CONFLICT", http.StatusConflict, "conflict")

	// Payment: escrow amount does not exactly match the computed requirement.
	ErrInsufficientPayment = New("INSUFFICIENT_PAYMENT", http.StatusPaymentRequired, "payment does not match required escrow")

	// Account / transport-level failures.
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrCacheMiss is internal to the cache layer and never reaches callers.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
