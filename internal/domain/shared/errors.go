package shared

import "errors"

// ErrorKind classifies a domain error for propagation and retry policy.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindInternal     ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewNotFoundError creates a NOT_FOUND error
func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

// NewConflictError creates a CONFLICT error
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// NewUnauthorizedError creates an UNAUTHORIZED error
func NewUnauthorizedError(code, message string) *DomainError {
	return NewDomainError(KindUnauthorized, code, message)
}

// NewInternalError creates an INTERNAL error
func NewInternalError(code, message string) *DomainError {
	return NewDomainError(KindInternal, code, message)
}

// KindOf returns the error kind of err, or KindInternal for non-domain errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the operation that produced err is safe to
// retry with backoff. Only CONFLICT errors (lock timeouts, serialization
// failures) qualify; VALIDATION and NOT_FOUND are deterministic.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConflict
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewValidationError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewValidationError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnauthorized        = NewUnauthorizedError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewUnauthorizedError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInsufficientStock   = NewValidationError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrLockTimeout         = NewConflictError("LOCK_TIMEOUT", "Timed out waiting for a row lock")
	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)
