package services

import "fmt"

// Error codes shared by every service. The HTTP layer maps them to statuses.
const (
	CodeForbidden       = "FORBIDDEN"
	CodeInvalidState    = "INVALID_STATE"
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyExists   = "ALREADY_EXISTS"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNothingToExport = "NOTHING_TO_EXPORT"
	CodeLockTimeout     = "LOCK_TIMEOUT"
)

// DomainError represents a business-rule failure
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so errors.Is(err, ErrForbidden)
// works for errors carrying a more specific message
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrForbidden       = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState    = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrValidation      = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound        = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists   = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrUnauthorized    = NewDomainError(CodeUnauthorized, "Invalid credentials")
	ErrNothingToExport = NewDomainError(CodeNothingToExport, "No orders found")
	ErrLockTimeout     = NewDomainError(CodeLockTimeout, "Order is busy, try again")
)

func forbidden(format string, args ...any) *DomainError {
	return NewDomainError(CodeForbidden, fmt.Sprintf(format, args...))
}

func invalidState(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

func validation(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}
