package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeNotReady      = "NOT_READY"
	ErrCodeConfiguration = "CONFIG_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptyUserInput    = NewDomainError(ErrCodeValidation, "user input cannot be empty")
	ErrInvalidSourceType = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrEmptyContent      = NewDomainError(ErrCodeValidation, "document content cannot be empty")
)

// Readiness errors
var (
	ErrRetrieverNotReady = NewDomainError(ErrCodeNotReady, "retriever not initialized")
)

// Configuration errors
var (
	ErrMissingAPIKey = NewDomainError(ErrCodeConfiguration, "embedding API key not configured")
)
