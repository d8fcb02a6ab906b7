package domain

import (
	"errors"
	"fmt"
)

// Connection-establishment failures.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrAccountNotFound        = errors.New("account not found")
)

// Error codes sent to clients.
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeAuthenticationFailed   = "AUTHENTICATION_FAILED"
	CodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// AuthCode maps an authentication error to its client-facing code.
func AuthCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return CodeAuthenticationRequired
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	default:
		return CodeAuthenticationFailed
	}
}

// ValidationError reports a malformed payload or invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}
