package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryResolution ErrorCategory = "resolution"
	CategoryHandler    ErrorCategory = "handler"
	CategoryGateway    ErrorCategory = "gateway"
	CategoryNetwork    ErrorCategory = "network"
	CategorySystem     ErrorCategory = "system"
)

// BillingError represents a billing processing error with detailed context
type BillingError struct {
	Code           string
	Message        string
	GatewayMessage string
	IsRetriable    bool
	Category       ErrorCategory
	Details        map[string]interface{}
	Cause          error
}

func (e *BillingError) Error() string {
	if e.GatewayMessage != "" {
		return fmt.Sprintf("%s: %s (gateway: %s)", e.Code, e.Message, e.GatewayMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BillingError) Unwrap() error {
	return e.Cause
}

// NewBillingError creates a new billing error
func NewBillingError(code, message string, category ErrorCategory, retriable bool) *BillingError {
	return &BillingError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
		Details:     make(map[string]interface{}),
	}
}

// WrapGateway wraps an upstream provider error as a retriable billing error
func WrapGateway(code, message string, cause error) *BillingError {
	e := NewBillingError(code, message, CategoryGateway, true)
	e.Cause = cause
	if cause != nil {
		e.GatewayMessage = cause.Error()
	}
	return e
}

// ValidationError represents a business-rule violation. It carries a stable
// classification code surfaced to the caller and is never retriable.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
	}
}

// IsValidation reports whether err is a business-rule violation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRetriable classifies an error for webhook redelivery. Validation errors
// are never retriable; billing errors carry their own flag; anything else is
// assumed transient so the provider redelivers.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidation(err) {
		return false
	}
	var be *BillingError
	if errors.As(err, &be) {
		return be.IsRetriable
	}
	return true
}
