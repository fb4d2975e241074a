package shared

import (
	"fmt"
	"time"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
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
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists      = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput       = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized       = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState       = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnknownTenant      = NewDomainError("UNKNOWN_TENANT", "Tenant is not registered")
	ErrCircuitOpen        = NewDomainError("CIRCUIT_OPEN", "Remote system circuit breaker is open")
	ErrNotSupported       = NewDomainError("CAPABILITY_NOT_SUPPORTED", "Operation is not supported for this document type")
	ErrDuplicateDocument  = NewDomainError("DUPLICATE_DOCUMENT", "A document with the same key was already posted")
	ErrGatewayUnavailable = NewDomainError("GATEWAY_UNAVAILABLE", "Remote gateway could not be reached")
)

// ValidationError carries the individual field errors collected before any
// remote call was attempted.
type ValidationError struct {
	Module string   `json:"module"`
	Errors []string `json:"errors"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] validation failed: %v", e.Module, e.Errors)
}

// NewValidationError creates a ValidationError for the given module
func NewValidationError(module string, errs []string) *ValidationError {
	return &ValidationError{Module: module, Errors: errs}
}

// RemoteDocumentError is returned when the remote system reported one or more
// error-severity messages for a posting. The posting was rolled back.
type RemoteDocumentError struct {
	Module   string   `json:"module"`
	Function string   `json:"function"`
	Messages []string `json:"messages"`
}

func (e *RemoteDocumentError) Error() string {
	return fmt.Sprintf("[%s] %s rejected by remote system: %v", e.Module, e.Function, e.Messages)
}

// NewRemoteDocumentError creates a RemoteDocumentError
func NewRemoteDocumentError(module, function string, messages []string) *RemoteDocumentError {
	return &RemoteDocumentError{Module: module, Function: function, Messages: messages}
}

// RateLimitError reports an admission rejection together with the exact delay
// until one token becomes available again.
type RateLimitError struct {
	ClientID   string        `json:"client_id"`
	RetryAfter time.Duration `json:"retry_after"`
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.ClientID, e.RetryAfter)
}

// NewRateLimitError creates a RateLimitError
func NewRateLimitError(clientID string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{ClientID: clientID, RetryAfter: retryAfter}
}
