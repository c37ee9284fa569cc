package shared

// ErrorKind classifies domain errors for boundary handling and retry policy.
type ErrorKind string

const (
	// KindValidation rejects bad input before any mutation; not retryable.
	KindValidation ErrorKind = "VALIDATION"
	// KindStateConflict rejects an operation the current state forbids;
	// the caller may resubmit corrected input but the call is not auto-retried.
	KindStateConflict ErrorKind = "STATE_CONFLICT"
	// KindInfrastructure marks failures where nothing was committed; the whole
	// operation is safe to retry.
	KindInfrastructure ErrorKind = "INFRASTRUCTURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Retryable reports whether the whole operation can be safely re-run as-is.
func (e *DomainError) Retryable() bool {
	return e.Kind == KindInfrastructure
}

// NewDomainError creates a new state-conflict domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindStateConflict}
}

// NewValidationError creates a new validation domain error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewInfrastructureError creates a new retryable infrastructure error
func NewInfrastructureError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindInfrastructure}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
