package relay

import (
	"errors"
	"fmt"
)

// Error represents a relay library error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for relay operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeDelivery indicates message delivery failed.
	ErrCodeDelivery = "DELIVERY_ERROR"

	// ErrCodeAuthentication indicates an unknown or inactive API key.
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"

	// ErrCodeAuthorization indicates the authenticated client does not own
	// the asserted client identity.
	ErrCodeAuthorization = "AUTHORIZATION_ERROR"

	// ErrCodeRateLimited indicates the admission controller declined the request.
	ErrCodeRateLimited = "RATE_LIMITED"

	// ErrCodeNotFound indicates a record expected to exist does not.
	// Treated as a consistency fault for that unit of work, never retried.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeConflict indicates a uniqueness constraint was violated.
	ErrCodeConflict = "CONFLICT"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrDuplicateKey is returned when an insert violates a uniqueness
	// constraint. The publish path treats it as "the record already exists"
	// and re-reads the winning row instead of failing.
	ErrDuplicateKey = &Error{
		Code:    ErrCodeConflict,
		Message: "unique constraint violated",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

func hasCode(err error, code string) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Code == code
	}
	return false
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return hasCode(err, ErrCodeNoData) || errors.Is(err, ErrNoData)
}

// IsDuplicateKey checks if an error is a uniqueness violation.
func IsDuplicateKey(err error) bool {
	return hasCode(err, ErrCodeConflict) || errors.Is(err, ErrDuplicateKey)
}

// IsAuthentication checks if an error is an authentication failure.
func IsAuthentication(err error) bool {
	return hasCode(err, ErrCodeAuthentication)
}

// IsAuthorization checks if an error is an authorization failure.
func IsAuthorization(err error) bool {
	return hasCode(err, ErrCodeAuthorization)
}

// IsRateLimited checks if an error is an admission-control rejection.
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// IsNotFound checks if an error is a missing-record consistency fault.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a request validation failure.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}
