// Package errors provides the consolidated error definitions for marketstats.
//
// This file provides:
// - Failure kinds shared by every fallible operation
// - Sentinel errors for all error conditions
// - Error category checking functions
// - KindOf and KindToHTTPStatus mapping
// - Error wrapping utilities
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Failure kinds
// ============================================================================

// Kind classifies a failed operation. The set is closed.
type Kind int

const (
	// KindNone is the zero value and never describes a failure.
	KindNone Kind = iota
	KindNotFound
	KindMarketNotFound
	KindConflict
	KindInvalidReference
	KindNoMarkets
	KindInvalidInput
	KindFault
)

// String returns a human-readable name for a kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindNotFound:
		return "NotFound"
	case KindMarketNotFound:
		return "MarketNotFound"
	case KindConflict:
		return "Conflict"
	case KindInvalidReference:
		return "InvalidReference"
	case KindNoMarkets:
		return "NoMarkets"
	case KindInvalidInput:
		return "InvalidInput"
	case KindFault:
		return "Fault"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsDomain reports whether k is a client-correctable domain failure.
func (k Kind) IsDomain() bool {
	return k != KindNone && k != KindFault
}

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound            = errors.New("not found")
	ErrCountryNotFound     = errors.New("country not found")
	ErrMarketNotFound      = errors.New("market not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMembershipNotFound  = errors.New("membership not found")

	// Already exists errors
	ErrAlreadyExists            = errors.New("already exists")
	ErrCountryAlreadyExists     = errors.New("country already exists")
	ErrMarketAlreadyExists      = errors.New("market already exists")
	ErrParticipantAlreadyExists = errors.New("participant already exists")
	ErrMembershipAlreadyExists  = errors.New("participant already in market")
	ErrInUse                    = errors.New("in use")

	// Reference errors
	ErrInvalidReference = errors.New("invalid reference")

	// Aggregation errors
	ErrNoMarkets = errors.New("no markets registered")

	// Validation errors
	ErrInvalidName               = errors.New("invalid name")
	ErrInvalidCode               = errors.New("invalid code")
	ErrInvalidCountry            = errors.New("invalid country")
	ErrInvalidIdentificationType = errors.New("invalid identification type")
	ErrInvalidInput              = errors.New("invalid input")
	ErrInvalidConfig             = errors.New("invalid configuration")
	ErrMissingField              = errors.New("missing required field")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrCache    = errors.New("cache error")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsMarketNotFound returns true if err reports a missing market.
func IsMarketNotFound(err error) bool {
	return errors.Is(err, ErrMarketNotFound)
}

// IsNotFound returns true if err is a not-found error other than a missing market.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCountryNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrMembershipNotFound)
}

// IsAlreadyExists returns true if err is an already-exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrCountryAlreadyExists) ||
		errors.Is(err, ErrMarketAlreadyExists) ||
		errors.Is(err, ErrParticipantAlreadyExists) ||
		errors.Is(err, ErrMembershipAlreadyExists) ||
		errors.Is(err, ErrInUse)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrInvalidCountry) ||
		errors.Is(err, ErrInvalidIdentificationType) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// ============================================================================
// Error to kind mapping
// ============================================================================

// KindOf maps an error to its failure kind. Anything not recognised as a
// domain failure is a fault.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	switch {
	case IsMarketNotFound(err):
		return KindMarketNotFound
	case IsNotFound(err):
		return KindNotFound
	case IsAlreadyExists(err):
		return KindConflict
	case Is(err, ErrInvalidReference):
		return KindInvalidReference
	case Is(err, ErrNoMarkets):
		return KindNoMarkets
	case IsValidation(err):
		return KindInvalidInput
	default:
		return KindFault
	}
}

// KindToError maps a kind back to its canonical sentinel.
func KindToError(k Kind) error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindMarketNotFound:
		return ErrMarketNotFound
	case KindConflict:
		return ErrAlreadyExists
	case KindInvalidReference:
		return ErrInvalidReference
	case KindNoMarkets:
		return ErrNoMarkets
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNone:
		return nil
	default:
		return ErrInternal
	}
}

// KindToHTTPStatus maps a failure kind to the status returned to HTTP clients.
// Domain failures are client-correctable preconditions; faults are server-side.
func KindToHTTPStatus(k Kind) int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound, KindMarketNotFound, KindConflict, KindInvalidReference, KindNoMarkets:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(sentinel error, identifier interface{}) error {
	return fmt.Errorf("%w: '%v'", sentinel, identifier)
}

// NewAlreadyExists creates an already-exists error with context.
func NewAlreadyExists(sentinel error, identifier interface{}) error {
	return fmt.Errorf("%w: '%v'", sentinel, identifier)
}

// NewInvalidReference creates an invalid-reference error naming the missing entity.
func NewInvalidReference(entityType string, identifier interface{}) error {
	return fmt.Errorf("%s '%v': %w", entityType, identifier, ErrInvalidReference)
}

// NewValidation creates a request validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidInput)
}

// NewInvalidConfig creates a configuration validation error with context.
func NewInvalidConfig(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidInput)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddConfig adds a configuration validation error.
func (v *ValidationErrors) AddConfig(field, reason string) {
	v.Errors = append(v.Errors, NewInvalidConfig(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
