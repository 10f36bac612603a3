package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error the core hands back to a caller wraps exactly one.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
)

// Kind is the stable, caller-visible classification of an error.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindForbidden         Kind = "FORBIDDEN"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NewError returns an error carrying msg that matches kind under errors.Is.
func NewError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	// ErrPickupNotFound is returned when the referenced pickup does not exist.
	ErrPickupNotFound = NewError(ErrNotFound, "pickup not found")

	// ErrCollectorNotFound is returned when no collector profile exists for the caller.
	ErrCollectorNotFound = NewError(ErrNotFound, "collector profile not found")

	// ErrCollectorNotApproved is returned when an unapproved collector browses or accepts.
	ErrCollectorNotApproved = NewError(ErrForbidden, "collector not approved")

	// ErrPostalCodeNotServed is returned when the collector does not cover the pickup address.
	ErrPostalCodeNotServed = NewError(ErrForbidden, "collector does not serve this area")

	// ErrNotAssignedCollector is returned when a collector acts on a pickup assigned to someone else.
	ErrNotAssignedCollector = NewError(ErrForbidden, "pickup not assigned to this collector")

	// ErrNotPickupOwner is returned when a customer acts on another customer's pickup.
	ErrNotPickupOwner = NewError(ErrForbidden, "you can only update your own pickups")

	// ErrCustomerCanOnlyCancel is returned when a customer requests anything but CANCELLED.
	ErrCustomerCanOnlyCancel = NewError(ErrForbidden, "customers can only cancel pickups")

	// ErrActorNotPermitted is returned when the actor's role holds no grant for the transition.
	ErrActorNotPermitted = NewError(ErrForbidden, "actor is not permitted to perform this transition")

	// ErrPickupModified is returned when a conditional write lost against a concurrent writer.
	ErrPickupModified = NewError(ErrConflict, "pickup was modified concurrently")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field-level problem found in one input.
type ValidationError struct {
	Fields []FieldError
}

// Add records a problem with field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Addf records a formatted problem with field.
func (e *ValidationError) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// Err returns e when at least one field failed and nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a single-field validation error.
func Invalid(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}
