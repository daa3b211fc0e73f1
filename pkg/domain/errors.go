package domain

import (
	"github.com/Sternrassler/recipe-scraper/pkg/validation"
)

// DomainValidationError is returned when an entity cannot be constructed
// from the given fields. It carries every field-level violation, or a single
// message when a cross-field invariant is broken.
type DomainValidationError struct {
	Violations []validation.Violation
	Message    string
}

// Error implements the error interface.
func (e *DomainValidationError) Error() string {
	return "Validation error: " + e.Message
}

func newValidationError(violations []validation.Violation) *DomainValidationError {
	return &DomainValidationError{
		Violations: violations,
		Message:    validation.Join(violations),
	}
}

func newInvariantError(message string) *DomainValidationError {
	return &DomainValidationError{Message: message}
}
