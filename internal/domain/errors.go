package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicatePropertyID = errors.New("duplicate propertyId")
	ErrMaxRetriesExceeded  = errors.New("propertyId allocation: max retries exceeded")
	ErrInvalidPropertyID   = errors.New("invalid propertyId")
)

// ValidationError is a client input problem; the HTTP layer maps it to 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func Invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }
