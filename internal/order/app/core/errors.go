package core

import (
	"errors"
	"fmt"
)

var (
	ErrDBConn = errors.New("db connection failure")

	ErrOrderNotFound    = errors.New("order not found")
	ErrMenuItemNotFound = errors.New("menu item not found")

	// ErrVerification: the supplied order number or phone does not match the
	// stored order. An identity check, nothing cryptographic.
	ErrVerification = errors.New("order details do not match")

	// ErrInvalidState: collection was attempted while the order is not ready.
	ErrInvalidState = errors.New("order is not ready for collection")

	ErrValidation = errors.New("validation failed")
)

// ValidationError carries the failing field so handlers can itemize it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
