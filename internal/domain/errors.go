package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateCode       = errors.New("referral code already taken")
	ErrAlreadyRegistered   = errors.New("user already registered")
	ErrCodeExhausted       = errors.New("referral code space exhausted")
)

// ValidationError reports user input that failed a format or range check.
// The dialogue re-prompts and keeps its state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Code implements the router's error-code lookup.
func (e *ValidationError) Code() string {
	return "VALIDATION"
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
