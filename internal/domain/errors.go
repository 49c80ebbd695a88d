package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories, services and the HTTP layer.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("concurrent update conflict, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Participation business-rule violations. All of them are validation errors (see IsValidation).
var (
	ErrDuplicateRequest   = errors.New("an active participation request already exists for this event")
	ErrCapacityFull       = errors.New("event capacity reached")
	ErrRegistrationClosed = errors.New("registration deadline has passed")
	ErrEventEnded         = errors.New("event has already taken place")
	ErrEventNotOpen       = errors.New("event is not open for participation")
	ErrGradeIneligible    = errors.New("student grade is not eligible for this event")
	ErrGradeNotConfigured = errors.New("student grade is not configured")
)

var validationErrors = []error{
	ErrInvalidInput,
	ErrInvalidTransition,
	ErrCapacityFull,
	ErrRegistrationClosed,
	ErrEventEnded,
	ErrEventNotOpen,
	ErrGradeIneligible,
	ErrGradeNotConfigured,
}

// IsValidation reports whether err is a user-facing validation or business-rule failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// CapacityError carries the human-readable reasons an admission check failed.
type CapacityError struct {
	Reasons []string
}

func (e *CapacityError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrCapacityFull.Error()
	}
	msg := e.Reasons[0]
	for _, r := range e.Reasons[1:] {
		msg += "; " + r
	}
	return msg
}

func (e *CapacityError) Unwrap() error { return ErrCapacityFull }

// Invalid returns an ErrInvalidInput carrying msg.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
