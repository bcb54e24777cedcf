package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no appointment matches the given id, or
	// when a resident asks about someone else's appointment (existence is not
	// leaked).
	ErrNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned when the requested slot already holds an
	// active (pending or approved) appointment.
	ErrSlotTaken = errors.New("time slot not available")

	// ErrForbidden is returned on role or ownership mismatches.
	ErrForbidden = errors.New("access denied")

	// ErrInvalidTransition is returned when a status change violates the
	// lifecycle graph.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState is returned when an operation requires a status the
	// appointment is not in, e.g. rescheduling a non-pending appointment.
	ErrInvalidState = errors.New("appointment not in a reschedulable state")
)

// ValidationReason is a machine-checkable code for a rejected request.
type ValidationReason string

const (
	ReasonMissingField  ValidationReason = "missing-field"
	ReasonUnknownStatus ValidationReason = "unknown-status"
	ReasonSundayClosed  ValidationReason = "sunday-closed"
	ReasonOutsideHours  ValidationReason = "outside-hours"
	ReasonOffGrid       ValidationReason = "off-grid-time"
	ReasonTooSoon       ValidationReason = "too-soon"
	ReasonMovedEarlier  ValidationReason = "cannot-move-earlier"
)

// ValidationError rejects client input that is malformed or violates the
// slot policy. It always maps to a 400 response.
type ValidationError struct {
	Reason ValidationReason
	Field  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s (%s)", e.Reason, e.Field)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func missingField(field string) *ValidationError {
	return &ValidationError{Reason: ReasonMissingField, Field: field}
}
