package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers. Callers match with errors.Is;
// the richer error types below wrap these so both forms work.
var (
	// ErrNotFound reports a read, update, or transition against an entity
	// that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey reports an insert whose id already exists in the
	// collection. The original record is never overwritten.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidTransition reports a requested case-status change that is
	// not in the allowed-edge table. The case is left unmodified.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnauthorized reports an actor whose role does not satisfy a
	// transition's guard. No side effects occur.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSequenceContention reports that a sequence increment could not be
	// completed within the retry budget.
	ErrSequenceContention = errors.New("sequence contention")

	// ErrCorruptRecord reports stored JSON that failed to decode. Surfaced
	// to the caller rather than crashing the read path.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrValidation reports caller-supplied input that fails schema checks.
	ErrValidation = errors.New("validation error")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries field-level validation failures. It unwraps to
// ErrValidation so errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation: %d field errors", len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(fields []FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// TransitionError describes a rejected case-status change: either the edge
// is not in the allowed-edge table (wraps ErrInvalidTransition) or the
// actor's role fails the edge guard (wraps ErrUnauthorized).
type TransitionError struct {
	CaseID string
	From   Status
	To     Status
	Role   Role
	Err    error // ErrInvalidTransition or ErrUnauthorized
}

func (e *TransitionError) Error() string {
	if errors.Is(e.Err, ErrUnauthorized) {
		return fmt.Sprintf("transition %s -> %s: role %s not permitted (case=%s)", e.From, e.To, e.Role, e.CaseID)
	}
	return fmt.Sprintf("transition %s -> %s not allowed (case=%s)", e.From, e.To, e.CaseID)
}

func (e *TransitionError) Unwrap() error { return e.Err }
