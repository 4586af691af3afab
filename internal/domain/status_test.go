package domain

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}

	if _, err := ParseStatus("archived"); err == nil {
		t.Error("ParseStatus(archived) should fail")
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusClosed:    true,
		StatusDismissed: true,
		StatusRejected:  true,
	}
	for _, s := range Statuses {
		if got := s.Terminal(); got != terminal[s] {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestValidationError_UnwrapsSentinel(t *testing.T) {
	err := NewValidationError("title", "required")
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should unwrap to ErrValidation")
	}
}

func TestTransitionError_UnwrapsSentinel(t *testing.T) {
	invalid := &TransitionError{CaseID: "c1", From: StatusFiled, To: StatusClosed, Err: ErrInvalidTransition}
	if !errors.Is(invalid, ErrInvalidTransition) {
		t.Error("TransitionError should unwrap to ErrInvalidTransition")
	}

	denied := &TransitionError{CaseID: "c1", From: StatusFiled, To: StatusVerified, Role: RolePublic, Err: ErrUnauthorized}
	if !errors.Is(denied, ErrUnauthorized) {
		t.Error("TransitionError should unwrap to ErrUnauthorized")
	}
}
