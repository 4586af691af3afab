package domain

import "fmt"

// Status enumerates the case lifecycle states.
type Status string

const (
	StatusFiled       Status = "filed"
	StatusVerified    Status = "verified"
	StatusRejected    Status = "rejected"
	StatusSummons     Status = "summons"
	StatusActive      Status = "active"
	StatusTakesOff    Status = "takes_off"
	StatusRecording   Status = "recording"
	StatusAdjournment Status = "adjournment"
	StatusRuling      Status = "ruling"
	StatusAppeal      Status = "appeal"
	StatusClosed      Status = "closed"
	StatusDismissed   Status = "dismissed"
)

// Statuses lists every lifecycle state in declaration order.
var Statuses = []Status{
	StatusFiled, StatusVerified, StatusRejected, StatusSummons,
	StatusActive, StatusTakesOff, StatusRecording, StatusAdjournment,
	StatusRuling, StatusAppeal, StatusClosed, StatusDismissed,
}

// ParseStatus converts a string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Terminal reports whether a case in this state accepts no further
// transitions. Closed, dismissed, and rejected cases are final.
func (s Status) Terminal() bool {
	switch s {
	case StatusClosed, StatusDismissed, StatusRejected:
		return true
	}
	return false
}
