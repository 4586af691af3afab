// Package domain holds the entity types and error taxonomy shared by every
// layer of the docket core: cases and their parties, lifecycle statuses,
// actor roles, and notifications.
package domain

import "time"

// Priority enumerates case urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Party is one named participant on a case (plaintiff, defendant, or
// counsel). Parties are ordered lists; position is meaningful.
type Party struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact,omitempty"`
	// Counsel references the representing lawyer's user id, if any.
	Counsel string `json:"counsel,omitempty"`
}

// HearingRef records one scheduled hearing on a case.
type HearingRef struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Venue string    `json:"venue,omitempty"`
	// JudgeID is the presiding judge, if already allocated.
	JudgeID string `json:"judgeId,omitempty"`
}

// DocumentRef records one document attached to a case. Seal and sign state
// live here; document content storage is out of scope.
type DocumentRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Sealed   bool   `json:"sealed,omitempty"`
	SignedBy string `json:"signedBy,omitempty"`
}

// Case is the central entity. The caseNumber is assigned exactly once at
// creation from the sequence generator and never reused; status only moves
// along edges in the lifecycle allowed-edge table.
type Case struct {
	ID          string   `json:"id"`
	CaseNumber  string   `json:"caseNumber"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`

	CourtCode  string `json:"courtCode"`
	TypePrefix string `json:"typePrefix"`

	CreatedBy  string `json:"createdBy"`
	AssignedTo string `json:"assignedTo,omitempty"` // judge reference

	Plaintiffs []Party `json:"plaintiffs,omitempty"`
	Defendants []Party `json:"defendants,omitempty"`
	Lawyers    []Party `json:"lawyers,omitempty"`

	Hearings  []HearingRef  `json:"hearings,omitempty"`
	Documents []DocumentRef `json:"documents,omitempty"`
	Rulings   []string      `json:"rulings,omitempty"`
	Tags      []string      `json:"tags,omitempty"`

	// RejectionReason is set when a filed case is rejected.
	RejectionReason string `json:"rejectionReason,omitempty"`
	// SummonsDate is set when summons are issued.
	SummonsDate *time.Time `json:"summonsDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Notification is a delivery request produced by the core. The core only
// creates notifications; reading and marking them is owned by the
// notification subsystem.
type Notification struct {
	ID              string     `json:"id"`
	RecipientUserID string     `json:"recipientUserId"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	RelatedType     string     `json:"relatedType"`
	RelatedID       string     `json:"relatedId"`
	CreatedAt       time.Time  `json:"createdAt"`
	ReadAt          *time.Time `json:"readAt,omitempty"`
}
