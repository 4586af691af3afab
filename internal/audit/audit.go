// Package audit maintains the append-only activity trail. Entries are
// written once and never updated or deleted; the package exposes no
// mutation API beyond Append.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/docket/internal/docstore"
	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/query"
)

// Collection is the name of the audit collection.
const Collection = "audit_logs"

// Actions recorded by the case lifecycle.
const (
	ActionCaseCreate       = "CASE_CREATE"
	ActionCaseStatusUpdate = "CASE_STATUS_UPDATE"
	ActionHearingSchedule  = "HEARING_SCHEDULE"
	ActionDocAttach        = "DOC_ATTACH"
	ActionDocSeal          = "DOC_SEAL"
	ActionDocSign          = "DOC_SIGN"
)

// Entry is one immutable audit record. Seq is the ordering authority;
// Timestamp is informational.
type Entry struct {
	ID         string         `json:"id"`
	Seq        int64          `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	ActorID    string         `json:"actorId"`
	ActorRole  domain.Role    `json:"actorRole"`
	PrevStatus string         `json:"prevStatus,omitempty"`
	NewStatus  string         `json:"newStatus,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	// Checksum is the SHA-256 of the entry's canonical encoding, computed
	// at append time. A stored entry whose recomputed checksum differs has
	// been altered after the fact.
	Checksum string `json:"checksum"`
}

// Writer appends audit entries. Create one per process; the embedded
// logical clock guarantees unique seq values across concurrent appends.
type Writer struct {
	docs  *docstore.Store
	clock *Clock
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterClock overrides the wall clock. Used by tests.
func WithWriterClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// WithWriterIDs overrides entry id generation. Used by tests.
func WithWriterIDs(newID func() string) WriterOption {
	return func(w *Writer) { w.newID = newID }
}

// WithWriterLogger sets the structured logger.
func WithWriterLogger(log *slog.Logger) WriterOption {
	return func(w *Writer) { w.log = log }
}

// NewWriter creates a Writer whose logical clock resumes after the highest
// seq already in the log, so restarts never reuse sequence numbers.
func NewWriter(ctx context.Context, docs *docstore.Store, opts ...WriterOption) (*Writer, error) {
	if err := docs.EnsureCollection(ctx, Collection); err != nil {
		return nil, fmt.Errorf("audit writer: %w", err)
	}
	last, err := lastSeq(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("audit writer: %w", err)
	}
	w := &Writer{
		docs:  docs,
		clock: NewClockAt(last),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Append stamps and persists the entry: id, seq, timestamp, and checksum
// are assigned here and any caller-supplied values for them are ignored.
// The returned entry is the persisted form.
//
// Pass a transactional store via docs to make the append atomic with other
// writes; the Writer's clock is shared either way.
func (w *Writer) Append(ctx context.Context, docs *docstore.Store, e Entry) (Entry, error) {
	if e.Action == "" {
		return Entry{}, domain.NewValidationError("action", "must not be empty")
	}
	if e.EntityType == "" || e.EntityID == "" {
		return Entry{}, domain.NewValidationError("entity", "entityType and entityId are required")
	}

	e.ID = w.newID()
	e.Seq = w.clock.Next()
	e.Timestamp = w.now().UTC()

	sum, err := checksum(e)
	if err != nil {
		return Entry{}, fmt.Errorf("audit append: %w", err)
	}
	e.Checksum = sum

	payload, err := docstore.ToPayload(e)
	if err != nil {
		return Entry{}, fmt.Errorf("audit append: %w", err)
	}
	if err := docs.Insert(ctx, Collection, e.ID, payload); err != nil {
		return Entry{}, fmt.Errorf("audit append: %w", err)
	}

	w.log.Debug("audit entry appended",
		"seq", e.Seq,
		"action", e.Action,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
	)
	return e, nil
}

// checksum hashes the canonical encoding of the entry's content fields.
// Checksum itself is excluded.
func checksum(e Entry) (string, error) {
	content := map[string]any{
		"id":         e.ID,
		"seq":        e.Seq,
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		"action":     e.Action,
		"entityType": e.EntityType,
		"entityId":   e.EntityID,
		"actorId":    e.ActorID,
		"actorRole":  string(e.ActorRole),
	}
	if e.PrevStatus != "" {
		content["prevStatus"] = e.PrevStatus
	}
	if e.NewStatus != "" {
		content["newStatus"] = e.NewStatus
	}
	if len(e.Details) > 0 {
		content["details"] = e.Details
	}

	canonical, err := marshalCanonical(content)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the entry's checksum and reports whether it matches
// the stored one.
func Verify(e Entry) (bool, error) {
	sum, err := checksum(e)
	if err != nil {
		return false, err
	}
	return sum == e.Checksum, nil
}

// Reader queries the audit trail.
type Reader struct {
	docs *docstore.Store
}

// NewReader creates a Reader over the document store.
func NewReader(docs *docstore.Store) *Reader {
	return &Reader{docs: docs}
}

// History returns every entry for one entity, oldest first.
func (r *Reader) History(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	q := query.Where("entityType", query.OpEq, entityType).
		And("entityId", query.OpEq, entityID)
	q.OrderBy = "seq"
	return r.list(ctx, q)
}

// Feed returns the most recent entries across all entities, newest first.
func (r *Reader) Feed(ctx context.Context, limit int) ([]Entry, error) {
	q := query.Query{OrderBy: "seq", Desc: true, Limit: limit}
	return r.list(ctx, q)
}

// ByActor returns the most recent entries written by one actor, newest
// first.
func (r *Reader) ByActor(ctx context.Context, actorID string, limit int) ([]Entry, error) {
	q := query.Where("actorId", query.OpEq, actorID)
	q.OrderBy = "seq"
	q.Desc = true
	q.Limit = limit
	return r.list(ctx, q)
}

func (r *Reader) list(ctx context.Context, q query.Query) ([]Entry, error) {
	records, err := r.docs.Query(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		var e Entry
		if err := docstore.FromPayload(rec.Data, &e); err != nil {
			return nil, fmt.Errorf("audit query: record %s: %w", rec.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func lastSeq(ctx context.Context, docs *docstore.Store) (int64, error) {
	q := query.Query{OrderBy: "seq", Desc: true, Limit: 1}
	records, err := docs.Query(ctx, Collection, q)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	var e Entry
	if err := docstore.FromPayload(records[0].Data, &e); err != nil {
		return 0, fmt.Errorf("record %s: %w", records[0].ID, err)
	}
	return e.Seq, nil
}
