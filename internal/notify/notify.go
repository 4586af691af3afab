// Package notify delivers best-effort notifications. Emission happens after
// the triggering write has committed and never blocks or fails it: a
// notification that cannot be delivered is logged and counted, nothing more.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/docket/internal/docstore"
	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/query"
)

// Collection is the name of the notification collection.
const Collection = "notifications"

// Emitter delivers one notification. Implementations must not assume the
// caller checks the error; the lifecycle layer logs and drops it.
type Emitter interface {
	Emit(ctx context.Context, n domain.Notification) error
}

// Discard is an Emitter that drops everything. Used when notifications are
// disabled.
type Discard struct{}

func (Discard) Emit(context.Context, domain.Notification) error { return nil }

// StoreEmitter persists notifications to the document store for in-app
// delivery.
type StoreEmitter struct {
	docs  *docstore.Store
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

// StoreEmitterOption configures a StoreEmitter.
type StoreEmitterOption func(*StoreEmitter)

// WithClock overrides the wall clock. Used by tests.
func WithClock(now func() time.Time) StoreEmitterOption {
	return func(e *StoreEmitter) { e.now = now }
}

// WithIDs overrides notification id generation. Used by tests.
func WithIDs(newID func() string) StoreEmitterOption {
	return func(e *StoreEmitter) { e.newID = newID }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) StoreEmitterOption {
	return func(e *StoreEmitter) { e.log = log }
}

// NewStoreEmitter creates an emitter writing to the notifications
// collection.
func NewStoreEmitter(docs *docstore.Store, opts ...StoreEmitterOption) *StoreEmitter {
	e := &StoreEmitter{
		docs:  docs,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit assigns id and creation time, then inserts the notification.
func (e *StoreEmitter) Emit(ctx context.Context, n domain.Notification) error {
	if n.RecipientUserID == "" {
		return domain.NewValidationError("recipientUserId", "must not be empty")
	}
	n.ID = e.newID()
	n.CreatedAt = e.now().UTC()

	payload, err := docstore.ToPayload(n)
	if err != nil {
		return fmt.Errorf("emit notification: %w", err)
	}
	if err := e.docs.Insert(ctx, Collection, n.ID, payload); err != nil {
		return fmt.Errorf("emit notification: %w", err)
	}
	e.log.Debug("notification emitted", "id", n.ID, "recipient", n.RecipientUserID)
	return nil
}

// Unread returns a recipient's unread notifications, newest first.
func (e *StoreEmitter) Unread(ctx context.Context, recipientUserID string) ([]domain.Notification, error) {
	q := query.Where("recipientUserId", query.OpEq, recipientUserID)
	records, err := e.docs.Query(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(records))
	for _, rec := range records {
		var n domain.Notification
		if err := docstore.FromPayload(rec.Data, &n); err != nil {
			return nil, fmt.Errorf("unread notifications: record %s: %w", rec.ID, err)
		}
		if n.ReadAt == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// MarkRead stamps a notification as read. Reading an already-read
// notification is a no-op.
func (e *StoreEmitter) MarkRead(ctx context.Context, id string) error {
	ts := e.now().UTC().Format(time.RFC3339Nano)
	err := e.docs.Update(ctx, Collection, id, map[string]any{"readAt": ts})
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
