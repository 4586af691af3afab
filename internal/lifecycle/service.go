// Package lifecycle implements the case state machine: creation and filing,
// role-gated status transitions, hearing and document operations, and the
// audit entry each of them leaves behind. Every mutation commits the case
// write and its audit entry in one transaction; notifications go out after
// commit and never affect the outcome.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mkandawire/docket/internal/audit"
	"github.com/mkandawire/docket/internal/docstore"
	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/notify"
	"github.com/mkandawire/docket/internal/query"
	"github.com/mkandawire/docket/internal/schema"
	"github.com/mkandawire/docket/internal/seq"
)

// Collection is the name of the case collection.
const Collection = "cases"

// Service coordinates the case lifecycle over the document store.
type Service struct {
	docs     *docstore.Store
	seq      *seq.Generator
	auditw   *audit.Writer
	emitter  notify.Emitter
	metrics  *notify.Metrics
	schemas  *schema.Registry
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEmitter sets the notification emitter. Defaults to notify.Discard.
func WithEmitter(e notify.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

// WithMetrics sets the notification counters.
func WithMetrics(m *notify.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides case/hearing/document id generation. Used by tests.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New creates a Service. The audit writer's clock is shared by reference,
// so a Service and any other writer over the same store never collide on
// seq values.
func New(docs *docstore.Store, gen *seq.Generator, auditw *audit.Writer, schemas *schema.Registry, opts ...Option) *Service {
	s := &Service{
		docs:     docs,
		seq:      gen,
		auditw:   auditw,
		emitter:  notify.Discard{},
		schemas:  schemas,
		validate: validator.New(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap creates the collections and hot-field indexes the lifecycle
// needs. Safe to call on every startup.
func Bootstrap(ctx context.Context, docs *docstore.Store) error {
	for _, coll := range []string{Collection, seq.Collection, audit.Collection, notify.Collection} {
		if err := docs.EnsureCollection(ctx, coll); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	for coll, fields := range map[string][]string{
		Collection:        {"status", "type", "assignedTo"},
		audit.Collection:  {"entityId", "actorId", "seq"},
		notify.Collection: {"recipientUserId"},
	} {
		for _, f := range fields {
			if err := docs.EnsureIndex(ctx, coll, f); err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
		}
	}
	return nil
}

// CreateCaseInput carries caller-supplied fields for case creation. The
// case number, id, status, and timestamps are assigned by the service.
type CreateCaseInput struct {
	Title       string          `validate:"required"`
	Description string          `validate:"-"`
	Type        string          `validate:"required"`
	Priority    domain.Priority `validate:"omitempty,oneof=low medium high urgent"`
	CourtCode   string          `validate:"required"`
	TypePrefix  string          `validate:"required"`
	Plaintiffs  []domain.Party  `validate:"dive"`
	Defendants  []domain.Party  `validate:"dive"`
	Lawyers     []domain.Party  `validate:"dive"`
	Tags        []string        `validate:"-"`
}

var createRoles = []domain.Role{domain.RoleRegistrar, domain.RoleClerk, domain.RoleAdmin}
var fileRoles = []domain.Role{domain.RoleLawyer, domain.RolePublic, domain.RoleRegistrar, domain.RoleAdmin}

// CreateCase registers a case directly at the registry desk. The case
// starts active: intake verification already happened at the desk.
func (s *Service) CreateCase(ctx context.Context, actor domain.Actor, in CreateCaseInput) (domain.Case, error) {
	if !roleAllowed(createRoles, actor.Role) {
		return domain.Case{}, fmt.Errorf("create case: role %s: %w", actor.Role, domain.ErrUnauthorized)
	}
	return s.createCase(ctx, actor, in, domain.StatusActive)
}

// FileCase registers a case through e-filing. The case starts filed and
// must be verified by the registry before it proceeds.
func (s *Service) FileCase(ctx context.Context, actor domain.Actor, in CreateCaseInput) (domain.Case, error) {
	if !roleAllowed(fileRoles, actor.Role) {
		return domain.Case{}, fmt.Errorf("file case: role %s: %w", actor.Role, domain.ErrUnauthorized)
	}
	return s.createCase(ctx, actor, in, domain.StatusFiled)
}

func (s *Service) createCase(ctx context.Context, actor domain.Actor, in CreateCaseInput, status domain.Status) (domain.Case, error) {
	if err := s.checkInput(actor, in); err != nil {
		return domain.Case{}, err
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}

	// The number is issued before the case write. An aborted tx leaves a
	// gap in the series; numbers are unique, not gapless.
	issued, err := s.seq.Next(ctx, in.TypePrefix, in.CourtCode)
	if err != nil {
		return domain.Case{}, fmt.Errorf("create case: %w", err)
	}

	now := s.now().UTC()
	c := domain.Case{
		ID:          s.newID(),
		CaseNumber:  issued.CaseNumber,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Status:      status,
		Priority:    in.Priority,
		CourtCode:   in.CourtCode,
		TypePrefix:  in.TypePrefix,
		CreatedBy:   actor.ID,
		Plaintiffs:  in.Plaintiffs,
		Defendants:  in.Defendants,
		Lawyers:     in.Lawyers,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	payload, err := docstore.ToPayload(c)
	if err != nil {
		return domain.Case{}, fmt.Errorf("create case: %w", err)
	}
	if err := s.schemas.Validate(Collection, payload); err != nil {
		return domain.Case{}, fmt.Errorf("create case: %w", err)
	}

	err = s.docs.InTx(ctx, func(tx *docstore.Store) error {
		if err := tx.Insert(ctx, Collection, c.ID, payload); err != nil {
			return err
		}
		_, err := s.auditw.Append(ctx, tx, audit.Entry{
			Action:     audit.ActionCaseCreate,
			EntityType: "case",
			EntityID:   c.ID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			NewStatus:  string(status),
			Details: map[string]any{
				"caseNumber": c.CaseNumber,
				"title":      c.Title,
			},
		})
		return err
	})
	if err != nil {
		return domain.Case{}, fmt.Errorf("create case: %w", err)
	}

	s.log.Info("case created",
		"case_id", c.ID,
		"case_number", c.CaseNumber,
		"status", c.Status,
	)
	s.notifyCase(ctx, c, "Case registered",
		fmt.Sprintf("Case %s (%s) has been registered.", c.CaseNumber, c.Title))
	return c, nil
}

func (s *Service) checkInput(actor domain.Actor, in CreateCaseInput) error {
	if err := s.validate.Struct(actor); err != nil {
		return mapValidatorError(err)
	}
	if err := s.validate.Struct(in); err != nil {
		return mapValidatorError(err)
	}
	return nil
}

// Transition moves a case along one edge of the allowed-edge table. fields
// is merged into the case alongside the new status; edges with required
// fields reject a patch that omits them. On any error the case is left
// unmodified and no audit entry is written.
func (s *Service) Transition(ctx context.Context, caseID string, actor domain.Actor, to domain.Status, fields map[string]any) (domain.Case, error) {
	if !to.Valid() {
		return domain.Case{}, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return domain.Case{}, err
	}

	e := edge{c.Status, to}
	roles, ok := allowedEdges[e]
	if !ok {
		return domain.Case{}, &domain.TransitionError{
			CaseID: c.ID, From: c.Status, To: to, Role: actor.Role,
			Err: domain.ErrInvalidTransition,
		}
	}
	if !roleAllowed(roles, actor.Role) {
		return domain.Case{}, &domain.TransitionError{
			CaseID: c.ID, From: c.Status, To: to, Role: actor.Role,
			Err: domain.ErrUnauthorized,
		}
	}
	for _, f := range edgeRequirements[e] {
		if v, ok := fields[f]; !ok || v == "" || v == nil {
			return domain.Case{}, domain.NewValidationError(f, fmt.Sprintf("required for transition to %s", to))
		}
	}

	return s.applyTransition(ctx, c, actor, to, fields)
}

// applyTransition performs the already-authorized status change.
func (s *Service) applyTransition(ctx context.Context, c domain.Case, actor domain.Actor, to domain.Status, fields map[string]any) (domain.Case, error) {
	patch := map[string]any{"status": string(to)}
	for k, v := range fields {
		patch[k] = v
	}

	details := map[string]any{
		"prevStatus": string(c.Status),
		"newStatus":  string(to),
	}

	err := s.docs.InTx(ctx, func(tx *docstore.Store) error {
		if err := tx.Update(ctx, Collection, c.ID, patch); err != nil {
			return err
		}
		_, err := s.auditw.Append(ctx, tx, audit.Entry{
			Action:     audit.ActionCaseStatusUpdate,
			EntityType: "case",
			EntityID:   c.ID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			PrevStatus: string(c.Status),
			NewStatus:  string(to),
			Details:    details,
		})
		return err
	})
	if err != nil {
		return domain.Case{}, fmt.Errorf("transition %s -> %s: %w", c.Status, to, err)
	}

	s.log.Info("case transitioned",
		"case_id", c.ID,
		"case_number", c.CaseNumber,
		"from", c.Status,
		"to", to,
	)

	updated, err := s.GetCase(ctx, c.ID)
	if err != nil {
		return domain.Case{}, err
	}
	s.notifyCase(ctx, updated, "Case status updated",
		fmt.Sprintf("Case %s moved from %s to %s.", c.CaseNumber, c.Status, to))
	return updated, nil
}

// Verify marks a filed case as checked by the registry.
func (s *Service) Verify(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusVerified, nil)
}

// Reject turns a filed case away. The reason is mandatory and recorded on
// the case.
func (s *Service) Reject(ctx context.Context, caseID string, actor domain.Actor, reason string) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusRejected,
		map[string]any{"rejectionReason": reason})
}

// IssueSummons records service of summons on a verified case.
func (s *Service) IssueSummons(ctx context.Context, caseID string, actor domain.Actor, date time.Time) (domain.Case, error) {
	if date.IsZero() {
		return domain.Case{}, domain.NewValidationError("summonsDate", "must be set")
	}
	return s.Transition(ctx, caseID, actor, domain.StatusSummons,
		map[string]any{"summonsDate": date.UTC().Format(time.RFC3339Nano)})
}

// AllocateJudge assigns a judge and activates the case. Unlike table edges
// this works from any non-terminal status, so a reassignment does not need
// intermediate transitions.
func (s *Service) AllocateJudge(ctx context.Context, caseID string, actor domain.Actor, judgeID string) (domain.Case, error) {
	if judgeID == "" {
		return domain.Case{}, domain.NewValidationError("assignedTo", "judge reference must be set")
	}
	if actor.Role != domain.RoleRegistrar && actor.Role != domain.RoleAdmin {
		return domain.Case{}, &domain.TransitionError{
			CaseID: caseID, To: domain.StatusActive, Role: actor.Role,
			Err: domain.ErrUnauthorized,
		}
	}
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return domain.Case{}, err
	}
	if c.Status.Terminal() {
		return domain.Case{}, &domain.TransitionError{
			CaseID: c.ID, From: c.Status, To: domain.StatusActive, Role: actor.Role,
			Err: domain.ErrInvalidTransition,
		}
	}
	return s.applyTransition(ctx, c, actor, domain.StatusActive,
		map[string]any{"assignedTo": judgeID})
}

// MarkTakesOff records that the hearing session has started.
func (s *Service) MarkTakesOff(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusTakesOff, nil)
}

// StartRecording moves a started session into evidence recording.
func (s *Service) StartRecording(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusRecording, nil)
}

// Adjourn suspends proceedings.
func (s *Service) Adjourn(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusAdjournment, nil)
}

// Resume returns an adjourned case to the active list.
func (s *Service) Resume(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusActive, nil)
}

// RecordRuling appends the ruling text and moves the case to ruling.
func (s *Service) RecordRuling(ctx context.Context, caseID string, actor domain.Actor, text string) (domain.Case, error) {
	if text == "" {
		return domain.Case{}, domain.NewValidationError("ruling", "must not be empty")
	}
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return domain.Case{}, err
	}
	rulings := append(append([]string(nil), c.Rulings...), text)
	return s.Transition(ctx, caseID, actor, domain.StatusRuling,
		map[string]any{"rulings": rulings})
}

// Appeal lodges an appeal against a ruling.
func (s *Service) Appeal(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusAppeal, nil)
}

// Close disposes of the case.
func (s *Service) Close(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusClosed, nil)
}

// Dismiss throws the case out.
func (s *Service) Dismiss(ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error) {
	return s.Transition(ctx, caseID, actor, domain.StatusDismissed, nil)
}

var hearingRoles = []domain.Role{domain.RoleRegistrar, domain.RoleClerk, domain.RoleJudge, domain.RoleAdmin}
var sealRoles = []domain.Role{domain.RoleJudge, domain.RoleRegistrar, domain.RoleAdmin}

// ScheduleHearing adds a hearing to a live case. The hearing id is assigned
// here if empty.
func (s *Service) ScheduleHearing(ctx context.Context, caseID string, actor domain.Actor, h domain.HearingRef) (domain.HearingRef, error) {
	if !roleAllowed(hearingRoles, actor.Role) {
		return domain.HearingRef{}, fmt.Errorf("schedule hearing: role %s: %w", actor.Role, domain.ErrUnauthorized)
	}
	if h.Date.IsZero() {
		return domain.HearingRef{}, domain.NewValidationError("date", "must be set")
	}
	c, err := s.liveCase(ctx, caseID)
	if err != nil {
		return domain.HearingRef{}, err
	}
	if h.ID == "" {
		h.ID = s.newID()
	}
	h.Date = h.Date.UTC()
	if h.JudgeID == "" {
		h.JudgeID = c.AssignedTo
	}

	hearings := append(append([]domain.HearingRef(nil), c.Hearings...), h)
	err = s.mutate(ctx, c, actor, map[string]any{"hearings": hearings},
		audit.ActionHearingSchedule, map[string]any{
			"hearingId": h.ID,
			"date":      h.Date.Format(time.RFC3339Nano),
			"venue":     h.Venue,
		})
	if err != nil {
		return domain.HearingRef{}, fmt.Errorf("schedule hearing: %w", err)
	}
	s.notifyCase(ctx, c, "Hearing scheduled",
		fmt.Sprintf("Hearing for case %s on %s.", c.CaseNumber, h.Date.Format("2006-01-02")))
	return h, nil
}

// AttachDocument adds a document reference to a live case.
func (s *Service) AttachDocument(ctx context.Context, caseID string, actor domain.Actor, doc domain.DocumentRef) (domain.DocumentRef, error) {
	if actor.Role == domain.RolePublic {
		return domain.DocumentRef{}, fmt.Errorf("attach document: role %s: %w", actor.Role, domain.ErrUnauthorized)
	}
	if doc.Title == "" {
		return domain.DocumentRef{}, domain.NewValidationError("title", "must not be empty")
	}
	c, err := s.liveCase(ctx, caseID)
	if err != nil {
		return domain.DocumentRef{}, err
	}
	if doc.ID == "" {
		doc.ID = s.newID()
	}
	doc.Sealed = false
	doc.SignedBy = ""

	docs := append(append([]domain.DocumentRef(nil), c.Documents...), doc)
	err = s.mutate(ctx, c, actor, map[string]any{"documents": docs},
		audit.ActionDocAttach, map[string]any{
			"documentId": doc.ID,
			"title":      doc.Title,
		})
	if err != nil {
		return domain.DocumentRef{}, fmt.Errorf("attach document: %w", err)
	}
	return doc, nil
}

// SealDocument marks an attached document as sealed. Sealing is restricted
// to judge, registrar, and admin.
func (s *Service) SealDocument(ctx context.Context, caseID string, actor domain.Actor, docID string) error {
	return s.stampDocument(ctx, caseID, actor, docID, audit.ActionDocSeal,
		func(d *domain.DocumentRef) { d.Sealed = true })
}

// SignDocument records the acting user's signature on an attached document.
// Signing is restricted to judge, registrar, and admin.
func (s *Service) SignDocument(ctx context.Context, caseID string, actor domain.Actor, docID string) error {
	return s.stampDocument(ctx, caseID, actor, docID, audit.ActionDocSign,
		func(d *domain.DocumentRef) { d.SignedBy = actor.ID })
}

func (s *Service) stampDocument(ctx context.Context, caseID string, actor domain.Actor, docID, action string, stamp func(*domain.DocumentRef)) error {
	if !roleAllowed(sealRoles, actor.Role) {
		return fmt.Errorf("%s: role %s: %w", action, actor.Role, domain.ErrUnauthorized)
	}
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return err
	}

	docs := append([]domain.DocumentRef(nil), c.Documents...)
	found := false
	for i := range docs {
		if docs[i].ID == docID {
			stamp(&docs[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: document %s: %w", action, docID, domain.ErrNotFound)
	}

	err = s.mutate(ctx, c, actor, map[string]any{"documents": docs},
		action, map[string]any{"documentId": docID})
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

// mutate applies a non-status patch and its audit entry in one tx.
func (s *Service) mutate(ctx context.Context, c domain.Case, actor domain.Actor, patch map[string]any, action string, details map[string]any) error {
	return s.docs.InTx(ctx, func(tx *docstore.Store) error {
		if err := tx.Update(ctx, Collection, c.ID, patch); err != nil {
			return err
		}
		_, err := s.auditw.Append(ctx, tx, audit.Entry{
			Action:     action,
			EntityType: "case",
			EntityID:   c.ID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Details:    details,
		})
		return err
	})
}

// liveCase loads a case and rejects terminal ones.
func (s *Service) liveCase(ctx context.Context, caseID string) (domain.Case, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return domain.Case{}, err
	}
	if c.Status.Terminal() {
		return domain.Case{}, fmt.Errorf("case %s is %s: %w", c.CaseNumber, c.Status, domain.ErrInvalidTransition)
	}
	return c, nil
}

// GetCase loads one case by id.
func (s *Service) GetCase(ctx context.Context, id string) (domain.Case, error) {
	rec, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		return domain.Case{}, fmt.Errorf("get case %s: %w", id, err)
	}
	var c domain.Case
	if err := docstore.FromPayload(rec.Data, &c); err != nil {
		return domain.Case{}, fmt.Errorf("get case %s: %w", id, err)
	}
	return c, nil
}

// Filter narrows ListCases. Zero values mean "any".
type Filter struct {
	Status     domain.Status
	Type       string
	AssignedTo string
	Limit      int
	Offset     int
}

func (f Filter) predicates() []query.Predicate {
	var preds []query.Predicate
	if f.Status != "" {
		preds = append(preds, query.Predicate{Field: "status", Op: query.OpEq, Value: string(f.Status)})
	}
	if f.Type != "" {
		preds = append(preds, query.Predicate{Field: "type", Op: query.OpEq, Value: f.Type})
	}
	if f.AssignedTo != "" {
		preds = append(preds, query.Predicate{Field: "assignedTo", Op: query.OpEq, Value: f.AssignedTo})
	}
	return preds
}

// ListCases returns cases matching the filter, newest first.
func (s *Service) ListCases(ctx context.Context, f Filter) ([]domain.Case, error) {
	q := query.Query{
		Predicates: f.predicates(),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
	records, err := s.docs.Query(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	cases := make([]domain.Case, 0, len(records))
	for _, rec := range records {
		var c domain.Case
		if err := docstore.FromPayload(rec.Data, &c); err != nil {
			return nil, fmt.Errorf("list cases: record %s: %w", rec.ID, err)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// CountCases returns the number of cases matching the filter, ignoring
// limit and offset.
func (s *Service) CountCases(ctx context.Context, f Filter) (int64, error) {
	n, err := s.docs.Count(ctx, Collection, f.predicates())
	if err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

// notifyCase emits best-effort notifications to the case's creator and
// assigned judge. Failures are logged and counted, never returned.
func (s *Service) notifyCase(ctx context.Context, c domain.Case, title, message string) {
	seen := make(map[string]bool, 2)
	for _, recipient := range []string{c.AssignedTo, c.CreatedBy} {
		if recipient == "" || seen[recipient] {
			continue
		}
		seen[recipient] = true
		err := s.emitter.Emit(ctx, domain.Notification{
			RecipientUserID: recipient,
			Title:           title,
			Message:         message,
			RelatedType:     "case",
			RelatedID:       c.ID,
		})
		if err != nil {
			s.log.Warn("notification failed",
				"case_id", c.ID,
				"recipient", recipient,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.Failures.WithLabelValues("case").Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.Emitted.WithLabelValues("case").Inc()
		}
	}
}

// mapValidatorError converts go-playground/validator errors to the domain
// error taxonomy.
func mapValidatorError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError("input", err.Error())
	}
	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		})
	}
	return domain.NewValidationErrors(fields)
}
