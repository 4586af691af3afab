// Package harness runs YAML conformance scenarios against a real service
// stack and renders the resulting audit trace for golden comparison. All
// clocks and id generators are deterministic, so the same scenario always
// produces byte-identical output.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mkandawire/docket/internal/audit"
	"github.com/mkandawire/docket/internal/docstore"
	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/lifecycle"
	"github.com/mkandawire/docket/internal/schema"
	"github.com/mkandawire/docket/internal/seq"
	"github.com/mkandawire/docket/internal/store"
	"github.com/mkandawire/docket/internal/testutil"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Pass is true when every step and expectation matched.
	Pass bool
	// Errors lists mismatches. Empty when Pass.
	Errors []string
	// StepLines has one rendered line per executed step.
	StepLines []string
	// TraceLines renders the full audit trail, oldest first.
	TraceLines []string
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness executes scenarios. Each Run gets a fresh database.
type Harness struct {
	dir string
	n   int
}

// New creates a Harness placing its databases under dir.
func New(dir string) *Harness {
	return &Harness{dir: dir}
}

// Run executes one scenario against a fresh deterministic stack.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	h.n++
	db, err := store.Open(filepath.Join(h.dir, fmt.Sprintf("scenario-%d.db", h.n)))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	defer db.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := docstore.New(db, docstore.WithLogger(log))
	if err := lifecycle.Bootstrap(ctx, docs); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	gen := seq.New(docs,
		seq.WithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }),
		seq.WithLogger(log),
	)
	clock := testutil.NewTickingClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), time.Second)
	ids := testutil.NewSequentialIDs("obj")
	auditw, err := audit.NewWriter(ctx, docs,
		audit.WithWriterClock(clock.Now),
		audit.WithWriterIDs(testutil.NewSequentialIDs("audit").Next),
		audit.WithWriterLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	schemas, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	svc := lifecycle.New(docs, gen, auditw, schemas,
		lifecycle.WithClock(clock.Now),
		lifecycle.WithIDs(ids.Next),
		lifecycle.WithLogger(log),
	)

	res := &Result{Pass: true}
	run := &scenarioRun{
		svc:     svc,
		cases:   make(map[string]string),
		aliases: make(map[string]string),
		docIDs:  make(map[string]string),
	}

	for i, step := range sc.Steps {
		line, err := run.execute(ctx, step)
		if step.WantError != "" {
			if err == nil {
				res.addError("step %d (%s %s): expected %s, succeeded", i+1, step.Op, step.Case, step.WantError)
				res.StepLines = append(res.StepLines, fmt.Sprintf("%s %s => ok (unexpected)", step.Op, step.Case))
				continue
			}
			code := errorCode(err)
			if code != step.WantError {
				res.addError("step %d (%s %s): expected %s, got %s: %v", i+1, step.Op, step.Case, step.WantError, code, err)
			}
			res.StepLines = append(res.StepLines, fmt.Sprintf("%s %s ! %s", step.Op, step.Case, code))
			continue
		}
		if err != nil {
			res.addError("step %d (%s %s): %v", i+1, step.Op, step.Case, err)
			res.StepLines = append(res.StepLines, fmt.Sprintf("%s %s ! %s", step.Op, step.Case, errorCode(err)))
			continue
		}
		res.StepLines = append(res.StepLines, line)
	}

	for _, exp := range sc.Expect {
		id, ok := run.cases[exp.Case]
		if !ok {
			res.addError("expect: unknown case alias %q", exp.Case)
			continue
		}
		c, err := svc.GetCase(ctx, id)
		if err != nil {
			res.addError("expect %s: %v", exp.Case, err)
			continue
		}
		if exp.Status != "" && string(c.Status) != exp.Status {
			res.addError("expect %s: status %s, got %s", exp.Case, exp.Status, c.Status)
		}
		if exp.Rulings > 0 && len(c.Rulings) != exp.Rulings {
			res.addError("expect %s: %d rulings, got %d", exp.Case, exp.Rulings, len(c.Rulings))
		}
	}

	entries, err := audit.NewReader(docs).Feed(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		res.TraceLines = append(res.TraceLines, run.renderEntry(entries[i]))
	}
	return res, nil
}

// scenarioRun tracks alias bindings for one execution.
type scenarioRun struct {
	svc     *lifecycle.Service
	cases   map[string]string // alias -> case id
	aliases map[string]string // case id -> alias
	docIDs  map[string]string // "<case alias>/<doc title>" -> document id
}

func (r *scenarioRun) execute(ctx context.Context, step Step) (string, error) {
	actor, err := parseActor(step.Actor)
	if err != nil {
		return "", err
	}

	switch step.Op {
	case "file", "create":
		in := lifecycle.CreateCaseInput{
			Title:      step.Title,
			Type:       step.Type,
			CourtCode:  step.Court,
			TypePrefix: step.Prefix,
		}
		if in.CourtCode == "" {
			in.CourtCode = "LUS"
		}
		if in.TypePrefix == "" {
			in.TypePrefix = "HC-GEN"
		}
		var c domain.Case
		if step.Op == "file" {
			c, err = r.svc.FileCase(ctx, actor, in)
		} else {
			c, err = r.svc.CreateCase(ctx, actor, in)
		}
		if err != nil {
			return "", err
		}
		r.cases[step.Case] = c.ID
		r.aliases[c.ID] = step.Case
		return fmt.Sprintf("%s %s => %s %s", step.Op, step.Case, c.Status, c.CaseNumber), nil

	case "hearing":
		date, err := time.Parse("2006-01-02", step.Date)
		if err != nil {
			return "", domain.NewValidationError("date", err.Error())
		}
		_, err = r.svc.ScheduleHearing(ctx, r.caseID(step.Case), actor, domain.HearingRef{
			Date:  date,
			Venue: step.Venue,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("hearing %s => scheduled %s", step.Case, step.Date), nil

	case "attach":
		doc, err := r.svc.AttachDocument(ctx, r.caseID(step.Case), actor, domain.DocumentRef{Title: step.Doc})
		if err != nil {
			return "", err
		}
		r.docIDs[step.Case+"/"+step.Doc] = doc.ID
		return fmt.Sprintf("attach %s => %s", step.Case, step.Doc), nil

	case "seal", "sign":
		docID := r.docIDs[step.Case+"/"+step.Doc]
		if docID == "" {
			docID = step.Doc // let unknown titles surface not_found
		}
		if step.Op == "seal" {
			err = r.svc.SealDocument(ctx, r.caseID(step.Case), actor, docID)
		} else {
			err = r.svc.SignDocument(ctx, r.caseID(step.Case), actor, docID)
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s => %s", step.Op, step.Case, step.Doc), nil
	}

	// Status verbs.
	var c domain.Case
	id := r.caseID(step.Case)
	switch step.Op {
	case "verify":
		c, err = r.svc.Verify(ctx, id, actor)
	case "reject":
		c, err = r.svc.Reject(ctx, id, actor, step.Reason)
	case "summons":
		var date time.Time
		if step.Date != "" {
			date, err = time.Parse("2006-01-02", step.Date)
			if err != nil {
				return "", domain.NewValidationError("date", err.Error())
			}
		}
		c, err = r.svc.IssueSummons(ctx, id, actor, date)
	case "allocate":
		c, err = r.svc.AllocateJudge(ctx, id, actor, step.Judge)
	case "takeoff":
		c, err = r.svc.MarkTakesOff(ctx, id, actor)
	case "record":
		c, err = r.svc.StartRecording(ctx, id, actor)
	case "adjourn":
		c, err = r.svc.Adjourn(ctx, id, actor)
	case "resume":
		c, err = r.svc.Resume(ctx, id, actor)
	case "ruling":
		c, err = r.svc.RecordRuling(ctx, id, actor, step.Text)
	case "appeal":
		c, err = r.svc.Appeal(ctx, id, actor)
	case "close":
		c, err = r.svc.Close(ctx, id, actor)
	case "dismiss":
		c, err = r.svc.Dismiss(ctx, id, actor)
	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s => %s", step.Op, step.Case, c.Status), nil
}

// caseID resolves an alias; unknown aliases return the alias itself so the
// service reports not_found.
func (r *scenarioRun) caseID(alias string) string {
	if id, ok := r.cases[alias]; ok {
		return id
	}
	return alias
}

// renderEntry formats one audit entry with case ids replaced by aliases.
func (r *scenarioRun) renderEntry(e audit.Entry) string {
	subject := e.EntityID
	if alias, ok := r.aliases[e.EntityID]; ok {
		subject = alias
	}
	line := fmt.Sprintf("%d %s case=%s actor=%s(%s)", e.Seq, e.Action, subject, e.ActorID, e.ActorRole)
	switch {
	case e.PrevStatus != "" && e.NewStatus != "":
		line += fmt.Sprintf(" %s -> %s", e.PrevStatus, e.NewStatus)
	case e.NewStatus != "":
		line += fmt.Sprintf(" -> %s", e.NewStatus)
	}
	return line
}

func parseActor(s string) (domain.Actor, error) {
	var id, roleStr string
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			id, roleStr = s[:i], s[i+1:]
			break
		}
	}
	if id == "" {
		return domain.Actor{}, fmt.Errorf("invalid actor %q: want <user-id>:<role>", s)
	}
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{ID: id, Role: role}, nil
}

// errorCode maps errors onto the codes scenarios name in want_error.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrSequenceContention):
		return "sequence_contention"
	default:
		return "internal"
	}
}
