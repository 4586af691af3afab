// Package schema validates collection payloads against CUE definitions.
// Uses the CUE SDK's Go API directly (not CLI subprocess): each collection's
// schema is compiled once at registry construction, and payloads are checked
// by unifying them with the schema value.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/mkandawire/docket/internal/domain"
)

// caseSchema constrains case documents. Statuses and priorities are closed
// enums; unknown extra fields are allowed so callers can carry ad-hoc data.
const caseSchema = `{
	id:          string & !=""
	caseNumber?: string & !=""
	title:       string & !=""
	description?: string
	type?:        string
	status: "filed" | "verified" | "rejected" | "summons" | "active" |
		"takes_off" | "recording" | "adjournment" | "ruling" | "appeal" |
		"closed" | "dismissed"
	priority?: "low" | "medium" | "high" | "urgent"
	courtCode?:  string
	typePrefix?: string
	createdBy?:  string
	assignedTo?: string
	plaintiffs?: [...{name: string & !="", ...}]
	defendants?: [...{name: string & !="", ...}]
	lawyers?: [...{name: string & !="", ...}]
	rulings?: [...string]
	tags?: [...string]
	...
}`

// notificationSchema constrains notification documents.
const notificationSchema = `{
	id:              string & !=""
	recipientUserId: string & !=""
	title:           string & !=""
	message:         string
	relatedType?:    string
	relatedId?:      string
	...
}`

// Registry holds compiled collection schemas. Collections without a
// registered schema validate vacuously.
type Registry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
}

// NewRegistry compiles the built-in schemas. Compilation failure is a
// programming error in the schema sources.
func NewRegistry() (*Registry, error) {
	ctx := cuecontext.New()
	r := &Registry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}
	for name, src := range map[string]string{
		"cases":         caseSchema,
		"notifications": notificationSchema,
	} {
		v := ctx.CompileString(src)
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		r.schemas[name] = v
	}
	return r, nil
}

// Validate checks payload against the collection's schema. Failures are
// reported as a domain.ValidationError carrying one FieldError per CUE
// error. Collections with no registered schema always pass.
func (r *Registry) Validate(collection string, payload map[string]any) error {
	schemaVal, ok := r.schemas[collection]
	if !ok {
		return nil
	}

	// Payloads travel as map[string]any with json.Number values; going
	// through the JSON encoding (JSON is a subset of CUE) keeps numbers
	// numeric.
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.NewValidationError(collection, err.Error())
	}
	dataVal := r.ctx.CompileBytes(data)
	if err := dataVal.Err(); err != nil {
		return domain.NewValidationError(collection, err.Error())
	}

	unified := schemaVal.Unify(dataVal)
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var fields []domain.FieldError
	for _, e := range cueerrors.Errors(err) {
		fields = append(fields, domain.FieldError{
			Field:   strings.Join(e.Path(), "."),
			Message: cueMessage(e),
		})
	}
	if len(fields) == 0 {
		fields = append(fields, domain.FieldError{Field: collection, Message: err.Error()})
	}
	return domain.NewValidationErrors(fields)
}

// cueMessage renders the error without its position information, which is
// meaningless for schemas compiled from strings.
func cueMessage(e cueerrors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}
