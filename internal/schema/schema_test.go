package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkandawire/docket/internal/domain"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	return r
}

func TestValidate_AcceptsWellFormedCase(t *testing.T) {
	r := newRegistry(t)

	err := r.Validate("cases", map[string]any{
		"id":       "case-1",
		"title":    "Banda v Phiri",
		"status":   "filed",
		"priority": "high",
		"plaintiffs": []any{
			map[string]any{"name": "J Banda", "counsel": "M Tembo"},
		},
		"tags": []any{"civil"},
	})
	require.NoError(t, err)
}

func TestValidate_RejectsUnknownStatus(t *testing.T) {
	r := newRegistry(t)

	err := r.Validate("cases", map[string]any{
		"id":     "case-1",
		"title":  "Banda v Phiri",
		"status": "pending",
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.NotEmpty(t, verr.Fields)
}

func TestValidate_RejectsEmptyTitle(t *testing.T) {
	r := newRegistry(t)

	err := r.Validate("cases", map[string]any{
		"id":     "case-1",
		"title":  "",
		"status": "filed",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidate_RejectsMissingRequiredField(t *testing.T) {
	r := newRegistry(t)

	// No status at all.
	err := r.Validate("cases", map[string]any{
		"id":    "case-1",
		"title": "Banda v Phiri",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidate_AllowsExtraFields(t *testing.T) {
	r := newRegistry(t)

	err := r.Validate("cases", map[string]any{
		"id":          "case-1",
		"title":       "Banda v Phiri",
		"status":      "active",
		"customField": "anything",
	})
	require.NoError(t, err)
}

func TestValidate_Notifications(t *testing.T) {
	r := newRegistry(t)

	err := r.Validate("notifications", map[string]any{
		"id":              "n-1",
		"recipientUserId": "u-1",
		"title":           "Case update",
		"message":         "Status changed to active",
	})
	require.NoError(t, err)

	err = r.Validate("notifications", map[string]any{
		"id":              "n-2",
		"recipientUserId": "",
		"title":           "Case update",
		"message":         "",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidate_UnknownCollectionIsVacuous(t *testing.T) {
	r := newRegistry(t)

	err := r.Validate("sequences", map[string]any{"current": 1})
	require.NoError(t, err)
}
