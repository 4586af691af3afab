package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/query"
	"github.com/mkandawire/docket/internal/store"
)

func newTestStore(t *testing.T) (*Store, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, docs.EnsureCollection(ctx, "cases"))
	}
	require.NoError(t, docs.Insert(ctx, "cases", "c1", map[string]any{"title": "x"}))
}

func TestEnsureCollection_RejectsBadNames(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "Cases", "c ases", "1cases", `c"; DROP TABLE x; --`} {
		require.Error(t, docs.EnsureCollection(ctx, name), "name %q", name)
	}
}

func TestInsertGet_RoundTrip(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	payload := map[string]any{
		"title":    "Mwansa v Banda",
		"status":   "active",
		"priority": "high",
		"plaintiffs": []any{
			map[string]any{"name": "B. Mwansa", "contact": "bm@example.org"},
		},
		"tags":  []any{"land", "civil"},
		"depth": map[string]any{"nested": map[string]any{"n": json.Number("42")}},
	}

	require.NoError(t, docs.Insert(ctx, "cases", "c1", payload))

	rec, err := docs.Get(ctx, "cases", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.Before(rec.CreatedAt), "updatedAt must be >= createdAt")

	// Deep equality including nested objects and arrays.
	want, err := json.Marshal(payload)
	require.NoError(t, err)
	got, err := json.Marshal(rec.Data)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestInsert_StripsNilFields(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	require.NoError(t, docs.Insert(ctx, "cases", "c1", map[string]any{
		"title":      "x",
		"assignedTo": nil,
		"meta":       map[string]any{"keep": "y", "drop": nil},
	}))

	rec, err := docs.Get(ctx, "cases", "c1")
	require.NoError(t, err)
	assert.NotContains(t, rec.Data, "assignedTo")
	meta := rec.Data["meta"].(map[string]any)
	assert.NotContains(t, meta, "drop")
	assert.Equal(t, "y", meta["keep"])
}

func TestInsert_DuplicateKey(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	require.NoError(t, docs.Insert(ctx, "cases", "c1", map[string]any{"title": "original"}))

	err := docs.Insert(ctx, "cases", "c1", map[string]any{"title": "overwrite attempt"})
	require.ErrorIs(t, err, domain.ErrDuplicateKey)

	// Original record unchanged.
	rec, err := docs.Get(ctx, "cases", "c1")
	require.NoError(t, err)
	assert.Equal(t, "original", rec.Data["title"])
}

func TestUpdate_PartialMerge(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	require.NoError(t, docs.Insert(ctx, "cases", "c1", map[string]any{
		"title":  "x",
		"status": "filed",
		"tags":   []any{"a"},
	}))

	require.NoError(t, docs.Update(ctx, "cases", "c1", map[string]any{
		"status": "verified",
		"tags":   nil, // merge-delete
	}))

	rec, err := docs.Get(ctx, "cases", "c1")
	require.NoError(t, err)
	assert.Equal(t, "x", rec.Data["title"], "untouched field survives")
	assert.Equal(t, "verified", rec.Data["status"])
	assert.NotContains(t, rec.Data, "tags", "null in patch removes the field")
}

func TestUpdate_NotFound(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	err := docs.Update(ctx, "cases", "missing", map[string]any{"status": "active"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReplace_FullOverwrite(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	require.NoError(t, docs.Insert(ctx, "cases", "c1", map[string]any{"title": "x", "status": "filed"}))
	require.NoError(t, docs.Replace(ctx, "cases", "c1", map[string]any{"title": "y"}))

	rec, err := docs.Get(ctx, "cases", "c1")
	require.NoError(t, err)
	assert.Equal(t, "y", rec.Data["title"])
	assert.NotContains(t, rec.Data, "status", "replace drops unlisted fields")
}

func TestGet_NotFound(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	_, err := docs.Get(ctx, "cases", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_CorruptRecord(t *testing.T) {
	docs, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	// Bypass the codec and damage the stored JSON directly.
	_, err := db.Runner().ExecContext(ctx,
		"INSERT INTO c_cases (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)",
		"bad", "{not json", "2025-01-01T00:00:00Z", "2025-01-01T00:00:00Z")
	require.NoError(t, err)

	_, err = docs.Get(ctx, "cases", "bad")
	require.ErrorIs(t, err, domain.ErrCorruptRecord)
	assert.Contains(t, err.Error(), "bad", "error names the offending record")
}

func TestQuery_PredicateOrderLimit(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, c := range []struct {
		id      string
		status  string
		updated string
	}{
		{"c1", "active", "2025-03-05T10:00:00Z"},
		{"c2", "closed", "2025-03-06T10:00:00Z"},
		{"c3", "active", "2025-03-07T10:00:00Z"},
		{"c4", "active", "2025-03-04T10:00:00Z"},
	} {
		docs.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, docs.Insert(ctx, "cases", c.id, map[string]any{
			"status":    c.status,
			"updatedAt": c.updated,
		}))
	}

	q := query.Where("status", query.OpEq, "active")
	q.OrderBy = "updatedAt"
	q.Desc = true
	q.Limit = 2

	recs, err := docs.Query(ctx, "cases", q)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c3", recs[0].ID)
	assert.Equal(t, "c1", recs[1].ID)
}

func TestQuery_DefaultOrderIsCreationDesc(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		tick := base.Add(time.Duration(i) * time.Second)
		docs.now = func() time.Time { return tick }
		require.NoError(t, docs.Insert(ctx, "cases", id, map[string]any{"n": i}))
	}

	recs, err := docs.Query(ctx, "cases", query.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"c3", "c2", "c1"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
}

func TestQuery_SubsecondOrderWithinSameSecond(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	// A whole-second instant must not sort after a fractional one from the
	// same second; the stored format is fixed-width so the TEXT columns
	// compare chronologically.
	whole := time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC)
	docs.now = func() time.Time { return whole }
	require.NoError(t, docs.Insert(ctx, "cases", "older", map[string]any{"n": 1}))

	docs.now = func() time.Time { return whole.Add(500 * time.Millisecond) }
	require.NoError(t, docs.Insert(ctx, "cases", "newer", map[string]any{"n": 2}))

	recs, err := docs.Query(ctx, "cases", query.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "newer", recs[0].ID)
	assert.Equal(t, "older", recs[1].ID)

	// Round-trip the whole-second instant through storage.
	rec, err := docs.Get(ctx, "cases", "older")
	require.NoError(t, err)
	assert.True(t, rec.CreatedAt.Equal(whole))
}

func TestQuery_OrderByCreationAscending(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		tick := base.Add(time.Duration(i) * time.Second)
		docs.now = func() time.Time { return tick }
		require.NoError(t, docs.Insert(ctx, "cases", id, map[string]any{"n": i}))
	}

	recs, err := docs.Query(ctx, "cases", query.Query{OrderBy: "created_at"})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
}

func TestQuery_InAndOffset(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	for _, c := range []struct{ id, status string }{
		{"c1", "filed"}, {"c2", "active"}, {"c3", "ruling"}, {"c4", "closed"},
	} {
		require.NoError(t, docs.Insert(ctx, "cases", c.id, map[string]any{"status": c.status}))
	}

	q := query.Where("status", query.OpIn, []any{"active", "ruling"})
	q.OrderBy = "status"
	recs, err := docs.Query(ctx, "cases", q)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c2", recs[0].ID)

	q.Offset = 1
	recs, err = docs.Query(ctx, "cases", q)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "c3", recs[0].ID)
}

func TestQuery_EmptyResultIsEmptySlice(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	recs, err := docs.Query(ctx, "cases", query.Where("status", query.OpEq, "nope"))
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestCount(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))

	for _, c := range []struct{ id, status string }{
		{"c1", "active"}, {"c2", "active"}, {"c3", "closed"},
	} {
		require.NoError(t, docs.Insert(ctx, "cases", c.id, map[string]any{"status": c.status}))
	}

	n, err := docs.Count(ctx, "cases", []query.Predicate{{Field: "status", Op: query.OpEq, Value: "active"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	total, err := docs.Count(ctx, "cases", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestEnsureIndex(t *testing.T) {
	docs, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))
	require.NoError(t, docs.EnsureIndex(ctx, "cases", "status"))
	require.NoError(t, docs.EnsureIndex(ctx, "cases", "status")) // idempotent

	var name string
	err := db.Runner().QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_c_cases_status'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_c_cases_status", name)

	require.Error(t, docs.EnsureIndex(ctx, "cases", "no'field"))
}

func TestInTx_AtomicAcrossCollections(t *testing.T) {
	docs, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, docs.EnsureCollection(ctx, "cases"))
	require.NoError(t, docs.EnsureCollection(ctx, "audit_logs"))

	boom := errors.New("boom")
	err := docs.InTx(ctx, func(tx *Store) error {
		if err := tx.Insert(ctx, "cases", "c1", map[string]any{"status": "active"}); err != nil {
			return err
		}
		if err := tx.Insert(ctx, "audit_logs", "a1", map[string]any{"action": "CASE_CREATE"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither write survived the rollback.
	_, err = docs.Get(ctx, "cases", "c1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = docs.Get(ctx, "audit_logs", "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// And the same pair commits together on success.
	err = docs.InTx(ctx, func(tx *Store) error {
		if err := tx.Insert(ctx, "cases", "c1", map[string]any{"status": "active"}); err != nil {
			return err
		}
		return tx.Insert(ctx, "audit_logs", "a1", map[string]any{"action": "CASE_CREATE"})
	})
	require.NoError(t, err)

	_, err = docs.Get(ctx, "cases", "c1")
	require.NoError(t, err)
	_, err = docs.Get(ctx, "audit_logs", "a1")
	require.NoError(t, err)
}
