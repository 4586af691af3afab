package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkandawire/docket/internal/docstore"
	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/store"
)

func newTestDocs(t *testing.T) *docstore.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return docstore.New(db)
}

func newTestWriter(t *testing.T, docs *docstore.Store) *Writer {
	t.Helper()
	n := 0
	w, err := NewWriter(context.Background(), docs,
		WithWriterClock(func() time.Time {
			return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
		}),
		WithWriterIDs(func() string {
			n++
			return fmt.Sprintf("entry-%03d", n)
		}),
	)
	require.NoError(t, err)
	return w
}

func TestAppend_StampsEntry(t *testing.T) {
	docs := newTestDocs(t)
	w := newTestWriter(t, docs)

	e, err := w.Append(context.Background(), docs, Entry{
		Action:     ActionCaseCreate,
		EntityType: "case",
		EntityID:   "case-1",
		ActorID:    "u-1",
		ActorRole:  domain.RoleRegistrar,
		Details:    map[string]any{"caseNumber": "LUS-HC-GEN-2025-00001"},
	})
	require.NoError(t, err)
	require.Equal(t, "entry-001", e.ID)
	require.Equal(t, int64(1), e.Seq)
	require.Equal(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), e.Timestamp)
	require.NotEmpty(t, e.Checksum)

	ok, err := Verify(e)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAppend_RequiresActionAndEntity(t *testing.T) {
	docs := newTestDocs(t)
	w := newTestWriter(t, docs)
	ctx := context.Background()

	_, err := w.Append(ctx, docs, Entry{EntityType: "case", EntityID: "c"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = w.Append(ctx, docs, Entry{Action: ActionDocAttach, EntityType: "case"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerify_DetectsTampering(t *testing.T) {
	docs := newTestDocs(t)
	w := newTestWriter(t, docs)

	e, err := w.Append(context.Background(), docs, Entry{
		Action:     ActionCaseStatusUpdate,
		EntityType: "case",
		EntityID:   "case-1",
		ActorID:    "u-1",
		ActorRole:  domain.RoleJudge,
		PrevStatus: "active",
		NewStatus:  "closed",
	})
	require.NoError(t, err)

	e.NewStatus = "dismissed"
	ok, err := Verify(e)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHistory_ReturnsEntityEntriesOldestFirst(t *testing.T) {
	docs := newTestDocs(t)
	w := newTestWriter(t, docs)
	ctx := context.Background()

	for _, ent := range []struct{ action, id string }{
		{ActionCaseCreate, "case-1"},
		{ActionCaseCreate, "case-2"},
		{ActionCaseStatusUpdate, "case-1"},
		{ActionDocAttach, "case-1"},
	} {
		_, err := w.Append(ctx, docs, Entry{
			Action:     ent.action,
			EntityType: "case",
			EntityID:   ent.id,
			ActorID:    "u-1",
			ActorRole:  domain.RoleRegistrar,
		})
		require.NoError(t, err)
	}

	entries, err := NewReader(docs).History(ctx, "case", "case-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []string{ActionCaseCreate, ActionCaseStatusUpdate, ActionDocAttach},
		[]string{entries[0].Action, entries[1].Action, entries[2].Action})
	require.Less(t, entries[0].Seq, entries[1].Seq)
	require.Less(t, entries[1].Seq, entries[2].Seq)
}

func TestFeed_NewestFirstWithLimit(t *testing.T) {
	docs := newTestDocs(t)
	w := newTestWriter(t, docs)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := w.Append(ctx, docs, Entry{
			Action:     ActionCaseCreate,
			EntityType: "case",
			EntityID:   fmt.Sprintf("case-%d", i),
			ActorID:    "u-1",
			ActorRole:  domain.RoleRegistrar,
		})
		require.NoError(t, err)
	}

	entries, err := NewReader(docs).Feed(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, int64(5), entries[0].Seq)
	require.Equal(t, int64(4), entries[1].Seq)
	require.Equal(t, int64(3), entries[2].Seq)
}

func TestByActor_FiltersOnActor(t *testing.T) {
	docs := newTestDocs(t)
	w := newTestWriter(t, docs)
	ctx := context.Background()

	for _, actor := range []string{"u-1", "u-2", "u-1"} {
		_, err := w.Append(ctx, docs, Entry{
			Action:     ActionCaseCreate,
			EntityType: "case",
			EntityID:   "case-1",
			ActorID:    actor,
			ActorRole:  domain.RoleClerk,
		})
		require.NoError(t, err)
	}

	entries, err := NewReader(docs).ByActor(ctx, "u-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(3), entries[0].Seq)
	require.Equal(t, int64(1), entries[1].Seq)
}

func TestNewWriter_ResumesAfterHighestSeq(t *testing.T) {
	docs := newTestDocs(t)
	ctx := context.Background()

	w1 := newTestWriter(t, docs)
	for i := 0; i < 3; i++ {
		_, err := w1.Append(ctx, docs, Entry{
			Action:     ActionCaseCreate,
			EntityType: "case",
			EntityID:   "case-1",
			ActorID:    "u-1",
			ActorRole:  domain.RoleRegistrar,
		})
		require.NoError(t, err)
	}

	// A second writer over the same store continues the sequence.
	w2, err := NewWriter(ctx, docs, WithWriterIDs(func() string { return "restart-001" }))
	require.NoError(t, err)
	e, err := w2.Append(ctx, docs, Entry{
		Action:     ActionCaseStatusUpdate,
		EntityType: "case",
		EntityID:   "case-1",
		ActorID:    "u-1",
		ActorRole:  domain.RoleRegistrar,
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), e.Seq)
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	details := map[string]any{
		"zulu":  "last",
		"alpha": "first",
		"count": int64(3),
		"tags":  []any{"a", "b"},
		"flag":  true,
		"none":  nil,
	}

	first, err := marshalCanonical(details)
	require.NoError(t, err)
	second, err := marshalCanonical(details)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t,
		`{"alpha":"first","count":3,"flag":true,"none":null,"tags":["a","b"],"zulu":"last"}`,
		string(first))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	b, err := marshalCanonical(map[string]any{"q": "a < b & c > d"})
	require.NoError(t, err)
	require.Equal(t, `{"q":"a < b & c > d"}`, string(b))
}
