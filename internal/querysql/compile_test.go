package querysql

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/docket/internal/query"
)

func TestSelect_NoPredicates(t *testing.T) {
	stmt, args, err := Select("c_cases", query.Query{})
	require.NoError(t, err)

	// Zero predicates must omit the WHERE clause entirely.
	assert.NotContains(t, stmt, "WHERE")
	assert.Empty(t, args)
	assert.Equal(t,
		"SELECT id, data, created_at, updated_at FROM c_cases ORDER BY created_at DESC, id COLLATE BINARY ASC",
		stmt)
}

func TestSelect_Equality(t *testing.T) {
	stmt, args, err := Select("c_cases", query.Where("status", query.OpEq, "active"))
	require.NoError(t, err)

	assert.Contains(t, stmt, "WHERE json_extract(data, '$.status') = ?")
	assert.Equal(t, []any{"active"}, args)
}

func TestSelect_InMembership(t *testing.T) {
	stmt, args, err := Select("c_cases",
		query.Where("status", query.OpIn, []any{"active", "ruling"}))
	require.NoError(t, err)

	assert.Contains(t, stmt, "json_extract(data, '$.status') IN (?,?)")
	assert.Equal(t, []any{"active", "ruling"}, args)
}

func TestSelect_ConjunctionOrderLimitOffset(t *testing.T) {
	q := query.Where("status", query.OpEq, "active").
		And("priority", query.OpGte, 2)
	q.OrderBy = "updatedAt"
	q.Desc = true
	q.Limit = 10
	q.Offset = 5

	stmt, args, err := Select("c_cases", q)
	require.NoError(t, err)

	assert.Contains(t, stmt, "json_extract(data, '$.status') = ? AND json_extract(data, '$.priority') >= ?")
	assert.Contains(t, stmt, "ORDER BY json_extract(data, '$.updatedAt') DESC, id COLLATE BINARY ASC")
	assert.Contains(t, stmt, "LIMIT 10 OFFSET 5")
	assert.Equal(t, []any{"active", 2}, args)
}

func TestSelect_StableTiebreaker(t *testing.T) {
	// Every compiled statement must end with the id tiebreaker, whatever the
	// requested order, so repeated reads are deterministic. SQLite's
	// ordering-term grammar is expr [COLLATE name] [ASC|DESC]; the collation
	// goes before the direction.
	queries := []query.Query{
		{},
		{OrderBy: "timestamp"},
		{OrderBy: "priority", Desc: true},
	}
	for _, q := range queries {
		stmt, _, err := Select("c_audit_logs", q)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(stmt, "id COLLATE BINARY ASC"), "stmt = %s", stmt)
		assert.NotContains(t, stmt, "ASC COLLATE")
	}
}

func TestSelect_MetaColumnOrder(t *testing.T) {
	// The metadata columns order on the column itself, not a JSON path, so
	// creation time ascending is expressible.
	q := query.Query{OrderBy: "created_at"}
	stmt, _, err := Select("c_cases", q)
	require.NoError(t, err)
	assert.Contains(t, stmt, "ORDER BY created_at ASC, id COLLATE BINARY ASC")

	q = query.Query{OrderBy: "updated_at", Desc: true}
	stmt, _, err = Select("c_cases", q)
	require.NoError(t, err)
	assert.Contains(t, stmt, "ORDER BY updated_at DESC, id COLLATE BINARY ASC")
}

func TestSelect_DescWithoutOrderByRejected(t *testing.T) {
	_, _, err := Select("c_cases", query.Query{Desc: true})
	require.Error(t, err)
}

func TestSelect_RejectsInvalidQuery(t *testing.T) {
	_, _, err := Select("c_cases", query.Where("status; DROP TABLE c_cases", query.OpEq, "x"))
	require.Error(t, err)

	_, _, err = Select("c_cases", query.Where("status", query.OpIn, []any{}))
	require.Error(t, err)
}

func TestCount(t *testing.T) {
	stmt, args, err := Count("c_cases", []query.Predicate{
		{Field: "status", Op: query.OpEq, Value: "active"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM c_cases WHERE json_extract(data, '$.status') = ?", stmt)
	assert.Equal(t, []any{"active"}, args)
}

func TestCount_NoPredicates(t *testing.T) {
	stmt, args, err := Count("c_cases", nil)
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM c_cases", stmt)
	assert.Empty(t, args)
}

// TestCompile_Golden locks the compiled SQL for a representative corpus of
// queries. Regenerate with: go test ./internal/querysql -update
func TestCompile_Golden(t *testing.T) {
	corpus := []struct {
		name  string
		table string
		q     query.Query
	}{
		{name: "all_rows", table: "c_cases", q: query.Query{}},
		{name: "status_eq", table: "c_cases", q: query.Where("status", query.OpEq, "active")},
		{
			name:  "active_recent",
			table: "c_cases",
			q: func() query.Query {
				q := query.Where("status", query.OpEq, "active")
				q.OrderBy = "updatedAt"
				q.Desc = true
				q.Limit = 10
				return q
			}(),
		},
		{
			name:  "entity_history",
			table: "c_audit_logs",
			q: func() query.Query {
				q := query.Where("entityType", query.OpEq, "case").
					And("entityId", query.OpEq, "case-1")
				q.OrderBy = "timestamp"
				return q
			}(),
		},
		{
			name:  "title_like_in_courts",
			table: "c_cases",
			q: query.Where("title", query.OpLike, "%estate%").
				And("courtCode", query.OpIn, []any{"LUS-HC", "NDL-HC"}),
		},
		{name: "oldest_first", table: "c_cases", q: query.Query{OrderBy: "created_at"}},
	}

	var buf bytes.Buffer
	for _, c := range corpus {
		stmt, args, err := Select(c.table, c.q)
		require.NoError(t, err, c.name)
		fmt.Fprintf(&buf, "-- %s\n%s\nargs: %v\n\n", c.name, stmt, args)
	}

	g := goldie.New(t)
	g.Assert(t, "compile", buf.Bytes())
}
