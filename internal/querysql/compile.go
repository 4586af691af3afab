// Package querysql compiles query.Query values to parameterized SQL for
// SQLite collection tables.
//
// Every compiled statement orders its results deterministically: the
// requested order (creation time descending by default) is always followed
// by an "id COLLATE BINARY ASC" tiebreaker so repeated reads return rows in
// a stable order. All values are parameterized, never interpolated; field
// names are validated before being spliced into json_extract paths. The
// metadata columns (id, created_at, updated_at) are addressable as fields
// alongside payload fields.
package querysql

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mkandawire/docket/internal/query"
)

// Columns selected for every row read. Matches the physical collection
// layout: (id TEXT PRIMARY KEY, data TEXT, created_at TEXT, updated_at TEXT).
var rowColumns = []string{"id", "data", "created_at", "updated_at"}

// Select compiles q into a row-returning statement against table.
// Returns (sql, args, error).
func Select(table string, q query.Query) (string, []any, error) {
	if err := query.Validate(q); err != nil {
		return "", nil, fmt.Errorf("compile select: %w", err)
	}

	b := sq.Select(rowColumns...).From(table)

	b, err := applyPredicates(b, q.Predicates)
	if err != nil {
		return "", nil, fmt.Errorf("compile select: %w", err)
	}

	b = b.OrderBy(orderClauses(q)...)

	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		b = b.Offset(uint64(q.Offset))
	}

	stmt, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("compile select: %w", err)
	}
	return stmt, args, nil
}

// Count compiles the predicates into a COUNT(*) statement against table.
// Predicate semantics are identical to Select.
func Count(table string, preds []query.Predicate) (string, []any, error) {
	if err := query.Validate(query.Query{Predicates: preds}); err != nil {
		return "", nil, fmt.Errorf("compile count: %w", err)
	}

	b := sq.Select("COUNT(*)").From(table)

	b, err := applyPredicates(b, preds)
	if err != nil {
		return "", nil, fmt.Errorf("compile count: %w", err)
	}

	stmt, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("compile count: %w", err)
	}
	return stmt, args, nil
}

// applyPredicates adds one WHERE conjunct per predicate. Zero predicates
// add nothing, so the builder emits no WHERE clause at all.
func applyPredicates(b sq.SelectBuilder, preds []query.Predicate) (sq.SelectBuilder, error) {
	for _, p := range preds {
		expr := fieldExpr(p.Field)
		switch p.Op {
		case query.OpEq:
			b = b.Where(sq.Eq{expr: p.Value})
		case query.OpNe:
			b = b.Where(sq.NotEq{expr: p.Value})
		case query.OpLt:
			b = b.Where(sq.Lt{expr: p.Value})
		case query.OpLte:
			b = b.Where(sq.LtOrEq{expr: p.Value})
		case query.OpGt:
			b = b.Where(sq.Gt{expr: p.Value})
		case query.OpGte:
			b = b.Where(sq.GtOrEq{expr: p.Value})
		case query.OpLike:
			b = b.Where(sq.Like{expr: p.Value})
		case query.OpIn:
			// squirrel renders a slice under Eq as an IN list.
			b = b.Where(sq.Eq{expr: p.Value})
		default:
			return b, fmt.Errorf("unsupported operator %q", p.Op)
		}
	}
	return b, nil
}

// orderClauses returns the ORDER BY terms for q: the requested order first,
// then the stable id tiebreaker. An empty OrderBy means creation time
// descending; ascending creation order is requested explicitly with
// OrderBy "created_at" (Desc alone is rejected by query.Validate).
func orderClauses(q query.Query) []string {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	primary := "created_at DESC"
	if q.OrderBy != "" {
		primary = fmt.Sprintf("%s %s", fieldExpr(q.OrderBy), dir)
	}

	// The SQLite ordering-term grammar puts the collation before the
	// direction. COLLATE BINARY keeps text ordering identical across
	// SQLite builds.
	return []string{primary, "id COLLATE BINARY ASC"}
}

// metaColumns are the physical columns addressable as query fields; every
// other field resolves into the JSON payload.
var metaColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// fieldExpr returns the SQL expression for a field: the column itself for
// metadata columns, a json_extract path otherwise. Field names are
// identifier-validated by query.Validate before reaching here.
func fieldExpr(field string) string {
	if metaColumns[field] {
		return field
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}
