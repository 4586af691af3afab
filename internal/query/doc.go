// Package query provides the abstract predicate representation for
// document-store queries.
//
// A query is a conjunction (AND) of (field, operator, value) triples over
// top-level JSON fields of a collection, plus ordering and pagination
// options. The representation is backend-agnostic: package querysql compiles
// it to parameterized SQLite SQL, and nothing in this package knows about
// tables or json_extract.
//
// Supported operators:
//   - Eq, Ne: equality / inequality
//   - Lt, Lte, Gt, Gte: comparisons
//   - Like: SQL LIKE pattern match
//   - In: set membership (non-empty value list required)
//
// Field names are restricted to identifier syntax because they are spliced
// into JSON path expressions by the compiler; values are always carried
// out-of-band and parameterized, never interpolated.
package query
