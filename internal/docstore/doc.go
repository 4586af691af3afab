// Package docstore implements the generic JSON document-store engine.
//
// A collection is a named logical table; every row is
// (id, data, created_at, updated_at) where data is an opaque JSON payload
// whose schema belongs to the caller. One engine backs every entity in the
// application - cases, audit entries, notifications, sequence counters -
// without per-entity table definitions or migrations.
//
// The relational engine's JSON functions are used purely as a query
// accelerator: predicates compile to json_extract expressions
// (package querysql) and partial updates to json_patch merges. They never
// constrain the payload shape.
//
// # Codec rules
//
//   - nil payload values are stripped before storage (absent and nil are
//     indistinguishable to readers)
//   - nested objects and arrays round-trip as native structures
//   - numbers decode as json.Number to avoid float precision loss
//   - malformed stored JSON surfaces domain.ErrCorruptRecord with the
//     offending record id; the read path never panics
//
// # Transactions
//
// InTx binds a Store to one transaction so multi-collection operations
// (case update + audit append) commit atomically. Everything else is a
// single-row commit.
package docstore
