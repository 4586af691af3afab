// Package store provides the SQLite-backed storage engine handle for the
// docket core.
//
// The handle is deliberately thin: it owns the connection, the required
// pragmas, and the transaction boundary. Collection tables are created
// lazily by the docstore package, so there is no embedded schema here.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// SQLite supports one effective writer, so the pool is capped at a single
// connection. All higher layers (docstore, sequence generator, audit writer)
// accept a Runner, which is satisfied by both *sql.DB and *sql.Tx; this is
// how a case update and its audit entry commit in one transaction.
package store
