package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/query"
	"github.com/mkandawire/docket/internal/querysql"
	"github.com/mkandawire/docket/internal/store"
)

// Record is one stored document: the caller-owned payload plus the
// engine-assigned metadata columns.
type Record struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the generic collection engine. Every entity in the system
// (cases, audit entries, notifications, sequence counters, users) is a
// named collection of JSON payloads behind this one type.
type Store struct {
	db  *store.DB
	r   store.Runner
	log *slog.Logger
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a collection engine over an open database handle.
func New(db *store.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		r:   db.Runner(),
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTx runs fn with a Store bound to a single transaction. Every operation
// performed through tx commits or rolls back together; this is how a case
// update and its audit entry form one logical operation.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.InTx(ctx, func(r store.Runner) error {
		bound := *s
		bound.r = r
		return fn(&bound)
	})
}

// EnsureCollection idempotently creates the backing table for a collection
// and a secondary index on the creation timestamp. Safe to call before
// every operation.
func (s *Store) EnsureCollection(ctx context.Context, collection string) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id         TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, table)
	if _, err := s.r.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure collection %s: %w", collection, err)
	}

	idx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s (created_at)", table)
	if _, err := s.r.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("ensure collection %s: create index: %w", collection, err)
	}

	return nil
}

// EnsureIndex idempotently creates an expression index on a top-level JSON
// field, keeping predicate queries on hot fields (status, type, assignedTo,
// entityId, ...) from degrading to full scans.
func (s *Store) EnsureIndex(ctx context.Context, collection, field string) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}
	if err := query.Validate(query.Where(field, query.OpEq, "")); err != nil {
		return fmt.Errorf("ensure index on %s: %w", collection, err)
	}

	idx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%[1]s_%[2]s ON %[1]s (json_extract(data, '$.%[2]s'))",
		table, field)
	if _, err := s.r.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("ensure index on %s.%s: %w", collection, field, err)
	}
	return nil
}

// Insert writes a new record. Fails with domain.ErrDuplicateKey if the id
// already exists in the collection; the existing record is unchanged.
func (s *Store) Insert(ctx context.Context, collection, id string, payload map[string]any) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}
	if id == "" {
		return domain.NewValidationError("id", "must not be empty")
	}

	data, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}

	now := s.timestamp()
	_, err = s.r.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)", table),
		id, data, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s/%s: %w", collection, id, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}

	return nil
}

// Update partially overwrites the stored payload for id using RFC 7386
// merge semantics (SQLite json_patch): fields present in patch replace the
// stored value, a JSON null removes the field, absent fields are untouched.
// Fails with domain.ErrNotFound if the record is absent.
func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	// Deliberately not stripNils: nulls are the merge format's deletes.
	data, err := jsonMarshal(patch)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	res, err := s.r.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET data = json_patch(data, ?), updated_at = ? WHERE id = ?", table),
		data, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	return requireRow(res, collection, id)
}

// Replace fully overwrites the stored payload for id. Fails with
// domain.ErrNotFound if the record is absent.
func (s *Store) Replace(ctx context.Context, collection, id string, payload map[string]any) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	data, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}

	res, err := s.r.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET data = ?, updated_at = ? WHERE id = ?", table),
		data, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}

	return requireRow(res, collection, id)
}

// Get returns the record for id, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (Record, error) {
	table, err := tableName(collection)
	if err != nil {
		return Record{}, err
	}

	row := s.r.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, data, created_at, updated_at FROM %s WHERE id = ?", table), id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// Query returns the records matching q, in the requested order (creation
// time descending by default). A record whose stored JSON fails to decode
// surfaces domain.ErrCorruptRecord with the offending id; the engine itself
// keeps working.
func (s *Store) Query(ctx context.Context, collection string, q query.Query) ([]Record, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}

	stmt, args, err := querysql.Select(table, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	rows, err := s.r.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: iterate: %w", collection, err)
	}

	return records, nil
}

// Count returns the number of records matching the predicates. Predicate
// semantics are identical to Query.
func (s *Store) Count(ctx context.Context, collection string, preds []query.Predicate) (int64, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}

	stmt, args, err := querysql.Count(table, preds)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}

	var n int64
	if err := s.r.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Runner exposes the store's current runner for sibling packages (the
// sequence generator issues its single-statement increment directly).
func (s *Store) Runner() store.Runner {
	return s.r
}

// TimeLayout is the stored timestamp format: UTC RFC 3339 with a fixed
// nine-digit fractional second. The width is fixed because the columns are
// TEXT and their order must be lexicographic-chronological; RFC3339Nano
// trims trailing zeros, which breaks that ("...:05Z" sorts after
// "...:05.5Z"). time.Parse with RFC3339Nano still reads it.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestamp returns the engine timestamp for the created_at/updated_at
// columns.
func (s *Store) timestamp() string {
	return s.now().UTC().Format(TimeLayout)
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var (
		id, data             string
		createdAt, updatedAt string
	)
	if err := scan(&id, &data, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}

	payload, err := decodePayload(id, data)
	if err != nil {
		return Record{}, err
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("record %q: %w: bad created_at", id, domain.ErrCorruptRecord)
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("record %q: %w: bad updated_at", id, domain.ErrCorruptRecord)
	}

	return Record{ID: id, Data: payload, CreatedAt: created, UpdatedAt: updated}, nil
}

func requireRow(res sql.Result, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s/%s: rows affected: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

// tableName maps a collection name to its physical table. Collection names
// are restricted to lowercase identifiers because they are spliced into DDL
// and DML statements.
func tableName(collection string) (string, error) {
	if !validCollectionName(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	return "c_" + collection, nil
}

func validCollectionName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}
