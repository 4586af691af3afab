// Package seq issues unique, monotonically increasing, human-readable case
// numbers per (typePrefix, courtCode, year) key.
//
// The counter record lives in the "sequences" collection like any other
// document, but its increment is a single UPDATE .. RETURNING statement so
// the read-increment-write is atomic in the storage engine itself: two
// concurrent callers can never observe or persist the same value. A bounded
// retry loop absorbs transient write-lock contention; exhausting it surfaces
// domain.ErrSequenceContention.
package seq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/mkandawire/docket/internal/docstore"
	"github.com/mkandawire/docket/internal/domain"
)

// Collection is the name of the counter collection.
const Collection = "sequences"

const (
	defaultMaxRetries = 5
	defaultPadWidth   = 5
	retryBaseDelay    = 10 * time.Millisecond
)

// Issued is the result of one case-number issuance.
type Issued struct {
	// CaseNumber is the formatted number, e.g. "LUS-HC-GEN-2025-00001".
	CaseNumber string
	// Value is the raw counter value backing the number.
	Value int64
}

// Generator issues case numbers. Counters are created lazily on first use
// and never deleted.
type Generator struct {
	docs       *docstore.Store
	maxRetries int
	padWidth   int
	now        func() time.Time
	log        *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxRetries sets the retry budget for contended increments.
func WithMaxRetries(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// WithPadWidth sets the zero-pad width of the counter portion.
func WithPadWidth(w int) Option {
	return func(g *Generator) {
		if w > 0 {
			g.padWidth = w
		}
	}
}

// WithClock overrides the year source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// New creates a Generator over the document store.
func New(docs *docstore.Store, opts ...Option) *Generator {
	g := &Generator{
		docs:       docs,
		maxRetries: defaultMaxRetries,
		padWidth:   defaultPadWidth,
		now:        time.Now,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next issues the next case number for (typePrefix, courtCode) in the
// current year. The counter is created starting at 0 on first request, so
// the first issued value is 1.
func (g *Generator) Next(ctx context.Context, typePrefix, courtCode string) (Issued, error) {
	if err := validateCode("typePrefix", typePrefix); err != nil {
		return Issued{}, err
	}
	if err := validateCode("courtCode", courtCode); err != nil {
		return Issued{}, err
	}

	year := g.now().UTC().Year()
	key := counterKey(typePrefix, courtCode, year)
	ts := g.now().UTC().Format(docstore.TimeLayout)
	r := g.docs.Runner()

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Issued{}, ctx.Err()
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			}
		}

		// Create-at-1 or increment, in ONE statement: the read-increment-
		// write cannot interleave with a concurrent issuance for the same
		// key, so no two callers ever receive the same value.
		var value int64
		err := r.QueryRowContext(ctx, `
			INSERT INTO c_sequences (id, data, created_at, updated_at)
			VALUES (?, json_object('prefix', ?, 'court', ?, 'year', ?, 'current', 1), ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				data = json_set(data, '$.current', json_extract(data, '$.current') + 1),
				updated_at = excluded.updated_at
			RETURNING json_extract(data, '$.current')
		`, key, typePrefix, courtCode, year, ts, ts).Scan(&value)
		if err != nil {
			if isBusy(err) {
				lastErr = err
				continue
			}
			return Issued{}, fmt.Errorf("next case number %s: %w", key, err)
		}

		return Issued{
			CaseNumber: g.format(courtCode, typePrefix, year, value),
			Value:      value,
		}, nil
	}

	g.log.Warn("sequence increment exhausted retry budget",
		"key", key,
		"retries", g.maxRetries,
		"error", lastErr,
	)
	return Issued{}, fmt.Errorf("next case number %s: %w", key, domain.ErrSequenceContention)
}

// Peek returns the current counter value for (typePrefix, courtCode) in the
// current year without incrementing. A key with no counter reads as 0.
func (g *Generator) Peek(ctx context.Context, typePrefix, courtCode string) (int64, error) {
	year := g.now().UTC().Year()
	key := counterKey(typePrefix, courtCode, year)

	var value int64
	err := g.docs.Runner().QueryRowContext(ctx,
		"SELECT json_extract(data, '$.current') FROM c_sequences WHERE id = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("peek %s: %w", key, err)
	}
	return value, nil
}

// format renders <courtCode>-<typePrefix>-<year>-<zero-padded counter>.
func (g *Generator) format(courtCode, typePrefix string, year int, value int64) string {
	return fmt.Sprintf("%s-%s-%d-%0*d", courtCode, typePrefix, year, g.padWidth, value)
}

// counterKey is the counter record id for one (prefix, court, year) series.
func counterKey(typePrefix, courtCode string, year int) string {
	return fmt.Sprintf("%s-%s-%d", courtCode, typePrefix, year)
}

func validateCode(field, value string) error {
	if value == "" {
		return domain.NewValidationError(field, "must not be empty")
	}
	if strings.ContainsAny(value, " \t\n") {
		return domain.NewValidationError(field, "must not contain whitespace")
	}
	return nil
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
