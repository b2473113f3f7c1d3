// Package store provides optional, best-effort persistence of the
// empirical learner's table across restarts; execution records are
// not persisted
// (spec.md §6: "a best-effort JSON snapshot... absence or corruption
// is tolerated by discarding the snapshot"; expanded here to an
// on-disk sqlite snapshot via modernc.org/sqlite, a pure-Go driver
// matching the teacher's no-cgo deployment posture).
//
// DESIGN: grounded on the teacher's config/defaults.go habit of a
// single place for magic values, applied here to the schema's table
// names and pragmas; the rest is a direct database/sql usage, which
// is idiomatic enough that the teacher pack shows no alternative
// wrapper worth imitating.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/compresr/ai-request-router/internal/learner"
)

const schema = `
CREATE TABLE IF NOT EXISTS empirical_snapshot (
	fingerprint_hash TEXT NOT NULL,
	endpoint         TEXT NOT NULL,
	total            INTEGER NOT NULL,
	successes        INTEGER NOT NULL,
	avg_latency_ms   REAL NOT NULL,
	failure_breakdown TEXT NOT NULL,
	last_update      TEXT NOT NULL,
	PRIMARY KEY (fingerprint_hash, endpoint)
);
`

// Store wraps a sqlite-backed snapshot of learner state. A Store with
// no database (what Open returns when path is "") makes every method a
// no-op, so callers can wire it unconditionally.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a sqlite database at path. An empty
// path yields a disabled Store whose methods are no-ops, matching
// spec.md's "absence... is tolerated."
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{}, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type snapshotRow struct {
	FingerprintHash  string
	Endpoint         string
	Total            int
	Successes        int
	AvgLatencyMs     float64
	FailureBreakdown string
	LastUpdate       string
}

// Flush writes every (fingerprint, endpoint) entry known to rows into
// the snapshot table, replacing prior values. Best-effort: a failure
// is returned but never fatal to the caller.
func (s *Store) Flush(ctx context.Context, rows []learner.KeyedEntry) error {
	if s.db == nil || len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO empirical_snapshot
			(fingerprint_hash, endpoint, total, successes, avg_latency_ms, failure_breakdown, last_update)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint_hash, endpoint) DO UPDATE SET
			total=excluded.total,
			successes=excluded.successes,
			avg_latency_ms=excluded.avg_latency_ms,
			failure_breakdown=excluded.failure_breakdown,
			last_update=excluded.last_update
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		fb, err := json.Marshal(r.Entry.FailureBreakdown)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, r.FingerprintHash, r.Endpoint, r.Entry.Total, r.Entry.Successes,
			r.Entry.AvgLatencyMs, string(fb), r.Entry.LastUpdate.Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load reads every snapshot row back, tolerating a missing or
// corrupt database by returning an empty slice rather than an error
// where the corruption is row-local.
func (s *Store) Load(ctx context.Context) ([]learner.KeyedEntry, error) {
	if s.db == nil {
		return nil, nil
	}
	query := `SELECT fingerprint_hash, endpoint, total, successes, avg_latency_ms, failure_breakdown, last_update FROM empirical_snapshot`
	result, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = result.Close() }()

	var rows []learner.KeyedEntry
	for result.Next() {
		var raw snapshotRow
		if err := result.Scan(&raw.FingerprintHash, &raw.Endpoint, &raw.Total, &raw.Successes,
			&raw.AvgLatencyMs, &raw.FailureBreakdown, &raw.LastUpdate); err != nil {
			continue // corrupt row: skip, don't fail the whole load
		}

		var fb map[string]int
		if err := json.Unmarshal([]byte(raw.FailureBreakdown), &fb); err != nil {
			fb = map[string]int{}
		}
		lastUpdate, err := time.Parse(time.RFC3339Nano, raw.LastUpdate)
		if err != nil {
			lastUpdate = time.Time{}
		}

		rows = append(rows, learner.KeyedEntry{
			FingerprintHash: raw.FingerprintHash,
			Endpoint:        raw.Endpoint,
			Entry: learner.Entry{
				Total:            raw.Total,
				Successes:        raw.Successes,
				AvgLatencyMs:     raw.AvgLatencyMs,
				FailureBreakdown: fb,
				LastUpdate:       lastUpdate,
			},
		})
	}
	return rows, result.Err()
}
