/*
Package sqlite persists the engine's run history.

PURPOSE:
  Records one row per quote-engine invocation: row counts, the as-of date,
  result totals, duration, and outcome. This is operational audit only:
  the computed quotes themselves are deliberately NOT persisted; the
  engine stays a pure function and every quote is recomputed from fresh
  uploads.

SCHEMA:
  runs: append-only run log. No UPDATE or DELETE statements exist; a run
  record is written once after the invocation finishes.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety across concurrent API requests.

USAGE:
  store, err := sqlite.New("./data/commission.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - api/handlers.go: Writes a run record after each quote request
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run outcomes recorded in the history.
const (
	OutcomeOK        = "ok"
	OutcomeDataError = "data_error"
)

// RunRecord is one entry of the run history.
type RunRecord struct {
	ID             string
	GeneratedAt    time.Time
	AsOf           string // ISO date the run was evaluated against
	RemittanceRows int
	PolicyRows     int
	TotalAgents    int
	TotalPolicies  int
	Duration       time.Duration
	Outcome        string
	Error          string
}

// Store implements run-history persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Run history (append-only)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL,
		as_of TEXT NOT NULL,
		remittance_rows INTEGER NOT NULL,
		policy_rows INTEGER NOT NULL,
		total_agents INTEGER NOT NULL,
		total_policies INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_generated_at
		ON runs(generated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun appends one run record to the history.
func (s *Store) SaveRun(ctx context.Context, r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, generated_at, as_of, remittance_rows, policy_rows,
			total_agents, total_policies, duration_ms, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.GeneratedAt.UTC().Format(time.RFC3339),
		r.AsOf,
		r.RemittanceRows,
		r.PolicyRows,
		r.TotalAgents,
		r.TotalPolicies,
		r.Duration.Milliseconds(),
		r.Outcome,
		r.Error,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generated_at, as_of, remittance_rows, policy_rows,
			total_agents, total_policies, duration_ms, outcome, COALESCE(error, '')
		FROM runs
		ORDER BY generated_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var generatedAt string
		var durationMS int64
		if err := rows.Scan(&r.ID, &generatedAt, &r.AsOf, &r.RemittanceRows, &r.PolicyRows,
			&r.TotalAgents, &r.TotalPolicies, &durationMS, &r.Outcome, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, r)
	}
	return records, rows.Err()
}
