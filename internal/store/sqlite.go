package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/referral-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	request     TEXT,
	providers   INTEGER NOT NULL DEFAULT 0,
	candidates  INTEGER NOT NULL DEFAULT 0,
	reason      TEXT,
	warnings    TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts a history entry, assigning ID and CreatedAt when unset.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal warnings")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, request, providers, candidates, reason, warnings, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Request, run.Providers, run.Candidates,
		run.Reason, string(warningsJSON), run.Duration.Milliseconds(), run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

// GetRun fetches one history entry by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, request, providers, candidates, reason, warnings, duration_ms, created_at
		 FROM runs WHERE id = ?`, runID)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

// ListRuns returns history entries newest-first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, kind, request, providers, candidates, reason, warnings, duration_ms, created_at FROM runs`
	args := []any{}
	if filter.Kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []RunRecord
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs")
}

// scanRun decodes one row regardless of whether it came from QueryRow
// or a rows cursor.
func scanRun(scan func(...any) error) (*RunRecord, error) {
	var (
		run          RunRecord
		kind         string
		request      sql.NullString
		reason       sql.NullString
		warningsJSON sql.NullString
		durationMS   int64
	)
	if err := scan(&run.ID, &kind, &request, &run.Providers, &run.Candidates,
		&reason, &warningsJSON, &durationMS, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Kind = RunKind(kind)
	run.Request = request.String
	run.Reason = reason.String
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if warningsJSON.Valid && warningsJSON.String != "" && warningsJSON.String != "null" {
		var warns []model.Warning
		if err := json.Unmarshal([]byte(warningsJSON.String), &warns); err != nil {
			return nil, eris.Wrap(err, "decode warnings")
		}
		run.Warnings = warns
	}
	return &run, nil
}
