package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/referral-cli/internal/model"
)

// Pool abstracts the pgx pool so tests can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; tests use this with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind        TEXT NOT NULL,
	request     JSONB,
	providers   INTEGER NOT NULL DEFAULT 0,
	candidates  INTEGER NOT NULL DEFAULT 0,
	reason      TEXT,
	warnings    JSONB,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// RecordRun inserts a history entry, assigning ID and CreatedAt when unset.
func (s *PostgresStore) RecordRun(ctx context.Context, run *RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal warnings")
	}

	var request any
	if run.Request != "" {
		request = run.Request
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, request, providers, candidates, reason, warnings, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, string(run.Kind), request, run.Providers, run.Candidates,
		run.Reason, string(warningsJSON), run.Duration.Milliseconds(), run.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

// GetRun fetches one history entry by id.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, request, providers, candidates, reason, warnings, duration_ms, created_at
		 FROM runs WHERE id = $1`, runID)

	run, err := scanPgRun(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

// ListRuns returns history entries newest-first.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, kind, request, providers, candidates, reason, warnings, duration_ms, created_at FROM runs`
	args := []any{}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += ` WHERE kind = $1`
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		run, err := scanPgRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs")
}

func scanPgRun(scan func(...any) error) (*RunRecord, error) {
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
