// Package store persists the run history: every pipeline refresh and
// recommendation request leaves a record for auditability.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/referral-cli/internal/config"
	"github.com/sells-group/referral-cli/internal/model"
)

// RunKind distinguishes history entries.
type RunKind string

const (
	// RunKindRefresh records a pipeline rebuild.
	RunKindRefresh RunKind = "refresh"
	// RunKindRecommend records a recommendation request.
	RunKindRecommend RunKind = "recommend"
)

// RunRecord is one history entry.
type RunRecord struct {
	ID   string  `json:"id"`
	Kind RunKind `json:"kind"`

	// Request echoes the recommendation parameters as JSON; empty for
	// refresh runs.
	Request string `json:"request,omitempty"`

	Providers  int `json:"providers"`
	Candidates int `json:"candidates"`

	Reason   string          `json:"reason,omitempty"`
	Warnings []model.Warning `json:"warnings,omitempty"`

	Duration  time.Duration `json:"duration_ms"`
	CreatedAt time.Time     `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   RunKind `json:"kind,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Offset int     `json:"offset,omitempty"`
}

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = eris.New("store: run not found")

// Store defines the run-history persistence interface.
type Store interface {
	RecordRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a Store from configuration and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.SQLitePath)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
