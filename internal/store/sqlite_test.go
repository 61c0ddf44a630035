package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/referral-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RecordAndGetRun(t *testing.T) {
	s := newTestSQLite(t)

	run := &RunRecord{
		Kind:       RunKindRecommend,
		Request:    `{"limit":5,"specialties":["chiropractic"]}`,
		Providers:  120,
		Candidates: 5,
		Reason:     "ok",
		Warnings:   []model.Warning{{Code: model.WarnDedupCount, Message: "removed 3 duplicate rows"}},
		Duration:   95 * time.Millisecond,
	}
	require.NoError(t, s.RecordRun(context.Background(), run))
	require.NotEmpty(t, run.ID)

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunKindRecommend, got.Kind)
	assert.Equal(t, run.Request, got.Request)
	assert.Equal(t, 120, got.Providers)
	assert.Equal(t, 5, got.Candidates)
	assert.Equal(t, 95*time.Millisecond, got.Duration)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, model.WarnDedupCount, got.Warnings[0].Code)
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i, kind := range []RunKind{RunKindRefresh, RunKindRecommend, RunKindRefresh} {
		run := &RunRecord{Kind: kind, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.RecordRun(context.Background(), run))
	}

	all, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt))

	refreshes, err := s.ListRuns(context.Background(), RunFilter{Kind: RunKindRefresh})
	require.NoError(t, err)
	assert.Len(t, refreshes, 2)

	limited, err := s.ListRuns(context.Background(), RunFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	offset, err := s.ListRuns(context.Background(), RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, offset, 1)
	assert.NotEqual(t, limited[0].ID, offset[0].ID)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
