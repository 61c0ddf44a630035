package status

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_RecordFetch(t *testing.T) {
	b := NewBoard()
	b.RecordFetch("referrals", `"etag-1"`)
	b.RecordFetch("preferred", "2026-01-01T00:00:00Z")

	snap := b.Snapshot()
	require.Len(t, snap.Sources, 2)
	// Name order.
	assert.Equal(t, "preferred", snap.Sources[0].Name)
	assert.Equal(t, "referrals", snap.Sources[1].Name)
	assert.Equal(t, `"etag-1"`, snap.Sources[1].Marker)
	assert.NotNil(t, snap.Sources[1].FetchedAt)
}

func TestBoard_FetchErrorKeepsMarker(t *testing.T) {
	b := NewBoard()
	b.RecordFetch("referrals", "m1")
	b.RecordFetchError("referrals", eris.New("connection refused"))

	snap := b.Snapshot()
	require.Len(t, snap.Sources, 1)
	assert.Equal(t, "m1", snap.Sources[0].Marker)
	assert.Contains(t, snap.Sources[0].LastError, "connection refused")
	assert.NotNil(t, snap.Sources[0].FetchedAt)
}

func TestBoard_RecordRun(t *testing.T) {
	b := NewBoard()
	assert.Nil(t, b.Snapshot().LastRun)

	b.RecordRun(RunSummary{Providers: 42, BuiltAt: time.Now(), Duration: 120 * time.Millisecond})

	run := b.Snapshot().LastRun
	require.NotNil(t, run)
	assert.Equal(t, 42, run.Providers)
}
