// Package status tracks per-source fetch state and the outcome of the
// most recent pipeline run for operator visibility.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/sells-group/referral-cli/internal/model"
)

// SourceStatus is the last observed state of one dataset.
type SourceStatus struct {
	Name      string     `json:"name"`
	Marker    string     `json:"marker,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// RunSummary describes the most recent pipeline build.
type RunSummary struct {
	Providers        int             `json:"providers"`
	InboundEvents    int             `json:"inbound_events"`
	OutboundEvents   int             `json:"outbound_events"`
	PreferredEntries int             `json:"preferred_entries"`
	Warnings         []model.Warning `json:"warnings,omitempty"`
	BuiltAt          time.Time       `json:"built_at"`
	Duration         time.Duration   `json:"duration_ms"`
}

// Snapshot is a point-in-time view of the board.
type Snapshot struct {
	Sources []SourceStatus `json:"sources"`
	LastRun *RunSummary    `json:"last_run,omitempty"`
}

// Board collects status updates from the fetch and build paths. Safe
// for concurrent use.
type Board struct {
	mu      sync.Mutex
	sources map[string]SourceStatus
	lastRun *RunSummary
	now     func() time.Time
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{sources: make(map[string]SourceStatus), now: time.Now}
}

// RecordFetch notes a successful fetch of one source.
func (b *Board) RecordFetch(name, marker string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.now()
	b.sources[name] = SourceStatus{Name: name, Marker: marker, FetchedAt: &t}
}

// RecordFetchError notes a failed fetch, keeping the previous marker
// and timestamp so operators can see how stale the data is.
func (b *Board) RecordFetchError(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.sources[name]
	s.Name = name
	s.LastError = err.Error()
	b.sources[name] = s
}

// RecordRun notes the outcome of a pipeline build.
func (b *Board) RecordRun(run RunSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastRun = &run
}

// Snapshot returns the current board state with sources in name order.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := Snapshot{}
	for _, s := range b.sources {
		out.Sources = append(out.Sources, s)
	}
	sort.Slice(out.Sources, func(i, j int) bool { return out.Sources[i].Name < out.Sources[j].Name })

	if b.lastRun != nil {
		run := *b.lastRun
		out.LastRun = &run
	}
	return out
}
