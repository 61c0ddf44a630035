package model

import (
	"fmt"
	"sync"
)

// Warning codes emitted by the pipeline. These are stable identifiers
// surfaced to the status board and run history, not display strings.
const (
	WarnSchemaMissingColumn = "schema-missing-column"
	WarnDedupCount          = "dedup-count"
	WarnPreferredListSize   = "preferred-list-size-anomaly"
	WarnPreferredFraction   = "preferred-fraction-anomaly"
	WarnTimeWindowFallback  = "time-window-fallback"
	WarnFiltersRelaxed      = "filters-relaxed"
)

// Warning is one structured, non-fatal pipeline finding.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warnings is a per-run accumulator passed through the pipeline call.
// It replaces process-wide warn-once flags: each run gets its own
// accumulator, so repeated cache warm-ups cannot spam the log while a
// single run still reports each anomaly class at most once.
type Warnings struct {
	mu   sync.Mutex
	list []Warning
	seen map[string]bool
}

// Add records a warning unconditionally.
func (w *Warnings) Add(code, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

// AddOnce records a warning unless one with the same code was already
// recorded during this run.
func (w *Warnings) AddOnce(code, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[code] {
		return
	}
	w.seen[code] = true
	w.list = append(w.list, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

// List returns a copy of the accumulated warnings in emission order.
func (w *Warnings) List() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Warning, len(w.list))
	copy(out, w.list)
	return out
}

// Has reports whether a warning with the given code was recorded.
func (w *Warnings) Has(code string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, wn := range w.list {
		if wn.Code == code {
			return true
		}
	}
	return false
}
