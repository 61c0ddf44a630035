// Package pipeline orchestrates the referral build: normalize, dedupe,
// split, aggregate, and merge into an immutable provider set.
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/model"
)

// TimeWindow restricts aggregation to events dated within [Start, End].
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window (inclusive).
func (w *TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// FilterWindow restricts one direction's event stream to the window.
// Events without a date are excluded by an active window. If filtering
// empties an otherwise non-empty stream and fallback is enabled, the
// full history is aggregated instead and a warning is surfaced; a zero
// count would misrepresent an active provider as inactive. With
// fallback disabled the empty result stands.
func FilterWindow(events []model.ReferralEvent, w *TimeWindow, fallback bool, warns *model.Warnings) []model.ReferralEvent {
	if w == nil || len(events) == 0 {
		return events
	}

	var filtered []model.ReferralEvent
	for _, e := range events {
		if e.EventDate != nil && w.Contains(*e.EventDate) {
			filtered = append(filtered, e)
		}
	}

	if len(filtered) == 0 {
		direction := events[0].Direction
		if !fallback {
			zap.L().Info("pipeline: time window excluded all events",
				zap.String("direction", string(direction)),
			)
			return nil
		}
		warns.AddOnce(model.WarnTimeWindowFallback,
			"time window %s..%s excluded all %s events; falling back to full history",
			w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"), direction)
		zap.L().Warn("pipeline: time window fallback to full history",
			zap.String("direction", string(direction)),
			zap.Int("events", len(events)),
		)
		return events
	}

	return filtered
}
