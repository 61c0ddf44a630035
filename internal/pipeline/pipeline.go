package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/dedupe"
	"github.com/sells-group/referral-cli/internal/model"
	"github.com/sells-group/referral-cli/internal/schema"
	"github.com/sells-group/referral-cli/internal/tabular"
)

// Options controls one pipeline build.
type Options struct {
	// Window restricts counting to dated events inside the range; nil
	// means full history.
	Window *TimeWindow
	// WindowFallback re-runs on full history when the window excludes
	// every event.
	WindowFallback bool

	// PreferredMaxEntries and PreferredMaxFraction bound the anomaly
	// checks on the curated list. Zero disables the respective check.
	PreferredMaxEntries  int
	PreferredMaxFraction float64
}

// Result is the immutable output of one pipeline build.
type Result struct {
	Providers []model.Provider `json:"providers"`

	InboundEvents    int `json:"inbound_events"`
	OutboundEvents   int `json:"outbound_events"`
	PreferredEntries int `json:"preferred_entries"`

	Warnings []model.Warning `json:"warnings,omitempty"`
	BuiltAt  time.Time       `json:"built_at"`
}

// Build runs the full transformation: the raw referrals table is
// normalized under the inbound and outbound rule sets (one export row
// carries both directions' columns), deduplicated, coerced into events,
// window-filtered per direction, aggregated into providers, and merged
// with the curated preferred list. preferredTable may be nil when no
// curated list is configured.
//
// Build never fails on data quality: malformed rows are dropped during
// coercion and every anomaly lands in Result.Warnings. The same inputs
// always produce the same Result modulo BuiltAt.
func Build(referrals *tabular.Table, preferredTable *tabular.Table, mapping *schema.Mapping, opts Options) *Result {
	var warns model.Warnings

	inbound := directionEvents(referrals, mapping.Inbound, model.DirectionInbound, &warns)
	outbound := directionEvents(referrals, mapping.Outbound, model.DirectionOutbound, &warns)

	inbound = FilterWindow(inbound, opts.Window, opts.WindowFallback, &warns)
	outbound = FilterWindow(outbound, opts.Window, opts.WindowFallback, &warns)

	events := make([]model.ReferralEvent, 0, len(inbound)+len(outbound))
	events = append(events, inbound...)
	events = append(events, outbound...)
	providers := Aggregate(events)

	var preferred []model.PreferredProviderRecord
	if preferredTable != nil {
		normalized := schema.Normalize(preferredTable, mapping.Preferred, &warns)
		normalized = dedupe.Dedupe(normalized, schema.ColPersonID, &warns)
		preferred = schema.ToPreferred(normalized)
	}
	providers = MergePreferred(providers, preferred, opts.PreferredMaxEntries, opts.PreferredMaxFraction, &warns)

	res := &Result{
		Providers:        providers,
		InboundEvents:    len(inbound),
		OutboundEvents:   len(outbound),
		PreferredEntries: len(preferred),
		Warnings:         warns.List(),
		BuiltAt:          time.Now().UTC(),
	}

	zap.L().Info("pipeline: build complete",
		zap.Int("providers", len(providers)),
		zap.Int("inbound_events", res.InboundEvents),
		zap.Int("outbound_events", res.OutboundEvents),
		zap.Int("preferred_entries", res.PreferredEntries),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res
}

// directionEvents normalizes the raw table under one direction's rules
// and coerces it into that direction's event stream. Rows whose name
// column is blank under these rules belong to the other direction (or
// to no direction) and are dropped by ToEvents.
func directionEvents(raw *tabular.Table, rules []schema.ColumnRule, dir model.Direction, warns *model.Warnings) []model.ReferralEvent {
	normalized := schema.Normalize(raw, rules, warns)
	normalized = dedupe.Dedupe(normalized, schema.ColPersonID, warns)
	return schema.ToEvents(normalized, dir)
}
